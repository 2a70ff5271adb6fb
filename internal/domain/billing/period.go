package billing

import (
	"fmt"
	"regexp"
	"time"
)

// Period identifies a calendar-month usage accounting window as "YYYY-MM".
// Usage counters are keyed by period; a counter becomes irrelevant (it is
// never deleted) once the period rolls over.
type Period string

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// PeriodOf returns the period containing the given time
func PeriodOf(t time.Time) Period {
	return Period(t.Format("2006-01"))
}

// CurrentPeriod returns the period containing the current time
func CurrentPeriod() Period {
	return PeriodOf(time.Now())
}

// String returns the string representation of Period
func (p Period) String() string {
	return string(p)
}

// IsValid returns true if the period has the YYYY-MM form
func (p Period) IsValid() bool {
	return periodPattern.MatchString(string(p))
}

// Bounds returns the inclusive start and exclusive end of the period
func (p Period) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", string(p))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period %q: %w", p, err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// Next returns the following calendar month
func (p Period) Next() (Period, error) {
	start, _, err := p.Bounds()
	if err != nil {
		return "", err
	}
	return PeriodOf(start.AddDate(0, 1, 0)), nil
}

// ParsePeriod parses a string into a Period
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid period: %s", s)
	}
	return p, nil
}
