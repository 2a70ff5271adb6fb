// Package signing provides the HTTP client for the e-signature provider.
package signing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	appdocument "github.com/propsign/backend/internal/application/document"
	"github.com/propsign/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// maxSigningResponseSize limits the response body size to prevent memory exhaustion
const maxSigningResponseSize = 1 * 1024 * 1024 // 1MB max response

// Ensure EnvelopeClient implements EnvelopeService
var _ appdocument.EnvelopeService = (*EnvelopeClient)(nil)

// EnvelopeClient creates signing envelopes and nudges recipients through the
// e-signature provider's REST API. The provider downloads the document via
// the presigned URL included in the envelope request and reports recipient
// activity back through webhooks.
type EnvelopeClient struct {
	baseURL     string
	apiKey      string
	callbackURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewEnvelopeClient creates an envelope client from configuration
func NewEnvelopeClient(cfg *config.SigningConfig, logger *zap.Logger) (*EnvelopeClient, error) {
	if cfg == nil {
		return nil, errors.New("signing configuration is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("signing base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &EnvelopeClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		callbackURL: cfg.CallbackURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

type envelopeRecipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type createEnvelopeRequest struct {
	ReferenceID  string              `json:"reference_id"`
	DocumentName string              `json:"document_name"`
	DocumentURL  string              `json:"document_url"`
	Recipients   []envelopeRecipient `json:"recipients"`
	Message      string              `json:"message,omitempty"`
	CallbackURL  string              `json:"callback_url,omitempty"`
}

type envelopeResponse struct {
	EnvelopeID string `json:"envelope_id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
}

// CreateEnvelope registers the document and its recipients with the provider
// and starts the signing flow
func (c *EnvelopeClient) CreateEnvelope(ctx context.Context, req appdocument.CreateEnvelopeRequest) (*appdocument.EnvelopeResult, error) {
	if len(req.Signers) == 0 {
		return nil, errors.New("at least one signer is required")
	}
	if req.DownloadURL == "" {
		return nil, errors.New("document download URL is required")
	}

	recipients := make([]envelopeRecipient, 0, len(req.Signers))
	for _, signer := range req.Signers {
		recipients = append(recipients, envelopeRecipient{
			Name:  signer.Name,
			Email: signer.Email,
			Role:  signer.Role,
		})
	}

	body := createEnvelopeRequest{
		ReferenceID:  req.DocumentID.String(),
		DocumentName: req.DocumentName,
		DocumentURL:  req.DownloadURL,
		Recipients:   recipients,
		Message:      req.Message,
		CallbackURL:  c.callbackURL,
	}

	var parsed envelopeResponse
	if err := c.post(ctx, "/v1/envelopes", body, &parsed); err != nil {
		return nil, err
	}
	if parsed.EnvelopeID == "" {
		return nil, errors.New("provider returned an empty envelope ID")
	}

	c.logger.Info("signing envelope created",
		zap.String("envelope_id", parsed.EnvelopeID),
		zap.String("document_id", req.DocumentID.String()),
		zap.Int("recipients", len(recipients)))

	return &appdocument.EnvelopeResult{
		EnvelopeID: parsed.EnvelopeID,
		Status:     parsed.Status,
	}, nil
}

// SendReminder asks the provider to re-notify one recipient of an open envelope
func (c *EnvelopeClient) SendReminder(ctx context.Context, envelopeID, recipientEmail string) error {
	if envelopeID == "" {
		return errors.New("envelope ID is required")
	}
	if recipientEmail == "" {
		return errors.New("recipient email is required")
	}

	body := map[string]string{"recipient_email": recipientEmail}
	path := fmt.Sprintf("/v1/envelopes/%s/remind", envelopeID)

	var parsed envelopeResponse
	return c.post(ctx, path, body, &parsed)
}

func (c *EnvelopeClient) post(ctx context.Context, path string, body any, out *envelopeResponse) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode signing request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build signing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("signing request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSigningResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read signing response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var failed envelopeResponse
		if json.Unmarshal(raw, &failed) == nil && failed.Error != "" {
			return fmt.Errorf("signing provider returned status %d: %s", resp.StatusCode, failed.Error)
		}
		return fmt.Errorf("signing provider returned status %d", resp.StatusCode)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode signing response: %w", err)
		}
	}
	return nil
}
