// Package ai provides the HTTP client for the document parsing provider.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	appdocument "github.com/propsign/backend/internal/application/document"
	"github.com/propsign/backend/internal/domain/document"
	"github.com/propsign/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// maxParserResponseSize limits the response body size to prevent memory exhaustion
const maxParserResponseSize = 4 * 1024 * 1024 // 4MB max response

// Ensure ParserClient implements DocumentParser
var _ appdocument.DocumentParser = (*ParserClient)(nil)

// ParserClient calls the AI extraction API to pull structured fields out of
// an uploaded real-estate document. The provider fetches the document itself
// through the presigned URL we pass along; file bytes never travel through
// this service twice.
type ParserClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewParserClient creates a parser client from configuration
func NewParserClient(cfg *config.AIConfig, logger *zap.Logger) (*ParserClient, error) {
	if cfg == nil {
		return nil, errors.New("ai configuration is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("ai base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &ParserClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

type parseRequest struct {
	DocumentURL  string `json:"document_url"`
	DocumentName string `json:"document_name"`
	Model        string `json:"model,omitempty"`
}

type parseResponse struct {
	DocumentType    string           `json:"document_type"`
	PropertyAddress string           `json:"property_address"`
	PropertyValue   *decimal.Decimal `json:"property_value"`
	KeyTerms        string           `json:"key_terms"`
	Confidence      float64          `json:"confidence"`
	Signers         []document.Signer `json:"signers"`
	Error           string           `json:"error"`
}

// Parse submits the document for extraction and waits for the result
func (c *ParserClient) Parse(ctx context.Context, downloadURL, documentName string) (*document.ParseResult, error) {
	if downloadURL == "" {
		return nil, errors.New("download URL is required")
	}

	payload, err := json.Marshal(parseRequest{
		DocumentURL:  downloadURL,
		DocumentName: documentName,
		Model:        c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/documents/parse", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("parse request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxParserResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read parse response: %w", err)
	}

	c.logger.Debug("document parse request completed",
		zap.String("document_name", documentName),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		var parsed parseResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
			return nil, fmt.Errorf("parser returned status %d: %s", resp.StatusCode, parsed.Error)
		}
		return nil, fmt.Errorf("parser returned status %d", resp.StatusCode)
	}

	var parsed parseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode parse response: %w", err)
	}

	return &document.ParseResult{
		DocumentType:    parsed.DocumentType,
		PropertyAddress: parsed.PropertyAddress,
		PropertyValue:   parsed.PropertyValue,
		KeyTerms:        parsed.KeyTerms,
		Confidence:      parsed.Confidence,
		Signers:         parsed.Signers,
	}, nil
}
