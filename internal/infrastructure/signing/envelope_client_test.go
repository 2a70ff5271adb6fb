package signing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	appdocument "github.com/propsign/backend/internal/application/document"
	"github.com/propsign/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string) *EnvelopeClient {
	t.Helper()
	client, err := NewEnvelopeClient(&config.SigningConfig{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		CallbackURL: "https://app.test/webhooks/signing",
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewEnvelopeClient_Validation(t *testing.T) {
	_, err := NewEnvelopeClient(nil, zap.NewNop())
	require.Error(t, err)

	_, err = NewEnvelopeClient(&config.SigningConfig{}, zap.NewNop())
	require.Error(t, err)
}

func TestEnvelopeClient_CreateEnvelope(t *testing.T) {
	t.Run("sends recipients and callback URL", func(t *testing.T) {
		docID := uuid.New()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/envelopes", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req createEnvelopeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, docID.String(), req.ReferenceID)
			assert.Equal(t, "https://app.test/webhooks/signing", req.CallbackURL)
			require.Len(t, req.Recipients, 2)
			assert.Equal(t, "buyer@example.com", req.Recipients[0].Email)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"envelope_id": "env_123", "status": "sent"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		result, err := client.CreateEnvelope(context.Background(), appdocument.CreateEnvelopeRequest{
			DocumentID:   docID,
			DocumentName: "purchase-agreement.pdf",
			DownloadURL:  "https://storage.test/doc.pdf",
			Signers: []appdocument.SignerRequest{
				{Name: "Buyer", Email: "buyer@example.com", Role: "buyer"},
				{Name: "Seller", Email: "seller@example.com", Role: "seller"},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, "env_123", result.EnvelopeID)
		assert.Equal(t, "sent", result.Status)
	})

	t.Run("rejects missing signers", func(t *testing.T) {
		client := newTestClient(t, "http://localhost:9999")

		_, err := client.CreateEnvelope(context.Background(), appdocument.CreateEnvelopeRequest{
			DocumentID:  uuid.New(),
			DownloadURL: "https://storage.test/doc.pdf",
		})
		require.Error(t, err)
	})

	t.Run("surfaces provider error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error": "document unreachable"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		_, err := client.CreateEnvelope(context.Background(), appdocument.CreateEnvelopeRequest{
			DocumentID:  uuid.New(),
			DownloadURL: "https://storage.test/doc.pdf",
			Signers:     []appdocument.SignerRequest{{Name: "A", Email: "a@b.c"}},
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "document unreachable")
	})

	t.Run("rejects empty envelope ID in response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status": "sent"}`))
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		_, err := client.CreateEnvelope(context.Background(), appdocument.CreateEnvelopeRequest{
			DocumentID:  uuid.New(),
			DownloadURL: "https://storage.test/doc.pdf",
			Signers:     []appdocument.SignerRequest{{Name: "A", Email: "a@b.c"}},
		})
		require.Error(t, err)
	})
}

func TestEnvelopeClient_SendReminder(t *testing.T) {
	t.Run("posts to the remind endpoint", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "late@example.com", body["recipient_email"])
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)

		err := client.SendReminder(context.Background(), "env_123", "late@example.com")

		require.NoError(t, err)
		assert.Equal(t, "/v1/envelopes/env_123/remind", gotPath)
	})

	t.Run("validates arguments", func(t *testing.T) {
		client := newTestClient(t, "http://localhost:9999")

		require.Error(t, client.SendReminder(context.Background(), "", "a@b.c"))
		require.Error(t, client.SendReminder(context.Background(), "env_123", ""))
	})
}
