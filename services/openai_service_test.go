package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samh164/ptappv3/config"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) (*OpenAIService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: srv.URL,
		OpenAIModel:   "gpt-4",
		OpenAITimeout: 2 * time.Second,
	}
	return NewOpenAIService(cfg), srv
}

func chatOK(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}
}

func TestOpenAIService_Complete(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody chatRequest
	svc, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		chatOK("Day 1 - Push\n1. Press:")(w, r)
	})

	out, err := svc.Complete(context.Background(), "system text", "prompt text", 0.7, 3000)
	require.NoError(t, err)

	assert.Equal(t, "Day 1 - Push\n1. Press:", out)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "gpt-4", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "prompt text", gotBody.Messages[1].Content)
}

func TestOpenAIService_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"slow down","type":"requests"}}`,
			wantErr: ErrRateLimited,
		},
		{
			name:    "quota exhausted",
			status:  http.StatusTooManyRequests,
			body:    `{"error":{"message":"billing","code":"insufficient_quota"}}`,
			wantErr: ErrQuotaExceeded,
		},
		{
			name:    "bad key",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"invalid api key"}}`,
			wantErr: ErrAuthFailed,
		},
		{
			name:    "forbidden",
			status:  http.StatusForbidden,
			body:    `{"error":{"message":"no access"}}`,
			wantErr: ErrAuthFailed,
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantErr: ErrServerError,
		},
		{
			name:    "gateway timeout",
			status:  http.StatusGatewayTimeout,
			body:    ``,
			wantErr: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := svc.Complete(context.Background(), "s", "p", 0.7, 100)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOpenAIService_MalformedResponse(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		svc, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json at all"))
		})
		_, err := svc.Complete(context.Background(), "s", "p", 0.7, 100)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("empty choices", func(t *testing.T) {
		svc, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		})
		_, err := svc.Complete(context.Background(), "s", "p", 0.7, 100)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})

	t.Run("blank content", func(t *testing.T) {
		svc, _ := newTestOpenAI(t, chatOK("   "))
		_, err := svc.Complete(context.Background(), "s", "p", 0.7, 100)
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestOpenAIService_Timeout(t *testing.T) {
	svc, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.Complete(ctx, "s", "p", 0.7, 100)
	assert.ErrorIs(t, err, ErrTimeout)
}
