package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "gemini-test",
		Timeout: 5 * time.Second,
	}, nil)
}

func TestClient_Complete(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": "`+"```json\\n"+`"}, {"text": "{\"numero_fatura\": \"1\"}\n`+"```"+`"}]},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5}
		}`)
	})

	out, err := c.Complete(context.Background(), "olá")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if want := "```json\n{\"numero_fatura\": \"1\"}\n```"; out != want {
		t.Errorf("completion = %q, want %q", out, want)
	}
	if gotPath != "/models/gemini-test:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 1 || gotReq.Contents[0].Parts[0].Text != "olá" {
		t.Errorf("request contents = %+v", gotReq.Contents)
	}
}

func TestClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantReason string
	}{
		{
			name:       "api error",
			status:     http.StatusForbidden,
			body:       `{"error": {"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"}}`,
			wantStatus: http.StatusForbidden,
			wantReason: "PERMISSION_DENIED",
		},
		{
			name:       "non-json error body",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "prompt blocked",
			status:     http.StatusOK,
			body:       `{"promptFeedback": {"blockReason": "SAFETY"}}`,
			wantStatus: http.StatusOK,
			wantReason: "SAFETY",
		},
		{
			name:       "no candidates",
			status:     http.StatusOK,
			body:       `{"candidates": []}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "finished without text",
			status:     http.StatusOK,
			body:       `{"candidates": [{"content": {"parts": []}, "finishReason": "MAX_TOKENS"}]}`,
			wantStatus: http.StatusOK,
			wantReason: "MAX_TOKENS",
		},
		{
			name:       "undecodable 200",
			status:     http.StatusOK,
			body:       `not json`,
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Complete(context.Background(), "p")
			var pe *llm.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v (%T), want *llm.ProviderError", err, err)
			}
			if pe.Provider != "gemini" {
				t.Errorf("provider = %q", pe.Provider)
			}
			if pe.Status != tt.wantStatus {
				t.Errorf("status = %d, want %d", pe.Status, tt.wantStatus)
			}
			if pe.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", pe.Reason, tt.wantReason)
			}
		})
	}
}

func TestClient_Complete_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// runs before the server's Close, so the handler never outlives the test
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.DeadlineExceeded) && !strings.Contains(err.Error(), "deadline") {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
