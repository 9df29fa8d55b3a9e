package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm"
)

const providerName = "gemini"

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	Temperature float32 `json:"temperature"`
}

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
	Error          *apiError       `json:"error,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// finish reasons that still carry a usable answer
var okFinish = map[string]bool{"": true, "STOP": true, "FINISH_REASON_UNSPECIFIED": true}

// Complete implements llm.Completer with a single generateContent call. No retries.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	c.logger.Info("llm.gemini.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(prompt),
	)

	body := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: prompt}},
		}},
		GenerationConfig: &generationConfig{Temperature: c.cfg.Temperature},
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	headers := map[string]string{"x-goog-api-key": c.cfg.APIKey}

	raw, status, httpErr := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)

	var gr generateResponse
	decodeErr := json.Unmarshal(raw, &gr)

	if httpErr != nil {
		pe := &llm.ProviderError{Provider: providerName, Status: status, Err: httpErr}
		if decodeErr == nil && gr.Error != nil {
			pe.Reason = gr.Error.Status
			pe.Err = fmt.Errorf("gemini error [%d]: %s", gr.Error.Code, gr.Error.Message)
		}
		c.logger.Error("llm.gemini.http_error",
			"req_id", rid, "status", status, "error", pe,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", pe
	}
	if decodeErr != nil {
		c.logger.Error("llm.gemini.decode_error",
			"req_id", rid, "error", decodeErr, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &llm.ProviderError{Provider: providerName, Status: status, Err: fmt.Errorf("decode gemini response: %w", decodeErr)}
	}
	if gr.Error != nil {
		return "", &llm.ProviderError{
			Provider: providerName,
			Status:   status,
			Reason:   gr.Error.Status,
			Err:      fmt.Errorf("gemini error [%d]: %s", gr.Error.Code, gr.Error.Message),
		}
	}
	if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
		c.logger.Warn("llm.gemini.prompt_blocked",
			"req_id", rid, "block_reason", gr.PromptFeedback.BlockReason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &llm.ProviderError{
			Provider: providerName,
			Status:   status,
			Reason:   gr.PromptFeedback.BlockReason,
			Err:      errors.New("prompt blocked"),
		}
	}
	if len(gr.Candidates) == 0 {
		c.logger.Error("llm.gemini.no_candidates",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &llm.ProviderError{Provider: providerName, Status: status, Err: errors.New("no candidates in gemini response")}
	}

	cand := gr.Candidates[0]
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		b.WriteString(p.Text)
	}
	text := b.String()

	if !okFinish[cand.FinishReason] && strings.TrimSpace(text) == "" {
		c.logger.Warn("llm.gemini.finished_without_text",
			"req_id", rid, "finish_reason", cand.FinishReason,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &llm.ProviderError{
			Provider: providerName,
			Status:   status,
			Reason:   cand.FinishReason,
			Err:      errors.New("candidate finished without text"),
		}
	}

	attrs := []any{
		"req_id", rid,
		"finish_reason", cand.FinishReason,
		"completion_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if gr.UsageMetadata != nil {
		attrs = append(attrs,
			"prompt_tokens", gr.UsageMetadata.PromptTokenCount,
			"completion_tokens", gr.UsageMetadata.CandidatesTokenCount,
		)
	}
	c.logger.Info("llm.gemini.ok", attrs...)
	return text, nil
}
