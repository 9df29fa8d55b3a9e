package openai

import (
	"context"
	"errors"
	"net/http"
	"time"

	sdk "github.com/openai/openai-go"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm"
)

const providerName = "openai"

// Complete implements llm.Completer using a single text-only chat completion.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	c.logger.Info("llm.openai.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(prompt),
	)

	resp, err := c.sdk.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(c.cfg.Model),
		Temperature: sdk.Float(float64(c.cfg.Temperature)),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(prompt),
		},
	})
	if err != nil {
		pe := &llm.ProviderError{Provider: providerName, Err: err}
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			pe.Status = apiErr.StatusCode
			pe.Reason = http.StatusText(apiErr.StatusCode)
		}
		c.logger.Error("llm.openai.http_error",
			"req_id", rid, "status", pe.Status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", pe
	}

	if len(resp.Choices) == 0 {
		c.logger.Error("llm.openai.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", &llm.ProviderError{Provider: providerName, Status: http.StatusOK, Err: errors.New("no choices in openai response")}
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" && choice.Message.Content == "" {
		return "", &llm.ProviderError{
			Provider: providerName,
			Status:   http.StatusOK,
			Reason:   choice.FinishReason,
			Err:      errors.New("completion filtered"),
		}
	}

	c.logger.Info("llm.openai.ok",
		"req_id", rid,
		"finish_reason", choice.FinishReason,
		"completion_len", len(choice.Message.Content),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return choice.Message.Content, nil
}
