// Package provider builds the configured text-generation client.
package provider

import (
	"log/slog"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm/gemini"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm/openai"
)

// Completer is an llm.Completer that also reports the model it calls.
type Completer interface {
	llm.Completer
	Model() string
}

// New returns the client for cfg.Provider. Anything other than openai gets Gemini;
// common.Config.Validate rejects unknown providers before this is reached.
func New(cfg common.LLMConfig, logger *slog.Logger) Completer {
	switch cfg.Provider {
	case common.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	default:
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	}
}
