package provider

import (
	"testing"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm/gemini"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm/openai"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       common.LLMConfig
		wantModel string
		check     func(Completer) bool
	}{
		{
			name:      "gemini",
			cfg:       common.LLMConfig{Provider: common.ProviderGemini, APIKey: "k", Model: "gemini-x"},
			wantModel: "gemini-x",
			check:     func(c Completer) bool { _, ok := c.(*gemini.Client); return ok },
		},
		{
			name:      "openai",
			cfg:       common.LLMConfig{Provider: common.ProviderOpenAI, APIKey: "k", Model: "gpt-x"},
			wantModel: "gpt-x",
			check:     func(c Completer) bool { _, ok := c.(*openai.Client); return ok },
		},
		{
			name:      "gemini default model",
			cfg:       common.LLMConfig{Provider: common.ProviderGemini, APIKey: "k"},
			wantModel: "gemini-1.5-flash",
			check:     func(c Completer) bool { _, ok := c.(*gemini.Client); return ok },
		},
		{
			name:      "openai default model",
			cfg:       common.LLMConfig{Provider: common.ProviderOpenAI, APIKey: "k"},
			wantModel: "gpt-4o-mini",
			check:     func(c Completer) bool { _, ok := c.(*openai.Client); return ok },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.cfg, nil)
			if !tt.check(c) {
				t.Fatalf("New(%q) = %T", tt.cfg.Provider, c)
			}
			if got := c.Model(); got != tt.wantModel {
				t.Errorf("Model() = %q, want %q", got, tt.wantModel)
			}
		})
	}
}
