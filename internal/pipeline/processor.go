package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/extract"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/intake"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm"
)

// Client-facing messages, one per failure point.
const (
	msgNoText        = "Não foi possível extrair texto do PDF fornecido ou o PDF está vazio."
	msgPDFError      = "Erro ao processar o arquivo PDF."
	msgServicePrefix = "Erro ao chamar a API de IA: "
	msgNotJSON       = "A resposta do modelo de IA não é um JSON válido."
	msgSchema        = "A resposta do modelo de IA não corresponde ao formato esperado."
)

// Config holds behavior flags for the processor.
type Config struct {
	StrictSchema bool          // validate the completion against the invoice schema
	CallTimeout  time.Duration // bound on the model call; 0 = none beyond the client's own
}

// Result is the outcome of one successful run.
type Result struct {
	Invoice llm.ExtractedInvoice
	Raw     []byte // unwrapped completion JSON
	Pages   int
	Chars   int
}

// Processor coordinates text extraction then LLM parse, strictly in sequence.
// It holds no per-request state and is safe for concurrent use.
type Processor struct {
	logger    *slog.Logger
	cfg       Config
	extractor extract.TextExtractor
	completer llm.Completer
}

func NewProcessor(logger *slog.Logger, cfg Config, extractor extract.TextExtractor, completer llm.Completer) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger, cfg: cfg, extractor: extractor, completer: completer}
}

// Process runs extract -> prompt -> complete -> parse for one upload.
// Every returned error is a *common.AppError.
func (p *Processor) Process(ctx context.Context, up intake.Upload) (Result, error) {
	logger := common.LoggerFromContext(ctx, p.logger)

	// 1) text extraction
	ext, err := p.extractor.Extract(ctx, up.Data)
	if err != nil {
		if errors.Is(err, extract.ErrNoText) {
			return Result{}, common.InputError(msgNoText, err)
		}
		return Result{}, common.ExtractionError(msgPDFError, err)
	}
	logger.Debug("pipeline.extract.ok",
		"pages", ext.Pages,
		"chars", len(ext.Text),
		"signal", ext.Signal,
		"preview", preview(ext.Text, 500),
	)

	// 2) prompt + single model call
	prompt := llm.BuildPrompt(ext.Text)
	callCtx := ctx
	if p.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.cfg.CallTimeout)
		defer cancel()
	}
	completion, err := p.completer.Complete(callCtx, prompt)
	if err != nil {
		return Result{}, common.ServiceError(serviceMessage(err), err)
	}
	logger.Debug("pipeline.completion", "raw", completion)

	// 3) unwrap + parse
	res := Result{Pages: ext.Pages, Chars: len(ext.Text)}
	raw, err := llm.UnwrapCompletion(completion)
	if err != nil {
		logger.Warn("pipeline.parse.not_json", "completion", preview(completion, 500))
		return Result{}, common.ParseError(msgNotJSON, err)
	}
	res.Raw = raw

	inv, err := llm.DecodeInvoice(raw, p.cfg.StrictSchema)
	if err != nil {
		logger.Warn("pipeline.parse.schema_mismatch", "error", err, "json", preview(string(raw), 500))
		return Result{}, common.ParseError(msgSchema, err)
	}
	res.Invoice = inv
	return res, nil
}

func serviceMessage(err error) string {
	var pe *llm.ProviderError
	if errors.As(err, &pe) && pe.Reason != "" {
		return msgServicePrefix + pe.Reason
	}
	return msgServicePrefix + common.SanitizeForClient(err)
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// don't cut a multi-byte rune in half
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
