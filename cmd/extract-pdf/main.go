package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/constants"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/extract"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/intake"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm/provider"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/pipeline"
)

// extract-pdf runs the extraction pipeline on a local file, for trying prompts and models
// without the web UI. Logs go to stderr, the result to stdout.
//
//	extract-pdf <file.pdf>        full pipeline, prints the invoice JSON
//	extract-pdf -text <file.pdf>  text layer only
func main() {
	if err := common.LoadEnvFile(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := common.LoadConfig()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level}))
	slog.SetDefault(logger)

	textOnly := false
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "-text" {
		textOnly = true
		args = args[1:]
	}
	if len(args) != 1 {
		logger.Error("usage", "cmd", "extract-pdf [-text] <file.pdf>")
		os.Exit(2)
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}
	up := intake.Upload{
		Data:     data,
		MIMEType: constants.PDFMimeType,
		Size:     int64(len(data)),
		Filename: filepath.Base(path),
	}
	if err := intake.New(cfg.Upload.MaxBytes, logger).Validate(up); err != nil {
		logger.Error("rejected", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout+time.Minute)
	defer cancel()

	extractor := extract.NewPDFExtractor(extract.Config{MaxPages: cfg.Extract.MaxPages}, logger)

	if textOnly {
		res, err := extractor.Extract(ctx, up.Data)
		if err != nil {
			logger.Error("text extraction failed", "error", err)
			os.Exit(1)
		}
		logger.Info("text extraction OK",
			"pages", res.Pages,
			"bytes", len(res.Text),
			"signal", res.Signal,
			"duration_ms", res.Duration.Milliseconds(),
		)
		fmt.Println(res.Text)
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	completer := provider.New(cfg.LLM, logger)
	logger.Info("pipeline.run.start", "path", path, "provider", cfg.LLM.Provider, "model", completer.Model())

	proc := pipeline.NewProcessor(logger, pipeline.Config{
		StrictSchema: cfg.LLM.StrictSchema,
		CallTimeout:  cfg.LLM.Timeout,
	}, extractor, completer)

	start := time.Now()
	res, err := proc.Process(ctx, up)
	if err != nil {
		logger.Error("pipeline.run.error",
			"outcome", common.Outcome(err),
			"message", common.ClientMessage(err),
			"error", err,
		)
		os.Exit(1)
	}
	logger.Info("pipeline.run.ok", "pages", res.Pages, "elapsed_ms", time.Since(start).Milliseconds())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Invoice); err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
}
