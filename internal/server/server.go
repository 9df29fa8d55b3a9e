package server

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/export"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/intake"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/pipeline"
)

// Routes.
const (
	PathExtract = "/api/extract-invoice-details"
	PathExport  = "/api/export-invoice-xlsx"
	PathHealth  = "/healthz"
)

const (
	msgInternal    = "Erro interno do servidor ao processar a fatura."
	msgNotFound    = "Rota não encontrada."
	msgRateLimited = "Muitas requisições. Tente novamente em instantes."
)

// Options controls the outer surface of the HTTP server.
type Options struct {
	Production bool
	UI         fs.FS // static assets; nil disables the UI
	RateLimit  common.RateLimitConfig
}

// Server wires the HTTP surface to the extraction pipeline.
type Server struct {
	logger  *slog.Logger
	opts    Options
	intake  *intake.Intake
	proc    *pipeline.Processor
	exports *export.Service
}

func New(logger *slog.Logger, opts Options, in *intake.Intake, proc *pipeline.Processor, exports *export.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger, opts: opts, intake: in, proc: proc, exports: exports}
}

// Handler builds the gin engine. Call once; the result is safe for concurrent use.
func (s *Server) Handler() http.Handler {
	r := gin.New()

	r.Use(
		s.recovery(),
		s.requestID(),
		s.accessLog(),
		cors(),
	)

	r.GET(PathHealth, s.health)

	api := r.Group("/api")
	if s.opts.RateLimit.RPS > 0 {
		api.Use(s.rateLimit(s.opts.RateLimit))
	}
	api.POST("/extract-invoice-details", s.extractInvoice)
	api.POST("/export-invoice-xlsx", s.exportInvoice)

	r.NoRoute(s.static())
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail writes the {"error": ...} body for err and records the outcome for the access log.
func (s *Server) fail(c *gin.Context, logger *slog.Logger, err error) {
	status := common.HTTPStatus(err)
	outcome := common.Outcome(err)
	c.Set(ctxKeyOutcome, string(outcome))

	if status >= http.StatusInternalServerError {
		logger.Error("request.failed", "outcome", outcome, "error", err)
	} else {
		logger.Warn("request.rejected", "outcome", outcome, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": common.ClientMessage(err)})
}
