package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/constants"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
)

// extractInvoice handles one multipart PDF upload end to end.
// Each request owns its buffers; nothing outlives the response.
func (s *Server) extractInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	logger := common.LoggerFromContext(ctx, s.logger)

	up, err := s.intake.FromRequest(c.Writer, c.Request)
	if err != nil {
		s.fail(c, logger, err)
		return
	}
	logger.Info("extract.upload", "filename", up.Filename, "size_bytes", up.Size)

	res, err := s.proc.Process(ctx, up)
	if err != nil {
		s.fail(c, logger, err)
		return
	}

	c.Set(ctxKeyOutcome, string(constants.OutcomeOK))
	logger.Info("extract.ok", "pages", res.Pages, "chars", res.Chars, "items", len(res.Invoice.Items))
	c.JSON(http.StatusOK, res.Invoice)
}
