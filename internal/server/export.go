package server

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/constants"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/llm"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxExportBody   = 1 << 20
	msgBadInvoice   = "Dados da fatura inválidos."
	msgExportFailed = "Erro ao gerar a planilha."
)

var errExport = errors.New("xlsx export failed")

var reUnsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// exportInvoice renders the invoice JSON the client already holds as an XLSX download.
func (s *Server) exportInvoice(c *gin.Context) {
	logger := common.LoggerFromContext(c.Request.Context(), s.logger)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxExportBody)

	var inv llm.ExtractedInvoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		s.fail(c, logger, common.InputError(msgBadInvoice, err))
		return
	}
	if inv.Items == nil {
		inv.Items = []llm.LineItem{}
	}

	data, err := s.exports.InvoiceXLSX(inv)
	if err != nil {
		s.fail(c, logger, common.NewAppError(common.CodeService, msgExportFailed, errors.Join(errExport, err)))
		return
	}

	c.Set(ctxKeyOutcome, string(constants.OutcomeOK))
	c.Header("Content-Disposition", `attachment; filename="`+exportFilename(inv)+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

func exportFilename(inv llm.ExtractedInvoice) string {
	if inv.InvoiceNumber != nil {
		if n := reUnsafeName.ReplaceAllString(*inv.InvoiceNumber, "_"); n != "" && n != "_" {
			return "fatura-" + n + ".xlsx"
		}
	}
	return "fatura.xlsx"
}
