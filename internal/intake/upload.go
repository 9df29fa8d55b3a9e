package intake

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/constants"
	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/internal/common"
)

// Upload is one submitted file, buffered in memory for the lifetime of a request.
type Upload struct {
	Data     []byte
	MIMEType string
	Size     int64
	Filename string
}

var (
	ErrNoFile      = errors.New("no file uploaded")
	ErrUnsupported = errors.New("unsupported file type")
	ErrTooLarge    = errors.New("file too large")
	ErrEmpty       = errors.New("empty file")
)

// Client-facing messages.
const (
	msgNoFile      = "Nenhum arquivo PDF enviado."
	msgUnsupported = "Tipo de arquivo não suportado. Por favor, envie um PDF."
	msgUnreadable  = "Não foi possível ler o arquivo enviado."
	msgEmpty       = "O arquivo PDF enviado está vazio."
)

func msgTooLarge(limit int64) string {
	if limit >= 1<<20 {
		return fmt.Sprintf("Arquivo excede o limite de %dMB.", limit>>20)
	}
	return fmt.Sprintf("Arquivo excede o limite de %dKB.", max(limit>>10, 1))
}

// Intake reads the single PDF upload out of a multipart request.
type Intake struct {
	maxBytes int64
	logger   *slog.Logger
}

func New(maxBytes int64, logger *slog.Logger) *Intake {
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Intake{maxBytes: maxBytes, logger: logger}
}

// MaxBytes returns the configured file ceiling.
func (in *Intake) MaxBytes() int64 { return in.maxBytes }

// FromRequest caps the body, parses the multipart form fully in memory and returns the
// validated upload. All errors are input validation errors (HTTP 400).
func (in *Intake) FromRequest(w http.ResponseWriter, r *http.Request) (Upload, error) {
	limit := constants.BodyLimit(in.maxBytes)
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	// maxMemory == body limit keeps every part in memory; nothing is spooled to disk.
	if err := r.ParseMultipartForm(limit); err != nil {
		if isTooLarge(err) {
			return Upload{}, common.InputError(msgTooLarge(in.maxBytes), ErrTooLarge)
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return Upload{}, common.InputError(msgNoFile, ErrNoFile)
		}
		return Upload{}, common.InputError(msgUnreadable, err)
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			in.logger.Warn("intake.multipart_cleanup_error", "error", err)
		}
	}()

	fhs := r.MultipartForm.File[constants.UploadFormField]
	if len(fhs) == 0 {
		return Upload{}, common.InputError(msgNoFile, ErrNoFile)
	}
	return in.FromFileHeader(fhs[0])
}

// FromFileHeader validates declared type and size before reading any bytes.
func (in *Intake) FromFileHeader(fh *multipart.FileHeader) (Upload, error) {
	if fh == nil {
		return Upload{}, common.InputError(msgNoFile, ErrNoFile)
	}
	up := Upload{
		MIMEType: constants.NormalizeMIME(fh.Header.Get("Content-Type")),
		Size:     fh.Size,
		Filename: filepath.Base(fh.Filename),
	}
	if err := in.validateDeclared(up); err != nil {
		return Upload{}, err
	}

	f, err := fh.Open()
	if err != nil {
		return Upload{}, common.InputError(msgUnreadable, err)
	}
	defer func(f multipart.File) {
		if cerr := f.Close(); cerr != nil {
			in.logger.Warn("intake.file_close_error", "error", cerr)
		}
	}(f)

	// read one byte past the ceiling so a lying header can't sneak a bigger file through
	data, err := io.ReadAll(io.LimitReader(f, in.maxBytes+1))
	if err != nil {
		return Upload{}, common.InputError(msgUnreadable, err)
	}
	up.Data = data
	up.Size = int64(len(data))
	if err := in.Validate(up); err != nil {
		return Upload{}, err
	}

	if ext := constants.NormalizeExt(filepath.Ext(up.Filename)); ext != "pdf" {
		in.logger.Debug("intake.unexpected_extension", "filename", up.Filename, "ext", ext)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		in.logger.Debug("intake.missing_pdf_header", "filename", up.Filename)
	}
	return up, nil
}

// Validate enforces the Upload invariant: PDF MIME type, non-empty data and size within the ceiling.
func (in *Intake) Validate(up Upload) error {
	return in.check(up, true)
}

// validateDeclared checks what the multipart header claims, before any bytes are read.
func (in *Intake) validateDeclared(up Upload) error {
	return in.check(up, false)
}

func (in *Intake) check(up Upload, withData bool) error {
	v := common.NewValidator().
		Field("mime_type", up.MIMEType, common.OneOf(constants.PDFMimeType)).
		Field("size", up.Size, common.MaxBytes(in.maxBytes))
	if withData {
		v.Field("data", up.Data, common.Required)
	}
	first, ok := v.First()
	if !ok {
		return nil
	}
	switch first.Field {
	case "mime_type":
		return common.InputError(msgUnsupported, fmt.Errorf("%w: %s", ErrUnsupported, v.ErrorMessage()))
	case "data":
		return common.InputError(msgEmpty, fmt.Errorf("%w: %s", ErrEmpty, v.ErrorMessage()))
	default:
		return common.InputError(msgTooLarge(in.maxBytes), fmt.Errorf("%w: %s", ErrTooLarge, v.ErrorMessage()))
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
