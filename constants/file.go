package constants

import "strings"

// Upload intake settings for the extraction endpoint.
const (
	UploadFormField = "pdfFile"
	PDFMimeType     = "application/pdf"

	// MaxUploadBytes is the default ceiling for a single upload (10 MiB).
	MaxUploadBytes int64 = 10 << 20

	// multipartOverheadBytes is added on top of the file ceiling when capping the raw body,
	// so boundaries and headers don't push a file right at the limit over it.
	multipartOverheadBytes int64 = 1 << 20
)

// BodyLimit returns the raw request body cap for a given file ceiling.
func BodyLimit(maxFileBytes int64) int64 {
	return maxFileBytes + multipartOverheadBytes
}

// NormalizeMIME lowercases a declared content type and drops parameters (";charset=...").
func NormalizeMIME(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
