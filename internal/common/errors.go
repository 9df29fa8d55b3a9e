package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jvictorpdl/MVP-Extracao-de-Dados-Nao-Estruturados/constants"
)

// AppError represents application-specific errors.
// Message is safe to show to the client; Cause is for logs only.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error kinds. Every AppError built by the constructors below wraps exactly one of them.
var (
	ErrInputValidation = errors.New("invalid input")
	ErrExtraction      = errors.New("text extraction failed")
	ErrService         = errors.New("generation service failed")
	ErrParse           = errors.New("completion parse failed")
	ErrConfig          = errors.New("invalid configuration")
)

// Error codes carried in AppError.Code.
const (
	CodeInput      = "INPUT_ERROR"
	CodeExtraction = "EXTRACTION_ERROR"
	CodeService    = "SERVICE_ERROR"
	CodeParse      = "PARSE_ERROR"
	CodeConfig     = "CONFIG_ERROR"
)

// NewAppError builds an AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// kindError joins a kind sentinel with an optional underlying cause so that both
// errors.Is(err, kind) and errors.Is(err, cause) hold.
func kindError(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

func InputError(message string, cause error) *AppError {
	return NewAppError(CodeInput, message, kindError(ErrInputValidation, cause))
}

func ExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtraction, message, kindError(ErrExtraction, cause))
}

func ServiceError(message string, cause error) *AppError {
	return NewAppError(CodeService, message, kindError(ErrService, cause))
}

func ParseError(message string, cause error) *AppError {
	return NewAppError(CodeParse, message, kindError(ErrParse, cause))
}

func ConfigError(message string) *AppError {
	return NewAppError(CodeConfig, message, ErrConfig)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps an error to the status class returned by the API:
// input problems are the client's fault, everything downstream is ours.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInputValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Outcome maps an error to the log label of the request's terminal state.
func Outcome(err error) constants.Outcome {
	switch {
	case err == nil:
		return constants.OutcomeOK
	case errors.Is(err, ErrInputValidation):
		return constants.OutcomeInputError
	case errors.Is(err, ErrExtraction):
		return constants.OutcomeExtractionError
	case errors.Is(err, ErrService):
		return constants.OutcomeServiceError
	case errors.Is(err, ErrParse):
		return constants.OutcomeParseError
	default:
		return constants.OutcomeServiceError
	}
}

// ClientMessage returns the message to put in the {"error": ...} body.
func ClientMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "Erro interno do servidor ao processar a fatura."
}
