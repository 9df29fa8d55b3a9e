package common

import (
	"log/slog"
	"strings"
)

// clientSafePatterns maps error patterns to client-safe messages
var clientSafePatterns = []struct {
	pattern string
	message string
}{
	{"rate limit", "limite de requisições excedido"},
	{"resource_exhausted", "cota excedida"},
	{"quota", "cota excedida"},
	{"deadline exceeded", "tempo limite excedido"},
	{"timeout", "tempo limite excedido"},
	{"context canceled", "requisição cancelada"},
	{"api key", "falha de autenticação com o provedor"},
	{"permission_denied", "acesso negado pelo provedor"},
	{"unauthenticated", "falha de autenticação com o provedor"},
	{"unauthorized", "falha de autenticação com o provedor"},
	{"forbidden", "acesso negado pelo provedor"},
	{"not found", "modelo não encontrado"},
}

// SanitizeForClient converts internal errors to client-safe messages.
// It logs the full error server-side and returns a sanitized version.
func SanitizeForClient(err error) string {
	if err == nil {
		return ""
	}

	errLower := strings.ToLower(err.Error())

	for _, p := range clientSafePatterns {
		if strings.Contains(errLower, p.pattern) {
			slog.Debug("sanitizing error for client",
				"original", err.Error(),
				"sanitized", p.message,
			)
			return p.message
		}
	}

	slog.Error("provider error (sanitized for client)", "error", err)
	return "provedor temporariamente indisponível"
}
