// Package redact маскирует чувствительные значения перед записью в лог.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен: "fo***@example.com".
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := []rune(parts[0]), parts[1]
	if len(local) > 2 {
		return string(local[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// TokenTail оставляет последние 4 символа токена: этого хватает, чтобы
// сопоставить записи лога с конкретной парой токенов.
func TokenTail(tok string) string {
	if tok == "" {
		return ""
	}

	r := []rune(tok)
	if len(r) <= 8 {
		return Token()
	}

	return "…" + string(r[len(r)-4:])
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
