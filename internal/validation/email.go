// Package validation содержит функции валидации входных данных.
package validation

import "strings"

// IsValidEmail выполняет структурную проверку адреса электронной почты.
// Проверяется только форма адреса, существование ящика не подтверждается.
func IsValidEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}

	local := email[:at]
	domain := email[at+1:]

	if len(local) > 64 {
		return false
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return false
	}

	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return false
	}

	return true
}
