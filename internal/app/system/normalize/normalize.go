// Package normalize trims and canonicalizes user-entered values before they
// are stored or compared.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// QueryParam trims a free-text search or identity parameter. Case is preserved.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Keyword lowercases and trims an enumerated parameter such as a status,
// tab or range name.
func Keyword(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
