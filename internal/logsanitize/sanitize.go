// Package logsanitize provides helpers for preparing values before logging.
package logsanitize

import "strings"

// Sanitize removes control characters from log field values. Cursor ids and
// COMRESULT texts come from the remote server and are logged verbatim otherwise.
//
// Stripped ranges:
//   - C0 controls 0x00-0x1F (except horizontal tab 0x09)
//   - DEL 0x7F and C1 controls 0x80-0x9F
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' {
			return '_'
		}
		if r >= 0x7f && r <= 0x9f {
			return '_'
		}
		return r
	}, s)
}

// Mask hides a secret for logging, keeping at most the first four characters
// of values long enough that the prefix does not reveal the secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) < 12 {
		return "****"
	}
	return secret[:4] + "****"
}
