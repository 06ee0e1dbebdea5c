// internal/middleware/token.go
package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// AuthorizationHeaders are checked in order; the first non-empty value wins.
// The extra names cover reverse proxies that rename or strip Authorization.
var AuthorizationHeaders = []string{
	"Authorization",
	"X-Forwarded-Authorization",
	"X-Original-Authorization",
	"Redirect-Http-Authorization",
}

var bearerPattern = regexp.MustCompile(`(?i)^bearer\s+(\S+)$`)

// ExtractBearerToken returns the token from "Bearer <token>" (any scheme case)
// or from a bare value with exactly two dots. Anything else yields "".
func ExtractBearerToken(h http.Header) string {
	var value string
	for _, name := range AuthorizationHeaders {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			value = v
			break
		}
	}
	if value == "" {
		return ""
	}

	if m := bearerPattern.FindStringSubmatch(value); m != nil {
		return m[1]
	}

	if !strings.ContainsAny(value, " \t") && strings.Count(value, ".") == 2 {
		return value
	}
	return ""
}
