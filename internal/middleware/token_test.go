package middleware

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"bearer scheme", map[string]string{"Authorization": "Bearer X.Y.Z"}, "X.Y.Z"},
		{"lowercase scheme", map[string]string{"Authorization": "bearer X.Y.Z"}, "X.Y.Z"},
		{"uppercase scheme", map[string]string{"Authorization": "BEARER X.Y.Z"}, "X.Y.Z"},
		{"extra spaces", map[string]string{"Authorization": "  Bearer    X.Y.Z  "}, "X.Y.Z"},
		{"bare jwt", map[string]string{"Authorization": "X.Y.Z"}, "X.Y.Z"},
		{"bare with one dot", map[string]string{"Authorization": "X.Y"}, ""},
		{"bare without dots", map[string]string{"Authorization": "XYZ"}, ""},
		{"bare with three dots", map[string]string{"Authorization": "W.X.Y.Z"}, ""},
		{"other scheme", map[string]string{"Authorization": "Basic dXNlcjpwYXNz"}, ""},
		{"scheme without token", map[string]string{"Authorization": "Bearer"}, ""},
		{"scheme not at start", map[string]string{"Authorization": "Token Bearer X.Y.Z"}, ""},
		{"no header", map[string]string{}, ""},
		{"forwarded header", map[string]string{"X-Forwarded-Authorization": "Bearer A.B.C"}, "A.B.C"},
		{"redirect header", map[string]string{"Redirect-Http-Authorization": "A.B.C"}, "A.B.C"},
		{
			"authorization wins over proxy headers",
			map[string]string{"Authorization": "Bearer A.B.C", "X-Original-Authorization": "Bearer D.E.F"},
			"A.B.C",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, ExtractBearerToken(h))
		})
	}
}
