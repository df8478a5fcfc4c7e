package helpers

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"authorization bearer", map[string]string{"Authorization": "Bearer abc123"}, "abc123"},
		{"case insensitive scheme", map[string]string{"Authorization": "bearer abc123"}, "abc123"},
		{"federation header", map[string]string{FederationHeader: "fed-tok"}, "fed-tok"},
		{"federation header with bearer prefix", map[string]string{FederationHeader: "Bearer fed-tok"}, "fed-tok"},
		{"authorization wins over federation", map[string]string{
			"Authorization":  "Bearer primary",
			FederationHeader: "secondary",
		}, "primary"},
		{"basic auth falls through to federation", map[string]string{
			"Authorization":  "Basic dXNlcjpwYXNz",
			FederationHeader: "fed-tok",
		}, "fed-tok"},
		{"no headers", nil, ""},
		{"empty bearer", map[string]string{"Authorization": "Bearer   "}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/identities", nil)
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, BearerToken(r))
		})
	}
}
