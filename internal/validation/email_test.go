package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEmail(t *testing.T) {
	cases := []struct {
		name    string
		address string
		want    bool
	}{
		{"simple", "ana@example.com", true},
		{"subdomain", "ana@mail.example.com", true},
		{"plus tag", "ana+tag@example.com", true},
		{"uppercase", "ANA@EXAMPLE.COM", true},
		{"empty", "", false},
		{"no at", "ana.example.com", false},
		{"no local part", "@example.com", false},
		{"no domain", "ana@", false},
		{"domain without dot", "ana@localhost", false},
		{"leading dot in domain", "ana@.example.com", false},
		{"trailing dot in domain", "ana@example.com.", false},
		{"display name", "Ana <ana@example.com>", false},
		{"spaces", "ana @example.com", false},
		{"too long", strings.Repeat("a", 250) + "@example.com", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidEmail(tc.address), "address=%q", tc.address)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
	assert.Equal(t, "", NormalizeEmail("   "))
}
