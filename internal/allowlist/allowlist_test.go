package allowlist

import (
	"testing"

	"go.uber.org/zap"
)

func TestIsAllowed(t *testing.T) {
	checker := NewChecker([]string{"Trusted.Example", "  corp.example  "}, zap.NewNop())

	tests := []struct {
		name string
		from string
		want bool
	}{
		{"exact match", "alice@trusted.example", true},
		{"case-insensitive sender", "alice@TRUSTED.EXAMPLE", true},
		{"normalized config entry", "bob@corp.example", true},
		{"display name form", "Alerts <alerts@trusted.example>", true},
		{"other domain", "alice@evil.example", false},
		{"subdomain does not match", "alice@mail.trusted.example", false},
		{"no at sign", "not-an-address", false},
		{"trailing at", "broken@", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsAllowed(tt.from); got != tt.want {
				t.Errorf("IsAllowed(%q) = %v, want %v", tt.from, got, tt.want)
			}
		})
	}
}

func TestIsAllowedEmptyList(t *testing.T) {
	checker := NewChecker(nil, zap.NewNop())
	if checker.IsAllowed("anyone@anywhere.example") {
		t.Error("empty allowlist must never match")
	}
}
