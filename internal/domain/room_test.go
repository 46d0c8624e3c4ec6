package domain

import (
	"strings"
	"testing"
)

func TestNewRoomKeyFormat(t *testing.T) {
	for i := 0; i < 500; i++ {
		key, err := NewRoomKey()
		if err != nil {
			t.Fatalf("NewRoomKey: %v", err)
		}
		if !ValidKey(key) {
			t.Fatalf("generated key %q does not match its own format", key)
		}
		if strings.ContainsAny(key, "IO01") {
			t.Fatalf("key %q contains an ambiguous symbol", key)
		}
	}
}

func TestValidKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"ABC-234", true},
		{"ZZZ-999", true},
		{"HJK-278", true},
		{"", false},
		{"abc-234", false},
		{"ABC234", false},
		{"ABC-23", false},
		{"AB-234", false},
		{"ABCD-234", false},
		{"ABC-2345", false},
		{"AIC-234", false}, // I excluded
		{"AOC-234", false}, // O excluded
		{"ABC-204", false}, // 0 excluded
		{"ABC-214", false}, // 1 excluded
		{"ABC 234", false},
		{" ABC-234", false},
		{"ABC-234 ", false},
	}

	for _, tt := range tests {
		if got := ValidKey(tt.key); got != tt.valid {
			t.Errorf("ValidKey(%q) = %v, want %v", tt.key, got, tt.valid)
		}
	}
}

func TestNewHostToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewHostToken()
		if err != nil {
			t.Fatalf("NewHostToken: %v", err)
		}
		// 32 bytes base64url without padding
		if len(token) != 43 {
			t.Fatalf("token length %d, want 43", len(token))
		}
		if strings.ContainsAny(token, "+/=") {
			t.Fatalf("token %q is not URL-safe", token)
		}
		if seen[token] {
			t.Fatal("duplicate token generated")
		}
		seen[token] = true
	}
}
