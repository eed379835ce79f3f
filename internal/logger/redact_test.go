package logger

import (
	"strings"
	"testing"
)

func TestRedactToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty", "", ""},
		{"short token fully masked", "abc", "****"},
		{"exact prefix length fully masked", "abcd", "****"},
		{"long token keeps prefix", "Bearer-secret-value", "Bear****"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := RedactToken(tt.token); got != tt.want {
				t.Errorf("RedactToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestRedactTokenNeverLeaksSuffix(t *testing.T) {
	t.Parallel()

	token := "supersecretbypasstoken"
	got := RedactToken(token)
	if strings.Contains(got, token[4:]) {
		t.Errorf("RedactToken leaked token suffix: %q", got)
	}
}

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want string
	}{
		{"empty", "", ""},
		{"plain", "/ethereum", "/ethereum"},
		{"strips control chars", "/eth\x00ereum", "/ethereum"},
		{"truncates long paths", "/" + strings.Repeat("a", MaxPathLength), "/" + strings.Repeat("a", MaxPathLength-1) + "..."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizePath(tt.path); got != tt.want {
				t.Errorf("SanitizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
