package signature

import (
	"testing"

	"github.com/kayf-project/retriever/internal/core/domain"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"leading and trailing", "  hello world \n", "hello world"},
		{"internal runs", "hello\t\t world\n\nagain", "hello world again"},
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
		{"unicode intact", "café  au\tlait", "café au lait"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Canonicalize(tt.in); got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompute_StrictIgnoresProvider(t *testing.T) {
	a := Compute(domain.ScopeStrict, "provider-a", "shared content")
	b := Compute(domain.ScopeStrict, "provider-b", "shared content")
	if a != b {
		t.Errorf("strict scope signatures differ across providers: %s vs %s", a, b)
	}
}

func TestCompute_ProviderScopeSeparates(t *testing.T) {
	a := Compute(domain.ScopeProvider, "provider-a", "shared content")
	b := Compute(domain.ScopeProvider, "provider-b", "shared content")
	if a == b {
		t.Error("provider scope signatures collide across providers")
	}
}

func TestCompute_ScopesNeverCollide(t *testing.T) {
	strict := Compute(domain.ScopeStrict, "p", "content")
	scoped := Compute(domain.ScopeProvider, "p", "content")
	if strict == scoped {
		t.Error("strict and provider scope signatures collide for identical input")
	}
}

func TestCompute_ContentSensitive(t *testing.T) {
	a := Compute(domain.ScopeStrict, "", "content one")
	b := Compute(domain.ScopeStrict, "", "content two")
	if a == b {
		t.Error("different content produced identical signatures")
	}
}

func TestCompute_CanonicalizedEquality(t *testing.T) {
	a := Compute(domain.ScopeStrict, "", Canonicalize("hello   world"))
	b := Compute(domain.ScopeStrict, "", Canonicalize("\thello world\n"))
	if a != b {
		t.Error("whitespace variants of the same text produced different signatures")
	}
}
