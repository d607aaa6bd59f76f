package anyllm

import (
	"strings"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Error("expected error for empty provider")
	}
	if _, err := New("openai", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("carrier-pigeon", "v1"); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestBuildParams(t *testing.T) {
	p := buildParams("gpt-4o-mini", "a small feline", "fr-CA")

	if p.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", p.Model)
	}
	if len(p.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(p.Messages))
	}
	if p.Messages[0].Role != anyllmlib.RoleSystem {
		t.Errorf("first role = %q, want system", p.Messages[0].Role)
	}
	if !strings.Contains(p.Messages[0].ContentString(), "French") {
		t.Errorf("system prompt does not name the language: %q", p.Messages[0].ContentString())
	}
	if p.Messages[1].Role != anyllmlib.RoleUser || p.Messages[1].ContentString() != "a small feline" {
		t.Errorf("user message = %+v", p.Messages[1])
	}
	if p.Temperature == nil || *p.Temperature != 0 {
		t.Error("temperature should be pinned to 0")
	}
}

func TestCleanReply(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  un petit félin \n", "un petit félin"},
		{`"un chat"`, "un chat"},
		{`'gato'`, "gato"},
		{`"`, `"`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanReply(tt.in); got != tt.want {
			t.Errorf("cleanReply(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
