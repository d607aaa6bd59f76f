// Package anyllm implements [translate.Translator] on top of
// github.com/mozilla-ai/any-llm-go, so any chat model it supports (OpenAI,
// Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, llama.cpp, llamafile)
// can translate definitions.
//
// Usage:
//
//	tr, err := anyllm.New("openai", "gpt-4o-mini", anyllmlib.WithAPIKey("sk-..."))
//	fr, err := tr.Translate(ctx, "a small domesticated feline", "fr")
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/MrWong99/lexibot/pkg/translate"
)

const systemPrompt = "You translate dictionary entries. Translate the user's text into %s. " +
	"Keep it short and reply with the translation only, without quotes or commentary."

var _ translate.Translator = (*Translator)(nil)

// Translator asks a chat model for translations.
type Translator struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a Translator for the named any-llm-go backend.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile". Without an API key
// option the backend reads its usual environment variable.
func New(providerName, model string, opts ...anyllmlib.Option) (*Translator, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Translator{backend: backend, model: model}, nil
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Translate implements [translate.Translator].
func (t *Translator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	resp, err := t.backend.Completion(ctx, buildParams(t.model, text, targetLanguage))
	if err != nil {
		return "", fmt.Errorf("anyllm: %w: %w", translate.ErrTranslationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: %w: empty choices in response", translate.ErrTranslationFailed)
	}
	out := cleanReply(resp.Choices[0].Message.ContentString())
	if out == "" {
		return "", fmt.Errorf("anyllm: %w: empty translation", translate.ErrTranslationFailed)
	}
	return out, nil
}

func buildParams(model, text, targetLanguage string) anyllmlib.CompletionParams {
	temp := 0.0
	return anyllmlib.CompletionParams{
		Model: model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: fmt.Sprintf(systemPrompt, translate.LanguageName(targetLanguage))},
			{Role: anyllmlib.RoleUser, Content: text},
		},
		Temperature: &temp,
	}
}

// cleanReply strips whitespace and one level of wrapping quotes that chat
// models like to add.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
