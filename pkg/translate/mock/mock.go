// Package mock provides a test double for translate.Translator.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lexibot/pkg/translate"
)

var _ translate.Translator = (*Translator)(nil)

// TranslateCall records one Translate invocation.
type TranslateCall struct {
	Text           string
	TargetLanguage string
}

// Translator is a mock [translate.Translator]. Without Responses it returns
// the text prefixed with "[lang] ".
type Translator struct {
	mu sync.Mutex

	// Responses maps source text to its translation.
	Responses map[string]string

	// Err, if non-nil, is returned from every call.
	Err error

	calls []TranslateCall
}

// Translate implements [translate.Translator].
func (m *Translator) Translate(_ context.Context, text, targetLanguage string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, TranslateCall{Text: text, TargetLanguage: targetLanguage})
	if m.Err != nil {
		return "", m.Err
	}
	if out, ok := m.Responses[text]; ok {
		return out, nil
	}
	return "[" + targetLanguage + "] " + text, nil
}

// Calls returns a copy of the recorded calls.
func (m *Translator) Calls() []TranslateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TranslateCall, len(m.calls))
	copy(out, m.calls)
	return out
}
