// Package translate defines the Translator used to render definitions in the
// language a channel or user asked for.
package translate

import (
	"context"
	"errors"
	"strings"
)

// ErrTranslationFailed wraps every translator failure.
var ErrTranslationFailed = errors.New("translate: translation failed")

// Translator turns text into the language identified by a BCP-47 style code
// ("fr", "pt-BR").
//
// Implementations must be safe for concurrent use.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

var languageNames = map[string]string{
	"ar": "Arabic",
	"cs": "Czech",
	"da": "Danish",
	"de": "German",
	"el": "Greek",
	"en": "English",
	"es": "Spanish",
	"fi": "Finnish",
	"fr": "French",
	"hi": "Hindi",
	"hu": "Hungarian",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"nl": "Dutch",
	"no": "Norwegian",
	"pl": "Polish",
	"pt": "Portuguese",
	"ro": "Romanian",
	"ru": "Russian",
	"sv": "Swedish",
	"tr": "Turkish",
	"uk": "Ukrainian",
	"zh": "Chinese",
}

// LanguageName returns the English name for a language code, or the code
// itself when it is not known. Region subtags are ignored.
func LanguageName(code string) string {
	lang := code
	if i := strings.IndexAny(code, "-_"); i > 0 {
		lang = code[:i]
	}
	if name, ok := languageNames[strings.ToLower(lang)]; ok {
		return name
	}
	return code
}
