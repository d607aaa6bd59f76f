package definition

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/lexibot/pkg/dictionary"
)

// MaxMessageLength is the longest text message Discord accepts.
const MaxMessageLength = 2000

// User-facing messages produced by the worker.
const (
	msgLookupProblem    = "There was a problem finding that word."
	msgSpeechProblem    = "There was a problem generating the text-to-speech!"
	msgPermissionPrefix = "I don't have permission to join your voice channel! Please grant me the following permissions: "
)

// reply is the text and spoken form of one answer.
type reply struct {
	text   string
	speech string
}

// buildReply formats definitions for word. source, when non-empty, is
// credited at the end of the text. from is the word as the user typed it
// when word is its translation.
func buildReply(word string, defs []dictionary.Definition, reverse bool, source, from string) reply {
	note := ""
	if from != "" {
		note = fmt.Sprintf(" (translated from `%s`)", from)
	}
	if len(defs) == 0 {
		return reply{
			text:   fmt.Sprintf("__**%s**__%s\n%s", word, note, msgLookupProblem),
			speech: fmt.Sprintf("%s. %s", word, msgLookupProblem),
		}
	}
	if reverse {
		word = reverseString(word)
	}

	var text, speech strings.Builder
	fmt.Fprintf(&text, "__**%s**__%s\n", word, note)
	fmt.Fprintf(&speech, "%s, ", word)
	for i, d := range defs {
		wordType, body := d.WordType, d.Text
		if reverse {
			wordType, body = reverseString(wordType), reverseString(body)
		}
		fmt.Fprintf(&text, "**[%d]** (%s)\n%s\n", i+1, wordType, body)
		fmt.Fprintf(&speech, " %d, %s, %s", i+1, wordType, body)
	}
	if source != "" {
		fmt.Fprintf(&text, "\n*Definitions provided by %s.*", source)
	}
	return reply{text: text.String(), speech: speech.String()}
}

// permissionMessage lists the missing permissions as inline code.
func permissionMessage(missing []string) string {
	quoted := make([]string, len(missing))
	for i, p := range missing {
		quoted[i] = "`" + p + "`"
	}
	return msgPermissionPrefix + strings.Join(quoted, ", ") + "."
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// SplitMessage cuts text into chunks of at most limit runes, preferring to
// break at the last space (or newline) before the limit.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	var parts []string
	for utf8.RuneCountInString(text) > limit {
		r := []rune(text)
		cut := limit
		for i := limit; i > 0; i-- {
			if r[i] == ' ' || r[i] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(r[:cut]))
		rest := r[cut:]
		if len(rest) > 0 && (rest[0] == ' ' || rest[0] == '\n') {
			rest = rest[1:]
		}
		text = string(rest)
	}
	if text != "" || len(parts) == 0 {
		parts = append(parts, text)
	}
	return parts
}
