package commands

import (
	"testing"

	"github.com/MrWong99/lexibot/internal/definition"
	"github.com/MrWong99/lexibot/internal/discord/mock"
)

func TestStop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stopOK bool
		want   string
	}{
		{"stopped", true, "Okay, I'll be quiet."},
		{"idle", false, "I'm not even talking!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := &fakeQueue{stopOK: tt.stopOK}
			resp := &mock.InteractionResponder{}
			NewPlaybackCommands(q, voiceMap{}).handleStop(resp, interaction("stop", nil))

			if got := resp.LastContent(); got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
			if len(q.stopped) != 1 || q.stopped[0] != "text-1" {
				t.Errorf("stopped = %v, want [text-1]", q.stopped)
			}
		})
	}
}

func TestNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		voice     voiceMap
		nextErr   error
		want      string
		wantVoice string
	}{
		{"skipped", voiceMap{"user-1": "voice-1"}, nil, "Skipped to next word.", "voice-1"},
		{"nothing playing", voiceMap{"user-1": "voice-1"}, definition.ErrNoActivePlayback, "Nothing in queue.", "voice-1"},
		{"not in voice", voiceMap{}, definition.ErrNoActivePlayback, "Nothing in queue.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := &fakeQueue{nextErr: tt.nextErr}
			resp := &mock.InteractionResponder{}
			NewPlaybackCommands(q, tt.voice).handleNext(resp, interaction("next", nil))

			if got := resp.LastContent(); got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
			if len(q.nexts) != 1 || q.nexts[0] != tt.wantVoice {
				t.Errorf("Next called with %v, want %q", q.nexts, tt.wantVoice)
			}
		})
	}
}
