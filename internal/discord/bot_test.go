package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lexibot/internal/discord/mock"
)

func TestPermissionChecker_CanManageSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		managerRoleID string
		member        *discordgo.Member
		want          bool
	}{
		{
			name:   "manage channels",
			member: &discordgo.Member{Permissions: discordgo.PermissionManageChannels},
			want:   true,
		},
		{
			name:   "administrator",
			member: &discordgo.Member{Permissions: discordgo.PermissionAdministrator},
			want:   true,
		},
		{
			name:          "manager role",
			managerRoleID: "role-123",
			member:        &discordgo.Member{Roles: []string{"role-456", "role-123"}},
			want:          true,
		},
		{
			name:          "plain member",
			managerRoleID: "role-123",
			member:        &discordgo.Member{Roles: []string{"role-456"}, Permissions: discordgo.PermissionSendMessages},
			want:          false,
		},
		{
			name:   "no role configured",
			member: &discordgo.Member{Roles: []string{"role-456"}},
			want:   false,
		},
		{
			name:          "direct message",
			managerRoleID: "role-123",
			want:          false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Member: tt.member}}
			if got := NewPermissionChecker(tt.managerRoleID).CanManageSettings(i); got != tt.want {
				t.Errorf("CanManageSettings() = %v, want %v", got, tt.want)
			}
		})
	}
}

func commandInteraction(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func TestCommandRouter_ApplicationCommands_Dedup(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	cmd := &discordgo.ApplicationCommand{Name: "settings"}
	r.RegisterCommand("settings/set", cmd, func(Responder, *discordgo.InteractionCreate) {})
	r.RegisterCommand("settings/list", cmd, func(Responder, *discordgo.InteractionCreate) {})
	r.RegisterHandler("settings/remove", func(Responder, *discordgo.InteractionCreate) {})

	cmds := r.ApplicationCommands()
	if len(cmds) != 1 || cmds[0].Name != "settings" {
		t.Fatalf("ApplicationCommands() = %v, want one settings command", cmds)
	}
}

func TestCommandRouter_Handle(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	var got []string
	r.RegisterCommand("stop", &discordgo.ApplicationCommand{Name: "stop"}, func(Responder, *discordgo.InteractionCreate) {
		got = append(got, "stop")
	})
	r.RegisterHandler("settings/list", func(Responder, *discordgo.InteractionCreate) {
		got = append(got, "settings/list")
	})

	resp := &mock.InteractionResponder{}
	r.Handle(resp, commandInteraction("stop"))
	r.Handle(resp, commandInteraction("settings", &discordgo.ApplicationCommandInteractionDataOption{
		Name: "list",
		Type: discordgo.ApplicationCommandOptionSubCommand,
	}))

	if len(got) != 2 || got[0] != "stop" || got[1] != "settings/list" {
		t.Errorf("dispatched %v", got)
	}
	if len(resp.Responses) != 0 {
		t.Errorf("router responded on its own: %v", resp.Responses)
	}
}

func TestCommandRouter_UnknownCommand(t *testing.T) {
	t.Parallel()

	resp := &mock.InteractionResponder{}
	NewCommandRouter().Handle(resp, commandInteraction("nope"))

	last := resp.LastResponse()
	if last == nil || last.Data.Content != "Unknown command." {
		t.Fatalf("response = %+v", last)
	}
	if last.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Error("unknown command reply should be ephemeral")
	}
}

func TestCommandRouter_ApplicationCommandsSorted(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	for _, name := range []string{"stop", "define", "next", "backwards"} {
		r.RegisterCommand(name, &discordgo.ApplicationCommand{Name: name}, func(Responder, *discordgo.InteractionCreate) {})
	}

	var names []string
	for _, c := range r.ApplicationCommands() {
		names = append(names, c.Name)
	}
	want := []string{"backwards", "define", "next", "stop"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for n := range want {
		if names[n] != want[n] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestCommandRouter_RecoversPanic(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	r.RegisterCommand("define", &discordgo.ApplicationCommand{Name: "define"}, func(Responder, *discordgo.InteractionCreate) {
		panic("nil dictionary")
	})

	resp := &mock.InteractionResponder{}
	r.Handle(resp, commandInteraction("define"))

	last := resp.LastResponse()
	if last == nil || last.Data.Content != msgHandlerPanic {
		t.Fatalf("response = %+v, want panic reply", last)
	}
}

func TestCommandRouter_AutocompleteFallback(t *testing.T) {
	t.Parallel()

	i := commandInteraction("define")
	i.Type = discordgo.InteractionApplicationCommandAutocomplete

	resp := &mock.InteractionResponder{}
	NewCommandRouter().Handle(resp, i)

	last := resp.LastResponse()
	if last == nil || last.Type != discordgo.InteractionApplicationCommandAutocompleteResult {
		t.Fatalf("response = %+v, want empty autocomplete result", last)
	}
}

func TestRespondChoices_Truncates(t *testing.T) {
	t.Parallel()

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 30)
	for n := range choices {
		choices[n] = &discordgo.ApplicationCommandOptionChoice{Name: "x", Value: "x"}
	}
	resp := &mock.InteractionResponder{}
	RespondChoices(resp, commandInteraction("define"), choices)

	if got := len(resp.LastResponse().Data.Choices); got != 25 {
		t.Errorf("choices = %d, want 25", got)
	}
}

func TestChannelReplier_SendText(t *testing.T) {
	t.Parallel()

	sender := &mock.MessageSender{}
	r := NewChannelReplier(sender)
	if err := r.SendText(context.Background(), "chan-1", "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	sent := sender.Sent()
	if len(sent) != 1 || sent[0] != (mock.Message{ChannelID: "chan-1", Content: "hello"}) {
		t.Errorf("sent = %+v", sent)
	}

	boom := errors.New("forbidden")
	sender.Err = boom
	if err := r.SendText(context.Background(), "chan-1", "again"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestBot_PingWithoutSession(t *testing.T) {
	t.Parallel()

	b := &Bot{}
	if err := b.Ping(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Ping() = %v, want ErrNotReady", err)
	}
	if got := b.UserVoiceChannel("g", "u"); got != "" {
		t.Errorf("UserVoiceChannel() = %q, want empty", got)
	}
}
