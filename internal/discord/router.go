package discord

import (
	"cmp"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc handles one slash command invocation.
type HandlerFunc func(r Responder, i *discordgo.InteractionCreate)

// AutocompleteFunc answers an autocomplete request.
type AutocompleteFunc func(r Responder, i *discordgo.InteractionCreate)

const msgHandlerPanic = "Something went wrong, please try again."

type route struct {
	command      *discordgo.ApplicationCommand
	handler      HandlerFunc
	autocomplete AutocompleteFunc
}

// CommandRouter dispatches Discord interactions by key. A key is the command
// name, or "command/subcommand" for subcommands (e.g. "settings/set").
type CommandRouter struct {
	mu     sync.RWMutex
	routes map[string]*route
}

// NewCommandRouter creates an empty router.
func NewCommandRouter() *CommandRouter {
	return &CommandRouter{routes: make(map[string]*route)}
}

func (r *CommandRouter) routeLocked(key string) *route {
	rt, ok := r.routes[key]
	if !ok {
		rt = &route{}
		r.routes[key] = rt
	}
	return rt
}

// RegisterCommand registers a top-level command definition and its handler.
// Subcommands are nested in cmd and routed with [RegisterHandler].
func (r *CommandRouter) RegisterCommand(key string, cmd *discordgo.ApplicationCommand, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt := r.routeLocked(key)
	rt.command, rt.handler = cmd, handler
}

// RegisterHandler routes key to handler without contributing a command
// definition.
func (r *CommandRouter) RegisterHandler(key string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routeLocked(key).handler = handler
}

// RegisterAutocomplete routes autocomplete requests for key to handler.
func (r *CommandRouter) RegisterAutocomplete(key string, handler AutocompleteFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routeLocked(key).autocomplete = handler
}

// ApplicationCommands returns the registered command definitions sorted by
// name, ready for a bulk overwrite.
func (r *CommandRouter) ApplicationCommands() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cmds []*discordgo.ApplicationCommand
	for _, rt := range r.routes {
		if rt.command != nil && !slices.Contains(cmds, rt.command) {
			cmds = append(cmds, rt.command)
		}
	}
	slices.SortFunc(cmds, func(a, b *discordgo.ApplicationCommand) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return cmds
}

// Handle dispatches i. A panicking handler is logged and answered with a
// generic error instead of taking down the gateway goroutine.
func (r *CommandRouter) Handle(resp Responder, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand, discordgo.InteractionApplicationCommandAutocomplete:
	default:
		slog.Debug("discord: unhandled interaction type", "type", i.Type)
		return
	}

	key := interactionKey(i.ApplicationCommandData())
	r.mu.RLock()
	rt := r.routes[key]
	r.mu.RUnlock()

	defer func() {
		if v := recover(); v != nil {
			slog.Error("discord: handler panic", "key", key, "panic", v, "stack", string(debug.Stack()))
			if i.Type == discordgo.InteractionApplicationCommand {
				RespondEphemeral(resp, i, msgHandlerPanic)
			}
		}
	}()

	if i.Type == discordgo.InteractionApplicationCommandAutocomplete {
		if rt == nil || rt.autocomplete == nil {
			RespondChoices(resp, i, nil)
			return
		}
		rt.autocomplete(resp, i)
		return
	}

	if rt == nil || rt.handler == nil {
		slog.Warn("discord: unknown command", "key", key)
		RespondEphemeral(resp, i, "Unknown command.")
		return
	}
	rt.handler(resp, i)
}

// interactionKey builds a router key from an ApplicationCommand interaction.
func interactionKey(data discordgo.ApplicationCommandInteractionData) string {
	key := data.Name
	if len(data.Options) > 0 && data.Options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		key += "/" + data.Options[0].Name
	}
	return key
}
