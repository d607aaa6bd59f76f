package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/lexibot/internal/discord"
	"github.com/MrWong99/lexibot/internal/settings"
)

const (
	scopeGuild   = "guild"
	scopeChannel = "channel"
	scopeAll     = "all"

	msgNoPermission = "You need the Manage Channels permission or the manager role to change settings."
	msgGuildOnly    = "Settings can only be changed in a server."
)

var settingKeys = settings.Keys

// SettingsSource is the part of *settings.Resolver the /settings command
// needs.
type SettingsSource interface {
	Resolve(ctx context.Context, guildID, channelID string) (settings.Settings, error)
	Store() settings.Store
}

// SettingsCommands handles the /settings command group.
type SettingsCommands struct {
	source       SettingsSource
	perms        *discord.PermissionChecker
	dictionaries []string
	log          *slog.Logger
}

// SettingsOption configures [SettingsCommands].
type SettingsOption func(*SettingsCommands)

// WithDictionaries restricts dictionary_apis to the given provider ids.
func WithDictionaries(ids []string) SettingsOption {
	return func(sc *SettingsCommands) { sc.dictionaries = ids }
}

// NewSettingsCommands creates the /settings handlers.
func NewSettingsCommands(source SettingsSource, perms *discord.PermissionChecker, opts ...SettingsOption) *SettingsCommands {
	sc := &SettingsCommands{source: source, perms: perms, log: slog.Default()}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Register registers /settings set, list and remove with the router.
func (sc *SettingsCommands) Register(router *discord.CommandRouter) {
	def := sc.Definition()
	router.RegisterCommand("settings", def, func(r discord.Responder, i *discordgo.InteractionCreate) {
		discord.RespondEphemeral(r, i, "Please use a subcommand: `/settings set`, `/settings list` or `/settings remove`.")
	})
	router.RegisterHandler("settings/set", sc.handleSet)
	router.RegisterHandler("settings/list", sc.handleList)
	router.RegisterHandler("settings/remove", sc.handleRemove)
}

// Definition returns the /settings ApplicationCommand for Discord registration.
func (sc *SettingsCommands) Definition() *discordgo.ApplicationCommand {
	keyChoices := make([]*discordgo.ApplicationCommandOptionChoice, len(settingKeys))
	for n, k := range settingKeys {
		keyChoices[n] = &discordgo.ApplicationCommandOptionChoice{Name: k, Value: k}
	}
	scopeOption := func(required bool, values ...string) *discordgo.ApplicationCommandOption {
		opt := &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "scope",
			Description: "Where the setting applies.",
			Required:    required,
		}
		for _, v := range values {
			opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v})
		}
		return opt
	}
	nameOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: "Setting name.",
		Required:    true,
		Choices:     keyChoices,
	}

	return &discordgo.ApplicationCommand{
		Name:        "settings",
		Description: "View or change bot settings for this server or channel.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Set a setting.",
				Options: []*discordgo.ApplicationCommandOption{
					scopeOption(true, scopeGuild, scopeChannel),
					nameOption,
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "value",
						Description: "Setting value.",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "list",
				Description: "Shows the settings of this server or channel.",
				Options:     []*discordgo.ApplicationCommandOption{scopeOption(false, scopeAll, scopeGuild, scopeChannel)},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Remove a setting.",
				Options:     []*discordgo.ApplicationCommandOption{scopeOption(true, scopeGuild, scopeChannel), nameOption},
			},
		},
	}
}

// scopeID maps a scope name to the store scope of the interaction.
func scopeID(i *discordgo.InteractionCreate, scope string) (string, bool) {
	switch scope {
	case scopeGuild:
		return i.GuildID, i.GuildID != ""
	case scopeChannel:
		return i.ChannelID, i.ChannelID != ""
	default:
		return "", false
	}
}

func (sc *SettingsCommands) checkWrite(r discord.Responder, i *discordgo.InteractionCreate) bool {
	if i.GuildID == "" {
		discord.RespondEphemeral(r, i, msgGuildOnly)
		return false
	}
	if !sc.perms.CanManageSettings(i) {
		discord.RespondEphemeral(r, i, msgNoPermission)
		return false
	}
	return true
}

func (sc *SettingsCommands) handleSet(r discord.Responder, i *discordgo.InteractionCreate) {
	if !sc.checkWrite(r, i) {
		return
	}
	opts := options(i)
	scope, key, value := stringOption(opts, "scope"), stringOption(opts, "name"), stringOption(opts, "value")
	id, ok := scopeID(i, scope)
	if !ok {
		discord.RespondEphemeral(r, i, fmt.Sprintf("Invalid scope: `%s`! Must be either `guild` or `channel`.", scope))
		return
	}

	canonical, err := settings.Validate(key, value)
	if err != nil || canonical == "" {
		discord.RespondEphemeral(r, i, fmt.Sprintf("Invalid value `%s` for key `%s`.", value, key))
		return
	}
	if key == settings.KeyDictionaryAPIs {
		if unknown := sc.unknownDictionaries(canonical); len(unknown) > 0 {
			discord.RespondEphemeral(r, i, fmt.Sprintf("Unknown dictionary `%s`. Available: `%s`.",
				strings.Join(unknown, "`, `"), strings.Join(sc.dictionaries, "`, `")))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()
	if err := sc.source.Store().Set(ctx, id, key, canonical); err != nil {
		sc.log.Error("failed to store setting", "scope", scope, "scope_id", id, "key", key, "err", err)
		discord.RespondEphemeral(r, i, msgFailed)
		return
	}
	discord.RespondText(r, i, fmt.Sprintf("Successfully set `%s` to `%s` in `%s`.", key, canonical, scope))
}

func (sc *SettingsCommands) handleRemove(r discord.Responder, i *discordgo.InteractionCreate) {
	if !sc.checkWrite(r, i) {
		return
	}
	opts := options(i)
	scope, key := stringOption(opts, "scope"), stringOption(opts, "name")
	id, ok := scopeID(i, scope)
	if !ok {
		discord.RespondEphemeral(r, i, fmt.Sprintf("Invalid scope: `%s`! Must be either `guild` or `channel`.", scope))
		return
	}
	if !slices.Contains(settingKeys, key) {
		discord.RespondEphemeral(r, i, fmt.Sprintf("Invalid key `%s`", key))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()
	if err := sc.source.Store().Set(ctx, id, key, ""); err != nil {
		sc.log.Error("failed to remove setting", "scope", scope, "scope_id", id, "key", key, "err", err)
		discord.RespondEphemeral(r, i, msgFailed)
		return
	}
	discord.RespondText(r, i, fmt.Sprintf("Successfully removed `%s` from `%s`.", key, scope))
}

func (sc *SettingsCommands) handleList(r discord.Responder, i *discordgo.InteractionCreate) {
	scope := stringOption(options(i), "scope")
	if scope == "" {
		scope = scopeAll
	}

	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	var (
		b   strings.Builder
		err error
	)
	switch scope {
	case scopeAll:
		var s settings.Settings
		s, err = sc.source.Resolve(ctx, i.GuildID, i.ChannelID)
		b.WriteString("**Effective settings**\n")
		writeSetting(&b, settings.KeyTextToSpeech, string(s.TextToSpeech))
		writeSetting(&b, settings.KeyLanguage, s.Language)
		writeSetting(&b, settings.KeyShowDefinitionSource, fmt.Sprint(s.ShowDefinitionSource))
		apis := strings.Join(s.DictionaryAPIs, ",")
		if apis == "" {
			apis = strings.Join(sc.dictionaries, ",")
		}
		writeSetting(&b, settings.KeyDictionaryAPIs, apis)
		writeSetting(&b, settings.KeyAutoTranslate, fmt.Sprint(s.AutoTranslate))
	case scopeGuild, scopeChannel:
		id, ok := scopeID(i, scope)
		if !ok {
			discord.RespondEphemeral(r, i, fmt.Sprintf("Invalid scope: `%s`! Must be either `guild` or `channel`.", scope))
			return
		}
		var vals map[string]string
		vals, err = sc.source.Store().Values(ctx, id)
		fmt.Fprintf(&b, "**%s settings**\n", strings.ToUpper(scope[:1])+scope[1:])
		if len(vals) == 0 {
			b.WriteString("Nothing set.\n")
		}
		for _, k := range settingKeys {
			if v, ok := vals[k]; ok {
				writeSetting(&b, k, v)
			}
		}
	default:
		discord.RespondEphemeral(r, i, fmt.Sprintf("Invalid scope: `%s`! Must be `all`, `guild` or `channel`.", scope))
		return
	}

	if err != nil {
		sc.log.Warn("failed to read settings", "scope", scope, "guild_id", i.GuildID, "channel_id", i.ChannelID, "err", err)
		// Resolve falls back to the defaults, which are still worth showing.
		if scope != scopeAll {
			discord.RespondEphemeral(r, i, msgFailed)
			return
		}
	}
	discord.RespondEphemeral(r, i, b.String())
}

// unknownDictionaries returns the ids in list that are not configured. Every
// id is accepted when no dictionaries were given.
func (sc *SettingsCommands) unknownDictionaries(list string) []string {
	if len(sc.dictionaries) == 0 {
		return nil
	}
	var unknown []string
	for _, id := range settings.ParseList(list) {
		if !slices.Contains(sc.dictionaries, id) {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

func writeSetting(b *strings.Builder, key, value string) {
	fmt.Fprintf(b, "`%s`: `%s`\n", key, value)
}
