package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// PermissionChecker decides who may change channel and guild settings.
type PermissionChecker struct {
	managerRoleID string
}

// NewPermissionChecker creates a PermissionChecker. An empty managerRoleID
// leaves settings to members with the Manage Channels permission.
func NewPermissionChecker(managerRoleID string) *PermissionChecker {
	return &PermissionChecker{managerRoleID: managerRoleID}
}

// CanManageSettings reports whether the interaction author holds Manage
// Channels (or Administrator) in the channel, or the configured manager
// role. Interactions outside a guild have no Member and are refused.
func (p *PermissionChecker) CanManageSettings(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	perms := i.Member.Permissions
	if perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageChannels != 0 {
		return true
	}
	return p.managerRoleID != "" && slices.Contains(i.Member.Roles, p.managerRoleID)
}
