package command

import (
	"PruneBot/command/hydratehistory"
	"PruneBot/command/inspectactivity"
	"PruneBot/command/removeinactive"
	"PruneBot/command/scaninactive"
	"PruneBot/command/setreportchannel"
	"PruneBot/logger"
	"PruneBot/services"

	"github.com/bwmarrin/discordgo"
)

// Deps carries the service instances the command handlers close over.
type Deps struct {
	Store    *services.ActivityStore
	Scanner  *services.Scanner
	Hydrator *services.Hydrator
	Settings *services.SettingsService
}

var Handlers = map[string]func(*discordgo.Session, *discordgo.InteractionCreate){}

func RegisterCommands(s *discordgo.Session, deps Deps) {
	logger.Log.Info("Registering global commands")

	minZero := float64(0)
	kickMembers := int64(discordgo.PermissionKickMembers)
	manageServer := int64(discordgo.PermissionManageServer)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "scaninactive",
			Description:              "List members inactive beyond the configured window",
			DefaultMemberPermissions: &kickMembers,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "window_days",
					Description: "Inactivity window in days (default 90)",
					MinValue:    &minZero,
					MaxValue:    36500,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "min_voice_minutes",
					Description: "Lifetime voice minutes that exempt a member (default 0 = off)",
					MinValue:    &minZero,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "exclude_role",
					Description: "Members holding this role are never flagged",
				},
			},
		},
		{
			Name:                     "removeinactive",
			Description:              "Remove members inactive beyond the configured window",
			DefaultMemberPermissions: &kickMembers,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "confirm",
					Description: "Type \"true\" to confirm the removal",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "window_days",
					Description: "Inactivity window in days (default 90)",
					MinValue:    &minZero,
					MaxValue:    36500,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "min_voice_minutes",
					Description: "Lifetime voice minutes that exempt a member (default 0 = off)",
					MinValue:    &minZero,
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "exclude_role",
					Description: "Members holding this role are never removed",
				},
			},
		},
		{
			Name:                     "hydratehistory",
			Description:              "Backfill activity from channel message history",
			DefaultMemberPermissions: &manageServer,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "window_days",
					Description: "How far back to scan, in days (default 90)",
					MinValue:    &minZero,
					MaxValue:    36500,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "per_channel_limit",
					Description: "Maximum messages scanned per channel (clamped to 100-20000)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Scan only this channel",
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "include_threads",
					Description: "Also scan active and archived threads",
				},
			},
		},
		{
			Name:                     "inspectactivity",
			Description:              "Show the stored activity record for a member",
			DefaultMemberPermissions: &kickMembers,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "member",
					Description: "The member to inspect",
					Required:    true,
				},
			},
		},
		{
			Name:                     "setreportchannel",
			Description:              "Set the channel for scheduled reports",
			DefaultMemberPermissions: &manageServer,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "Which report to route",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Inactivity report", Value: services.ReportKindModLog},
						{Name: "Activity snapshot", Value: services.ReportKindSnapshot},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "The channel to post to",
					Required:    true,
				},
			},
		},
	}

	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", commands)
	if err != nil {
		logger.Log.WithError(err).Error("Error registering global commands")
		return
	}

	Handlers["scaninactive"] = scaninactive.NewHandler(deps.Scanner)
	Handlers["removeinactive"] = removeinactive.NewHandler(deps.Scanner)
	Handlers["hydratehistory"] = hydratehistory.NewHandler(deps.Hydrator)
	Handlers["inspectactivity"] = inspectactivity.NewHandler(deps.Store)
	Handlers["setreportchannel"] = setreportchannel.NewHandler(deps.Settings)

	logger.Log.Info("Global commands registered and handlers set up")
}

func HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if h, ok := Handlers[i.ApplicationCommandData().Name]; ok {
		h(s, i)
	}
}
