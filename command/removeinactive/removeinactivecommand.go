package removeinactive

import (
	"context"
	"fmt"
	"time"

	"PruneBot/config"
	"PruneBot/errorhandler"
	"PruneBot/logger"
	"PruneBot/services"
	"PruneBot/utils"

	"github.com/bwmarrin/discordgo"
)

const removeTimeout = 15 * time.Minute

// NewHandler builds the /removeinactive handler: the destructive counterpart
// of /scaninactive. It requires confirm="true" and re-validates every member
// before removal.
func NewHandler(scanner *services.Scanner) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if !utils.HasPermission(i, discordgo.PermissionKickMembers) {
			msg, _ := errorhandler.HandleError(errorhandler.NewPermissionError("Kick Members"))
			utils.RespondToInteraction(s, i, msg, true)
			return
		}

		opts := utils.OptionMap(i)
		if utils.StringOption(opts, "confirm") != "true" {
			msg, _ := errorhandler.HandleError(errorhandler.NewConfigurationError(nil,
				"Removal requires explicit confirmation. Re-run with confirm set to \"true\"."))
			utils.RespondToInteraction(s, i, msg, true)
			return
		}

		cfg := config.Get()
		windowDays := utils.IntOption(opts, "window_days", cfg.DefaultWindowDays)
		minVoiceMinutes := utils.IntOption(opts, "min_voice_minutes", cfg.DefaultMinVoiceMinutes)
		excludeRoleID := ""
		if opt, ok := opts["exclude_role"]; ok {
			excludeRoleID = opt.RoleValue(s, i.GuildID).ID
		}

		if err := utils.DeferInteraction(s, i, true); err != nil {
			logger.Log.WithError(err).Error("Error deferring removeinactive response")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
		defer cancel()

		targets, err := scanner.Scan(ctx, i.GuildID, windowDays, minVoiceMinutes, excludeRoleID)
		if err != nil {
			msg, _ := errorhandler.HandleError(err)
			utils.SendFollowupMessage(s, i, msg, true)
			return
		}
		if len(targets) == 0 {
			utils.SendFollowupMessage(s, i,
				fmt.Sprintf("No members inactive for more than %d days.", windowDays), true)
			return
		}

		removed, err := scanner.Prune(ctx, i.GuildID, targets, true)
		if err != nil {
			msg, _ := errorhandler.HandleError(err)
			utils.SendFollowupMessage(s, i, msg, true)
			return
		}

		utils.SendFollowupMessage(s, i,
			fmt.Sprintf("Removed %d of %d targeted inactive members.", len(removed), len(targets)), true)
	}
}
