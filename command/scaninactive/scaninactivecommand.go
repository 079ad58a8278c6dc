package scaninactive

import (
	"context"
	"time"

	"PruneBot/config"
	"PruneBot/errorhandler"
	"PruneBot/logger"
	"PruneBot/services"
	"PruneBot/utils"

	"github.com/bwmarrin/discordgo"
)

const scanTimeout = 10 * time.Minute

// NewHandler builds the /scaninactive handler. The scan is read-only: it
// lists candidates but never removes anyone.
func NewHandler(scanner *services.Scanner) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if !utils.HasPermission(i, discordgo.PermissionKickMembers) {
			msg, _ := errorhandler.HandleError(errorhandler.NewPermissionError("Kick Members"))
			utils.RespondToInteraction(s, i, msg, true)
			return
		}

		cfg := config.Get()
		opts := utils.OptionMap(i)
		windowDays := utils.IntOption(opts, "window_days", cfg.DefaultWindowDays)
		minVoiceMinutes := utils.IntOption(opts, "min_voice_minutes", cfg.DefaultMinVoiceMinutes)
		excludeRoleID := ""
		if opt, ok := opts["exclude_role"]; ok {
			excludeRoleID = opt.RoleValue(s, i.GuildID).ID
		}

		if err := utils.DeferInteraction(s, i, true); err != nil {
			logger.Log.WithError(err).Error("Error deferring scaninactive response")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()

		inactive, err := scanner.Scan(ctx, i.GuildID, windowDays, minVoiceMinutes, excludeRoleID)
		if err != nil {
			msg, _ := errorhandler.HandleError(err)
			utils.SendFollowupMessage(s, i, msg, true)
			return
		}

		utils.SendFollowupMessage(s, i, services.FormatInactiveList(inactive, windowDays), true)
	}
}
