package hydratehistory

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

const hydrateTimeout = 30 * time.Minute

// NewHandler builds the /hydratehistory handler, which backfills the
// activity table from channel history so long-time members are not flagged
// just because the bot started observing recently.
func NewHandler(hydrator *services.Hydrator) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if !utils.HasPermission(i, discordgo.PermissionManageServer) {
			msg, _ := errorhandler.HandleError(errorhandler.NewPermissionError("Manage Server"))
			utils.RespondToInteraction(s, i, msg, true)
			return
		}

		cfg := config.Get()
		opts := utils.OptionMap(i)
		windowDays := utils.IntOption(opts, "window_days", cfg.DefaultWindowDays)
		perChannelLimit := utils.IntOption(opts, "per_channel_limit", 1000)
		includeThreads := utils.BoolOption(opts, "include_threads")
		targetChannelID := ""
		if opt, ok := opts["channel"]; ok {
			targetChannelID = opt.ChannelValue(nil).ID
		}

		if err := utils.DeferInteraction(s, i, true); err != nil {
			logger.Log.WithError(err).Error("Error deferring hydratehistory response")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), hydrateTimeout)
		defer cancel()

		stats, err := hydrator.Hydrate(ctx, i.GuildID, windowDays, perChannelLimit, targetChannelID, includeThreads)
		if err != nil {
			msg, _ := errorhandler.HandleError(err)
			utils.SendFollowupMessage(s, i, msg, true)
			return
		}

		utils.SendFollowupMessage(s, i, fmt.Sprintf(
			"History hydration finished: %d channels scanned, %d messages scanned, %d members touched.",
			stats.ChannelsScanned, stats.MessagesScanned, stats.UsersTouched), true)
	}
}
