package setreportchannel

import (
	"fmt"

	"PruneBot/errorhandler"
	"PruneBot/services"
	"PruneBot/utils"

	"github.com/bwmarrin/discordgo"
)

// NewHandler builds the /setreportchannel handler.
func NewHandler(settings *services.SettingsService) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if !utils.HasPermission(i, discordgo.PermissionManageServer) {
			msg, _ := errorhandler.HandleError(errorhandler.NewPermissionError("Manage Server"))
			utils.RespondToInteraction(s, i, msg, true)
			return
		}

		opts := utils.OptionMap(i)
		kind := utils.StringOption(opts, "kind")
		opt, ok := opts["channel"]
		if !ok {
			utils.RespondToInteraction(s, i, "A channel is required.", true)
			return
		}
		channel := opt.ChannelValue(s)

		if err := settings.SetReportChannel(i.GuildID, kind, channel.ID); err != nil {
			msg, _ := errorhandler.HandleError(err)
			utils.RespondToInteraction(s, i, msg, true)
			return
		}

		utils.RespondToInteraction(s, i,
			fmt.Sprintf("Reports of kind %q will now be posted to <#%s>.", kind, channel.ID), true)
	}
}
