package inspectactivity

import (
	"fmt"
	"time"

	"PruneBot/errorhandler"
	"PruneBot/services"
	"PruneBot/utils"

	"github.com/bwmarrin/discordgo"
)

// NewHandler builds the /inspectactivity handler, showing the raw stored
// record for one member.
func NewHandler(store *services.ActivityStore) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if !utils.HasPermission(i, discordgo.PermissionKickMembers) {
			msg, _ := errorhandler.HandleError(errorhandler.NewPermissionError("Kick Members"))
			utils.RespondToInteraction(s, i, msg, true)
			return
		}

		opts := utils.OptionMap(i)
		opt, ok := opts["member"]
		if !ok {
			utils.RespondToInteraction(s, i, "A member is required.", true)
			return
		}
		user := opt.UserValue(s)

		record, err := store.Get(i.GuildID, user.ID)
		if err != nil {
			msg, _ := errorhandler.HandleError(errorhandler.NewDatabaseError(err, "loading activity record"))
			utils.RespondToInteraction(s, i, msg, true)
			return
		}

		embed := &discordgo.MessageEmbed{
			Title: fmt.Sprintf("Activity record for %s", user.Username),
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Last message", Value: formatTimestamp(record.LastMessageAt), Inline: true},
				{Name: "Last voice join", Value: formatTimestamp(record.LastVoiceAt), Inline: true},
				{Name: "Total voice time", Value: utils.FormatDuration(record.VoiceSecondsTotal), Inline: true},
			},
		}
		utils.RespondWithEmbed(s, i, embed, true)
	}
}

func formatTimestamp(millis int64) string {
	if millis == 0 {
		return "never observed"
	}
	return fmt.Sprintf("<t:%d:R>", time.UnixMilli(millis).Unix())
}
