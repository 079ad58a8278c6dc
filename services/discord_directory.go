package services

import (
	"context"
	"fmt"

	"PruneBot/logger"

	"github.com/bwmarrin/discordgo"
)

const memberPageSize = 1000

// DiscordDirectory adapts a discordgo session to the MemberDirectory,
// HistoryBrowser and ChannelResolver interfaces. It is the only place in the
// repository that inspects concrete Discord types.
type DiscordDirectory struct {
	session *discordgo.Session
}

func NewDiscordDirectory(session *discordgo.Session) *DiscordDirectory {
	return &DiscordDirectory{session: session}
}

// ListMembers pages through the full guild membership. When the live fetch
// fails mid-listing it degrades to the gateway state cache rather than
// failing the whole scan, as long as the cache holds anything.
func (d *DiscordDirectory) ListMembers(ctx context.Context, guildID string) ([]Member, error) {
	ownerID, adminRoles, err := d.guildRoleInfo(guildID)
	if err != nil {
		return nil, err
	}

	var members []Member
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := d.session.GuildMembers(guildID, after, memberPageSize)
		if err != nil {
			if cached := d.cachedMembers(guildID, ownerID, adminRoles); len(cached) > 0 {
				logger.Log.WithError(err).
					WithField("guild", guildID).
					Warn("Live member listing failed, using gateway cache")
				return cached, nil
			}
			return nil, fmt.Errorf("failed to list members of %s: %w", guildID, err)
		}
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			members = append(members, toMember(m, ownerID, adminRoles))
		}
		if len(page) < memberPageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}

	return members, nil
}

func (d *DiscordDirectory) FetchMember(ctx context.Context, guildID, userID string) (Member, error) {
	if err := ctx.Err(); err != nil {
		return Member{}, err
	}
	ownerID, adminRoles, err := d.guildRoleInfo(guildID)
	if err != nil {
		return Member{}, err
	}
	m, err := d.session.GuildMember(guildID, userID)
	if err != nil {
		return Member{}, fmt.Errorf("failed to fetch member %s/%s: %w", guildID, userID, err)
	}
	return toMember(m, ownerID, adminRoles), nil
}

func (d *DiscordDirectory) RemoveMember(ctx context.Context, guildID, userID, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.session.GuildMemberDeleteWithReason(guildID, userID, reason); err != nil {
		return fmt.Errorf("failed to remove member %s/%s: %w", guildID, userID, err)
	}
	return nil
}

// ListChannels reports every guild channel with its history capabilities
// from the bot's point of view.
func (d *DiscordDirectory) ListChannels(ctx context.Context, guildID string) ([]HistoryChannel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	channels, err := d.session.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels of %s: %w", guildID, err)
	}

	result := make([]HistoryChannel, 0, len(channels))
	for _, ch := range channels {
		result = append(result, d.toHistoryChannel(ch))
	}
	return result, nil
}

// ListThreads enumerates a channel's active and archived threads.
func (d *DiscordDirectory) ListThreads(ctx context.Context, guildID, channelID string) ([]HistoryChannel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var threads []HistoryChannel

	active, err := d.session.ThreadsActive(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active threads of %s: %w", channelID, err)
	}
	for _, th := range active.Threads {
		threads = append(threads, d.toHistoryChannel(th))
	}

	archived, err := d.session.ThreadsArchived(channelID, nil, 0)
	if err != nil {
		// Archived threads are best effort; active ones already listed.
		logger.Log.WithError(err).
			WithField("channel", channelID).
			Debug("Failed to list archived threads")
		return threads, nil
	}
	for _, th := range archived.Threads {
		threads = append(threads, d.toHistoryChannel(th))
	}

	return threads, nil
}

func (d *DiscordDirectory) MessagesBefore(ctx context.Context, channelID, beforeID string, limit int) ([]HistoryMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	messages, err := d.session.ChannelMessages(channelID, limit, beforeID, "", "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages of %s: %w", channelID, err)
	}

	result := make([]HistoryMessage, 0, len(messages))
	for _, msg := range messages {
		hm := HistoryMessage{
			ID:        msg.ID,
			Timestamp: msg.Timestamp,
		}
		if msg.Author != nil {
			hm.AuthorID = msg.Author.ID
			hm.AuthorBot = msg.Author.Bot
		}
		result = append(result, hm)
	}
	return result, nil
}

func (d *DiscordDirectory) IsTextChannel(guildID, channelID string) bool {
	ch, err := d.session.State.Channel(channelID)
	if err != nil {
		ch, err = d.session.Channel(channelID)
		if err != nil {
			return false
		}
	}
	return ch.GuildID == guildID && isTextBased(ch.Type)
}

func (d *DiscordDirectory) FindTextChannel(guildID, name string) (string, bool) {
	channels, err := d.session.GuildChannels(guildID)
	if err != nil {
		logger.Log.WithError(err).
			WithField("guild", guildID).
			Warn("Failed to list channels for by-name lookup")
		return "", false
	}
	for _, ch := range channels {
		if ch.Name == name && isTextBased(ch.Type) {
			return ch.ID, true
		}
	}
	return "", false
}

func (d *DiscordDirectory) guildRoleInfo(guildID string) (string, map[string]bool, error) {
	guild, err := d.session.State.Guild(guildID)
	if err != nil {
		guild, err = d.session.Guild(guildID)
		if err != nil {
			return "", nil, fmt.Errorf("failed to fetch guild %s: %w", guildID, err)
		}
	}

	adminRoles := make(map[string]bool)
	for _, role := range guild.Roles {
		if role.Permissions&discordgo.PermissionAdministrator != 0 {
			adminRoles[role.ID] = true
		}
	}
	return guild.OwnerID, adminRoles, nil
}

func (d *DiscordDirectory) cachedMembers(guildID, ownerID string, adminRoles map[string]bool) []Member {
	guild, err := d.session.State.Guild(guildID)
	if err != nil {
		return nil
	}
	members := make([]Member, 0, len(guild.Members))
	for _, m := range guild.Members {
		members = append(members, toMember(m, ownerID, adminRoles))
	}
	return members
}

func (d *DiscordDirectory) toHistoryChannel(ch *discordgo.Channel) HistoryChannel {
	visible := false
	perms, err := d.session.State.UserChannelPermissions(d.session.State.User.ID, ch.ID)
	if err == nil {
		visible = perms&discordgo.PermissionViewChannel != 0 &&
			perms&discordgo.PermissionReadMessageHistory != 0
	}
	return HistoryChannel{
		ID:              ch.ID,
		Name:            ch.Name,
		SupportsHistory: isTextBased(ch.Type),
		Visible:         visible,
	}
}

func toMember(m *discordgo.Member, ownerID string, adminRoles map[string]bool) Member {
	member := Member{
		UserID:  m.User.ID,
		IsBot:   m.User.Bot,
		IsOwner: m.User.ID == ownerID,
		RoleIDs: m.Roles,
	}
	for _, roleID := range m.Roles {
		if adminRoles[roleID] {
			member.IsAdmin = true
			break
		}
	}
	return member
}

func isTextBased(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText,
		discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildNewsThread,
		discordgo.ChannelTypeGuildPublicThread,
		discordgo.ChannelTypeGuildPrivateThread:
		return true
	default:
		return false
	}
}
