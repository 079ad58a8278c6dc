package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PruneBot/logger"

	"github.com/bwmarrin/discordgo"
)

const reportPreviewLimit = 50

// ActivityCounter is the aggregate-read side of the activity store used by
// the snapshot job.
type ActivityCounter interface {
	CountActiveSince(guildID string, sinceMillis int64) (int64, error)
}

// ReportService builds the two scheduled, read-only reports. The builders
// are pure functions of a guild: they return content and a target channel
// and never remove members or mutate state.
type ReportService struct {
	scanner  *Scanner
	counter  ActivityCounter
	settings *SettingsService

	WindowDays      int
	MinVoiceMinutes int

	now func() time.Time
}

func NewReportService(scanner *Scanner, counter ActivityCounter, settings *SettingsService) *ReportService {
	return &ReportService{
		scanner:  scanner,
		counter:  counter,
		settings: settings,
		now:      time.Now,
	}
}

// BuildInactivityReport scans the guild with the configured defaults and
// formats the result. Returns ok=false when no report channel is resolvable.
func (r *ReportService) BuildInactivityReport(ctx context.Context, guildID string) (content, channelID string, ok bool, err error) {
	channelID, ok = r.settings.ResolveModLogChannel(guildID)
	if !ok {
		return "", "", false, nil
	}

	inactive, err := r.scanner.Scan(ctx, guildID, r.WindowDays, r.MinVoiceMinutes, "")
	if err != nil {
		return "", "", false, err
	}

	return FormatInactiveList(inactive, r.WindowDays), channelID, true, nil
}

// BuildActivitySnapshot reports the distinct-active-member count over the
// trailing 24 hours.
func (r *ReportService) BuildActivitySnapshot(guildID string) (content, channelID string, ok bool, err error) {
	channelID, ok = r.settings.ResolveSnapshotChannel(guildID)
	if !ok {
		return "", "", false, nil
	}

	since := r.now().Add(-24 * time.Hour).UnixMilli()
	count, err := r.counter.CountActiveSince(guildID, since)
	if err != nil {
		return "", "", false, err
	}

	content = fmt.Sprintf("Daily activity snapshot: %d distinct members active in the last 24h.", count)
	return content, channelID, true, nil
}

// FormatInactiveList renders a count plus a bounded preview of member
// mentions.
func FormatInactiveList(userIDs []string, windowDays int) string {
	if len(userIDs) == 0 {
		return fmt.Sprintf("No members inactive for more than %d days.", windowDays)
	}

	preview := userIDs
	if len(preview) > reportPreviewLimit {
		preview = preview[:reportPreviewLimit]
	}
	mentions := make([]string, 0, len(preview))
	for _, id := range preview {
		mentions = append(mentions, "<@"+id+">")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d members inactive for more than %d days:\n", len(userIDs), windowDays)
	b.WriteString(strings.Join(mentions, ", "))
	if len(userIDs) > reportPreviewLimit {
		fmt.Fprintf(&b, "\n…and %d more.", len(userIDs)-reportPreviewLimit)
	}
	return b.String()
}

// StartDailyReports runs both report jobs on a fixed interval across every
// guild the session is in. Posting is best effort per guild; neither job may
// trigger removals.
func (r *ReportService) StartDailyReports(s *discordgo.Session, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			r.runReports(s)
		}
	}()
}

func (r *ReportService) runReports(s *discordgo.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	for _, guild := range s.State.Guilds {
		content, channelID, ok, err := r.BuildInactivityReport(ctx, guild.ID)
		if err != nil {
			logger.Log.WithError(err).
				WithField("guild", guild.ID).
				Error("Failed to build inactivity report")
		} else if ok {
			if _, err := s.ChannelMessageSend(channelID, content); err != nil {
				logger.Log.WithError(err).
					WithField("guild", guild.ID).
					Error("Failed to post inactivity report")
			}
		}

		content, channelID, ok, err = r.BuildActivitySnapshot(guild.ID)
		if err != nil {
			logger.Log.WithError(err).
				WithField("guild", guild.ID).
				Error("Failed to build activity snapshot")
		} else if ok {
			if _, err := s.ChannelMessageSend(channelID, content); err != nil {
				logger.Log.WithError(err).
					WithField("guild", guild.ID).
					Error("Failed to post activity snapshot")
			}
		}
	}
}
