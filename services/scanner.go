package services

import (
	"context"
	"time"

	"PruneBot/errorhandler"
	"PruneBot/logger"
	"PruneBot/models"
)

const millisPerDay = 86400000

// A century of days. Windows are clamped here so the cutoff arithmetic can
// never overflow int64 millis on absurd inputs.
const maxWindowDays = 36500

func clampWindowDays(days int) int {
	if days < 0 {
		return 0
	}
	if days > maxWindowDays {
		return maxWindowDays
	}
	return days
}

// Member is the platform-independent view of a guild member the scanner
// needs. Only the discord adapter ever touches the concrete platform types.
type Member struct {
	UserID  string
	IsBot   bool
	IsOwner bool
	IsAdmin bool
	RoleIDs []string
}

func (m Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// MemberDirectory lists, fetches and removes guild members.
type MemberDirectory interface {
	ListMembers(ctx context.Context, guildID string) ([]Member, error)
	FetchMember(ctx context.Context, guildID, userID string) (Member, error)
	RemoveMember(ctx context.Context, guildID, userID, reason string) error
}

// ActivityReader is the read side of the activity store.
type ActivityReader interface {
	Get(guildID, userID string) (models.ActivityRecord, error)
}

// Scanner applies protection rules and the inactivity classifier over a
// guild's full membership.
type Scanner struct {
	store     ActivityReader
	directory MemberDirectory
	now       func() time.Time
}

func NewScanner(store ActivityReader, directory MemberDirectory) *Scanner {
	return &Scanner{
		store:     store,
		directory: directory,
		now:       time.Now,
	}
}

// Scan returns the members inactive for more than windowDays, in membership
// listing order. Read-only: it never removes anyone. A failed membership
// listing fails the scan; a failed per-member record lookup degrades to the
// zero record.
func (sc *Scanner) Scan(ctx context.Context, guildID string, windowDays, minVoiceMinutes int, excludeRoleID string) ([]string, error) {
	if minVoiceMinutes < 0 {
		minVoiceMinutes = 0
	}
	windowDays = clampWindowDays(windowDays)
	cutoff := sc.now().UnixMilli() - int64(windowDays)*millisPerDay
	minVoiceSeconds := int64(minVoiceMinutes) * 60

	members, err := sc.directory.ListMembers(ctx, guildID)
	if err != nil {
		return nil, errorhandler.NewScanError(err, "listing guild members")
	}

	var inactive []string
	for _, member := range members {
		if isProtected(member) {
			continue
		}
		if excludeRoleID != "" && member.HasRole(excludeRoleID) {
			continue
		}

		record, err := sc.store.Get(guildID, member.UserID)
		if err != nil {
			logger.Log.WithError(err).
				WithField("guild", guildID).
				WithField("user", member.UserID).
				Warn("Activity lookup failed during scan, treating as no record")
		}
		if IsInactive(record, cutoff, minVoiceSeconds) {
			inactive = append(inactive, member.UserID)
		}
	}

	return inactive, nil
}

// Prune removes the given members after re-fetching each one and re-checking
// the protection rules. It refuses to run without explicit confirmation and
// must never be called from a scheduled job. Per-member failures are logged
// and skipped; the returned slice holds the members actually removed.
func (sc *Scanner) Prune(ctx context.Context, guildID string, userIDs []string, confirmed bool) ([]string, error) {
	if !confirmed {
		return nil, errorhandler.NewConfigurationError(nil,
			"Removal requires explicit confirmation. Re-run with confirm set to \"true\".")
	}

	removed := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		member, err := sc.directory.FetchMember(ctx, guildID, userID)
		if err != nil {
			logger.Log.WithError(err).
				WithField("guild", guildID).
				WithField("user", userID).
				Warn("Could not re-fetch member for removal, skipping")
			continue
		}
		if isProtected(member) {
			logger.Log.WithField("guild", guildID).
				WithField("user", userID).
				Info("Member became protected since scan, skipping removal")
			continue
		}

		if err := sc.directory.RemoveMember(ctx, guildID, userID, "Inactivity prune"); err != nil {
			logger.Log.WithError(err).
				WithField("guild", guildID).
				WithField("user", userID).
				Warn("Failed to remove member")
			continue
		}
		removed = append(removed, userID)
	}

	return removed, nil
}

// Bot accounts, the guild owner and administrator holders are never
// candidates, regardless of their activity timestamps.
func isProtected(m Member) bool {
	return m.IsBot || m.IsOwner || m.IsAdmin
}
