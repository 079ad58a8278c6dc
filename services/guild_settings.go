package services

import (
	"errors"
	"fmt"

	"PruneBot/errorhandler"
	"PruneBot/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Report channel kinds accepted by SetReportChannel.
const (
	ReportKindModLog   = "modlog"
	ReportKindSnapshot = "snapshot"
)

// Default channel names used as the last-resort lookup when neither an
// explicit setting nor an environment default exists.
const (
	defaultModLogChannelName   = "mod-log"
	defaultSnapshotChannelName = "activity-log"
)

// ChannelResolver answers capability questions about channels without
// exposing platform types to the core.
type ChannelResolver interface {
	IsTextChannel(guildID, channelID string) bool
	FindTextChannel(guildID, name string) (string, bool)
}

// SettingsService owns GuildSettings persistence and report-channel
// resolution.
type SettingsService struct {
	db       *gorm.DB
	resolver ChannelResolver

	// Environment-level fallbacks, used when a guild has no explicit setting.
	DefaultModLogChannelID   string
	DefaultSnapshotChannelID string
}

func NewSettingsService(db *gorm.DB, resolver ChannelResolver) *SettingsService {
	return &SettingsService{db: db, resolver: resolver}
}

// SetReportChannel persists the report channel for the given kind. The
// channel must exist and be text-capable; otherwise the call is rejected
// with no state mutation.
func (s *SettingsService) SetReportChannel(guildID, kind, channelID string) error {
	if !s.resolver.IsTextChannel(guildID, channelID) {
		return errorhandler.NewConfigurationError(nil,
			"That channel does not exist or is not a text channel.")
	}

	var column string
	switch kind {
	case ReportKindModLog:
		column = "mod_log_channel_id"
	case ReportKindSnapshot:
		column = "snapshot_channel_id"
	default:
		return errorhandler.NewConfigurationError(nil,
			fmt.Sprintf("Unknown report kind %q.", kind))
	}

	settings := models.GuildSettings{GuildID: guildID}
	if kind == ReportKindModLog {
		settings.ModLogChannelID = channelID
	} else {
		settings.SnapshotChannelID = channelID
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{column: channelID}),
	}).Create(&settings).Error
	if err != nil {
		return errorhandler.NewDatabaseError(err, "saving guild settings")
	}
	return nil
}

// Get returns the stored settings, or the zero value when none exist.
func (s *SettingsService) Get(guildID string) (models.GuildSettings, error) {
	var settings models.GuildSettings
	err := s.db.Where("guild_id = ?", guildID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.GuildSettings{GuildID: guildID}, nil
	}
	if err != nil {
		return models.GuildSettings{GuildID: guildID},
			fmt.Errorf("failed to load guild settings for %s: %w", guildID, err)
	}
	return settings, nil
}

// ResolveModLogChannel picks the inactivity-report channel: explicit setting,
// then the environment default, then a by-name lookup.
func (s *SettingsService) ResolveModLogChannel(guildID string) (string, bool) {
	return s.resolve(guildID, ReportKindModLog)
}

// ResolveSnapshotChannel picks the snapshot channel with the same fallbacks.
func (s *SettingsService) ResolveSnapshotChannel(guildID string) (string, bool) {
	return s.resolve(guildID, ReportKindSnapshot)
}

func (s *SettingsService) resolve(guildID, kind string) (string, bool) {
	settings, err := s.Get(guildID)
	if err == nil {
		if kind == ReportKindModLog && settings.ModLogChannelID != "" {
			return settings.ModLogChannelID, true
		}
		if kind == ReportKindSnapshot && settings.SnapshotChannelID != "" {
			return settings.SnapshotChannelID, true
		}
	}

	fallback := s.DefaultModLogChannelID
	name := defaultModLogChannelName
	if kind == ReportKindSnapshot {
		fallback = s.DefaultSnapshotChannelID
		name = defaultSnapshotChannelName
	}
	if fallback != "" && s.resolver.IsTextChannel(guildID, fallback) {
		return fallback, true
	}
	return s.resolver.FindTextChannel(guildID, name)
}
