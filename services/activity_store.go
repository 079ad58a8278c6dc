package services

import (
	"errors"
	"fmt"

	"PruneBot/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityStore owns ActivityRecord persistence. Every write is a single
// atomic upsert so voice flushes can race with scan reads safely.
type ActivityStore struct {
	db *gorm.DB
}

func NewActivityStore(db *gorm.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

var conflictTarget = []clause.Column{{Name: "guild_id"}, {Name: "user_id"}}

// monotonicMax keeps a timestamp column from moving backwards under
// out-of-order delivery.
func monotonicMax(column string, ts int64) interface{} {
	return gorm.Expr("CASE WHEN "+column+" > ? THEN "+column+" ELSE ? END", ts, ts)
}

// RecordMessage sets last_message_at, creating the record if absent.
// Re-delivery of the same timestamp leaves the record unchanged.
func (s *ActivityStore) RecordMessage(guildID, userID string, tsMillis int64) error {
	record := models.ActivityRecord{
		GuildID:       guildID,
		UserID:        userID,
		LastMessageAt: tsMillis,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: conflictTarget,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_message_at": tsMillis,
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to record message for %s/%s: %w", guildID, userID, err)
	}
	return nil
}

// RecordMessageIfNewer sets last_message_at only when tsMillis is newer than
// the stored value. History backfill pages backwards through time, so unlike
// the live listener it must never regress a fresher timestamp.
func (s *ActivityStore) RecordMessageIfNewer(guildID, userID string, tsMillis int64) error {
	record := models.ActivityRecord{
		GuildID:       guildID,
		UserID:        userID,
		LastMessageAt: tsMillis,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: conflictTarget,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_message_at": monotonicMax("last_message_at", tsMillis),
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to record backfilled message for %s/%s: %w", guildID, userID, err)
	}
	return nil
}

// RecordVoiceJoin sets last_voice_at, creating the record if absent. An
// earlier timestamp than the stored value never decreases it.
func (s *ActivityStore) RecordVoiceJoin(guildID, userID string, tsMillis int64) error {
	record := models.ActivityRecord{
		GuildID:     guildID,
		UserID:      userID,
		LastVoiceAt: tsMillis,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: conflictTarget,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_voice_at": monotonicMax("last_voice_at", tsMillis),
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to record voice join for %s/%s: %w", guildID, userID, err)
	}
	return nil
}

// AddVoiceSeconds accumulates a closed session's duration and advances
// last_voice_at, in one atomic statement. Negative deltas are dropped.
func (s *ActivityStore) AddVoiceSeconds(guildID, userID string, deltaSeconds, tsMillis int64) error {
	if deltaSeconds < 0 {
		deltaSeconds = 0
	}
	record := models.ActivityRecord{
		GuildID:           guildID,
		UserID:            userID,
		LastVoiceAt:       tsMillis,
		VoiceSecondsTotal: deltaSeconds,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns: conflictTarget,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"voice_seconds_total": gorm.Expr("voice_seconds_total + ?", deltaSeconds),
			"last_voice_at":       monotonicMax("last_voice_at", tsMillis),
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to add voice seconds for %s/%s: %w", guildID, userID, err)
	}
	return nil
}

// Get returns the stored record, or the zero record when none exists.
// A missing row is not an error.
func (s *ActivityStore) Get(guildID, userID string) (models.ActivityRecord, error) {
	var record models.ActivityRecord
	err := s.db.Where("guild_id = ? AND user_id = ?", guildID, userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ActivityRecord{GuildID: guildID, UserID: userID}, nil
	}
	if err != nil {
		return models.ActivityRecord{GuildID: guildID, UserID: userID},
			fmt.Errorf("failed to load activity record for %s/%s: %w", guildID, userID, err)
	}
	return record, nil
}

// CountActiveSince counts members with any activity signal at or after
// sinceMillis. Used by the daily snapshot.
func (s *ActivityStore) CountActiveSince(guildID string, sinceMillis int64) (int64, error) {
	var count int64
	err := s.db.Model(&models.ActivityRecord{}).
		Where("guild_id = ? AND (last_message_at >= ? OR last_voice_at >= ?)",
			guildID, sinceMillis, sinceMillis).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active members for %s: %w", guildID, err)
	}
	return count, nil
}
