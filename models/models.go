package models

import (
	"gorm.io/gorm"
)

// ActivityRecord holds the latest observed activity signals for one member
// of one guild. A missing row means no observed activity and reads as the
// zero value everywhere.
type ActivityRecord struct {
	gorm.Model
	GuildID           string `gorm:"uniqueIndex:idx_guild_user;size:32"`
	UserID            string `gorm:"uniqueIndex:idx_guild_user;size:32"`
	LastMessageAt     int64  `gorm:"default:0"` // Unix millis of the most recent observed message.
	LastVoiceAt       int64  `gorm:"default:0"` // Unix millis of the most recent voice join or move.
	VoiceSecondsTotal int64  `gorm:"default:0"` // Cumulative observed voice seconds; never decreases.
}

// GuildSettings stores per-guild report routing. Absence falls back to the
// environment default and then a by-name channel lookup.
type GuildSettings struct {
	gorm.Model
	GuildID           string `gorm:"uniqueIndex;size:32"`
	ModLogChannelID   string // Channel receiving the scheduled inactivity report.
	SnapshotChannelID string // Channel receiving the daily activity snapshot.
}
