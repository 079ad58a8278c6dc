package services

import (
	"sync"
	"time"

	"PruneBot/logger"
)

// ActivityWriter is the slice of the activity store the event listeners and
// the hydrator need.
type ActivityWriter interface {
	RecordMessage(guildID, userID string, tsMillis int64) error
	RecordMessageIfNewer(guildID, userID string, tsMillis int64) error
	RecordVoiceJoin(guildID, userID string, tsMillis int64) error
	AddVoiceSeconds(guildID, userID string, deltaSeconds, tsMillis int64) error
}

type voiceSession struct {
	Start     time.Time
	ChannelID string
}

// VoiceTracker reconciles voice-state transitions into durable seconds. It is
// the only writer that computes elapsed-seconds deltas. The session map is
// in-memory only; a restart loses in-flight session starts and the partial
// duration is accepted as lost.
type VoiceTracker struct {
	mu       sync.Mutex
	sessions map[string]voiceSession // key: guildID:userID
	store    ActivityWriter
	now      func() time.Time
}

func NewVoiceTracker(store ActivityWriter) *VoiceTracker {
	return &VoiceTracker{
		sessions: make(map[string]voiceSession),
		store:    store,
		now:      time.Now,
	}
}

// HandleVoiceState processes one voice-state observation for a member.
// channelID is the channel the member is now connected to, or "" when
// disconnected. The tracked session map is the source of truth for the
// previous state, so a disconnect with no tracked start attributes nothing.
func (t *VoiceTracker) HandleVoiceState(guildID, userID, channelID string) {
	now := t.now()
	key := guildID + ":" + userID

	t.mu.Lock()
	defer t.mu.Unlock()

	sess, tracked := t.sessions[key]

	if channelID == "" {
		if tracked {
			t.flush(guildID, userID, sess, now)
			delete(t.sessions, key)
		}
		return
	}

	if tracked {
		if sess.ChannelID == channelID {
			return
		}
		// Channel move: flush strictly before reopening so the boundary
		// second is neither lost nor double-counted.
		t.flush(guildID, userID, sess, now)
	}

	t.sessions[key] = voiceSession{Start: now, ChannelID: channelID}
	if err := t.store.RecordVoiceJoin(guildID, userID, now.UnixMilli()); err != nil {
		logger.Log.WithError(err).
			WithField("guild", guildID).
			WithField("user", userID).
			Error("Failed to record voice join, dropping event")
	}
}

func (t *VoiceTracker) flush(guildID, userID string, sess voiceSession, now time.Time) {
	delta := int64(now.Sub(sess.Start).Seconds())
	if delta < 0 {
		delta = 0
	}
	if err := t.store.AddVoiceSeconds(guildID, userID, delta, now.UnixMilli()); err != nil {
		logger.Log.WithError(err).
			WithField("guild", guildID).
			WithField("user", userID).
			Error("Failed to flush voice session, dropping event")
	}
}

// OpenSessions reports how many sessions are currently tracked.
func (t *VoiceTracker) OpenSessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
