package services

import "PruneBot/models"

// IsInactive decides whether a stored record counts as inactive relative to
// cutoffMillis. Three independent activity signals are OR'd: a message inside
// the window, a voice join inside the window, or a lifetime voice total
// meeting minVoiceSeconds. The lifetime quota is an intentional carve-out for
// long-time voice participants whose last session fell just outside the
// window. Unset timestamps are zero and therefore never inside the window.
func IsInactive(record models.ActivityRecord, cutoffMillis, minVoiceSeconds int64) bool {
	hasRecentMessage := record.LastMessageAt >= cutoffMillis
	hasRecentVoice := record.LastVoiceAt >= cutoffMillis
	meetsVoiceQuota := minVoiceSeconds > 0 && record.VoiceSecondsTotal >= minVoiceSeconds

	return !(hasRecentMessage || hasRecentVoice || meetsVoiceQuota)
}
