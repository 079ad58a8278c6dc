package services

import (
	"sync"
	"testing"

	"PruneBot/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A single pooled connection keeps the shared in-memory database and
	// serializes writers the way the production pool's row locks would.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func TestActivityStore_GetMissingReturnsZeroRecord(t *testing.T) {
	store := NewActivityStore(newTestDB(t))

	record, err := store.Get("g1", "u1")

	require.NoError(t, err)
	assert.Equal(t, "g1", record.GuildID)
	assert.Equal(t, "u1", record.UserID)
	assert.Zero(t, record.LastMessageAt)
	assert.Zero(t, record.LastVoiceAt)
	assert.Zero(t, record.VoiceSecondsTotal)
}

func TestActivityStore_RecordMessageCreatesAndOverwrites(t *testing.T) {
	store := NewActivityStore(newTestDB(t))

	require.NoError(t, store.RecordMessage("g1", "u1", 1000))
	require.NoError(t, store.RecordMessage("g1", "u1", 2000))

	record, err := store.Get("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), record.LastMessageAt)
}

func TestActivityStore_RecordMessageIdempotent(t *testing.T) {
	store := NewActivityStore(newTestDB(t))

	require.NoError(t, store.RecordMessage("g1", "u1", 1000))
	before, err := store.Get("g1", "u1")
	require.NoError(t, err)

	require.NoError(t, store.RecordMessage("g1", "u1", 1000))
	after, err := store.Get("g1", "u1")
	require.NoError(t, err)

	assert.Equal(t, before.LastMessageAt, after.LastMessageAt)
	assert.Equal(t, before.LastVoiceAt, after.LastVoiceAt)
	assert.Equal(t, before.VoiceSecondsTotal, after.VoiceSecondsTotal)
}

func TestActivityStore_RecordMessageIfNewerNeverRegresses(t *testing.T) {
	store := NewActivityStore(newTestDB(t))

	require.NoError(t, store.RecordMessage("g1", "u1", 5000))
	// Backfilled older messages must not move the timestamp backwards.
	require.NoError(t, store.RecordMessageIfNewer("g1", "u1", 3000))

	record, err := store.Get("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), record.LastMessageAt)

	require.NoError(t, store.RecordMessageIfNewer("g1", "u1", 7000))
	record, err = store.Get("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), record.LastMessageAt)
}

func TestActivityStore_RecordMessageIfNewerCreatesRecord(t *testing.T) {
	store := NewActivityStore(newTestDB(t))

	require.NoError(t, store.RecordMessageIfNewer("g1", "u1", 4000))

	record, err := store.Get("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(4000), record.LastMessageAt)
}

func TestActivityStore_RecordVoiceJoinMonotonicGuard(t *testing.T) {
	store := NewActivityStore(newTestDB(t))

	require.NoError(t, store.RecordVoiceJoin("g1", "u1", 5000))
	// Out-of-order delivery: the earlier timestamp never wins.
	require.NoError(t, store.RecordVoiceJoin("g1", "u1", 3000))

	record, err := store.Get("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), record.LastVoiceAt)

	require.NoError(t, store.RecordVoiceJoin("g1", "u1", 7000))
	record, err = store.Get("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(7000), record.LastVoiceAt)
}

func TestActivityStore_AddVoiceSecondsAccumulates(t *testing.T) {
	store := NewActivityStore(newTestDB(t))

	require.NoError(t, store.AddVoiceSeconds("g1", "u1", 100, 1000))
	require.NoError(t, store.AddVoiceSeconds("g1", "u1", 150, 2000))

	record, err := store.Get("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(250), record.VoiceSecondsTotal)
	assert.Equal(t, int64(2000), record.LastVoiceAt)
}

func TestActivityStore_AddVoiceSecondsDropsNegativeDelta(t *testing.T) {
	store := NewActivityStore(newTestDB(t))

	require.NoError(t, store.AddVoiceSeconds("g1", "u1", 100, 1000))
	require.NoError(t, store.AddVoiceSeconds("g1", "u1", -50, 2000))

	record, err := store.Get("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), record.VoiceSecondsTotal)
}

func TestActivityStore_ConcurrentAddVoiceSeconds(t *testing.T) {
	store := NewActivityStore(newTestDB(t))

	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_ = store.AddVoiceSeconds("g1", "u1", 1, 1000)
			}
		}()
	}
	wg.Wait()

	record, err := store.Get("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), record.VoiceSecondsTotal)
}

func TestActivityStore_KeysAreIsolated(t *testing.T) {
	store := NewActivityStore(newTestDB(t))

	require.NoError(t, store.RecordMessage("g1", "u1", 1000))
	require.NoError(t, store.RecordMessage("g1", "u2", 2000))
	require.NoError(t, store.RecordMessage("g2", "u1", 3000))

	record, err := store.Get("g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), record.LastMessageAt)

	record, err = store.Get("g2", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), record.LastMessageAt)
}

func TestActivityStore_CountActiveSince(t *testing.T) {
	store := NewActivityStore(newTestDB(t))

	require.NoError(t, store.RecordMessage("g1", "recent-msg", 9000))
	require.NoError(t, store.RecordVoiceJoin("g1", "recent-voice", 9500))
	require.NoError(t, store.RecordMessage("g1", "stale", 100))
	require.NoError(t, store.RecordMessage("g2", "other-guild", 9999))

	count, err := store.CountActiveSince("g1", 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
