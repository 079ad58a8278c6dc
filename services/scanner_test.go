package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"PruneBot/errorhandler"
	"PruneBot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	members    []Member
	listErr    error
	fetchErr   map[string]error
	removeErr  map[string]error
	removed    []string
	fetchCalls []string
}

func (f *fakeDirectory) ListMembers(ctx context.Context, guildID string) ([]Member, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.members, nil
}

func (f *fakeDirectory) FetchMember(ctx context.Context, guildID, userID string) (Member, error) {
	f.fetchCalls = append(f.fetchCalls, userID)
	if err := f.fetchErr[userID]; err != nil {
		return Member{}, err
	}
	for _, m := range f.members {
		if m.UserID == userID {
			return m, nil
		}
	}
	return Member{UserID: userID}, nil
}

func (f *fakeDirectory) RemoveMember(ctx context.Context, guildID, userID, reason string) error {
	if err := f.removeErr[userID]; err != nil {
		return err
	}
	f.removed = append(f.removed, userID)
	return nil
}

type fakeReader struct {
	records map[string]models.ActivityRecord
	errs    map[string]error
}

func (f *fakeReader) Get(guildID, userID string) (models.ActivityRecord, error) {
	if err := f.errs[userID]; err != nil {
		return models.ActivityRecord{GuildID: guildID, UserID: userID}, err
	}
	return f.records[userID], nil
}

func newTestScanner(reader *fakeReader, directory *fakeDirectory) *Scanner {
	sc := NewScanner(reader, directory)
	sc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return sc
}

func recordActiveAt(now time.Time, age time.Duration) models.ActivityRecord {
	return models.ActivityRecord{LastMessageAt: now.Add(-age).UnixMilli()}
}

func TestScanner_SkipsProtectedMembers(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	directory := &fakeDirectory{members: []Member{
		{UserID: "bot", IsBot: true},
		{UserID: "owner", IsOwner: true},
		{UserID: "admin", IsAdmin: true},
		{UserID: "regular"},
	}}
	// Everyone is stale, including the protected members.
	reader := &fakeReader{records: map[string]models.ActivityRecord{
		"bot":     recordActiveAt(now, 365*24*time.Hour),
		"owner":   recordActiveAt(now, 365*24*time.Hour),
		"admin":   recordActiveAt(now, 365*24*time.Hour),
		"regular": recordActiveAt(now, 365*24*time.Hour),
	}}

	inactive, err := newTestScanner(reader, directory).Scan(context.Background(), "g1", 90, 0, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"regular"}, inactive)
}

func TestScanner_ExcludeRole(t *testing.T) {
	directory := &fakeDirectory{members: []Member{
		{UserID: "kept", RoleIDs: []string{"supporter"}},
		{UserID: "flagged"},
	}}
	reader := &fakeReader{records: map[string]models.ActivityRecord{}}

	inactive, err := newTestScanner(reader, directory).Scan(context.Background(), "g1", 90, 0, "supporter")

	require.NoError(t, err)
	assert.Equal(t, []string{"flagged"}, inactive)
}

func TestScanner_ClampsAbsurdWindows(t *testing.T) {
	assert.Equal(t, 0, clampWindowDays(-1))
	assert.Equal(t, 90, clampWindowDays(90))
	assert.Equal(t, maxWindowDays, clampWindowDays(1<<52))
}

func TestScanner_HugeWindowFlagsNobody(t *testing.T) {
	directory := &fakeDirectory{members: []Member{
		{UserID: "quiet"},
	}}
	reader := &fakeReader{records: map[string]models.ActivityRecord{}}

	// A window longer than a century covers every possible timestamp; the
	// cutoff arithmetic must not overflow into flagging everyone.
	inactive, err := newTestScanner(reader, directory).Scan(context.Background(), "g1", 1<<52, 0, "")

	require.NoError(t, err)
	assert.Empty(t, inactive)
}

func TestScanner_PreservesListingOrder(t *testing.T) {
	directory := &fakeDirectory{members: []Member{
		{UserID: "c"}, {UserID: "a"}, {UserID: "b"},
	}}
	reader := &fakeReader{records: map[string]models.ActivityRecord{}}

	inactive, err := newTestScanner(reader, directory).Scan(context.Background(), "g1", 90, 0, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, inactive)
}

func TestScanner_ActiveMembersAreSkipped(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	directory := &fakeDirectory{members: []Member{
		{UserID: "active"},
		{UserID: "inactive"},
	}}
	reader := &fakeReader{records: map[string]models.ActivityRecord{
		"active":   recordActiveAt(now, 10*24*time.Hour),
		"inactive": recordActiveAt(now, 120*24*time.Hour),
	}}

	inactive, err := newTestScanner(reader, directory).Scan(context.Background(), "g1", 90, 0, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"inactive"}, inactive)
}

func TestScanner_ListingFailureFailsScan(t *testing.T) {
	directory := &fakeDirectory{listErr: errors.New("gateway down")}
	reader := &fakeReader{}

	_, err := newTestScanner(reader, directory).Scan(context.Background(), "g1", 90, 0, "")

	require.Error(t, err)
	var customErr *errorhandler.CustomError
	require.ErrorAs(t, err, &customErr)
	assert.Equal(t, errorhandler.ScanError, customErr.Category)
}

func TestScanner_LookupFailureDegradesToNoRecord(t *testing.T) {
	directory := &fakeDirectory{members: []Member{{UserID: "u1"}}}
	reader := &fakeReader{errs: map[string]error{"u1": errors.New("disk error")}}

	inactive, err := newTestScanner(reader, directory).Scan(context.Background(), "g1", 90, 0, "")

	require.NoError(t, err)
	// No record means no observed activity: the member is flagged.
	assert.Equal(t, []string{"u1"}, inactive)
}

func TestScanner_PruneRequiresConfirmation(t *testing.T) {
	directory := &fakeDirectory{}
	reader := &fakeReader{}

	_, err := newTestScanner(reader, directory).Prune(context.Background(), "g1", []string{"u1"}, false)

	require.Error(t, err)
	assert.Empty(t, directory.removed)
	assert.Empty(t, directory.fetchCalls, "nothing may be fetched before confirmation")
}

func TestScanner_PruneRechecksProtection(t *testing.T) {
	// "u1" became an admin between scan and prune.
	directory := &fakeDirectory{members: []Member{
		{UserID: "u1", IsAdmin: true},
		{UserID: "u2"},
	}}
	reader := &fakeReader{}

	removed, err := newTestScanner(reader, directory).Prune(context.Background(), "g1", []string{"u1", "u2"}, true)

	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, removed)
	assert.Equal(t, []string{"u2"}, directory.removed)
}

func TestScanner_PruneContinuesPastFailures(t *testing.T) {
	directory := &fakeDirectory{
		members:   []Member{{UserID: "u1"}, {UserID: "u2"}, {UserID: "u3"}},
		fetchErr:  map[string]error{"u1": errors.New("unknown member")},
		removeErr: map[string]error{"u2": errors.New("missing permission")},
	}
	reader := &fakeReader{}

	removed, err := newTestScanner(reader, directory).Prune(context.Background(), "g1", []string{"u1", "u2", "u3"}, true)

	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, removed)
}
