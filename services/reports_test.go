package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	count int64
	since int64
}

func (f *fakeCounter) CountActiveSince(guildID string, sinceMillis int64) (int64, error) {
	f.since = sinceMillis
	return f.count, nil
}

func TestFormatInactiveList_Empty(t *testing.T) {
	out := FormatInactiveList(nil, 90)
	assert.Equal(t, "No members inactive for more than 90 days.", out)
}

func TestFormatInactiveList_BoundedPreview(t *testing.T) {
	ids := make([]string, 75)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%d", i)
	}

	out := FormatInactiveList(ids, 90)

	assert.Contains(t, out, "75 members inactive for more than 90 days")
	assert.Equal(t, reportPreviewLimit, strings.Count(out, "<@"))
	assert.Contains(t, out, "…and 25 more.")
}

func TestFormatInactiveList_SmallListHasNoSuffix(t *testing.T) {
	out := FormatInactiveList([]string{"u1", "u2"}, 30)

	assert.Contains(t, out, "<@u1>")
	assert.Contains(t, out, "<@u2>")
	assert.NotContains(t, out, "more.")
}

func TestBuildActivitySnapshot(t *testing.T) {
	resolver := &fakeResolver{textChannels: map[string]bool{"snap-ch": true}}
	settings := newTestSettings(t, resolver)
	require.NoError(t, settings.SetReportChannel("g1", ReportKindSnapshot, "snap-ch"))

	counter := &fakeCounter{count: 42}
	svc := NewReportService(nil, counter, settings)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	content, channelID, ok, err := svc.BuildActivitySnapshot("g1")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "snap-ch", channelID)
	assert.Contains(t, content, "42 distinct members")
	assert.Equal(t, now.Add(-24*time.Hour).UnixMilli(), counter.since)
}

func TestBuildActivitySnapshot_NoChannelResolvable(t *testing.T) {
	resolver := &fakeResolver{textChannels: map[string]bool{}}
	settings := newTestSettings(t, resolver)

	svc := NewReportService(nil, &fakeCounter{}, settings)

	_, _, ok, err := svc.BuildActivitySnapshot("g1")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuildInactivityReport(t *testing.T) {
	resolver := &fakeResolver{textChannels: map[string]bool{"log-ch": true}}
	settings := newTestSettings(t, resolver)
	require.NoError(t, settings.SetReportChannel("g1", ReportKindModLog, "log-ch"))

	directory := &fakeDirectory{members: []Member{{UserID: "stale"}}}
	scanner := newTestScanner(&fakeReader{}, directory)

	svc := NewReportService(scanner, &fakeCounter{}, settings)
	svc.WindowDays = 90

	content, channelID, ok, err := svc.BuildInactivityReport(context.Background(), "g1")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "log-ch", channelID)
	assert.Contains(t, content, "<@stale>")
}
