package services

import (
	"context"
	"fmt"
	"time"

	"PruneBot/errorhandler"
	"PruneBot/logger"

	"golang.org/x/time/rate"
)

const (
	historyPageSize = 100
	minChannelLimit = 100
	maxChannelLimit = 20000
)

// HistoryChannel is the capability view of a channel the hydrator needs:
// whether the bot can see it and whether it carries message history.
type HistoryChannel struct {
	ID              string
	Name            string
	SupportsHistory bool
	Visible         bool
}

// HistoryMessage is one message from a history page, newest first within a
// page as the platform returns them.
type HistoryMessage struct {
	ID        string
	AuthorID  string
	AuthorBot bool
	Timestamp time.Time
}

// HistoryBrowser pages through a guild's message history.
type HistoryBrowser interface {
	ListChannels(ctx context.Context, guildID string) ([]HistoryChannel, error)
	ListThreads(ctx context.Context, guildID, channelID string) ([]HistoryChannel, error)
	MessagesBefore(ctx context.Context, channelID, beforeID string, limit int) ([]HistoryMessage, error)
}

// HydrationStats summarizes one hydration run.
type HydrationStats struct {
	ChannelsScanned int
	MessagesScanned int
	UsersTouched    int
}

// Hydrator retroactively fills last-message timestamps from channel history,
// for members whose activity predates the live listeners. Page fetches are
// paced by a rate limiter and retried a bounded number of times before the
// page, not the run, is abandoned.
type Hydrator struct {
	store      ActivityWriter
	browser    HistoryBrowser
	limiter    *rate.Limiter
	maxRetries int
	now        func() time.Time
}

func NewHydrator(store ActivityWriter, browser HistoryBrowser, pageInterval time.Duration, maxRetries int) *Hydrator {
	if pageInterval <= 0 {
		pageInterval = time.Second
	}
	return &Hydrator{
		store:      store,
		browser:    browser,
		limiter:    rate.NewLimiter(rate.Every(pageInterval), 1),
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Hydrate scans message history across the guild (or one target channel) and
// records every non-bot message inside the window. A channel erroring
// mid-scan is skipped with its partial progress kept.
func (h *Hydrator) Hydrate(ctx context.Context, guildID string, windowDays, perChannelLimit int, targetChannelID string, includeThreads bool) (HydrationStats, error) {
	perChannelLimit = clampChannelLimit(perChannelLimit)
	cutoff := h.now().UnixMilli() - int64(clampWindowDays(windowDays))*millisPerDay

	channels, err := h.candidateChannels(ctx, guildID, targetChannelID, includeThreads)
	if err != nil {
		return HydrationStats{}, err
	}

	stats := HydrationStats{}
	touched := make(map[string]struct{})

	for _, channel := range channels {
		scanned := h.scanChannel(ctx, guildID, channel, cutoff, perChannelLimit, touched)
		stats.ChannelsScanned++
		stats.MessagesScanned += scanned
		if ctx.Err() != nil {
			break
		}
	}

	stats.UsersTouched = len(touched)
	return stats, nil
}

func (h *Hydrator) candidateChannels(ctx context.Context, guildID, targetChannelID string, includeThreads bool) ([]HistoryChannel, error) {
	all, err := h.browser.ListChannels(ctx, guildID)
	if err != nil {
		return nil, errorhandler.NewDiscordError(err, "listing guild channels")
	}

	var candidates []HistoryChannel
	for _, channel := range all {
		if !channel.SupportsHistory || !channel.Visible {
			continue
		}
		if targetChannelID != "" && channel.ID != targetChannelID {
			continue
		}
		candidates = append(candidates, channel)

		if includeThreads {
			threads, err := h.browser.ListThreads(ctx, guildID, channel.ID)
			if err != nil {
				logger.Log.WithError(err).
					WithField("channel", channel.ID).
					Warn("Failed to list threads, scanning parent channel only")
				continue
			}
			candidates = append(candidates, threads...)
		}
	}

	if targetChannelID != "" && len(candidates) == 0 {
		return nil, errorhandler.NewConfigurationError(nil,
			"That channel does not exist or is not readable by the bot.")
	}
	return candidates, nil
}

// scanChannel pages backward through one channel's history until the limit
// is reached or the oldest message of a page predates the cutoff. History is
// chronologically monotonic, so the early stop is safe.
func (h *Hydrator) scanChannel(ctx context.Context, guildID string, channel HistoryChannel, cutoff int64, limit int, touched map[string]struct{}) int {
	scanned := 0
	before := ""

	for scanned < limit {
		page, err := h.fetchPage(ctx, channel.ID, before)
		if err != nil {
			logger.Log.WithError(err).
				WithField("guild", guildID).
				WithField("channel", channel.ID).
				Warn("Abandoning channel history scan, keeping partial progress")
			return scanned
		}
		if len(page) == 0 {
			return scanned
		}

		pastCutoff := false
		for _, msg := range page {
			scanned++
			ts := msg.Timestamp.UnixMilli()
			if ts < cutoff {
				pastCutoff = true
				continue
			}
			if msg.AuthorBot {
				continue
			}
			// History pages backwards: an older page must never clobber a
			// fresher timestamp from the live listener or an earlier page.
			if err := h.store.RecordMessageIfNewer(guildID, msg.AuthorID, ts); err != nil {
				logger.Log.WithError(err).
					WithField("user", msg.AuthorID).
					Warn("Failed to record hydrated message")
				continue
			}
			touched[msg.AuthorID] = struct{}{}
		}

		if pastCutoff {
			return scanned
		}
		before = page[len(page)-1].ID
	}

	return scanned
}

func (h *Hydrator) fetchPage(ctx context.Context, channelID, beforeID string) ([]HistoryMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := h.browser.MessagesBefore(ctx, channelID, beforeID, historyPageSize)
		if err == nil {
			return page, nil
		}
		lastErr = err
		logger.Log.WithError(err).
			WithField("channel", channelID).
			WithField("attempt", attempt+1).
			Debug("History page fetch failed")
	}
	return nil, fmt.Errorf("history page fetch failed after %d attempts: %w", h.maxRetries+1, lastErr)
}

func clampChannelLimit(limit int) int {
	if limit < minChannelLimit {
		return minChannelLimit
	}
	if limit > maxChannelLimit {
		return maxChannelLimit
	}
	return limit
}
