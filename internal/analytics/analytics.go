// Package analytics aggregates the interaction log into daily usage figures
// for the chat assistant.
package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"shop-insights/internal/storage"
)

// DailyStats holds chat usage for one calendar day.
type DailyStats struct {
	Date              string                  `json:"date"`
	TotalMessages     int                     `json:"total_messages"`
	UniqueSessions    int                     `json:"unique_sessions"`
	FailedCompletions int                     `json:"failed_completions"`
	TotalTokens       int                     `json:"total_tokens"`
	MessagesByChannel map[string]int          `json:"messages_by_channel"`
	SessionStats      map[string]SessionStats `json:"session_stats"`
}

type SessionStats struct {
	SessionID string `json:"session_id"`
	Channel   string `json:"channel"`
	Messages  int    `json:"messages"`
	Failures  int    `json:"failures"`
}

// AnalyzeDailyLogs counts the events whose timestamp falls on targetDate in
// targetDate's location. Events without a user message are ignored.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:              startOfDay.Format("2006-01-02"),
		MessagesByChannel: make(map[string]int),
		SessionStats:      make(map[string]SessionStats),
	}

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		if event.UserMessage == "" {
			continue
		}

		stats.TotalMessages++
		stats.TotalTokens += event.TotalTokens
		stats.MessagesByChannel[channelOf(event)]++

		ss, ok := stats.SessionStats[event.SessionID]
		if !ok {
			ss = SessionStats{SessionID: event.SessionID, Channel: channelOf(event)}
		}
		ss.Messages++
		if event.Failed {
			ss.Failures++
			stats.FailedCompletions++
		}
		stats.SessionStats[event.SessionID] = ss
	}

	stats.UniqueSessions = len(stats.SessionStats)
	return stats
}

func channelOf(ev storage.Event) string {
	if ev.Channel == "" {
		return storage.ChannelWeb
	}
	return ev.Channel
}

// GenerateReportSummary renders a plain-text digest of the day.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Chatbot Insights usage for %s:\n\n", ds.Date)
	fmt.Fprintf(&b, "- Questions asked: %d\n", ds.TotalMessages)
	fmt.Fprintf(&b, "- Unique sessions: %d\n", ds.UniqueSessions)
	fmt.Fprintf(&b, "- Failed completions: %d\n", ds.FailedCompletions)
	fmt.Fprintf(&b, "- Tokens used: %d\n", ds.TotalTokens)

	if len(ds.MessagesByChannel) > 0 {
		b.WriteString("\nBy channel:\n")
		channels := make([]string, 0, len(ds.MessagesByChannel))
		for ch := range ds.MessagesByChannel {
			channels = append(channels, ch)
		}
		sort.Strings(channels)
		for _, ch := range channels {
			fmt.Fprintf(&b, "- %s: %d\n", ch, ds.MessagesByChannel[ch])
		}
	}
	return b.String()
}

// FailureRate is the share of failed completions, 0 when nothing was asked.
func (ds *DailyStats) FailureRate() float64 {
	if ds.TotalMessages == 0 {
		return 0
	}
	return float64(ds.FailedCompletions) / float64(ds.TotalMessages)
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
