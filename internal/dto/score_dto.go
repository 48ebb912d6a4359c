package dto

import "github.com/noah-isme/darsbot-api/internal/repository"

// Leaderboard windows accepted by the reporting surfaces.
const (
	WindowAll   = "all"
	WindowWeek  = "week"
	WindowMonth = "month"
)

// LeaderboardEntry is a single ranked row.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   int64  `json:"user_id"`
	FullName string `json:"full_name"`
	Points   int    `json:"points"`
}

// NewLeaderboard converts repository rows into ranked entries.
func NewLeaderboard(rows []repository.LeaderboardRow) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(rows))
	for idx, row := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:     idx + 1,
			UserID:   row.UserID,
			FullName: row.FullName,
			Points:   row.Points,
		})
	}
	return entries
}
