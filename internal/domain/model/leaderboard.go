package model

// RankEntry is one row of a category's leaderboard, ordered by total rate
// score descending.
type RankEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}
