package i

import "context"

// RankedPlayer is one leaderboard entry.
type RankedPlayer struct {
	Username string `json:"username"`
	Wins     int64  `json:"wins"`
}

// Leaderboard records game wins and serves ranked listings.
type Leaderboard interface {
	// RecordWin increments the win count of a player by one.
	RecordWin(ctx context.Context, username string) error

	// TopPlayers returns up to n players ordered by wins, highest first.
	TopPlayers(ctx context.Context, n int64) ([]RankedPlayer, error)
}
