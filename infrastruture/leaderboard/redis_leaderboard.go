package leaderboard

import (
	"context"

	"github.com/beka-birhanu/gridhunt-server/service/i"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const winsKey = "leaderboard:wins"

// RedisLeaderboard keeps the all-time win counts in a Redis sorted set.
type RedisLeaderboard struct {
	client *redis.Client
	locker *redsync.Redsync
}

// NewRedisLeaderboard initializes a RedisLeaderboard with the provided Redis client.
func NewRedisLeaderboard(client *redis.Client) (*RedisLeaderboard, error) {
	board := &RedisLeaderboard{
		client: client,
	}
	pool := goredis.NewPool(client)
	board.locker = redsync.New(pool)
	return board, nil
}

// RecordWin increments the win count for a player. A distributed mutex keeps
// concurrent game servers from double-counting the same game's result.
func (rl *RedisLeaderboard) RecordWin(ctx context.Context, username string) error {
	mutex := rl.locker.NewMutex(winsKey + ":record_lock")
	if err := mutex.Lock(); err != nil {
		return err
	}
	defer func() {
		_, _ = mutex.Unlock()
	}()

	return rl.client.ZIncrBy(ctx, winsKey, 1, username).Err()
}

// TopPlayers returns up to n players ordered by win count, highest first.
func (rl *RedisLeaderboard) TopPlayers(ctx context.Context, n int64) ([]i.RankedPlayer, error) {
	if n <= 0 {
		return nil, nil
	}

	entries, err := rl.client.ZRevRangeWithScores(ctx, winsKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	players := make([]i.RankedPlayer, 0, len(entries))
	for _, entry := range entries {
		name, ok := entry.Member.(string)
		if !ok {
			continue
		}
		players = append(players, i.RankedPlayer{
			Username: name,
			Wins:     int64(entry.Score),
		})
	}
	return players, nil
}
