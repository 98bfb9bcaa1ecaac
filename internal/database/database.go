package database

import (
	"context"

	"github.com/go-redis/redis/v9"
	"github.com/pkg/errors"
)

const (
	KeyWatchdogs     = "watchdogs"
	KeyGlobalHistory = "global_history"
	KeyScanQueue     = "scan_queue"
	KeySystemStatus  = "system_status"

	keyPrefixSession   = "session:"
	keyPrefixPremium   = "premium:"
	keyPrefixRateLimit = "rate_limit:"
)

// HistoryCap bounds the global_history list, older observations are evicted
// on insert.
const HistoryCap = 200

type Database struct {
	*redis.Client
}

var (
	ErrWatchNotFound   = errors.New("watch not found")
	ErrSessionNotFound = errors.New("session not found")
)

func ConnectDB(ctx context.Context, redisURI string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing Redis URI: %s", redisURI)
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(err, "error pinging Redis at: %s", opts.Addr)
	}
	return c, nil
}
