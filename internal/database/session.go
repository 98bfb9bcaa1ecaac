package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/pkg/errors"

	"github.com/Jansyler/Rigradar/internal/model"
)

// SessionFindEmail resolves an opaque session token to the owner email.
// Sessions are issued and expired by the auth subsystem, this is a read-only
// lookup.
func (db Database) SessionFindEmail(ctx context.Context, token string) (string, error) {
	email, err := db.Get(ctx, keyPrefixSession+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errors.Wrap(ErrSessionNotFound, "no session for token")
		}
		return "", errors.Wrap(err, "error finding session")
	}
	return email, nil
}

// PremiumFind returns the entitlement record for an email. A missing record
// is not an error, it comes back as an inactive zero value.
func (db Database) PremiumFind(ctx context.Context, email string) (model.PremiumStatus, error) {
	var ps model.PremiumStatus
	data, err := db.Get(ctx, keyPrefixPremium+email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ps, nil
		}
		return ps, errors.Wrapf(err, "error finding premium status for email: %s", email)
	}
	if err = json.Unmarshal([]byte(data), &ps); err != nil {
		return ps, errors.Wrapf(err, "error unmarshalling premium status for email: %s", email)
	}
	return ps, nil
}

// RateLimitIncr bumps the per-client scan request counter, starting a new
// window of ttl on the first hit, and returns the count in the window.
func (db Database) RateLimitIncr(ctx context.Context, clientIP string, ttl time.Duration) (int64, error) {
	key := keyPrefixRateLimit + clientIP
	count, err := db.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "error incrementing rate limit counter for: %s", clientIP)
	}
	if count == 1 {
		if err = db.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, errors.Wrapf(err, "error setting rate limit expiry for: %s", clientIP)
		}
	}
	return count, nil
}
