package server

import (
	"context"
	"time"

	"github.com/Jansyler/Rigradar/internal/model"
	"github.com/Jansyler/Rigradar/internal/watchdog"
)

type Server struct {
	DB          store
	Engine      watchdog.Engine
	Logger      logger
	CronSecret  string
	RadarAPIKey string
	SiteURL     string
}

type store interface {
	WatchInsert(ctx context.Context, id string, w model.Watch) error
	WatchUpdate(ctx context.Context, id string, w model.Watch) error
	WatchFind(ctx context.Context, id string) (model.Watch, error)
	WatchFindAll(ctx context.Context) ([]model.StoredWatch, error)
	WatchFindByOwner(ctx context.Context, email string) ([]model.StoredWatch, error)
	WatchDelete(ctx context.Context, id string) (bool, error)
	HistoryFindRecent(ctx context.Context, n int64) ([]model.PriceObservation, error)
	HistoryInsert(ctx context.Context, o model.PriceObservation) error
	ScanRequestEnqueue(ctx context.Context, sr model.ScanRequest) error
	HeartbeatSet(ctx context.Context, t time.Time) error
	SessionFindEmail(ctx context.Context, token string) (string, error)
	PremiumFind(ctx context.Context, email string) (model.PremiumStatus, error)
	RateLimitIncr(ctx context.Context, clientIP string, ttl time.Duration) (int64, error)
}

type logger interface {
	Debug(v ...any)
	Info(v ...any)
	Error(v ...any)
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
}

// EvaluateInInterval runs the watchdog evaluation pass on every tick, for
// deployments without an external cron scheduler.
func (s Server) EvaluateInInterval(ctx context.Context, ticker *time.Ticker) {
	for range ticker.C {
		if _, err := s.Engine.RunPass(ctx); err != nil {
			s.Logger.Errorf("EvaluateInInterval: Error running watchdog evaluation pass, err: %v", err)
		}
	}
}
