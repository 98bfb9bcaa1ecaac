package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/Jansyler/Rigradar/internal/model"
)

func (db Database) ScanRequestEnqueue(ctx context.Context, sr model.ScanRequest) error {
	data, err := json.Marshal(sr)
	if err != nil {
		return errors.Wrapf(err, "error marshalling ScanRequest: %+v", sr)
	}
	if err = db.LPush(ctx, KeyScanQueue, data).Err(); err != nil {
		return errors.Wrapf(err, "error enqueueing ScanRequest with query: %s", sr.Query)
	}
	return nil
}

type systemStatus struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// HeartbeatSet records that a scanning node reported in.
func (db Database) HeartbeatSet(ctx context.Context, t time.Time) error {
	data, err := json.Marshal(systemStatus{Status: "online", Timestamp: t.UnixMilli()})
	if err != nil {
		return errors.Wrap(err, "error marshalling system status")
	}
	if err = db.Set(ctx, KeySystemStatus, data, 0).Err(); err != nil {
		return errors.Wrap(err, "error setting system status")
	}
	return nil
}
