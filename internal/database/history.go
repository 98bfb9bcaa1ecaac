package database

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Jansyler/Rigradar/internal/model"
)

// HistoryFindRecent returns up to n of the newest PriceObservations.
func (db Database) HistoryFindRecent(ctx context.Context, n int64) ([]model.PriceObservation, error) {
	entries, err := db.LRange(ctx, KeyGlobalHistory, 0, n-1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "error getting %d recent PriceObservations", n)
	}
	obs := make([]model.PriceObservation, 0, len(entries))
	for _, data := range entries {
		var o model.PriceObservation
		if err = json.Unmarshal([]byte(data), &o); err != nil {
			return nil, errors.Wrapf(err, "error unmarshalling PriceObservation: %s", data)
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func (db Database) HistoryInsert(ctx context.Context, o model.PriceObservation) error {
	data, err := json.Marshal(o)
	if err != nil {
		return errors.Wrapf(err, "error marshalling PriceObservation: %+v", o)
	}
	if err = db.LPush(ctx, KeyGlobalHistory, data).Err(); err != nil {
		return errors.Wrapf(err, "error inserting PriceObservation with ID: %s", o.ID)
	}
	if err = db.LTrim(ctx, KeyGlobalHistory, 0, HistoryCap-1).Err(); err != nil {
		return errors.Wrap(err, "error trimming PriceObservation history")
	}
	return nil
}
