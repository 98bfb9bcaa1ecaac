package database

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v9"
	"github.com/pkg/errors"

	"github.com/Jansyler/Rigradar/internal/model"
)

func (db Database) WatchInsert(ctx context.Context, id string, w model.Watch) error {
	data, err := json.Marshal(w)
	if err != nil {
		return errors.Wrapf(err, "error marshalling Watch: %+v", w)
	}
	if err = db.HSet(ctx, KeyWatchdogs, id, data).Err(); err != nil {
		return errors.Wrapf(err, "error inserting Watch with ID: %s", id)
	}
	return nil
}

func (db Database) WatchUpdate(ctx context.Context, id string, w model.Watch) error {
	data, err := json.Marshal(w)
	if err != nil {
		return errors.Wrapf(err, "error marshalling Watch: %+v", w)
	}
	if err = db.HSet(ctx, KeyWatchdogs, id, data).Err(); err != nil {
		return errors.Wrapf(err, "error updating Watch with ID: %s", id)
	}
	return nil
}

func (db Database) WatchFind(ctx context.Context, id string) (model.Watch, error) {
	var w model.Watch
	data, err := db.HGet(ctx, KeyWatchdogs, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return w, errors.Wrapf(ErrWatchNotFound, "no Watch with ID: %s", id)
		}
		return w, errors.Wrapf(err, "error finding Watch with ID: %s", id)
	}
	if err = json.Unmarshal([]byte(data), &w); err != nil {
		return w, errors.Wrapf(err, "error unmarshalling Watch with ID: %s", id)
	}
	return w, nil
}

func (db Database) WatchFindAll(ctx context.Context) ([]model.StoredWatch, error) {
	entries, err := db.HGetAll(ctx, KeyWatchdogs).Result()
	if err != nil {
		return nil, errors.Wrap(err, "error getting all Watches")
	}
	ws := make([]model.StoredWatch, 0, len(entries))
	for id, data := range entries {
		var w model.Watch
		if err = json.Unmarshal([]byte(data), &w); err != nil {
			return nil, errors.Wrapf(err, "error unmarshalling Watch with ID: %s", id)
		}
		ws = append(ws, model.StoredWatch{ID: id, Watch: w})
	}
	return ws, nil
}

func (db Database) WatchFindByOwner(ctx context.Context, email string) ([]model.StoredWatch, error) {
	ws, err := db.WatchFindAll(ctx)
	if err != nil {
		return nil, err
	}
	owned := []model.StoredWatch{}
	for _, w := range ws {
		if w.Email == email {
			owned = append(owned, w)
		}
	}
	return owned, nil
}

// WatchDelete removes a Watch, reporting whether it existed.
func (db Database) WatchDelete(ctx context.Context, id string) (bool, error) {
	deleted, err := db.HDel(ctx, KeyWatchdogs, id).Result()
	if err != nil {
		return false, errors.Wrapf(err, "error deleting Watch with ID: %s", id)
	}
	return deleted > 0, nil
}
