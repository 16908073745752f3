package pebble

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/modules/holders/internal/entity"
)

func (r *Repository) GetStoreInfo(_ context.Context) (entity.StoreInfo, error) {
	value, closer, err := r.db.Get(storeInfoKey)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return entity.StoreInfo{}, errors.WithStack(errs.NotFound)
		}
		return entity.StoreInfo{}, errors.Wrap(err, "failed to get store info")
	}
	defer closer.Close()

	var info entity.StoreInfo
	if err := json.Unmarshal(value, &info); err != nil {
		return entity.StoreInfo{}, errors.Wrap(err, "failed to decode store info")
	}
	return info, nil
}

func (r *Repository) SetStoreInfo(_ context.Context, info entity.StoreInfo) error {
	value, err := json.Marshal(info)
	if err != nil {
		return errors.Wrap(err, "failed to encode store info")
	}
	if err := r.db.Set(storeInfoKey, value, pebble.Sync); err != nil {
		return errors.Wrap(err, "failed to set store info")
	}
	return nil
}
