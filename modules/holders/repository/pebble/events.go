package pebble

import (
	"context"
	"encoding/json"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/core/types"
)

func (r *Repository) BulkInsertTransferEvents(ctx context.Context, events []types.TransferEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := r.db.NewIndexedBatch()
	defer batch.Close()

	for _, event := range events {
		key := eventKey(event.Key())
		exists, err := hasKey(batch, key)
		if err != nil {
			return errors.Wrapf(err, "failed to check event %s", event.Key())
		}
		if exists {
			continue
		}
		value, err := json.Marshal(event)
		if err != nil {
			return errors.Wrapf(err, "failed to encode event %s", event.Key())
		}
		if err := batch.Set(key, value, nil); err != nil {
			return errors.Wrapf(err, "failed to add event %s to batch", event.Key())
		}
	}

	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return errors.Wrapf(err, "failed to commit %d transfer events", len(events))
	}
	return nil
}

func (r *Repository) GetTransferEventsInRange(ctx context.Context, from, to uint64) ([]types.TransferEvent, error) {
	if from > to {
		return nil, errors.Wrapf(errs.InvalidArgument, "invalid range [%d, %d]", from, to)
	}
	iter, err := r.db.NewIterWithContext(ctx, &pebble.IterOptions{
		LowerBound: heightLowerBound(from),
		UpperBound: heightUpperBound(to),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create iterator")
	}
	defer iter.Close()

	var events []types.TransferEvent
	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read value from iterator")
		}
		var event types.TransferEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return nil, errors.Wrapf(errs.InternalError, "failed to decode event at key %x: %v", iter.Key(), err)
		}
		events = append(events, event)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "error during iteration")
	}
	return events, nil
}

func (r *Repository) GetHighestBlockHeight(ctx context.Context) (int64, error) {
	iter, err := r.db.NewIterWithContext(ctx, &pebble.IterOptions{
		LowerBound: eventKeyPrefix,
		UpperBound: eventKeyEnd,
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to create iterator")
	}
	defer iter.Close()

	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return 0, errors.Wrap(err, "error during iteration")
		}
		return -1, nil
	}
	key, err := parseEventKey(iter.Key())
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if key.BlockHeight > math.MaxInt64 {
		return 0, errors.Wrapf(errs.OverflowUint64, "block height %d", key.BlockHeight)
	}
	return int64(key.BlockHeight), nil
}

func hasKey(reader pebble.Reader, key []byte) (bool, error) {
	_, closer, err := reader.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	if err := closer.Close(); err != nil {
		return false, errors.WithStack(err)
	}
	return true, nil
}
