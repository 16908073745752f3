package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/holders-snapshot/core/types"
	"github.com/gaze-network/holders-snapshot/modules/holders/repository/postgres/gen"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) BulkInsertTransferEvents(ctx context.Context, events []types.TransferEvent) error {
	if len(events) == 0 {
		return nil
	}
	params := mapTransferEventTypesToParams(events)
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := r.queries.WithTx(tx).BatchCreateTransferEvents(ctx, params); err != nil {
			return errors.Wrap(err, "error during exec")
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to insert %d transfer events", len(events))
	}
	return nil
}

func (r *Repository) GetTransferEventsInRange(ctx context.Context, from, to uint64) ([]types.TransferEvent, error) {
	models, err := r.queries.GetTransferEventsInRange(ctx, gen.GetTransferEventsInRangeParams{
		FromHeight: int64(from),
		ToHeight:   int64(to),
	})
	if err != nil {
		return nil, errors.Wrap(err, "error during query")
	}
	events := make([]types.TransferEvent, 0, len(models))
	for _, model := range models {
		event, err := mapTransferEventModelToType(model)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse transfer event model")
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *Repository) GetHighestBlockHeight(ctx context.Context) (int64, error) {
	height, err := r.queries.GetHighestBlockHeight(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "error during query")
	}
	return height, nil
}
