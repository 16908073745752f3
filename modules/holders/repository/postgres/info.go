package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/modules/holders/internal/entity"
	"github.com/gaze-network/holders-snapshot/modules/holders/repository/postgres/gen"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) GetStoreInfo(ctx context.Context) (entity.StoreInfo, error) {
	model, err := r.queries.GetLatestStoreInfo(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.StoreInfo{}, errors.WithStack(errs.NotFound)
		}
		return entity.StoreInfo{}, errors.Wrap(err, "error during query")
	}
	return mapStoreInfoModelToType(model), nil
}

func (r *Repository) SetStoreInfo(ctx context.Context, info entity.StoreInfo) error {
	if err := r.queries.CreateStoreInfo(ctx, gen.CreateStoreInfoParams{
		Network:           info.Network.String(),
		CollectionAddress: info.CollectionAddress,
		ClientVersion:     info.ClientVersion,
	}); err != nil {
		return errors.Wrap(err, "error during exec")
	}
	return nil
}
