package postgres

import (
	"context"

	"github.com/gaze-network/holders-snapshot/internal/postgres"
	"github.com/gaze-network/holders-snapshot/modules/holders/datagateway"
	"github.com/gaze-network/holders-snapshot/modules/holders/repository/postgres/gen"
)

var _ datagateway.EventDataGateway = (*Repository)(nil)

type Repository struct {
	db      postgres.DB
	queries *gen.Queries
	closeFn func()
}

// NewRepository creates a repository on db. closeFn, if not nil, is called on Close.
func NewRepository(db postgres.DB, closeFn func()) *Repository {
	return &Repository{
		db:      db,
		queries: gen.New(db),
		closeFn: closeFn,
	}
}

func (r *Repository) Close(_ context.Context) error {
	if r.closeFn != nil {
		r.closeFn()
	}
	return nil
}
