package pebble

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/gaze-network/holders-snapshot/modules/holders/datagateway"
)

var _ datagateway.EventDataGateway = (*Repository)(nil)

// Repository is an event store backed by an embedded pebble database.
type Repository struct {
	db *pebble.DB
}

// NewRepository opens (or creates) the pebble database in dir.
// opts may be nil. Tests pass an in-memory filesystem through opts.FS.
func NewRepository(dir string, opts *pebble.Options) (*Repository, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pebble database %q", dir)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close(_ context.Context) error {
	if err := r.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close pebble database")
	}
	return nil
}
