package datagateway

import (
	"context"

	"github.com/gaze-network/holders-snapshot/core/types"
	"github.com/gaze-network/holders-snapshot/modules/holders/internal/entity"
)

type EventDataGateway interface {
	EventReaderDataGateway
	EventWriterDataGateway

	// Close releases the underlying storage.
	Close(ctx context.Context) error
}

type EventReaderDataGateway interface {
	// GetTransferEventsInRange returns events with block height in [from, to] ordered by (block height, log index).
	GetTransferEventsInRange(ctx context.Context, from, to uint64) ([]types.TransferEvent, error)
	// GetHighestBlockHeight returns the highest block height of stored events, or -1 if the store is empty.
	GetHighestBlockHeight(ctx context.Context) (int64, error)
	// GetStoreInfo returns errs.NotFound if the store has never been initialized.
	GetStoreInfo(ctx context.Context) (entity.StoreInfo, error)
}

type EventWriterDataGateway interface {
	// BulkInsertTransferEvents inserts all events atomically. Events already stored are ignored.
	BulkInsertTransferEvents(ctx context.Context, events []types.TransferEvent) error
	SetStoreInfo(ctx context.Context, info entity.StoreInfo) error
}
