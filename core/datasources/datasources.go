package datasources

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/holders-snapshot/core/types"
	"github.com/holiman/uint256"
)

// CheckpointSource resolves checkpoints of the remote chain.
type CheckpointSource interface {
	// CurrentHeight returns the latest checkpoint height.
	CurrentHeight(ctx context.Context) (uint64, error)

	// CheckpointAt returns the checkpoint at height. Returns errs.NotFound if it does not exist.
	CheckpointAt(ctx context.Context, height uint64) (types.Checkpoint, error)
}

// TransferSource fetches ownership transfer events of the collection.
type TransferSource interface {
	// TransferEventsInRange returns transfer events in [from, to] (inclusive).
	// Returns errs.TooManyResults if the range is too large for a single query.
	TransferEventsInRange(ctx context.Context, from, to uint64) ([]types.TransferEvent, error)
}

// BalanceSource reads native balances.
type BalanceSource interface {
	BalanceOf(ctx context.Context, owner common.Address, height uint64) (*uint256.Int, error)
}

// LedgerSource is the remote ledger the snapshot is reconstructed from.
type LedgerSource interface {
	Name() string
	CheckpointSource
	TransferSource
	BalanceSource
}
