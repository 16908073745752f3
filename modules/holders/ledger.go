package holders

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/holders-snapshot/core/types"
	"github.com/gaze-network/holders-snapshot/modules/holders/datagateway"
	"github.com/samber/lo"
)

// OwnerLedger maps a token id to its current owner. Burned tokens have no entry.
type OwnerLedger map[string]common.Address

// Owners returns the unique owners, sorted by address.
func (l OwnerLedger) Owners() []common.Address {
	owners := lo.Uniq(lo.Values(l))
	slices.SortFunc(owners, func(a, b common.Address) int {
		return a.Cmp(b)
	})
	return owners
}

// BuildLedger replays every stored event in [from, to] into a new ledger.
func BuildLedger(ctx context.Context, store datagateway.EventReaderDataGateway, from, to uint64) (OwnerLedger, error) {
	events, err := store.GetTransferEventsInRange(ctx, from, to)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get transfer events in [%d, %d]", from, to)
	}
	return ReplayTransferEvents(make(OwnerLedger), events), nil
}

// ReplayTransferEvents applies events to ledger in (block height, log index) order.
func ReplayTransferEvents(ledger OwnerLedger, events []types.TransferEvent) OwnerLedger {
	if !slices.IsSortedFunc(events, compareEvents) {
		events = slices.Clone(events)
		slices.SortStableFunc(events, compareEvents)
	}
	for _, event := range events {
		if event.IsBurn() {
			delete(ledger, event.TokenID)
			continue
		}
		ledger[event.TokenID] = event.To
	}
	return ledger
}

func compareEvents(a, b types.TransferEvent) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}
