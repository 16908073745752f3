package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// TransferEvent is an ownership transfer of a single token of the collection.
// A transfer to the zero address burns the token.
type TransferEvent struct {
	BlockHeight uint64         `json:"blockHeight"`
	LogIndex    uint32         `json:"logIndex"`
	TxHash      string         `json:"txHash"`
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	TokenID     string         `json:"tokenId"` // base-10
}

// EventKey identifies a transfer event. The store never keeps two events with the same key.
type EventKey struct {
	BlockHeight uint64
	LogIndex    uint32
	TxHash      string
}

func (e TransferEvent) Key() EventKey {
	return EventKey{
		BlockHeight: e.BlockHeight,
		LogIndex:    e.LogIndex,
		TxHash:      e.TxHash,
	}
}

// IsBurn reports whether the event moves the token to the zero address.
func (e TransferEvent) IsBurn() bool {
	return e.To == (common.Address{})
}

// Less orders events by block height, then log index.
func (e TransferEvent) Less(other TransferEvent) bool {
	if e.BlockHeight != other.BlockHeight {
		return e.BlockHeight < other.BlockHeight
	}
	return e.LogIndex < other.LogIndex
}

func (k EventKey) String() string {
	return fmt.Sprintf("%d:%d:%s", k.BlockHeight, k.LogIndex, k.TxHash)
}
