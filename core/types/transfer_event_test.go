package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestTransferEventOrdering(t *testing.T) {
	tests := []struct {
		name     string
		a, b     TransferEvent
		expected bool
	}{
		{
			name:     "lower_height",
			a:        TransferEvent{BlockHeight: 10, LogIndex: 5},
			b:        TransferEvent{BlockHeight: 11, LogIndex: 0},
			expected: true,
		},
		{
			name:     "same_height_lower_log_index",
			a:        TransferEvent{BlockHeight: 10, LogIndex: 1},
			b:        TransferEvent{BlockHeight: 10, LogIndex: 2},
			expected: true,
		},
		{
			name:     "same_position",
			a:        TransferEvent{BlockHeight: 10, LogIndex: 1},
			b:        TransferEvent{BlockHeight: 10, LogIndex: 1},
			expected: false,
		},
		{
			name:     "higher_height",
			a:        TransferEvent{BlockHeight: 12},
			b:        TransferEvent{BlockHeight: 11, LogIndex: 9},
			expected: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Less(tt.b))
		})
	}
}

func TestTransferEventBurn(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	assert.True(t, TransferEvent{From: owner}.IsBurn())
	assert.False(t, TransferEvent{To: owner}.IsBurn())
}

func TestTransferEventKey(t *testing.T) {
	e := TransferEvent{BlockHeight: 100, LogIndex: 3, TxHash: "0xabc", TokenID: "1"}
	assert.Equal(t, EventKey{BlockHeight: 100, LogIndex: 3, TxHash: "0xabc"}, e.Key())
	assert.Equal(t, "100:3:0xabc", e.Key().String())
}
