package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetwork(t *testing.T) {
	testcases := []struct {
		network   Network
		supported bool
		chainID   int64
	}{
		{NetworkMainnet, true, 1},
		{NetworkSepolia, true, 11155111},
		{NetworkHolesky, true, 17000},
		{Network("testnet"), false, 0},
	}
	for _, tc := range testcases {
		t.Run(tc.network.String(), func(t *testing.T) {
			assert.Equal(t, tc.supported, tc.network.IsSupported())
			if !tc.supported {
				assert.Nil(t, tc.network.ChainID())
				return
			}
			assert.Equal(t, tc.chainID, tc.network.ChainID().Int64())
		})
	}
}
