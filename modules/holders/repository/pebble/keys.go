package pebble

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/core/types"
)

var (
	eventKeyPrefix = []byte("ev/")
	eventKeyEnd    = []byte("ev0") // first key after every "ev/" key
	storeInfoKey   = []byte("info")
)

const eventKeyPositionLen = 8 + 4

// eventKey is "ev/" | height (8 bytes BE) | log index (4 bytes BE) | tx hash.
// Lexicographic key order is replay order.
func eventKey(key types.EventKey) []byte {
	buf := make([]byte, 0, len(eventKeyPrefix)+eventKeyPositionLen+len(key.TxHash))
	buf = append(buf, eventKeyPrefix...)
	buf = binary.BigEndian.AppendUint64(buf, key.BlockHeight)
	buf = binary.BigEndian.AppendUint32(buf, key.LogIndex)
	buf = append(buf, key.TxHash...)
	return buf
}

// heightLowerBound returns the smallest event key at height.
func heightLowerBound(height uint64) []byte {
	buf := make([]byte, 0, len(eventKeyPrefix)+8)
	buf = append(buf, eventKeyPrefix...)
	return binary.BigEndian.AppendUint64(buf, height)
}

// heightUpperBound returns the first key after every event at height.
func heightUpperBound(height uint64) []byte {
	if height == ^uint64(0) {
		return eventKeyEnd
	}
	return heightLowerBound(height + 1)
}

func parseEventKey(key []byte) (types.EventKey, error) {
	if len(key) < len(eventKeyPrefix)+eventKeyPositionLen {
		return types.EventKey{}, errors.Wrapf(errs.InternalError, "invalid event key length %d", len(key))
	}
	pos := key[len(eventKeyPrefix):]
	return types.EventKey{
		BlockHeight: binary.BigEndian.Uint64(pos[:8]),
		LogIndex:    binary.BigEndian.Uint32(pos[8:12]),
		TxHash:      string(pos[12:]),
	}, nil
}
