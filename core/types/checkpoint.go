package types

import (
	"time"
)

// Checkpoint is a block of the remote chain identified by its height and timestamp.
type Checkpoint struct {
	Height    uint64
	Timestamp int64 // unix seconds
}

func (c Checkpoint) Time() time.Time {
	return time.Unix(c.Timestamp, 0).UTC()
}
