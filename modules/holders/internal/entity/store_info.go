package entity

import (
	"time"

	"github.com/gaze-network/holders-snapshot/common"
)

// StoreInfo records which collection an event store was filled for.
type StoreInfo struct {
	Network           common.Network
	CollectionAddress string
	ClientVersion     string
	CreatedAt         time.Time
}
