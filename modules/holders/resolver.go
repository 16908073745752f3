package holders

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/core/datasources"
	"github.com/gaze-network/holders-snapshot/core/types"
	"github.com/gaze-network/holders-snapshot/pkg/logger"
	"github.com/gaze-network/holders-snapshot/pkg/logger/slogx"
)

// CheckpointResolver finds the checkpoint closest to a point in time.
type CheckpointResolver struct {
	source    datasources.CheckpointSource
	tolerance time.Duration
}

func NewCheckpointResolver(source datasources.CheckpointSource, tolerance time.Duration) *CheckpointResolver {
	if tolerance <= 0 {
		tolerance = DefaultResolverTolerance
	}
	return &CheckpointResolver{
		source:    source,
		tolerance: tolerance,
	}
}

// Resolve binary searches [0, current height] for a checkpoint whose timestamp is
// within tolerance of target (unix seconds). Checkpoint timestamps are non-decreasing with height.
//
// Returns errs.NotFound if no checkpoint is close enough, or if a checkpoint on the search path does not exist.
// Fetch errors are not retried.
func (r *CheckpointResolver) Resolve(ctx context.Context, target int64) (types.Checkpoint, error) {
	current, err := r.source.CurrentHeight(ctx)
	if err != nil {
		return types.Checkpoint{}, errors.Wrap(err, "failed to get current height")
	}

	tolerance := int64(r.tolerance / time.Second)
	low, high := int64(0), int64(current)
	for steps := 0; low <= high; steps++ {
		mid := low + (high-low)/2
		checkpoint, err := r.source.CheckpointAt(ctx, uint64(mid))
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				return types.Checkpoint{}, errors.Wrapf(errs.NotFound, "checkpoint %d not found: %v", mid, err)
			}
			return types.Checkpoint{}, errors.Wrapf(err, "failed to get checkpoint %d", mid)
		}

		diff := checkpoint.Timestamp - target
		if abs(diff) <= tolerance {
			logger.DebugContext(ctx, "Resolved checkpoint",
				slogx.Uint64("height", checkpoint.Height),
				slogx.Int64("timestamp", checkpoint.Timestamp),
				slogx.Int("steps", steps+1),
			)
			return checkpoint, nil
		}
		if diff < 0 {
			low = mid + 1
		} else {
			high = mid - 1
		}
	}
	return types.Checkpoint{}, errors.Wrapf(errs.NotFound, "no checkpoint within %s of %s", r.tolerance, time.Unix(target, 0).UTC().Format(time.RFC3339))
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
