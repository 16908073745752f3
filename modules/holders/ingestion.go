package holders

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/cockroachdb/errors"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/core/datasources"
	"github.com/gaze-network/holders-snapshot/core/types"
	"github.com/gaze-network/holders-snapshot/modules/holders/config"
	"github.com/gaze-network/holders-snapshot/modules/holders/datagateway"
	"github.com/gaze-network/holders-snapshot/pkg/logger"
	"github.com/gaze-network/holders-snapshot/pkg/logger/slogx"
	"github.com/gaze-network/holders-snapshot/pkg/retry"
)

// IngestionEngine copies transfer events from the remote source into the event store,
// one window at a time, adapting the window size to the density of events.
type IngestionEngine struct {
	source        datasources.TransferSource
	store         datagateway.EventDataGateway
	genesisHeight uint64
	config        config.IngestionConfig

	chunkSize uint64
}

func NewIngestionEngine(source datasources.TransferSource, store datagateway.EventDataGateway, genesisHeight uint64, conf config.IngestionConfig) *IngestionEngine {
	conf.MinChunkSize = utils.Default(conf.MinChunkSize, DefaultMinChunkSize)
	conf.MaxChunkSize = utils.Default(conf.MaxChunkSize, DefaultMaxChunkSize)
	conf.InitialChunkSize = utils.Default(conf.InitialChunkSize, DefaultInitialChunkSize)
	conf.MaxLogsPerQuery = utils.Default(conf.MaxLogsPerQuery, DefaultMaxLogsPerQuery)
	conf.MinLogsToIncreaseChunk = utils.Default(conf.MinLogsToIncreaseChunk, DefaultMinLogsToIncreaseChunk)
	if conf.Retry == (retry.Policy{}) {
		conf.Retry = retry.Fixed(DefaultIngestionRetryDelay)
	}
	if conf.MaxChunkSize < conf.MinChunkSize {
		conf.MaxChunkSize = conf.MinChunkSize
	}

	e := &IngestionEngine{
		source:        source,
		store:         store,
		genesisHeight: genesisHeight,
		config:        conf,
	}
	e.chunkSize = e.clamp(conf.InitialChunkSize)
	return e
}

// ChunkSize returns the current window size.
func (e *IngestionEngine) ChunkSize() uint64 {
	return e.chunkSize
}

// IngestUpTo stores every transfer event up to target (inclusive). It resumes after the
// highest stored height and is a no-op if the store already reaches target.
//
// Fetch errors are retried according to the retry policy. Store errors are returned immediately.
func (e *IngestionEngine) IngestUpTo(ctx context.Context, target uint64) error {
	if target > math.MaxInt64 {
		return errors.Wrapf(errs.OverflowUint64, "target height %d", target)
	}
	highest, err := e.store.GetHighestBlockHeight(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get highest stored height")
	}
	if highest >= int64(target) {
		logger.InfoContext(ctx, "Events already ingested up to target", slogx.Int64("highest", highest), slogx.Uint64("target", target))
		return nil
	}

	start := e.genesisHeight
	if highest >= 0 && uint64(highest)+1 > start {
		start = uint64(highest) + 1
	}
	if start > target {
		return nil
	}

	logger.InfoContext(ctx, "Ingesting transfer events",
		slogx.Uint64("from", start),
		slogx.Uint64("to", target),
		slogx.Uint64("chunk_size", e.chunkSize),
	)

	var (
		total     int
		startTime = time.Now()
	)
	for current := start; ; {
		events, end, err := e.fetchWindow(ctx, current, target)
		if err != nil {
			return errors.Wrapf(err, "failed to fetch transfer events from %d", current)
		}
		if err := e.store.BulkInsertTransferEvents(ctx, events); err != nil {
			return errors.Wrapf(err, "failed to store transfer events in [%d, %d]", current, end)
		}
		total += len(events)

		fetchedSize := e.chunkSize
		e.adapt(len(events))

		logger.InfoContext(ctx, "Ingested window",
			slogx.Uint64("from", current),
			slogx.Uint64("to", end),
			slogx.Int("events", len(events)),
			slogx.Uint64("chunk_size", fetchedSize),
			slogx.Uint64("next_chunk_size", e.chunkSize),
			slog.String("progress", progress(start, end, target)),
		)

		if end >= target {
			break
		}
		current = end + 1
	}

	logger.InfoContext(ctx, "Finished ingesting transfer events",
		slogx.Uint64("from", start),
		slogx.Uint64("to", target),
		slogx.Int("events", total),
		slogx.Duration("took", time.Since(startTime)),
	)
	return nil
}

// fetchWindow fetches [current, current+chunk-1] clipped to target. The window end is
// recomputed on each attempt since a too-many-results rejection shrinks the chunk.
func (e *IngestionEngine) fetchWindow(ctx context.Context, current, target uint64) (events []types.TransferEvent, end uint64, err error) {
	err = retry.Do(ctx, e.config.Retry, func(ctx context.Context) error {
		end = e.windowEnd(current, target)
		var err error
		events, err = e.source.TransferEventsInRange(ctx, current, end)
		if err != nil {
			if errors.Is(err, errs.TooManyResults) {
				e.chunkSize = e.clamp(e.chunkSize / 2)
			}
			return errors.WithStack(err)
		}
		return nil
	}, func(err error, attempt uint64, wait time.Duration) {
		logger.WarnContext(ctx, "Failed to fetch window, retrying",
			slogx.Error(err),
			slogx.Uint64("from", current),
			slogx.Uint64("to", end),
			slogx.Uint64("attempt", attempt),
			slogx.Uint64("next_chunk_size", e.chunkSize),
			slogx.Duration("wait", wait),
		)
	})
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return events, end, nil
}

func (e *IngestionEngine) windowEnd(current, target uint64) uint64 {
	if target-current < e.chunkSize {
		return target
	}
	return current + e.chunkSize - 1
}

// adapt resizes the chunk after a window returned n events.
// Dense windows shrink it to stay under provider caps, sparse windows grow it.
func (e *IngestionEngine) adapt(n int) {
	switch {
	case n >= e.config.MaxLogsPerQuery:
		e.chunkSize = e.clamp(uint64(float64(e.chunkSize) * 0.75))
	case n == 0:
		e.chunkSize = e.clamp(e.chunkSize * 2)
	case n < e.config.MinLogsToIncreaseChunk:
		e.chunkSize = e.clamp(uint64(float64(e.chunkSize) * 1.25))
	}
}

func (e *IngestionEngine) clamp(size uint64) uint64 {
	return min(max(size, e.config.MinChunkSize), e.config.MaxChunkSize)
}

func progress(start, current, target uint64) string {
	if target <= start {
		return "100.00%"
	}
	percent := float64(current-start+1) / float64(target-start+1) * 100
	return fmt.Sprintf("%.2f%%", percent)
}
