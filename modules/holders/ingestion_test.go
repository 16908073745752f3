package holders

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/holders-snapshot/core/types"
	"github.com/gaze-network/holders-snapshot/modules/holders/config"
	"github.com/gaze-network/holders-snapshot/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIngestionConfig() config.IngestionConfig {
	return config.IngestionConfig{
		InitialChunkSize: DefaultInitialChunkSize,
		Retry:            retry.Fixed(time.Millisecond),
	}
}

func transfer(height uint64, logIndex uint32, tx string, from, to common.Address, tokenID string) types.TransferEvent {
	return types.TransferEvent{BlockHeight: height, LogIndex: logIndex, TxHash: tx, From: from, To: to, TokenID: tokenID}
}

func TestIngestionResumeWindow(t *testing.T) {
	// store seeded up to 150, target 200: exactly one window [151, 200]
	seeded := []types.TransferEvent{
		transfer(100, 0, "tx1", common.Address{}, alice, "1"),
		transfer(150, 0, "tx2", alice, bob, "1"),
	}
	store := newMemStore(seeded...)
	source := newFakeSource()
	source.events = seeded

	engine := NewIngestionEngine(source, store, 100, testIngestionConfig())
	require.NoError(t, engine.IngestUpTo(context.Background(), 200))

	assert.Equal(t, []window{{From: 151, To: 200}}, source.recordedWindows())

	ledger, err := BuildLedger(context.Background(), store, 100, 200)
	require.NoError(t, err)
	assert.Equal(t, OwnerLedger{"1": bob}, ledger)
}

func TestIngestionNoop(t *testing.T) {
	store := newMemStore(transfer(500, 0, "tx1", common.Address{}, alice, "1"))
	source := newFakeSource()

	engine := NewIngestionEngine(source, store, 0, testIngestionConfig())
	require.NoError(t, engine.IngestUpTo(context.Background(), 500))
	require.NoError(t, engine.IngestUpTo(context.Background(), 200))
	assert.Empty(t, source.recordedWindows())
}

func TestIngestionWindows(t *testing.T) {
	source := newFakeSource()
	for h := uint64(1000); h <= 1500; h += 10 {
		source.events = append(source.events, transfer(h, 0, "tx", common.Address{}, alice, "1"))
	}
	store := newMemStore()

	conf := testIngestionConfig()
	conf.InitialChunkSize = 100
	conf.MaxChunkSize = 100
	engine := NewIngestionEngine(source, store, 1000, conf)
	require.NoError(t, engine.IngestUpTo(context.Background(), 1250))

	assert.Equal(t, []window{
		{From: 1000, To: 1099},
		{From: 1100, To: 1199},
		{From: 1200, To: 1250},
	}, source.recordedWindows())

	events := store.all()
	require.Len(t, events, 26)
	assert.Equal(t, uint64(1250), events[len(events)-1].BlockHeight)
}

func TestIngestionIdempotent(t *testing.T) {
	source := newFakeSource()
	for h := uint64(0); h < 3000; h += 7 {
		source.events = append(source.events, transfer(h, uint32(h%3), "tx", alice, bob, "2"))
	}

	once := newMemStore()
	require.NoError(t, NewIngestionEngine(source, once, 0, testIngestionConfig()).IngestUpTo(context.Background(), 2999))

	twice := newMemStore()
	engine := NewIngestionEngine(source, twice, 0, testIngestionConfig())
	require.NoError(t, engine.IngestUpTo(context.Background(), 2999))
	require.NoError(t, engine.IngestUpTo(context.Background(), 2999))

	assert.Equal(t, once.all(), twice.all())

	// re-inserting an already stored window changes nothing
	require.NoError(t, twice.BulkInsertTransferEvents(context.Background(), source.events[:10]))
	assert.Equal(t, once.all(), twice.all())
}

func TestIngestionResumable(t *testing.T) {
	source := newFakeSource()
	for h := uint64(0); h < 10_000; h += 3 {
		source.events = append(source.events, transfer(h, 0, "tx", alice, bob, "3"))
	}
	conf := testIngestionConfig()
	conf.InitialChunkSize = 700

	single := newMemStore()
	require.NoError(t, NewIngestionEngine(source, single, 0, conf).IngestUpTo(context.Background(), 9000))

	// interrupted run: a new engine (fresh process) resumes from the store
	split := newMemStore()
	require.NoError(t, NewIngestionEngine(source, split, 0, conf).IngestUpTo(context.Background(), 4321))
	require.NoError(t, NewIngestionEngine(source, split, 0, conf).IngestUpTo(context.Background(), 9000))

	assert.Equal(t, single.all(), split.all())
}

func TestIngestionTooManyResults(t *testing.T) {
	source := newFakeSource()
	// 40 events per 100 blocks in [0, 999]
	for h := uint64(0); h < 1000; h++ {
		if h%5 < 2 {
			source.events = append(source.events, transfer(h, 0, "tx", alice, bob, "4"))
		}
	}
	source.maxEventsPerQuery = 100
	store := newMemStore()

	conf := testIngestionConfig()
	conf.InitialChunkSize = 800
	engine := NewIngestionEngine(source, store, 0, conf)
	require.NoError(t, engine.IngestUpTo(context.Background(), 999))

	windows := source.recordedWindows()
	// 800 -> rejected, 400 -> rejected, 200 -> accepted
	require.GreaterOrEqual(t, len(windows), 3)
	assert.Equal(t, window{From: 0, To: 799}, windows[0])
	assert.Equal(t, window{From: 0, To: 399}, windows[1])
	assert.Equal(t, window{From: 0, To: 199}, windows[2])

	assert.Equal(t, source.events, store.all())
}

func TestIngestionTransientFailure(t *testing.T) {
	source := newFakeSource()
	source.events = []types.TransferEvent{transfer(10, 0, "tx", common.Address{}, alice, "1")}
	source.rangeFailures = 3
	store := newMemStore()

	conf := testIngestionConfig()
	conf.InitialChunkSize = 1000
	engine := NewIngestionEngine(source, store, 0, conf)
	require.NoError(t, engine.IngestUpTo(context.Background(), 500))

	// same window retried without resizing
	assert.Equal(t, []window{{0, 500}, {0, 500}, {0, 500}, {0, 500}}, source.recordedWindows())
	assert.Equal(t, source.events, store.all())
}

func TestIngestionBoundedRetry(t *testing.T) {
	source := newFakeSource()
	source.rangeFailures = 10
	store := newMemStore()

	conf := testIngestionConfig()
	conf.Retry = retry.Fixed(time.Millisecond).WithMaxAttempts(3)
	engine := NewIngestionEngine(source, store, 0, conf)

	err := engine.IngestUpTo(context.Background(), 500)
	require.Error(t, err)
	assert.True(t, errors.Is(err, retry.ErrExhausted))
	assert.ErrorIs(t, err, errTransient)
	assert.Len(t, source.recordedWindows(), 3)
	assert.Zero(t, store.inserts)
}

func TestIngestionStoreFailure(t *testing.T) {
	errStore := errors.New("disk full")
	source := newFakeSource()
	store := newMemStore()
	store.insertErr = errStore

	engine := NewIngestionEngine(source, store, 0, testIngestionConfig())
	err := engine.IngestUpTo(context.Background(), 50_000)
	assert.ErrorIs(t, err, errStore)
	assert.Len(t, source.recordedWindows(), 1, "store failures must not be retried")
}

func TestIngestionCanceled(t *testing.T) {
	source := newFakeSource()
	source.rangeFailures = 1 << 30

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	engine := NewIngestionEngine(source, newMemStore(), 0, testIngestionConfig())
	err := engine.IngestUpTo(ctx, 500)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIngestionChunkBounds(t *testing.T) {
	t.Run("dense_source_drives_chunk_to_floor", func(t *testing.T) {
		source := newFakeSource()
		source.eventsPerWindow = 50

		conf := testIngestionConfig()
		conf.MaxLogsPerQuery = 50
		engine := NewIngestionEngine(source, newMemStore(), 0, conf)
		require.NoError(t, engine.IngestUpTo(context.Background(), 50_000))

		windows := source.recordedWindows()
		floorReached := false
		for _, w := range windows[:len(windows)-1] { // the last window is clipped to the target
			assert.GreaterOrEqual(t, w.Size(), uint64(DefaultMinChunkSize))
			assert.LessOrEqual(t, w.Size(), uint64(DefaultMaxChunkSize))
			if floorReached {
				assert.Equal(t, uint64(DefaultMinChunkSize), w.Size())
			}
			floorReached = floorReached || w.Size() == DefaultMinChunkSize
		}
		assert.True(t, floorReached)
		assert.Equal(t, uint64(DefaultMinChunkSize), engine.ChunkSize())
	})

	t.Run("empty_source_drives_chunk_to_ceiling", func(t *testing.T) {
		source := newFakeSource()
		engine := NewIngestionEngine(source, newMemStore(), 0, testIngestionConfig())
		require.NoError(t, engine.IngestUpTo(context.Background(), 10_000_000))

		windows := source.recordedWindows()
		for _, w := range windows {
			assert.LessOrEqual(t, w.Size(), uint64(DefaultMaxChunkSize))
		}
		assert.Equal(t, uint64(DefaultMaxChunkSize), windows[len(windows)-2].Size())
		assert.Equal(t, uint64(DefaultMaxChunkSize), engine.ChunkSize())
	})
}

func TestIngestionAdapt(t *testing.T) {
	tests := []struct {
		name     string
		chunk    uint64
		n        int
		expected uint64
	}{
		{name: "dense_shrinks", chunk: 4000, n: 9500, expected: 3000},
		{name: "dense_floor", chunk: 120, n: 20_000, expected: 100},
		{name: "empty_doubles", chunk: 4000, n: 0, expected: 8000},
		{name: "empty_ceiling", chunk: 100_000, n: 0, expected: 150_000},
		{name: "sparse_grows", chunk: 4000, n: 999, expected: 5000},
		{name: "sparse_ceiling", chunk: 149_000, n: 10, expected: 150_000},
		{name: "moderate_unchanged", chunk: 4000, n: 1000, expected: 4000},
		{name: "moderate_upper_unchanged", chunk: 4000, n: 9499, expected: 4000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewIngestionEngine(newFakeSource(), newMemStore(), 0, testIngestionConfig())
			engine.chunkSize = tt.chunk
			engine.adapt(tt.n)
			assert.Equal(t, tt.expected, engine.ChunkSize())
		})
	}
}

func TestIngestionDefaults(t *testing.T) {
	engine := NewIngestionEngine(newFakeSource(), newMemStore(), 0, config.IngestionConfig{})
	assert.Equal(t, uint64(DefaultInitialChunkSize), engine.ChunkSize())
	assert.Equal(t, uint64(DefaultMinChunkSize), engine.config.MinChunkSize)
	assert.Equal(t, uint64(DefaultMaxChunkSize), engine.config.MaxChunkSize)
	assert.Equal(t, DefaultMaxLogsPerQuery, engine.config.MaxLogsPerQuery)
	assert.Equal(t, DefaultMinLogsToIncreaseChunk, engine.config.MinLogsToIncreaseChunk)
	assert.Equal(t, retry.Fixed(DefaultIngestionRetryDelay), engine.config.Retry)
	assert.True(t, engine.config.Retry.IsUnlimited())

	clamped := NewIngestionEngine(newFakeSource(), newMemStore(), 0, config.IngestionConfig{InitialChunkSize: 10})
	assert.Equal(t, uint64(DefaultMinChunkSize), clamped.ChunkSize())
}
