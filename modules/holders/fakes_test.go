package holders

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/core/datasources"
	"github.com/gaze-network/holders-snapshot/core/types"
	"github.com/gaze-network/holders-snapshot/modules/holders/datagateway"
	"github.com/gaze-network/holders-snapshot/modules/holders/internal/entity"
	"github.com/holiman/uint256"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000c3")

	errTransient = errors.New("connection reset by peer")
)

type window struct {
	From, To uint64
}

func (w window) Size() uint64 {
	return w.To - w.From + 1
}

var _ datasources.LedgerSource = (*fakeSource)(nil)

// fakeSource is an in-memory remote ledger.
type fakeSource struct {
	mu sync.Mutex

	// checkpoints[i] is the checkpoint at height i.
	checkpoints   []types.Checkpoint
	missing       map[uint64]bool
	checkpointErr error

	events []types.TransferEvent
	// eventsPerWindow, if set, generates synthetic events for every window instead of events.
	eventsPerWindow   int
	maxEventsPerQuery int
	rangeFailures     int
	windows           []window

	balances        map[common.Address]*uint256.Int
	balanceFailures map[common.Address]int
	balanceErr      error
	balanceDelay    func(owner common.Address) time.Duration
	balanceCalls    map[common.Address]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		missing:         map[uint64]bool{},
		balances:        map[common.Address]*uint256.Int{},
		balanceFailures: map[common.Address]int{},
		balanceCalls:    map[common.Address]int{},
	}
}

// withBlocks creates n checkpoints, one every 12 seconds from genesisTime.
func (s *fakeSource) withBlocks(n int, genesisTime int64) *fakeSource {
	s.checkpoints = make([]types.Checkpoint, n)
	for i := range s.checkpoints {
		s.checkpoints[i] = types.Checkpoint{Height: uint64(i), Timestamp: genesisTime + int64(i)*12}
	}
	return s
}

func (s *fakeSource) Name() string {
	return "fake"
}

func (s *fakeSource) CurrentHeight(context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.checkpoints) - 1), nil
}

func (s *fakeSource) CheckpointAt(_ context.Context, height uint64) (types.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkpointErr != nil {
		return types.Checkpoint{}, s.checkpointErr
	}
	if height >= uint64(len(s.checkpoints)) || s.missing[height] {
		return types.Checkpoint{}, errors.WithStack(errs.NotFound)
	}
	return s.checkpoints[height], nil
}

func (s *fakeSource) TransferEventsInRange(_ context.Context, from, to uint64) ([]types.TransferEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, window{From: from, To: to})

	if s.rangeFailures > 0 {
		s.rangeFailures--
		return nil, errTransient
	}

	var result []types.TransferEvent
	if s.eventsPerWindow > 0 {
		for i := 0; i < s.eventsPerWindow; i++ {
			result = append(result, types.TransferEvent{BlockHeight: from, LogIndex: uint32(i), TxHash: "0x01", To: alice, TokenID: "1"})
		}
	} else {
		for _, event := range s.events {
			if event.BlockHeight >= from && event.BlockHeight <= to {
				result = append(result, event)
			}
		}
	}
	if s.maxEventsPerQuery > 0 && len(result) > s.maxEventsPerQuery {
		return nil, errors.Wrapf(errs.TooManyResults, "query returned more than %d results", s.maxEventsPerQuery)
	}
	return result, nil
}

func (s *fakeSource) BalanceOf(_ context.Context, owner common.Address, _ uint64) (*uint256.Int, error) {
	s.mu.Lock()
	s.balanceCalls[owner]++
	var delay time.Duration
	if s.balanceDelay != nil {
		delay = s.balanceDelay(owner)
	}
	if s.balanceErr != nil {
		s.mu.Unlock()
		return nil, s.balanceErr
	}
	if s.balanceFailures[owner] > 0 {
		s.balanceFailures[owner]--
		s.mu.Unlock()
		return nil, errTransient
	}
	balance, ok := s.balances[owner]
	s.mu.Unlock()

	time.Sleep(delay)
	if !ok {
		return uint256.NewInt(0), nil
	}
	return balance.Clone(), nil
}

func (s *fakeSource) recordedWindows() []window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.windows)
}

var _ datagateway.EventDataGateway = (*memStore)(nil)

// memStore is an in-memory event store.
type memStore struct {
	mu        sync.Mutex
	events    map[types.EventKey]types.TransferEvent
	info      *entity.StoreInfo
	insertErr error
	inserts   int
}

func newMemStore(events ...types.TransferEvent) *memStore {
	s := &memStore{events: map[types.EventKey]types.TransferEvent{}}
	for _, event := range events {
		s.events[event.Key()] = event
	}
	return s
}

func (s *memStore) BulkInsertTransferEvents(_ context.Context, events []types.TransferEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, event := range events {
		if _, ok := s.events[event.Key()]; !ok {
			s.events[event.Key()] = event
		}
	}
	return nil
}

func (s *memStore) GetTransferEventsInRange(_ context.Context, from, to uint64) ([]types.TransferEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []types.TransferEvent
	for _, event := range s.events {
		if event.BlockHeight >= from && event.BlockHeight <= to {
			result = append(result, event)
		}
	}
	slices.SortFunc(result, compareEvents)
	return result, nil
}

func (s *memStore) GetHighestBlockHeight(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	highest := int64(-1)
	for key := range s.events {
		highest = max(highest, int64(key.BlockHeight))
	}
	return highest, nil
}

func (s *memStore) GetStoreInfo(context.Context) (entity.StoreInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info == nil {
		return entity.StoreInfo{}, errors.WithStack(errs.NotFound)
	}
	return *s.info, nil
}

func (s *memStore) SetStoreInfo(_ context.Context, info entity.StoreInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = &info
	return nil
}

func (s *memStore) Close(context.Context) error {
	return nil
}

func (s *memStore) all() []types.TransferEvent {
	events, _ := s.GetTransferEventsInRange(context.Background(), 0, ^uint64(0))
	return events
}
