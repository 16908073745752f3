package holders

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	gazecommon "github.com/gaze-network/holders-snapshot/common"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/core/datasources"
	"github.com/gaze-network/holders-snapshot/core/types"
	"github.com/gaze-network/holders-snapshot/modules/holders/config"
	"github.com/gaze-network/holders-snapshot/modules/holders/datagateway"
	"github.com/gaze-network/holders-snapshot/modules/holders/internal/entity"
	"github.com/gaze-network/holders-snapshot/pkg/decimals"
	"github.com/gaze-network/holders-snapshot/pkg/logger"
	"github.com/gaze-network/holders-snapshot/pkg/logger/slogx"
	"github.com/gaze-network/holders-snapshot/pkg/ratelimiter"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Snapshot is the result of a holders snapshot at a checkpoint.
type Snapshot struct {
	Checkpoint types.Checkpoint
	Tokens     int // tokens held (not burned)
	Owners     int
	Total      *uint256.Int // wei
	Zeroed     int
}

// TotalEther returns the total balance in ether.
func (s *Snapshot) TotalEther() decimal.Decimal {
	return decimals.ToDecimal(s.Total, EtherDecimals)
}

// Service runs snapshots of the holders of a single collection.
type Service struct {
	network       gazecommon.Network
	collection    common.Address
	genesisHeight uint64

	store      datagateway.EventDataGateway
	resolver   *CheckpointResolver
	ingestion  *IngestionEngine
	aggregator *BalanceAggregator
}

func NewService(network gazecommon.Network, source datasources.LedgerSource, store datagateway.EventDataGateway, limiter *ratelimiter.Limiter, conf config.Config) *Service {
	return &Service{
		network:       network,
		collection:    common.HexToAddress(conf.CollectionAddress),
		genesisHeight: conf.GenesisHeight,
		store:         store,
		resolver:      NewCheckpointResolver(source, conf.Resolver.Tolerance),
		ingestion:     NewIngestionEngine(source, store, conf.GenesisHeight, conf.Ingestion),
		aggregator:    NewBalanceAggregator(source, limiter, conf.Balances),
	}
}

// OnProgress registers fn to receive balance query progress.
func (s *Service) OnProgress(fn ProgressFunc) {
	s.aggregator.OnProgress(fn)
}

// VerifyStates makes sure the event store belongs to the configured network and collection.
// An empty store is claimed for them.
func (s *Service) VerifyStates(ctx context.Context) error {
	info, err := s.store.GetStoreInfo(ctx)
	if err != nil {
		if !errors.Is(err, errs.NotFound) {
			return errors.Wrap(err, "failed to get store info")
		}
		if err := s.store.SetStoreInfo(ctx, entity.StoreInfo{
			Network:           s.network,
			CollectionAddress: s.collection.Hex(),
			ClientVersion:     Version,
			CreatedAt:         time.Now().UTC(),
		}); err != nil {
			return errors.Wrap(err, "failed to set store info")
		}
		return nil
	}
	if info.Network != s.network {
		return errors.Wrapf(errs.ConflictSetting, "event store was filled for network %q, but configured network is %q", info.Network, s.network)
	}
	if !strings.EqualFold(info.CollectionAddress, s.collection.Hex()) {
		return errors.Wrapf(errs.ConflictSetting, "event store was filled for collection %s, but configured collection is %s", info.CollectionAddress, s.collection.Hex())
	}
	return nil
}

// Snapshot computes the total balance of the collection holders at the checkpoint closest to timestamp (unix seconds).
func (s *Service) Snapshot(ctx context.Context, timestamp int64) (*Snapshot, error) {
	checkpoint, err := s.resolver.Resolve(ctx, timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve checkpoint")
	}
	ctx = logger.WithContext(ctx, slogx.Uint64("checkpoint", checkpoint.Height))
	logger.InfoContext(ctx, "Resolved checkpoint", slogx.Time("checkpoint_time", checkpoint.Time()))

	if checkpoint.Height < s.genesisHeight {
		return nil, errors.Wrapf(errs.InvalidArgument, "checkpoint %d is before collection genesis %d", checkpoint.Height, s.genesisHeight)
	}

	if err := s.ingestion.IngestUpTo(ctx, checkpoint.Height); err != nil {
		return nil, errors.Wrap(err, "failed to ingest transfer events")
	}

	ledger, err := BuildLedger(ctx, s.store, s.genesisHeight, checkpoint.Height)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build owner ledger")
	}
	owners := ledger.Owners()
	logger.InfoContext(ctx, "Built owner ledger", slogx.Int("tokens", len(ledger)), slogx.Int("owners", len(owners)))

	tally, err := s.aggregator.SumBalances(ctx, owners, checkpoint.Height)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sum owner balances")
	}

	return &Snapshot{
		Checkpoint: checkpoint,
		Tokens:     len(ledger),
		Owners:     tally.Owners,
		Total:      tally.Total,
		Zeroed:     tally.Zeroed,
	}, nil
}

// Shutdown closes the event store.
func (s *Service) Shutdown(ctx context.Context) error {
	if err := s.store.Close(ctx); err != nil {
		return errors.Wrap(err, "failed to close event store")
	}
	return nil
}
