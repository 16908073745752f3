package holders

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	gazecommon "github.com/gaze-network/holders-snapshot/common"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/core/datasources"
	"github.com/gaze-network/holders-snapshot/internal/config"
	"github.com/gaze-network/holders-snapshot/internal/postgres"
	"github.com/gaze-network/holders-snapshot/modules/holders/datagateway"
	holderspebble "github.com/gaze-network/holders-snapshot/modules/holders/repository/pebble"
	holderspostgres "github.com/gaze-network/holders-snapshot/modules/holders/repository/postgres"
	"github.com/gaze-network/holders-snapshot/pkg/logger"
	"github.com/gaze-network/holders-snapshot/pkg/logger/slogx"
	"github.com/gaze-network/holders-snapshot/pkg/ratelimiter"
	"github.com/samber/do/v2"
)

func New(injector do.Injector) (*Service, error) {
	ctx := logger.WithContext(do.MustInvoke[context.Context](injector), slogx.Stringer("module", gazecommon.ModuleHolders))
	conf := do.MustInvoke[config.Config](injector)
	client := do.MustInvoke[*ethclient.Client](injector)

	if !common.IsHexAddress(conf.Holders.CollectionAddress) {
		return nil, errors.Wrapf(errs.InvalidArgument, "invalid collection address %q", conf.Holders.CollectionAddress)
	}
	collection := common.HexToAddress(conf.Holders.CollectionAddress)

	var store datagateway.EventDataGateway
	switch strings.ToLower(conf.Holders.Database) {
	case "postgresql", "postgres", "pg":
		pg, err := postgres.NewPool(ctx, conf.Holders.Postgres)
		if err != nil {
			if errors.Is(err, errs.InvalidArgument) {
				return nil, errors.Wrap(err, "Invalid Postgres configuration for holders")
			}
			return nil, errors.Wrap(err, "can't create Postgres connection pool")
		}
		store = holderspostgres.NewRepository(pg, pg.Close)
	case "pebble":
		repo, err := holderspebble.NewRepository(filepath.Clean(conf.Holders.Pebble.Path), nil)
		if err != nil {
			return nil, errors.Wrap(err, "can't open pebble event store")
		}
		store = repo
	default:
		return nil, errors.Wrapf(errs.Unsupported, "%q database for holders is not supported", conf.Holders.Database)
	}

	datasource := datasources.NewEVMNode(client, collection)
	if err := datasource.VerifyChainID(ctx, conf.Network.ChainID()); err != nil {
		_ = store.Close(ctx)
		return nil, errors.Wrap(err, "invalid EVM node")
	}

	service := NewService(conf.Network, datasource, store, ratelimiter.New(conf.EVMNode.RPS), conf.Holders)
	if err := service.VerifyStates(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, errors.WithStack(err)
	}

	logger.InfoContext(ctx, "Holders service initialized",
		slogx.String("database", conf.Holders.Database),
		slogx.Stringer("collection", collection),
		slogx.Uint64("genesis_height", conf.Holders.GenesisHeight),
	)
	return service, nil
}
