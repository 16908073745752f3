package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/internal/config"
	"github.com/gaze-network/holders-snapshot/modules/holders"
	"github.com/gaze-network/holders-snapshot/pkg/automaxprocs"
	"github.com/gaze-network/holders-snapshot/pkg/logger"
	"github.com/gaze-network/holders-snapshot/pkg/logger/slogx"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

type runCmdArgs struct {
	Timestamp int64
}

func (a *runCmdArgs) ParseArgs(args []string) error {
	// assume args already validated by cobra to be len(args) == 1
	ts, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.Wrapf(errs.InvalidArgument, "invalid unix timestamp %q", args[0])
	}
	if ts < 0 {
		return errors.Wrapf(errs.InvalidArgument, "unix timestamp must not be negative, got %d", ts)
	}
	a.Timestamp = ts
	return nil
}

func NewRunCommand() *cobra.Command {
	runCmd := &cobra.Command{
		Use:     "run <unix-timestamp>",
		Short:   "Print the total balance held by the collection owners at the given time",
		Args:    cobra.ExactArgs(1),
		Example: `holders run 1700000000 --config ./config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := automaxprocs.Init(); err != nil {
				logger.Error("Failed to set GOMAXPROCS", slogx.Error(err))
			}
			var runArgs runCmdArgs
			if err := runArgs.ParseArgs(args); err != nil {
				return errors.Wrap(err, "failed to parse args")
			}
			return runHandler(cmd, runArgs)
		},
	}
	return runCmd
}

func runHandler(cmd *cobra.Command, args runCmdArgs) error {
	conf := config.Load()

	// Validate inputs and configurations
	{
		if !conf.Network.IsSupported() {
			return errors.Wrapf(errs.Unsupported, "%q network is not supported", conf.Network.String())
		}
		if conf.EVMNode.URL == "" {
			return errors.Wrap(errs.InvalidArgument, "evm_node.url is required")
		}
	}

	ctx := cmd.Context()

	injector := do.New()
	do.ProvideValue(injector, conf)
	do.ProvideValue(injector, ctx)

	// Initialize EVM node client
	do.Provide(injector, func(i do.Injector) (*ethclient.Client, error) {
		conf := do.MustInvoke[config.Config](i)
		ctx := do.MustInvoke[context.Context](i)

		start := time.Now()
		logger.InfoContext(ctx, "Connecting to EVM node...", slogx.String("network", conf.Network.String()))
		client, err := ethclient.DialContext(ctx, conf.EVMNode.URL)
		if err != nil {
			return nil, errors.Wrap(err, "can't connect to EVM node")
		}

		// Check EVM node connection
		height, err := client.BlockNumber(ctx)
		if err != nil {
			client.Close()
			return nil, errors.Wrap(err, "can't get block number from EVM node")
		}
		logger.InfoContext(ctx, "Connected to EVM node", slog.Duration("latency", time.Since(start)), slogx.Uint64("height", height))
		return client, nil
	})
	do.Provide(injector, holders.New)

	defer func() {
		if err := injector.Shutdown(); err != nil {
			logger.ErrorContext(ctx, "Failed while gracefully shutting down", err)
		}
	}()

	service, err := do.Invoke[*holders.Service](injector)
	if err != nil {
		return errors.Wrap(err, "failed to initialize holders service")
	}

	snapshot, err := service.Snapshot(ctx, args.Timestamp)
	if err != nil {
		return errors.Wrapf(err, "failed to snapshot holders at %d", args.Timestamp)
	}

	logger.InfoContext(ctx, "Snapshot completed",
		slogx.Uint64("height", snapshot.Checkpoint.Height),
		slogx.Int64("checkpoint_timestamp", snapshot.Checkpoint.Timestamp),
		slogx.Int("tokens", snapshot.Tokens),
		slogx.Int("owners", snapshot.Owners),
		slogx.Int("zeroed", snapshot.Zeroed),
		slogx.String("total_wei", snapshot.Total.Dec()),
	)
	fmt.Fprintln(cmd.OutOrStdout(), snapshot.TotalEther().String())
	return nil
}
