package holders

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/core/datasources"
	"github.com/gaze-network/holders-snapshot/modules/holders/config"
	"github.com/gaze-network/holders-snapshot/pkg/logger"
	"github.com/gaze-network/holders-snapshot/pkg/logger/slogx"
	"github.com/gaze-network/holders-snapshot/pkg/ratelimiter"
	"github.com/gaze-network/holders-snapshot/pkg/retry"
	"github.com/holiman/uint256"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// BalanceTally is the exact sum of the owners' balances.
type BalanceTally struct {
	Total  *uint256.Int
	Owners int

	// Zeroed is the number of owners counted as zero after their retry policy was exhausted.
	Zeroed int
}

// ProgressFunc is called each time an owner's balance query completes.
type ProgressFunc func(done, total int)

// BalanceAggregator queries owner balances through a rate limiter and sums them.
type BalanceAggregator struct {
	source     datasources.BalanceSource
	limiter    *ratelimiter.Limiter
	config     config.BalancesConfig
	onProgress ProgressFunc
}

func NewBalanceAggregator(source datasources.BalanceSource, limiter *ratelimiter.Limiter, conf config.BalancesConfig) *BalanceAggregator {
	if conf.Retry == (retry.Policy{}) {
		conf.Retry = retry.Fixed(DefaultBalanceRetryDelay)
	}
	if conf.ProgressInterval <= 0 {
		conf.ProgressInterval = DefaultBalanceProgressInterval
	}
	return &BalanceAggregator{
		source:  source,
		limiter: limiter,
		config:  conf,
	}
}

// OnProgress registers fn to be called after every completed balance query.
// fn may be called from multiple goroutines.
func (a *BalanceAggregator) OnProgress(fn ProgressFunc) {
	a.onProgress = fn
}

// SumBalances returns the sum of the balances of owners at height. Duplicate owners are queried once.
//
// Each query is retried according to the balance retry policy. Any other failure aborts the
// aggregation and no partial total is returned.
func (a *BalanceAggregator) SumBalances(ctx context.Context, owners []common.Address, height uint64) (BalanceTally, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unique := lo.Uniq(owners)
	logger.InfoContext(ctx, "Querying owner balances",
		slogx.Int("owners", len(unique)),
		slogx.Uint64("height", height),
		slogx.Duration("interval", a.limiter.Interval()),
	)

	var (
		done      atomic.Int64
		zeroed    atomic.Int64
		startTime = time.Now()
	)
	futures := make([]*ratelimiter.Future[*uint256.Int], 0, len(unique))
	for _, owner := range unique {
		futures = append(futures, ratelimiter.Add(a.limiter, func() (*uint256.Int, error) {
			if err := ctx.Err(); err != nil {
				return nil, errors.WithStack(err)
			}
			balance, isZeroed, err := a.fetchBalance(ctx, owner, height)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			if isZeroed {
				zeroed.Add(1)
			}
			a.reportProgress(ctx, int(done.Add(1)), len(unique))
			return balance, nil
		}))
	}

	balances := make([]*uint256.Int, len(futures))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, future := range futures {
		group.Go(func() error {
			balance, err := future.Wait(groupCtx)
			if err != nil {
				return errors.Wrapf(err, "failed to get balance of %s", unique[i])
			}
			balances[i] = balance
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return BalanceTally{}, errors.WithStack(err)
	}

	total := uint256.NewInt(0)
	for i, balance := range balances {
		if _, overflow := total.AddOverflow(total, balance); overflow {
			return BalanceTally{}, errors.Wrapf(errs.OverflowUint256, "sum overflow at owner %s", unique[i])
		}
	}

	logger.InfoContext(ctx, "Finished querying owner balances",
		slogx.Int("owners", len(unique)),
		slogx.String("total", total.Dec()),
		slogx.Duration("took", time.Since(startTime)),
	)
	return BalanceTally{
		Total:  total,
		Owners: len(unique),
		Zeroed: int(zeroed.Load()),
	}, nil
}

// fetchBalance returns zero with isZeroed set if the retry policy is exhausted and zero fallback is enabled.
func (a *BalanceAggregator) fetchBalance(ctx context.Context, owner common.Address, height uint64) (balance *uint256.Int, isZeroed bool, err error) {
	err = retry.Do(ctx, a.config.Retry, func(ctx context.Context) error {
		b, err := a.source.BalanceOf(ctx, owner, height)
		if err != nil {
			if errors.Is(err, errs.OverflowUint256) {
				return retry.Permanent(err)
			}
			return errors.WithStack(err)
		}
		balance = b
		return nil
	}, func(err error, attempt uint64, wait time.Duration) {
		logger.WarnContext(ctx, "Failed to fetch balance, retrying",
			slogx.Error(err),
			slogx.Stringer("owner", owner),
			slogx.Uint64("attempt", attempt),
			slogx.Duration("wait", wait),
		)
	})
	if err != nil {
		if a.config.ZeroOnExhausted && errors.Is(err, retry.ErrExhausted) {
			logger.WarnContext(ctx, "Retries exhausted, counting balance as zero", slogx.Error(err), slogx.Stringer("owner", owner))
			return uint256.NewInt(0), true, nil
		}
		return nil, false, errors.WithStack(err)
	}
	if balance == nil {
		balance = uint256.NewInt(0)
	}
	return balance, false, nil
}

func (a *BalanceAggregator) reportProgress(ctx context.Context, done, total int) {
	if a.onProgress != nil {
		a.onProgress(done, total)
	}
	if done%a.config.ProgressInterval == 0 || done == total {
		logger.InfoContext(ctx, "Owner balances progress", slogx.Int("done", done), slogx.Int("total", total))
	}
}
