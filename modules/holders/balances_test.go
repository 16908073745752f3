package holders

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/modules/holders/config"
	"github.com/gaze-network/holders-snapshot/pkg/ratelimiter"
	"github.com/gaze-network/holders-snapshot/pkg/retry"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBalancesConfig() config.BalancesConfig {
	return config.BalancesConfig{
		Retry: retry.Fixed(time.Millisecond),
	}
}

func TestSumBalances(t *testing.T) {
	source := newFakeSource()
	source.balances[alice] = uint256.NewInt(10)
	source.balances[bob] = uint256.NewInt(0)
	source.balances[carol] = uint256.NewInt(5)
	// complete in reverse submission order
	source.balanceDelay = func(owner common.Address) time.Duration {
		switch owner {
		case alice:
			return 60 * time.Millisecond
		case bob:
			return 30 * time.Millisecond
		default:
			return 0
		}
	}

	aggregator := NewBalanceAggregator(source, ratelimiter.New(1000), testBalancesConfig())
	tally, err := aggregator.SumBalances(context.Background(), []common.Address{alice, bob, carol}, 100)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(15), tally.Total)
	assert.Equal(t, 3, tally.Owners)
	assert.Zero(t, tally.Zeroed)
}

func TestSumBalancesDeduplicates(t *testing.T) {
	source := newFakeSource()
	source.balances[alice] = uint256.NewInt(7)
	source.balances[bob] = uint256.NewInt(3)

	aggregator := NewBalanceAggregator(source, ratelimiter.New(1000), testBalancesConfig())
	tally, err := aggregator.SumBalances(context.Background(), []common.Address{alice, bob, alice, alice}, 100)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(10), tally.Total)
	assert.Equal(t, 2, tally.Owners)
	assert.Equal(t, map[common.Address]int{alice: 1, bob: 1}, source.balanceCalls)
}

func TestSumBalancesExactArithmetic(t *testing.T) {
	source := newFakeSource()
	source.balances[alice] = uint256.MustFromDecimal("123456789012345678901234567890")
	source.balances[bob] = uint256.MustFromDecimal("1")

	aggregator := NewBalanceAggregator(source, ratelimiter.New(1000), testBalancesConfig())
	tally, err := aggregator.SumBalances(context.Background(), []common.Address{alice, bob}, 100)
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567891", tally.Total.Dec())

	t.Run("overflow", func(t *testing.T) {
		source := newFakeSource()
		source.balances[alice] = new(uint256.Int).SetAllOne()
		source.balances[bob] = uint256.NewInt(1)

		aggregator := NewBalanceAggregator(source, ratelimiter.New(1000), testBalancesConfig())
		_, err := aggregator.SumBalances(context.Background(), []common.Address{alice, bob}, 100)
		assert.ErrorIs(t, err, errs.OverflowUint256)
	})
}

func TestSumBalancesRetry(t *testing.T) {
	t.Run("transient_failures_are_retried", func(t *testing.T) {
		source := newFakeSource()
		source.balances[alice] = uint256.NewInt(4)
		source.balances[bob] = uint256.NewInt(6)
		source.balanceFailures[alice] = 3

		aggregator := NewBalanceAggregator(source, ratelimiter.New(1000), testBalancesConfig())
		tally, err := aggregator.SumBalances(context.Background(), []common.Address{alice, bob}, 100)
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(10), tally.Total)
		assert.Equal(t, 4, source.balanceCalls[alice])
	})

	t.Run("bounded_policy_exhausted", func(t *testing.T) {
		source := newFakeSource()
		source.balances[bob] = uint256.NewInt(6)
		source.balanceFailures[alice] = 100

		conf := testBalancesConfig()
		conf.Retry = conf.Retry.WithMaxAttempts(2)
		aggregator := NewBalanceAggregator(source, ratelimiter.New(1000), conf)
		_, err := aggregator.SumBalances(context.Background(), []common.Address{alice, bob}, 100)
		require.Error(t, err)
		assert.True(t, errors.Is(err, retry.ErrExhausted))
		assert.ErrorIs(t, err, errTransient)
	})

	t.Run("zero_on_exhausted", func(t *testing.T) {
		source := newFakeSource()
		source.balances[alice] = uint256.NewInt(100)
		source.balances[bob] = uint256.NewInt(6)
		source.balanceFailures[alice] = 100

		conf := testBalancesConfig()
		conf.Retry = conf.Retry.WithMaxAttempts(2)
		conf.ZeroOnExhausted = true
		aggregator := NewBalanceAggregator(source, ratelimiter.New(1000), conf)
		tally, err := aggregator.SumBalances(context.Background(), []common.Address{alice, bob}, 100)
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(6), tally.Total)
		assert.Equal(t, 1, tally.Zeroed)
		assert.Equal(t, 2, source.balanceCalls[alice])
	})

	t.Run("canceled", func(t *testing.T) {
		source := newFakeSource()
		source.balanceErr = errTransient

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		aggregator := NewBalanceAggregator(source, ratelimiter.New(1000), testBalancesConfig())
		_, err := aggregator.SumBalances(ctx, []common.Address{alice, bob, carol}, 100)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSumBalancesProgress(t *testing.T) {
	source := newFakeSource()
	owners := make([]common.Address, 0, 20)
	for i := 1; i <= 20; i++ {
		owner := common.BigToAddress(uint256.NewInt(uint64(i)).ToBig())
		owners = append(owners, owner)
		source.balances[owner] = uint256.NewInt(uint64(i))
	}

	var (
		calls   atomic.Int64
		maxDone atomic.Int64
	)
	aggregator := NewBalanceAggregator(source, ratelimiter.New(1000), testBalancesConfig())
	aggregator.OnProgress(func(done, total int) {
		calls.Add(1)
		assert.Equal(t, 20, total)
		for {
			current := maxDone.Load()
			if int64(done) <= current || maxDone.CompareAndSwap(current, int64(done)) {
				break
			}
		}
	})

	tally, err := aggregator.SumBalances(context.Background(), owners, 100)
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(210), tally.Total)
	assert.Equal(t, int64(20), calls.Load())
	assert.Equal(t, int64(20), maxDone.Load())
}

func TestSumBalancesRateLimited(t *testing.T) {
	source := newFakeSource()
	var starts []time.Time
	source.balanceDelay = func(common.Address) time.Duration {
		starts = append(starts, time.Now()) // called under the source lock
		return 0
	}

	limiter := ratelimiter.New(25)
	aggregator := NewBalanceAggregator(source, limiter, testBalancesConfig())
	_, err := aggregator.SumBalances(context.Background(), []common.Address{alice, bob, carol}, 100)
	require.NoError(t, err)

	require.Len(t, starts, 3)
	for i := 1; i < len(starts); i++ {
		// allow for scheduling jitter between dispatch and the query
		assert.GreaterOrEqual(t, starts[i].Sub(starts[0]), time.Duration(i)*limiter.Interval()-5*time.Millisecond)
	}
}
