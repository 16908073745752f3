package datasources

import (
	"context"
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/core/types"
	"github.com/holiman/uint256"
)

// TransferEventSignature is the topic of the ERC-721 Transfer(address,address,uint256) event.
var TransferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// JSON-RPC error code returned by providers when a log query exceeds their result limit.
const limitExceededErrorCode = -32005

var tooManyResultsMessages = []string{
	"query returned more than",
	"log response size exceeded",
	"too many results",
	"block range is too wide",
	"exceed maximum block range",
	"response size should not greater than",
}

// Make sure to implement the LedgerSource interface
var _ LedgerSource = (*EVMNodeDatasource)(nil)

// EthClient is the subset of ethclient.Client used by the datasource.
type EthClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
}

var _ EthClient = (*ethclient.Client)(nil)

// EVMNodeDatasource reads checkpoints, transfer events and balances from an EVM JSON-RPC node.
type EVMNodeDatasource struct {
	client     EthClient
	collection common.Address
}

func NewEVMNode(client EthClient, collection common.Address) *EVMNodeDatasource {
	return &EVMNodeDatasource{
		client:     client,
		collection: collection,
	}
}

func (d *EVMNodeDatasource) Name() string {
	return "evm_node"
}

// VerifyChainID returns errs.ConflictSetting if the node serves another chain.
func (d *EVMNodeDatasource) VerifyChainID(ctx context.Context, expected *big.Int) error {
	chainID, err := d.client.ChainID(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get chain id")
	}
	if chainID.Cmp(expected) != 0 {
		return errors.Wrapf(errs.ConflictSetting, "node chain id %s does not match configured chain id %s", chainID, expected)
	}
	return nil
}

func (d *EVMNodeDatasource) CurrentHeight(ctx context.Context) (uint64, error) {
	height, err := d.client.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get block number")
	}
	return height, nil
}

func (d *EVMNodeDatasource) CheckpointAt(ctx context.Context, height uint64) (types.Checkpoint, error) {
	header, err := d.client.HeaderByNumber(ctx, new(big.Int).SetUint64(height))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return types.Checkpoint{}, errors.Wrapf(errs.NotFound, "block %d not found", height)
		}
		return types.Checkpoint{}, errors.Wrapf(err, "failed to get header of block %d", height)
	}
	return types.Checkpoint{
		Height:    height,
		Timestamp: int64(header.Time),
	}, nil
}

func (d *EVMNodeDatasource) TransferEventsInRange(ctx context.Context, from, to uint64) ([]types.TransferEvent, error) {
	if from > to {
		return nil, errors.Wrapf(errs.InvalidArgument, "invalid range [%d, %d]", from, to)
	}
	logs, err := d.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{d.collection},
		Topics:    [][]common.Hash{{TransferEventSignature}},
	})
	if err != nil {
		if IsTooManyResults(err) {
			return nil, errors.Wrapf(errs.TooManyResults, "range [%d, %d]: %v", from, to, err)
		}
		return nil, errors.Wrapf(err, "failed to filter logs in range [%d, %d]", from, to)
	}

	events := make([]types.TransferEvent, 0, len(logs))
	for _, log := range logs {
		event, ok := parseTransferLog(log)
		if !ok {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (d *EVMNodeDatasource) BalanceOf(ctx context.Context, owner common.Address, height uint64) (*uint256.Int, error) {
	balance, err := d.client.BalanceAt(ctx, owner, new(big.Int).SetUint64(height))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get balance of %s at block %d", owner, height)
	}
	result, overflow := uint256.FromBig(balance)
	if overflow {
		return nil, errors.Wrapf(errs.OverflowUint256, "balance of %s", owner)
	}
	return result, nil
}

// parseTransferLog decodes an ERC-721 transfer log. ERC-20 transfers share the
// same signature but carry the amount in data (3 topics), so they are skipped.
func parseTransferLog(log ethtypes.Log) (types.TransferEvent, bool) {
	if len(log.Topics) != 4 || log.Topics[0] != TransferEventSignature || log.Removed {
		return types.TransferEvent{}, false
	}
	return types.TransferEvent{
		BlockHeight: log.BlockNumber,
		LogIndex:    uint32(log.Index),
		TxHash:      log.TxHash.Hex(),
		From:        common.BytesToAddress(log.Topics[1].Bytes()),
		To:          common.BytesToAddress(log.Topics[2].Bytes()),
		TokenID:     log.Topics[3].Big().String(),
	}, true
}

// IsTooManyResults reports whether err is a provider's "result set too large" rejection.
func IsTooManyResults(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errs.TooManyResults) {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == limitExceededErrorCode {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range tooManyResultsMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
