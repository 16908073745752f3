package postgres

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	gazecommon "github.com/gaze-network/holders-snapshot/common"
	"github.com/gaze-network/holders-snapshot/common/errs"
	"github.com/gaze-network/holders-snapshot/core/types"
	"github.com/gaze-network/holders-snapshot/modules/holders/internal/entity"
	"github.com/gaze-network/holders-snapshot/modules/holders/repository/postgres/gen"
)

func mapTransferEventTypesToParams(src []types.TransferEvent) gen.BatchCreateTransferEventsParams {
	params := gen.BatchCreateTransferEventsParams{
		BlockHeightArr: make([]int64, 0, len(src)),
		LogIndexArr:    make([]int32, 0, len(src)),
		TxHashArr:      make([]string, 0, len(src)),
		FromAddressArr: make([]string, 0, len(src)),
		ToAddressArr:   make([]string, 0, len(src)),
		TokenIDArr:     make([]string, 0, len(src)),
	}
	for _, event := range src {
		params.BlockHeightArr = append(params.BlockHeightArr, int64(event.BlockHeight))
		params.LogIndexArr = append(params.LogIndexArr, int32(event.LogIndex))
		params.TxHashArr = append(params.TxHashArr, event.TxHash)
		params.FromAddressArr = append(params.FromAddressArr, event.From.Hex())
		params.ToAddressArr = append(params.ToAddressArr, event.To.Hex())
		params.TokenIDArr = append(params.TokenIDArr, event.TokenID)
	}
	return params
}

func mapTransferEventModelToType(src gen.HoldersTransferEvent) (types.TransferEvent, error) {
	if src.BlockHeight < 0 || src.LogIndex < 0 {
		return types.TransferEvent{}, errors.Wrapf(errs.InternalError, "invalid event position %d:%d", src.BlockHeight, src.LogIndex)
	}
	if !common.IsHexAddress(src.FromAddress) || !common.IsHexAddress(src.ToAddress) {
		return types.TransferEvent{}, errors.Wrapf(errs.InternalError, "invalid address in event %d:%d", src.BlockHeight, src.LogIndex)
	}
	return types.TransferEvent{
		BlockHeight: uint64(src.BlockHeight),
		LogIndex:    uint32(src.LogIndex),
		TxHash:      src.TxHash,
		From:        common.HexToAddress(src.FromAddress),
		To:          common.HexToAddress(src.ToAddress),
		TokenID:     src.TokenID,
	}, nil
}

func mapStoreInfoModelToType(src gen.HoldersStoreInfo) entity.StoreInfo {
	var createdAt time.Time
	if src.CreatedAt.Valid {
		createdAt = src.CreatedAt.Time.UTC()
	}
	return entity.StoreInfo{
		Network:           gazecommon.Network(src.Network),
		CollectionAddress: src.CollectionAddress,
		ClientVersion:     src.ClientVersion,
		CreatedAt:         createdAt,
	}
}
