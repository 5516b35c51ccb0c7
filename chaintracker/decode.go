package chaintracker

import (
	"math/big"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
	"github.com/goware/logger"
	"github.com/holiman/uint256"
)

// decodedLog is the result of decoding exactly one log: at most one of
// MinedOp/BalanceUpdate is non-nil. Both nil means the log was recognized
// as belonging to a known event but failed to decode, or belonged to no
// known event/address at all -- both cases are logged and skipped, never
// fatal to the batch, per the decoder's purely-functional, fail-open
// contract.
type decodedLog struct {
	MinedOp       *MinedOp
	BalanceUpdate *BalanceUpdate
}

// decodeLog dispatches a single raw log to the decoder for its configured
// entry-point version. version is resolved by the caller from the log's
// emitting address; Unspecified is logged and skipped here. loadOpsInBlock
// also skips, with the same warning, any log whose address is missing from
// the configured map before it calls this function.
func decodeLog(log types.Log, version EntryPointVersion, lg logger.Logger) decodedLog {
	switch version {
	case EntryPointVersionV0_6, EntryPointVersionV0_7:
		return decodeEntryPointLog(log, lg)
	default:
		lg.Warnf("chaintracker: log with unknown entry point address: %s. ignoring.", log.Address.Hex())
		return decodedLog{}
	}
}

// decodeEntryPointLog implements the shared V0.6/V0.7 decode logic: the two
// versions' event shapes coincide, so one function serves both, keeping the
// entry-point address (stamped onto the resulting record) as the only
// per-call variation. A real contract upgrade that changed one version's
// payload shape would split this back into load_v0_6/load_v0_7-style
// siblings, mirroring the original implementation's per-version functions.
func decodeEntryPointLog(log types.Log, lg logger.Logger) decodedLog {
	if len(log.Topics) == 0 {
		lg.Warnf("chaintracker: log with no topics from address %s. ignoring.", log.Address.Hex())
		return decodedLog{}
	}

	switch log.Topics[0] {
	case userOperationEventABI.ID:
		return decodeUserOperationEvent(log, lg)
	case depositedEventABI.ID:
		return decodeDeposited(log, lg)
	case withdrawnEventABI.ID:
		return decodeWithdrawn(log, lg)
	default:
		lg.Warnf("chaintracker: unknown event signature: %s", log.Topics[0].Hex())
		return decodedLog{}
	}
}

func decodeUserOperationEvent(log types.Log, lg logger.Logger) decodedLog {
	if len(log.Topics) < 4 {
		lg.Warnf("chaintracker: failed to decode v0.6/v0.7 UserOperationEvent: missing indexed topics: %+v", log)
		return decodedLog{}
	}

	values, err := userOperationEventABI.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil || len(values) != 4 {
		lg.Warnf("chaintracker: failed to decode v0.6/v0.7 UserOperationEvent: %v", err)
		return decodedLog{}
	}
	nonceBig, ok := values[0].(*big.Int)
	if !ok {
		lg.Warnf("chaintracker: failed to decode v0.6/v0.7 UserOperationEvent: unexpected nonce type")
		return decodedLog{}
	}
	actualGasCostBig, ok := values[2].(*big.Int)
	if !ok {
		lg.Warnf("chaintracker: failed to decode v0.6/v0.7 UserOperationEvent: unexpected actualGasCost type")
		return decodedLog{}
	}

	userOpHash := log.Topics[1]
	sender := common.BytesToAddress(log.Topics[2].Bytes())
	paymasterAddr := common.BytesToAddress(log.Topics[3].Bytes())

	var paymaster *common.Address
	if paymasterAddr != (common.Address{}) {
		p := paymasterAddr
		paymaster = &p
	}

	op := MinedOp{
		Hash:          userOpHash,
		EntryPoint:    log.Address,
		Sender:        sender,
		Nonce:         uint256.MustFromBig(nonceBig),
		ActualGasCost: uint256.MustFromBig(actualGasCostBig),
		Paymaster:     paymaster,
	}
	return decodedLog{MinedOp: &op}
}

func decodeDeposited(log types.Log, lg logger.Logger) decodedLog {
	if len(log.Topics) < 2 {
		lg.Warnf("chaintracker: failed to decode Deposited: missing indexed topics: %+v", log)
		return decodedLog{}
	}

	values, err := depositedEventABI.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil || len(values) != 1 {
		lg.Warnf("chaintracker: failed to decode Deposited: %v", err)
		return decodedLog{}
	}
	totalDepositBig, ok := values[0].(*big.Int)
	if !ok {
		lg.Warnf("chaintracker: failed to decode Deposited: unexpected totalDeposit type")
		return decodedLog{}
	}

	account := common.BytesToAddress(log.Topics[1].Bytes())
	update := BalanceUpdate{
		Address:    account,
		EntryPoint: log.Address,
		Amount:     uint256.MustFromBig(totalDepositBig),
		IsAddition: true,
	}
	return decodedLog{BalanceUpdate: &update}
}

func decodeWithdrawn(log types.Log, lg logger.Logger) decodedLog {
	if len(log.Topics) < 2 {
		lg.Warnf("chaintracker: failed to decode Withdrawn: missing indexed topics: %+v", log)
		return decodedLog{}
	}

	values, err := withdrawnEventABI.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil || len(values) != 2 {
		lg.Warnf("chaintracker: failed to decode Withdrawn: %v", err)
		return decodedLog{}
	}
	amountBig, ok := values[1].(*big.Int)
	if !ok {
		lg.Warnf("chaintracker: failed to decode Withdrawn: unexpected amount type")
		return decodedLog{}
	}

	account := common.BytesToAddress(log.Topics[1].Bytes())
	update := BalanceUpdate{
		Address:    account,
		EntryPoint: log.Address,
		Amount:     uint256.MustFromBig(amountBig),
		IsAddition: false,
	}
	return decodedLog{BalanceUpdate: &update}
}
