package chaintracker

import (
	"strings"

	"github.com/0xsequence/ethkit/go-ethereum/accounts/abi"
	"github.com/0xsequence/ethkit/go-ethereum/common"
)

// entryPointEventsABI is the JSON ABI fragment for the three events this
// tracker cares about, shared by both V0.6 and V0.7 since their field
// shapes coincide. Parsed once at package init the same way generated
// contract bindings (see the teacher's erc20_mock.gen.go) parse their ABI
// JSON via abi.JSON(strings.NewReader(...)).
const entryPointEventsABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "bytes32", "name": "userOpHash", "type": "bytes32"},
			{"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "paymaster", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "nonce", "type": "uint256"},
			{"indexed": false, "internalType": "bool", "name": "success", "type": "bool"},
			{"indexed": false, "internalType": "uint256", "name": "actualGasCost", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "actualGasUsed", "type": "uint256"}
		],
		"name": "UserOperationEvent",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "account", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "totalDeposit", "type": "uint256"}
		],
		"name": "Deposited",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "account", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "withdrawAddress", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "Withdrawn",
		"type": "event"
	}
]`

var entryPointABI abi.ABI

// Event descriptors, resolved once at init from the parsed ABI. Event.ID is
// the keccak256 hash of the canonical signature string -- the same value a
// node reports as topic[0] -- computed internally by abi.JSON the way
// go-ethereum's own abi.NewEvent does for every generated contract binding.
var (
	userOperationEventABI abi.Event
	depositedEventABI     abi.Event
	withdrawnEventABI     abi.Event
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(entryPointEventsABI))
	if err != nil {
		panic("chaintracker: invalid entry point events ABI: " + err.Error())
	}
	entryPointABI = parsed
	userOperationEventABI = parsed.Events["UserOperationEvent"]
	depositedEventABI = parsed.Events["Deposited"]
	withdrawnEventABI = parsed.Events["Withdrawn"]
}

// eventSignatureHashes returns the topic[0] set that should be included in
// the log filter template for the given set of enabled entry-point
// versions. Note V0.6 and V0.7 resolve to the same three hashes here since
// their event shapes (and therefore signatures) coincide in this model;
// routing to the right per-version decoder happens by entry-point address,
// not by topic, so the coincidence is harmless.
func eventSignatureHashes(settings Settings) []common.Hash {
	var hashes []common.Hash
	if settings.hasVersion(EntryPointVersionV0_6) || settings.hasVersion(EntryPointVersionV0_7) {
		hashes = append(hashes, userOperationEventABI.ID, depositedEventABI.ID, withdrawnEventABI.ID)
	}
	return hashes
}
