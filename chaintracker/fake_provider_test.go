package chaintracker

import (
	"context"
	"math/big"
	"sync"

	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/core/types"
)

// fakeEvents is the set of entry-point events a fakeBlock emits for one
// entry-point address, mirroring chain.rs's MockEntryPointEvents.
type fakeEvents struct {
	address         common.Address
	opHashes        []common.Hash
	depositAddrs    []common.Address
	withdrawalAddrs []common.Address
}

type fakeBlock struct {
	hash   common.Hash
	events []fakeEvents
}

// fakeProvider is a Provider driven entirely by an ordered slice of blocks,
// mirroring chain.rs's ProviderController/MockEvmProvider pair: block
// number and parent hash are derived from position in the slice, logs are
// synthesized on demand from each block's recorded events.
type fakeProvider struct {
	mu     sync.Mutex
	blocks []fakeBlock
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{}
}

func (p *fakeProvider) setBlocks(blocks []fakeBlock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blocks = blocks
}

func (p *fakeProvider) head() Block {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blockAt(len(p.blocks) - 1)
}

func (p *fakeProvider) blockAt(index int) Block {
	parent := common.Hash{}
	if index > 0 {
		parent = p.blocks[index-1].hash
	}
	return Block{
		Number:     uint64(index),
		Hash:       p.blocks[index].hash,
		ParentHash: parent,
	}
}

func (p *fakeProvider) GetBlock(_ context.Context, hash common.Hash) (*Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, b := range p.blocks {
		if b.hash == hash {
			block := p.blockAt(i)
			return &block, nil
		}
	}
	return nil, nil
}

func (p *fakeProvider) GetLatestBlock(_ context.Context) (*Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.blocks) == 0 {
		return nil, nil
	}
	block := p.blockAt(len(p.blocks) - 1)
	return &block, nil
}

func (p *fakeProvider) GetLogs(_ context.Context, filter LogFilter) ([]types.Log, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var block *fakeBlock
	for i := range p.blocks {
		if p.blocks[i].hash == filter.BlockHash {
			block = &p.blocks[i]
			break
		}
	}
	if block == nil {
		return nil, nil
	}

	var logs []types.Log
	for _, ev := range block.events {
		for _, opHash := range ev.opHashes {
			logs = append(logs, fakeUserOperationLog(ev.address, opHash))
		}
		for _, addr := range ev.depositAddrs {
			logs = append(logs, fakeDepositedLog(ev.address, addr))
		}
		for _, addr := range ev.withdrawalAddrs {
			logs = append(logs, fakeWithdrawnLog(ev.address, addr))
		}
	}
	return logs, nil
}

func fakeUserOperationLog(entryPoint common.Address, opHash common.Hash) types.Log {
	data, err := userOperationEventABI.Inputs.NonIndexed().Pack(big.NewInt(0), true, big.NewInt(0), big.NewInt(0))
	if err != nil {
		panic(err)
	}
	return types.Log{
		Address: entryPoint,
		Topics:  []common.Hash{userOperationEventABI.ID, opHash, common.Hash{}, common.Hash{}},
		Data:    data,
	}
}

func fakeDepositedLog(entryPoint, account common.Address) types.Log {
	data, err := depositedEventABI.Inputs.NonIndexed().Pack(big.NewInt(0))
	if err != nil {
		panic(err)
	}
	return types.Log{
		Address: entryPoint,
		Topics:  []common.Hash{depositedEventABI.ID, common.BytesToHash(account.Bytes())},
		Data:    data,
	}
}

func fakeWithdrawnLog(entryPoint, account common.Address) types.Log {
	data, err := withdrawnEventABI.Inputs.NonIndexed().Pack(common.Address{}, big.NewInt(0))
	if err != nil {
		panic(err)
	}
	return types.Log{
		Address: entryPoint,
		Topics:  []common.Hash{withdrawnEventABI.ID, common.BytesToHash(account.Bytes())},
		Data:    data,
	}
}

// testHash builds a deterministic fake hash with n in its first byte,
// mirroring chain.rs's test-only `hash(n: u8)` helper.
func testHash(n byte) common.Hash {
	var h common.Hash
	h[0] = n
	return h
}

// testAddr builds a deterministic fake address with n in its first byte,
// mirroring chain.rs's test-only `addr(n: u8)` helper.
func testAddr(n byte) common.Address {
	var a common.Address
	a[0] = n
	return a
}
