package chaintracker

import (
	"fmt"
	"time"

	"github.com/0xsequence/ethkit/go-ethereum/common"
)

// EntryPointVersion tags which ABI shape an entry-point address should be
// decoded with. Kept as a closed tagged enum switched on by the decoder,
// rather than a decoder interface, since the set of supported versions is
// fixed and small.
type EntryPointVersion int

const (
	EntryPointVersionUnspecified EntryPointVersion = iota
	EntryPointVersionV0_6
	EntryPointVersionV0_7
)

func (v EntryPointVersion) String() string {
	switch v {
	case EntryPointVersionV0_6:
		return "v0.6"
	case EntryPointVersionV0_7:
		return "v0.7"
	default:
		return "unspecified"
	}
}

// Settings configures a Chain. It is immutable after construction.
type Settings struct {
	// HistorySize is the number of most-recent blocks the tracker
	// remembers. Must be positive.
	HistorySize uint64

	// PollInterval is the delay between head-watch polls and the sleep
	// between retry attempts.
	PollInterval time.Duration

	// EntryPointAddresses maps each tracked entry-point contract address
	// to the ABI version it should be decoded with.
	EntryPointAddresses map[common.Address]EntryPointVersion

	// MaxSyncRetries bounds both the per-block parent-fetch retry loop
	// and the watcher's whole-sync retry loop.
	MaxSyncRetries uint64
}

// NewSettings validates and returns a Settings value. HistorySize must be
// positive -- a zero-size history window would mean every sync discards its
// own initial load before returning it to the caller.
func NewSettings(historySize uint64, pollInterval time.Duration, entryPointAddresses map[common.Address]EntryPointVersion, maxSyncRetries uint64) (Settings, error) {
	if historySize == 0 {
		return Settings{}, fmt.Errorf("chaintracker: history size should be positive")
	}
	addrs := make(map[common.Address]EntryPointVersion, len(entryPointAddresses))
	for addr, version := range entryPointAddresses {
		addrs[addr] = version
	}
	return Settings{
		HistorySize:         historySize,
		PollInterval:        pollInterval,
		EntryPointAddresses: addrs,
		MaxSyncRetries:      maxSyncRetries,
	}, nil
}

func (s Settings) hasVersion(version EntryPointVersion) bool {
	for _, v := range s.EntryPointAddresses {
		if v == version {
			return true
		}
	}
	return false
}
