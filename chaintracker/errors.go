package chaintracker

import "errors"

// Sentinel error kinds. Wrapped at the call site (with fmt.Errorf's %w, or
// with github.com/goware/superr where an underlying provider error is
// carried along) so a caller can errors.Is against the kind while still
// seeing the details in the message, the same pattern ethmonitor.go uses
// for ErrFatal/ErrMaxAttempts.
var (
	// ErrProviderTransient means an RPC call failed or returned an
	// unexpected "not found". The caller retries.
	ErrProviderTransient = errors.New("chaintracker: provider transient error")

	// ErrProviderInconsistent means the provider returned data that
	// disagrees with what the caller asked for: a block number that
	// doesn't match an expectation, or a parent hash that resolves to
	// nothing. This guards against corrupting history indexing later.
	ErrProviderInconsistent = errors.New("chaintracker: provider returned inconsistent data")

	// ErrStaleHead means the new head is impossibly far behind the
	// currently tracked head.
	ErrStaleHead = errors.New("chaintracker: new head is stale relative to tracked history")
)
