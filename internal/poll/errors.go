package poll

import "errors"

// Failure taxonomy for refresh cycles.
//
// Integrations wrap their fetch failures with one of these sentinels; the
// coordinator is the sole classifier and the sole place state transitions
// happen. Check with errors.Is():
//
//	if errors.Is(err, poll.ErrAuth) {
//	    // credentials rejected, re-authentication required
//	}
var (
	// ErrAuth means the remote API rejected the credentials. Not retryable
	// without external re-authentication; the coordinator stops polling.
	ErrAuth = errors.New("poll: authentication failed")

	// ErrTransient means a network failure or timeout. Retryable on the
	// normal schedule; the last published snapshot is retained.
	ErrTransient = errors.New("poll: transient fetch failure")

	// ErrProjection means a raw device record could not be projected.
	// A well-behaved collaborator never produces this; the single refresh
	// fails and the prior snapshot is kept.
	ErrProjection = errors.New("poll: projection failed")

	// ErrClosed is returned for operations on a coordinator after Close.
	ErrClosed = errors.New("poll: coordinator closed")
)
