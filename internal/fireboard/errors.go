package fireboard

import "errors"

// staleTokenSentinel marks an auth failure that may just mean the cached
// session token expired. ListDevices retries the login once for these
// before surfacing the auth error; a fresh-token rejection means the
// credentials themselves are bad.
var staleTokenSentinel = errors.New("fireboard: stale token")

func isStaleToken(err error) bool {
	return errors.Is(err, staleTokenSentinel)
}
