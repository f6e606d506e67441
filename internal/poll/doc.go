// Package poll implements the polling-to-entity projection engine: a
// coordinator per integration instance that turns a remote API's device
// list into a stable, keyed snapshot of derived records, refreshed on a
// fixed interval and served to read-only observers.
//
// # Lifecycle
//
// Uninitialized -> Refreshing -> Ready <-> Refreshing, with FailedAuth as
// a terminal state that only external re-authentication exits, and Closed
// after teardown. Start performs one synchronous refresh so callers can
// abort setup on failure instead of publishing an empty snapshot.
//
// # Failure handling
//
//   - ErrAuth: polling stops, the stale snapshot stays visible, and the
//     re-auth signal callback fires once.
//   - ErrTransient / ErrProjection: the prior snapshot is retained and the
//     fixed schedule continues. There is deliberately no backoff; the
//     remote APIs are cheap list calls and the interval is long relative
//     to the fetch timeout.
//
// # Concurrency
//
// At most one fetch is outstanding per coordinator. Refresh requests that
// arrive while a fetch is in flight coalesce into a single pending
// follow-up cycle; all such callers share its result. Snapshot reads are
// lock-free in effect: publication is an atomic reference replacement
// under a short critical section, and readers never see a snapshot under
// construction. Coordinators share no state with each other.
package poll
