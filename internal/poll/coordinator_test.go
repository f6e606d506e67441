package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kestrelhaus/cloudpoll/internal/entity"
)

// scriptedFetcher returns canned results per call and counts invocations.
type scriptedFetcher struct {
	mu      sync.Mutex
	calls   int
	results []func() (entity.Snapshot, error)
}

func (f *scriptedFetcher) Fetch(_ context.Context) (entity.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	idx := f.calls - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	return f.results[idx]()
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func okSnapshot(value float64) func() (entity.Snapshot, error) {
	return func() (entity.Snapshot, error) {
		v := value
		return entity.Snapshot{
			"FB1_battery": {Key: "FB1_battery", Kind: entity.KindBattery, Value: &v},
		}, nil
	}
}

func failWith(err error) func() (entity.Snapshot, error) {
	return func() (entity.Snapshot, error) { return nil, err }
}

func TestRefresh_PublishesSnapshot(t *testing.T) {
	f := &scriptedFetcher{results: []func() (entity.Snapshot, error){okSnapshot(80)}}
	c := New("test", f)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if got := c.State(); got != StateReady {
		t.Errorf("State() = %v, want %v", got, StateReady)
	}

	rec, err := c.Snapshot().Get("FB1_battery")
	if err != nil {
		t.Fatalf("snapshot missing FB1_battery: %v", err)
	}
	if rec.Value == nil || *rec.Value != 80 {
		t.Errorf("value = %v, want 80", rec.Value)
	}
}

func TestSnapshot_EmptyBeforeFirstRefresh(t *testing.T) {
	c := New("test", &scriptedFetcher{results: []func() (entity.Snapshot, error){okSnapshot(1)}})

	if got := c.State(); got != StateUninitialized {
		t.Errorf("State() = %v, want %v", got, StateUninitialized)
	}
	if snap := c.Snapshot(); len(snap) != 0 {
		t.Errorf("Snapshot() has %d records before first refresh, want 0", len(snap))
	}
}

func TestRefresh_AuthFailureFreezesState(t *testing.T) {
	authErr := fmt.Errorf("%w: token rejected", ErrAuth)
	f := &scriptedFetcher{results: []func() (entity.Snapshot, error){
		okSnapshot(80),
		failWith(authErr),
	}}

	var reauthCount atomic.Int32
	c := New("test", f, WithReauthSignal(func(error) { reauthCount.Add(1) }))

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	before := c.Snapshot()

	err := c.Refresh(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("second Refresh() error = %v, want ErrAuth", err)
	}

	if got := c.State(); got != StateFailedAuth {
		t.Errorf("State() = %v, want %v", got, StateFailedAuth)
	}

	// Stale data remains visible.
	after := c.Snapshot()
	if len(after) != len(before) {
		t.Errorf("snapshot changed on auth failure: %d records, want %d", len(after), len(before))
	}
	rec, err := after.Get("FB1_battery")
	if err != nil || rec.Value == nil || *rec.Value != 80 {
		t.Errorf("stale record lost: rec=%+v err=%v", rec, err)
	}

	if got := reauthCount.Load(); got != 1 {
		t.Errorf("reauth signal fired %d times, want 1", got)
	}

	// Further refreshes fail fast without touching the fetcher.
	calls := f.callCount()
	if err := c.Refresh(context.Background()); !errors.Is(err, ErrAuth) {
		t.Errorf("Refresh() in FailedAuth error = %v, want ErrAuth", err)
	}
	if got := f.callCount(); got != calls {
		t.Errorf("fetcher called %d times in FailedAuth, want %d", got, calls)
	}
}

func TestRefresh_TransientFailurePreservesSnapshot(t *testing.T) {
	transientErr := fmt.Errorf("%w: connection refused", ErrTransient)
	f := &scriptedFetcher{results: []func() (entity.Snapshot, error){
		okSnapshot(80),
		failWith(transientErr),
		okSnapshot(75),
	}}
	c := New("test", f)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}

	err := c.Refresh(context.Background())
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("second Refresh() error = %v, want ErrTransient", err)
	}

	// Returns to Ready, snapshot unchanged.
	if got := c.State(); got != StateReady {
		t.Errorf("State() = %v, want %v", got, StateReady)
	}
	rec, err := c.Snapshot().Get("FB1_battery")
	if err != nil || rec.Value == nil || *rec.Value != 80 {
		t.Errorf("snapshot not preserved: rec=%+v err=%v", rec, err)
	}

	// A later success replaces the snapshot as usual.
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("third Refresh() error = %v", err)
	}
	rec, _ = c.Snapshot().Get("FB1_battery")
	if rec.Value == nil || *rec.Value != 75 {
		t.Errorf("value after recovery = %v, want 75", rec.Value)
	}
}

func TestRefresh_TransientFirstFailureStaysUninitialized(t *testing.T) {
	f := &scriptedFetcher{results: []func() (entity.Snapshot, error){
		failWith(fmt.Errorf("%w: timeout", ErrTransient)),
	}}
	c := New("test", f)

	if err := c.Refresh(context.Background()); !errors.Is(err, ErrTransient) {
		t.Fatalf("Refresh() error = %v, want ErrTransient", err)
	}
	if got := c.State(); got != StateUninitialized {
		t.Errorf("State() = %v, want %v", got, StateUninitialized)
	}
}

// gatedFetcher blocks each Fetch until released, so tests can hold a
// refresh in flight.
type gatedFetcher struct {
	started chan struct{}
	gate    chan struct{}
	calls   atomic.Int32
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		started: make(chan struct{}, 16),
		gate:    make(chan struct{}),
	}
}

func (f *gatedFetcher) Fetch(_ context.Context) (entity.Snapshot, error) {
	f.calls.Add(1)
	f.started <- struct{}{}
	<-f.gate
	return entity.Snapshot{}, nil
}

func TestRefresh_CoalescesConcurrentRequests(t *testing.T) {
	f := newGatedFetcher()
	c := New("test", f)
	ctx := context.Background()

	// Hold one refresh in flight.
	firstDone := make(chan error, 1)
	go func() { firstDone <- c.Refresh(ctx) }()
	<-f.started

	// Two concurrent triggers while the fetch is running.
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.Refresh(ctx)
		}()
	}

	// Give both callers time to join the pending cycle.
	time.Sleep(50 * time.Millisecond)

	// Complete the in-flight fetch; the coalesced follow-up starts.
	f.gate <- struct{}{}
	<-f.started
	f.gate <- struct{}{}

	if err := <-firstDone; err != nil {
		t.Errorf("in-flight Refresh() error = %v", err)
	}
	wg.Wait()
	close(results)
	for err := range results {
		if err != nil {
			t.Errorf("coalesced Refresh() error = %v", err)
		}
	}

	// Exactly one additional fetch after the first, not two.
	if got := f.calls.Load(); got != 2 {
		t.Errorf("fetcher invoked %d times, want 2", got)
	}
}

func TestSubscribe_NotifiedOnceInRegistrationOrder(t *testing.T) {
	f := &scriptedFetcher{results: []func() (entity.Snapshot, error){
		okSnapshot(80),
		failWith(fmt.Errorf("%w: flaky", ErrTransient)),
	}}
	c := New("test", f)

	var mu sync.Mutex
	var order []string
	c.Subscribe(func(entity.Snapshot) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	c.Subscribe(func(entity.Snapshot) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
	})

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// A failing refresh does not notify.
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected transient error")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"first", "second"}
	if len(order) != len(want) {
		t.Fatalf("notifications = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("notification[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	f := &scriptedFetcher{results: []func() (entity.Snapshot, error){okSnapshot(80)}}
	c := New("test", f)

	var notified atomic.Int32
	id := c.Subscribe(func(entity.Snapshot) { notified.Add(1) })
	c.Unsubscribe(id)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := notified.Load(); got != 0 {
		t.Errorf("unsubscribed callback fired %d times", got)
	}
}

func TestStart_FirstRefreshFailureDoesNotArmTimer(t *testing.T) {
	f := &scriptedFetcher{results: []func() (entity.Snapshot, error){
		failWith(fmt.Errorf("%w: bad password", ErrAuth)),
	}}
	c := New("test", f, WithInterval(5*time.Millisecond))

	err := c.Start(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("Start() error = %v, want ErrAuth", err)
	}

	calls := f.callCount()
	time.Sleep(30 * time.Millisecond)
	if got := f.callCount(); got != calls {
		t.Errorf("timer ran after failed Start: %d calls, want %d", got, calls)
	}
}

func TestStart_PollsOnInterval(t *testing.T) {
	f := &scriptedFetcher{results: []func() (entity.Snapshot, error){okSnapshot(80)}}
	c := New("test", f, WithInterval(5*time.Millisecond))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Close()

	deadline := time.After(2 * time.Second)
	for f.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("timer produced %d fetches, want >= 3", f.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStart_AuthFailureStopsTimer(t *testing.T) {
	f := &scriptedFetcher{results: []func() (entity.Snapshot, error){
		okSnapshot(80),
		failWith(fmt.Errorf("%w: token expired", ErrAuth)),
	}}
	c := New("test", f, WithInterval(5*time.Millisecond))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Close()

	deadline := time.After(2 * time.Second)
	for c.State() != StateFailedAuth {
		select {
		case <-deadline:
			t.Fatalf("coordinator never entered FailedAuth, state=%v", c.State())
		case <-time.After(5 * time.Millisecond):
		}
	}

	// No further timer-driven fetch occurs.
	calls := f.callCount()
	time.Sleep(30 * time.Millisecond)
	if got := f.callCount(); got != calls {
		t.Errorf("fetcher called %d times after FailedAuth, want %d", got, calls)
	}
}

func TestClose_StopsPollingAndRefusesRefresh(t *testing.T) {
	f := &scriptedFetcher{results: []func() (entity.Snapshot, error){okSnapshot(80)}}
	c := New("test", f, WithInterval(5*time.Millisecond))

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	c.Close()

	calls := f.callCount()
	time.Sleep(30 * time.Millisecond)
	if got := f.callCount(); got != calls {
		t.Errorf("fetcher called %d times after Close, want %d", got, calls)
	}

	if err := c.Refresh(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Refresh() after Close error = %v, want ErrClosed", err)
	}
	if id := c.Subscribe(func(entity.Snapshot) {}); id != -1 {
		t.Errorf("Subscribe() after Close = %d, want -1", id)
	}
}
