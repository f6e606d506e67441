package integration

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhaus/cloudpoll/internal/fireboard"
	"github.com/kestrelhaus/cloudpoll/internal/infrastructure/config"
	"github.com/kestrelhaus/cloudpoll/internal/poll"
	"github.com/kestrelhaus/cloudpoll/internal/tailscale"
)

// Type identifies which cloud an instance polls.
type Type string

// Integration types.
const (
	TypeFireboard Type = "fireboard"
	TypeTailscale Type = "tailscale"
)

// Logger defines the logging interface used by the Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Instance is one configured cloud account with its coordinator.
type Instance struct {
	ID          string
	Name        string
	Type        Type
	Coordinator *poll.Coordinator

	mu          sync.RWMutex
	needsReauth bool
	running     bool
}

// NeedsReauth reports whether this instance's credentials were rejected
// and polling has stopped pending re-authentication.
func (i *Instance) NeedsReauth() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.needsReauth
}

// Running reports whether the instance's poll timer is armed.
func (i *Instance) Running() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.running
}

func (i *Instance) setNeedsReauth() {
	i.mu.Lock()
	i.needsReauth = true
	i.running = false
	i.mu.Unlock()
}

func (i *Instance) setRunning(v bool) {
	i.mu.Lock()
	i.running = v
	i.mu.Unlock()
}

// Status is the externally visible state of one instance.
type Status struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        Type       `json:"type"`
	State       poll.State `json:"state"`
	Running     bool       `json:"running"`
	NeedsReauth bool       `json:"needs_reauth"`
	Records     int        `json:"records"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// Status returns a point-in-time status snapshot of the instance.
func (i *Instance) Status() Status {
	s := Status{
		ID:          i.ID,
		Name:        i.Name,
		Type:        i.Type,
		State:       i.Coordinator.State(),
		Running:     i.Running(),
		NeedsReauth: i.NeedsReauth(),
		Records:     len(i.Coordinator.Snapshot()),
	}
	if t := i.Coordinator.LastRefresh(); !t.IsZero() {
		s.LastRefresh = &t
	}
	if err := i.Coordinator.LastError(); err != nil {
		s.LastError = err.Error()
	}
	return s
}

// Manager owns the registry of integration instances: an explicit map
// from instance id to coordinator, one entry per configured account.
// Instances are fully independent of each other.
//
// All methods are safe for concurrent use.
type Manager struct {
	logger Logger

	mu        sync.RWMutex
	instances map[string]*Instance // by instance id
	byName    map[string]*Instance
}

// NewManager builds one instance per configured account. Coordinators are
// created but not started; call StartAll.
func NewManager(cfg config.IntegrationsConfig, logger Logger) *Manager {
	m := &Manager{
		logger:    logger,
		instances: make(map[string]*Instance),
		byName:    make(map[string]*Instance),
	}

	for _, fb := range cfg.Fireboard {
		source := fireboard.NewSource(fireboard.NewClient(fb.Email, fb.Password))
		m.Register(fb.Name, TypeFireboard, source, fb.PollInterval())
	}
	for _, ts := range cfg.Tailscale {
		source := tailscale.NewSource(tailscale.NewClient(ts.Tailnet, ts.APIKey))
		m.Register(ts.Name, TypeTailscale, source, ts.PollInterval())
	}

	return m
}

// Register creates and indexes one instance around an arbitrary fetcher.
// NewManager uses it for the configured cloud accounts; it is exported so
// hosts embedding the manager can add sources of their own.
func (m *Manager) Register(name string, typ Type, fetcher poll.Fetcher, interval time.Duration) *Instance {
	inst := &Instance{
		ID:   uuid.NewString(),
		Name: name,
		Type: typ,
	}
	inst.Coordinator = poll.New(name, fetcher,
		poll.WithInterval(interval),
		poll.WithLogger(m.logger),
		poll.WithReauthSignal(func(err error) {
			inst.setNeedsReauth()
			m.logger.Error("integration needs re-authentication",
				"integration", name,
				"type", typ,
				"error", err,
			)
		}),
	)

	m.mu.Lock()
	m.instances[inst.ID] = inst
	m.byName[inst.Name] = inst
	m.mu.Unlock()

	return inst
}

// StartAll starts every instance's coordinator. A failed first refresh
// does not abort the others: the failing instance is left registered with
// its timer unarmed so its status stays inspectable, and the failure is
// logged. Auth failures additionally mark the instance as needing
// re-authentication via the coordinator's re-auth signal.
func (m *Manager) StartAll(ctx context.Context) {
	for _, inst := range m.Instances() {
		if err := inst.Coordinator.Start(ctx); err != nil {
			m.logger.Error("integration failed to start",
				"integration", inst.Name,
				"type", inst.Type,
				"error", err,
			)
			continue
		}
		inst.setRunning(true)
		m.logger.Info("integration started",
			"integration", inst.Name,
			"type", inst.Type,
			"records", len(inst.Coordinator.Snapshot()),
		)
	}
}

// Get returns an instance by id or name.
func (m *Manager) Get(idOrName string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if inst, ok := m.instances[idOrName]; ok {
		return inst, true
	}
	inst, ok := m.byName[idOrName]
	return inst, ok
}

// Instances returns all instances ordered by name.
func (m *Manager) Instances() []*Instance {
	m.mu.RLock()
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// CloseAll tears down every coordinator.
func (m *Manager) CloseAll() {
	for _, inst := range m.Instances() {
		inst.Coordinator.Close()
		inst.setRunning(false)
	}
}
