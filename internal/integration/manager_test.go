package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kestrelhaus/cloudpoll/internal/entity"
	"github.com/kestrelhaus/cloudpoll/internal/infrastructure/config"
	"github.com/kestrelhaus/cloudpoll/internal/poll"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type fakeFetcher struct {
	snapshot entity.Snapshot
	err      error
}

func (f *fakeFetcher) Fetch(context.Context) (entity.Snapshot, error) {
	return f.snapshot, f.err
}

func TestNewManager_BuildsInstancesFromConfig(t *testing.T) {
	cfg := config.IntegrationsConfig{
		Fireboard: []config.FireboardConfig{
			{Name: "grill", Email: "pit@example.com", Password: "secret"},
		},
		Tailscale: []config.TailscaleConfig{
			{Name: "homelab", Tailnet: "example.com", APIKey: "tskey-api-test"},
		},
	}

	m := NewManager(cfg, nopLogger{})
	defer m.CloseAll()

	instances := m.Instances()
	if len(instances) != 2 {
		t.Fatalf("Instances() returned %d, want 2", len(instances))
	}
	// Ordered by name.
	if instances[0].Name != "grill" || instances[1].Name != "homelab" {
		t.Errorf("instance order = %q, %q", instances[0].Name, instances[1].Name)
	}
	if instances[0].Type != TypeFireboard {
		t.Errorf("grill type = %v, want %v", instances[0].Type, TypeFireboard)
	}
	if instances[1].Type != TypeTailscale {
		t.Errorf("homelab type = %v, want %v", instances[1].Type, TypeTailscale)
	}
}

func TestManager_GetByIDAndName(t *testing.T) {
	m := NewManager(config.IntegrationsConfig{}, nopLogger{})
	defer m.CloseAll()

	inst := m.Register("grill", TypeFireboard, &fakeFetcher{snapshot: entity.Snapshot{}}, time.Minute)

	byID, ok := m.Get(inst.ID)
	if !ok || byID != inst {
		t.Errorf("Get(id) = %v, %v", byID, ok)
	}
	byName, ok := m.Get("grill")
	if !ok || byName != inst {
		t.Errorf("Get(name) = %v, %v", byName, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) reported a hit")
	}
}

func TestStartAll_StartsHealthyInstances(t *testing.T) {
	m := NewManager(config.IntegrationsConfig{}, nopLogger{})
	defer m.CloseAll()

	val := 42.0
	healthy := m.Register("ok", TypeFireboard, &fakeFetcher{
		snapshot: entity.Snapshot{"hw_battery": {Key: "hw_battery", Value: &val}},
	}, time.Hour)
	broken := m.Register("down", TypeTailscale, &fakeFetcher{
		err: fmt.Errorf("cloud offline: %w", poll.ErrTransient),
	}, time.Hour)

	m.StartAll(context.Background())

	if !healthy.Running() {
		t.Error("healthy instance is not running after StartAll")
	}
	if broken.Running() {
		t.Error("instance with failed first refresh reports running")
	}
	if healthy.Coordinator.State() != poll.StateReady {
		t.Errorf("healthy state = %v, want %v", healthy.Coordinator.State(), poll.StateReady)
	}
}

func TestStartAll_AuthFailureMarksReauth(t *testing.T) {
	m := NewManager(config.IntegrationsConfig{}, nopLogger{})
	defer m.CloseAll()

	inst := m.Register("stale-creds", TypeFireboard, &fakeFetcher{
		err: fmt.Errorf("login rejected: %w", poll.ErrAuth),
	}, time.Hour)

	m.StartAll(context.Background())

	if !inst.NeedsReauth() {
		t.Error("auth failure did not mark instance for re-authentication")
	}
	if inst.Coordinator.State() != poll.StateFailedAuth {
		t.Errorf("state = %v, want %v", inst.Coordinator.State(), poll.StateFailedAuth)
	}

	status := inst.Status()
	if !status.NeedsReauth || status.LastError == "" {
		t.Errorf("Status() = %+v, want needs_reauth with last error", status)
	}
}

func TestCloseAll_StopsCoordinators(t *testing.T) {
	m := NewManager(config.IntegrationsConfig{}, nopLogger{})

	inst := m.Register("grill", TypeFireboard, &fakeFetcher{snapshot: entity.Snapshot{}}, time.Hour)
	m.StartAll(context.Background())

	m.CloseAll()

	if inst.Running() {
		t.Error("instance reports running after CloseAll")
	}
	if err := inst.Coordinator.Refresh(context.Background()); err == nil {
		t.Error("Refresh() after CloseAll did not fail")
	}
}
