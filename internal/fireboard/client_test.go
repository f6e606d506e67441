package fireboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kestrelhaus/cloudpoll/internal/poll"
)

// fakeCloud is a minimal Fireboard cloud double.
type fakeCloud struct {
	token        string
	password     string
	loginCount   atomic.Int32
	devicesCount atomic.Int32
	// rejectToken forces 401 on the device list for the first N calls.
	rejectToken atomic.Int32
}

func (f *fakeCloud) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.loginCount.Add(1)
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != f.password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(loginResponse{Key: f.token})
	})
	mux.HandleFunc("/v1/devices.json", func(w http.ResponseWriter, r *http.Request) {
		f.devicesCount.Add(1)
		if f.rejectToken.Load() > 0 {
			f.rejectToken.Add(-1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("Authorization") != "Token "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode([]Device{
			{HardwareID: "FB1", Title: "Smoker", Channels: []Channel{{Channel: 1, ChannelLabel: "Probe 1"}}},
		})
	})
	return mux
}

func TestClient_ListDevices(t *testing.T) {
	cloud := &fakeCloud{token: "tok-1", password: "hunter2"}
	srv := httptest.NewServer(cloud.handler())
	defer srv.Close()

	client := NewClient("pit@example.com", "hunter2", WithBaseURL(srv.URL))

	devices, err := client.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 1 || devices[0].HardwareID != "FB1" {
		t.Fatalf("ListDevices() = %+v", devices)
	}

	// Token is cached: a second call must not log in again.
	if _, err := client.ListDevices(context.Background()); err != nil {
		t.Fatalf("second ListDevices() error = %v", err)
	}
	if got := cloud.loginCount.Load(); got != 1 {
		t.Errorf("login called %d times, want 1", got)
	}
}

func TestClient_BadPasswordIsAuthError(t *testing.T) {
	cloud := &fakeCloud{token: "tok-1", password: "hunter2"}
	srv := httptest.NewServer(cloud.handler())
	defer srv.Close()

	client := NewClient("pit@example.com", "wrong", WithBaseURL(srv.URL))

	_, err := client.ListDevices(context.Background())
	if !errors.Is(err, poll.ErrAuth) {
		t.Errorf("ListDevices() error = %v, want ErrAuth", err)
	}
}

func TestClient_StaleTokenRetriesLoginOnce(t *testing.T) {
	cloud := &fakeCloud{token: "tok-1", password: "hunter2"}
	srv := httptest.NewServer(cloud.handler())
	defer srv.Close()

	client := NewClient("pit@example.com", "hunter2", WithBaseURL(srv.URL))

	// Prime the token cache.
	if _, err := client.ListDevices(context.Background()); err != nil {
		t.Fatalf("priming ListDevices() error = %v", err)
	}

	// Next device-list call is rejected once, as if the token expired.
	cloud.rejectToken.Store(1)
	if _, err := client.ListDevices(context.Background()); err != nil {
		t.Fatalf("ListDevices() after token expiry error = %v", err)
	}
	if got := cloud.loginCount.Load(); got != 2 {
		t.Errorf("login called %d times, want 2", got)
	}
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient("pit@example.com", "hunter2", WithBaseURL(srv.URL))

	_, err := client.ListDevices(context.Background())
	if !errors.Is(err, poll.ErrTransient) {
		t.Errorf("ListDevices() error = %v, want ErrTransient", err)
	}
}

func TestClient_TimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient("pit@example.com", "hunter2", WithBaseURL(srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ListDevices(ctx)
	if !errors.Is(err, poll.ErrTransient) {
		t.Errorf("ListDevices() error = %v, want ErrTransient", err)
	}
}

func TestSource_FetchProjects(t *testing.T) {
	cloud := &fakeCloud{token: "tok-1", password: "hunter2"}
	srv := httptest.NewServer(cloud.handler())
	defer srv.Close()

	source := NewSource(NewClient("pit@example.com", "hunter2", WithBaseURL(srv.URL)))

	snap, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if _, err := snap.Get("FB1_battery"); err != nil {
		t.Errorf("snapshot missing battery record: %v", err)
	}
	if _, err := snap.Get("FB1_01"); err != nil {
		t.Errorf("snapshot missing channel record: %v", err)
	}
}
