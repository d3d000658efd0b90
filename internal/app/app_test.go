package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/razumit/tide/internal/config"
	"github.com/razumit/tide/internal/tsserver"
)

// writeConfig writes a tide.toml pointing at a long-lived no-op server.
func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(config.Path(dir), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestApp_StartFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `command = "cat"`)

	a, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	sess, err := a.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sess.State() != tsserver.SessionStateRunning {
		t.Errorf("State = %v, want running", sess.State())
	}
	if got := a.Registry().Current(dir); got == nil || got.ID != sess.ID {
		t.Error("registry does not hold the started session")
	}
}

func TestApp_RestartsOnConfigChange(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `command = "cat"`)

	reloaded := make(chan error, 4)
	a, err := New(dir, WithReloadCallback(func(cfg *config.Config, err error) {
		reloaded <- err
	}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	first, err := a.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	writeConfig(t, dir, "command = \"cat\"\nverbose = true\n")

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change never triggered a reload")
	}

	second := a.Registry().Current(dir)
	if second == nil {
		t.Fatal("no session after reload")
	}
	if second.ID == first.ID {
		t.Error("session was not restarted on config change")
	}
	if first.State() != tsserver.SessionStateTerminated {
		t.Errorf("old session State = %v, want terminated", first.State())
	}
}

func TestApp_ReloadWithoutSessionDoesNotStartOne(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `command = "cat"`)

	reloaded := make(chan error, 4)
	a, err := New(dir, WithReloadCallback(func(cfg *config.Config, err error) {
		reloaded <- err
	}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	writeConfig(t, dir, "command = \"cat\"\nverbose = true\n")

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change never triggered a reload")
	}

	if a.Registry().Current(dir) != nil {
		t.Error("reload spawned a session nobody started")
	}
}

func TestApp_ReloadSurfacesConfigErrors(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `command = "cat"`)

	type reload struct {
		cfg *config.Config
		err error
	}
	reloaded := make(chan reload, 4)
	a, err := New(dir, WithReloadCallback(func(cfg *config.Config, err error) {
		reloaded <- reload{cfg: cfg, err: err}
	}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	writeConfig(t, dir, `command = [broken`)

	select {
	case r := <-reloaded:
		if r.err == nil {
			t.Fatal("reload accepted malformed config")
		}
		if r.cfg != nil {
			t.Errorf("failed reload delivered cfg %+v, want nil", r.cfg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change never triggered a reload")
	}
}

func TestApp_MissingConfigUsesDefaults(t *testing.T) {
	a, err := New(t.TempDir(), WithRegistryOptions(tsserver.WithCommand("cat")))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	sess, err := a.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if sess.State() != tsserver.SessionStateRunning {
		t.Errorf("State = %v, want running", sess.State())
	}
}
