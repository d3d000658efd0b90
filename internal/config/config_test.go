package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Command != "tsserver" {
		t.Errorf("Command = %q, want tsserver", cfg.Command)
	}
	if cfg.Timeout.Std() != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout.Std())
	}
	if cfg.Verbose {
		t.Error("Verbose defaulted to true")
	}
	if len(cfg.Args) != 0 {
		t.Errorf("Args = %v, want empty", cfg.Args)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	content := `
command = "typescript-language-server"
args = ["--stdio", "--log-level", "2"]
timeout = "3s"
verbose = true
max_frame_size = 1048576

[env]
NODE_OPTIONS = "--max-old-space-size=4096"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Command != "typescript-language-server" {
		t.Errorf("Command = %q", cfg.Command)
	}
	if len(cfg.Args) != 3 || cfg.Args[0] != "--stdio" {
		t.Errorf("Args = %v", cfg.Args)
	}
	if cfg.Timeout.Std() != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", cfg.Timeout.Std())
	}
	if !cfg.Verbose {
		t.Error("Verbose not set from file")
	}
	if cfg.Env["NODE_OPTIONS"] != "--max-old-space-size=4096" {
		t.Errorf("Env = %v", cfg.Env)
	}
	if cfg.MaxFrameSize != 1048576 {
		t.Errorf("MaxFrameSize = %d, want 1048576", cfg.MaxFrameSize)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte(`verbose = true`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Command != "tsserver" {
		t.Errorf("Command = %q, want default tsserver", cfg.Command)
	}
	if cfg.Timeout.Std() != 10*time.Second {
		t.Errorf("Timeout = %v, want default 10s", cfg.Timeout.Std())
	}
	if !cfg.Verbose {
		t.Error("Verbose not overridden by file")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte(`command = [not toml`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("Load() accepted malformed TOML")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir), []byte(`command = "from-file"`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TIDE_COMMAND", "from-env")
	t.Setenv("TIDE_ARGS", "--foo  --bar baz")
	t.Setenv("TIDE_TIMEOUT", "1m30s")
	t.Setenv("TIDE_VERBOSE", "1")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Command != "from-env" {
		t.Errorf("Command = %q, want from-env", cfg.Command)
	}
	want := []string{"--foo", "--bar", "baz"}
	if len(cfg.Args) != len(want) {
		t.Fatalf("Args = %v, want %v", cfg.Args, want)
	}
	for i := range want {
		if cfg.Args[i] != want[i] {
			t.Errorf("Args[%d] = %q, want %q", i, cfg.Args[i], want[i])
		}
	}
	if cfg.Timeout.Std() != 90*time.Second {
		t.Errorf("Timeout = %v, want 1m30s", cfg.Timeout.Std())
	}
	if !cfg.Verbose {
		t.Error("Verbose not set from env")
	}
}

func TestLoad_InvalidEnvValues(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		t.Setenv("TIDE_TIMEOUT", "soon")
		if _, err := Load(t.TempDir()); err == nil {
			t.Fatal("Load() accepted invalid TIDE_TIMEOUT")
		}
	})

	t.Run("verbose", func(t *testing.T) {
		t.Setenv("TIDE_VERBOSE", "yep")
		if _, err := Load(t.TempDir()); err == nil {
			t.Fatal("Load() accepted invalid TIDE_VERBOSE")
		}
	})

	t.Run("max frame size", func(t *testing.T) {
		t.Setenv("TIDE_MAX_FRAME_SIZE", "-1")
		if _, err := Load(t.TempDir()); err == nil {
			t.Fatal("Load() accepted negative TIDE_MAX_FRAME_SIZE")
		}
	})
}

func TestDuration_RoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "1m30s" {
		t.Errorf("MarshalText() = %q, want 1m30s", text)
	}

	var parsed Duration
	if err := parsed.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if parsed != d {
		t.Errorf("round-trip = %v, want %v", parsed.Std(), d.Std())
	}
}
