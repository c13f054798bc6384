package kern

import (
	"os"
	"path/filepath"
	"testing"

	"tinyrt/internal/board"
)

func TestLoadDefaultsWhenUnset(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yml")} {
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q): %v", path, err)
		}
		if cfg.Board != "esp32" || cfg.DefaultStack != 4096 {
			t.Fatalf("unexpected defaults for %q: %+v", path, cfg)
		}
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := "board: esp32s3\ntick_ms: 2\nheap_bytes: 8192\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Board != "esp32s3" || cfg.TickMS != 2 || cfg.HeapBytes != 8192 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("tick_ms: [not an int\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadClampsTinyStack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("default_stack: 100\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultStack != MinStackBytes {
		t.Fatalf("stack not clamped: %d", cfg.DefaultStack)
	}
}

func TestApplyBoardFillsUnsetFields(t *testing.T) {
	prof, err := board.Lookup("esp32")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	cfg := Config{Board: "esp32"}
	cfg.ApplyBoard(prof)
	if cfg.TickMS != prof.TickMS || cfg.HeapBytes != prof.HeapBytes {
		t.Fatalf("board defaults not applied: %+v", cfg)
	}

	// explicit values win over the profile
	cfg = Config{Board: "esp32", TickMS: 1, HeapBytes: 1024}
	cfg.ApplyBoard(prof)
	if cfg.TickMS != 1 || cfg.HeapBytes != 1024 {
		t.Fatalf("explicit values overridden: %+v", cfg)
	}
}
