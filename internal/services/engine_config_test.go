package services

import (
	"fleet-route-planner/internal/config"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestExampleEngineConfigMatchesDefaults(t *testing.T) {
	cfg := EngineConfig{}
	if err := config.LoadYAML(filepath.Join("..", "..", "configs", "engine.example.yaml"), &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultEngineConfig()) {
		t.Fatalf("example config drifted from defaults:\n got %+v\nwant %+v", cfg, DefaultEngineConfig())
	}
}

func TestEngineConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	body := "penalty:\n  due_cap: {min: 0.2, base: 2}\nsearch:\n  time_limit: 500ms\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultEngineConfig()
	if err := config.LoadYAML(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Penalty.DueCap != (SliderRange{Min: 0.2, Base: 2}) {
		t.Fatalf("due cap = %+v", cfg.Penalty.DueCap)
	}
	if cfg.Search.TimeLimit != 500*time.Millisecond {
		t.Fatalf("time limit = %v", cfg.Search.TimeLimit)
	}
	if cfg.Penalty.DetourCap != DefaultEngineConfig().Penalty.DetourCap || cfg.SpeedKmh != 50 {
		t.Fatalf("untouched keys must keep defaults: %+v", cfg)
	}
}
