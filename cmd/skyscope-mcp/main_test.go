package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	path := filepath.Join(dir, "skyscope.json")
	if err := os.WriteFile(path, []byte(`{"detection": {"latency_ms": 50}}`), 0644); err != nil {
		t.Fatal(err)
	}
	latency := 0

	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "no file uses defaults", args: args{}},
		{name: "explicit missing file", args: args{Config: filepath.Join(dir, "missing.json")}, wantErr: true},
		{name: "bad log level", args: args{LogLevel: "chatty"}, wantErr: true},
		{name: "explicit file with overrides", args: args{Config: path, Seed: 9, LogLevel: "debug", LatencyMS: &latency}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("loadConfig failed: %v", err)
			}
			if tt.args.Seed != 0 && cfg.Detection.Seed != tt.args.Seed {
				t.Errorf("Seed: got %d, want %d", cfg.Detection.Seed, tt.args.Seed)
			}
			if tt.args.LogLevel != "" && cfg.Log.Level != tt.args.LogLevel {
				t.Errorf("Log.Level: got %q", cfg.Log.Level)
			}
			if tt.args.LatencyMS != nil && cfg.Detection.LatencyMS != *tt.args.LatencyMS {
				t.Errorf("LatencyMS: got %d", cfg.Detection.LatencyMS)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	if got := newLogger("warn").GetLevel().String(); got != "warning" {
		t.Errorf("level: got %q, want warning", got)
	}
	// Unknown levels keep the logrus default.
	if got := newLogger("nope").GetLevel().String(); got != "info" {
		t.Errorf("level: got %q, want info", got)
	}
}
