package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Palette.NumColors != 5 {
		t.Errorf("expected 5 colors by default, got %d", cfg.Palette.NumColors)
	}
	if cfg.Palette.Epsilon != 0.2 || cfg.Palette.MaxIterations != 100 || cfg.Palette.Attempts != 10 {
		t.Errorf("unexpected clustering defaults: %+v", cfg.Palette)
	}
	if cfg.OCR.MinConfidence != 60 {
		t.Errorf("expected confidence threshold 60, got %f", cfg.OCR.MinConfidence)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
port: "9090"
shutdown_timeout: 3s
palette:
  num_colors: 8
ocr:
  language: deu
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("port: got %s", cfg.Port)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("shutdown timeout: got %v", cfg.ShutdownTimeout)
	}
	if cfg.Palette.NumColors != 8 {
		t.Errorf("num_colors: got %d", cfg.Palette.NumColors)
	}
	// untouched fields keep their defaults
	if cfg.Palette.Attempts != 10 {
		t.Errorf("attempts: got %d", cfg.Palette.Attempts)
	}
	if cfg.OCR.Language != "deu" || cfg.OCR.TesseractPath != "tesseract" {
		t.Errorf("ocr: got %+v", cfg.OCR)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{"port", map[string]string{"port": "8081"}, false, func(c *Config) bool { return c.Port == "8081" }},
		{"colors", map[string]string{"colors": "3"}, false, func(c *Config) bool { return c.Palette.NumColors == 3 }},
		{"bad colors", map[string]string{"colors": "many"}, true, nil},
		{"debug flag", map[string]string{"debug": "true"}, false, func(c *Config) bool { return c.Debug }},
		{"tesseract", map[string]string{"tesseract": "/opt/bin/tesseract"}, false, func(c *Config) bool {
			return c.OCR.TesseractPath == "/opt/bin/tesseract"
		}},
		{"bad max body", map[string]string{"max-body": "x"}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			err := cfg.ApplyArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("override not applied: %+v", cfg)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero colors", func(c *Config) { c.Palette.NumColors = 0 }},
		{"too many colors", func(c *Config) { c.Palette.NumColors = 200*200 + 1 }},
		{"no iterations", func(c *Config) { c.Palette.MaxIterations = 0 }},
		{"zero epsilon", func(c *Config) { c.Palette.Epsilon = 0 }},
		{"no attempts", func(c *Config) { c.Palette.Attempts = 0 }},
		{"confidence over 100", func(c *Config) { c.OCR.MinConfidence = 101 }},
		{"empty port", func(c *Config) { c.Port = "" }},
		{"negative workers", func(c *Config) { c.MaxConcurrent = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "7000")
	cfg := Default()
	cfg.ApplyEnv()
	if cfg.Addr() != "127.0.0.1:7000" {
		t.Errorf("unexpected addr %s", cfg.Addr())
	}
}
