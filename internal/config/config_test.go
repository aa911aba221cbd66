package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adboard.yaml")
	doc := `
format: gif
grid: 20
padding: "#fff"
gif_max_duration: 3s
banners:
  - "0=banner.png"
  - "b2=qr:https://example.com"
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != "gif" || cfg.GridSize != 20 {
		t.Errorf("format=%s grid=%d", cfg.Format, cfg.GridSize)
	}
	if cfg.GIFMaxDuration != 3*time.Second {
		t.Errorf("gif duration = %v", cfg.GIFMaxDuration)
	}
	if cfg.VideoFPS != 30 || cfg.Oversample != 2 {
		t.Errorf("defaults lost: fps=%d oversample=%v", cfg.VideoFPS, cfg.Oversample)
	}
	if len(cfg.Banners) != 2 {
		t.Errorf("banners = %v", cfg.Banners)
	}
	if got := cfg.Padding(); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("padding = %v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad format", func(c *Config) { c.Format = "avi" }, true},
		{"zero grid", func(c *Config) { c.GridSize = 0 }, true},
		{"zero oversample", func(c *Config) { c.Oversample = 0 }, true},
		{"negative margin", func(c *Config) { c.Margin = -1 }, true},
		{"bad padding", func(c *Config) { c.PaddingColor = "#12" }, true},
		{"zero workers clamps", func(c *Config) { c.Workers = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && cfg.Workers < 1 {
				t.Errorf("workers = %d", cfg.Workers)
			}
		})
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#000000", color.RGBA{0, 0, 0, 255}},
		{"#16a34a", color.RGBA{0x16, 0xa3, 0x4a, 0xff}},
		{"f00", color.RGBA{255, 0, 0, 255}},
		{"#00000080", color.RGBA{0, 0, 0, 0x80}},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseHexColor("#zzzzzz"); err == nil {
		t.Error("expected error for non-hex input")
	}
}
