package config

import (
	"fmt"
	"image/color"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	CatalogPath  string   `yaml:"catalog"`
	GameID       string   `yaml:"game"`
	ScreenshotID string   `yaml:"screenshot"`
	ScenePath    string   `yaml:"scene"`
	Banners      []string `yaml:"banners"` // <billboard-id|index>=<path|qr:payload>
	EditsPath    string   `yaml:"edits"`
	SaveCatalog  bool     `yaml:"save"`
	Detect       bool     `yaml:"detect"`

	Format    string `yaml:"format"`
	OutputDir string `yaml:"output"`
	Outlines  bool   `yaml:"outlines"`

	GridSize     int     `yaml:"grid"`
	Oversample   float64 `yaml:"oversample"`
	PaddingColor string  `yaml:"padding"`
	Margin       float64 `yaml:"margin"`
	DPI          int     `yaml:"dpi"`

	VideoFPS         int           `yaml:"video_fps"`
	VideoBitrate     int           `yaml:"video_bitrate"`
	VideoMaxDuration time.Duration `yaml:"video_max_duration"`
	GIFFPS           int           `yaml:"gif_fps"`
	GIFMaxDuration   time.Duration `yaml:"gif_max_duration"`

	Workers      int    `yaml:"workers"`
	ShowStats    bool   `yaml:"stats"`
	Verbose      bool   `yaml:"verbose"`
	BuildVersion string `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Format:           "png",
		OutputDir:        "output",
		GridSize:         50,
		Oversample:       2,
		PaddingColor:     "#000000",
		Margin:           10,
		DPI:              150,
		VideoFPS:         30,
		VideoBitrate:     2_500_000,
		VideoMaxDuration: 10 * time.Second,
		GIFFPS:           20,
		GIFMaxDuration:   5 * time.Second,
		Workers:          runtime.NumCPU(),
	}
}

// Load читает YAML поверх значений по умолчанию.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

var formats = map[string]bool{"png": true, "webm": true, "mp4": true, "gif": true}

func (c *Config) Validate() error {
	switch {
	case !formats[c.Format]:
		return fmt.Errorf("неизвестный формат %q (png, webm, mp4, gif)", c.Format)
	case c.GridSize < 1:
		return fmt.Errorf("grid должен быть >= 1, получено %d", c.GridSize)
	case c.Oversample <= 0:
		return fmt.Errorf("oversample должен быть > 0, получено %v", c.Oversample)
	case c.Margin < 0:
		return fmt.Errorf("margin не может быть отрицательным")
	case c.VideoFPS <= 0 || c.GIFFPS <= 0:
		return fmt.Errorf("fps должен быть > 0")
	case c.VideoMaxDuration <= 0 || c.GIFMaxDuration <= 0:
		return fmt.Errorf("максимальная длительность должна быть > 0")
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	_, err := ParseHexColor(c.PaddingColor)
	return err
}

// Padding возвращает цвет полей леттербокса.
func (c *Config) Padding() color.Color {
	col, err := ParseHexColor(c.PaddingColor)
	if err != nil {
		return color.Black
	}
	return col
}

// ParseHexColor понимает #rgb, #rrggbb и #rrggbbaa.
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("неверный цвет %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("неверный цвет %q", s)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
