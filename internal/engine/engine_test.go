package engine

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/adboard/internal/catalog"
	"github.com/ivlev/adboard/internal/config"
	"github.com/ivlev/adboard/internal/export"
	"github.com/ivlev/adboard/internal/scene"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ScenePath = filepath.Join(dir, "scene.png")
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.GridSize = 10
	cfg.Workers = 2
	writePNG(t, cfg.ScenePath, solid(800, 800, color.RGBA{0, 0, 255, 255}))
	return cfg
}

func TestRunComposesBanner(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	banner := filepath.Join(dir, "banner.png")
	writePNG(t, banner, solid(150, 300, color.RGBA{255, 0, 0, 255}))
	cfg.Banners = []string{"0=" + banner}

	p := NewProject(cfg, export.FileSink{Dir: cfg.OutputDir}, nil)
	out, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", out, err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 800 {
		t.Fatalf("output size = %v", img.Bounds())
	}

	// default billboard: 300×600 at (50,50)
	if r, g, b, _ := img.At(200, 300).RGBA(); r>>8 < 240 || g>>8 > 15 || b>>8 > 15 {
		t.Errorf("banner pixel = %v", img.At(200, 300))
	}
	if r, _, b, _ := img.At(600, 300).RGBA(); r>>8 > 15 || b>>8 < 240 {
		t.Errorf("scene pixel = %v", img.At(600, 300))
	}
}

func TestRunAppliesEditsAndSavesCatalog(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.CatalogPath = filepath.Join(dir, "catalog.json")
	cfg.SaveCatalog = true
	cfg.EditsPath = filepath.Join(dir, "edits.yaml")
	script := `
steps:
  - {action: rectangle, billboard: "0"}
  - {action: down, x: 400, y: 100}
  - {action: drag, x: 600, y: 300}
  - {action: confirm}
`
	if err := os.WriteFile(cfg.EditsPath, []byte(script), 0644); err != nil {
		t.Fatal(err)
	}

	p := NewProject(cfg, export.FileSink{Dir: cfg.OutputDir}, nil)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	c, err := catalog.Read(cfg.CatalogPath)
	if err != nil {
		t.Fatalf("catalog not written: %v", err)
	}
	_, s, err := c.Find("game-1", "scene")
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Billboards) != 1 {
		t.Fatalf("billboards = %d", len(s.Billboards))
	}
	b := s.Billboards[0]
	if b.X != 400 || b.Y != 100 || b.Width != 200 || b.Height != 200 {
		t.Errorf("saved billboard = %+v", b)
	}
	if s.Filename != "scene.png" {
		t.Errorf("filename = %q", s.Filename)
	}
}

func TestLoadDetectsBillboards(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	frame := solid(800, 600, color.Black)
	draw.Draw(frame, image.Rect(100, 60, 400, 228), &image.Uniform{color.White}, image.Point{}, draw.Src)
	writePNG(t, cfg.ScenePath, frame)
	cfg.Detect = true

	p := NewProject(cfg, nil, nil)
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer p.Close()

	bbs := p.Scene.Billboards()
	if len(bbs) != 1 {
		t.Fatalf("billboards = %d", len(bbs))
	}
	if r := bbs[0].Bounds; r.X > 100 || r.Y > 60 || r.X+r.Width < 400 || r.Y+r.Height < 228 {
		t.Errorf("detected bounds = %+v", r)
	}
}

func TestLoadRejectsUnknownBillboard(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Banners = []string{"7=qr:hello"}

	p := NewProject(cfg, nil, nil)
	defer p.Close()
	err := p.Load(context.Background())
	if !errors.Is(err, scene.ErrUnknownBillboard) {
		t.Errorf("Load error = %v, want ErrUnknownBillboard", err)
	}
}

func TestParseBanner(t *testing.T) {
	tests := []struct {
		in      string
		want    BannerAssignment
		wantErr bool
	}{
		{"0=banner.png", BannerAssignment{"0", "banner.png"}, false},
		{"b1 = qr:https://example.com/?a=b", BannerAssignment{"b1", "qr:https://example.com/?a=b"}, false},
		{"banner.png", BannerAssignment{}, true},
		{"=banner.png", BannerAssignment{}, true},
		{"0=", BannerAssignment{}, true},
	}
	for _, tt := range tests {
		got, err := ParseBanner(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseBanner(%q) = %+v, %v", tt.in, got, err)
		}
	}
}
