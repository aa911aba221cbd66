package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/ivlev/adboard/internal/playback"
	"github.com/ivlev/adboard/internal/source"
)

type fakeComposer struct {
	mu       sync.Mutex
	outlines bool
	// outline state seen by every rendered frame
	seen []bool
	img  *image.RGBA
}

func newFakeComposer() *fakeComposer {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return &fakeComposer{outlines: true, img: img}
}

func (c *fakeComposer) Render() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, c.outlines)
	return c.img
}

func (c *fakeComposer) Snapshot() *image.RGBA {
	f := c.Render()
	out := image.NewRGBA(f.Bounds())
	copy(out.Pix, f.Pix)
	return out
}

func (c *fakeComposer) Outlines() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outlines
}

func (c *fakeComposer) SetOutlines(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outlines = on
}

func (c *fakeComposer) Size() (int, int) { return 16, 8 }

func (c *fakeComposer) sawOutlines() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, on := range c.seen {
		if on {
			return true
		}
	}
	return false
}

type fakeRecorder struct {
	frames  int
	failAt  int
	aborted bool
}

func (r *fakeRecorder) Begin(context.Context, int, int, int) error { return nil }

func (r *fakeRecorder) WriteFrame(*image.RGBA) error {
	r.frames++
	if r.failAt > 0 && r.frames >= r.failAt {
		return errors.New("encoder pipe closed")
	}
	return nil
}

func (r *fakeRecorder) End() ([]byte, error) { return []byte("webm"), nil }
func (r *fakeRecorder) Abort()               { r.aborted = true }

func newPipeline(c *fakeComposer, rec *fakeRecorder) *Pipeline {
	s := DefaultSettings()
	s.VideoMaxDuration = 500 * time.Millisecond
	s.GIFMaxDuration = 250 * time.Millisecond
	p := NewPipeline(c, playback.NewPlayer(c, nil, nil), s, nil)
	p.NewRecorder = func(string) (Recorder, error) { return rec, nil }
	p.Now = func() time.Time { return time.UnixMilli(1700000000000) }
	return p
}

func TestExportVideo(t *testing.T) {
	c := newFakeComposer()
	rec := &fakeRecorder{}
	p := newPipeline(c, rec)

	res, err := p.ExportVideo(context.Background(), "webm")
	if err != nil {
		t.Fatalf("ExportVideo: %v", err)
	}
	if rec.frames != 15 {
		t.Errorf("frames = %d, want 15 (0.5s at 30fps)", rec.frames)
	}
	if res.Filename != "in-game-ad-1700000000000.webm" || res.MIME != "video/webm" {
		t.Errorf("result = %s %s", res.Filename, res.MIME)
	}
	if c.sawOutlines() {
		t.Error("outlines visible during capture")
	}
	if !c.Outlines() {
		t.Error("outlines not restored")
	}
}

func TestExportVideoFailureRestoresState(t *testing.T) {
	c := newFakeComposer()
	rec := &fakeRecorder{failAt: 3}
	p := newPipeline(c, rec)

	// live preview running before the export
	p.player.Play(playback.RealtimeClock{Interval: time.Millisecond}, nil)
	defer p.player.Stop()

	_, err := p.ExportVideo(context.Background(), "webm")
	if !errors.Is(err, ErrExport) {
		t.Fatalf("err = %v, want ErrExport", err)
	}
	if !rec.aborted {
		t.Error("recorder not aborted")
	}
	if !c.Outlines() {
		t.Error("outlines left suppressed after failure")
	}
	if !p.player.Playing() {
		t.Error("playback not resumed after failure")
	}
}

func TestExportGIF(t *testing.T) {
	c := newFakeComposer()
	p := newPipeline(c, &fakeRecorder{})

	res, err := p.ExportGIF(context.Background())
	if err != nil {
		t.Fatalf("ExportGIF: %v", err)
	}
	g, err := gif.DecodeAll(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(g.Image) != 5 {
		t.Errorf("frames = %d, want 5 (0.25s at 20fps)", len(g.Image))
	}
	if g.Delay[0] != 5 {
		t.Errorf("delay = %d, want 5cs", g.Delay[0])
	}
	if c.sawOutlines() || !c.Outlines() {
		t.Error("outline state not handled around the capture")
	}
}

// seekFailStream отказывает на seek с номером failAt (с 1).
type seekFailStream struct {
	mu     sync.Mutex
	seeks  int
	failAt int
}

func (s *seekFailStream) Size() (int, int)            { return 4, 4 }
func (s *seekFailStream) Frame() (image.Image, error) { return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil }
func (s *seekFailStream) Duration() time.Duration     { return time.Second }
func (s *seekFailStream) Advance(time.Duration) error { return nil }
func (s *seekFailStream) Play()                       {}
func (s *seekFailStream) Pause()                      {}
func (s *seekFailStream) Playing() bool               { return false }
func (s *seekFailStream) Close() error                { return nil }

func (s *seekFailStream) Seek(context.Context, time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeks++
	if s.seeks >= s.failAt {
		return errors.New("decoder stalled")
	}
	return nil
}

func TestExportGIFFailureRestoresState(t *testing.T) {
	c := newFakeComposer()
	p := newPipeline(c, &fakeRecorder{})
	p.player = playback.NewPlayer(c, []source.Stream{&seekFailStream{failAt: 2}}, nil)

	p.player.Play(playback.RealtimeClock{Interval: time.Millisecond}, nil)
	defer p.player.Stop()

	_, err := p.ExportGIF(context.Background())
	if !errors.Is(err, ErrExport) {
		t.Fatalf("err = %v, want ErrExport", err)
	}
	if !c.Outlines() {
		t.Error("outlines left suppressed after failure")
	}
	if !p.player.Playing() {
		t.Error("playback not resumed after failure")
	}
}

func TestExportGIFFailureStopsClock(t *testing.T) {
	c := newFakeComposer()
	p := newPipeline(c, &fakeRecorder{})
	p.player = playback.NewPlayer(c, []source.Stream{&seekFailStream{failAt: 2}}, nil)
	before := runtime.NumGoroutine()

	if _, err := p.ExportGIF(context.Background()); !errors.Is(err, ErrExport) {
		t.Fatalf("err = %v, want ErrExport", err)
	}

	// горутина часов должна завершиться после ошибки
	deadline := time.Now().Add(time.Second)
	for runtime.NumGoroutine() > before && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := runtime.NumGoroutine(); n > before {
		t.Errorf("goroutines = %d after failed export, want <= %d", n, before)
	}
}

func TestExportPNG(t *testing.T) {
	c := newFakeComposer()
	p := newPipeline(c, &fakeRecorder{})

	res, err := p.Export(context.Background(), "png", "racer", "pit-lane")
	if err != nil {
		t.Fatal(err)
	}
	if res.Filename != "racer_pit-lane_banner.png" {
		t.Errorf("filename = %s", res.Filename)
	}
	img, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatal(err)
	}
	if got := color.RGBAModel.Convert(img.At(3, 3)); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("pixel = %v", got)
	}

	if _, err := p.Export(context.Background(), "avi", "", ""); !errors.Is(err, ErrExport) {
		t.Errorf("unknown format err = %v", err)
	}
}

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := FileSink{Dir: dir}.Save(&Result{Filename: "a.gif", Data: []byte("GIF89a")})
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "GIF89a" {
		t.Errorf("saved %q", data)
	}
}

func TestNewRecorderRejectsFormat(t *testing.T) {
	if _, err := NewRecorder("mkv", 1000, nil); !errors.Is(err, ErrExport) {
		t.Errorf("err = %v", err)
	}
}

func TestFFmpegRecorder(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	rec, err := NewRecorder("mp4", 500_000, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec.Encoder = "libx264"
	if err := rec.Begin(context.Background(), 64, 48, 10); err != nil {
		t.Skipf("ffmpeg cannot start: %v", err)
	}
	frame := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for i := 0; i < 10; i++ {
		if err := rec.WriteFrame(frame); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	data, err := rec.End()
	if err != nil {
		t.Skipf("encoder unavailable: %v", err)
	}
	if len(data) == 0 {
		t.Error("empty container")
	}
	t.Logf("mp4 size: %d bytes", len(data))
}
