// Package export captures composed frames into WebM/MP4 video, GIF or PNG
// blobs while the composer's overlays are suppressed.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"time"

	"github.com/ivlev/adboard/internal/playback"
)

// ErrExport wraps every recorder or encoder failure.
var ErrExport = errors.New("export failed")

// Composer is the part of *compose.Composer the pipeline drives.
type Composer interface {
	playback.Renderer
	Snapshot() *image.RGBA
	Outlines() bool
	SetOutlines(on bool)
	Size() (int, int)
}

// Settings holds capture rates and limits.
type Settings struct {
	VideoFPS         int
	VideoBitrate     int
	VideoMaxDuration time.Duration
	GIFFPS           int
	GIFMaxDuration   time.Duration
	Workers          int
}

func DefaultSettings() Settings {
	return Settings{
		VideoFPS:         30,
		VideoBitrate:     2_500_000,
		VideoMaxDuration: 10 * time.Second,
		GIFFPS:           20,
		GIFMaxDuration:   5 * time.Second,
	}
}

// Pipeline runs exports against a composer and its player.
type Pipeline struct {
	composer Composer
	player   *playback.Player
	settings Settings
	logger   *slog.Logger

	// NewRecorder builds the video recorder; replaceable in tests.
	NewRecorder func(format string) (Recorder, error)
	Now         func() time.Time
}

func NewPipeline(c Composer, p *playback.Player, s Settings, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pl := &Pipeline{composer: c, player: p, settings: s, logger: logger, Now: time.Now}
	pl.NewRecorder = func(format string) (Recorder, error) {
		return NewRecorder(format, s.VideoBitrate, logger)
	}
	return pl
}

// captureWindow is min(source duration, limit); a scene without streams
// records the full limit.
func (p *Pipeline) captureWindow(limit time.Duration) time.Duration {
	d := p.player.Duration()
	if d <= 0 || d > limit {
		return limit
	}
	return d
}

// suspend hides overlays and stops playback. The returned func restores
// both and must run on every exit path.
func (p *Pipeline) suspend() func() {
	outlines := p.composer.Outlines()
	playing := p.player.Playing()
	clock, onFrame := p.player.Binding()

	p.player.Stop()
	p.composer.SetOutlines(false)
	return func() {
		p.composer.SetOutlines(outlines)
		if playing && clock != nil {
			p.player.Play(clock, onFrame)
		}
	}
}

// ExportVideo records webm or mp4 from time 0 at VideoFPS.
func (p *Pipeline) ExportVideo(ctx context.Context, format string) (*Result, error) {
	restore := p.suspend()
	defer restore()

	rec, err := p.NewRecorder(format)
	if err != nil {
		return nil, wrapExport(err)
	}
	if err := p.player.SeekAll(ctx, 0); err != nil {
		return nil, wrapExport(err)
	}

	fps := p.settings.VideoFPS
	window := p.captureWindow(p.settings.VideoMaxDuration)
	w, h := p.composer.Size()
	if err := rec.Begin(ctx, w, h, fps); err != nil {
		return nil, wrapExport(err)
	}

	started := time.Now()
	clock := playback.StepsFor(fps, window)
	p.player.Play(clock, func(frame *image.RGBA, _ time.Duration) error {
		return rec.WriteFrame(frame)
	})
	err = p.player.Wait(ctx)
	p.player.Stop()
	if err != nil {
		rec.Abort()
		return nil, wrapExport(err)
	}

	data, err := rec.End()
	if err != nil {
		return nil, wrapExport(err)
	}
	p.logger.Info("video exported", "format", format, "frames", clock.Frames, "bytes", len(data), "took", time.Since(started))
	return &Result{Filename: Filename(p.Now(), format), MIME: mimeTypes[format], Data: data}, nil
}

// ExportGIF seeks every stream to each sample time, waits for the seek to
// settle and captures one composed frame.
func (p *Pipeline) ExportGIF(ctx context.Context) (*Result, error) {
	restore := p.suspend()
	defer restore()

	fps := p.settings.GIFFPS
	clock := playback.StepsFor(fps, p.captureWindow(p.settings.GIFMaxDuration))
	enc := NewGIFEncoder(fps, p.settings.Workers)

	// ранний выход должен остановить горутину часов
	tickCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	for t := range clock.Ticks(tickCtx) {
		if err := p.player.SeekAll(tickCtx, t); err != nil {
			return nil, wrapExport(err)
		}
		enc.Add(p.composer.Snapshot())
	}
	if err := ctx.Err(); err != nil {
		return nil, wrapExport(err)
	}

	data, err := enc.Encode()
	if err != nil {
		return nil, wrapExport(err)
	}
	p.logger.Info("gif exported", "frames", enc.Len(), "bytes", len(data))
	return &Result{Filename: Filename(p.Now(), "gif"), MIME: mimeTypes["gif"], Data: data}, nil
}

// ExportPNG encodes the current frame without overlays.
func (p *Pipeline) ExportPNG(game, screenshot string) (*Result, error) {
	outlines := p.composer.Outlines()
	p.composer.SetOutlines(false)
	defer p.composer.SetOutlines(outlines)

	var buf bytes.Buffer
	if err := png.Encode(&buf, p.composer.Snapshot()); err != nil {
		return nil, wrapExport(err)
	}
	return &Result{Filename: StillFilename(p.Now(), game, screenshot), MIME: mimeTypes["png"], Data: buf.Bytes()}, nil
}

// Export dispatches on format: png, gif, webm or mp4.
func (p *Pipeline) Export(ctx context.Context, format, game, screenshot string) (*Result, error) {
	switch format {
	case "png":
		return p.ExportPNG(game, screenshot)
	case "gif":
		return p.ExportGIF(ctx)
	case "webm", "mp4":
		return p.ExportVideo(ctx, format)
	}
	return nil, fmt.Errorf("%w: unknown format %q", ErrExport, format)
}

func wrapExport(err error) error {
	if errors.Is(err, ErrExport) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrExport, err)
}
