package playback

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/adboard/internal/source"
)

// Renderer composes one frame. *compose.Composer implements it.
type Renderer interface {
	Render() *image.RGBA
}

// FrameFunc receives every composed frame. The frame is reused by the next
// tick. Returning ErrStop ends playback cleanly; calling Stop, Play or
// Attach from a FrameFunc deadlocks.
type FrameFunc func(frame *image.RGBA, t time.Duration) error

// Player advances the live video sources and redraws the whole frame every
// tick while playing.
type Player struct {
	loop     *Loop
	renderer Renderer
	logger   *slog.Logger

	mu      sync.Mutex
	streams []source.Stream
	clock   Clock
	onFrame FrameFunc
	last    time.Duration
}

func NewPlayer(r Renderer, streams []source.Stream, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Player{
		loop:     NewLoop(logger),
		renderer: r,
		streams:  streams,
		logger:   logger,
	}
}

// Play resumes every stream and starts the redraw loop on clock. A running
// loop is replaced.
func (p *Player) Play(clock Clock, onFrame FrameFunc) uint64 {
	p.mu.Lock()
	p.clock, p.onFrame = clock, onFrame
	streams := append([]source.Stream(nil), p.streams...)
	p.mu.Unlock()

	for _, s := range streams {
		s.Play()
	}
	return p.loop.Start(clock, p.tick)
}

func (p *Player) tick(ctx context.Context, t time.Duration) error {
	p.mu.Lock()
	streams, onFrame := p.streams, p.onFrame
	p.last = t
	p.mu.Unlock()

	for _, s := range streams {
		if err := s.Advance(t); err != nil {
			// render the placeholder, retry on the next tick
			p.logger.Debug("stream advance failed", "err", err)
		}
	}
	frame := p.renderer.Render()
	if onFrame == nil {
		return nil
	}
	return onFrame(frame, t)
}

// Stop halts the loop synchronously and pauses every stream. Not for use
// inside a FrameFunc.
func (p *Player) Stop() {
	p.loop.Stop()
	p.mu.Lock()
	streams := append([]source.Stream(nil), p.streams...)
	p.mu.Unlock()
	for _, s := range streams {
		s.Pause()
	}
}

// Playing reports whether the redraw loop is armed.
func (p *Player) Playing() bool { return p.loop.Running() }

// Wait blocks until a bounded clock runs out.
func (p *Player) Wait(ctx context.Context) error { return p.loop.Wait(ctx) }

// Position is the time of the last rendered tick.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Attach adds a stream (a newly assigned banner video). A playing loop is
// restarted so the new source starts in step with the others.
func (p *Player) Attach(s source.Stream) {
	p.mu.Lock()
	p.streams = append(p.streams, s)
	clock, onFrame := p.clock, p.onFrame
	p.mu.Unlock()

	if p.Playing() && clock != nil {
		p.Play(clock, onFrame)
	}
}

// SeekAll seeks every stream to t and waits for each to settle.
func (p *Player) SeekAll(ctx context.Context, t time.Duration) error {
	p.mu.Lock()
	streams := append([]source.Stream(nil), p.streams...)
	p.mu.Unlock()
	for _, s := range streams {
		if err := s.Seek(ctx, t); err != nil {
			return fmt.Errorf("seek to %v: %w", t, err)
		}
	}
	return nil
}

// Restart stops playback and rewinds every stream to 0.
func (p *Player) Restart(ctx context.Context) error {
	p.Stop()
	return p.SeekAll(ctx, 0)
}

// Streams returns the attached streams.
func (p *Player) Streams() []source.Stream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]source.Stream(nil), p.streams...)
}

// Duration is the longest stream duration, or 0 with no streams.
func (p *Player) Duration() time.Duration {
	var d time.Duration
	for _, s := range p.Streams() {
		d = max(d, s.Duration())
	}
	return d
}

// Binding returns the clock and frame callback of the last Play call.
func (p *Player) Binding() (Clock, FrameFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clock, p.onFrame
}
