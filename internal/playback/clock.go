package playback

import (
	"context"
	"time"
)

// Clock produces tick timestamps until ctx is cancelled or it runs out.
type Clock interface {
	Ticks(ctx context.Context) <-chan time.Duration
}

// RealtimeClock ticks at a fixed display rate and reports wall time since
// the first tick plus Offset.
type RealtimeClock struct {
	Interval time.Duration
	Offset   time.Duration
}

// DisplayRate returns a clock ticking fps times per second.
func DisplayRate(fps int) RealtimeClock {
	if fps <= 0 {
		fps = 60
	}
	return RealtimeClock{Interval: time.Second / time.Duration(fps)}
}

func (c RealtimeClock) Ticks(ctx context.Context) <-chan time.Duration {
	out := make(chan time.Duration)
	go func() {
		defer close(out)
		ticker := time.NewTicker(c.Interval)
		defer ticker.Stop()
		start := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				select {
				case out <- c.Offset + now.Sub(start):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// StepClock emits Frames timestamps i/FPS as fast as they are consumed.
type StepClock struct {
	FPS    int
	Frames int
}

// StepsFor returns a StepClock covering d at fps.
func StepsFor(fps int, d time.Duration) StepClock {
	n := int(d.Seconds() * float64(fps))
	return StepClock{FPS: fps, Frames: max(n, 1)}
}

func (c StepClock) Ticks(ctx context.Context) <-chan time.Duration {
	out := make(chan time.Duration)
	go func() {
		defer close(out)
		for i := 0; i < c.Frames; i++ {
			select {
			case out <- time.Duration(i) * time.Second / time.Duration(c.FPS):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
