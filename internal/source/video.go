package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/ivlev/adboard/internal/system"
)

// maxForwardSeek - насколько далеко вперёд seek декодирует кадры
// в текущем процессе вместо перезапуска ffmpeg.
const maxForwardSeek = 2 * time.Second

// VideoStream декодирует видео через ffmpeg в raw RGBA с фиксированной
// частотой кадров. Кадр i текущего процесса имеет время start + i/fps.
type VideoStream struct {
	path     string
	width    int
	height   int
	fps      int
	duration time.Duration
	loop     bool
	logger   *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	cancel  context.CancelFunc
	start   time.Duration // время первого кадра процесса
	decoded int           // сколько кадров прочитано из процесса
	eof     bool
	frame   *image.RGBA
	spare   *image.RGBA
	playing bool
}

// OpenVideo пробует файл через ffprobe и декодирует первый кадр.
func OpenVideo(ctx context.Context, path string, opts Options) (*VideoStream, error) {
	info, err := system.ProbeMedia(ctx, path)
	if err != nil {
		return nil, err
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}
	v := &VideoStream{
		path:     path,
		width:    info.Width,
		height:   info.Height,
		fps:      fps,
		duration: info.Duration,
		loop:     opts.Loop,
		logger:   slog.New(slog.DiscardHandler),
	}
	if err := v.Seek(ctx, 0); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

// SetLogger подключает логгер для событий декодера.
func (v *VideoStream) SetLogger(l *slog.Logger) {
	if l != nil {
		v.logger = l
	}
}

func (v *VideoStream) Size() (int, int) { return v.width, v.height }

func (v *VideoStream) Duration() time.Duration { return v.duration }

func (v *VideoStream) Frame() (image.Image, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.frame == nil {
		return nil, ErrNotReady
	}
	return v.frame, nil
}

func (v *VideoStream) Play() {
	v.mu.Lock()
	v.playing = true
	v.mu.Unlock()
}

func (v *VideoStream) Pause() {
	v.mu.Lock()
	v.playing = false
	v.mu.Unlock()
}

func (v *VideoStream) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

// Position - время текущего кадра.
func (v *VideoStream) Position() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position()
}

func (v *VideoStream) position() time.Duration {
	if v.decoded == 0 {
		return v.start
	}
	return v.start + v.frameTime(v.decoded-1)
}

func (v *VideoStream) frameTime(i int) time.Duration {
	return time.Duration(i) * time.Second / time.Duration(v.fps)
}

// Seek ставит поток на t и ждёт декодирования первого кадра.
func (v *VideoStream) Seek(ctx context.Context, t time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.seek(ctx, v.clamp(t))
}

func (v *VideoStream) seek(ctx context.Context, t time.Duration) error {
	pos := v.position()
	if v.cmd != nil && !v.eof && v.decoded > 0 && t >= pos && t-pos <= maxForwardSeek {
		return v.decodeUntil(ctx, t)
	}
	if err := v.restart(t); err != nil {
		return err
	}
	return v.decodeUntil(ctx, t)
}

// Advance подтягивает поток к моменту t. На паузе ничего не делает.
// Зацикленный поток по достижении конца начинается заново.
func (v *VideoStream) Advance(t time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.playing {
		return nil
	}

	if v.loop && v.duration > 0 {
		t %= v.duration
		if t < v.position() {
			v.logger.Debug("video loop", "path", v.path, "at", t)
			if err := v.restart(t); err != nil {
				return err
			}
		}
	}
	if v.cmd == nil {
		if err := v.restart(v.clamp(t)); err != nil {
			return err
		}
	}
	err := v.decodeUntil(context.Background(), t)
	if v.eof && v.loop {
		v.logger.Debug("video eof, restarting", "path", v.path)
		return v.restart(0)
	}
	return err
}

func (v *VideoStream) clamp(t time.Duration) time.Duration {
	if t < 0 {
		return 0
	}
	if v.duration > 0 && t > v.duration {
		return v.duration
	}
	return t
}

// decodeUntil читает кадры, пока следующий кадр не окажется позже t.
// Первый кадр после перезапуска читается всегда.
func (v *VideoStream) decodeUntil(ctx context.Context, t time.Duration) error {
	if v.cancel == nil {
		return ErrNotReady
	}
	// отмена ctx убивает процесс, и блокирующее чтение возвращается
	stop := context.AfterFunc(ctx, v.cancel)
	defer stop()

	for !v.eof && (v.decoded == 0 || v.start+v.frameTime(v.decoded) <= t) {
		if err := v.readFrame(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
	return ctx.Err()
}

func (v *VideoStream) readFrame() error {
	if v.spare == nil {
		v.spare = image.NewRGBA(image.Rect(0, 0, v.width, v.height))
	}
	_, err := io.ReadFull(v.stdout, v.spare.Pix)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		v.eof = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("чтение кадра %s: %w", v.path, err)
	}
	v.frame, v.spare = v.spare, v.frame
	v.decoded++
	return nil
}

func (v *VideoStream) restart(at time.Duration) error {
	v.kill()

	ctx, cancel := context.WithCancel(context.Background())
	args := []string{
		"-v", "error",
		"-ss", strconv.FormatFloat(at.Seconds(), 'f', 3, 64),
		"-i", v.path,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d", v.fps, v.width, v.height),
		"-",
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	v.cmd, v.stdout, v.cancel = cmd, stdout, cancel
	v.start, v.decoded, v.eof = at, 0, false
	return nil
}

func (v *VideoStream) kill() {
	if v.cancel != nil {
		v.cancel()
	}
	if v.cmd != nil {
		_ = v.cmd.Wait()
	}
	v.cmd, v.stdout, v.cancel = nil, nil, nil
}

// Close останавливает декодер.
func (v *VideoStream) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = false
	v.kill()
	return nil
}
