package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/ivlev/adboard/internal/system"
	"golang.org/x/sync/errgroup"
)

// Recorder consumes a fixed-rate frame stream and produces an encoded blob.
type Recorder interface {
	Begin(ctx context.Context, width, height, fps int) error
	WriteFrame(frame *image.RGBA) error
	End() ([]byte, error)
	Abort()
}

// FFmpegRecorder pipes raw RGBA frames into ffmpeg and collects the
// container from its stdout.
type FFmpegRecorder struct {
	Format  string // webm | mp4
	Bitrate int    // bits per second
	Encoder string // empty selects the best available
	Logger  *slog.Logger

	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	out    bytes.Buffer
	stderr bytes.Buffer
	g      *errgroup.Group
	width  int
	height int
	frames int
}

// NewRecorder returns an ffmpeg recorder for webm or mp4.
func NewRecorder(format string, bitrate int, logger *slog.Logger) (*FFmpegRecorder, error) {
	switch format {
	case "webm", "mp4":
	default:
		return nil, fmt.Errorf("%w: unsupported video format %q", ErrExport, format)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FFmpegRecorder{Format: format, Bitrate: bitrate, Logger: logger}, nil
}

func (r *FFmpegRecorder) encoder() string {
	if r.Encoder != "" {
		return r.Encoder
	}
	if r.Format == "webm" {
		return system.GetWebMEncoder()
	}
	return system.GetBestH264Encoder()
}

func (r *FFmpegRecorder) buildFFmpegArgs(width, height, fps int) []string {
	enc := r.encoder()
	args := []string{
		"-y",
		"-v", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
		"-an",
		"-pix_fmt", "yuv420p",
		"-c:v", enc,
	}

	kbps := max(r.Bitrate/1000, 1)
	switch enc {
	case "libvpx-vp9", "libvpx":
		args = append(args, "-b:v", fmt.Sprintf("%dk", kbps), "-deadline", "realtime", "-cpu-used", "8")
	case "h264_videotoolbox":
		args = append(args, "-b:v", fmt.Sprintf("%dk", kbps))
	case "h264_nvenc":
		args = append(args, "-b:v", fmt.Sprintf("%dk", kbps), "-preset", "p4")
	default: // libx264
		args = append(args, "-b:v", fmt.Sprintf("%dk", kbps), "-preset", "veryfast")
	}

	if r.Format == "mp4" {
		// stdout is not seekable
		args = append(args, "-movflags", "frag_keyframe+empty_moov", "-f", "mp4")
	} else {
		args = append(args, "-f", "webm")
	}
	return append(args, "-")
}

func (r *FFmpegRecorder) Begin(ctx context.Context, width, height, fps int) error {
	ctx, cancel := context.WithCancel(ctx)
	args := r.buildFFmpegArgs(width, height, fps)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &r.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	r.cmd, r.cancel, r.stdin = cmd, cancel, stdin
	r.width, r.height, r.frames = width, height, 0
	r.out.Reset()
	r.g = new(errgroup.Group)
	r.g.Go(func() error {
		_, err := io.Copy(&r.out, stdout)
		return err
	})
	r.Logger.Debug("recorder started", "encoder", r.encoder(), "size", fmt.Sprintf("%dx%d", width, height), "fps", fps)
	return nil
}

func (r *FFmpegRecorder) WriteFrame(frame *image.RGBA) error {
	if r.stdin == nil {
		return fmt.Errorf("recorder not started")
	}
	b := frame.Bounds()
	if b.Dx() != r.width || b.Dy() != r.height {
		return fmt.Errorf("frame %dx%d does not match %dx%d", b.Dx(), b.Dy(), r.width, r.height)
	}
	if frame.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		packed := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(packed, packed.Bounds(), frame, b.Min, draw.Src)
		frame = packed
	}
	if _, err := r.stdin.Write(frame.Pix); err != nil {
		return fmt.Errorf("write raw error: %w: %s", err, r.stderrTail())
	}
	r.frames++
	return nil
}

// End closes the input and waits for the encoded container.
func (r *FFmpegRecorder) End() ([]byte, error) {
	if r.cmd == nil {
		return nil, fmt.Errorf("recorder not started")
	}
	defer r.cancel()
	r.stdin.Close()
	copyErr := r.g.Wait()
	if err := r.cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg wait error: %w: %s", err, r.stderrTail())
	}
	if copyErr != nil {
		return nil, fmt.Errorf("read encoded output: %w", copyErr)
	}
	r.cmd, r.stdin = nil, nil
	r.Logger.Debug("recorder finished", "frames", r.frames, "bytes", r.out.Len())
	return bytes.Clone(r.out.Bytes()), nil
}

// Abort kills the encoder and discards its output.
func (r *FFmpegRecorder) Abort() {
	if r.cmd == nil {
		return
	}
	r.cancel()
	r.stdin.Close()
	_ = r.g.Wait()
	_ = r.cmd.Wait()
	r.cmd, r.stdin = nil, nil
}

func (r *FFmpegRecorder) stderrTail() string {
	s := strings.TrimSpace(r.stderr.String())
	if len(s) > 512 {
		s = s[len(s)-512:]
	}
	return s
}
