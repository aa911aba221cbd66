package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrNotReady означает, что у источника ещё нет декодированного кадра
// (видео не запущено или не завершён seek). Вместо баннера рисуется заглушка.
var ErrNotReady = errors.New("source: frame not ready")

// Raster - всё, что композитору нужно от сцены или баннера:
// текущий кадр и его собственный размер.
type Raster interface {
	Size() (width, height int)
	Frame() (image.Image, error)
}

// Stream - непрерывно обновляемый растр (видео).
type Stream interface {
	Raster
	Duration() time.Duration
	// Seek возвращается только после декодирования первого кадра на позиции >= t.
	Seek(ctx context.Context, t time.Duration) error
	// Advance подтягивает декодер к моменту воспроизведения t.
	Advance(t time.Duration) error
	Play()
	Pause()
	Playing() bool
	Close() error
}

// Options управляет открытием источников.
type Options struct {
	DPI    int // для PDF
	QRSize int // сторона QR-кода в пикселях
	FPS    int // частота декодирования видео
	Loop   bool
}

func DefaultOptions() Options {
	return Options{DPI: 150, QRSize: 600, FPS: 30, Loop: true}
}

var videoExtensions = []string{".mp4", ".webm", ".mov", ".mkv", ".avi", ".m4v"}

// IsVideo сообщает, нужно ли открывать путь через ffmpeg.
func IsVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range videoExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Open разбирает ссылку на ресурс:
//
//	qr:<payload>      - QR-код
//	file.pdf[#page]   - страница PDF (с 1)
//	*.mp4, *.webm ... - видеопоток
//	иначе             - статичное изображение
func Open(ctx context.Context, ref string, opts Options) (Raster, error) {
	if payload, ok := strings.CutPrefix(ref, "qr:"); ok {
		return NewQR(payload, opts.QRSize)
	}

	path, page := ref, 1
	if i := strings.LastIndex(ref, "#"); i > 0 && strings.EqualFold(filepath.Ext(ref[:i]), ".pdf") {
		n, err := strconv.Atoi(ref[i+1:])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("неверный номер страницы в %q", ref)
		}
		path, page = ref[:i], n
	}

	switch {
	case strings.EqualFold(filepath.Ext(path), ".pdf"):
		return LoadPDF(path, page-1, opts.DPI)
	case IsVideo(path):
		return OpenVideo(ctx, path, opts)
	default:
		return LoadImage(path)
	}
}

// Streams выбирает из набора растров видеопотоки.
func Streams(rasters ...Raster) []Stream {
	var out []Stream
	for _, r := range rasters {
		if s, ok := r.(Stream); ok {
			out = append(out, s)
		}
	}
	return out
}
