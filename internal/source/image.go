package source

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}

// Still - неизменяемый декодированный растр.
type Still struct {
	img *image.RGBA
}

// NewStill копирует img в RGBA с началом координат в (0,0).
func NewStill(img image.Image) *Still {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return &Still{img: rgba}
}

func (s *Still) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *Still) Frame() (image.Image, error) {
	return s.img, nil
}

// LoadImage декодирует файл изображения (jpeg, png, gif, webp, bmp, tiff).
func LoadImage(path string) (*Still, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("декодирование %s: %w", filepath.Base(path), err)
	}
	return NewStill(img), nil
}

// IsImage сообщает, похоже ли расширение на поддерживаемое изображение.
func IsImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range imageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ListMedia возвращает отсортированный список изображений, PDF и видео
// в папке. Для файла возвращается он сам.
func ListMedia(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if IsImage(name) || IsVideo(name) || strings.EqualFold(filepath.Ext(name), ".pdf") {
			paths = append(paths, filepath.Join(path, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
