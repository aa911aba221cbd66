package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Result is a finished in-memory export.
type Result struct {
	Filename string
	MIME     string
	Data     []byte
}

// Sink accepts finished exports.
type Sink interface {
	Save(res *Result) (string, error)
}

// FileSink writes results into Dir.
type FileSink struct {
	Dir string
}

func (s FileSink) Save(res *Result) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, res.Filename)
	if err := os.WriteFile(path, res.Data, 0644); err != nil {
		return "", fmt.Errorf("save %s: %w", res.Filename, err)
	}
	return path, nil
}

var mimeTypes = map[string]string{
	"webm": "video/webm",
	"mp4":  "video/mp4",
	"gif":  "image/gif",
	"png":  "image/png",
}

// Filename is in-game-ad-<unix ms>.<ext>.
func Filename(at time.Time, ext string) string {
	return fmt.Sprintf("in-game-ad-%d.%s", at.UnixMilli(), ext)
}

// StillFilename names a PNG export after its game and screenshot when both
// are known.
func StillFilename(at time.Time, game, screenshot string) string {
	if game == "" || screenshot == "" {
		return Filename(at, "png")
	}
	return fmt.Sprintf("%s_%s_banner.png", game, screenshot)
}
