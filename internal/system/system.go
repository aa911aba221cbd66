package system

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	// Каждый видеопоток держит процесс ffmpeg с тремя пайпами
	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Не удалось установить лимит файлов: %v", err)
	}
}

var (
	SceneExtensions  = []string{".jpg", ".jpeg", ".png", ".webp", ".mp4", ".webm", ".mov", ".mkv"}
	BannerExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".pdf", ".mp4", ".webm", ".mov"}
)

// FindLatestMedia возвращает самый свежий файл в dir с одним из расширений.
func FindLatestMedia(dir string, extensions []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExtension(f.Name(), extensions) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено подходящих файлов (%s)", dir, strings.Join(extensions, ", "))
	}
	return latestFile, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// MediaInfo - то, что ffprobe знает о первом видеопотоке файла.
type MediaInfo struct {
	Width    int
	Height   int
	Duration time.Duration
}

type probeOutput struct {
	Streams []struct {
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Duration string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeMedia запускает ffprobe и возвращает размеры и длительность.
func ProbeMedia(ctx context.Context, path string) (MediaInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,duration:format=duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe %s: %w", filepath.Base(path), err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (MediaInfo, error) {
	var po probeOutput
	if err := json.Unmarshal(out, &po); err != nil {
		return MediaInfo{}, fmt.Errorf("разбор ответа ffprobe: %w", err)
	}
	if len(po.Streams) == 0 || po.Streams[0].Width == 0 || po.Streams[0].Height == 0 {
		return MediaInfo{}, fmt.Errorf("видеопоток не найден")
	}

	info := MediaInfo{Width: po.Streams[0].Width, Height: po.Streams[0].Height}
	raw := po.Format.Duration
	if raw == "" {
		raw = po.Streams[0].Duration
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	return info, nil
}

var (
	encodersOnce sync.Once
	encodersList string
)

// HasEncoder проверяет, собран ли ffmpeg с указанным энкодером.
func HasEncoder(name string) bool {
	encodersOnce.Do(func() {
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
		if err == nil {
			encodersList = string(out)
		}
	})
	for _, line := range strings.Split(encodersList, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}

func GetBestH264Encoder() string {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if HasEncoder(name) {
			return name
		}
	}
	return "libx264"
}

// GetWebMEncoder выбирает VP9 и откатывается на VP8, если его нет.
func GetWebMEncoder() string {
	if HasEncoder("libvpx-vp9") {
		return "libvpx-vp9"
	}
	return "libvpx"
}
