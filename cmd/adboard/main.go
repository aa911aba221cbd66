package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/ivlev/adboard/internal/config"
	"github.com/ivlev/adboard/internal/engine"
	"github.com/ivlev/adboard/internal/export"
	"github.com/ivlev/adboard/internal/system"
	"github.com/joho/godotenv"
)

// Version задаётся при сборке: -ldflags "-X main.Version=..."
var Version = "dev"

// bannerFlags собирает повторяющийся -banner.
type bannerFlags []string

func (b *bannerFlags) String() string { return strings.Join(*b, ",") }

func (b *bannerFlags) Set(v string) error {
	*b = append(*b, v)
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	if err := godotenv.Load(); err == nil {
		fmt.Println("[*] Загружены переменные окружения из .env")
	}

	// Каждый видеопоток держит процесс ffmpeg
	system.InitResourceLimits()

	dirs := []string{"input/scenes", "input/banners", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	def := config.DefaultConfig()
	var banners bannerFlags

	configPtr := flag.String("config", envOr("ADBOARD_CONFIG", ""), "YAML-файл конфигурации (флаги имеют приоритет)")
	catalogPtr := flag.String("catalog", envOr("ADBOARD_CATALOG", ""), "Каталог билбордов (JSON или YAML)")
	gamePtr := flag.String("game", "", "ID игры в каталоге")
	screenshotPtr := flag.String("screenshot", "", "ID скриншота в каталоге")
	scenePtr := flag.String("scene", "", "Скриншот или видео сцены (по умолчанию: самый свежий файл в input/scenes/)")
	flag.Var(&banners, "banner", "Баннер: <billboard-id|индекс>=<файл|qr:текст>, можно повторять")
	editsPtr := flag.String("edits", "", "YAML-скрипт правок билбордов")
	savePtr := flag.Bool("save", false, "Сохранить перспективы билбордов в каталог")
	formatPtr := flag.String("format", def.Format, "Формат результата: png, webm, mp4, gif")
	outputPtr := flag.String("output", envOr("ADBOARD_OUTPUT", def.OutputDir), "Папка для результатов")
	gridPtr := flag.Int("grid", def.GridSize, "Размер сетки перспективной деформации (N×N)")
	oversamplePtr := flag.Float64("oversample", def.Oversample, "Коэффициент суперсэмплинга текстуры баннера")
	paddingPtr := flag.String("padding", def.PaddingColor, "Цвет полей леттербокса")
	outlinesPtr := flag.Bool("outlines", false, "Рисовать контуры билбордов")
	detectPtr := flag.Bool("detect", false, "Искать билборды на сцене без разметки")
	workersPtr := flag.Int("workers", def.Workers, "Потоки")
	statsPtr := flag.Bool("stats", false, "Показать отчёт о производительности")
	verbosePtr := flag.Bool("verbose", false, "Подробный лог")

	flag.Parse()

	cfg := def
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка конфигурации: %v", err)
		}
		cfg = loaded
		fmt.Printf("[*] Конфигурация: %s\n", *configPtr)
	}

	// Флаги перекрывают файл, только если заданы явно. Переменные окружения
	// действуют как значения флагов по умолчанию.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	override := func(name string, fromEnv bool) bool { return set[name] || (fromEnv && *configPtr == "") }

	if override("catalog", os.Getenv("ADBOARD_CATALOG") != "") {
		cfg.CatalogPath = *catalogPtr
	}
	if override("output", os.Getenv("ADBOARD_OUTPUT") != "") {
		cfg.OutputDir = *outputPtr
	}
	if set["game"] {
		cfg.GameID = *gamePtr
	}
	if set["screenshot"] {
		cfg.ScreenshotID = *screenshotPtr
	}
	if set["scene"] {
		cfg.ScenePath = *scenePtr
	}
	if len(banners) > 0 {
		cfg.Banners = banners
	}
	if set["edits"] {
		cfg.EditsPath = *editsPtr
	}
	if set["save"] {
		cfg.SaveCatalog = *savePtr
	}
	if set["format"] {
		cfg.Format = strings.ToLower(*formatPtr)
	}
	if set["grid"] {
		cfg.GridSize = *gridPtr
	}
	if set["oversample"] {
		cfg.Oversample = *oversamplePtr
	}
	if set["padding"] {
		cfg.PaddingColor = *paddingPtr
	}
	if set["outlines"] {
		cfg.Outlines = *outlinesPtr
	}
	if set["detect"] {
		cfg.Detect = *detectPtr
	}
	if set["workers"] {
		cfg.Workers = *workersPtr
	}
	if set["stats"] {
		cfg.ShowStats = *statsPtr
	}
	if set["verbose"] {
		cfg.Verbose = *verbosePtr
	}
	cfg.BuildVersion = Version

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if cfg.Format == "mp4" || cfg.Format == "webm" {
		if enc := exportEncoder(cfg.Format); enc != "" {
			fmt.Printf("[*] Кодек: %s\n", enc)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	project := engine.NewProject(cfg, export.FileSink{Dir: cfg.OutputDir}, logger)
	out, err := project.Run(ctx)
	if err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", out)
}

func exportEncoder(format string) string {
	if format == "webm" {
		return system.GetWebMEncoder()
	}
	enc := system.GetBestH264Encoder()
	if enc != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", enc)
	}
	return enc
}
