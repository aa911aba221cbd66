package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/adboard/internal/analyzer"
	"github.com/ivlev/adboard/internal/catalog"
	"github.com/ivlev/adboard/internal/compose"
	"github.com/ivlev/adboard/internal/config"
	"github.com/ivlev/adboard/internal/editor"
	"github.com/ivlev/adboard/internal/export"
	"github.com/ivlev/adboard/internal/playback"
	"github.com/ivlev/adboard/internal/scene"
	"github.com/ivlev/adboard/internal/source"
	"github.com/ivlev/adboard/internal/system"
)

// Project связывает каталог, сцену, баннеры, редактор и экспорт
// в один запуск.
type Project struct {
	Config *config.Config
	Sink   export.Sink
	Logger *slog.Logger

	// ScenesDir - где искать свежую сцену, если путь не задан.
	ScenesDir string
	// Detector предлагает билборды для сцены без разметки.
	Detector analyzer.Detector

	Catalog    *catalog.Catalog
	Game       *catalog.Game
	Screenshot *catalog.Screenshot

	Scene    *scene.Scene
	Editor   *editor.Editor
	Composer *compose.Composer
	Player   *playback.Player
	Pipeline *export.Pipeline

	base    source.Raster
	banners []source.Raster
	stages  []system.Stage
}

func NewProject(cfg *config.Config, sink export.Sink, logger *slog.Logger) *Project {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Project{
		Config:    cfg,
		Sink:      sink,
		Logger:    logger,
		ScenesDir: filepath.Join("input", "scenes"),
	}
}

func (p *Project) stage(name string, start time.Time) {
	p.stages = append(p.stages, system.Stage{Name: name, Duration: time.Since(start)})
}

func (p *Project) sourceOptions() source.Options {
	opts := source.DefaultOptions()
	opts.DPI = p.Config.DPI
	opts.FPS = p.Config.VideoFPS
	return opts
}

// Load читает каталог, открывает сцену и баннеры и собирает композитор.
func (p *Project) Load(ctx context.Context) error {
	start := time.Now()
	cfg := p.Config

	if cfg.CatalogPath != "" {
		c, err := catalog.Read(cfg.CatalogPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) || !cfg.SaveCatalog {
				return fmt.Errorf("ошибка чтения каталога: %w", err)
			}
			// каталог будет создан при сохранении
			c = &catalog.Catalog{}
		}
		p.Catalog = c
		if g, s, err := c.Find(cfg.GameID, cfg.ScreenshotID); err == nil {
			p.Game, p.Screenshot = g, s
		} else if len(c.Games) > 0 && !cfg.SaveCatalog {
			return err
		}
	}

	scenePath, err := p.scenePath()
	if err != nil {
		return err
	}
	fmt.Printf("[*] Сцена: %s\n", scenePath)

	base, err := source.Open(ctx, scenePath, p.sourceOptions())
	if err != nil {
		return fmt.Errorf("ошибка открытия сцены: %w", err)
	}
	p.base = base
	w, h := base.Size()

	if p.Screenshot != nil {
		p.Scene = p.Screenshot.ToScene(w, h)
	} else {
		id := strings.TrimSuffix(filepath.Base(scenePath), filepath.Ext(scenePath))
		p.Scene = scene.New(id, w, h)
		p.Scene.Name = filepath.Base(scenePath)
	}

	if p.Scene.Len() == 0 {
		p.seedBillboards()
	}
	fmt.Printf("[*] Разрешение: %dx%d | Билбордов: %d\n", w, h, p.Scene.Len())
	p.stage("Load Scene", start)

	start = time.Now()
	assigns := make([]BannerAssignment, 0, len(cfg.Banners))
	for _, s := range cfg.Banners {
		a, err := ParseBanner(s)
		if err != nil {
			return err
		}
		assigns = append(assigns, a)
	}
	p.banners, err = loadBanners(ctx, p.Scene, assigns, p.sourceOptions(), cfg.Workers)
	if err != nil {
		return err
	}
	if len(assigns) > 0 {
		fmt.Printf("[*] Загружено баннеров: %d\n", len(assigns))
	}
	p.stage("Load Banners", start)

	p.Editor = editor.New(p.Scene, p.Logger)
	p.Editor.SetMargin(cfg.Margin)

	p.Composer = compose.New(p.Scene, base, compose.Options{
		Grid:       cfg.GridSize,
		Oversample: cfg.Oversample,
		Padding:    cfg.Padding(),
		Outlines:   cfg.Outlines,
	}, p.Logger)
	p.Composer.SetEditState(p.Editor)

	rasters := append([]source.Raster{base}, p.banners...)
	p.Player = playback.NewPlayer(p.Composer, source.Streams(rasters...), p.Logger)
	p.Pipeline = export.NewPipeline(p.Composer, p.Player, export.Settings{
		VideoFPS:         cfg.VideoFPS,
		VideoBitrate:     cfg.VideoBitrate,
		VideoMaxDuration: cfg.VideoMaxDuration,
		GIFFPS:           cfg.GIFFPS,
		GIFMaxDuration:   cfg.GIFMaxDuration,
		Workers:          cfg.Workers,
	}, p.Logger)
	return nil
}

func (p *Project) scenePath() (string, error) {
	if p.Config.ScenePath != "" {
		return p.Config.ScenePath, nil
	}
	if p.Screenshot != nil && p.Screenshot.Filename != "" {
		candidates := []string{p.Screenshot.Filename, filepath.Join(p.ScenesDir, p.Screenshot.Filename)}
		if p.Config.CatalogPath != "" {
			candidates = append(candidates, filepath.Join(filepath.Dir(p.Config.CatalogPath), p.Screenshot.Filename))
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				return c, nil
			}
		}
	}
	latest, err := system.FindLatestMedia(p.ScenesDir, system.SceneExtensions)
	if err != nil {
		return "", fmt.Errorf("сцена не найдена: %w. Положите скриншот или видео в %s", err, p.ScenesDir)
	}
	return latest, nil
}

// seedBillboards размечает пустую сцену: кандидатами детектора, если он
// включён, иначе билбордом по умолчанию.
func (p *Project) seedBillboards() {
	if p.Config.Detect {
		if n := p.detect(); n > 0 {
			fmt.Printf("[*] Детектор нашёл билбордов: %d\n", n)
			return
		}
		fmt.Println("[!] Детектор ничего не нашёл, используется билборд по умолчанию")
	}
	p.Scene.Add()
}

func (p *Project) detect() int {
	d := p.Detector
	if d == nil {
		var err error
		if d, err = analyzer.NewDetector("contrast"); err != nil {
			warnDetect(p.Logger, err)
			return 0
		}
	}
	frame, err := p.base.Frame()
	if err != nil {
		warnDetect(p.Logger, err)
		return 0
	}
	cands, err := d.Detect(frame)
	if err != nil {
		warnDetect(p.Logger, err)
		return 0
	}
	for _, c := range cands {
		p.Scene.Append(scene.NewBillboard("", c.Quad))
		p.Logger.Debug("candidate", "rect", c.Rect, "score", c.Score)
	}
	return len(cands)
}

func warnDetect(l *slog.Logger, err error) {
	l.Warn("detection skipped", "err", err)
}

// ApplyEdits проигрывает YAML-скрипт правок через редактор.
func (p *Project) ApplyEdits(path string) error {
	script, err := editor.LoadScript(path)
	if err != nil {
		return err
	}
	if err := script.Run(p.Editor); err != nil {
		return fmt.Errorf("скрипт правок %s: %w", path, err)
	}
	if p.Editor.Mode() != editor.ModeNone {
		fmt.Println("[!] Скрипт закончился в режиме редактирования, правка отменена")
		p.Editor.Cancel()
	}
	return nil
}

// Run выполняет весь запуск и возвращает путь к результату.
func (p *Project) Run(ctx context.Context) (string, error) {
	startTime := time.Now()
	defer p.Close()

	if err := p.Load(ctx); err != nil {
		return "", err
	}

	if p.Config.EditsPath != "" {
		start := time.Now()
		if err := p.ApplyEdits(p.Config.EditsPath); err != nil {
			return "", err
		}
		fmt.Printf("[*] Применён скрипт правок: %s\n", p.Config.EditsPath)
		p.stage("Edits", start)
	}

	start := time.Now()
	gameID, shotID := p.ids()
	res, err := p.Pipeline.Export(ctx, p.Config.Format, gameID, shotID)
	if err != nil {
		return "", err
	}
	p.stage("Export", start)

	out, err := p.Sink.Save(res)
	if err != nil {
		return "", err
	}

	if p.Config.SaveCatalog && p.Config.CatalogPath != "" {
		if err := p.SaveCatalog(); err != nil {
			return out, err
		}
		fmt.Printf("[*] Каталог обновлён: %s\n", p.Config.CatalogPath)
	}

	if p.Config.ShowStats {
		total := time.Since(startTime)
		fmt.Print(system.Report(p.Config.BuildVersion, total, 0, p.stages, system.Snapshot()))
		line := fmt.Sprintf("Build: %s | Format: %s | Scene: %dx%d | Billboards: %d | Total: %.2fs",
			p.Config.BuildVersion, p.Config.Format, p.Scene.Width, p.Scene.Height, p.Scene.Len(), total.Seconds())
		if err := system.AppendBenchmark("benchmark.log", line); err != nil {
			fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
		}
	}
	return out, nil
}

func (p *Project) ids() (string, string) {
	if p.Screenshot == nil {
		return "", ""
	}
	game := ""
	if p.Game != nil {
		game = p.Game.ID
	}
	return game, p.Screenshot.ID
}

// SaveCatalog записывает перспективы сцены обратно в каталог. Если
// скриншота в каталоге ещё нет, он добавляется.
func (p *Project) SaveCatalog() error {
	if p.Catalog == nil {
		p.Catalog = &catalog.Catalog{}
	}
	if p.Screenshot == nil {
		gameID := p.Config.GameID
		if gameID == "" {
			gameID = "game-1"
		}
		shotID := p.Config.ScreenshotID
		if shotID == "" {
			shotID = p.Scene.ID
		}
		p.Game, p.Screenshot = p.Catalog.Ensure(gameID, shotID, p.Scene.Name)
	}
	p.Screenshot.Update(p.Scene)
	return catalog.Write(p.Catalog, p.Config.CatalogPath)
}

// Close останавливает воспроизведение и закрывает видеопотоки.
func (p *Project) Close() error {
	if p.Player != nil {
		p.Player.Stop()
	}
	rasters := append([]source.Raster{p.base}, p.banners...)
	var errs []error
	for _, s := range source.Streams(rasters...) {
		errs = append(errs, s.Close())
	}
	p.base, p.banners = nil, nil
	return errors.Join(errs...)
}
