package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/magicons/internal/anim"
	"github.com/ivlev/magicons/internal/config"
	"github.com/ivlev/magicons/internal/encoder"
	"github.com/ivlev/magicons/internal/engine"
	"github.com/ivlev/magicons/internal/lifecycle"
	"github.com/ivlev/magicons/internal/renderer"
	"github.com/ivlev/magicons/internal/source"
	"github.com/ivlev/magicons/internal/system"
)

const placeholderInput = "qr:magicons"

func main() {
	def := config.Default()

	configPtr := flag.String("config", "", "Путь к YAML-файлу настроек")
	flag.String("input", def.InputPath, "Путь к иконке (png, jpeg, gif, webp, bmp, svg, pdf) или qr:<текст>")
	flag.String("animation", def.AnimationID, "Идентификатор анимации (см. -list)")
	flag.String("output", def.OutputPath, "Путь к итоговому GIF")
	flag.String("animations", def.AnimationsPath, "YAML-файл с дополнительными анимациями")
	flag.Int("fps", def.FPS, "Частота кадров экспорта")
	flag.Int("duration", def.DurationMs, "Длительность экспорта (мс)")
	flag.Int("workers", def.Workers, "Потоки кодирования")
	flag.Int("quality", def.Quality, "Качество палитры: 1 (лучшее, с дизерингом до 5) .. 30 (быстрее)")
	flag.String("background", def.Background, "Цвет фона: #rgb, #rrggbb, #rrggbbaa или transparent")
	flag.String("size", fmt.Sprintf("%dx%d", def.Width, def.Height), "Размер кадра, ШxВ")
	flag.Int("dpi", def.DPI, "DPI для svg/pdf")
	flag.Int("loop", def.LoopCount, "Повторы GIF: 0 бесконечно, -1 один раз")
	flag.Bool("trim", def.Trim, "Обрезать пустые поля иконки")
	flag.Bool("debug", def.Debug, "Подробные логи")
	listPtr := flag.Bool("list", false, "Показать доступные анимации и выйти")
	dumpPtr := flag.Bool("dump-animations", false, "Вывести реестр анимаций в YAML и выйти")
	previewPtr := flag.String("preview", "", "Сохранить PNG-снимок живого превью вместо экспорта")
	previewAtPtr := flag.Duration("preview-at", 250*time.Millisecond, "Когда снимать превью после старта")

	flag.Parse()

	cfg, err := loadConfig(*configPtr)
	log := system.NewLogger(cfg.Debug)
	if err != nil {
		log.Fatal().Err(err).Msg("[-] Ошибка конфигурации")
	}

	reg, err := anim.Load(cfg.AnimationsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("[-] Ошибка загрузки анимаций")
	}

	switch {
	case *listPtr:
		listAnimations(reg)
		return
	case *dumpPtr:
		if err := anim.Encode(os.Stdout, reg.Entries()); err != nil {
			log.Fatal().Err(err).Msg("[-] Ошибка вывода анимаций")
		}
		return
	}

	if cfg.InputPath == "" {
		cfg.InputPath = placeholderInput
		log.Info().Msgf("[*] Иконка не указана, используется %s", placeholderInput)
	}
	icon, err := source.Load(cfg.InputPath, source.Options{DPI: cfg.DPI, Trim: cfg.Trim})
	if err != nil {
		log.Fatal().Err(err).Msg("[-] Ошибка источника")
	}

	opts := lifecycle.Options{
		Width:      cfg.Width,
		Height:     cfg.Height,
		FPS:        cfg.FPS,
		DurationMs: cfg.DurationMs,
		PreviewFPS: cfg.PreviewFPS,
		Surface:    renderer.SurfaceOptions{IconFill: cfg.IconFill},
		Encoder: encoder.Options{
			Background: cfg.BackgroundColor(),
			Workers:    cfg.Workers,
			Quality:    cfg.Quality,
			LoopCount:  cfg.LoopCount,
		},
		OnFrame: progress(log, cfg),
	}
	m, err := lifecycle.NewManager(reg, icon, opts, log)
	if err != nil {
		log.Fatal().Err(err).Msg("[-] Ошибка инициализации")
	}
	m.Start()
	defer m.Close()

	id := anim.ID(cfg.AnimationID)
	if *previewPtr != "" {
		if err := writePreview(m, id, *previewPtr, *previewAtPtr); err != nil {
			log.Fatal().Err(err).Msg("[-] Ошибка превью")
		}
		fmt.Printf("[+++] Превью сохранено: %s\n", *previewPtr)
		return
	}

	fmt.Println("--- [MAGICONS: EXPORT] ---")
	fmt.Printf("[*] Иконка: %s | Анимация: %s\n", cfg.InputPath, id)
	fmt.Printf("[*] Разрешение: %dx%d @ %d FPS | %d мс | Потоков: %d\n", cfg.Width, cfg.Height, cfg.FPS, cfg.DurationMs, cfg.Workers)
	fmt.Println("--------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := m.Export(ctx, id)
	if err != nil {
		log.Fatal().Err(err).Msg("[-] Ошибка экспорта")
	}
	if err := os.WriteFile(cfg.OutputPath, res.Blob, 0644); err != nil {
		log.Fatal().Err(err).Msg("[-] Ошибка записи")
	}

	fmt.Printf("[+++] Успех! %s: %d кадров, %d байт -> %s\n", res.FileName, res.Frames, len(res.Blob), cfg.OutputPath)
}

// loadConfig layers defaults, the YAML file, the environment and finally
// the flags the user actually set.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		return cfg, err
	}

	var errs []string
	flag.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		var err error
		switch f.Name {
		case "input":
			cfg.InputPath = v
		case "animation":
			cfg.AnimationID = v
		case "output":
			cfg.OutputPath = v
		case "animations":
			cfg.AnimationsPath = v
		case "background":
			cfg.Background = v
		case "fps":
			cfg.FPS, err = strconv.Atoi(v)
		case "duration":
			cfg.DurationMs, err = strconv.Atoi(v)
		case "workers":
			cfg.Workers, err = strconv.Atoi(v)
		case "quality":
			cfg.Quality, err = strconv.Atoi(v)
		case "dpi":
			cfg.DPI, err = strconv.Atoi(v)
		case "loop":
			cfg.LoopCount, err = strconv.Atoi(v)
		case "trim":
			cfg.Trim, err = strconv.ParseBool(v)
		case "debug":
			cfg.Debug, err = strconv.ParseBool(v)
		case "size":
			cfg.Width, cfg.Height, err = parseSize(v)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("-%s: %v", f.Name, err))
		}
	})
	if len(errs) > 0 {
		return cfg, fmt.Errorf("%w: %s", config.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return cfg, cfg.Validate()
}

func parseSize(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("ожидается ШxВ, получено %q", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, err
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func listAnimations(reg *anim.Registry) {
	for _, e := range reg.Entries() {
		kind := "parametric"
		if _, ok := e.Definition.(*anim.Timeline); ok {
			kind = "timeline"
		}
		names := make([]string, 0, 5)
		for _, p := range e.Definition.Animated() {
			names = append(names, string(p))
		}
		fmt.Printf("%-12s %-10s цикл %5.0f мс  loop=%-5t %s\n",
			e.ID, kind, e.Definition.CycleMs(), e.Definition.Loops(), strings.Join(names, ","))
	}
}

func progress(log zerolog.Logger, cfg *config.Config) func(engine.Frame) {
	return func(f engine.Frame) {
		if (f.Index+1)%cfg.FPS == 0 {
			log.Info().Msgf("[>] Кадр %d (%.0f%%)", f.Index+1, f.Progress*100)
		}
	}
}

func writePreview(m *lifecycle.Manager, id anim.ID, path string, at time.Duration) error {
	p, err := m.Preview(id)
	if err != nil {
		return err
	}
	time.Sleep(at)
	snap := p.Snapshot()
	if snap == nil {
		return renderer.ErrRenderSurfaceUnavailable
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
