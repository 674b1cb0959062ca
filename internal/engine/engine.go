// Package engine drives an export: it steps a synthetic clock at a fixed
// frame rate, renders each pose onto a surface and feeds the encoder.
package engine

import (
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ivlev/magicons/internal/anim"
	"github.com/ivlev/magicons/internal/encoder"
	"github.com/ivlev/magicons/internal/renderer"
	"github.com/ivlev/magicons/internal/scheduler"
	"github.com/ivlev/magicons/internal/system"
)

// ErrInvalidJob is returned for jobs without a definition, frame rate or duration.
var ErrInvalidJob = errors.New("invalid export job")

// ExportJob is one request to turn an animation into a fixed-length loop.
type ExportJob struct {
	ID              string
	Source          image.Image
	AnimationID     anim.ID
	Definition      anim.Definition
	FPS             int
	TotalDurationMs int
}

// NewExportJob assigns the job a fresh id.
func NewExportJob(src image.Image, id anim.ID, def anim.Definition, fps, totalMs int) *ExportJob {
	return &ExportJob{
		ID:              uuid.NewString(),
		Source:          src,
		AnimationID:     id,
		Definition:      def,
		FPS:             fps,
		TotalDurationMs: totalMs,
	}
}

func (j *ExportJob) Validate() error {
	switch {
	case j == nil || j.Definition == nil:
		return fmt.Errorf("%w: no animation definition", ErrInvalidJob)
	case j.FPS <= 0:
		return fmt.Errorf("%w: fps must be positive, got %d", ErrInvalidJob, j.FPS)
	case j.TotalDurationMs <= 0:
		return fmt.Errorf("%w: duration must be positive, got %dms", ErrInvalidJob, j.TotalDurationMs)
	case j.FrameCount() < 1:
		return fmt.Errorf("%w: %d fps over %dms yields no frames", ErrInvalidJob, j.FPS, j.TotalDurationMs)
	}
	return nil
}

// FrameCount is round(fps * duration). The last frame may be cut short or
// stretched by up to half a frame interval.
func (j *ExportJob) FrameCount() int {
	return int(math.Round(float64(j.FPS) * float64(j.TotalDurationMs) / 1000))
}

// DelayMs is the display time of every frame.
func (j *ExportJob) DelayMs() int {
	return int(math.Round(1000 / float64(j.FPS)))
}

// ElapsedMs is the animation clock when frame i is captured.
func (j *ExportJob) ElapsedMs(i int) float64 {
	return float64(i) * 1000 / float64(j.FPS)
}

// Frame is one captured raster. Progress is the position within the
// animation cycle, not within the export. Raster aliases the pacer's surface and is
// only valid until the next frame is rendered.
type Frame struct {
	Index    int
	Progress float64
	Raster   *image.RGBA
	DelayMs  int
}

// Pacer captures frames strictly in order.
type Pacer struct {
	Encoder encoder.Encoder
	// Options carries background, workers, quality and loop count; the size
	// always comes from the surface.
	Options encoder.Options
	Log     zerolog.Logger
	// OnFrame, when set, observes every frame after it was handed to the encoder.
	OnFrame func(Frame)
}

func NewPacer(enc encoder.Encoder, opts encoder.Options, log zerolog.Logger) *Pacer {
	return &Pacer{Encoder: enc, Options: opts, Log: log}
}

// Run renders job onto surface frame by frame and returns the encoder's
// completion channel. Capture happens before Run returns; encoding may
// still be in flight. Exactly one event is delivered.
func (p *Pacer) Run(job *ExportJob, surface *renderer.Surface) <-chan encoder.Event {
	if err := job.Validate(); err != nil {
		return failed(err)
	}
	bounds := surface.Bounds()
	if bounds.Empty() {
		return failed(renderer.ErrRenderSurfaceUnavailable)
	}

	n, delay := job.FrameCount(), job.DelayMs()
	log := p.Log.With().Str("job", job.ID).Str("animation", string(job.AnimationID)).Logger()

	if budget := system.EstimateFrameBudget(n, bounds.Dx(), bounds.Dy()); !budget.Fits() {
		log.Warn().Str("budget", budget.String()).Msg("экспорт может не поместиться в память")
	}

	opts := p.Options
	opts.Width, opts.Height = bounds.Dx(), bounds.Dy()
	if err := p.Encoder.Begin(opts); err != nil {
		return failed(fmt.Errorf("%w: %w", encoder.ErrEncodeFailed, err))
	}

	log.Info().
		Int("frames", n).
		Int("fps", job.FPS).
		Int("delay_ms", delay).
		Msgf("захват %dx%d", opts.Width, opts.Height)

	start := time.Now()
	for i := 0; i < n; i++ {
		if err := p.capture(job, surface, i, delay); err != nil {
			log.Error().Err(err).Int("frame", i).Msg("ошибка захвата кадра, экспорт прерван")
			return p.Encoder.Abort(fmt.Errorf("frame %d: %w", i, err))
		}
		if (i+1)%job.FPS == 0 || i == n-1 {
			log.Debug().Msgf("[>] Кадров: %d/%d", i+1, n)
		}
	}
	log.Debug().Dur("took", time.Since(start)).Msg("захват завершён")

	return p.Encoder.Finalize(n)
}

func (p *Pacer) capture(job *ExportJob, surface *renderer.Surface, i, delay int) error {
	state, err := renderer.Compose(job.Definition, job.ElapsedMs(i))
	if err != nil {
		return err
	}
	if err := surface.Render(job.Source, state); err != nil {
		return err
	}
	if err := p.Encoder.AppendFrame(surface.Pixels(), delay); err != nil {
		return err
	}
	if p.OnFrame != nil {
		p.OnFrame(Frame{
			Index:    i,
			Progress: scheduler.CycleProgress(job.ElapsedMs(i), job.Definition.CycleMs()),
			Raster:   surface.Pixels(),
			DelayMs:  delay,
		})
	}
	return nil
}

func failed(err error) <-chan encoder.Event {
	ch := make(chan encoder.Event, 1)
	ch <- encoder.Event{Err: err}
	close(ch)
	return ch
}
