// Package lifecycle coordinates live previews with one-shot exports: an
// export takes the surface role away from its preview for the duration of
// the job and hands it back afterwards, whatever the outcome.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/magicons/internal/anim"
	"github.com/ivlev/magicons/internal/encoder"
	"github.com/ivlev/magicons/internal/engine"
	"github.com/ivlev/magicons/internal/renderer"
)

// ErrExportAlreadyInProgress rejects an export while another one holds the slot.
var ErrExportAlreadyInProgress = errors.New("export already in progress")

// FileName is the name offered for every exported blob.
const FileName = "magicon.gif"

// Options sizes the canvases and configures previews and exports.
type Options struct {
	Width, Height int
	FPS           int
	DurationMs    int
	PreviewFPS    int
	Surface       renderer.SurfaceOptions
	Encoder       encoder.Options
	// NewEncoder builds the encoder for each export; nil means GIF.
	NewEncoder func(zerolog.Logger) encoder.Encoder
	// OnFrame observes captured export frames.
	OnFrame func(engine.Frame)
}

// Result is a finished export.
type Result struct {
	FileName string
	Blob     []byte
	Frames   int
	JobID    string
}

type target struct {
	id      anim.ID
	def     anim.Definition
	preview *Preview
}

// Manager owns one preview per animation and the single export slot.
type Manager struct {
	log     zerolog.Logger
	src     image.Image
	opts    Options
	order   []anim.ID
	targets map[anim.ID]*target
	busy    atomic.Bool
}

// NewManager creates one paused-until-Start preview per registered animation,
// all sharing src.
func NewManager(reg *anim.Registry, src image.Image, opts Options, log zerolog.Logger) (*Manager, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, renderer.ErrRenderSurfaceUnavailable
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", opts.Width, opts.Height)
	}
	if opts.PreviewFPS <= 0 {
		opts.PreviewFPS = 60
	}
	if opts.NewEncoder == nil {
		opts.NewEncoder = func(l zerolog.Logger) encoder.Encoder { return encoder.NewGIFEncoder(l) }
	}

	m := &Manager{
		log:     log.With().Str("component", "lifecycle").Logger(),
		src:     src,
		opts:    opts,
		targets: make(map[anim.ID]*target),
	}
	for _, e := range reg.Entries() {
		m.order = append(m.order, e.ID)
		m.targets[e.ID] = &target{
			id:      e.ID,
			def:     e.Definition,
			preview: newPreview(e.ID, e.Definition, src, opts.Width, opts.Height, opts.PreviewFPS, opts.Surface, log),
		}
	}
	return m, nil
}

// Start runs every preview.
func (m *Manager) Start() {
	for _, id := range m.order {
		m.targets[id].preview.Start()
	}
	m.log.Debug().Int("previews", len(m.order)).Msg("previews started")
}

// Close stops the previews and releases their surfaces.
func (m *Manager) Close() {
	for _, id := range m.order {
		m.targets[id].preview.Stop()
	}
}

// Preview returns the live preview of id.
func (m *Manager) Preview(id anim.ID) (*Preview, error) {
	t, ok := m.targets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", anim.ErrUnknownAnimation, id)
	}
	return t.preview, nil
}

// Exporting reports whether an export holds the exclusive slot.
func (m *Manager) Exporting() bool {
	return m.busy.Load()
}

// Export renders the animation into a fixed-length GIF. Only one export
// runs at a time; a second caller gets ErrExportAlreadyInProgress. ctx
// bounds how long the caller waits: the job itself is not cancelled and
// still releases its resources when it completes.
func (m *Manager) Export(ctx context.Context, id anim.ID) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	t, ok := m.targets[id]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", anim.ErrUnknownAnimation, id)
	}
	if !m.busy.CompareAndSwap(false, true) {
		return Result{}, ErrExportAlreadyInProgress
	}

	t.preview.Pause()
	surface := renderer.NewSurface(m.opts.Width, m.opts.Height, m.opts.Surface)
	job := engine.NewExportJob(m.src, id, t.def, m.opts.FPS, m.opts.DurationMs)
	log := m.log.With().Str("job", job.ID).Str("animation", string(id)).Logger()

	pacer := engine.NewPacer(m.opts.NewEncoder(m.log), m.opts.Encoder, m.log)
	pacer.OnFrame = m.opts.OnFrame

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	log.Info().Msg("export started")

	go func() {
		events := pacer.Run(job, surface)
		// Capture is over once Run returns; the encoder owns copies.
		surface.Release()
		ev := <-events
		t.preview.Resume()
		m.busy.Store(false)

		if ev.Err != nil {
			log.Error().Err(ev.Err).Msg("export failed")
			done <- outcome{err: ev.Err}
			return
		}
		log.Info().
			Int("frames", ev.Frames).
			Int("bytes", len(ev.Blob)).
			Dur("took", time.Since(start)).
			Msg("export complete")
		done <- outcome{res: Result{FileName: FileName, Blob: ev.Blob, Frames: ev.Frames, JobID: job.ID}}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("caller stopped waiting, export continues")
		return Result{}, ctx.Err()
	}
}
