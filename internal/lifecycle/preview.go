package lifecycle

import (
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/magicons/internal/anim"
	"github.com/ivlev/magicons/internal/renderer"
	"github.com/ivlev/magicons/internal/scheduler"
)

// Preview plays one animation on its own surface from a wall clock.
// Non-looping animations restart once their cycle ends.
type Preview struct {
	id      anim.ID
	def     anim.Definition
	src     image.Image
	surface *renderer.Surface
	fps     int
	log     zerolog.Logger
	now     func() time.Time

	mu       sync.Mutex
	epoch    time.Time
	pausedAt time.Time
	paused   bool
	rendered int
	failed   bool

	stop chan struct{}
	done chan struct{}
}

func newPreview(id anim.ID, def anim.Definition, src image.Image, width, height, fps int, opts renderer.SurfaceOptions, log zerolog.Logger) *Preview {
	return &Preview{
		id:      id,
		def:     def,
		src:     src,
		surface: renderer.NewSurface(width, height, opts),
		fps:     fps,
		log:     log.With().Str("preview", string(id)).Logger(),
		now:     time.Now,
	}
}

// Start draws the first frame and begins ticking. It is a no-op on a
// running preview.
func (p *Preview) Start() {
	p.mu.Lock()
	if p.stop != nil {
		p.mu.Unlock()
		return
	}
	p.epoch = p.now()
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	stop, done := p.stop, p.done
	p.mu.Unlock()

	p.tick()
	go p.loop(stop, done)
}

func (p *Preview) loop(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Second / time.Duration(p.fps))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *Preview) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused || p.surface.Released() {
		return
	}

	elapsed := float64(p.now().Sub(p.epoch)) / float64(time.Millisecond)
	if !p.def.Loops() {
		elapsed, _ = scheduler.Reduce(elapsed, p.def.CycleMs(), true)
	}

	state, err := renderer.Compose(p.def, elapsed)
	if err == nil {
		err = p.surface.Render(p.src, state)
	}
	if err != nil {
		if !p.failed {
			p.log.Warn().Err(err).Msg("preview frame failed")
			p.failed = true
		}
		return
	}
	p.failed = false
	p.rendered++
}

// Pause freezes the preview clock and stops drawing; the surface keeps
// the last frame.
func (p *Preview) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return
	}
	p.paused = true
	p.pausedAt = p.now()
}

// Resume continues from the moment Pause was called.
func (p *Preview) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return
	}
	p.epoch = p.epoch.Add(p.now().Sub(p.pausedAt))
	p.paused = false
}

func (p *Preview) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Running reports whether the preview ticks and is not paused.
func (p *Preview) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil && !p.paused
}

// Rendered is the number of frames drawn so far.
func (p *Preview) Rendered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rendered
}

// Snapshot copies the current preview frame.
func (p *Preview) Snapshot() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	px := p.surface.Pixels()
	if px == nil {
		return nil
	}
	out := image.NewRGBA(px.Rect)
	copy(out.Pix, px.Pix)
	return out
}

// Stop halts the ticker and returns the surface to the pool.
func (p *Preview) Stop() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop = nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	p.mu.Lock()
	p.surface.Release()
	p.mu.Unlock()
}
