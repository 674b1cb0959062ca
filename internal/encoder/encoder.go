// Package encoder assembles captured frames into an animated GIF on a
// bounded worker pool.
package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/magicons/internal/system"
)

var (
	// ErrEncodeFailed wraps any failure inside the worker pool or the GIF writer.
	ErrEncodeFailed = errors.New("encode failed")
	ErrNotStarted   = errors.New("encoder not started")
	ErrFinalized    = errors.New("encoder already finalized")
	// ErrBusy is returned by Begin while a previous job is still accepting frames.
	ErrBusy         = errors.New("encoder busy")
)

const (
	DefaultWorkers = 4
	DefaultQuality = 10
	// ditherQuality is the highest quality value that still dithers.
	ditherQuality = 5
	maxQuality    = 30
)

// Options configures one encoding job.
type Options struct {
	Width, Height int
	// Background fills pixels the frames leave transparent.
	Background color.RGBA
	// Workers is the number of parallel encode units.
	Workers int
	// Quality is the palette sampling stride, 1 (best) to 30 (fastest).
	Quality int
	// LoopCount follows image/gif: 0 loops forever.
	LoopCount int
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Quality <= 0 {
		o.Quality = DefaultQuality
	}
	if o.Quality > maxQuality {
		o.Quality = maxQuality
	}
	return o
}

// Event is emitted exactly once per job.
type Event struct {
	Blob   []byte
	Frames int
	Err    error
}

// Failed reports whether the job produced no blob.
func (e Event) Failed() bool { return e.Err != nil }

// Encoder consumes frames in order and asynchronously produces one blob.
type Encoder interface {
	Begin(opts Options) error
	// AppendFrame copies pixels; the caller may reuse the buffer immediately.
	AppendFrame(pixels *image.RGBA, delayMs int) error
	// Finalize refuses further frames, waits for outstanding work and
	// emits the result once expected frames have been appended.
	Finalize(expected int) <-chan Event
	// Abort discards appended frames and emits reason as the failure.
	Abort(reason error) <-chan Event
}

type state int

const (
	idle state = iota
	running
	closed
)

type frameSlot struct {
	raw     *image.RGBA
	delayMs int
	out     *image.Paletted
}

// GIFEncoder implements Encoder with image/gif.
type GIFEncoder struct {
	log zerolog.Logger

	mu     sync.Mutex
	state  state
	opts   Options
	slots  []*frameSlot
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	start  time.Time
}

// NewGIFEncoder returns an idle encoder; call Begin before appending frames.
func NewGIFEncoder(log zerolog.Logger) *GIFEncoder {
	return &GIFEncoder{log: log.With().Str("component", "encoder").Logger()}
}

// Begin starts a job. It fails with ErrBusy until the previous job is
// finalized or aborted.
func (e *GIFEncoder) Begin(opts Options) error {
	opts = opts.withDefaults()
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", opts.Width, opts.Height)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == running {
		return ErrBusy
	}

	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.group, e.ctx = errgroup.WithContext(e.ctx)
	e.group.SetLimit(opts.Workers)
	e.opts = opts
	e.slots = nil
	e.events = make(chan Event, 1)
	e.state = running
	e.start = time.Now()

	e.log.Debug().
		Int("width", opts.Width).Int("height", opts.Height).
		Int("workers", opts.Workers).Int("quality", opts.Quality).
		Msg("encoder started")
	return nil
}

// AppendFrame copies pixels and queues the frame on the worker pool.
func (e *GIFEncoder) AppendFrame(pixels *image.RGBA, delayMs int) error {
	if pixels == nil {
		return fmt.Errorf("%w: nil frame", ErrEncodeFailed)
	}
	if delayMs <= 0 {
		return fmt.Errorf("%w: frame delay must be positive, got %d", ErrEncodeFailed, delayMs)
	}

	// Held across Go so Finalize cannot Wait before the unit is queued.
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case idle:
		return ErrNotStarted
	case closed:
		return ErrFinalized
	}

	rect := image.Rect(0, 0, e.opts.Width, e.opts.Height)
	raw := system.GetImage(rect)
	clear(raw.Pix)
	draw.Draw(raw, rect, pixels, pixels.Rect.Min, draw.Src)

	slot := &frameSlot{raw: raw, delayMs: delayMs}
	var prev *frameSlot
	if n := len(e.slots); n > 0 {
		prev = e.slots[n-1]
	}
	e.slots = append(e.slots, slot)
	index := len(e.slots) - 1
	ctx, opts := e.ctx, e.opts

	// Blocks while all workers are busy.
	e.group.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := encodeFrame(slot, prev, opts)
		if err != nil {
			return fmt.Errorf("frame %d: %w", index, err)
		}
		slot.out = out
		return nil
	})
	return nil
}

// Finalize closes the job and assembles the GIF once every unit is done.
func (e *GIFEncoder) Finalize(expected int) <-chan Event {
	e.mu.Lock()
	if e.state != running {
		err := ErrNotStarted
		if e.state == closed {
			err = ErrFinalized
		}
		e.mu.Unlock()
		return failed(err)
	}
	e.state = closed
	g, slots, opts, events := e.group, e.slots, e.opts, e.events
	cancel, start := e.cancel, e.start
	e.mu.Unlock()

	go func() {
		defer cancel()
		ev := assemble(g, slots, opts, expected)
		if ev.Failed() {
			e.log.Error().Err(ev.Err).Msg("encode failed")
		} else {
			e.log.Info().
				Int("frames", ev.Frames).
				Int("bytes", len(ev.Blob)).
				Dur("took", time.Since(start)).
				Msg("encode complete")
		}
		events <- ev
		close(events)
	}()
	return events
}

// Abort stops the workers and discards appended frames.
func (e *GIFEncoder) Abort(reason error) <-chan Event {
	if reason == nil {
		reason = errors.New("aborted")
	}

	e.mu.Lock()
	if e.state != running {
		e.mu.Unlock()
		return failed(ErrFinalized)
	}
	e.state = closed
	g, slots, events, cancel := e.group, e.slots, e.events, e.cancel
	e.mu.Unlock()

	cancel()
	go func() {
		_ = g.Wait()
		release(slots)
		e.log.Warn().Err(reason).Int("discarded", len(slots)).Msg("encode aborted")
		events <- Event{Err: reason}
		close(events)
	}()
	return events
}

func assemble(g *errgroup.Group, slots []*frameSlot, opts Options, expected int) Event {
	defer release(slots)

	if err := g.Wait(); err != nil {
		return Event{Err: fmt.Errorf("%w: %w", ErrEncodeFailed, err)}
	}
	if len(slots) != expected {
		return Event{Err: fmt.Errorf("%w: expected %d frames, got %d", ErrEncodeFailed, expected, len(slots))}
	}
	if len(slots) == 0 {
		return Event{Err: fmt.Errorf("%w: no frames", ErrEncodeFailed)}
	}

	disposal := byte(gif.DisposalNone)
	if opts.Background.A != 0xff {
		disposal = gif.DisposalBackground
	}

	anim := &gif.GIF{
		Image:     make([]*image.Paletted, len(slots)),
		Delay:     make([]int, len(slots)),
		Disposal:  make([]byte, len(slots)),
		LoopCount: opts.LoopCount,
		Config:    image.Config{Width: opts.Width, Height: opts.Height},
	}
	for i, s := range slots {
		anim.Image[i] = s.out
		anim.Delay[i] = centiseconds(s.delayMs)
		anim.Disposal[i] = disposal
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return Event{Err: fmt.Errorf("%w: %w", ErrEncodeFailed, err)}
	}
	return Event{Blob: buf.Bytes(), Frames: len(slots)}
}

// encodeFrame flattens the frame onto the background, builds its palette
// and, when not dithering, marks pixels unchanged since prev transparent.
func encodeFrame(cur, prev *frameSlot, opts Options) (*image.Paletted, error) {
	rect := cur.raw.Rect
	flat := system.GetImage(rect)
	defer system.PutImage(flat)

	draw.Draw(flat, rect, image.NewUniform(opts.Background), image.Point{}, draw.Src)
	draw.Draw(flat, rect, cur.raw, rect.Min, draw.Over)

	dither := opts.Quality <= ditherQuality
	pal := buildPalette(flat, opts.Quality)
	out := image.NewPaletted(rect, pal)

	if dither {
		draw.FloydSteinberg.Draw(out, rect, flat, rect.Min)
		return out, nil
	}

	m := newMapper(pal)
	diff := prev != nil && opts.Background.A == 0xff
	for y := 0; y < rect.Dy(); y++ {
		row := y * flat.Stride
		for x := 0; x < rect.Dx(); x++ {
			i := row + x*4
			if diff && samePixel(cur.raw.Pix, prev.raw.Pix, i) {
				out.Pix[y*out.Stride+x] = m.transparentIndex()
				continue
			}
			out.Pix[y*out.Stride+x] = m.index(flat.Pix[i], flat.Pix[i+1], flat.Pix[i+2], flat.Pix[i+3])
		}
	}
	return out, nil
}

func samePixel(a, b []byte, i int) bool {
	return a[i] == b[i] && a[i+1] == b[i+1] && a[i+2] == b[i+2] && a[i+3] == b[i+3]
}

func centiseconds(ms int) int {
	return max(1, int(math.Round(float64(ms)/10)))
}

func release(slots []*frameSlot) {
	for _, s := range slots {
		system.PutImage(s.raw)
		s.raw = nil
	}
}

func failed(err error) <-chan Event {
	ch := make(chan Event, 1)
	ch <- Event{Err: err}
	close(ch)
	return ch
}
