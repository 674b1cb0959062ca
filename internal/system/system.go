package system

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// NewLogger builds the process logger: JSON on stderr, or a console writer
// with debug level when debug is set.
func NewLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(os.Stderr).
		Level(level).
		With().
		Timestamp().
		Logger()

	if debug {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger
}

// DefaultWorkers suggests an encoder pool size: physical cores, capped so a
// small export does not fan out across a large host.
func DefaultWorkers(ceiling int) int {
	n, err := cpu.Counts(false)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	if ceiling > 0 && n > ceiling {
		n = ceiling
	}
	if n < 1 {
		n = 1
	}
	return n
}

// FrameBudget estimates the bytes an export holds in memory (every frame is
// retained as RGBA until the encoder finalizes) and compares it with the
// memory currently available.
type FrameBudget struct {
	Required  uint64
	Available uint64
}

// Fits reports whether the export uses at most half of available memory.
// An unknown Available (0) always fits.
func (b FrameBudget) Fits() bool {
	return b.Available == 0 || b.Required <= b.Available/2
}

func (b FrameBudget) String() string {
	return fmt.Sprintf("%.1f MiB of %.1f MiB available", mib(b.Required), mib(b.Available))
}

// EstimateFrameBudget sizes frames x width x height RGBA buffers against
// host memory.
func EstimateFrameBudget(frames, width, height int) FrameBudget {
	b := FrameBudget{Required: uint64(frames) * uint64(width) * uint64(height) * 4}
	if vm, err := mem.VirtualMemory(); err == nil {
		b.Available = vm.Available
	}
	return b
}

func mib(n uint64) float64 {
	return float64(n) / (1 << 20)
}
