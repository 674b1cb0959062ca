package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool recycles *image.RGBA buffers keyed by their rectangle so that
// drawing surfaces and encoder frame copies do not churn the GC.
type ImagePool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex
	live  atomic.Int64
}

var globalPool = NewImagePool()

// NewImagePool returns an empty pool.
func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Rectangle]*sync.Pool)}
}

// GetImage returns a buffer for rect from the shared pool. Its pixels are not
// cleared.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalPool.Get(rect)
}

// PutImage hands a buffer back to the shared pool.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

// LiveImages is the number of shared-pool buffers handed out and not yet returned.
func LiveImages() int64 {
	return globalPool.Live()
}

func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	p.mu.RLock()
	pool, exists := p.pools[rect]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[rect]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					return image.NewRGBA(rect)
				},
			}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}

	p.live.Add(1)
	return pool.Get().(*image.RGBA)
}

func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[img.Rect]
	p.mu.RUnlock()

	if exists {
		p.live.Add(-1)
		pool.Put(img)
	}
}

// Live is the number of buffers handed out and not yet returned.
func (p *ImagePool) Live() int64 {
	return p.live.Load()
}
