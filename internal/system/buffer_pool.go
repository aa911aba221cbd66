package system

import (
	"image"
	"sync"
	"sync/atomic"
)

// ImagePool переиспользует *image.RGBA одинакового размера между кадрами:
// слои варпа выделяются на каждый билборд каждый тик.
type ImagePool struct {
	mu    sync.RWMutex
	sizes map[image.Rectangle]*sync.Pool

	gets   atomic.Int64
	allocs atomic.Int64
}

func NewImagePool() *ImagePool {
	return &ImagePool{sizes: make(map[image.Rectangle]*sync.Pool)}
}

var globalPool = NewImagePool()

// GetImage возвращает прозрачный *image.RGBA с границами rect.
func GetImage(rect image.Rectangle) *image.RGBA { return globalPool.Get(rect) }

// PutImage возвращает изображение в общий пул.
func PutImage(img *image.RGBA) { globalPool.Put(img) }

// PoolStats - сколько слоёв выдал общий пул и сколько из них были новыми.
func PoolStats() (gets, allocs int64) { return globalPool.Stats() }

func (p *ImagePool) pool(rect image.Rectangle) *sync.Pool {
	p.mu.RLock()
	sp, ok := p.sizes[rect]
	p.mu.RUnlock()
	if ok {
		return sp
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if sp, ok = p.sizes[rect]; !ok {
		sp = &sync.Pool{New: func() any {
			p.allocs.Add(1)
			return image.NewRGBA(rect)
		}}
		p.sizes[rect] = sp
	}
	return sp
}

func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	p.gets.Add(1)
	img := p.pool(rect).Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

// Put принимает только размеры, которые пул уже выдавал.
func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	p.mu.RLock()
	sp, ok := p.sizes[img.Rect]
	p.mu.RUnlock()
	if ok {
		sp.Put(img)
	}
}

func (p *ImagePool) Stats() (gets, allocs int64) {
	return p.gets.Load(), p.allocs.Load()
}
