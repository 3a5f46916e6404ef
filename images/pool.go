package images

import "sync"

// Pool lets callers reuse scratch buffers across frames to reduce GC pressure
// at video rates. A nil *Pool is valid and simply allocates.
type Pool[T Sample] struct {
	buffers sync.Pool // *Buffer[T]
}

// NewPool creates an empty pool.
func NewPool[T Sample]() *Pool[T] {
	return &Pool[T]{}
}

// Get returns a tightly packed buffer of the requested geometry. Its contents
// are undefined; callers must overwrite every sample.
func (p *Pool[T]) Get(width, height, channels int) (*Buffer[T], error) {
	if p != nil {
		if v := p.buffers.Get(); v != nil {
			b := v.(*Buffer[T])
			if b.Width == width && b.Height == height && b.Channels == channels {
				return b, nil
			}
		}
	}
	return NewBuffer[T](width, height, channels)
}

// Put returns a buffer to the pool. It is skipped for nil pools or buffers.
func (p *Pool[T]) Put(b *Buffer[T]) {
	if p == nil || b == nil {
		return
	}
	// The next writer fully overwrites the buffer, so it is not cleared.
	p.buffers.Put(b)
}
