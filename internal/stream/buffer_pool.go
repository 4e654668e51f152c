package stream

import "sync"

type bufferPool struct {
	pool *sync.Pool
}

// NewBufferPool creates a BufferPool whose buffers start at initialSize bytes
func NewBufferPool(initialSize int) BufferPool {
	if initialSize <= 0 {
		initialSize = DefaultChunkConfig().BufferSize
	}

	return &bufferPool{
		pool: &sync.Pool{
			New: func() any {
				buf := make([]byte, 0, initialSize)
				return &buf
			},
		},
	}
}

func (p *bufferPool) Get() *[]byte {
	buf := p.pool.Get().(*[]byte)
	*buf = (*buf)[:0]
	return buf
}

func (p *bufferPool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	p.pool.Put(buf)
}
