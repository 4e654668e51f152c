// Package stream encodes a sequence of items as one JSON array, handing it to
// middleware.sendStream in pooled chunks so large exports never sit in memory
// whole.
//
//	streamer := stream.NewDefaultStreamer[common.Ticket]()
//	resp := streamer.Stream(ctx, stream.SQLFetcher(rows, scan), toExportRow)
//	sendStream(resp)
package stream

import (
	"context"

	"pawnshop/middleware"
)

// DataFetcher produces items on the first channel and at most one error on
// the second. It must close both when done and stop when ctx is canceled.
type DataFetcher[T any] func(ctx context.Context) (<-chan T, <-chan error)

// Transformer maps an item to its JSON-encodable export form.
type Transformer[T any] func(item T) (any, error)

type Streamer[T any] interface {
	// Stream stops at the first fetcher or transformer error.
	Stream(ctx context.Context, fetcher DataFetcher[T], transformer Transformer[T]) middleware.StreamResponse
	GetConfig() ChunkConfig
}

// ChunkConfig tunes chunking. Zero fields take the defaults.
type ChunkConfig struct {
	// ChunkThreshold is the buffered size in bytes that triggers a flush.
	ChunkThreshold int
	// BufferSize is the initial capacity of pooled buffers.
	BufferSize int
	// ChannelBuffer is the capacity of the chunk channel.
	ChannelBuffer int
}

func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkThreshold: 32 * 1024,
		BufferSize:     48 * 1024,
		ChannelBuffer:  4,
	}
}

func (c *ChunkConfig) applyDefaults() {
	d := DefaultChunkConfig()
	if c.ChunkThreshold <= 0 {
		c.ChunkThreshold = d.ChunkThreshold
	}
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	if c.ChannelBuffer <= 0 {
		c.ChannelBuffer = d.ChannelBuffer
	}
}

// BufferPool hands out byte buffers reset to zero length.
type BufferPool interface {
	Get() *[]byte
	// Put accepts nil.
	Put(buf *[]byte)
}
