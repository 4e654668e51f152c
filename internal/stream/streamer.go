package stream

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/json-iterator/go"

	"pawnshop/middleware"
)

type streamer[T any] struct {
	config     ChunkConfig
	bufferPool BufferPool
}

func NewStreamer[T any](config ChunkConfig) Streamer[T] {
	config.applyDefaults()
	return &streamer[T]{
		config:     config,
		bufferPool: NewBufferPool(config.BufferSize),
	}
}

func NewDefaultStreamer[T any]() Streamer[T] {
	return NewStreamer[T](DefaultChunkConfig())
}

func (s *streamer[T]) GetConfig() ChunkConfig {
	return s.config
}

// Stream runs the fetcher in the background. The chunks it emits concatenate
// to a JSON array; every chunk buffer must be handed back via Release.
func (s *streamer[T]) Stream(
	ctx context.Context,
	fetcher DataFetcher[T],
	transformer Transformer[T],
) middleware.StreamResponse {
	chunkChan := make(chan middleware.StreamChunk, s.config.ChannelBuffer)

	go func() {
		defer close(chunkChan)

		jsonBuf := s.bufferPool.Get()
		defer func() { s.bufferPool.Put(jsonBuf) }()

		emit := func(chunk middleware.StreamChunk) bool {
			select {
			case chunkChan <- chunk:
				return true
			case <-ctx.Done():
				s.bufferPool.Put(chunk.JSONBuf)
				return false
			}
		}
		fail := func(err error) {
			emit(middleware.StreamChunk{Error: err})
		}

		*jsonBuf = append(*jsonBuf, '[')
		dataChan, errChan := fetcher(ctx)
		first := true

		for {
			select {
			case <-ctx.Done():
				return

			case err, ok := <-errChan:
				if !ok {
					errChan = nil
					continue
				}
				if err != nil {
					fail(fmt.Errorf("fetcher error: %w", err))
					return
				}

			case item, ok := <-dataChan:
				if !ok {
					// a late error still wins over a clean close
					if errChan != nil {
						if err := <-errChan; err != nil {
							fail(fmt.Errorf("fetcher error: %w", err))
							return
						}
					}
					*jsonBuf = append(*jsonBuf, ']')
					buf := jsonBuf
					jsonBuf = nil
					emit(middleware.StreamChunk{JSONBuf: buf})
					return
				}

				transformed, err := transformer(item)
				if err != nil {
					fail(fmt.Errorf("transformer error: %w", err))
					return
				}
				data, err := json.Marshal(transformed)
				if err != nil {
					fail(fmt.Errorf("JSON marshal error: %w", err))
					return
				}

				if !first {
					*jsonBuf = append(*jsonBuf, ',')
				}
				first = false
				*jsonBuf = append(*jsonBuf, data...)

				if len(*jsonBuf) > s.config.ChunkThreshold {
					buf := jsonBuf
					jsonBuf = s.bufferPool.Get()
					if !emit(middleware.StreamChunk{JSONBuf: buf}) {
						return
					}
				}
			}
		}
	}()

	return middleware.StreamResponse{
		TotalCount: -1,
		ChunkChan:  chunkChan,
		Release:    s.bufferPool.Put,
		Code:       http.StatusOK,
	}
}
