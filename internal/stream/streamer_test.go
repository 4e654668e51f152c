package stream

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	json "github.com/json-iterator/go"

	"pawnshop/middleware"
)

func collect(t *testing.T, resp middleware.StreamResponse) ([]byte, error) {
	t.Helper()
	var all []byte
	var streamErr error
	for chunk := range resp.ChunkChan {
		if chunk.Error != nil {
			streamErr = chunk.Error
			continue
		}
		all = append(all, *chunk.JSONBuf...)
		resp.Release(chunk.JSONBuf)
	}
	return all, streamErr
}

func TestStreamer_Stream(t *testing.T) {
	ctx := context.Background()

	t.Run("streams items as one array across chunks", func(t *testing.T) {
		config := DefaultChunkConfig()
		config.ChunkThreshold = 20 // force several chunks
		streamer := NewStreamer[int](config)

		items := make([]int, 50)
		for i := range items {
			items[i] = i + 1
		}

		chunks := 0
		resp := streamer.Stream(ctx, SliceFetcher(items), func(item int) (any, error) {
			return map[string]int{"value": item}, nil
		})
		if resp.Code != 200 || resp.Error != nil || resp.TotalCount != -1 {
			t.Fatalf("Unexpected response %+v", resp)
		}

		var all []byte
		for chunk := range resp.ChunkChan {
			if chunk.Error != nil {
				t.Fatalf("Chunk error: %v", chunk.Error)
			}
			chunks++
			all = append(all, *chunk.JSONBuf...)
			resp.Release(chunk.JSONBuf)
		}

		var result []map[string]int
		if err := json.Unmarshal(all, &result); err != nil {
			t.Fatalf("Failed to parse JSON: %v\nData: %s", err, all)
		}
		if len(result) != 50 || result[49]["value"] != 50 {
			t.Errorf("Expected 50 ordered items, got %d", len(result))
		}
		if chunks < 2 {
			t.Errorf("Expected several chunks, got %d", chunks)
		}
	})

	t.Run("empty input is an empty array", func(t *testing.T) {
		resp := NewDefaultStreamer[int]().Stream(ctx, SliceFetcher[int](nil), func(i int) (any, error) { return i, nil })
		data, err := collect(t, resp)
		if err != nil || string(data) != "[]" {
			t.Errorf("Expected [], got %q (%v)", data, err)
		}
	})

	t.Run("transformer error stops the stream", func(t *testing.T) {
		resp := NewDefaultStreamer[int]().Stream(ctx, SliceFetcher([]int{1, 2, 3}), func(i int) (any, error) {
			if i == 2 {
				return nil, errors.New("bad item")
			}
			return i, nil
		})
		_, err := collect(t, resp)
		if err == nil || !strings.Contains(err.Error(), "transformer error") {
			t.Errorf("Expected transformer error, got %v", err)
		}
	})

	t.Run("fetcher error surfaces", func(t *testing.T) {
		fetcher := func(ctx context.Context) (<-chan int, <-chan error) {
			data := make(chan int)
			errs := make(chan error, 1)
			errs <- errors.New("connection lost")
			close(errs)
			close(data)
			return data, errs
		}
		_, err := collect(t, NewDefaultStreamer[int]().Stream(ctx, fetcher, func(i int) (any, error) { return i, nil }))
		if err == nil || !strings.Contains(err.Error(), "connection lost") {
			t.Errorf("Expected fetcher error, got %v", err)
		}
	})

	t.Run("canceled context closes the channel", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		block := func(ctx context.Context) (<-chan int, <-chan error) {
			return make(chan int), make(chan error)
		}
		resp := NewDefaultStreamer[int]().Stream(cctx, block, func(i int) (any, error) { return i, nil })
		for range resp.ChunkChan {
		}
	})
}

func TestChunkConfigDefaults(t *testing.T) {
	s := NewStreamer[int](ChunkConfig{})
	got := s.GetConfig()
	if got != DefaultChunkConfig() {
		t.Errorf("Expected defaults, got %+v", got)
	}

	custom := NewStreamer[int](ChunkConfig{ChunkThreshold: 10}).GetConfig()
	if custom.ChunkThreshold != 10 || custom.BufferSize != DefaultChunkConfig().BufferSize {
		t.Errorf("Expected only threshold overridden, got %+v", custom)
	}
}

func TestBufferPool(t *testing.T) {
	pool := NewBufferPool(16)
	buf := pool.Get()
	if len(*buf) != 0 || cap(*buf) < 16 {
		t.Errorf("Expected empty buffer with capacity, got len %d cap %d", len(*buf), cap(*buf))
	}
	*buf = append(*buf, "dirty"...)
	pool.Put(buf)
	pool.Put(nil)

	if again := pool.Get(); len(*again) != 0 {
		t.Error("Expected reused buffer reset to zero length")
	}
}

type row struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func scanRow(rows *sql.Rows) (row, error) {
	var r row
	err := rows.Scan(&r.ID, &r.Status)
	return r, err
}

func TestSQLFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("streams rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("Failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery("SELECT id, status FROM tickets").WillReturnRows(
			sqlmock.NewRows([]string{"id", "status"}).
				AddRow("t1", "ACTIVE").
				AddRow("t2", "REDEEMED"),
		)

		rows, err := db.Query("SELECT id, status FROM tickets")
		if err != nil {
			t.Fatal(err)
		}

		resp := NewDefaultStreamer[row]().Stream(ctx, SQLFetcher(rows, scanRow), func(r row) (any, error) { return r, nil })
		data, err := collect(t, resp)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if string(data) != `[{"id":"t1","status":"ACTIVE"},{"id":"t2","status":"REDEEMED"}]` {
			t.Errorf("Unexpected body %s", data)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("row error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("Failed to create mock: %v", err)
		}
		defer db.Close()

		mock.ExpectQuery("SELECT").WillReturnRows(
			sqlmock.NewRows([]string{"id", "status"}).
				AddRow("t1", "ACTIVE").
				RowError(0, errors.New("disk on fire")),
		)

		rows, _ := db.Query("SELECT id, status FROM tickets")
		_, err = collect(t, NewDefaultStreamer[row]().Stream(ctx, SQLFetcher(rows, scanRow), func(r row) (any, error) { return r, nil }))
		if err == nil || !strings.Contains(err.Error(), "disk on fire") {
			t.Errorf("Expected row error, got %v", err)
		}
	})
}
