package stream

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLRowScanner scans the current row into T.
type SQLRowScanner[T any] func(rows *sql.Rows) (T, error)

// SQLFetcher streams rows through scanner and closes rows when done.
func SQLFetcher[T any](rows *sql.Rows, scanner SQLRowScanner[T]) DataFetcher[T] {
	return func(ctx context.Context) (<-chan T, <-chan error) {
		dataChan := make(chan T, 10)
		errChan := make(chan error, 1)

		go func() {
			defer close(errChan)
			defer close(dataChan)
			defer rows.Close()

			for rows.Next() {
				item, err := scanner(rows)
				if err != nil {
					errChan <- fmt.Errorf("failed to scan row: %w", err)
					return
				}

				select {
				case dataChan <- item:
				case <-ctx.Done():
					return
				}
			}

			if err := rows.Err(); err != nil {
				errChan <- fmt.Errorf("error iterating rows: %w", err)
			}
		}()

		return dataChan, errChan
	}
}

// SliceFetcher streams items already in memory.
func SliceFetcher[T any](items []T) DataFetcher[T] {
	return func(ctx context.Context) (<-chan T, <-chan error) {
		dataChan := make(chan T, len(items))
		errChan := make(chan error)

		for _, item := range items {
			dataChan <- item
		}
		close(dataChan)
		close(errChan)

		return dataChan, errChan
	}
}
