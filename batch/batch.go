// Package batch partitions inputs into bounded, ordered groups.
package batch

import "fmt"

// Split partitions items into consecutive batches of at most size elements.
// Every element appears in exactly one batch, in the original order.
// Batches share the backing array of items.
func Split[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	if len(items) == 0 {
		return nil, nil
	}

	count := (len(items) + size - 1) / size
	batches := make([][]T, 0, count)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end:end])
	}
	return batches, nil
}
