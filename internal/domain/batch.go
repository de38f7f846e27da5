package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidBatchSize = errors.New("batch size must be positive")

// Batch is a group of links downloaded together before the next group starts.
type Batch []DownloadLink

// Partition splits links into consecutive batches of at most size elements.
// Concatenating the batches in order gives back links.
func Partition(links []DownloadLink, size int) ([]Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, size)
	}

	batches := make([]Batch, 0, (len(links)+size-1)/size)
	for start := 0; start < len(links); start += size {
		end := min(start+size, len(links))
		batches = append(batches, Batch(links[start:end:end]))
	}

	return batches, nil
}
