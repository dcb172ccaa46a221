// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package bench

import (
	"errors"
	"fmt"
)

var ErrInvalidWorkers = errors.New("worker count must be at least 1")

// Chunk is the half-open index range [Start, End) of a batch
type Chunk struct {
	Start int
	End   int
}

func (c Chunk) Len() int {
	return c.End - c.Start
}

// Partition splits [0, n) into exactly workers contiguous chunks of n/workers
// items each. The last chunk absorbs the remainder, so with n < workers all
// items land in the last chunk and the others are empty.
func Partition(n, workers int) ([]Chunk, error) {
	if workers < 1 {
		return nil, ErrInvalidWorkers
	}
	if n < 0 {
		return nil, fmt.Errorf("negative item count %d", n)
	}
	size := n / workers
	chunks := make([]Chunk, workers)
	for i := range chunks {
		chunks[i] = Chunk{Start: i * size, End: (i + 1) * size}
	}
	chunks[workers-1].End = n
	return chunks, nil
}
