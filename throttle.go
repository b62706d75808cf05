/*
Package tablemap – batch throttling.

Bulk operations are cut into fixed-size chunks and applied one chunk at a
time. Sequential dispatch is what keeps every call inside the per-call
limit of the storage service.
*/
package tablemap

import "context"

const (
	// LocalChunkSize is the per-call record limit of the local storage
	// collaborator.
	LocalChunkSize = 50
	// RemoteChunkSize is the per-call record limit of the remote API.
	RemoteChunkSize = 10
)

// ChunkFunc applies one chunk and may return results to accumulate.
type ChunkFunc[T, R any] func(ctx context.Context, chunk []T) ([]R, error)

// Throttle applies op to consecutive chunks of at most size items, in order,
// never concurrently, and concatenates the results. The first failing chunk
// aborts the remaining ones; chunks already applied are not rolled back.
func Throttle[T, R any](ctx context.Context, items []T, size int, op ChunkFunc[T, R]) ([]R, error) {
	if size <= 0 {
		return nil, NewError("Chunk size must be positive", WithCode(ErrArgument))
	}
	var results []R
	for remaining := items; len(remaining) > 0; {
		n := min(size, len(remaining))
		r, err := op(ctx, remaining[:n])
		if err != nil {
			return results, err
		}
		results = append(results, r...)
		remaining = remaining[n:]
	}
	return results, nil
}

// Envelopes groups items into consecutive envelopes of at most size items.
func Envelopes[T any](items []T, size int) [][]T {
	if size <= 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		out = append(out, items[i:min(i+size, len(items))])
	}
	return out
}
