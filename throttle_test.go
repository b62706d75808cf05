package tablemap_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tm "github.com/cloudxsgmbh/tablemap-go"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestThrottle_ChunkSizes(t *testing.T) {
	cases := []struct {
		n, size int
		want    []int
	}{
		{120, tm.LocalChunkSize, []int{50, 50, 20}},
		{25, tm.RemoteChunkSize, []int{10, 10, 5}},
		{50, tm.LocalChunkSize, []int{50}},
		{1, tm.RemoteChunkSize, []int{1}},
		{0, tm.RemoteChunkSize, nil},
	}
	for _, c := range cases {
		var sizes []int
		out, err := tm.Throttle(bg(), seq(c.n), c.size, func(_ context.Context, chunk []int) ([]int, error) {
			sizes = append(sizes, len(chunk))
			return chunk, nil
		})
		require.NoError(t, err)
		assert.Equal(t, c.want, sizes, "n=%d size=%d", c.n, c.size)
		// results concatenate in input order
		assert.Equal(t, c.n, len(out))
		for i, v := range out {
			assert.Equal(t, i, v)
		}
	}
}

func TestThrottle_Sequential(t *testing.T) {
	var (
		mu          sync.Mutex
		inFlight    int
		maxInFlight int
		calls       int
	)
	_, err := tm.Throttle(bg(), seq(35), 10, func(_ context.Context, chunk []int) ([]struct{}, error) {
		mu.Lock()
		inFlight++
		calls++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		// hold the chunk open so an overlapping dispatch would be observed
		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 1, maxInFlight)
}

func TestThrottle_ErrorAbortsRemaining(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	out, err := tm.Throttle(bg(), seq(30), 10, func(_ context.Context, chunk []int) ([]int, error) {
		calls++
		if calls == 2 {
			return nil, boom
		}
		return chunk, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
	// the first chunk stays applied
	assert.Len(t, out, 10)
}

func TestThrottle_InvalidSize(t *testing.T) {
	_, err := tm.Throttle(bg(), seq(3), 0, func(_ context.Context, chunk []int) ([]int, error) {
		t.Fatal("must not be called")
		return nil, nil
	})
	assert.True(t, tm.IsCode(err, tm.ErrArgument))
}

func TestThrottle_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(bg(), key{}, "v")
	_, err := tm.Throttle(ctx, seq(2), 1, func(ctx context.Context, _ []int) ([]int, error) {
		assert.Equal(t, "v", ctx.Value(key{}))
		return nil, nil
	})
	require.NoError(t, err)
}

func TestEnvelopes(t *testing.T) {
	env := tm.Envelopes(seq(23), 10)
	require.Len(t, env, 3)
	assert.Len(t, env[0], 10)
	assert.Len(t, env[1], 10)
	assert.Len(t, env[2], 3)
	assert.Equal(t, 20, env[2][0])

	assert.Empty(t, tm.Envelopes(seq(0), 10))
	assert.Nil(t, tm.Envelopes(seq(5), 0))
}
