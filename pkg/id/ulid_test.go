package id

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewULID(t *testing.T) {
	t.Parallel()

	t.Run("format", func(t *testing.T) {
		t.Parallel()

		u := NewULID()
		require.Len(t, u, ULIDLen)
		require.True(t, IsULID(u), u)
	})

	t.Run("encodes timestamp", func(t *testing.T) {
		t.Parallel()

		at := time.UnixMilli(1_700_000_000_123)
		got, ok := ULIDTime(newULID(at))
		require.True(t, ok)
		require.True(t, at.Equal(got))
	})

	t.Run("sortable across milliseconds", func(t *testing.T) {
		t.Parallel()

		base := time.UnixMilli(1_700_000_000_000)
		prev := newULID(base)
		for i := 1; i < 50; i++ {
			next := newULID(base.Add(time.Duration(i) * time.Millisecond))
			require.Greater(t, next, prev)
			prev = next
		}
	})

	t.Run("concurrent unique", func(t *testing.T) {
		t.Parallel()

		var (
			mu   sync.Mutex
			seen = make(map[string]struct{})
			wg   sync.WaitGroup
		)
		for range 20 {
			wg.Go(func() {
				for range 100 {
					u := NewULID()
					mu.Lock()
					seen[u] = struct{}{}
					mu.Unlock()
				}
			})
		}
		wg.Wait()
		require.Len(t, seen, 2000)
	})
}

func TestIsULID(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"01ARZ3NDEKTSV4RRFFQ69G5FAV":  true,
		"01arz3ndektsv4rrffq69g5fav":  false,
		"01ARZ3NDEKTSV4RRFFQ69G5FA":   false,
		"01ARZ3NDEKTSV4RRFFQ69G5FAVX": false,
		"01ARZ3NDEKTSV4RRFFQ69G5FAI":  false,
		"81ARZ3NDEKTSV4RRFFQ69G5FAV":  false,
		"":                            false,
	}
	for in, want := range tests {
		require.Equal(t, want, IsULID(in), in)
	}
}
