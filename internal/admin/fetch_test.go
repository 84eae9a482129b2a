package admin

import (
	"context"
	"testing"

	"github.com/nicepick/backend/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFetcher(t *testing.T) {
	cn := func(ctx context.Context, r region.Region, p FetchParams) (FetchResult[UserRow], error) {
		return FetchResult[UserRow]{Total: 1}, nil
	}
	intl := func(ctx context.Context, r region.Region, p FetchParams) (FetchResult[UserRow], error) {
		return FetchResult[UserRow]{Total: 2}, nil
	}

	t.Run("dispatches by region", func(t *testing.T) {
		fetch := SplitFetcher(cn, intl)

		res, err := fetch(context.Background(), region.CN, FetchParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.Total)

		res, err = fetch(context.Background(), region.INTL, FetchParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Total)
	})

	t.Run("nil side errors", func(t *testing.T) {
		fetch := SplitFetcher[UserRow](nil, intl)

		_, err := fetch(context.Background(), region.CN, FetchParams{})
		assert.ErrorContains(t, err, "no direct fetcher")

		_, err = fetch(context.Background(), region.INTL, FetchParams{})
		assert.NoError(t, err)
	})

	t.Run("unknown region errors", func(t *testing.T) {
		fetch := SplitFetcher(cn, intl)
		_, err := fetch(context.Background(), region.Region("eu"), FetchParams{})
		assert.ErrorContains(t, err, "unknown region")
	})
}

func TestFetchChunked(t *testing.T) {
	t.Run("collects across chunks", func(t *testing.T) {
		var calls [][2]int
		rows, err := FetchChunked(context.Background(), 3, 0, 7, func(offset, count int) ([]int, error) {
			calls = append(calls, [2]int{offset, count})
			out := make([]int, count)
			for i := range out {
				out[i] = offset + i
			}
			return out, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, rows)
		assert.Equal(t, [][2]int{{0, 3}, {3, 3}, {6, 1}}, calls)
	})

	t.Run("stops early when backend exhausted", func(t *testing.T) {
		rows, err := FetchChunked(context.Background(), 5, 0, 100, func(offset, count int) ([]int, error) {
			if offset >= 8 {
				return nil, nil
			}
			n := count
			if offset+n > 8 {
				n = 8 - offset
			}
			out := make([]int, n)
			return out, nil
		})
		require.NoError(t, err)
		assert.Len(t, rows, 8)
	})

	t.Run("honors skip offset", func(t *testing.T) {
		var firstOffset int
		_, err := FetchChunked(context.Background(), 10, 40, 10, func(offset, count int) ([]int, error) {
			firstOffset = offset
			return make([]int, count), nil
		})
		require.NoError(t, err)
		assert.Equal(t, 40, firstOffset)
	})

	t.Run("respects cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := FetchChunked(ctx, 5, 0, 10, func(offset, count int) ([]int, error) {
			return make([]int, count), nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
