package admin

import (
	"context"
	"fmt"

	"github.com/nicepick/backend/internal/region"
)

// FetchParams is the window a fetcher must produce for one region.
// Skip/Limit are row offsets into the region's own ordering (creation
// time descending); filters are entity-specific equality filters.
type FetchParams struct {
	Skip    int
	Limit   int
	Query   string
	Filters map[string]string
}

// FetchResult is one region's contribution to a listing.
type FetchResult[T any] struct {
	Rows  []T
	Total int64
	// Note carries a degradation notice a successful fetch wants
	// surfaced to the caller, e.g. a truncated bounded-scan search.
	Note string
}

// Fetcher produces one page of normalized rows for a single region.
// Implementations wrap the region's native SDK and must never let a
// raw backend error escape unwrapped.
type Fetcher[T any] func(ctx context.Context, r region.Region, p FetchParams) (FetchResult[T], error)

// SplitFetcher dispatches to a per-region fetcher. A nil entry means
// the region has no direct backend wired; resolution then falls back
// to proxy or missing.
func SplitFetcher[T any](cn, intl Fetcher[T]) Fetcher[T] {
	return func(ctx context.Context, r region.Region, p FetchParams) (FetchResult[T], error) {
		switch r {
		case region.CN:
			if cn == nil {
				return FetchResult[T]{}, fmt.Errorf("no direct fetcher for region %s", r)
			}
			return cn(ctx, r, p)
		case region.INTL:
			if intl == nil {
				return FetchResult[T]{}, fmt.Errorf("no direct fetcher for region %s", r)
			}
			return intl(ctx, r, p)
		default:
			return FetchResult[T]{}, fmt.Errorf("unknown region %s", r)
		}
	}
}

// FetchChunked collects [skip, skip+limit) by paging the backend in
// bounded chunks, stopping early when the backend returns short.
func FetchChunked[T any](ctx context.Context, chunkSize, skip, limit int, fetch func(offset, count int) ([]T, error)) ([]T, error) {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	rows := make([]T, 0, limit)
	offset := skip
	for len(rows) < limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		count := chunkSize
		if remaining := limit - len(rows); remaining < count {
			count = remaining
		}
		chunk, err := fetch(offset, count)
		if err != nil {
			return nil, err
		}
		rows = append(rows, chunk...)
		if len(chunk) < count {
			break // backend exhausted
		}
		offset += len(chunk)
	}
	return rows, nil
}
