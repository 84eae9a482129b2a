package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nicepick/backend/internal/domain/shared"
	"github.com/nicepick/backend/internal/region"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bothDirect() region.Config {
	return region.Config{
		CN:   region.Availability{DirectCredentials: true},
		INTL: region.Availability{DirectCredentials: true},
	}
}

func userAt(id string, r region.Region, ts *time.Time) UserRow {
	return UserRow{ID: id, Region: r, CreatedAt: ts}
}

// staticFetcher serves fixed per-region rows and counts invocations
func staticFetcher(cn, intl []UserRow) (Fetcher[UserRow], *atomic.Int32) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, r region.Region, p FetchParams) (FetchResult[UserRow], error) {
		calls.Add(1)
		rows := cn
		if r == region.INTL {
			rows = intl
		}
		total := int64(len(rows))
		if p.Skip >= len(rows) {
			return FetchResult[UserRow]{Total: total}, nil
		}
		end := p.Skip + p.Limit
		if end > len(rows) {
			end = len(rows)
		}
		return FetchResult[UserRow]{Rows: rows[p.Skip:end], Total: total}, nil
	}
	return fetch, &calls
}

func TestListMergedSortsAndSums(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	t3 := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)

	fetch, _ := staticFetcher(
		[]UserRow{userAt("cn-new", region.CN, &t3), userAt("cn-old", region.CN, &t1)},
		[]UserRow{userAt("intl-mid", region.INTL, &t2), userAt("intl-nil", region.INTL, nil)},
	)
	r := NewReconciler("users", fetch, nil)

	page, err := r.List(context.Background(), bothDirect(), ListRequest{
		Regions: region.All(), Page: 1, PageSize: 10,
	})
	require.NoError(t, err)

	ids := make([]string, len(page.Items))
	for i, row := range page.Items {
		ids[i] = row.ID
	}
	assert.Equal(t, []string{"cn-new", "intl-mid", "cn-old", "intl-nil"}, ids)
	assert.Equal(t, int64(4), page.Pagination.Total)

	require.Len(t, page.Sources, 2)
	for _, st := range page.Sources {
		assert.True(t, st.OK)
		assert.Equal(t, ModeDirect, st.Mode)
	}
}

func TestListMergedIsDeterministic(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	// Identical timestamps across regions: CN rows must consistently
	// precede INTL rows because regions resolve in canonical order.
	fetch, _ := staticFetcher(
		[]UserRow{userAt("cn-a", region.CN, &ts), userAt("cn-b", region.CN, &ts)},
		[]UserRow{userAt("intl-a", region.INTL, &ts)},
	)
	r := NewReconciler("users", fetch, nil)

	var prev []string
	for i := 0; i < 3; i++ {
		page, err := r.List(context.Background(), bothDirect(), ListRequest{
			Regions: region.All(), Page: 1, PageSize: 10,
		})
		require.NoError(t, err)
		ids := make([]string, len(page.Items))
		for j, row := range page.Items {
			ids[j] = row.ID
		}
		assert.Equal(t, []string{"cn-a", "cn-b", "intl-a"}, ids)
		if prev != nil {
			assert.Equal(t, prev, ids)
		}
		prev = ids
	}
}

func TestListMergedPageWindow(t *testing.T) {
	var rows []UserRow
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		ts := base.Add(-time.Duration(i) * time.Hour)
		rows = append(rows, userAt(fmt.Sprintf("cn-%02d", i), region.CN, &ts))
	}
	fetch, _ := staticFetcher(rows, nil)
	r := NewReconciler("users", fetch, nil)

	page, err := r.List(context.Background(), bothDirect(), ListRequest{
		Regions: region.All(), Page: 2, PageSize: 10,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 10)
	assert.Equal(t, "cn-10", page.Items[0].ID)
	assert.Equal(t, "cn-19", page.Items[9].ID)
	assert.Equal(t, int64(30), page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)
}

func TestListMergedTooDeepRejectedBeforeFetch(t *testing.T) {
	fetch, calls := staticFetcher(nil, nil)
	r := NewReconciler("users", fetch, nil)

	page, err := r.List(context.Background(), bothDirect(), ListRequest{
		Regions: region.All(), Page: 251, PageSize: 20, // need 5020 > 5000
	})
	require.ErrorIs(t, err, shared.ErrPaginationTooDeep)
	assert.Equal(t, int32(0), calls.Load(), "no region may be fetched on rejection")

	assert.Empty(t, page.Items)
	require.Len(t, page.Sources, 2)
	for _, st := range page.Sources {
		assert.False(t, st.OK)
		assert.Equal(t, ModeMissing, st.Mode)
		assert.Contains(t, st.Message, "pagination too deep")
	}
}

func TestListMergedCeilingBoundary(t *testing.T) {
	fetch, calls := staticFetcher(nil, nil)
	r := NewReconciler("users", fetch, nil)

	// need == MaxPrefixWindow exactly is still allowed
	_, err := r.List(context.Background(), bothDirect(), ListRequest{
		Regions: region.All(), Page: 250, PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListSingleUsesNativeWindow(t *testing.T) {
	var gotParams FetchParams
	fetch := func(ctx context.Context, r region.Region, p FetchParams) (FetchResult[UserRow], error) {
		gotParams = p
		return FetchResult[UserRow]{Rows: []UserRow{{ID: "x", Region: r}}, Total: 500}, nil
	}
	r := NewReconciler("users", fetch, nil)

	page, err := r.List(context.Background(), bothDirect(), ListRequest{
		Regions: []region.Region{region.INTL}, Page: 7, PageSize: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, 150, gotParams.Skip)
	assert.Equal(t, 25, gotParams.Limit)
	assert.Equal(t, int64(500), page.Pagination.Total)
	require.Len(t, page.Sources, 1)
	assert.Equal(t, region.INTL, page.Sources[0].Region)
}

func TestListSingleDeepPageAllowed(t *testing.T) {
	// The prefetch ceiling only applies to merged scope; a single
	// region pages natively however deep the caller wants.
	fetch, calls := staticFetcher(nil, nil)
	r := NewReconciler("users", fetch, nil)

	_, err := r.List(context.Background(), bothDirect(), ListRequest{
		Regions: []region.Region{region.CN}, Page: 1000, PageSize: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPartialFailureIsStillOK(t *testing.T) {
	ts := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	fetch := func(ctx context.Context, r region.Region, p FetchParams) (FetchResult[UserRow], error) {
		if r == region.CN {
			return FetchResult[UserRow]{}, errors.New("connection refused")
		}
		return FetchResult[UserRow]{Rows: []UserRow{userAt("intl-1", region.INTL, &ts)}, Total: 1}, nil
	}
	r := NewReconciler("users", fetch, nil)

	page, err := r.List(context.Background(), bothDirect(), ListRequest{
		Regions: region.All(), Page: 1, PageSize: 10,
	})
	require.NoError(t, err, "one failed region must not fail the request")
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Pagination.Total)

	byRegion := map[region.Region]SourceStatus{}
	for _, st := range page.Sources {
		byRegion[st.Region] = st
	}
	assert.False(t, byRegion[region.CN].OK)
	assert.Equal(t, ModeDirect, byRegion[region.CN].Mode)
	assert.Contains(t, byRegion[region.CN].Message, "connection refused")
	assert.True(t, byRegion[region.INTL].OK)
}

func TestDegradationNoteSurfaced(t *testing.T) {
	fetch := func(ctx context.Context, r region.Region, p FetchParams) (FetchResult[UserRow], error) {
		if r == region.CN {
			return FetchResult[UserRow]{Note: "search degraded: scan capped"}, nil
		}
		return FetchResult[UserRow]{}, nil
	}
	r := NewReconciler("users", fetch, nil)

	page, err := r.List(context.Background(), bothDirect(), ListRequest{
		Regions: region.All(), Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	for _, st := range page.Sources {
		if st.Region == region.CN {
			assert.True(t, st.OK)
			assert.Contains(t, st.Message, "search degraded")
		}
	}
}

func TestMissingRegionEnumeratesReasons(t *testing.T) {
	fetch, _ := staticFetcher(nil, []UserRow{})
	r := NewReconciler("users", fetch, nil)

	cfg := region.Config{
		CN:   region.Availability{}, // no creds, no proxy
		INTL: region.Availability{DirectCredentials: true},
	}
	page, err := r.List(context.Background(), cfg, ListRequest{
		Regions: region.All(), Page: 1, PageSize: 10,
	})
	require.NoError(t, err)

	for _, st := range page.Sources {
		if st.Region == region.CN {
			assert.False(t, st.OK)
			assert.Equal(t, ModeMissing, st.Mode)
			assert.Contains(t, st.Message, "no direct credentials")
			assert.Contains(t, st.Message, "missing origin")
		}
	}
}

func TestProxyFallbackOnDirectFailure(t *testing.T) {
	ts := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	var siblingCalls atomic.Int32
	sibling := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		siblingCalls.Add(1)
		assert.Equal(t, ProxyHopValue, req.Header.Get(HeaderProxyHop))
		assert.Equal(t, "s3cret", req.Header.Get(HeaderProxySecret))
		page := Page[UserRow]{
			Items:      []UserRow{userAt("cn-via-proxy", region.CN, &ts)},
			Pagination: NewPagination(1, 10, 7),
			Sources:    []SourceStatus{{Region: region.CN, OK: true, Mode: ModeDirect}},
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer sibling.Close()

	fetch := func(ctx context.Context, r region.Region, p FetchParams) (FetchResult[UserRow], error) {
		return FetchResult[UserRow]{}, errors.New("backend down")
	}
	r := NewReconciler("users", fetch, NewProxyClient(time.Second, ""))

	cfg := region.Config{
		CN: region.Availability{DirectCredentials: true, ProxyOrigin: sibling.URL, ProxySecret: "s3cret"},
	}
	page, err := r.List(context.Background(), cfg, ListRequest{
		Regions: []region.Region{region.CN}, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), siblingCalls.Load())
	require.Len(t, page.Items, 1)
	assert.Equal(t, "cn-via-proxy", page.Items[0].ID)
	assert.Equal(t, int64(7), page.Pagination.Total)
	require.Len(t, page.Sources, 1)
	assert.True(t, page.Sources[0].OK)
	assert.Equal(t, ModeProxy, page.Sources[0].Mode)
}

func TestProxyOnlyRegion(t *testing.T) {
	ts := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	sibling := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		page := Page[UserRow]{
			Items:      []UserRow{userAt("remote", region.INTL, &ts)},
			Pagination: NewPagination(1, 10, 1),
			Sources:    []SourceStatus{{Region: region.INTL, OK: true, Mode: ModeDirect}},
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer sibling.Close()

	fetch, calls := staticFetcher(nil, nil)
	r := NewReconciler("users", fetch, NewProxyClient(time.Second, ""))

	cfg := region.Config{
		INTL: region.Availability{ProxyOrigin: sibling.URL, ProxySecret: "s3cret"},
	}
	page, err := r.List(context.Background(), cfg, ListRequest{
		Regions: []region.Region{region.INTL}, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(0), calls.Load(), "no direct fetch without credentials")
	assert.Equal(t, ModeProxy, page.Sources[0].Mode)
	assert.True(t, page.Sources[0].OK)
}

func TestProxyFailureReported(t *testing.T) {
	sibling := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer sibling.Close()

	fetch, _ := staticFetcher(nil, nil)
	r := NewReconciler("users", fetch, NewProxyClient(time.Second, ""))

	cfg := region.Config{
		CN: region.Availability{ProxyOrigin: sibling.URL, ProxySecret: "s3cret"},
	}
	page, err := r.List(context.Background(), cfg, ListRequest{
		Regions: []region.Region{region.CN}, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.False(t, page.Sources[0].OK)
	assert.Equal(t, ModeProxy, page.Sources[0].Mode)
	assert.Contains(t, page.Sources[0].Message, "sibling responded 500")
}

func TestProxyHopNeverProxiesOnward(t *testing.T) {
	var siblingCalls atomic.Int32
	sibling := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		siblingCalls.Add(1)
	}))
	defer sibling.Close()

	t.Run("hop with failing direct reports missing", func(t *testing.T) {
		fetch := func(ctx context.Context, r region.Region, p FetchParams) (FetchResult[UserRow], error) {
			return FetchResult[UserRow]{}, errors.New("backend down")
		}
		r := NewReconciler("users", fetch, NewProxyClient(time.Second, ""))

		cfg := region.Config{
			CN: region.Availability{DirectCredentials: true, ProxyOrigin: sibling.URL, ProxySecret: "s3cret"},
		}
		page, err := r.List(context.Background(), cfg, ListRequest{
			Regions: []region.Region{region.CN}, Page: 1, PageSize: 10, IsProxyHop: true,
		})
		require.NoError(t, err)
		assert.Equal(t, int32(0), siblingCalls.Load(), "a hop must never fan out again")
		assert.Equal(t, ModeMissing, page.Sources[0].Mode)
		assert.Contains(t, page.Sources[0].Message, "is internal proxy hop")
	})

	t.Run("hop without credentials reports missing", func(t *testing.T) {
		fetch, _ := staticFetcher(nil, nil)
		r := NewReconciler("users", fetch, NewProxyClient(time.Second, ""))

		cfg := region.Config{
			CN: region.Availability{ProxyOrigin: sibling.URL, ProxySecret: "s3cret"},
		}
		page, err := r.List(context.Background(), cfg, ListRequest{
			Regions: []region.Region{region.CN}, Page: 1, PageSize: 10, IsProxyHop: true,
		})
		require.NoError(t, err)
		assert.Equal(t, int32(0), siblingCalls.Load())
		assert.Equal(t, ModeMissing, page.Sources[0].Mode)
		assert.Contains(t, page.Sources[0].Message, "is internal proxy hop")
	})
}

func TestListDefaultsPageAndPageSize(t *testing.T) {
	fetch, _ := staticFetcher(nil, nil)
	r := NewReconciler("users", fetch, nil)

	page, err := r.List(context.Background(), bothDirect(), ListRequest{
		Regions: region.All(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 20, page.Pagination.PageSize)
	assert.NotNil(t, page.Items)
}
