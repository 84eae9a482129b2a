package admin

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nicepick/backend/internal/domain/shared"
	"github.com/nicepick/backend/internal/infrastructure/telemetry"
	"github.com/nicepick/backend/internal/region"
	"go.uber.org/zap"
)

// MaxPrefixWindow is the hard ceiling on the merged prefix fetched from
// each region when scope is "all". Serving page N costs O(N*pageSize)
// rows from both backends; beyond this the request is rejected instead
// of silently truncated.
const MaxPrefixWindow = 5000

// ListRequest is one listing request after HTTP parsing.
type ListRequest struct {
	Regions  []region.Region
	Page     int
	PageSize int
	Query    string
	Filters  map[string]string

	// IsProxyHop marks a request that arrived with a valid internal
	// proxy header pair. Such a request must never proxy onward.
	IsProxyHop bool
	// SessionToken is forwarded on outgoing hops for downstream
	// authorization.
	SessionToken string
}

// regionResult is one region's resolved contribution
type regionResult[T any] struct {
	rows   []T
	total  int64
	status SourceStatus
}

// Reconciler resolves each requested region (direct, proxy or missing),
// merges the contributions and slices the requested page. One instance
// per entity type; all state is request-scoped.
type Reconciler[T Timestamped] struct {
	resource string
	fetch    Fetcher[T]
	proxy    *ProxyClient
	logger   *zap.Logger
	metrics  *telemetry.AdminMetrics
}

// ReconcilerOption is a functional option for Reconciler
type ReconcilerOption[T Timestamped] func(*Reconciler[T])

// WithLogger sets a custom logger for the reconciler
func WithLogger[T Timestamped](logger *zap.Logger) ReconcilerOption[T] {
	return func(r *Reconciler[T]) {
		r.logger = logger
	}
}

// WithMetrics wires resolution counters
func WithMetrics[T Timestamped](m *telemetry.AdminMetrics) ReconcilerOption[T] {
	return func(r *Reconciler[T]) {
		r.metrics = m
	}
}

// NewReconciler creates a reconciler for one resource. fetch is the
// combined direct fetcher (see SplitFetcher); proxy may be shared
// across resources.
func NewReconciler[T Timestamped](resource string, fetch Fetcher[T], proxy *ProxyClient, opts ...ReconcilerOption[T]) *Reconciler[T] {
	r := &Reconciler[T]{
		resource: resource,
		fetch:    fetch,
		proxy:    proxy,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List serves one listing request against an availability snapshot.
// The returned Page is always populated, including on the
// pagination-too-deep rejection, so callers can serialize it directly.
func (r *Reconciler[T]) List(ctx context.Context, cfg region.Config, req ListRequest) (Page[T], error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 20
	}

	if len(req.Regions) == 1 {
		return r.listSingle(ctx, cfg, req), nil
	}
	return r.listMerged(ctx, cfg, req)
}

// listSingle serves a single-region scope using the region's native
// offset/limit; its total is authoritative.
func (r *Reconciler[T]) listSingle(ctx context.Context, cfg region.Config, req ListRequest) Page[T] {
	reg := req.Regions[0]
	res := r.resolveRegion(ctx, cfg, reg, FetchParams{
		Skip:    (req.Page - 1) * req.PageSize,
		Limit:   req.PageSize,
		Query:   req.Query,
		Filters: req.Filters,
	}, req)

	rows := res.rows
	if len(rows) > req.PageSize {
		rows = rows[:req.PageSize]
	}
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{
		Items:      rows,
		Pagination: NewPagination(req.Page, req.PageSize, res.total),
		Sources:    []SourceStatus{res.status},
	}
}

// listMerged serves scope "all": both regions are resolved
// concurrently for the full prefix window, then merge-sorted by
// creation time descending and sliced.
func (r *Reconciler[T]) listMerged(ctx context.Context, cfg region.Config, req ListRequest) (Page[T], error) {
	need := req.Page * req.PageSize
	if need > MaxPrefixWindow {
		msg := fmt.Sprintf("pagination too deep: merged prefix %d exceeds ceiling %d", need, MaxPrefixWindow)
		statuses := make([]SourceStatus, 0, len(req.Regions))
		for _, reg := range req.Regions {
			statuses = append(statuses, SourceStatus{Region: reg, OK: false, Mode: ModeMissing, Message: msg})
		}
		return Page[T]{
			Items:      []T{},
			Pagination: NewPagination(req.Page, req.PageSize, 0),
			Sources:    statuses,
		}, shared.ErrPaginationTooDeep
	}

	if r.metrics != nil {
		r.metrics.RecordMergeWindow(ctx, r.resource, need)
	}

	params := FetchParams{
		Skip:    0,
		Limit:   need,
		Query:   req.Query,
		Filters: req.Filters,
	}

	// Both regions always resolve concurrently; a slow region is
	// bounded only by its own backend timeout.
	results := make([]regionResult[T], len(req.Regions))
	var wg sync.WaitGroup
	for i, reg := range req.Regions {
		wg.Add(1)
		go func(i int, reg region.Region) {
			defer wg.Done()
			results[i] = r.resolveRegion(ctx, cfg, reg, params, req)
		}(i, reg)
	}
	wg.Wait()

	var merged []T
	var total int64
	statuses := make([]SourceStatus, 0, len(results))
	for _, res := range results {
		merged = append(merged, res.rows...)
		total += res.total
		statuses = append(statuses, res.status)
	}

	// Stable sort keeps the region fetch order as the tie-break, which
	// makes repeated identical requests byte-identical.
	sort.SliceStable(merged, func(i, j int) bool {
		ti, tj := merged[i].SortTime(), merged[j].SortTime()
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.After(*tj)
	})

	start := (req.Page - 1) * req.PageSize
	end := req.Page * req.PageSize
	var items []T
	if start < len(merged) {
		if end > len(merged) {
			end = len(merged)
		}
		items = merged[start:end]
	}
	if items == nil {
		items = []T{}
	}

	return Page[T]{
		Items:      items,
		Pagination: NewPagination(req.Page, req.PageSize, total),
		Sources:    statuses,
	}, nil
}

// resolveRegion runs the per-region state machine: direct when
// credentials exist, falling back to a single proxy hop, otherwise
// proxy-only, otherwise missing with enumerated reasons. Exactly one
// terminal state per region per request; failures never escape as
// errors, only as statuses.
func (r *Reconciler[T]) resolveRegion(ctx context.Context, cfg region.Config, reg region.Region, p FetchParams, req ListRequest) regionResult[T] {
	avail := cfg.For(reg)

	if avail.DirectCredentials {
		res, err := r.fetch(ctx, reg, p)
		if err == nil {
			return r.finish(regionResult[T]{
				rows:   res.Rows,
				total:  res.Total,
				status: SourceStatus{Region: reg, OK: true, Mode: ModeDirect, Message: res.Note},
			})
		}
		r.logger.Warn("direct fetch failed",
			zap.String("resource", r.resource),
			zap.String("region", string(reg)),
			zap.Error(err),
		)
		if avail.Proxyable() && !req.IsProxyHop {
			return r.finish(r.resolveProxy(ctx, avail, reg, p, req))
		}
		if req.IsProxyHop {
			// A hop that cannot serve directly must report missing
			// rather than attempt a second hop.
			return r.finish(regionResult[T]{
				status: SourceStatus{
					Region:  reg,
					OK:      false,
					Mode:    ModeMissing,
					Message: "direct fetch failed: " + err.Error() + "; is internal proxy hop",
				},
			})
		}
		return r.finish(regionResult[T]{
			status: SourceStatus{Region: reg, OK: false, Mode: ModeDirect, Message: err.Error()},
		})
	}

	if avail.Proxyable() && !req.IsProxyHop {
		return r.finish(r.resolveProxy(ctx, avail, reg, p, req))
	}

	// Neither direct nor proxy: a normal enumerated status, not an
	// error path.
	reasons := []string{"no direct credentials"}
	if req.IsProxyHop {
		reasons = append(reasons, "is internal proxy hop")
	} else {
		reasons = append(reasons, avail.MissingProxyReasons()...)
	}
	return r.finish(regionResult[T]{
		status: SourceStatus{
			Region:  reg,
			OK:      false,
			Mode:    ModeMissing,
			Message: strings.Join(reasons, "; "),
		},
	})
}

func (r *Reconciler[T]) resolveProxy(ctx context.Context, avail region.Availability, reg region.Region, p FetchParams, req ListRequest) regionResult[T] {
	res, err := FetchViaProxy[T](ctx, r.proxy, avail, r.resource, reg, p, req.SessionToken)
	if err != nil {
		r.logger.Warn("proxy fetch failed",
			zap.String("resource", r.resource),
			zap.String("region", string(reg)),
			zap.Error(err),
		)
		return regionResult[T]{
			status: SourceStatus{Region: reg, OK: false, Mode: ModeProxy, Message: err.Error()},
		}
	}
	return regionResult[T]{
		rows:   res.Rows,
		total:  res.Total,
		status: SourceStatus{Region: reg, OK: true, Mode: ModeProxy, Message: res.Note},
	}
}

func (r *Reconciler[T]) finish(res regionResult[T]) regionResult[T] {
	if r.metrics != nil {
		r.metrics.RecordResolution(context.Background(), r.resource, string(res.status.Region), string(res.status.Mode), res.status.OK)
	}
	return res
}
