package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nicepick/backend/internal/region"
	"go.uber.org/zap"
)

// Internal proxy hop headers. A request carrying a valid pair is an
// internal hop: it is authorized without a session and must never be
// proxied onward.
const (
	HeaderProxyHop    = "X-Admin-Proxy-Hop"
	HeaderProxySecret = "X-Admin-Proxy-Secret"
	ProxyHopValue     = "1"
)

// proxyBodyLimit caps how much of a sibling response body is read,
// both for parsing and for error reporting.
const proxyBodyLimit = 10 << 20 // 10MB

// ProxyError is returned when a sibling deployment answers with a
// non-2xx status or a body that does not parse as a Page.
type ProxyError struct {
	Status int
	Body   string
}

func (e *ProxyError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("sibling responded %d: %s", e.Status, truncate(e.Body, 200))
	}
	return fmt.Sprintf("sibling returned malformed body: %s", truncate(e.Body, 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ProxyClient performs authenticated listing calls against a sibling
// deployment's equivalent admin endpoint.
type ProxyClient struct {
	httpClient *http.Client
	cookieName string
	logger     *zap.Logger
}

// ProxyClientOption is a functional option for ProxyClient
type ProxyClientOption func(*ProxyClient)

// WithProxyLogger sets a custom logger for the proxy client
func WithProxyLogger(logger *zap.Logger) ProxyClientOption {
	return func(c *ProxyClient) {
		c.logger = logger
	}
}

// WithProxyHTTPClient overrides the underlying HTTP client (testing)
func WithProxyHTTPClient(hc *http.Client) ProxyClientOption {
	return func(c *ProxyClient) {
		c.httpClient = hc
	}
}

// NewProxyClient creates a proxy client. The timeout bounds the whole
// sibling round trip; there is no retry.
func NewProxyClient(timeout time.Duration, cookieName string, opts ...ProxyClientOption) *ProxyClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if cookieName == "" {
		cookieName = "nicepick_session"
	}
	c := &ProxyClient{
		httpClient: &http.Client{Timeout: timeout},
		cookieName: cookieName,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchViaProxy asks the sibling deployment for a single-region window
// of resource rows. The sibling's own listing endpoint does the direct
// fetch on its side; its response Page is decoded and reduced to a
// FetchResult.
func FetchViaProxy[T any](ctx context.Context, c *ProxyClient, avail region.Availability, resource string, reg region.Region, p FetchParams, sessionToken string) (FetchResult[T], error) {
	page, pageSize, trim := translateWindow(p.Skip, p.Limit)

	q := url.Values{}
	q.Set("source", string(reg))
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	for k, v := range p.Filters {
		if v != "" {
			q.Set(k, v)
		}
	}

	endpoint := fmt.Sprintf("%s/api/admin/%s?%s", avail.ProxyOrigin, resource, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return FetchResult[T]{}, fmt.Errorf("build proxy request: %w", err)
	}
	req.Header.Set(HeaderProxyHop, ProxyHopValue)
	req.Header.Set(HeaderProxySecret, avail.ProxySecret)
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: sessionToken})
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FetchResult[T]{}, fmt.Errorf("proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, proxyBodyLimit))
	if err != nil {
		return FetchResult[T]{}, fmt.Errorf("read proxy response: %w", err)
	}

	c.logger.Debug("proxy fetch",
		zap.String("resource", resource),
		zap.String("region", string(reg)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FetchResult[T]{}, &ProxyError{Status: resp.StatusCode, Body: string(body)}
	}

	var result Page[T]
	if err := json.Unmarshal(body, &result); err != nil {
		return FetchResult[T]{}, &ProxyError{Body: string(body)}
	}

	// The sibling reports its own source health. A 200 whose status for
	// the target region is failed means the hop reached a deployment
	// that also could not serve the data.
	for _, st := range result.Sources {
		if st.Region == reg && !st.OK {
			return FetchResult[T]{}, fmt.Errorf("sibling reported %s/%s: %s", st.Region, st.Mode, st.Message)
		}
	}

	rows := result.Items
	if trim > 0 {
		if trim >= len(rows) {
			rows = nil
		} else {
			rows = rows[trim:]
		}
	}

	return FetchResult[T]{Rows: rows, Total: result.Pagination.Total}, nil
}

// translateWindow maps a skip/limit window onto the sibling's
// page/pageSize parameters. Windows that do not fall on a page boundary
// are over-fetched from offset zero and trimmed locally.
func translateWindow(skip, limit int) (page, pageSize, trim int) {
	if limit <= 0 {
		return 1, 1, 0
	}
	if skip%limit == 0 {
		return skip/limit + 1, limit, 0
	}
	return 1, skip + limit, skip
}
