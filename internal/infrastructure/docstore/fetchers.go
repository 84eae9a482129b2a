package docstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/region"
	"github.com/shopspring/decimal"
)

// Collection names in the CN deployment
const (
	CollectionUsers       = "users"
	CollectionOrders      = "orders"
	CollectionPayments    = "payments"
	CollectionReleases    = "releases"
	CollectionDeviceStats = "device_stats"
)

// UserFetcher returns the CN direct fetcher for users
func UserFetcher(c *Client) admin.Fetcher[admin.UserRow] {
	return fetcher(c, CollectionUsers, decodeUser, matchUser)
}

// OrderFetcher returns the CN direct fetcher for orders
func OrderFetcher(c *Client) admin.Fetcher[admin.OrderRow] {
	return fetcher(c, CollectionOrders, decodeOrder, matchOrder)
}

// PaymentFetcher returns the CN direct fetcher for payments
func PaymentFetcher(c *Client) admin.Fetcher[admin.PaymentRow] {
	return fetcher(c, CollectionPayments, decodePayment, matchPayment)
}

// ReleaseFetcher returns the CN direct fetcher for releases
func ReleaseFetcher(c *Client) admin.Fetcher[admin.ReleaseRow] {
	return fetcher(c, CollectionReleases, decodeRelease, matchRelease)
}

// DeviceStatFetcher returns the CN direct fetcher for device stats
func DeviceStatFetcher(c *Client) admin.Fetcher[admin.DeviceStatRow] {
	return fetcher(c, CollectionDeviceStats, decodeDeviceStat, matchDeviceStat)
}

// fetcher builds an admin.Fetcher over one collection. Plain listings
// walk the creation-time index in bounded chunks; any free-text query
// or filter falls back to the bounded scan, because the document
// backend has no server-side search.
func fetcher[T any](c *Client, collection string, decode func(doc) (T, bool), match func(T, admin.FetchParams) bool) admin.Fetcher[T] {
	return func(ctx context.Context, r region.Region, p admin.FetchParams) (admin.FetchResult[T], error) {
		col := c.Collection(collection)

		if p.Query == "" && len(nonEmpty(p.Filters)) == 0 {
			return listIndexed(ctx, col, p, decode)
		}
		return scanFiltered(ctx, col, p, decode, match)
	}
}

func listIndexed[T any](ctx context.Context, col Collection, p admin.FetchParams, decode func(doc) (T, bool)) (admin.FetchResult[T], error) {
	total, err := col.Count(ctx)
	if err != nil {
		return admin.FetchResult[T]{}, err
	}

	rows, err := admin.FetchChunked(ctx, listChunkSize, p.Skip, p.Limit, func(offset, count int) ([]T, error) {
		docs, err := col.List(ctx, offset, count)
		if err != nil {
			return nil, err
		}
		out := make([]T, 0, len(docs))
		for _, d := range docs {
			if row, ok := decode(d); ok {
				out = append(out, row)
			}
		}
		return out, nil
	})
	if err != nil {
		return admin.FetchResult[T]{}, err
	}
	return admin.FetchResult[T]{Rows: rows, Total: total}, nil
}

// scanFiltered is the degraded search path: the newest ScanCap
// documents are pulled and filtered client-side. Results beyond the cap
// are invisible; the Note says so instead of hiding it.
func scanFiltered[T any](ctx context.Context, col Collection, p admin.FetchParams, decode func(doc) (T, bool), match func(T, admin.FetchParams) bool) (admin.FetchResult[T], error) {
	docs, err := col.Scan(ctx, ScanCap)
	if err != nil {
		return admin.FetchResult[T]{}, err
	}

	matched := make([]T, 0, 64)
	for _, d := range docs {
		row, ok := decode(d)
		if !ok {
			continue
		}
		if match(row, p) {
			matched = append(matched, row)
		}
	}

	note := ""
	if len(docs) >= ScanCap {
		note = fmt.Sprintf("search degraded: only the newest %d documents were scanned; results may be incomplete", ScanCap)
	}

	total := int64(len(matched))
	start := p.Skip
	if start > len(matched) {
		start = len(matched)
	}
	end := start + p.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return admin.FetchResult[T]{Rows: matched[start:end], Total: total, Note: note}, nil
}

func nonEmpty(filters map[string]string) map[string]string {
	out := make(map[string]string, len(filters))
	for k, v := range filters {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// doc is a decoded JSON document
type doc = map[string]any

// Legacy CN writers used several names for the same fields; the decode
// helpers try them in preference order.

func docStr(d doc, keys ...string) string {
	for _, k := range keys {
		if v, ok := d[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func docInt(d doc, keys ...string) int64 {
	for _, k := range keys {
		switch v := d[k].(type) {
		case float64:
			return int64(v)
		case int64:
			return v
		}
	}
	return 0
}

func docBool(d doc, keys ...string) bool {
	for _, k := range keys {
		if v, ok := d[k].(bool); ok {
			return v
		}
	}
	return false
}

func docTime(d doc, keys ...string) *time.Time {
	for _, k := range keys {
		if v, ok := d[k]; ok {
			if t := admin.ParseFlexibleTime(v); t != nil {
				return t
			}
		}
	}
	return nil
}

func docAmount(d doc, keys ...string) decimal.Decimal {
	for _, k := range keys {
		switch v := d[k].(type) {
		case float64:
			return decimal.NewFromFloat(v)
		case string:
			if amt, err := decimal.NewFromString(v); err == nil {
				return amt
			}
		}
	}
	return decimal.Zero
}

func createdAtKeys() []string {
	return []string{"createdAt", "created_at", "createTime", "create_time"}
}

func decodeUser(d doc) (admin.UserRow, bool) {
	id := docStr(d, "_id", "id", "uid")
	if id == "" {
		return admin.UserRow{}, false
	}
	return admin.UserRow{
		ID:        id,
		Region:    region.CN,
		CreatedAt: docTime(d, createdAtKeys()...),
		Email:     docStr(d, "email"),
		Nickname:  docStr(d, "nickname", "nickName"),
		Tier:      docStr(d, "tier", "memberTier"),
		Status:    docStr(d, "status"),
	}, true
}

func decodeOrder(d doc) (admin.OrderRow, bool) {
	id := docStr(d, "_id", "id", "orderId")
	if id == "" {
		return admin.OrderRow{}, false
	}
	return admin.OrderRow{
		ID:        id,
		Region:    region.CN,
		CreatedAt: docTime(d, createdAtKeys()...),
		UserID:    docStr(d, "userId", "user_id", "uid"),
		Channel:   docStr(d, "channel"),
		Status:    docStr(d, "status"),
		Amount:    docAmount(d, "amount", "totalFee", "total_fee"),
		Currency:  docStr(d, "currency"),
	}, true
}

func decodePayment(d doc) (admin.PaymentRow, bool) {
	id := docStr(d, "_id", "id", "paymentId")
	if id == "" {
		return admin.PaymentRow{}, false
	}
	return admin.PaymentRow{
		ID:        id,
		Region:    region.CN,
		CreatedAt: docTime(d, createdAtKeys()...),
		OrderID:   docStr(d, "orderId", "order_id"),
		Method:    docStr(d, "method", "payMethod"),
		Status:    docStr(d, "status"),
		Amount:    docAmount(d, "amount", "totalFee", "total_fee"),
		Currency:  docStr(d, "currency"),
	}, true
}

func decodeRelease(d doc) (admin.ReleaseRow, bool) {
	id := docStr(d, "_id", "id")
	if id == "" {
		return admin.ReleaseRow{}, false
	}
	return admin.ReleaseRow{
		ID:        id,
		Region:    region.CN,
		CreatedAt: docTime(d, createdAtKeys()...),
		Version:   docStr(d, "version"),
		Platform:  docStr(d, "platform"),
		Channel:   docStr(d, "channel"),
		Active:    docBool(d, "active", "isActive"),
		FileKey:   docStr(d, "fileKey", "file_key", "fileId"),
		Notes:     docStr(d, "notes", "releaseNotes"),
	}, true
}

func decodeDeviceStat(d doc) (admin.DeviceStatRow, bool) {
	id := docStr(d, "_id", "id")
	if id == "" {
		return admin.DeviceStatRow{}, false
	}
	return admin.DeviceStatRow{
		ID:         id,
		Region:     region.CN,
		CreatedAt:  docTime(d, createdAtKeys()...),
		Platform:   docStr(d, "platform"),
		OSVersion:  docStr(d, "osVersion", "os_version"),
		AppVersion: docStr(d, "appVersion", "app_version"),
		EventType:  docStr(d, "eventType", "event_type", "event"),
		Count:      docInt(d, "count", "total"),
	}, true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// matchCreatedRange applies the optional from/to creation-time window.
// A row without a parseable timestamp cannot satisfy a bounded window.
func matchCreatedRange(created *time.Time, p admin.FetchParams) bool {
	from := admin.ParseFlexibleTime(p.Filters["from"])
	to := admin.ParseFlexibleTime(p.Filters["to"])
	if from == nil && to == nil {
		return true
	}
	if created == nil {
		return false
	}
	if from != nil && created.Before(*from) {
		return false
	}
	if to != nil && created.After(*to) {
		return false
	}
	return true
}

func matchUser(row admin.UserRow, p admin.FetchParams) bool {
	if !matchCreatedRange(row.CreatedAt, p) {
		return false
	}
	if p.Query != "" && !containsFold(row.Email, p.Query) && !containsFold(row.Nickname, p.Query) {
		return false
	}
	if tier := p.Filters["tier"]; tier != "" && row.Tier != tier {
		return false
	}
	if status := p.Filters["status"]; status != "" && row.Status != status {
		return false
	}
	return true
}

func matchOrder(row admin.OrderRow, p admin.FetchParams) bool {
	if !matchCreatedRange(row.CreatedAt, p) {
		return false
	}
	if p.Query != "" && !containsFold(row.UserID, p.Query) && !containsFold(row.ID, p.Query) {
		return false
	}
	if channel := p.Filters["channel"]; channel != "" && row.Channel != channel {
		return false
	}
	return admin.StatusMatches(row.Status, p.Filters["status"])
}

func matchPayment(row admin.PaymentRow, p admin.FetchParams) bool {
	if !matchCreatedRange(row.CreatedAt, p) {
		return false
	}
	if p.Query != "" && !containsFold(row.OrderID, p.Query) && !containsFold(row.ID, p.Query) {
		return false
	}
	if method := p.Filters["method"]; method != "" && row.Method != method {
		return false
	}
	return admin.StatusMatches(row.Status, p.Filters["status"])
}

func matchRelease(row admin.ReleaseRow, p admin.FetchParams) bool {
	if !matchCreatedRange(row.CreatedAt, p) {
		return false
	}
	if p.Query != "" && !containsFold(row.Version, p.Query) && !containsFold(row.Notes, p.Query) {
		return false
	}
	if platform := p.Filters["platform"]; platform != "" && row.Platform != platform {
		return false
	}
	if channel := p.Filters["channel"]; channel != "" && row.Channel != channel {
		return false
	}
	return true
}

func matchDeviceStat(row admin.DeviceStatRow, p admin.FetchParams) bool {
	if !matchCreatedRange(row.CreatedAt, p) {
		return false
	}
	if p.Query != "" && !containsFold(row.AppVersion, p.Query) && !containsFold(row.OSVersion, p.Query) {
		return false
	}
	if platform := p.Filters["platform"]; platform != "" && row.Platform != platform {
		return false
	}
	if event := p.Filters["eventType"]; event != "" && row.EventType != event {
		return false
	}
	return true
}
