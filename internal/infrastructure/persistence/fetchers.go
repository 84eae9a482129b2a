// Package persistence implements the INTL region's direct fetchers and
// mutation repositories over GORM.
package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/infrastructure/persistence/models"
	"github.com/nicepick/backend/internal/region"
	"gorm.io/gorm"
)

// fetchChunkSize is the page size used against the relational backend
const fetchChunkSize = 500

// UserFetcher returns the INTL direct fetcher for users
func UserFetcher(db *gorm.DB) admin.Fetcher[admin.UserRow] {
	return fetcher[models.UserModel, admin.UserRow](db, applyUserFilters, (*models.UserModel).ToRow)
}

// OrderFetcher returns the INTL direct fetcher for orders
func OrderFetcher(db *gorm.DB) admin.Fetcher[admin.OrderRow] {
	return fetcher[models.OrderModel, admin.OrderRow](db, applyOrderFilters, (*models.OrderModel).ToRow)
}

// PaymentFetcher returns the INTL direct fetcher for payments
func PaymentFetcher(db *gorm.DB) admin.Fetcher[admin.PaymentRow] {
	return fetcher[models.PaymentModel, admin.PaymentRow](db, applyPaymentFilters, (*models.PaymentModel).ToRow)
}

// ReleaseFetcher returns the INTL direct fetcher for releases
func ReleaseFetcher(db *gorm.DB) admin.Fetcher[admin.ReleaseRow] {
	return fetcher[models.ReleaseModel, admin.ReleaseRow](db, applyReleaseFilters, (*models.ReleaseModel).ToRow)
}

// DeviceStatFetcher returns the INTL direct fetcher for device stats
func DeviceStatFetcher(db *gorm.DB) admin.Fetcher[admin.DeviceStatRow] {
	return fetcher[models.DeviceStatModel, admin.DeviceStatRow](db, applyDeviceStatFilters, (*models.DeviceStatModel).ToRow)
}

// fetcher builds an admin.Fetcher over one model. The backend is paged
// in bounded chunks ordered by creation time descending, with id as a
// deterministic tie-break.
func fetcher[M any, T any](db *gorm.DB, applyFilters func(*gorm.DB, admin.FetchParams) *gorm.DB, toRow func(*M) T) admin.Fetcher[T] {
	return func(ctx context.Context, r region.Region, p admin.FetchParams) (admin.FetchResult[T], error) {
		var model M

		countQuery := applyFilters(db.WithContext(ctx).Model(&model), p)
		var total int64
		if err := countQuery.Count(&total).Error; err != nil {
			return admin.FetchResult[T]{}, fmt.Errorf("count: %w", err)
		}

		rows, err := admin.FetchChunked(ctx, fetchChunkSize, p.Skip, p.Limit, func(offset, count int) ([]T, error) {
			var chunk []M
			query := applyFilters(db.WithContext(ctx).Model(&model), p).
				Order("created_at DESC").
				Order("id").
				Offset(offset).
				Limit(count)
			if err := query.Find(&chunk).Error; err != nil {
				return nil, err
			}
			out := make([]T, len(chunk))
			for i := range chunk {
				out[i] = toRow(&chunk[i])
			}
			return out, nil
		})
		if err != nil {
			return admin.FetchResult[T]{}, fmt.Errorf("fetch: %w", err)
		}

		return admin.FetchResult[T]{Rows: rows, Total: total}, nil
	}
}

// searchPattern builds a case-insensitive LIKE pattern. LOWER() LIKE is
// used instead of ILIKE so the same query runs on the sqlite test
// backend.
func searchPattern(q string) string {
	return "%" + strings.ToLower(q) + "%"
}

// applyCreatedRange narrows by creation time when the caller supplied a
// from/to window. Values go through the same flexible parser the row
// normalizers use, so epoch and date-only bounds both work.
func applyCreatedRange(query *gorm.DB, p admin.FetchParams) *gorm.DB {
	if from := admin.ParseFlexibleTime(p.Filters["from"]); from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to := admin.ParseFlexibleTime(p.Filters["to"]); to != nil {
		query = query.Where("created_at <= ?", *to)
	}
	return query
}

func applyUserFilters(query *gorm.DB, p admin.FetchParams) *gorm.DB {
	query = applyCreatedRange(query, p)
	if p.Query != "" {
		pattern := searchPattern(p.Query)
		query = query.Where("LOWER(email) LIKE ? OR LOWER(nickname) LIKE ?", pattern, pattern)
	}
	if tier := p.Filters["tier"]; tier != "" {
		query = query.Where("tier = ?", tier)
	}
	if status := p.Filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	return query
}

func applyOrderFilters(query *gorm.DB, p admin.FetchParams) *gorm.DB {
	query = applyCreatedRange(query, p)
	if p.Query != "" {
		pattern := searchPattern(p.Query)
		query = query.Where("LOWER(user_id) LIKE ? OR LOWER(id) LIKE ?", pattern, pattern)
	}
	if channel := p.Filters["channel"]; channel != "" {
		query = query.Where("channel = ?", channel)
	}
	if status := p.Filters["status"]; status != "" {
		query = query.Where("status IN ?", admin.StatusFilterValues(status))
	}
	return query
}

func applyPaymentFilters(query *gorm.DB, p admin.FetchParams) *gorm.DB {
	query = applyCreatedRange(query, p)
	if p.Query != "" {
		pattern := searchPattern(p.Query)
		query = query.Where("LOWER(order_id) LIKE ? OR LOWER(id) LIKE ?", pattern, pattern)
	}
	if method := p.Filters["method"]; method != "" {
		query = query.Where("method = ?", method)
	}
	if status := p.Filters["status"]; status != "" {
		query = query.Where("status IN ?", admin.StatusFilterValues(status))
	}
	return query
}

func applyReleaseFilters(query *gorm.DB, p admin.FetchParams) *gorm.DB {
	query = applyCreatedRange(query, p)
	if p.Query != "" {
		pattern := searchPattern(p.Query)
		query = query.Where("LOWER(version) LIKE ? OR LOWER(notes) LIKE ?", pattern, pattern)
	}
	if platform := p.Filters["platform"]; platform != "" {
		query = query.Where("platform = ?", platform)
	}
	if channel := p.Filters["channel"]; channel != "" {
		query = query.Where("channel = ?", channel)
	}
	return query
}

func applyDeviceStatFilters(query *gorm.DB, p admin.FetchParams) *gorm.DB {
	query = applyCreatedRange(query, p)
	if p.Query != "" {
		pattern := searchPattern(p.Query)
		query = query.Where("LOWER(app_version) LIKE ? OR LOWER(os_version) LIKE ?", pattern, pattern)
	}
	if platform := p.Filters["platform"]; platform != "" {
		query = query.Where("platform = ?", platform)
	}
	if event := p.Filters["eventType"]; event != "" {
		query = query.Where("event_type = ?", event)
	}
	return query
}
