package handler

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/domain/shared"
)

// analyticsWindow is how many of the newest device-stat rows feed the
// aggregation. It stays well under the merged prefetch ceiling.
const analyticsWindow = 1000

// DailyStat is one day's aggregated device activity
type DailyStat struct {
	Date       string           `json:"date"`
	Total      int64            `json:"total"`
	ByPlatform map[string]int64 `json:"byPlatform"`
	ByEvent    map[string]int64 `json:"byEvent"`
}

// AnalyticsResponse is the aggregated device-stat view. Sources carries
// the same per-region diagnostics as the listing endpoints; a day built
// from one region only is partial data, not an error.
type AnalyticsResponse struct {
	Days    []DailyStat          `json:"days"`
	Sources []admin.SourceStatus `json:"sources"`
}

// Analytics aggregates the newest device stats per day across regions
func (h *AdminHandler) Analytics(c *gin.Context) {
	req, err := parseListRequest(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Page = 1
	req.PageSize = analyticsWindow

	page, err := h.reconcilers.DeviceStats.List(c.Request.Context(), h.regions(), req)
	if err != nil && !errors.Is(err, shared.ErrPaginationTooDeep) {
		h.HandleError(c, err)
		return
	}

	byDay := map[string]*DailyStat{}
	for _, row := range page.Items {
		if row.CreatedAt == nil {
			continue
		}
		date := row.CreatedAt.UTC().Format(time.DateOnly)
		day, ok := byDay[date]
		if !ok {
			day = &DailyStat{Date: date, ByPlatform: map[string]int64{}, ByEvent: map[string]int64{}}
			byDay[date] = day
		}
		day.Total += row.Count
		if row.Platform != "" {
			day.ByPlatform[row.Platform] += row.Count
		}
		if row.EventType != "" {
			day.ByEvent[row.EventType] += row.Count
		}
	}

	days := make([]DailyStat, 0, len(byDay))
	for _, day := range byDay {
		days = append(days, *day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })

	c.JSON(http.StatusOK, AnalyticsResponse{Days: days, Sources: page.Sources})
}
