package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nicepick/backend/internal/admin"
	"github.com/nicepick/backend/internal/domain/shared"
	"github.com/nicepick/backend/internal/interfaces/http/middleware"
	"github.com/nicepick/backend/internal/region"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// reservedListParams are the query parameters consumed by pagination
// and scope; everything else is forwarded as an entity filter.
var reservedListParams = map[string]bool{
	"source":   true,
	"page":     true,
	"pageSize": true,
	"q":        true,
}

// parseListRequest turns the query string into a ListRequest. Proxy hop
// requests are exempt from the pageSize ceiling because a sibling
// translating a merge window may legitimately ask for a large page.
func parseListRequest(c *gin.Context) (admin.ListRequest, error) {
	regions, err := region.ParseScope(c.Query("source"))
	if err != nil {
		return admin.ListRequest{}, err
	}

	isHop := middleware.IsProxyHop(c)

	page := 1
	if raw := c.Query("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return admin.ListRequest{}, errors.New("page must be a positive integer")
		}
	}

	pageSize := defaultPageSize
	if raw := c.Query("pageSize"); raw != "" {
		pageSize, err = strconv.Atoi(raw)
		if err != nil || pageSize < 1 {
			return admin.ListRequest{}, errors.New("pageSize must be a positive integer")
		}
		if pageSize > maxPageSize && !isHop {
			return admin.ListRequest{}, errors.New("pageSize exceeds maximum of " + strconv.Itoa(maxPageSize))
		}
	}

	filters := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if reservedListParams[key] || len(values) == 0 || values[0] == "" {
			continue
		}
		filters[key] = values[0]
	}

	return admin.ListRequest{
		Regions:      regions,
		Page:         page,
		PageSize:     pageSize,
		Query:        c.Query("q"),
		Filters:      filters,
		IsProxyHop:   isHop,
		SessionToken: middleware.GetSessionToken(c),
	}, nil
}

// listEndpoint builds the gin handler for one entity's listing route.
// The reconciled page is serialized as-is so sibling deployments can
// decode it during proxy hops; the envelope is not applied here.
func listEndpoint[T admin.Timestamped](h *BaseHandler, r *admin.Reconciler[T], regions func() region.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := parseListRequest(c)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}

		page, err := r.List(c.Request.Context(), regions(), req)
		if err != nil {
			if errors.Is(err, shared.ErrPaginationTooDeep) {
				c.JSON(http.StatusBadRequest, page)
				return
			}
			h.HandleError(c, err)
			return
		}

		c.JSON(http.StatusOK, page)
	}
}
