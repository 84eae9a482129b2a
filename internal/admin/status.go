package admin

import "github.com/nicepick/backend/internal/region"

// Mode describes how a region's data was (or was not) obtained.
type Mode string

const (
	// ModeDirect means the locally-configured backend served the query.
	ModeDirect Mode = "direct"
	// ModeProxy means a sibling deployment served the query over HTTP.
	ModeProxy Mode = "proxy"
	// ModeMissing means neither direct nor proxy access was possible.
	ModeMissing Mode = "missing"
)

// SourceStatus is the per-region diagnostic attached to every
// aggregate response. It is never persisted.
type SourceStatus struct {
	Region  region.Region `json:"region"`
	OK      bool          `json:"ok"`
	Mode    Mode          `json:"mode"`
	Message string        `json:"message,omitempty"`
}

// Pagination describes the page window of a listing response
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// Page is a listing response: one page of merged rows plus the
// per-region source diagnostics. Callers must inspect Sources; a 200
// with a failed source is partial data, not an error.
type Page[T any] struct {
	Items      []T            `json:"items"`
	Pagination Pagination     `json:"pagination"`
	Sources    []SourceStatus `json:"sources"`
}

// NewPagination computes the derived totalPages field
func NewPagination(page, pageSize int, total int64) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Payment/order status values. Legacy CN writers stored "success" where
// newer code writes "completed"; both literals still occur in stored
// data, so the equivalence lives here and nowhere else.
const (
	StatusCompleted     = "completed"
	legacyStatusSuccess = "success"
)

// NormalizeStatus maps legacy status literals to their canonical form
// for display. Stored data is left untouched.
func NormalizeStatus(s string) string {
	if s == legacyStatusSuccess {
		return StatusCompleted
	}
	return s
}

// StatusMatches reports whether a stored status satisfies a filter
// value, honoring the completed/success equivalence in both directions.
func StatusMatches(stored, filter string) bool {
	if filter == "" {
		return true
	}
	return NormalizeStatus(stored) == NormalizeStatus(filter)
}

// StatusFilterValues expands a status filter into every stored literal
// it should match, for backends that filter server-side.
func StatusFilterValues(filter string) []string {
	if NormalizeStatus(filter) == StatusCompleted {
		return []string{StatusCompleted, legacyStatusSuccess}
	}
	return []string{filter}
}
