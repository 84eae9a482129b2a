package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, "completed", NormalizeStatus("success"))
	assert.Equal(t, "completed", NormalizeStatus("completed"))
	assert.Equal(t, "pending", NormalizeStatus("pending"))
	assert.Equal(t, "", NormalizeStatus(""))
}

func TestStatusMatches(t *testing.T) {
	tests := []struct {
		stored string
		filter string
		want   bool
	}{
		{"completed", "completed", true},
		{"success", "completed", true},
		{"completed", "success", true},
		{"success", "success", true},
		{"pending", "completed", false},
		{"pending", "pending", true},
		{"anything", "", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusMatches(tt.stored, tt.filter),
			"stored=%q filter=%q", tt.stored, tt.filter)
	}
}

func TestStatusFilterValues(t *testing.T) {
	assert.ElementsMatch(t, []string{"completed", "success"}, StatusFilterValues("completed"))
	assert.ElementsMatch(t, []string{"completed", "success"}, StatusFilterValues("success"))
	assert.Equal(t, []string{"pending"}, StatusFilterValues("pending"))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, int64(45), p.Total)
	assert.Equal(t, 3, p.TotalPages)

	p = NewPagination(1, 20, 40)
	assert.Equal(t, 2, p.TotalPages)

	p = NewPagination(1, 20, 0)
	assert.Equal(t, 0, p.TotalPages)
}
