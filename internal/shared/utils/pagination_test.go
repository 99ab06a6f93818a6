package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/orris-inc/paybridge/internal/shared/constants"
)

func TestValidatePagination(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
		want     Pagination
	}{
		{"unset request uses list defaults", 0, 0, Pagination{Page: constants.DefaultPage, PageSize: constants.DefaultPageSize}},
		{"negative values use list defaults", -3, -1, Pagination{Page: 1, PageSize: constants.DefaultPageSize}},
		{"explicit page kept", 4, 50, Pagination{Page: 4, PageSize: 50}},
		{"oversized page clamped", 2, constants.MaxPageSize + 1, Pagination{Page: 2, PageSize: constants.MaxPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidatePagination(tt.page, tt.pageSize))
		})
	}
}

func TestParsePagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	parse := func(rawQuery string) Pagination {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/admin/tenants/tenant-a/subscriptions?"+rawQuery, nil)
		return ParsePagination(c)
	}

	assert.Equal(t, Pagination{Page: 1, PageSize: 20}, parse("status=active"))
	assert.Equal(t, Pagination{Page: 3, PageSize: 25}, parse("page=3&page_size=25&sort_by=next_charge_at"))
	assert.Equal(t, Pagination{Page: 1, PageSize: 10}, parse("page=first&page_size=10"))
	assert.Equal(t, Pagination{Page: 2, PageSize: constants.MaxPageSize}, parse("page=2&page_size=500"))
	assert.Equal(t, Pagination{Page: 1, PageSize: 20}, parse("page=0&page_size=-5"))
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, constants.DefaultPageSize))
	assert.Equal(t, 1, TotalPages(20, constants.DefaultPageSize))
	assert.Equal(t, 2, TotalPages(21, constants.DefaultPageSize))
	assert.Equal(t, 3, TotalPages(201, constants.MaxPageSize))
	assert.Equal(t, 1, TotalPages(7, 0))
}
