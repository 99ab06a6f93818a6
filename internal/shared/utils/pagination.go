package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/paybridge/internal/shared/constants"
)

// Pagination is a normalized page request for admin list endpoints.
type Pagination struct {
	Page     int
	PageSize int
}

// ValidatePagination clamps a page request: pages start at 1 and page sizes
// fall back to DefaultPageSize, never exceeding MaxPageSize.
func ValidatePagination(page, pageSize int) Pagination {
	p := Pagination{Page: page, PageSize: pageSize}
	if p.Page < 1 {
		p.Page = constants.DefaultPage
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = constants.DefaultPageSize
	case p.PageSize > constants.MaxPageSize:
		p.PageSize = constants.MaxPageSize
	}
	return p
}

// ParsePagination reads page and page_size from the query string. Anything
// that is not a positive integer takes the default.
func ParsePagination(c *gin.Context) Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	return ValidatePagination(page, pageSize)
}

// TotalPages is the number of pages needed for total rows; an empty result
// still has one page.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
