package catalog

import "github.com/noah-isme/cbcs-registration/internal/models"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Paginate slices items for the requested page and returns the pagination block.
func Paginate[T any](items []T, page, size int) ([]T, *models.Pagination) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	total := len(items)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return items[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
