package transport

import (
	"net/http"
	"strconv"
)

const maxPageLimit = 100

// Pagination reads page and limit from the query string. Bad or missing
// values fall back to page 1 and defaultLimit.
func Pagination(r *http.Request, defaultLimit int) (page, limit int) {
	page, limit = 1, defaultLimit

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= maxPageLimit {
		limit = l
	}
	return page, limit
}

// TotalPages rounds up.
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
