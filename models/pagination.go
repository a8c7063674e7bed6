package models

import (
	"strings"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(total int64, page int, limit int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

// clampPage returns page >= 1 and limit in 1..maxPageLimit.
func clampPage(page int, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func offsetOf(page int, limit int) int {
	return (page - 1) * limit
}

// sortColumn maps a client sort key (column or camelCase alias) to a column
// in allowed; ok is false for anything else.
func sortColumn(allowed map[string]string, key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	column, ok := allowed[key]
	return column, ok
}

func sortDirection(order string) string {
	if strings.EqualFold(strings.TrimSpace(order), "asc") {
		return "ASC"
	}
	return "DESC"
}
