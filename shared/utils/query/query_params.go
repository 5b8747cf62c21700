package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListParams represents the standard list query parameters
type ListParams struct {
	Filters map[string]string
	Sort    SortParams
	Limit   int
	Offset  int
	Search  string
	From    *time.Time
	To      *time.Time
}

// SortParams represents sorting parameters
type SortParams struct {
	Field string
	Order string
}

// PaginationResponse represents pagination metadata
type PaginationResponse struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"has_next"`
}

// ParseListParams extracts standardized list parameters from a request.
// Pagination is limit/offset based, capped at 100 rows per page. Date
// bounds use the from/to query parameters in RFC 3339.
func ParseListParams(c *gin.Context) ListParams {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	// Filters arrive as filters[field]=value
	filters := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if strings.HasPrefix(key, "filters[") && strings.HasSuffix(key, "]") {
			fieldName := key[8 : len(key)-1]
			if len(values) > 0 && values[0] != "" {
				filters[fieldName] = values[0]
			}
		}
	}

	sortField := c.DefaultQuery("sort[field]", "created_at")
	sortOrder := c.DefaultQuery("sort[order]", "desc")
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return ListParams{
		Filters: filters,
		Sort:    SortParams{Field: sortField, Order: sortOrder},
		Limit:   limit,
		Offset:  offset,
		Search:  c.Query("search"),
		From:    parseTimeParam(c.Query("from")),
		To:      parseTimeParam(c.Query("to")),
	}
}

func parseTimeParam(value string) *time.Time {
	if value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t
	}
	return nil
}

// ApplyFilters applies whitelisted equality filters to a GORM query
func ApplyFilters(query *gorm.DB, filters map[string]string, allowedFields map[string]string) *gorm.DB {
	for field, value := range filters {
		if dbField, allowed := allowedFields[field]; allowed && value != "" {
			query = query.Where(fmt.Sprintf("%s = ?", dbField), value)
		}
	}
	return query
}

// ApplySearch applies a case-insensitive search across the given fields
func ApplySearch(query *gorm.DB, search string, searchFields []string) *gorm.DB {
	if search == "" || len(searchFields) == 0 {
		return query
	}

	conditions := make([]string, len(searchFields))
	args := make([]interface{}, len(searchFields))
	for i, field := range searchFields {
		conditions[i] = fmt.Sprintf("%s ILIKE ?", field)
		args[i] = "%" + search + "%"
	}

	return query.Where(strings.Join(conditions, " OR "), args...)
}

// ApplySort applies whitelisted sorting, defaulting to newest-first
func ApplySort(query *gorm.DB, sort SortParams, allowedSortFields map[string]string) *gorm.DB {
	if dbField, allowed := allowedSortFields[sort.Field]; allowed {
		return query.Order(fmt.Sprintf("%s %s", dbField, strings.ToUpper(sort.Order)))
	}
	return query.Order("created_at DESC")
}

// ApplyDateRange bounds a query on the given timestamp column
func ApplyDateRange(query *gorm.DB, column string, from, to *time.Time) *gorm.DB {
	if from != nil {
		query = query.Where(fmt.Sprintf("%s >= ?", column), *from)
	}
	if to != nil {
		query = query.Where(fmt.Sprintf("%s <= ?", column), *to)
	}
	return query
}

// ApplyPagination applies limit/offset to a GORM query
func ApplyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	return query.Offset(offset).Limit(limit)
}

// BuildPaginationResponse creates pagination metadata
func BuildPaginationResponse(limit, offset int, total int64) PaginationResponse {
	return PaginationResponse{
		Limit:   limit,
		Offset:  offset,
		Total:   total,
		HasNext: int64(offset+limit) < total,
	}
}
