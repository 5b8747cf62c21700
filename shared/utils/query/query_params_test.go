package query

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithQuery(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestParseListParamsDefaults(t *testing.T) {
	params := ParseListParams(contextWithQuery(t, ""))

	assert.Equal(t, 50, params.Limit)
	assert.Equal(t, 0, params.Offset)
	assert.Empty(t, params.Filters)
	assert.Equal(t, "created_at", params.Sort.Field)
	assert.Equal(t, "desc", params.Sort.Order)
	assert.Empty(t, params.Search)
	assert.Nil(t, params.From)
	assert.Nil(t, params.To)
}

func TestParseListParamsFilters(t *testing.T) {
	params := ParseListParams(contextWithQuery(t,
		"filters%5Bstatus%5D=TODO&filters%5Bpriority%5D=HIGH&filters%5Bempty%5D="))

	assert.Equal(t, "TODO", params.Filters["status"])
	assert.Equal(t, "HIGH", params.Filters["priority"])
	_, present := params.Filters["empty"]
	assert.False(t, present, "empty filter values are dropped")
}

func TestParseListParamsPaginationBounds(t *testing.T) {
	params := ParseListParams(contextWithQuery(t, "limit=500&offset=-3"))
	assert.Equal(t, 100, params.Limit)
	assert.Equal(t, 0, params.Offset)

	params = ParseListParams(contextWithQuery(t, "limit=0"))
	assert.Equal(t, 1, params.Limit)
}

func TestParseListParamsSortOrderSanitized(t *testing.T) {
	params := ParseListParams(contextWithQuery(t, "sort%5Bfield%5D=title&sort%5Border%5D=DROP+TABLE"))
	assert.Equal(t, "title", params.Sort.Field)
	assert.Equal(t, "desc", params.Sort.Order)

	params = ParseListParams(contextWithQuery(t, "sort%5Border%5D=asc"))
	assert.Equal(t, "asc", params.Sort.Order)
}

func TestParseListParamsDateRange(t *testing.T) {
	params := ParseListParams(contextWithQuery(t, "from=2026-01-01&to=2026-02-01T12%3A30%3A00Z"))

	require.NotNil(t, params.From)
	require.NotNil(t, params.To)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *params.From)
	assert.Equal(t, time.Date(2026, 2, 1, 12, 30, 0, 0, time.UTC), *params.To)

	params = ParseListParams(contextWithQuery(t, "from=yesterday"))
	assert.Nil(t, params.From)
}

func TestBuildPaginationResponse(t *testing.T) {
	resp := BuildPaginationResponse(50, 0, 120)
	assert.True(t, resp.HasNext)

	resp = BuildPaginationResponse(50, 100, 120)
	assert.False(t, resp.HasNext)

	resp = BuildPaginationResponse(50, 0, 0)
	assert.False(t, resp.HasNext)
	assert.Equal(t, int64(0), resp.Total)
}
