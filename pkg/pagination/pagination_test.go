package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parse(query string) *PageParams {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return ParsePageParams(c)
}

func TestParsePageParams(t *testing.T) {
	p := parse("page=3&page_size=20")
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 20, p.Limit())

	p = parse("page=-1")
	assert.Equal(t, DefaultPage, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)

	// 非数字整体回落
	p = parse("page=2&page_size=abc")
	assert.Equal(t, DefaultPage, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)

	p = parse("page_size=1000")
	assert.Equal(t, MaxPageSize, p.PageSize)

	p = parse("per_page=5")
	assert.Equal(t, 5, p.PageSize)

	p = parse("per_page=5&page_size=7")
	assert.Equal(t, 7, p.PageSize)
}

func TestInfo(t *testing.T) {
	info := New(2, 10).Info(25)
	assert.Equal(t, 3, info.TotalPages)
	assert.True(t, info.HasNext)
	assert.True(t, info.HasPrev)

	info = New(1, 10).Info(0)
	assert.Equal(t, 0, info.TotalPages)
	assert.False(t, info.HasNext)
	assert.False(t, info.HasPrev)

	info = New(3, 10).Info(30)
	assert.Equal(t, 3, info.TotalPages)
	assert.False(t, info.HasNext)
}
