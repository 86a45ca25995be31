package pagination

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageParams 列表分页参数，per_page 为旧客户端使用的别名
type PageParams struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
	PerPage  int `form:"per_page"`
}

// PageInfo 返回给客户端的分页信息
type PageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ParsePageParams 解析查询参数，非法值回落到默认值
func ParsePageParams(c *gin.Context) *PageParams {
	var p PageParams
	if err := c.ShouldBindQuery(&p); err != nil {
		p = PageParams{}
	}
	if p.PageSize == 0 {
		p.PageSize = p.PerPage
	}
	return New(p.Page, p.PageSize)
}

// New 构造并规整分页参数
func New(page, pageSize int) *PageParams {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case pageSize < 1:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return &PageParams{Page: page, PageSize: pageSize}
}

func (p *PageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func (p *PageParams) Limit() int {
	return p.PageSize
}

// Paginate gorm 分页作用域，nil 表示不分页
func (p *PageParams) Paginate() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if p == nil {
			return db
		}
		return db.Offset(p.Offset()).Limit(p.Limit())
	}
}

// Info 结合总数生成分页信息
func (p *PageParams) Info(total int64) *PageInfo {
	totalPages := int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	return &PageInfo{
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}
