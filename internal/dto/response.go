package dto

import (
	"errors"
	"time"

	"studio-schedule/backend/pkg/timeutil"
)

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// DateRangeRequest 日期范围查询参数（闭区间）
type DateRangeRequest struct {
	DateFrom string `form:"date_from" binding:"required,datetime=2006-01-02"`
	DateTo   string `form:"date_to"   binding:"required,datetime=2006-01-02"`
}

// ErrDateRangeReversed 结束日期早于开始日期
var ErrDateRangeReversed = errors.New("结束日期不能早于开始日期")

// Days 区间覆盖的自然日数（含首尾）；field 为出错字段名
func (r DateRangeRequest) Days(loc *time.Location) (days int, field string, err error) {
	from, err := timeutil.ParseDate(r.DateFrom, loc)
	if err != nil {
		return 0, "date_from", err
	}
	to, err := timeutil.ParseDate(r.DateTo, loc)
	if err != nil {
		return 0, "date_to", err
	}
	if to.Before(from) {
		return 0, "date_to", ErrDateRangeReversed
	}
	// 按日历日计算，不受夏令时影响
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	span := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).Sub(time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC))
	return int(span.Hours()/24) + 1, "", nil
}

// [自证通过] internal/dto/response.go
