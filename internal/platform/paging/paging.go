package paging

import (
	"github.com/gin-gonic/gin"

	"scribe-backend/internal/platform/problem"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// PageIndex*PageSize が int を溢れないように
	MaxPageIndex = 1_000_000
)

// Params は pageIndex(0 始まり) と pageSize。
type Params struct {
	PageIndex int `form:"pageIndex" binding:"min=0,max=1000000"`
	PageSize  int `form:"pageSize" binding:"omitempty,min=1,max=100"`
}

func FromQuery(c *gin.Context) (Params, error) {
	var p Params
	if err := c.ShouldBindQuery(&p); err != nil {
		return Params{}, problem.Invalid("pageIndex must be between 0 and 1000000 and pageSize between 1 and 100")
	}
	return p.normalize(), nil
}

func (p Params) normalize() Params {
	if p.PageIndex < 0 {
		p.PageIndex = 0
	}
	if p.PageIndex > MaxPageIndex {
		p.PageIndex = MaxPageIndex
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Params) Limit() int  { return p.normalize().PageSize }
func (p Params) Offset() int { n := p.normalize(); return n.PageIndex * n.PageSize }

type Result[T any] struct {
	PageIndex int   `json:"page_index"`
	PageSize  int   `json:"page_size"`
	Count     int64 `json:"count"`
	Data      []T   `json:"data"`
}

func NewResult[T any](p Params, count int64, data []T) Result[T] {
	p = p.normalize()
	if data == nil {
		data = []T{}
	}
	return Result[T]{PageIndex: p.PageIndex, PageSize: p.PageSize, Count: count, Data: data}
}

// Map converts a page of one type into a page of another, keeping the counters.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	out := make([]U, 0, len(r.Data))
	for _, v := range r.Data {
		out = append(out, fn(v))
	}
	return Result[U]{PageIndex: r.PageIndex, PageSize: r.PageSize, Count: r.Count, Data: out}
}
