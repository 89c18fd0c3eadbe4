// Package paging holds the page request/response shapes shared by the list
// endpoints of the catalog, order and user repositories.
package paging

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultSize = 10
	MaxSize     = 100
	// MaxPage keeps Page*Size within a 32-bit OFFSET.
	MaxPage = math.MaxInt32 / MaxSize
)

// Request describes one page of a listing. Page is zero based.
type Request struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// Normalize clamps page and size into their valid ranges.
func (r Request) Normalize() Request {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Page > MaxPage {
		r.Page = MaxPage
	}
	if r.Size <= 0 {
		r.Size = DefaultSize
	}
	if r.Size > MaxSize {
		r.Size = MaxSize
	}
	if strings.EqualFold(r.SortDir, "desc") {
		r.SortDir = "DESC"
	} else {
		r.SortDir = "ASC"
	}
	return r
}

func (r Request) Offset() int {
	return r.Page * r.Size
}

// OrderBy returns an ORDER BY clause body. The column is looked up in
// columns by SortBy; unknown keys fall back to fallback so user input never
// reaches the SQL text.
func (r Request) OrderBy(columns map[string]string, fallback string) string {
	col, ok := columns[r.SortBy]
	if !ok {
		col = fallback
	}
	dir := "ASC"
	if r.SortDir == "DESC" {
		dir = "DESC"
	}
	return col + " " + dir
}

// FromQuery builds a Request from query string values, ignoring malformed numbers.
func FromQuery(get func(string) string) Request {
	req := Request{
		SortBy:  get("sortBy"),
		SortDir: get("sortDir"),
	}
	if v, err := strconv.Atoi(get("page")); err == nil {
		req.Page = v
	}
	if v, err := strconv.Atoi(get("size")); err == nil {
		req.Size = v
	}
	return req.Normalize()
}

type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func NewPage[T any](content []T, req Request, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}
