// Package pagination implements limit/offset paging for list endpoints and
// the envelope their JSON responses share.
package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is one page window. Limit is always in [1, MaxLimit] and Offset is
// never negative when obtained through FromContext.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit and offset query parameters, clamping out-of-range
// and unparseable values instead of rejecting the request.
func FromContext(c echo.Context) Params {
	return Params{
		Limit:  clamp(c.QueryParam("limit"), 1, MaxLimit, DefaultLimit),
		Offset: clamp(c.QueryParam("offset"), 0, -1, 0),
	}
}

// clamp parses raw and pins it to [min, max]; max < 0 means unbounded.
// Unparseable or below-minimum input yields fallback.
func clamp(raw string, min, max, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		return fallback
	}
	if max >= 0 && n > max {
		return max
	}
	return n
}

// SQL renders the window as a LIMIT/OFFSET clause.
func (p Params) SQL() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

// HasNext reports whether rows exist past this page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious reports whether this is any page but the first.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset is the offset of the following page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset is the offset of the preceding page, floored at 0.
func (p Params) PreviousOffset() int {
	if prev := p.Offset - p.Limit; prev > 0 {
		return prev
	}
	return 0
}

// Response is the JSON envelope for every paginated listing.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

// NewResponse wraps one page of results with its paging metadata.
func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}
