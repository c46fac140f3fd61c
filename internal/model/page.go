package model

import (
	"fmt"

	"github.com/sakif/photolog/internal/apperror"
)

// Pagination bounds. Page numbers are 1-indexed.
const (
	MaxPageSize          = 100
	DefaultPhotoPageSize = 20
	DefaultEventPageSize = 10
)

// PageRequest is the caller's view of a page: which one and how big.
// A zero Page or PageSize means "not supplied".
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize fills defaults and rejects out-of-range values.
func (r PageRequest) Normalize(defaultSize int) (PageRequest, error) {
	if r.Page == 0 {
		r.Page = 1
	}
	if r.PageSize == 0 {
		r.PageSize = defaultSize
	}
	if r.Page < 1 {
		return r, apperror.ValidationFailed("page", "page must be greater than or equal to 1")
	}
	if r.PageSize < 1 || r.PageSize > MaxPageSize {
		return r, apperror.ValidationFailed("page_size",
			fmt.Sprintf("page_size must be between 1 and %d", MaxPageSize))
	}
	return r, nil
}

// Offset is the number of rows to skip.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// Page is one slice of a larger ordered result.
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
	HasMore  bool
}

// NewPage builds a Page and derives HasMore as offset + len(items) < total.
func NewPage[T any](items []T, total int, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:    items,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		HasMore:  req.Offset()+len(items) < total,
	}
}
