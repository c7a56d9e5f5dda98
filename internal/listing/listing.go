// Package listing filters and pages in-memory record lists.
//
// Filters are plain predicates combined by conjunction, so the order they are
// given in never changes the result.
package listing

import "strings"

// DefaultPageSize is used when a page size is missing or not positive.
const DefaultPageSize = 10

type Filter[T any] func(T) bool

// Apply keeps the items that pass every filter. Nil filters are skipped.
func Apply[T any](items []T, filters ...Filter[T]) []T {
	out := make([]T, 0, len(items))
next:
	for _, it := range items {
		for _, f := range filters {
			if f != nil && !f(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

// Search matches when any field contains term, ignoring case.
// An empty term matches everything.
func Search[T any](term string, fields ...func(T) string) Filter[T] {
	term = strings.ToLower(strings.TrimSpace(term))
	return func(it T) bool {
		if term == "" {
			return true
		}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f(it)), term) {
				return true
			}
		}
		return false
	}
}

// Equal matches field against value ignoring case. "" and "all" match everything.
func Equal[T any](value string, field func(T) string) Filter[T] {
	value = strings.TrimSpace(value)
	return func(it T) bool {
		if IsAll(value) {
			return true
		}
		return strings.EqualFold(field(it), value)
	}
}

// IsAll reports whether a filter value means "no filter".
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

type Page[T any] struct {
	Items      []T
	Page       int
	Size       int
	Total      int
	TotalPages int
}

func (p Page[T]) HasPrev() bool { return p.Page > 1 }
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages }
func (p Page[T]) Prev() int     { return p.Page - 1 }
func (p Page[T]) Next() int     { return p.Page + 1 }

// Paginate slices items into fixed-size pages. Out-of-range page numbers clamp
// to the first or last page.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := min(start+size, total)
	return Page[T]{
		Items:      items[start:end],
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: pages,
	}
}
