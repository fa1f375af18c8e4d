package app

import "github.com/finbase/finance-ledger/internal/domain"

// normalizePage clamps offset and limit to the supported window: negative
// offsets become 0, non-positive limits fall back to the default page size,
// and limits above the maximum are capped.
func normalizePage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	if limit > domain.MaxPageSize {
		limit = domain.MaxPageSize
	}
	return offset, limit
}

// pageWindow returns the subslice of items selected by the offset/limit
// window. An offset past the end yields an empty slice, never an error.
func pageWindow[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
