package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/vindel10/vindel-api/internal/models"
)

// parseCursor reads a millisecond cursor. ok is false for malformed input.
func parseCursor(raw string) (cursor int64, ok bool) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	}
	return int64(math.Floor(f)), true
}

// cursorStart returns the index following the first element published at or
// before cursor. found is false when no element qualifies.
func cursorStart(filtered []models.ListingDocument, cursor int64) (start int, found bool) {
	for i, doc := range filtered {
		ms, ok := doc.PublicationMillis()
		if ok && ms <= cursor {
			return i + 1, true
		}
	}
	return 0, false
}

// paginate slices one page out of filtered. A nil cursor starts at the top; a
// cursor that matches nothing yields an empty page. next is the publication
// time of the last returned element when more elements remain.
func paginate(filtered []models.ListingDocument, pageSize int, cursor *int64) (page []models.ListingDocument, next *int64) {
	start := 0
	if cursor != nil {
		var found bool
		start, found = cursorStart(filtered, *cursor)
		if !found {
			return nil, nil
		}
	}
	if start >= len(filtered) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	page = filtered[start:end]
	if end < len(filtered) && len(page) > 0 {
		if ms, ok := page[len(page)-1].PublicationMillis(); ok {
			next = &ms
		}
	}
	return page, next
}
