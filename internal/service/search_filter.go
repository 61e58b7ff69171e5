package service

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/vindel10/vindel-api/internal/models"
)

var romanianLower = cases.Lower(language.Romanian)

// foldText trims and lower-cases s after NFC normalization, so composed and
// decomposed diacritics compare equal.
func foldText(s string) string {
	return romanianLower.String(norm.NFC.String(strings.TrimSpace(s)))
}

// lowerField lower-cases a stored field without trimming it. Absent fields
// compare as "".
func lowerField(s *string) string {
	if s == nil {
		return ""
	}
	return romanianLower.String(norm.NFC.String(*s))
}

// ListingQuery holds the filters applied to a fetched batch. Empty values
// disable the corresponding predicate.
type ListingQuery struct {
	FreeText string
	Category string
	Location string
}

// listingFilter is a compiled ListingQuery.
type listingFilter struct {
	text        string
	category    string
	hasLocation bool
	city        string
	region      string
}

func compileFilter(q ListingQuery) listingFilter {
	f := listingFilter{
		text:     foldText(q.FreeText),
		category: q.Category,
	}
	if loc := foldText(q.Location); loc != "" {
		f.hasLocation = true
		city, region, _ := strings.Cut(loc, ",")
		f.city = strings.TrimSpace(city)
		f.region = strings.TrimSpace(region)
	}
	return f
}

// apply keeps the documents passing every predicate, preserving input order.
func (f listingFilter) apply(docs []models.ListingDocument) []models.ListingDocument {
	out := make([]models.ListingDocument, 0, len(docs))
	for _, doc := range docs {
		if f.matches(doc) {
			out = append(out, doc)
		}
	}
	return out
}

func (f listingFilter) matches(doc models.ListingDocument) bool {
	return searchVisible(doc) &&
		f.matchesCategory(doc) &&
		f.matchesText(doc) &&
		f.matchesLocation(doc)
}

// searchVisible admits active listings and legacy listings without a status.
func searchVisible(doc models.ListingDocument) bool {
	return doc.Status == nil || models.ListingStatus(*doc.Status) == models.StatusActive
}

func (f listingFilter) matchesCategory(doc models.ListingDocument) bool {
	if f.category == "" {
		return true
	}
	return doc.Category != nil && *doc.Category == f.category
}

func (f listingFilter) matchesText(doc models.ListingDocument) bool {
	if f.text == "" {
		return true
	}
	return strings.Contains(lowerField(doc.Title), f.text) ||
		strings.Contains(lowerField(doc.Description), f.text)
}

// matchesLocation accepts a listing when its city or region overlaps the
// requested "city, region" in either direction. Empty operands never match,
// otherwise every listing without a location would pass.
func (f listingFilter) matchesLocation(doc models.ListingDocument) bool {
	if !f.hasLocation {
		return true
	}
	location := lowerField(doc.Location)
	region := lowerField(doc.Region)

	if f.city != "" {
		if strings.Contains(location, f.city) {
			return true
		}
		if location != "" && strings.Contains(f.city, location) {
			return true
		}
		if strings.Contains(region, f.city) {
			return true
		}
	}
	return f.region != "" && strings.Contains(region, f.region)
}
