// Package listings builds the Events and Services browse pages.
package listings

import (
	"github.com/sokoniarena/sokoni/internal/model"
)

// Sort keys understood by the fetchers.
const (
	SortDate      = "date"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortPopular   = "popular"
	SortNewest    = "newest"
	SortRating    = "rating"
)

// SortOption is a selectable sort order.
type SortOption struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Catalog describes one browse page.
type Catalog struct {
	Type         model.ListingType `json:"type" yaml:"type"`
	Title        string            `json:"title" yaml:"title"`
	Subtitle     string            `json:"subtitle" yaml:"subtitle"`
	Noun         string            `json:"noun" yaml:"noun"` // plural, used in "Showing N events"
	AllCategory  string            `json:"all_category" yaml:"all_category"`
	Categories   []string          `json:"categories" yaml:"categories"`
	Sorts        []SortOption      `json:"sorts" yaml:"sorts"`
	DefaultSort  string            `json:"default_sort" yaml:"default_sort"`
	DefaultImage string            `json:"default_image" yaml:"default_image"`
	ShowDate     bool              `json:"show_date" yaml:"show_date"`
}

// Events is the events browse page.
var Events = Catalog{
	Type:        model.ListingEvent,
	Title:       "Events",
	Subtitle:    "Discover exciting events, workshops, and gatherings near you",
	Noun:        "events",
	AllCategory: "All Events",
	Categories: []string{
		"All Events",
		"Music & Concerts",
		"Business & Networking",
		"Workshops & Classes",
		"Sports & Fitness",
		"Arts & Culture",
		"Food & Drink",
		"Charity & Causes",
	},
	Sorts: []SortOption{
		{Value: SortDate, Label: "Date: Upcoming"},
		{Value: SortPriceLow, Label: "Price: Low to High"},
		{Value: SortPriceHigh, Label: "Price: High to Low"},
		{Value: SortPopular, Label: "Most Popular"},
	},
	DefaultSort:  SortDate,
	DefaultImage: "https://images.unsplash.com/photo-1501281668745-f7f57925c3b4?w=500&q=80",
	ShowDate:     true,
}

// Services is the services browse page.
var Services = Catalog{
	Type:        model.ListingService,
	Title:       "Services",
	Subtitle:    "Find skilled professionals and service providers near you",
	Noun:        "services",
	AllCategory: "All Categories",
	Categories: []string{
		"All Categories",
		"Home Services",
		"Professional Services",
		"Health & Fitness",
		"Events & Entertainment",
		"Education & Tutoring",
		"Technology",
		"Beauty & Wellness",
	},
	Sorts: []SortOption{
		{Value: SortNewest, Label: "Newest First"},
		{Value: SortPriceLow, Label: "Price: Low to High"},
		{Value: SortPriceHigh, Label: "Price: High to Low"},
		{Value: SortRating, Label: "Highest Rated"},
	},
	DefaultSort:  SortNewest,
	DefaultImage: "https://images.unsplash.com/photo-1521791136064-7986c2920216?w=500&q=80",
}

// CatalogFor returns the catalog for a listing type.
func CatalogFor(t model.ListingType) (Catalog, bool) {
	switch t {
	case model.ListingEvent:
		return Events, true
	case model.ListingService:
		return Services, true
	default:
		return Catalog{}, false
	}
}

// HasSort reports whether value is one of the catalog's sort keys.
func (c Catalog) HasSort(value string) bool {
	for _, s := range c.Sorts {
		if s.Value == value {
			return true
		}
	}
	return false
}

// SortLabel returns the label for a sort key, or the key itself.
func (c Catalog) SortLabel(value string) string {
	for _, s := range c.Sorts {
		if s.Value == value {
			return s.Label
		}
	}
	return value
}

// NextCategory returns the category after current, wrapping around.
func (c Catalog) NextCategory(current string) string {
	return next(c.Categories, current)
}

// NextSort returns the sort key after current, wrapping around.
func (c Catalog) NextSort(current string) string {
	values := make([]string, len(c.Sorts))
	for i, s := range c.Sorts {
		values[i] = s.Value
	}
	return next(values, current)
}

func next(values []string, current string) string {
	if len(values) == 0 {
		return current
	}
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

// Query is a listings fetch request.
type Query struct {
	Type        model.ListingType `json:"type" yaml:"type"`
	Category    string            `json:"category,omitempty" yaml:"category,omitempty"`
	SearchQuery string            `json:"q,omitempty" yaml:"q,omitempty"`
	SortBy      string            `json:"sort,omitempty" yaml:"sort,omitempty"`
}

// NewQuery returns the initial query of a page.
func NewQuery(c Catalog) Query {
	return Query{
		Type:     c.Type,
		Category: c.AllCategory,
		SortBy:   c.DefaultSort,
	}
}

// CategoryFilter returns the category to filter on, or "" for all.
func (q Query) CategoryFilter() string {
	switch q.Category {
	case "", Events.AllCategory, Services.AllCategory:
		return ""
	default:
		return q.Category
	}
}

// ClearFilters resets the search text and the category.
func ClearFilters(c Catalog, q Query) Query {
	q.SearchQuery = ""
	q.Category = c.AllCategory
	return q
}
