package model

import "time"

// ListingType is the kind of marketplace listing.
type ListingType string

const (
	ListingEvent   ListingType = "event"
	ListingService ListingType = "service"
	ListingProduct ListingType = "product"
)

// Listing is a single marketplace entry as stored in the listings table.
type Listing struct {
	ID          string      `json:"id" yaml:"id"`
	Type        ListingType `json:"listing_type" yaml:"listing_type"`
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string      `json:"category,omitempty" yaml:"category,omitempty"`
	Price       *float64    `json:"price,omitempty" yaml:"price,omitempty"`
	Images      []string    `json:"images,omitempty" yaml:"images,omitempty"`
	Location    string      `json:"location" yaml:"location"`
	IsSponsored bool        `json:"is_sponsored" yaml:"is_sponsored"`
	IsFeatured  bool        `json:"is_featured" yaml:"is_featured"`
	IsFree      bool        `json:"is_free" yaml:"is_free"`
	EventDate   *time.Time  `json:"event_date,omitempty" yaml:"event_date,omitempty"`
	Views       int         `json:"views_count,omitempty" yaml:"views_count,omitempty"`
	Rating      float64     `json:"rating,omitempty" yaml:"rating,omitempty"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`
}

// FirstImage returns the first image URL or fallback if there are none.
func (l *Listing) FirstImage(fallback string) string {
	if len(l.Images) > 0 && l.Images[0] != "" {
		return l.Images[0]
	}
	return fallback
}

// HasPrice reports whether the listing carries a non-zero price.
func (l *Listing) HasPrice() bool {
	return l.Price != nil && *l.Price > 0
}
