package listings

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"

	"github.com/sokoniarena/sokoni/internal/model"
)

// PageState is what the results area shows.
type PageState int

const (
	StateLoading PageState = iota
	StateError
	StateEmpty
	StateGrid
)

// String returns the string representation of the page state.
func (s PageState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateEmpty:
		return "empty"
	case StateGrid:
		return "grid"
	default:
		return "unknown"
	}
}

// Result is the output of a listings fetch as seen by a page.
type Result struct {
	Listings  []model.Listing
	IsLoading bool
	Error     error
}

// Card is a listing prepared for display.
type Card struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Image       string `json:"image" yaml:"image"`
	Location    string `json:"location" yaml:"location"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	Price       string `json:"price,omitempty" yaml:"price,omitempty"`
	EventDate   string `json:"event_date,omitempty" yaml:"event_date,omitempty"`
	Sponsored   bool   `json:"sponsored,omitempty" yaml:"sponsored,omitempty"`
	Featured    bool   `json:"featured,omitempty" yaml:"featured,omitempty"`
	Free        bool   `json:"free,omitempty" yaml:"free,omitempty"`
}

// Page is the view model of a browse page.
type Page struct {
	Catalog     Catalog   `json:"-" yaml:"-"`
	Query       Query     `json:"query" yaml:"query"`
	State       PageState `json:"-" yaml:"-"`
	Summary     string    `json:"summary" yaml:"summary"`
	Message     string    `json:"message,omitempty" yaml:"message,omitempty"`
	Cards       []Card    `json:"cards" yaml:"cards"`
	CanLoadMore bool      `json:"can_load_more" yaml:"can_load_more"`
}

var textPolicy = bluemonday.StrictPolicy()

// sanitize strips markup from user supplied text.
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// BuildPage turns a fetch result into a page.
func BuildPage(c Catalog, q Query, r Result) Page {
	p := Page{
		Catalog: c,
		Query:   q,
		Summary: fmt.Sprintf("Showing %d %s", len(r.Listings), c.Noun),
	}

	switch {
	case r.IsLoading:
		p.State = StateLoading
	case r.Error != nil:
		p.State = StateError
		p.Message = fmt.Sprintf("Error loading %s: %s", c.Noun, r.Error)
	case len(r.Listings) == 0:
		p.State = StateEmpty
		p.Message = fmt.Sprintf("No %s found matching your criteria.", c.Noun)
	default:
		p.State = StateGrid
		p.Cards = make([]Card, 0, len(r.Listings))
		for i := range r.Listings {
			p.Cards = append(p.Cards, NewCard(c, &r.Listings[i]))
		}
	}
	p.CanLoadMore = !r.IsLoading && len(r.Listings) > 0
	return p
}

// NewCard prepares a single listing for display.
func NewCard(c Catalog, l *model.Listing) Card {
	card := Card{
		ID:          l.ID,
		Title:       sanitize(l.Title),
		Description: sanitize(l.Description),
		Image:       l.FirstImage(c.DefaultImage),
		Location:    sanitize(l.Location),
		Category:    l.Category,
		Sponsored:   l.IsSponsored,
		Featured:    l.IsFeatured,
		Free:        l.IsFree,
	}
	switch {
	case l.IsFree:
		card.Price = "Free"
	case l.HasPrice():
		card.Price = FormatPrice(*l.Price)
	}
	if c.ShowDate && l.EventDate != nil {
		card.EventDate = l.EventDate.Format("Jan 2")
	}
	return card
}

// FormatPrice renders an amount in Kenyan shillings with thousands
// separators.
func FormatPrice(amount float64) string {
	if amount == math.Trunc(amount) {
		return "KES " + humanize.Comma(int64(amount))
	}
	return "KES " + humanize.CommafWithDigits(amount, 2)
}
