package listings

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/sokoniarena/sokoni/internal/model"
	"github.com/sokoniarena/sokoni/internal/supabase"
)

// DefaultLimit caps a single page of results.
const DefaultLimit = 50

// Fetcher loads listings for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) ([]model.Listing, error)
}

// SupabaseFetcher reads the listings table over PostgREST.
type SupabaseFetcher struct {
	client *supabase.Client
	limit  int
}

// NewSupabaseFetcher creates a fetcher over client.
func NewSupabaseFetcher(client *supabase.Client) *SupabaseFetcher {
	return &SupabaseFetcher{client: client, limit: DefaultLimit}
}

// Fetch implements Fetcher.
func (f *SupabaseFetcher) Fetch(ctx context.Context, q Query) ([]model.Listing, error) {
	qb := f.client.From("listings").
		Select("*").
		Eq("listing_type", q.Type)

	if cat := q.CategoryFilter(); cat != "" {
		qb = qb.Eq("category", cat)
	}
	if s := searchPattern(q.SearchQuery); s != "" {
		qb = qb.ILike("title", s)
	}

	column, ascending := orderFor(q.SortBy)
	qb = qb.Order(column, ascending).Limit(f.limit)

	var rows []model.Listing
	if err := qb.Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to fetch %s listings: %w", q.Type, err)
	}
	return rows, nil
}

// searchPattern turns free text into an ilike pattern. PostgREST
// reserved characters are dropped.
func searchPattern(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')', '*', '%':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return "*" + s + "*"
}

// orderFor maps a sort key to its column and direction.
func orderFor(sortBy string) (string, bool) {
	switch sortBy {
	case SortDate:
		return "event_date", true
	case SortPriceLow:
		return "price", true
	case SortPriceHigh:
		return "price", false
	case SortPopular:
		return "views_count", false
	case SortRating:
		return "rating", false
	default:
		return "created_at", false
	}
}

// MemoryFetcher serves listings from memory with the same filtering and
// ordering as SupabaseFetcher.
type MemoryFetcher struct {
	mu       sync.RWMutex
	listings []model.Listing
	err      error
}

// NewMemoryFetcher creates a fetcher over listings.
func NewMemoryFetcher(listings []model.Listing) *MemoryFetcher {
	return &MemoryFetcher{listings: listings}
}

// SetError makes every Fetch fail with err until cleared with nil.
func (f *MemoryFetcher) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Fetch implements Fetcher.
func (f *MemoryFetcher) Fetch(ctx context.Context, q Query) ([]model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return nil, f.err
	}

	cat := q.CategoryFilter()
	needle := strings.ToLower(strings.TrimSpace(q.SearchQuery))

	var out []model.Listing
	for _, l := range f.listings {
		if l.Type != q.Type {
			continue
		}
		if cat != "" && l.Category != cat {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(l.Title), needle) {
			continue
		}
		out = append(out, l)
	}

	slices.SortStableFunc(out, compareFor(q.SortBy))
	return out, nil
}

func compareFor(sortBy string) func(a, b model.Listing) int {
	price := func(l model.Listing) float64 {
		if l.Price == nil {
			return 0
		}
		return *l.Price
	}

	switch sortBy {
	case SortDate:
		return func(a, b model.Listing) int {
			switch {
			case a.EventDate == nil && b.EventDate == nil:
				return 0
			case a.EventDate == nil:
				return 1
			case b.EventDate == nil:
				return -1
			}
			return a.EventDate.Compare(*b.EventDate)
		}
	case SortPriceLow:
		return func(a, b model.Listing) int { return cmp.Compare(price(a), price(b)) }
	case SortPriceHigh:
		return func(a, b model.Listing) int { return cmp.Compare(price(b), price(a)) }
	case SortPopular:
		return func(a, b model.Listing) int { return cmp.Compare(b.Views, a.Views) }
	case SortRating:
		return func(a, b model.Listing) int { return cmp.Compare(b.Rating, a.Rating) }
	default:
		return func(a, b model.Listing) int { return b.CreatedAt.Compare(a.CreatedAt) }
	}
}
