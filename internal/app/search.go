package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"staybook/internal/domain"
)

const discountRate = 0.10

// SearchService serves availability queries with an optional flat member
// discount and a short-lived read-through cache.
//
// The cache is a bolt-on: it is never invalidated by bookings, so a result
// may show a room that was sold moments ago. The TTL bounds that staleness
// and the booking path re-validates against the store, so this is policy,
// not a bug.
//
// City matching is an exact comparison against the stored value; only the
// query input is whitespace-trimmed. No case folding or diacritic stripping;
// hotels.city carries a binary collation so the server cannot fold either.
type SearchService struct {
	repo     domain.InventoryRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewSearchService(r domain.InventoryRepository, c domain.Cache, ttl time.Duration) *SearchService {
	return &SearchService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	if !q.Start.Before(q.End) {
		return nil, domain.ErrInvalidRange
	}
	q.City = strings.TrimSpace(q.City)
	if q.Limit <= 0 {
		q.Limit = 50
	}

	key := searchKey(q)
	var cached []domain.SearchResult
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	rows, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	// Flat multiplier; ordering by base price from the store already equals
	// ordering by final price. Currency precision beyond the natural two
	// decimals is a display concern, not enforced here.
	if q.DiscountEligible {
		for i := range rows {
			rows[i].PricePerNight = rows[i].PricePerNight * (1 - discountRate)
		}
	}

	// copy before caching so callers mutating the returned slice cannot
	// poison the cached value
	out := make([]domain.SearchResult, len(rows))
	copy(out, rows)
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return rows, nil
}

func searchKey(q domain.SearchQuery) string {
	return fmt.Sprintf("search:%s:%s:%s:%d:%t:%d:%d",
		q.City,
		q.Start.UTC().Format("2006-01-02"),
		q.End.UTC().Format("2006-01-02"),
		q.Guests,
		q.DiscountEligible,
		q.Limit,
		q.Offset,
	)
}
