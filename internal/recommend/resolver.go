// Package recommend turns a derived top-interest tag into a ranked slice of
// content. Recommendations are a best-effort enhancement: every failure
// path here collapses to an empty result, never an error the page has to
// handle.
package recommend

import (
	"context"
	"strings"
	"time"

	"github.com/dalilsuez/backend/internal/logger"
	"github.com/dalilsuez/backend/internal/metrics"
	"github.com/dalilsuez/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Content domains a tag may address
const (
	DomainMarket = "market"
	DomainPlaces = "places"
)

// DefaultLimit bounds a recommendation query when the caller doesn't
const DefaultLimit = 10

// MaxLimit is the hard cap on one recommendation response
const MaxLimit = 50

// ContentItem is one recommended entity, flattened across domains
type ContentItem struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Price     *float64  `json:"price,omitempty"` // marketplace only
	ViewCount int       `json:"view_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ParseTag splits the conventional "<domain>_<categorySlug>" interest tag.
// ok is false for tags that don't name a known domain.
func ParseTag(tag string) (domain, category string, ok bool) {
	domain, category, found := strings.Cut(tag, "_")
	if !found || category == "" {
		return "", "", false
	}
	if domain != DomainMarket && domain != DomainPlaces {
		return "", "", false
	}
	return domain, category, true
}

// Resolver queries the content store for items matching an interest tag
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a resolver over the content store
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Recommend maps the tag to a content query and returns up to limit items
// in the store's natural order, newest first. Unparsable tags and query
// failures return an empty slice. Each call re-executes the query; no
// cursor or pagination state is retained.
func (r *Resolver) Recommend(ctx context.Context, tag string, limit int) []ContentItem {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	domain, category, ok := ParseTag(tag)
	if !ok {
		logger.Log.Debug("recommendation tag unparsable, returning empty",
			zap.String("tag", tag),
		)
		return []ContentItem{}
	}

	items, err := r.query(ctx, domain, category, limit)
	if err != nil {
		logger.WarnWithError("recommendation query failed, returning empty", err)
		return []ContentItem{}
	}

	metrics.Get().RecommendationsServed.WithLabelValues(domain).Add(float64(len(items)))
	return items
}

func (r *Resolver) query(ctx context.Context, domain, category string, limit int) ([]ContentItem, error) {
	db := r.db.WithContext(ctx)
	items := make([]ContentItem, 0, limit)

	switch domain {
	case DomainMarket:
		var listings []models.Listing
		err := db.Where("category = ?", category).
			Order("created_at DESC").
			Limit(limit).
			Find(&listings).Error
		if err != nil {
			return nil, err
		}
		for _, l := range listings {
			price := l.Price
			items = append(items, ContentItem{
				ID:        l.ID,
				Domain:    DomainMarket,
				Category:  l.Category,
				Title:     l.Title,
				Price:     &price,
				ViewCount: l.ViewCount,
				CreatedAt: l.CreatedAt,
			})
		}
	case DomainPlaces:
		var places []models.Place
		err := db.Where("category = ?", category).
			Order("created_at DESC").
			Limit(limit).
			Find(&places).Error
		if err != nil {
			return nil, err
		}
		for _, p := range places {
			items = append(items, ContentItem{
				ID:        p.ID,
				Domain:    DomainPlaces,
				Category:  p.Category,
				Title:     p.Name,
				ViewCount: p.ViewCount,
				CreatedAt: p.CreatedAt,
			})
		}
	}

	return items, nil
}
