package listings

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	pkgerrors "github.com/nochance19900208-source/Real-Estate/pkg/errors"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
	"github.com/nochance19900208-source/Real-Estate/pkg/pagination"
)

// Service exposes listing search and lookup.
type Service interface {
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)
	GetByID(ctx context.Context, rawID string) (*Listing, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Store  Store
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	store  Store
	logger *logger.Logger
	now    func() time.Time
}

// NewService validates dependencies and builds the listing service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("listing store is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		store:  params.Store,
		logger: params.Logger,
		now:    params.Now,
	}, nil
}

// Search fans the base filter out across every crawler collection, applies the
// derived-field filters, then sorts and paginates the union.
func (s *service) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	paging := pagination.Normalize(params.Page, params.Limit)

	names, err := s.store.CollectionNames(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listing collections")
	}
	if len(names) == 0 {
		return &SearchResult{
			Results:     []Listing{},
			CurrentPage: paging.Page,
		}, nil
	}

	filter := baseFilter(params)
	now := s.now()

	var matched []Listing
	for _, name := range names {
		batch, err := s.store.Find(ctx, name, filter)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query listings")
		}
		for i := range batch {
			listing := batch[i]
			listing.BuildingAreaNumeric = ExtractNumber(listing.BuildingArea)
			listing.LandAreaNumeric = ExtractNumber(listing.LandArea)
			listing.ConstructionYear = ExtractConstructionYear(listing.ConstructionDate, now)
			if !matchesDerivedFilters(&listing, params) {
				continue
			}
			matched = append(matched, listing)
		}
	}

	sortListings(matched, params.SortBy, params.SortOrder)

	total := int64(len(matched))
	start := paging.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + paging.Limit
	if end > len(matched) {
		end = len(matched)
	}

	page := matched[start:end]
	if page == nil {
		page = []Listing{}
	}

	return &SearchResult{
		Results:     page,
		TotalCount:  total,
		TotalPages:  paging.TotalPages(total),
		CurrentPage: paging.Page,
	}, nil
}

// GetByID scans collections in order until one holds the listing.
func (s *service) GetByID(ctx context.Context, rawID string) (*Listing, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing ID format")
	}

	names, err := s.store.CollectionNames(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listing collections")
	}

	for _, name := range names {
		listing, err := s.store.FindByID(ctx, name, id)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup listing")
		}
		return listing, nil
	}

	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Listing not found")
}

// baseFilter builds the document-level Mongo filter. A numeric Sale Price is
// always required, so unpriced listings never surface in search.
func baseFilter(params SearchParams) bson.M {
	filter := bson.M{}
	if params.Prefecture != "" {
		filter["Prefecture"] = params.Prefecture
	}
	if params.Layout != "" {
		filter["Building - Layout"] = params.Layout
	}

	price := bson.M{"$exists": true, "$type": "number"}
	if params.SalePriceMin != nil {
		price["$gte"] = *params.SalePriceMin
	}
	if params.SalePriceMax != nil {
		price["$lte"] = *params.SalePriceMax
	}
	filter["Sale Price"] = price

	return filter
}

// matchesDerivedFilters applies the range filters that depend on values parsed
// out of free-text fields. A listing without a parsable value is excluded from
// any range it cannot satisfy.
func matchesDerivedFilters(l *Listing, params SearchParams) bool {
	if params.BuildingAreaMin != nil && (l.BuildingAreaNumeric == nil || *l.BuildingAreaNumeric < float64(*params.BuildingAreaMin)) {
		return false
	}
	if params.BuildingAreaMax != nil && (l.BuildingAreaNumeric == nil || *l.BuildingAreaNumeric > float64(*params.BuildingAreaMax)) {
		return false
	}
	if params.LandAreaMin != nil && (l.LandAreaNumeric == nil || *l.LandAreaNumeric < float64(*params.LandAreaMin)) {
		return false
	}
	if params.LandAreaMax != nil && (l.LandAreaNumeric == nil || *l.LandAreaNumeric > float64(*params.LandAreaMax)) {
		return false
	}
	if params.ConstructionYearMin != nil && (l.ConstructionYear == nil || *l.ConstructionYear < *params.ConstructionYearMin) {
		return false
	}
	if params.ConstructionYearMax != nil && (l.ConstructionYear == nil || *l.ConstructionYear > *params.ConstructionYearMax) {
		return false
	}
	return true
}

func sortListings(items []Listing, by SortField, order SortOrder) {
	asc := order == SortAsc
	switch by {
	case SortBySalePrice:
		sort.SliceStable(items, func(i, j int) bool {
			a, b := priceOrZero(items[i].SalePrice), priceOrZero(items[j].SalePrice)
			if asc {
				return a < b
			}
			return a > b
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			if asc {
				return items[i].CreatedAt.Before(items[j].CreatedAt)
			}
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})
	}
}

func priceOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
