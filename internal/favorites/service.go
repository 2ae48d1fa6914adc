package favorites

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nochance19900208-source/Real-Estate/internal/listings"
	pkgerrors "github.com/nochance19900208-source/Real-Estate/pkg/errors"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
)

// Service manages a user's saved listings.
type Service interface {
	Create(ctx context.Context, userID, rawListingID string) (*Favorite, error)
	Delete(ctx context.Context, userID, listingID string) (*Favorite, error)
	ListingIDs(ctx context.Context, userID string) ([]string, error)
}

// ListingLookup confirms a listing exists before it can be favorited.
type ListingLookup interface {
	GetByID(ctx context.Context, rawID string) (*listings.Listing, error)
}

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, userID, listingID string) (*Favorite, error)
	Exists(ctx context.Context, userID, listingID string) (bool, error)
	Delete(ctx context.Context, userID, listingID string) error
	ListingIDs(ctx context.Context, userID string) ([]string, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Store    Store
	Listings ListingLookup
	Logger   *logger.Logger
}

type service struct {
	store    Store
	listings ListingLookup
	logger   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("favorite store is required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing lookup is required")
	}
	return &service{
		store:    params.Store,
		listings: params.Listings,
		logger:   params.Logger,
	}, nil
}

// Create validates the listing id, confirms the listing exists, and saves the
// favorite unless it is already present.
func (s *service) Create(ctx context.Context, userID, rawListingID string) (*Favorite, error) {
	listingID := cleanListingID(rawListingID)
	if _, err := uuid.Parse(listingID); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid listing ID format")
	}

	if _, err := s.listings.GetByID(ctx, listingID); err != nil {
		return nil, err
	}

	exists, err := s.store.Exists(ctx, userID, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check favorite")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "Already favoriting this listing")
	}

	fav, err := s.store.Insert(ctx, userID, listingID)
	if err != nil {
		if pkgerrors.IsDuplicateKey(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "Already favoriting this listing")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save favorite")
	}
	return fav, nil
}

// Delete always succeeds for well-formed input, whether or not the favorite
// existed.
func (s *service) Delete(ctx context.Context, userID, listingID string) (*Favorite, error) {
	if err := s.store.Delete(ctx, userID, listingID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete favorite")
	}
	return &Favorite{UserID: userID, ListingID: listingID}, nil
}

func (s *service) ListingIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.ListingIDs(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// cleanListingID strips whitespace and stray quote characters clients have
// been observed to send.
func cleanListingID(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), `"'`)
}
