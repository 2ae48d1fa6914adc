package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nochance19900208-source/Real-Estate/api/responses"
	"github.com/nochance19900208-source/Real-Estate/api/validators"
	"github.com/nochance19900208-source/Real-Estate/internal/listings"
	pkgerrors "github.com/nochance19900208-source/Real-Estate/pkg/errors"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
	"github.com/nochance19900208-source/Real-Estate/pkg/pagination"
)

// SearchListings filters, sorts and paginates across every listing collection.
func SearchListings(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parseSearchParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Search(r.Context(), *params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listing, err := svc.GetByID(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

func parseSearchParams(r *http.Request) (*listings.SearchParams, error) {
	params := listings.SearchParams{
		Prefecture: strings.TrimSpace(r.URL.Query().Get("prefecture")),
		Layout:     strings.TrimSpace(r.URL.Query().Get("layout")),
		SortBy:     listings.SortByCreatedAt,
		SortOrder:  listings.SortDesc,
	}

	for key, dest := range map[string]**int{
		"sale_price_min":        &params.SalePriceMin,
		"sale_price_max":        &params.SalePriceMax,
		"building_area_min":     &params.BuildingAreaMin,
		"building_area_max":     &params.BuildingAreaMax,
		"land_area_min":         &params.LandAreaMin,
		"land_area_max":         &params.LandAreaMax,
		"construction_year_min": &params.ConstructionYearMin,
		"construction_year_max": &params.ConstructionYearMax,
	} {
		value, err := validators.ParseOptionalQueryInt(r, key)
		if err != nil {
			return nil, err
		}
		*dest = value
	}

	if raw := r.URL.Query().Get("sort_by"); raw != "" {
		switch listings.SortField(raw) {
		case listings.SortByCreatedAt, listings.SortBySalePrice:
			params.SortBy = listings.SortField(raw)
		default:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sort_by must be createdAt or sale_price")
		}
	}
	if raw := r.URL.Query().Get("sort_order"); raw != "" {
		switch listings.SortOrder(raw) {
		case listings.SortAsc, listings.SortDesc:
			params.SortOrder = listings.SortOrder(raw)
		default:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "sort_order must be asc or desc")
		}
	}

	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		return nil, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return nil, err
	}
	params.Page = page
	params.Limit = limit
	return &params, nil
}
