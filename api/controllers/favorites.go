package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nochance19900208-source/Real-Estate/api/middleware"
	"github.com/nochance19900208-source/Real-Estate/api/responses"
	"github.com/nochance19900208-source/Real-Estate/api/validators"
	"github.com/nochance19900208-source/Real-Estate/internal/favorites"
	pkgerrors "github.com/nochance19900208-source/Real-Estate/pkg/errors"
	"github.com/nochance19900208-source/Real-Estate/pkg/logger"
)

func ListFavorites(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		ids, err := svc.ListingIDs(r.Context(), user.PublicID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string][]string{"favorites": ids})
	}
}

func CreateFavorite(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body struct {
			ListingID string `json:"listing_id" validate:"required"`
		}
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		favorite, err := svc.Create(r.Context(), user.PublicID(), body.ListingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, favorite)
	}
}

func DeleteFavorite(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		favorite, err := svc.Delete(r.Context(), user.PublicID(), chi.URLParam(r, "listingID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, favorite)
	}
}
