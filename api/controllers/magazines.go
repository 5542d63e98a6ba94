package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ohyerin/magpress-backend/api/middleware"
	"github.com/ohyerin/magpress-backend/api/responses"
	"github.com/ohyerin/magpress-backend/api/validators"
	"github.com/ohyerin/magpress-backend/internal/magazines"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
	"github.com/ohyerin/magpress-backend/pkg/logger"
)

// MagazineList is public: summaries only, premium body withheld.
func MagazineList(svc magazines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		filter := magazines.ListFilter{Category: r.URL.Query().Get("category")}
		summaries, err := svc.List(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summaries)
	}
}

// MagazineDetail gates premium content behind an active subscription.
func MagazineDetail(svc magazines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := uuid.Parse(chi.URLParam(r, "magazineId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid magazine id"))
			return
		}

		magazine, err := svc.Get(ctx, id, middleware.UserUUIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, magazine)
	}
}

// MagazineCreate publishes a new article for the authenticated user.
func MagazineCreate(svc magazines.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input magazines.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		magazine, err := svc.Create(ctx, middleware.UserUUIDFromContext(ctx), input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, magazine)
	}
}
