package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hariombakery/khakhra-backend/api/responses"
	"github.com/hariombakery/khakhra-backend/api/validators"
	cartsvc "github.com/hariombakery/khakhra-backend/internal/cart"
	hampersvc "github.com/hariombakery/khakhra-backend/internal/hamper"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
)

type openHamperRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

type updateHamperRequest struct {
	ProductID uuid.UUID      `json:"product_id" validate:"required"`
	Counts    map[string]int `json:"counts" validate:"required"`
	Flavor    string         `json:"flavor" validate:"required"`
	Delta     int            `json:"delta" validate:"required"`
}

type commitHamperRequest struct {
	ProductID uuid.UUID      `json:"product_id" validate:"required"`
	Counts    map[string]int `json:"counts" validate:"required"`
}

// OpenHamper seeds a fresh selection for a hamper product.
func OpenHamper(svc hampersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hamper service unavailable"))
			return
		}

		var payload openHamperRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.Open(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

// UpdateHamper applies one flavor delta to the client's current counts and
// returns the recomputed selection.
func UpdateHamper(svc hampersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hamper service unavailable"))
			return
		}

		var payload updateHamperRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.Update(r.Context(), payload.ProductID, payload.Counts, payload.Flavor, payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

// CommitHamper finalizes a selection into a buy-now line for direct checkout.
func CommitHamper(svc hampersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hamper service unavailable"))
			return
		}

		var payload commitHamperRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.Commit(r.Context(), payload.ProductID, payload.Counts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, line)
	}
}

// AddHamperToCart commits a selection and inserts it into the user's cart as
// a single line with the flavor breakdown.
func AddHamperToCart(svc hampersvc.Service, cart cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || cart == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "hamper service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload commitHamperRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.Commit(r.Context(), payload.ProductID, payload.Counts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := cart.AddHamperLine(r.Context(), userID, cartsvc.HamperLine{
			ProductID:      line.ProductID,
			Name:           line.Name,
			UnitPricePaise: line.UnitPricePaise,
			ImageURL:       line.ImageURL,
			Contents:       line.Contents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}
