package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hariombakery/khakhra-backend/api/responses"
	"github.com/hariombakery/khakhra-backend/api/validators"
	productsvc "github.com/hariombakery/khakhra-backend/internal/products"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
)

type createProductRequest struct {
	Name               string   `json:"name" validate:"required"`
	Description        *string  `json:"description,omitempty"`
	Category           string   `json:"category" validate:"required"`
	PricePaise         int64    `json:"price_paise" validate:"required,gt=0"`
	OriginalPricePaise *int64   `json:"original_price_paise,omitempty" validate:"omitempty,gt=0"`
	Stock              int      `json:"stock" validate:"gte=0"`
	ImageURL           *string  `json:"image_url,omitempty"`
	IsHamper           bool     `json:"is_hamper"`
	PacketsPerHamper   int      `json:"packets_per_hamper,omitempty" validate:"omitempty,gt=0"`
	PacketPricePaise   int64    `json:"packet_price_paise,omitempty" validate:"omitempty,gt=0"`
	PacketWeightGrams  int      `json:"packet_weight_grams,omitempty" validate:"omitempty,gt=0"`
	Flavors            []string `json:"flavors,omitempty" validate:"omitempty,dive,required"`
}

func (req createProductRequest) toCreateInput() (productsvc.CreateInput, error) {
	category, err := enums.ParseProductCategory(req.Category)
	if err != nil {
		return productsvc.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category").
			WithDetails(map[string]string{"category": "unknown category"})
	}
	return productsvc.CreateInput{
		Name:               validators.SanitizeString(req.Name),
		Description:        req.Description,
		Category:           category,
		PricePaise:         req.PricePaise,
		OriginalPricePaise: req.OriginalPricePaise,
		Stock:              req.Stock,
		ImageURL:           req.ImageURL,
		IsHamper:           req.IsHamper,
		PacketsPerHamper:   req.PacketsPerHamper,
		PacketPricePaise:   req.PacketPricePaise,
		PacketWeightGrams:  req.PacketWeightGrams,
		Flavors:            req.Flavors,
	}, nil
}

type updateProductRequest struct {
	Name               *string  `json:"name,omitempty"`
	Description        *string  `json:"description,omitempty"`
	Category           *string  `json:"category,omitempty"`
	PricePaise         *int64   `json:"price_paise,omitempty" validate:"omitempty,gt=0"`
	OriginalPricePaise *int64   `json:"original_price_paise,omitempty" validate:"omitempty,gt=0"`
	ImageURL           *string  `json:"image_url,omitempty"`
	IsActive           *bool    `json:"is_active,omitempty"`
	PacketsPerHamper   *int     `json:"packets_per_hamper,omitempty" validate:"omitempty,gt=0"`
	PacketPricePaise   *int64   `json:"packet_price_paise,omitempty" validate:"omitempty,gt=0"`
	PacketWeightGrams  *int     `json:"packet_weight_grams,omitempty" validate:"omitempty,gt=0"`
	Flavors            []string `json:"flavors,omitempty" validate:"omitempty,dive,required"`
}

func (req updateProductRequest) toUpdateInput() (productsvc.UpdateInput, error) {
	input := productsvc.UpdateInput{
		Description:        req.Description,
		PricePaise:         req.PricePaise,
		OriginalPricePaise: req.OriginalPricePaise,
		ImageURL:           req.ImageURL,
		IsActive:           req.IsActive,
		PacketsPerHamper:   req.PacketsPerHamper,
		PacketPricePaise:   req.PacketPricePaise,
		PacketWeightGrams:  req.PacketWeightGrams,
		Flavors:            req.Flavors,
	}
	if req.Name != nil {
		cleaned := validators.SanitizeString(*req.Name)
		if cleaned == "" {
			return productsvc.UpdateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid name").
				WithDetails(map[string]string{"name": "must not be blank"})
		}
		input.Name = &cleaned
	}
	if req.Category != nil {
		category, err := enums.ParseProductCategory(*req.Category)
		if err != nil {
			return productsvc.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category").
				WithDetails(map[string]string{"category": "unknown category"})
		}
		input.Category = &category
	}
	return input, nil
}

type adjustStockRequest struct {
	Delta int `json:"delta" validate:"required"`
}

func AdminListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAll(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

func AdminCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func AdminUpdateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// AdminDeleteProduct deactivates a product. Rows are never dropped so past
// orders keep their references.
func AdminDeleteProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

func AdminAdjustStock(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		id, err := pathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AdjustStock(r.Context(), id, payload.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}
