package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hariombakery/khakhra-backend/api/responses"
	"github.com/hariombakery/khakhra-backend/api/validators"
	checkoutsvc "github.com/hariombakery/khakhra-backend/internal/checkout"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
	"github.com/hariombakery/khakhra-backend/pkg/types"
)

type checkoutCustomerRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,inphone"`
	Address string `json:"address" validate:"required"`
	State   string `json:"state" validate:"required"`
}

type buyNowItemRequest struct {
	ProductID      uuid.UUID            `json:"product_id" validate:"required"`
	Name           string               `json:"name" validate:"required"`
	UnitPricePaise int64                `json:"unit_price_paise" validate:"required,gt=0"`
	Quantity       int                  `json:"quantity" validate:"required,gt=0"`
	ImageURL       *string              `json:"image_url,omitempty"`
	Contents       types.HamperContents `json:"contents,omitempty"`
}

type checkoutRequest struct {
	Kind          string                  `json:"kind" validate:"required"`
	PaymentMethod string                  `json:"payment_method" validate:"required"`
	Customer      checkoutCustomerRequest `json:"customer" validate:"required"`
	Item          *buyNowItemRequest      `json:"item,omitempty"`
}

func (req checkoutRequest) toInput() (checkoutsvc.Input, error) {
	kind, err := enums.ParseCheckoutKind(req.Kind)
	if err != nil {
		return checkoutsvc.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout kind").
			WithDetails(map[string]string{"kind": "must be cart or buy_now"})
	}
	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return checkoutsvc.Input{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
			WithDetails(map[string]string{"payment_method": "must be cod or online"})
	}

	input := checkoutsvc.Input{
		Kind:          kind,
		PaymentMethod: method,
		Customer: checkoutsvc.CustomerInfo{
			Name:    validators.SanitizeString(req.Customer.Name),
			Email:   validators.SanitizeString(req.Customer.Email),
			Phone:   validators.SanitizeString(req.Customer.Phone),
			Address: validators.SanitizeString(req.Customer.Address),
			State:   validators.SanitizeString(req.Customer.State),
		},
	}
	if req.Item != nil {
		input.Item = &checkoutsvc.BuyNowItem{
			ProductID:      req.Item.ProductID,
			Name:           req.Item.Name,
			UnitPricePaise: req.Item.UnitPricePaise,
			Quantity:       req.Item.Quantity,
			ImageURL:       req.Item.ImageURL,
			Contents:       req.Item.Contents,
		}
	}
	return input, nil
}

type confirmCheckoutRequest struct {
	PaymentRef string `json:"payment_ref" validate:"required"`
}

type createPaymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

// SubmitCheckout runs the full submission: validation, stock reservation,
// order creation, and the payment session handoff for online orders.
func SubmitCheckout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// CreatePaymentSession reopens a payment session for a pending online order
// after a gateway failure.
func CreatePaymentSession(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreatePaymentSession(r.Context(), userID, payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func ConfirmCheckout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Confirm(r.Context(), userID, orderID, payload.PaymentRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func CancelCheckout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), userID, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}
