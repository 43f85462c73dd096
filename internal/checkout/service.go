package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hariombakery/khakhra-backend/internal/cart"
	"github.com/hariombakery/khakhra-backend/internal/orders"
	"github.com/hariombakery/khakhra-backend/internal/pricing"
	"github.com/hariombakery/khakhra-backend/internal/products"
	"github.com/hariombakery/khakhra-backend/pkg/db/models"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
	"github.com/hariombakery/khakhra-backend/pkg/metrics"
	"github.com/hariombakery/khakhra-backend/pkg/outbox"
	"github.com/hariombakery/khakhra-backend/pkg/outbox/payloads"
	"github.com/hariombakery/khakhra-backend/pkg/payment"
	"github.com/hariombakery/khakhra-backend/pkg/types"
)

var phoneRe = regexp.MustCompile(`^[\d\s\-+]{10,}$`)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CustomerInfo is the validated shipping form.
type CustomerInfo struct {
	Name    string
	Email   string
	Phone   string
	Address string
	State   string
}

// BuyNowItem is the staged line for a direct (hamper) checkout.
type BuyNowItem struct {
	ProductID      uuid.UUID
	Name           string
	UnitPricePaise int64
	Quantity       int
	ImageURL       *string
	Contents       types.HamperContents
}

// Input is a complete checkout submission.
type Input struct {
	Kind          enums.CheckoutKind
	PaymentMethod enums.PaymentMethod
	Customer      CustomerInfo
	Item          *BuyNowItem
}

// Result reports where the submission landed. Payment is set only when an
// online session was opened.
type Result struct {
	State   enums.CheckoutState `json:"state"`
	Order   *orders.OrderDetail `json:"order"`
	Payment *payment.Session    `json:"payment,omitempty"`
}

// Service orchestrates checkout: validation, stock reservation, order
// creation, and the payment session handoff.
type Service interface {
	Submit(ctx context.Context, userID uuid.UUID, input Input) (*Result, error)
	CreatePaymentSession(ctx context.Context, userID, orderID uuid.UUID) (*Result, error)
	Confirm(ctx context.Context, userID, orderID uuid.UUID, paymentRef string) (*orders.OrderDetail, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) error
}

type service struct {
	tx         txRunner
	orderRepo  orders.Repository
	cartRepo   cart.Repository
	products   products.Repository
	pricer     *pricing.Engine
	gateway    payment.Gateway
	outbox     outboxEmitter
	storefront *metrics.StorefrontMetrics
	logg       *logger.Logger
}

// NewService builds the checkout orchestrator.
func NewService(
	tx txRunner,
	orderRepo orders.Repository,
	cartRepo cart.Repository,
	productRepo products.Repository,
	pricer *pricing.Engine,
	gateway payment.Gateway,
	emitter outboxEmitter,
	storefront *metrics.StorefrontMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		tx:         tx,
		orderRepo:  orderRepo,
		cartRepo:   cartRepo,
		products:   productRepo,
		pricer:     pricer,
		gateway:    gateway,
		outbox:     emitter,
		storefront: storefront,
		logg:       logg,
	}, nil
}

func (s *service) Submit(ctx context.Context, userID uuid.UUID, input Input) (*Result, error) {
	started := time.Now()
	result, placed, err := s.submit(ctx, userID, input)
	if placed {
		// the order row exists even when the gateway call after the commit
		// failed; only submissions that produced no order count as failures
		s.storefront.IncOrderPlaced(string(input.PaymentMethod))
	}
	if err != nil {
		if !placed {
			s.storefront.IncCheckoutFailure(failureReason(err))
		}
		return nil, err
	}
	s.storefront.ObserveCheckoutDuration(string(input.PaymentMethod), time.Since(started))
	return result, nil
}

func (s *service) submit(ctx context.Context, userID uuid.UUID, input Input) (*Result, bool, error) {
	if userID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Kind.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "unknown checkout kind")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if fieldErrors := validateCustomer(input.Customer); len(fieldErrors) > 0 {
		// draft returns to editing; nothing was submitted
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "checkout form has errors").
			WithDetails(fieldErrors)
	}

	lines, cartID, err := s.resolveLines(ctx, userID, input)
	if err != nil {
		return nil, false, err
	}

	totals := s.pricer.ComputeTotals(lineAmounts(lines), input.Customer.State)

	order := &models.Order{
		UserID:          userID,
		CartID:          cartID,
		Kind:            input.Kind,
		CustomerName:    strings.TrimSpace(input.Customer.Name),
		CustomerEmail:   strings.TrimSpace(input.Customer.Email),
		CustomerPhone:   strings.TrimSpace(input.Customer.Phone),
		ShippingAddress: strings.TrimSpace(input.Customer.Address),
		DeliveryState:   strings.TrimSpace(input.Customer.State),
		PaymentMethod:   input.PaymentMethod,
		Status:          enums.OrderStatusPending,
		SubtotalPaise:   totals.SubtotalPaise,
		DeliveryPaise:   totals.DeliveryPaise,
		TaxPaise:        totals.TaxPaise,
		TotalPaise:      totals.TotalPaise,
		Items:           lines,
	}

	codCartCheckout := input.PaymentMethod == enums.PaymentMethodCOD && input.Kind == enums.CheckoutKindCart

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productRepo := s.products.WithTx(tx)
		for _, line := range lines {
			if line.ProductID == nil {
				continue
			}
			if err := productRepo.DecrementStock(ctx, *line.ProductID, line.Quantity); err != nil {
				if errors.Is(err, products.ErrInsufficientStock) {
					return pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("%s is no longer available in that quantity", line.Name)).
						WithDetails(map[string]any{"product_id": line.ProductID.String()})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
		}

		if _, err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if codCartCheckout && cartID != nil {
			cartRepo := s.cartRepo.WithTx(tx)
			if err := cartRepo.MarkConverted(ctx, *cartID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: &userID},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				CustomerName:  order.CustomerName,
				CustomerEmail: order.CustomerEmail,
				PaymentMethod: order.PaymentMethod,
				TotalPaise:    order.TotalPaise,
				PlacedAt:      time.Now(),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, false, err
	}

	s.logOrder(ctx, order, "order created")

	if input.PaymentMethod == enums.PaymentMethodCOD {
		return &Result{
			State: enums.CheckoutStateSubmitted,
			Order: orders.DetailFromModel(order),
		}, true, nil
	}

	// online: the pending order exists; open the payment session. A gateway
	// failure leaves the order pending and hands control back to the user.
	session, err := s.openPaymentSession(ctx, order)
	if err != nil {
		return nil, true, err
	}

	return &Result{
		State:   enums.CheckoutStatePaymentPending,
		Order:   orders.DetailFromModel(order),
		Payment: session,
	}, true, nil
}

// CreatePaymentSession re-opens a payment session for a pending online order.
// This is the manual retry leg after a gateway failure.
func (s *service) CreatePaymentSession(ctx context.Context, userID, orderID uuid.UUID) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodOnline {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order does not await online payment")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is already %s", order.Status))
	}

	session, err := s.openPaymentSession(ctx, order)
	if err != nil {
		return nil, err
	}

	return &Result{
		State:   enums.CheckoutStatePaymentPending,
		Order:   orders.DetailFromModel(order),
		Payment: session,
	}, nil
}

func (s *service) openPaymentSession(ctx context.Context, order *models.Order) (*payment.Session, error) {
	session, err := s.gateway.CreateSession(ctx, payment.SessionRequest{
		OrderID:       order.ID,
		AmountPaise:   order.TotalPaise,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
	})
	if err != nil {
		s.logOrder(ctx, order, "payment session failed")
		return nil, err
	}

	updates := map[string]any{}
	if session.PaymentSessionID != nil {
		order.PaymentSessionID = session.PaymentSessionID
		updates["payment_session_id"] = *session.PaymentSessionID
	}
	if session.PaymentLink != nil {
		order.PaymentLink = session.PaymentLink
		updates["payment_link"] = *session.PaymentLink
	}
	if err := s.orderRepo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment session")
	}
	return session, nil
}

func (s *service) Confirm(ctx context.Context, userID, orderID uuid.UUID, paymentRef string) (*orders.OrderDetail, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(paymentRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	order, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.PaymentMethodOnline {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order does not await online payment")
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is already %s", order.Status))
	}

	ref := strings.TrimSpace(paymentRef)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		if err := orderRepo.Update(ctx, order.ID, map[string]any{
			"status":      enums.OrderStatusConfirmed,
			"payment_ref": ref,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
		}

		if order.Kind == enums.CheckoutKindCart && order.CartID != nil {
			if err := s.cartRepo.WithTx(tx).MarkConverted(ctx, *order.CartID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: &userID},
			Data: payloads.OrderConfirmedEvent{
				OrderID:     order.ID,
				PaymentRef:  ref,
				ConfirmedAt: time.Now(),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusConfirmed
	order.PaymentRef = &ref
	s.logOrder(ctx, order, "order confirmed")
	return orders.DetailFromModel(order), nil
}

func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if order.PaymentMethod != enums.PaymentMethodOnline || order.Status != enums.OrderStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending online orders can be cancelled")
	}

	// the cart is deliberately untouched; the user lands back on the form
	if err := s.orderRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}
	s.logOrder(ctx, order, "order cancelled")
	return nil
}

func (s *service) resolveLines(ctx context.Context, userID uuid.UUID, input Input) ([]models.OrderLineItem, *uuid.UUID, error) {
	switch input.Kind {
	case enums.CheckoutKindBuyNow:
		if input.Item == nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "buy-now checkout requires an item")
		}
		item := *input.Item
		if item.ProductID == uuid.Nil || item.Quantity <= 0 || item.UnitPricePaise <= 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "incomplete buy-now item")
		}
		productID := item.ProductID
		return []models.OrderLineItem{{
			ProductID:      &productID,
			Name:           item.Name,
			UnitPricePaise: item.UnitPricePaise,
			Quantity:       item.Quantity,
			TotalPaise:     item.UnitPricePaise * int64(item.Quantity),
			ImageURL:       item.ImageURL,
			Contents:       item.Contents,
		}}, nil, nil

	default:
		record, err := s.cartRepo.FindActiveByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(record.Items) == 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		lines := make([]models.OrderLineItem, 0, len(record.Items))
		for _, item := range record.Items {
			productID := item.ProductID
			lines = append(lines, models.OrderLineItem{
				ProductID:      &productID,
				Name:           item.Name,
				UnitPricePaise: item.UnitPricePaise,
				Quantity:       item.Quantity,
				TotalPaise:     item.UnitPricePaise * int64(item.Quantity),
				ImageURL:       item.ImageURL,
				Contents:       item.Contents,
			})
		}
		cartID := record.ID
		return lines, &cartID, nil
	}
}

func (s *service) loadOwned(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) logOrder(ctx context.Context, order *models.Order, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"kind":           order.Kind,
		"payment_method": order.PaymentMethod,
		"total_paise":    order.TotalPaise,
	})
	s.logg.Info(logCtx, msg)
}

func validateCustomer(customer CustomerInfo) map[string]string {
	fieldErrors := map[string]string{}
	if strings.TrimSpace(customer.Name) == "" {
		fieldErrors["name"] = "name is required"
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(customer.Email)); err != nil {
		fieldErrors["email"] = "a valid email is required"
	}
	if !phoneRe.MatchString(strings.TrimSpace(customer.Phone)) {
		fieldErrors["phone"] = "phone must be at least 10 digits"
	}
	if strings.TrimSpace(customer.Address) == "" {
		fieldErrors["address"] = "address is required"
	}
	if strings.TrimSpace(customer.State) == "" {
		fieldErrors["state"] = "delivery state is required"
	}
	return fieldErrors
}

func lineAmounts(lines []models.OrderLineItem) []pricing.LineAmount {
	amounts := make([]pricing.LineAmount, 0, len(lines))
	for _, line := range lines {
		amounts = append(amounts, pricing.LineAmount{
			UnitPricePaise: line.UnitPricePaise,
			Quantity:       line.Quantity,
		})
	}
	return amounts
}

func failureReason(err error) string {
	if appErr := pkgerrors.As(err); appErr != nil {
		return string(appErr.Code())
	}
	return "unknown"
}
