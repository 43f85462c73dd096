package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hariombakery/khakhra-backend/internal/cart"
	"github.com/hariombakery/khakhra-backend/internal/orders"
	"github.com/hariombakery/khakhra-backend/internal/pricing"
	"github.com/hariombakery/khakhra-backend/internal/products"
	"github.com/hariombakery/khakhra-backend/pkg/config"
	"github.com/hariombakery/khakhra-backend/pkg/db/models"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/metrics"
	"github.com/hariombakery/khakhra-backend/pkg/outbox"
	"github.com/hariombakery/khakhra-backend/pkg/pagination"
	"github.com/hariombakery/khakhra-backend/pkg/payment"
)

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOrderRepo struct {
	created *models.Order
	found   *models.Order
	findErr error
	updates map[string]any
	status  *enums.OrderStatus
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	s.created = order
	return order, nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.found, nil
}

func (s *stubOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrderRepo) ListAll(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrderRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if s.updates == nil {
		s.updates = map[string]any{}
	}
	for k, v := range updates {
		s.updates[k] = v
	}
	return nil
}

func (s *stubOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) error {
	s.status = &status
	return nil
}

func (s *stubOrderRepo) MarkEmailSent(ctx context.Context, id uuid.UUID) error { return nil }

type stubCartRepo struct {
	cart      *models.CartRecord
	findErr   error
	converted *uuid.UUID
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cart.Repository { return s }

func (s *stubCartRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.cart, nil
}

func (s *stubCartRepo) Create(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	return record, nil
}

func (s *stubCartRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) CreateItem(ctx context.Context, item *models.CartItem) error { return nil }

func (s *stubCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return nil
}

func (s *stubCartRepo) DeleteItem(ctx context.Context, cartID, productID uuid.UUID) error { return nil }

func (s *stubCartRepo) ClearItems(ctx context.Context, cartID uuid.UUID) error { return nil }

func (s *stubCartRepo) MarkConverted(ctx context.Context, cartID uuid.UUID) error {
	s.converted = &cartID
	return nil
}

type stubProductRepo struct {
	decremented  map[uuid.UUID]int
	decrementErr error
}

func (s *stubProductRepo) WithTx(tx *gorm.DB) products.Repository { return s }

func (s *stubProductRepo) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	return product, nil
}

func (s *stubProductRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubProductRepo) Deactivate(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProductRepo) List(ctx context.Context, params pagination.Params, filters products.ListFilters) (*products.ProductList, error) {
	return &products.ProductList{}, nil
}

func (s *stubProductRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	if s.decrementErr != nil {
		return s.decrementErr
	}
	if s.decremented == nil {
		s.decremented = map[uuid.UUID]int{}
	}
	s.decremented[id] += qty
	return nil
}

func (s *stubProductRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error { return nil }

type stubGateway struct {
	session *payment.Session
	err     error
	calls   int
}

func (s *stubGateway) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	svc       Service
	orderRepo *stubOrderRepo
	cartRepo  *stubCartRepo
	products  *stubProductRepo
	gateway   *stubGateway
	emitter   *stubEmitter
	registry  *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orderRepo: &stubOrderRepo{},
		cartRepo:  &stubCartRepo{},
		products:  &stubProductRepo{},
		gateway: &stubGateway{session: &payment.Session{
			Provider:         payment.ProviderCashfree,
			PaymentSessionID: ptr("session-123"),
		}},
		emitter:  &stubEmitter{},
		registry: prometheus.NewRegistry(),
	}
	pricer := pricing.NewEngine(config.StoreConfig{
		LocalDeliveryState:       "gujarat",
		LocalDeliveryChargePaise: 6000,
		OtherDeliveryChargePaise: 10000,
	})
	storefront := metrics.NewStorefrontMetrics(f.registry)
	svc, err := NewService(stubTx{}, f.orderRepo, f.cartRepo, f.products, pricer, f.gateway, f.emitter, storefront, nil)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) counterValue(t *testing.T, name string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func ptr(s string) *string { return &s }

func validCustomer() CustomerInfo {
	return CustomerInfo{
		Name:    "Asha Patel",
		Email:   "asha@example.com",
		Phone:   "+91 98765 43210",
		Address: "12 MG Road, Ahmedabad",
		State:   "Gujarat",
	}
}

func cartWithItems(userID uuid.UUID) *models.CartRecord {
	productID := uuid.New()
	return &models.CartRecord{
		ID:     uuid.New(),
		UserID: userID,
		Status: enums.CartStatusActive,
		Items: []models.CartItem{
			{ID: uuid.New(), ProductID: productID, Name: "Methi Khakhra", UnitPricePaise: 10000, Quantity: 2},
		},
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	cases := []struct {
		name   string
		mutate func(*CustomerInfo)
		field  string
	}{
		{"missing name", func(c *CustomerInfo) { c.Name = " " }, "name"},
		{"bad email", func(c *CustomerInfo) { c.Email = "not-an-email" }, "email"},
		{"short phone", func(c *CustomerInfo) { c.Phone = "12345" }, "phone"},
		{"phone with letters", func(c *CustomerInfo) { c.Phone = "98765abcde" }, "phone"},
		{"missing address", func(c *CustomerInfo) { c.Address = "" }, "address"},
		{"missing state", func(c *CustomerInfo) { c.State = "" }, "state"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			customer := validCustomer()
			tc.mutate(&customer)

			_, err := f.svc.Submit(context.Background(), userID, Input{
				Kind:          enums.CheckoutKindCart,
				PaymentMethod: enums.PaymentMethodCOD,
				Customer:      customer,
			})
			appErr := pkgerrors.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

			fieldErrors, ok := appErr.Details().(map[string]string)
			require.True(t, ok)
			assert.Contains(t, fieldErrors, tc.field)
			assert.Nil(t, f.orderRepo.created)
		})
	}
}

func TestSubmitEmptyCartRefusedBeforeTotals(t *testing.T) {
	f := newFixture(t)
	f.cartRepo.findErr = gorm.ErrRecordNotFound

	_, err := f.svc.Submit(context.Background(), uuid.New(), Input{
		Kind:          enums.CheckoutKindCart,
		PaymentMethod: enums.PaymentMethodCOD,
		Customer:      validCustomer(),
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
	assert.Nil(t, f.orderRepo.created)
}

func TestSubmitCODCartCheckout(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	record := cartWithItems(userID)
	f.cartRepo.cart = record

	customer := validCustomer()
	customer.State = "Maharashtra"

	result, err := f.svc.Submit(context.Background(), userID, Input{
		Kind:          enums.CheckoutKindCart,
		PaymentMethod: enums.PaymentMethodCOD,
		Customer:      customer,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.CheckoutStateSubmitted, result.State)
	require.NotNil(t, f.orderRepo.created)
	assert.Equal(t, enums.OrderStatusPending, f.orderRepo.created.Status)
	assert.Equal(t, int64(20000), f.orderRepo.created.SubtotalPaise)
	assert.Equal(t, int64(10000), f.orderRepo.created.DeliveryPaise)
	assert.Equal(t, int64(0), f.orderRepo.created.TaxPaise)
	assert.Equal(t, int64(30000), f.orderRepo.created.TotalPaise)

	// stock reserved, cart converted, event queued
	assert.Equal(t, 2, f.products.decremented[record.Items[0].ProductID])
	require.NotNil(t, f.cartRepo.converted)
	assert.Equal(t, record.ID, *f.cartRepo.converted)
	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, enums.EventOrderCreated, f.emitter.events[0].EventType)

	// no payment session for cod
	assert.Equal(t, 0, f.gateway.calls)
	assert.Nil(t, result.Payment)
}

func TestSubmitLocalDeliveryCharge(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.cartRepo.cart = cartWithItems(userID)

	result, err := f.svc.Submit(context.Background(), userID, Input{
		Kind:          enums.CheckoutKindCart,
		PaymentMethod: enums.PaymentMethodCOD,
		Customer:      validCustomer(), // Gujarat
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), result.Order.DeliveryPaise)
	assert.Equal(t, int64(26000), result.Order.TotalPaise)
}

func TestSubmitOutOfStockRollsBack(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.cartRepo.cart = cartWithItems(userID)
	f.products.decrementErr = products.ErrInsufficientStock

	_, err := f.svc.Submit(context.Background(), userID, Input{
		Kind:          enums.CheckoutKindCart,
		PaymentMethod: enums.PaymentMethodCOD,
		Customer:      validCustomer(),
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeOutOfStock, appErr.Code())
	assert.Nil(t, f.orderRepo.created)
	assert.Nil(t, f.cartRepo.converted)
}

func TestSubmitOnlineOpensPaymentSession(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.cartRepo.cart = cartWithItems(userID)

	result, err := f.svc.Submit(context.Background(), userID, Input{
		Kind:          enums.CheckoutKindCart,
		PaymentMethod: enums.PaymentMethodOnline,
		Customer:      validCustomer(),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.CheckoutStatePaymentPending, result.State)
	require.NotNil(t, result.Payment)
	assert.Equal(t, "session-123", *result.Payment.PaymentSessionID)
	assert.Equal(t, "session-123", f.orderRepo.updates["payment_session_id"])

	// cart stays intact until the payment return leg confirms
	assert.Nil(t, f.cartRepo.converted)
}

func TestSubmitOnlineGatewayFailureLeavesOrderPending(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.cartRepo.cart = cartWithItems(userID)
	f.gateway.err = pkgerrors.New(pkgerrors.CodePayment, "provider unavailable")
	f.gateway.session = nil

	_, err := f.svc.Submit(context.Background(), userID, Input{
		Kind:          enums.CheckoutKindCart,
		PaymentMethod: enums.PaymentMethodOnline,
		Customer:      validCustomer(),
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodePayment, appErr.Code())

	// order row exists and stays pending; cart untouched; no session stored
	require.NotNil(t, f.orderRepo.created)
	assert.Equal(t, enums.OrderStatusPending, f.orderRepo.created.Status)
	assert.Nil(t, f.cartRepo.converted)
	assert.Nil(t, f.orderRepo.updates)
}

func TestSubmitMetricsCountOrderOncePlaced(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.cartRepo.cart = cartWithItems(userID)
	f.gateway.err = pkgerrors.New(pkgerrors.CodePayment, "provider unavailable")
	f.gateway.session = nil

	_, err := f.svc.Submit(context.Background(), userID, Input{
		Kind:          enums.CheckoutKindCart,
		PaymentMethod: enums.PaymentMethodOnline,
		Customer:      validCustomer(),
	})
	require.Error(t, err)

	// the pending order row exists, so it counts as placed even though the
	// gateway call failed; the failure counter stays at zero
	assert.Equal(t, float64(1), f.counterValue(t, "orders_placed_total"))
	assert.Equal(t, float64(0), f.counterValue(t, "checkout_failures_total"))
}

func TestSubmitMetricsCountFailureWithoutOrder(t *testing.T) {
	f := newFixture(t)
	f.cartRepo.findErr = gorm.ErrRecordNotFound
	userID := uuid.New()

	_, err := f.svc.Submit(context.Background(), userID, Input{
		Kind:          enums.CheckoutKindCart,
		PaymentMethod: enums.PaymentMethodOnline,
		Customer:      validCustomer(),
	})
	require.Error(t, err)

	// empty cart: no order row, so no placed order is recorded
	assert.Nil(t, f.orderRepo.created)
	assert.Equal(t, float64(0), f.counterValue(t, "orders_placed_total"))
	assert.Equal(t, float64(1), f.counterValue(t, "checkout_failures_total"))
}

func TestSubmitBuyNowSkipsCart(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	productID := uuid.New()

	result, err := f.svc.Submit(context.Background(), userID, Input{
		Kind:          enums.CheckoutKindBuyNow,
		PaymentMethod: enums.PaymentMethodCOD,
		Customer:      validCustomer(),
		Item: &BuyNowItem{
			ProductID:      productID,
			Name:           "Festive Hamper",
			UnitPricePaise: 45000,
			Quantity:       1,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.CheckoutStateSubmitted, result.State)
	assert.Equal(t, int64(51000), result.Order.TotalPaise)

	// buy-now never touches the cart
	assert.Nil(t, f.cartRepo.converted)
	assert.Equal(t, 1, f.products.decremented[productID])
}

func TestSubmitBuyNowRequiresItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), uuid.New(), Input{
		Kind:          enums.CheckoutKindBuyNow,
		PaymentMethod: enums.PaymentMethodCOD,
		Customer:      validCustomer(),
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestCreatePaymentSessionRetriesPendingOrder(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.orderRepo.found = &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodOnline,
		Status:        enums.OrderStatusPending,
		TotalPaise:    26000,
	}

	result, err := f.svc.CreatePaymentSession(context.Background(), userID, f.orderRepo.found.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutStatePaymentPending, result.State)
	assert.Equal(t, 1, f.gateway.calls)
	assert.Equal(t, "session-123", f.orderRepo.updates["payment_session_id"])
}

func TestCreatePaymentSessionRejectsCODOrder(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.orderRepo.found = &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodCOD,
		Status:        enums.OrderStatusPending,
	}

	_, err := f.svc.CreatePaymentSession(context.Background(), userID, f.orderRepo.found.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
	assert.Equal(t, 0, f.gateway.calls)
}

func TestConfirmMarksOrderPaidAndConvertsCart(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	cartID := uuid.New()
	f.orderRepo.found = &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		CartID:        &cartID,
		Kind:          enums.CheckoutKindCart,
		PaymentMethod: enums.PaymentMethodOnline,
		Status:        enums.OrderStatusPending,
	}

	detail, err := f.svc.Confirm(context.Background(), userID, f.orderRepo.found.ID, "pay_abc123")
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusConfirmed, detail.Status)
	assert.Equal(t, enums.OrderStatusConfirmed, f.orderRepo.updates["status"])
	assert.Equal(t, "pay_abc123", f.orderRepo.updates["payment_ref"])
	require.NotNil(t, f.cartRepo.converted)
	assert.Equal(t, cartID, *f.cartRepo.converted)
	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, enums.EventOrderConfirmed, f.emitter.events[0].EventType)
}

func TestConfirmBuyNowLeavesCartAlone(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.orderRepo.found = &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		Kind:          enums.CheckoutKindBuyNow,
		PaymentMethod: enums.PaymentMethodOnline,
		Status:        enums.OrderStatusPending,
	}

	_, err := f.svc.Confirm(context.Background(), userID, f.orderRepo.found.ID, "pay_abc123")
	require.NoError(t, err)
	assert.Nil(t, f.cartRepo.converted)
}

func TestConfirmRejectsWrongOwner(t *testing.T) {
	f := newFixture(t)
	f.orderRepo.found = &models.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		PaymentMethod: enums.PaymentMethodOnline,
		Status:        enums.OrderStatusPending,
	}

	_, err := f.svc.Confirm(context.Background(), uuid.New(), f.orderRepo.found.ID, "pay_abc123")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestConfirmRejectsNonPendingOrder(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.orderRepo.found = &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodOnline,
		Status:        enums.OrderStatusConfirmed,
	}

	_, err := f.svc.Confirm(context.Background(), userID, f.orderRepo.found.ID, "pay_abc123")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestCancelPendingOnlineOrder(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.orderRepo.found = &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodOnline,
		Status:        enums.OrderStatusPending,
	}

	require.NoError(t, f.svc.Cancel(context.Background(), userID, f.orderRepo.found.ID))
	require.NotNil(t, f.orderRepo.status)
	assert.Equal(t, enums.OrderStatusCancelled, *f.orderRepo.status)
	assert.Nil(t, f.cartRepo.converted)
}

func TestCancelRejectsCODOrder(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.orderRepo.found = &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		PaymentMethod: enums.PaymentMethodCOD,
		Status:        enums.OrderStatusPending,
	}

	err := f.svc.Cancel(context.Background(), userID, f.orderRepo.found.ID)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}
