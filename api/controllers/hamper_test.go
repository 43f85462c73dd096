package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartsvc "github.com/hariombakery/khakhra-backend/internal/cart"
	hampersvc "github.com/hariombakery/khakhra-backend/internal/hamper"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/types"
)

type stubHamperService struct {
	line      *hampersvc.CommittedLine
	commitErr error
}

func (s *stubHamperService) Open(context.Context, uuid.UUID) (*hampersvc.SelectionState, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubHamperService) Update(context.Context, uuid.UUID, map[string]int, string, int) (*hampersvc.SelectionState, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubHamperService) Commit(context.Context, uuid.UUID, map[string]int) (*hampersvc.CommittedLine, error) {
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	return s.line, nil
}

type stubCartService struct {
	lastLine cartsvc.HamperLine
	addErr   error
}

func (s *stubCartService) AddItem(context.Context, uuid.UUID, uuid.UUID) (*cartsvc.View, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubCartService) AddHamperLine(_ context.Context, _ uuid.UUID, line cartsvc.HamperLine) (*cartsvc.View, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	s.lastLine = line
	return &cartsvc.View{TotalItems: 1}, nil
}

func (s *stubCartService) UpdateQuantity(context.Context, uuid.UUID, uuid.UUID, int) (*cartsvc.View, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubCartService) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (*cartsvc.View, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubCartService) Clear(context.Context, uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubCartService) GetCart(context.Context, uuid.UUID) (*cartsvc.View, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func (s *stubCartService) GetTotalPrice(context.Context, uuid.UUID) (int64, error) {
	return 0, pkgerrors.New(pkgerrors.CodeInternal, "not implemented")
}

func TestAddHamperToCart(t *testing.T) {
	productID := uuid.New()
	hamper := &stubHamperService{line: &hampersvc.CommittedLine{
		ProductID:      productID,
		Name:           "Festive Hamper",
		UnitPricePaise: 49900,
		Quantity:       1,
		Contents:       types.HamperContents{{Flavor: "methi", Count: 4}, {Flavor: "jeera", Count: 2}},
	}}
	cart := &stubCartService{}

	body := `{"product_id":"` + productID.String() + `","counts":{"methi":4,"jeera":2}}`
	req := authedRequest(http.MethodPost, "/api/v1/hamper/add-to-cart", body, uuid.New())
	resp := httptest.NewRecorder()
	AddHamperToCart(hamper, cart, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, productID, cart.lastLine.ProductID)
	assert.Equal(t, int64(49900), cart.lastLine.UnitPricePaise)
	assert.Contains(t, resp.Body.String(), `"total_items":1`)
}

func TestAddHamperToCartRejectsShortSelection(t *testing.T) {
	hamper := &stubHamperService{commitErr: pkgerrors.New(pkgerrors.CodeValidation, "selection below minimum packets")}
	cart := &stubCartService{}

	body := `{"product_id":"` + uuid.NewString() + `","counts":{"methi":1}}`
	req := authedRequest(http.MethodPost, "/api/v1/hamper/add-to-cart", body, uuid.New())
	resp := httptest.NewRecorder()
	AddHamperToCart(hamper, cart, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, uuid.Nil, cart.lastLine.ProductID)
}

func TestAddHamperToCartRequiresUserContext(t *testing.T) {
	hamper := &stubHamperService{}
	cart := &stubCartService{}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hamper/add-to-cart", nil)
	resp := httptest.NewRecorder()
	AddHamperToCart(hamper, cart, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
