package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hariombakery/khakhra-backend/internal/pricing"
	"github.com/hariombakery/khakhra-backend/pkg/db/models"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/types"
)

// HamperLine is a synthetic cart line produced by a committed hamper.
type HamperLine struct {
	ProductID      uuid.UUID
	Name           string
	UnitPricePaise int64
	ImageURL       *string
	Contents       types.HamperContents
}

// View is the cart representation returned to controllers.
type View struct {
	CartID        uuid.UUID         `json:"cart_id"`
	Items         []models.CartItem `json:"items"`
	SubtotalPaise int64             `json:"subtotal_paise"`
	TotalItems    int               `json:"total_items"`
}

// Service manages the single active cart per user. Quantities always stay
// within [0, stock]: zero removes the line, above stock is refused.
type Service interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	AddHamperLine(ctx context.Context, userID uuid.UUID, line HamperLine) (*View, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	GetCart(ctx context.Context, userID uuid.UUID) (*View, error)
	GetTotalPrice(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repo     Repository
	products productGetter
	pricer   *pricing.Engine
}

// NewService builds the cart service.
func NewService(repo Repository, products productGetter, pricer *pricing.Engine) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product getter required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	return &service{repo: repo, products: products, pricer: pricer}, nil
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.loadSellableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	cart, err := s.findOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		// increment, clamped to available stock
		next := existing.Quantity + 1
		if next > product.Stock {
			next = product.Stock
		}
		if next != existing.Quantity {
			if err := s.repo.UpdateItemQuantity(ctx, existing.ID, next); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := &models.CartItem{
			CartID:         cart.ID,
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPricePaise: product.PricePaise,
			Quantity:       1,
			ImageURL:       product.ImageURL,
		}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	return s.view(ctx, userID)
}

func (s *service) AddHamperLine(ctx context.Context, userID uuid.UUID, line HamperLine) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if line.ProductID == uuid.Nil || line.UnitPricePaise <= 0 || len(line.Contents) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "incomplete hamper line")
	}

	cart, err := s.findOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item := &models.CartItem{
		CartID:         cart.ID,
		ProductID:      line.ProductID,
		Name:           line.Name,
		UnitPricePaise: line.UnitPricePaise,
		Quantity:       1,
		ImageURL:       line.ImageURL,
		Contents:       line.Contents,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert hamper line")
	}

	return s.view(ctx, userID)
}

func (s *service) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	if quantity < 0 {
		quantity = 0
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	product, err := s.loadSellableProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, fmt.Sprintf("only %d left in stock", product.Stock)).
			WithDetails(map[string]any{"available": product.Stock, "requested": quantity})
	}

	cart, err := s.mustFindCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, cart.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}

	return s.view(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	cart, err := s.mustFindCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, cart.ID, productID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.view(ctx, userID)
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.view(ctx, userID)
}

func (s *service) GetTotalPrice(ctx context.Context, userID uuid.UUID) (int64, error) {
	view, err := s.GetCart(ctx, userID)
	if err != nil {
		return 0, err
	}
	return view.SubtotalPaise, nil
}

func (s *service) loadSellableProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if product.Stock <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "product is out of stock")
	}
	return product, nil
}

func (s *service) findOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	created, err := s.repo.Create(ctx, &models.CartRecord{
		UserID: userID,
		Status: enums.CartStatusActive,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

func (s *service) mustFindCart(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) view(ctx context.Context, userID uuid.UUID) (*View, error) {
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &View{Items: []models.CartItem{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	lines := make([]pricing.LineAmount, 0, len(cart.Items))
	totalItems := 0
	for _, item := range cart.Items {
		lines = append(lines, pricing.LineAmount{
			UnitPricePaise: item.UnitPricePaise,
			Quantity:       item.Quantity,
		})
		totalItems += item.Quantity
	}

	return &View{
		CartID:        cart.ID,
		Items:         cart.Items,
		SubtotalPaise: s.pricer.Subtotal(lines),
		TotalItems:    totalItems,
	}, nil
}
