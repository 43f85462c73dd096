package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/hariombakery/khakhra-backend/pkg/db/models"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/pagination"
)

// CreateInput carries the admin payload for a new catalog listing.
type CreateInput struct {
	Name               string
	Description        *string
	Category           enums.ProductCategory
	PricePaise         int64
	OriginalPricePaise *int64
	Stock              int
	ImageURL           *string
	IsHamper           bool
	PacketsPerHamper   int
	PacketPricePaise   int64
	PacketWeightGrams  int
	Flavors            []string
}

// UpdateInput carries partial admin updates. Nil fields are left untouched.
type UpdateInput struct {
	Name               *string
	Description        *string
	Category           *enums.ProductCategory
	PricePaise         *int64
	OriginalPricePaise *int64
	ImageURL           *string
	IsActive           *bool
	PacketsPerHamper   *int
	PacketPricePaise   *int64
	PacketWeightGrams  *int
	Flavors            []string
}

// Service exposes the public catalog plus the admin management surface.
type Service interface {
	List(ctx context.Context, params pagination.Params, category *enums.ProductCategory) (*ProductList, error)
	ListAll(ctx context.Context, params pagination.Params) (*ProductList, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, category *enums.ProductCategory) (*ProductList, error) {
	if category != nil && !category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product category")
	}
	list, err := s.repo.List(ctx, params, ListFilters{Category: category})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return list, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (*ProductList, error) {
	list, err := s.repo.List(ctx, params, ListFilters{IncludeInactive: true})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:               strings.TrimSpace(input.Name),
		Description:        input.Description,
		Category:           input.Category,
		PricePaise:         input.PricePaise,
		OriginalPricePaise: input.OriginalPricePaise,
		Stock:              input.Stock,
		ImageURL:           input.ImageURL,
		IsHamper:           input.IsHamper,
		PacketsPerHamper:   input.PacketsPerHamper,
		PacketPricePaise:   input.PacketPricePaise,
		PacketWeightGrams:  input.PacketWeightGrams,
		Flavors:            pq.StringArray(input.Flavors),
		IsActive:           true,
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product category")
		}
		updates["category"] = *input.Category
	}
	if input.PricePaise != nil {
		if *input.PricePaise <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		updates["price_paise"] = *input.PricePaise
	}
	if input.OriginalPricePaise != nil {
		updates["original_price_paise"] = *input.OriginalPricePaise
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.PacketsPerHamper != nil {
		updates["packets_per_hamper"] = *input.PacketsPerHamper
	}
	if input.PacketPricePaise != nil {
		updates["packet_price_paise"] = *input.PacketPricePaise
	}
	if input.PacketWeightGrams != nil {
		updates["packet_weight_grams"] = *input.PacketWeightGrams
	}
	if input.Flavors != nil {
		updates["flavors"] = pq.StringArray(input.Flavors)
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	return nil
}

func (s *service) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock delta cannot be zero")
	}

	if err := s.repo.AdjustStock(ctx, id, delta); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "stock cannot go negative")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product")
	}
	return product, nil
}

func validateCreate(input CreateInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if !input.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown product category")
	}
	if input.PricePaise <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	if input.IsHamper {
		if len(input.Flavors) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "hamper requires at least one flavor")
		}
		if input.PacketsPerHamper <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "hamper requires a positive packet minimum")
		}
		if input.PacketPricePaise <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "hamper requires a positive packet price")
		}
	}
	return nil
}
