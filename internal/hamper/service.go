package hamper

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hariombakery/khakhra-backend/pkg/config"
	"github.com/hariombakery/khakhra-backend/pkg/db/models"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/types"
)

type productGetter interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// SelectionState is the wire representation of an in-progress hamper.
type SelectionState struct {
	ProductID         uuid.UUID            `json:"product_id"`
	Flavors           []string             `json:"flavors"`
	Counts            types.HamperContents `json:"counts"`
	TotalPackets      int                  `json:"total_packets"`
	MinPackets        int                  `json:"min_packets"`
	PricePaise        int64                `json:"price_paise"`
	PacketPricePaise  int64                `json:"packet_price_paise"`
	TotalWeightGrams  int                  `json:"total_weight_grams"`
	PacketWeightGrams int                  `json:"packet_weight_grams"`
}

// CommittedLine is the staged buy-now line produced by a committed hamper.
type CommittedLine struct {
	ProductID      uuid.UUID            `json:"product_id"`
	Name           string               `json:"name"`
	UnitPricePaise int64                `json:"unit_price_paise"`
	Quantity       int                  `json:"quantity"`
	ImageURL       *string              `json:"image_url,omitempty"`
	Contents       types.HamperContents `json:"contents"`
}

// Service drives hamper customization against catalog products.
type Service interface {
	Open(ctx context.Context, productID uuid.UUID) (*SelectionState, error)
	Update(ctx context.Context, productID uuid.UUID, counts map[string]int, flavor string, delta int) (*SelectionState, error)
	Commit(ctx context.Context, productID uuid.UUID, counts map[string]int) (*CommittedLine, error)
}

type service struct {
	products productGetter
	store    config.StoreConfig
}

// NewService builds the hamper customizer.
func NewService(products productGetter, store config.StoreConfig) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product getter required")
	}
	return &service{products: products, store: store}, nil
}

func (s *service) Open(ctx context.Context, productID uuid.UUID) (*SelectionState, error) {
	product, cfg, err := s.loadConfig(ctx, productID)
	if err != nil {
		return nil, err
	}

	selection, err := NewSelection(cfg)
	if err != nil {
		return nil, err
	}
	return s.state(product, cfg, selection), nil
}

func (s *service) Update(ctx context.Context, productID uuid.UUID, counts map[string]int, flavor string, delta int) (*SelectionState, error) {
	product, cfg, err := s.loadConfig(ctx, productID)
	if err != nil {
		return nil, err
	}

	selection, err := Restore(cfg, counts)
	if err != nil {
		return nil, err
	}
	if err := selection.UpdateCount(flavor, delta); err != nil {
		return nil, err
	}
	return s.state(product, cfg, selection), nil
}

func (s *service) Commit(ctx context.Context, productID uuid.UUID, counts map[string]int) (*CommittedLine, error) {
	product, cfg, err := s.loadConfig(ctx, productID)
	if err != nil {
		return nil, err
	}

	selection, err := Restore(cfg, counts)
	if err != nil {
		return nil, err
	}
	contents, err := selection.Commit()
	if err != nil {
		return nil, err
	}

	return &CommittedLine{
		ProductID:      product.ID,
		Name:           product.Name,
		UnitPricePaise: selection.Price(),
		Quantity:       1,
		ImageURL:       product.ImageURL,
		Contents:       contents,
	}, nil
}

func (s *service) loadConfig(ctx context.Context, productID uuid.UUID) (*models.Product, Config, error) {
	if productID == uuid.Nil {
		return nil, Config{}, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Config{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, Config{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsHamper {
		return nil, Config{}, pkgerrors.New(pkgerrors.CodeValidation, "product is not a hamper")
	}
	if product.Stock <= 0 {
		return nil, Config{}, pkgerrors.New(pkgerrors.CodeOutOfStock, "hamper is out of stock")
	}

	minPackets := product.PacketsPerHamper
	if minPackets <= 0 {
		minPackets = s.store.HamperMinPackets
	}

	cfg := Config{
		Flavors:           product.Flavors,
		MinPackets:        minPackets,
		PacketPricePaise:  product.PacketPricePaise,
		PacketWeightGrams: product.PacketWeightGrams,
	}
	return product, cfg, nil
}

func (s *service) state(product *models.Product, cfg Config, selection *Selection) *SelectionState {
	counts := selection.Counts()
	ordered := types.HamperContents{}
	for _, flavor := range cfg.Flavors {
		ordered = append(ordered, types.HamperContent{Flavor: flavor, Count: counts[flavor]})
	}

	return &SelectionState{
		ProductID:         product.ID,
		Flavors:           cfg.Flavors,
		Counts:            ordered,
		TotalPackets:      selection.TotalPackets(),
		MinPackets:        cfg.MinPackets,
		PricePaise:        selection.Price(),
		PacketPricePaise:  cfg.PacketPricePaise,
		TotalWeightGrams:  selection.TotalWeightGrams(),
		PacketWeightGrams: cfg.PacketWeightGrams,
	}
}
