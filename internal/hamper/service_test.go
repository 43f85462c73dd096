package hamper

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hariombakery/khakhra-backend/pkg/config"
	"github.com/hariombakery/khakhra-backend/pkg/db/models"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
)

type stubProductGetter struct {
	product *models.Product
	err     error
}

func (s *stubProductGetter) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

func hamperProduct() *models.Product {
	return &models.Product{
		ID:                uuid.New(),
		Name:              "Festive Hamper",
		Stock:             5,
		IsHamper:          true,
		PacketsPerHamper:  10,
		PacketPricePaise:  4500,
		PacketWeightGrams: 200,
		Flavors:           pq.StringArray{"Methi", "Jeera", "Masala"},
	}
}

func newTestService(t *testing.T, getter productGetter) Service {
	t.Helper()
	svc, err := NewService(getter, config.StoreConfig{HamperMinPackets: 10})
	require.NoError(t, err)
	return svc
}

func TestOpenSeedsFirstFlavor(t *testing.T) {
	product := hamperProduct()
	svc := newTestService(t, &stubProductGetter{product: product})

	state, err := svc.Open(context.Background(), product.ID)
	require.NoError(t, err)

	assert.Equal(t, product.ID, state.ProductID)
	assert.Equal(t, 10, state.TotalPackets)
	require.Len(t, state.Counts, 3)
	assert.Equal(t, "Methi", state.Counts[0].Flavor)
	assert.Equal(t, 10, state.Counts[0].Count)
	assert.Equal(t, 0, state.Counts[1].Count)
	assert.Equal(t, 0, state.Counts[2].Count)
	assert.Equal(t, int64(45000), state.PricePaise)
}

func TestOpenRejectsNonHamper(t *testing.T) {
	product := hamperProduct()
	product.IsHamper = false
	svc := newTestService(t, &stubProductGetter{product: product})

	_, err := svc.Open(context.Background(), product.ID)
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestOpenRejectsOutOfStock(t *testing.T) {
	product := hamperProduct()
	product.Stock = 0
	svc := newTestService(t, &stubProductGetter{product: product})

	_, err := svc.Open(context.Background(), product.ID)
	assertCode(t, err, pkgerrors.CodeOutOfStock)
}

func TestOpenUnknownProduct(t *testing.T) {
	svc := newTestService(t, &stubProductGetter{err: gorm.ErrRecordNotFound})

	_, err := svc.Open(context.Background(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateAppliesDelta(t *testing.T) {
	product := hamperProduct()
	svc := newTestService(t, &stubProductGetter{product: product})

	state, err := svc.Update(context.Background(), product.ID,
		map[string]int{"Methi": 10, "Jeera": 0, "Masala": 0}, "Jeera", 4)
	require.NoError(t, err)

	assert.Equal(t, 14, state.TotalPackets)
	assert.Equal(t, int64(63000), state.PricePaise)
}

func TestUpdateRefusesBelowMinimum(t *testing.T) {
	product := hamperProduct()
	svc := newTestService(t, &stubProductGetter{product: product})

	_, err := svc.Update(context.Background(), product.ID,
		map[string]int{"Methi": 10}, "Methi", -1)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCommitStagesBuyNowLine(t *testing.T) {
	product := hamperProduct()
	svc := newTestService(t, &stubProductGetter{product: product})

	line, err := svc.Commit(context.Background(), product.ID,
		map[string]int{"Methi": 6, "Jeera": 4, "Masala": 2})
	require.NoError(t, err)

	assert.Equal(t, product.ID, line.ProductID)
	assert.Equal(t, product.Name, line.Name)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, int64(54000), line.UnitPricePaise)
	require.Len(t, line.Contents, 3)
	assert.Equal(t, 12, line.Contents.TotalPackets())
}

func TestCommitRefusesBelowMinimum(t *testing.T) {
	product := hamperProduct()
	svc := newTestService(t, &stubProductGetter{product: product})

	_, err := svc.Commit(context.Background(), product.ID, map[string]int{"Methi": 9})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}
