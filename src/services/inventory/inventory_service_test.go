package inventory

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
)

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[string]Product
}

func newFakeProductRepo(products ...Product) *fakeProductRepo {
	repo := &fakeProductRepo{products: map[string]Product{}}
	for _, p := range products {
		repo.products[p.ID] = p
	}
	return repo
}

func (f *fakeProductRepo) DecrementStock(_ context.Context, id string, qty int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	f.products[id] = p
	return true, nil
}

func (f *fakeProductRepo) IncrementStock(_ context.Context, id string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	p.Stock += qty
	f.products[id] = p
	return nil
}

func (f *fakeProductRepo) SeedProduct(_ context.Context, p Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[p.ID]; !ok {
		f.products[p.ID] = p
	}
	return nil
}

func (f *fakeProductRepo) GetProductById(_ context.Context, id string) (*Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProductRepo) UpdateProductStock(_ context.Context, id string, stock int) (bool, error) {
	if stock < 0 {
		return false, ErrNegativeStock
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return false, nil
	}
	p.Stock = stock
	f.products[id] = p
	return true, nil
}

func (f *fakeProductRepo) GetLowStockProducts(_ context.Context, threshold int) ([]Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Product
	for _, p := range f.products {
		if p.Stock < threshold {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) AddProduct(_ context.Context, p Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
	return nil
}

func (f *fakeProductRepo) GetAllProducts(_ context.Context) ([]Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func newTestService(repo ProductRepository) InventoryService {
	return NewInventoryService(log.NewLoggerWithOutput(io.Discard, log.InfoLevel), repo)
}

func TestInventoryService_SetProductStock(t *testing.T) {
	repo := newFakeProductRepo(Product{ID: "p1", Name: "Ghee 1L", Price: 550, Stock: 2})
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.SetProductStock(ctx, "p1", 25))
	p, err := svc.GetProductStock(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 25, p.Stock)

	assert.ErrorIs(t, svc.SetProductStock(ctx, "missing", 3), ErrProductMissing)
	assert.ErrorIs(t, svc.SetProductStock(ctx, "p1", -1), ErrNegativeStock)
}

func TestInventoryService_AddProductValidation(t *testing.T) {
	svc := newTestService(newFakeProductRepo())
	ctx := context.Background()

	assert.ErrorIs(t, svc.AddProduct(ctx, Product{ID: "", Name: "x", Price: 1}), ErrInvalidProduct)
	assert.ErrorIs(t, svc.AddProduct(ctx, Product{ID: "p", Name: " ", Price: 1}), ErrInvalidProduct)
	assert.ErrorIs(t, svc.AddProduct(ctx, Product{ID: "p", Name: "x", Price: -1}), ErrInvalidProduct)
	assert.ErrorIs(t, svc.AddProduct(ctx, Product{ID: "p", Name: "x", Price: 1, Stock: -2}), ErrNegativeStock)
	require.NoError(t, svc.AddProduct(ctx, Product{ID: " p2 ", Name: "Atta 10kg", Price: 420, Stock: 8}))

	p, err := svc.GetProductStock(ctx, "p2")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Atta 10kg", p.Name)
}

func TestInventoryService_GetLowStockProducts(t *testing.T) {
	repo := newFakeProductRepo(
		Product{ID: "a", Name: "A", Stock: 1},
		Product{ID: "b", Name: "B", Stock: 10},
	)
	svc := newTestService(repo)

	low, err := svc.GetLowStockProducts(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "a", low[0].ID)
}
