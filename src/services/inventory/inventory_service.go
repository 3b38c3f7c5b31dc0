package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
)

var (
	ErrInvalidProduct = errors.New("product requires id, name and a non-negative price")
	ErrProductMissing = errors.New("product not found")
)

type inventoryService struct {
	logger            log.Logger
	productRepository ProductRepository
}

type InventoryService interface {
	GetProductStock(ctx context.Context, productID string) (*Product, error)
	SetProductStock(ctx context.Context, productID string, stock int) error
	GetLowStockProducts(ctx context.Context, threshold int) ([]Product, error)
	AddProduct(ctx context.Context, product Product) error
	GetAllProducts(ctx context.Context) ([]Product, error)
}

func NewInventoryService(logger log.Logger, productRepo ProductRepository) InventoryService {
	return &inventoryService{
		logger:            logger,
		productRepository: productRepo,
	}
}

// GetProductStock retrieves current stock information for a product
func (s *inventoryService) GetProductStock(ctx context.Context, productID string) (*Product, error) {
	return s.productRepository.GetProductById(ctx, productID)
}

// SetProductStock overwrites the available stock of a product (admin restock).
func (s *inventoryService) SetProductStock(ctx context.Context, productID string, stock int) error {
	found, err := s.productRepository.UpdateProductStock(ctx, productID, stock)
	if err != nil {
		return err
	}
	if !found {
		return ErrProductMissing
	}
	s.logger.InfoWithExtra(ctx, "Product stock updated", map[string]any{"ProductId": productID, "Stock": stock})
	return nil
}

func (s *inventoryService) GetLowStockProducts(ctx context.Context, threshold int) ([]Product, error) {
	return s.productRepository.GetLowStockProducts(ctx, threshold)
}

func (s *inventoryService) AddProduct(ctx context.Context, product Product) error {
	product.ID = strings.TrimSpace(product.ID)
	product.Name = strings.TrimSpace(product.Name)
	if product.ID == "" || product.Name == "" || product.Price < 0 {
		return ErrInvalidProduct
	}
	if product.Stock < 0 {
		return ErrNegativeStock
	}
	return s.productRepository.AddProduct(ctx, product)
}

func (s *inventoryService) GetAllProducts(ctx context.Context) ([]Product, error) {
	return s.productRepository.GetAllProducts(ctx)
}
