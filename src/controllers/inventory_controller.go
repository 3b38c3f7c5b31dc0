package controllers

import (
	"strconv"

	"github.com/Manish6202/MaharaniStore-sub001/src/controllers/models"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/inventory"

	"github.com/gofiber/fiber/v2"
)

type InventoryController struct {
	inventoryService inventory.InventoryService
}

func NewInventoryController(inventoryService inventory.InventoryService) *InventoryController {
	return &InventoryController{
		inventoryService: inventoryService,
	}
}

func (c *InventoryController) Route(app *fiber.App) {
	api := app.Group("/api/v1/inventory")
	api.Get("/products", c.GetAllProducts)
	api.Get("/products/low-stock/:threshold", c.GetLowStockProducts)
	api.Get("/products/:id", c.GetProduct)
	api.Post("/products", RequireUser(), RequireAdmin(), c.AddProduct)
	api.Put("/products/:id/stock/:stock", RequireUser(), RequireAdmin(), c.SetStock)
}

// GetAllProducts godoc
// @Summary      Get all products
// @Description  Retrieves all products in inventory
// @Tags         inventory
// @Produce      json
// @Success      200  {array}   inventory.Product
// @Failure      500  {object}  models.ErrorResponse
// @Router       /api/v1/inventory/products [get]
func (c *InventoryController) GetAllProducts(ctx *fiber.Ctx) error {
	products, err := c.inventoryService.GetAllProducts(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(products)
}

// GetProduct godoc
// @Summary      Get product by ID
// @Tags         inventory
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  inventory.Product
// @Failure      404  {object}  models.ErrorResponse
// @Failure      500  {object}  models.ErrorResponse
// @Router       /api/v1/inventory/products/{id} [get]
func (c *InventoryController) GetProduct(ctx *fiber.Ctx) error {
	product, err := c.inventoryService.GetProductStock(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	if product == nil {
		return inventory.ErrProductMissing
	}
	return ctx.JSON(product)
}

// GetLowStockProducts godoc
// @Summary      Get low stock products
// @Description  Retrieves active products with stock below threshold
// @Tags         inventory
// @Produce      json
// @Param        threshold   path      int  true  "Stock threshold"
// @Success      200  {array}   inventory.Product
// @Failure      400  {object}  models.ErrorResponse
// @Failure      500  {object}  models.ErrorResponse
// @Router       /api/v1/inventory/products/low-stock/{threshold} [get]
func (c *InventoryController) GetLowStockProducts(ctx *fiber.Ctx) error {
	threshold, err := strconv.Atoi(ctx.Params("threshold"))
	if err != nil || threshold < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid threshold")
	}

	products, err := c.inventoryService.GetLowStockProducts(ctx.UserContext(), threshold)
	if err != nil {
		return err
	}
	return ctx.JSON(products)
}

// AddProduct godoc
// @Summary      Add a product
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        product  body      models.ProductRequest  true  "Product"
// @Success      201  {object}  inventory.Product
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /api/v1/inventory/products [post]
func (c *InventoryController) AddProduct(ctx *fiber.Ctx) error {
	var request models.ProductRequest
	if err := ctx.BodyParser(&request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
	}
	product := request.ToProduct()
	if err := c.inventoryService.AddProduct(ctx.UserContext(), product); err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(product)
}

// SetStock godoc
// @Summary      Set product stock
// @Description  Overwrites the available stock of a product
// @Tags         inventory
// @Produce      json
// @Param        id     path      string  true  "Product ID"
// @Param        stock  path      int     true  "New stock"
// @Success      200  {object}  models.MessageResponse
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/v1/inventory/products/{id}/stock/{stock} [put]
func (c *InventoryController) SetStock(ctx *fiber.Ctx) error {
	stock, err := strconv.Atoi(ctx.Params("stock"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid stock")
	}

	if err := c.inventoryService.SetProductStock(ctx.UserContext(), ctx.Params("id"), stock); err != nil {
		return err
	}
	return ctx.JSON(models.MessageResponse{Message: "Product stock updated successfully"})
}
