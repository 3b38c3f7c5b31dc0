package controllers

import (
	"github.com/Manish6202/MaharaniStore-sub001/src/controllers/models"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/order/domain"

	"github.com/gofiber/fiber/v2"
)

type OrderController struct {
	domain.OrderService
}

func NewOrderController(orderService domain.OrderService) *OrderController {
	return &OrderController{
		OrderService: orderService,
	}
}

func (c *OrderController) Route(app *fiber.App) {
	api := app.Group("/api/v1/orders", RequireUser())
	api.Post("/", c.CreateOrder)
	api.Get("/", RequireAdmin(), c.ListOrders)
	api.Get("/my", c.ListMyOrders)
	api.Get("/stats", RequireAdmin(), c.GetStats)
	api.Post("/replay-failed-events", RequireAdmin(), c.ReplayFailedEvents)
	api.Get("/:id", c.GetOrder)
	api.Put("/:id/status", RequireAdmin(), c.UpdateStatus)
	api.Put("/:id/cancel", c.CancelOrder)
}

// CreateOrder godoc
// @Summary      Place an order
// @Description  Reserves stock for every item and creates the order. Either all items are reserved or none.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        X-User-ID  header  string               true  "Caller id"
// @Param        order      body    models.OrderRequest  true  "Order payload"
// @Success      201  {object}  domain.Order
// @Failure      400  {object}  models.ErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      500  {object}  models.ErrorResponse
// @Router       /api/v1/orders [post]
func (c *OrderController) CreateOrder(ctx *fiber.Ctx) error {
	var request models.OrderRequest
	if err := ctx.BodyParser(&request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
	}
	order, err := c.OrderService.ReserveStockAndCreateOrder(ctx.UserContext(), request.ToInput(actorFrom(ctx).UserID))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(order)
}

// ListOrders godoc
// @Summary      List all orders
// @Tags         orders
// @Produce      json
// @Param        status  query  string  false  "Order status"
// @Param        page    query  int     false  "Page, from 1"
// @Param        limit   query  int     false  "Page size"
// @Success      200  {object}  domain.OrderPage
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /api/v1/orders [get]
func (c *OrderController) ListOrders(ctx *fiber.Ctx) error {
	filter := domain.OrderFilter{
		Status: domain.Status(ctx.Query("status")),
		Page:   ctx.QueryInt("page"),
		Limit:  ctx.QueryInt("limit"),
	}
	page, err := c.OrderService.ListOrders(ctx.UserContext(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(page)
}

// ListMyOrders godoc
// @Summary      List the caller's orders
// @Tags         orders
// @Produce      json
// @Param        page   query  int  false  "Page, from 1"
// @Param        limit  query  int  false  "Page size"
// @Success      200  {object}  domain.OrderPage
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/v1/orders/my [get]
func (c *OrderController) ListMyOrders(ctx *fiber.Ctx) error {
	page, err := c.OrderService.ListUserOrders(ctx.UserContext(), actorFrom(ctx).UserID, ctx.QueryInt("page"), ctx.QueryInt("limit"))
	if err != nil {
		return err
	}
	return ctx.JSON(page)
}

// GetStats godoc
// @Summary      Order statistics
// @Description  Counts per status and revenue from delivered orders
// @Tags         orders
// @Produce      json
// @Param        period  query  string  false  "today, week, month or all"
// @Success      200  {object}  domain.OrderStats
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Router       /api/v1/orders/stats [get]
func (c *OrderController) GetStats(ctx *fiber.Ctx) error {
	stats, err := c.OrderService.GetStats(ctx.UserContext(), ctx.Query("period"))
	if err != nil {
		return err
	}
	return ctx.JSON(stats)
}

// GetOrder godoc
// @Summary      Get an order
// @Description  Owners see their own orders; admins see any order
// @Tags         orders
// @Produce      json
// @Param        id  path  string  true  "Order number"
// @Success      200  {object}  domain.Order
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/v1/orders/{id} [get]
func (c *OrderController) GetOrder(ctx *fiber.Ctx) error {
	order, err := c.OrderService.GetOrder(ctx.UserContext(), ctx.Params("id"), actorFrom(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(order)
}

// UpdateStatus godoc
// @Summary      Move an order to a new status
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path  string                      true  "Order number"
// @Param        status  body  models.StatusUpdateRequest  true  "New status"
// @Success      200  {object}  domain.Order
// @Failure      400  {object}  models.ErrorResponse
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/v1/orders/{id}/status [put]
func (c *OrderController) UpdateStatus(ctx *fiber.Ctx) error {
	var request models.StatusUpdateRequest
	if err := ctx.BodyParser(&request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
	}
	order, err := c.OrderService.UpdateStatus(ctx.UserContext(), ctx.Params("id"), request.ToChange())
	if err != nil {
		return err
	}
	return ctx.JSON(order)
}

// CancelOrder godoc
// @Summary      Cancel an order
// @Description  Cancels a non-terminal order and restores its stock
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id      path  string                true   "Order number"
// @Param        reason  body  models.CancelRequest  false  "Cancellation reason"
// @Success      200  {object}  domain.Order
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/v1/orders/{id}/cancel [put]
func (c *OrderController) CancelOrder(ctx *fiber.Ctx) error {
	var request models.CancelRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&request); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
		}
	}
	order, err := c.OrderService.CancelOrder(ctx.UserContext(), ctx.Params("id"), actorFrom(ctx), request.Reason)
	if err != nil {
		return err
	}
	return ctx.JSON(order)
}

// ReplayFailedEvents godoc
// @Summary      Replay failed order events
// @Description  Republishes stored events that could not be delivered
// @Tags         orders
// @Produce      json
// @Success      200  {object}  domain.ReplayResult
// @Failure      403  {object}  models.ErrorResponse
// @Failure      500  {object}  models.ErrorResponse
// @Router       /api/v1/orders/replay-failed-events [post]
func (c *OrderController) ReplayFailedEvents(ctx *fiber.Ctx) error {
	result, err := c.OrderService.ReplayFailedEvents(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(result)
}
