package controllers

import (
	"errors"

	"github.com/Manish6202/MaharaniStore-sub001/src/controllers/models"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/inventory"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/order/domain"
	"github.com/gofiber/fiber/v2"
)

const internalErrorMessage = "internal server error"

// ErrorHandler maps service errors to HTTP responses. Unexpected errors are
// logged in full and reported to the client with a generic message.
func ErrorHandler(logger log.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, body := errorResponse(err)
		if status >= fiber.StatusInternalServerError {
			logger.Exception(c.UserContext(), "HTTP request error", err)
		}
		return c.Status(status).JSON(body)
	}
}

func errorResponse(err error) (int, models.ErrorResponse) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		stock      *domain.InsufficientStockError
		state      *domain.InvalidStateError
		fiberErr   *fiber.Error
	)
	switch {
	case errors.As(err, &validation):
		return fiber.StatusBadRequest, models.ErrorResponse{Error: validation.Error(), Field: validation.Field}
	case errors.As(err, &notFound):
		return fiber.StatusNotFound, models.ErrorResponse{Error: notFound.Error()}
	case errors.As(err, &stock):
		available := stock.Available
		return fiber.StatusBadRequest, models.ErrorResponse{
			Error:     stock.Error(),
			ProductID: stock.ProductID,
			Requested: stock.Requested,
			Available: &available,
		}
	case errors.As(err, &state):
		return fiber.StatusBadRequest, models.ErrorResponse{Error: state.Error(), CurrentStatus: string(state.From)}
	case errors.Is(err, inventory.ErrInvalidProduct), errors.Is(err, inventory.ErrNegativeStock):
		return fiber.StatusBadRequest, models.ErrorResponse{Error: err.Error()}
	case errors.Is(err, inventory.ErrProductMissing):
		return fiber.StatusNotFound, models.ErrorResponse{Error: err.Error()}
	case errors.As(err, &fiberErr):
		if fiberErr.Code >= fiber.StatusInternalServerError {
			return fiberErr.Code, models.ErrorResponse{Error: internalErrorMessage}
		}
		return fiberErr.Code, models.ErrorResponse{Error: fiberErr.Message}
	default:
		return fiber.StatusInternalServerError, models.ErrorResponse{Error: internalErrorMessage}
	}
}
