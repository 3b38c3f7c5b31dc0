package controllers

import (
	"strings"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/order/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	HeaderUserID        = "X-User-ID"
	HeaderUserRole      = "X-User-Role"
	HeaderCorrelationID = "X-Correlation-ID"

	RoleAdmin = "admin"

	actorKey = "actor"
)

// RequireUser reads the identity set by the auth gateway. Requests without
// a user id are rejected with 401.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get(HeaderUserID))
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		c.Locals(actorKey, domain.Actor{
			UserID: userID,
			Admin:  strings.EqualFold(strings.TrimSpace(c.Get(HeaderUserRole)), RoleAdmin),
		})
		return c.Next()
	}
}

// RequireAdmin must run after RequireUser.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !actorFrom(c).Admin {
			return fiber.NewError(fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

func actorFrom(c *fiber.Ctx) domain.Actor {
	actor, _ := c.Locals(actorKey).(domain.Actor)
	return actor
}

// RequestLogger attaches a correlation id to the request context and logs
// every exchange once the error handler has written the response.
func RequestLogger(logger log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		correlationID := c.Get(HeaderCorrelationID)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		ctx := logger.WithCorrelationID(c.UserContext(), correlationID)
		c.SetUserContext(ctx)
		c.Set(HeaderCorrelationID, correlationID)

		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.RequestResponse(ctx, &log.Field{
			URL:            c.OriginalURL(),
			HostName:       c.Hostname(),
			HTTPStatusCode: c.Response().StatusCode(),
			Duration:       time.Since(start).Milliseconds(),
			HTTPMethod:     c.Method(),
			Message:        "HTTP request completed",
		})
		return nil
	}
}
