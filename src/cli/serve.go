package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Manish6202/MaharaniStore-sub001/docs"
	"github.com/Manish6202/MaharaniStore-sub001/src/controllers"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/dlq"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/events"
	inventoryHandlers "github.com/Manish6202/MaharaniStore-sub001/src/services/inventory/handlers"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/notification"
	notificationHandlers "github.com/Manish6202/MaharaniStore-sub001/src/services/notification/handlers"
	orderHandlers "github.com/Manish6202/MaharaniStore-sub001/src/services/order/handlers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	fiberSwagger "github.com/swaggo/fiber-swagger"
)

func newServeCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and event consumers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "seed sample products and users before starting")
	return cmd
}

func serve(parent context.Context, seed bool) error {
	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	logger := log.NewLogger()

	app, err := newApplication(ctx, logger, true)
	if err != nil {
		logger.Exception(ctx, "Failed to start application", err)
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Exception(ctx, "Failed to close connections", err)
		}
	}()

	if seed {
		if err := seedCatalog(ctx, app); err != nil {
			return err
		}
	}

	listenerDone := make(chan struct{})
	if app.broker != nil {
		eventListener := newEventListener(app)
		go func() {
			defer close(listenerDone)
			if err := eventListener.StartListening(ctx); err != nil {
				logger.Exception(ctx, "Event listener stopped", err)
			}
		}()
		logger.Info(ctx, "Event listeners started successfully")
	} else {
		close(listenerDone)
	}

	server := newServer(app)

	// Set up graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	serverShutdown := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Starting server on port "+app.cfg.Port)
		if err := server.Listen(":" + app.cfg.Port); err != nil {
			serverShutdown <- err
		}
	}()

	var serveErr error
	select {
	case <-c:
		logger.Info(ctx, "Shutdown signal received, shutting down gracefully...")
	case <-ctx.Done():
	case serveErr = <-serverShutdown:
		logger.Exception(ctx, "Server error occurred", serveErr)
	}

	// Cancel context to stop background processes
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Exception(shutdownCtx, "Server shutdown error", err)
	}
	select {
	case <-listenerDone:
	case <-shutdownCtx.Done():
		logger.Warn(shutdownCtx, "Timed out waiting for event handlers")
	}

	logger.Info(shutdownCtx, "Server shutdown complete")
	return serveErr
}

func newEventListener(app *application) *infrastructure.EventListener {
	logger := app.logger

	notificationService := notification.NewNotificationService(logger, nil)
	admin := notification.Recipients{Email: app.cfg.AdminEmail, Phone: app.cfg.AdminPhone}
	orderEvents := notificationHandlers.NewOrderEventHandler(notificationService, app.users, app.broker, admin, logger)
	lowStockWatcher := inventoryHandlers.NewOrderPlacedEventHandler(app.broker, app.inventoryService, app.cfg.LowStockThreshold, logger)
	notificationSent := orderHandlers.NewNotificationSentEventHandler(app.orderService, logger)

	eventListener := infrastructure.NewEventListener(app.broker, logger, app.metrics)
	eventListener.RegisterHandler(events.OrderPlaced, infrastructure.Handlers{
		lowStockWatcher,
		infrastructure.HandlerFunc(orderEvents.HandleOrderPlaced),
	})
	eventListener.RegisterHandler(events.OrderStatusChanged, infrastructure.HandlerFunc(orderEvents.HandleStatusChanged))
	eventListener.RegisterHandler(events.OrderCancelled, infrastructure.HandlerFunc(orderEvents.HandleOrderCancelled))
	eventListener.RegisterHandler(events.InventoryLowStock, infrastructure.HandlerFunc(orderEvents.HandleLowStock))
	eventListener.RegisterHandler(events.NotificationSent, notificationSent)

	// Failed events are stored for replay
	dlqHandler := dlq.NewDLQHandler(app.events, logger)
	for _, topic := range events.Topics {
		eventListener.RegisterHandler(events.DLQ(topic), dlqHandler.ForTopic(topic))
	}
	return eventListener
}

func newServer(app *application) *fiber.App {
	logger := app.logger

	server := fiber.New(fiber.Config{
		ReadBufferSize:  81920,
		WriteBufferSize: 81920,
		ServerHeader:    "Maharani-Order-Service",
		ErrorHandler:    controllers.ErrorHandler(logger),
	})

	server.Use(cors.New(cors.Config{
		AllowCredentials: true,
		AllowOriginsFunc: func(_ string) bool { return true },
	}))
	server.Use(app.metrics.Middleware())
	server.Use(controllers.RequestLogger(logger))
	server.Use(recover.New())

	server.Get("/api/swagger/*", fiberSwagger.WrapHandler)
	server.Get("/metrics", adaptor.HTTPHandler(app.metrics.Handler()))
	server.Get("/api/healthCheck", func(c *fiber.Ctx) error {
		if err := app.client.Ping(c.UserContext(), nil); err != nil {
			logger.Exception(c.UserContext(), "Health check: MongoDB ping failed", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
		}

		if app.broker != nil && !app.broker.IsHealthy() {
			logger.Warn(c.UserContext(), "Health check: event broker connection is unhealthy")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  "message broker connection failed",
			})
		}

		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	})

	controllers.NewOrderController(app.orderService).Route(server)
	controllers.NewInventoryController(app.inventoryService).Route(server)
	return server
}
