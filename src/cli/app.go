package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Manish6202/MaharaniStore-sub001/src/config"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/kafka"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/log"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/metrics"
	mongoinfra "github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/mongo"
	"github.com/Manish6202/MaharaniStore-sub001/src/infrastructure/rabbitmq"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/events"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/inventory"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/order/domain"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/order/domain/persistence"
	"github.com/Manish6202/MaharaniStore-sub001/src/services/user"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
)

// eventBroker is implemented by the RabbitMQ and Kafka adapters.
type eventBroker interface {
	infrastructure.Broker
	IsHealthy() bool
	Close() error
}

// application holds everything the subcommands share.
type application struct {
	cfg     *config.Config
	logger  log.Logger
	client  *mongo.Client
	db      *mongo.Database
	broker  eventBroker
	metrics *metrics.Metrics

	orders   *persistence.OrderRepository
	events   *persistence.EventRepository
	products inventory.ProductRepository
	users    user.UserRepository

	orderService     domain.OrderService
	inventoryService inventory.InventoryService
}

func newApplication(ctx context.Context, logger log.Logger, withBroker bool) (*application, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info(ctx, "Configuration loaded successfully")

	client, err := mongoinfra.GetMongoClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("MongoDB ping failed: %w", err)
	}
	logger.Info(ctx, "MongoDB connection successful")

	db := client.Database(cfg.MongoDBDatabaseName)
	if err := mongoinfra.EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}

	app := &application{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		db:       db,
		metrics:  metrics.New(prometheus.NewRegistry()),
		orders:   persistence.NewOrderRepository(db),
		events:   persistence.NewEventRepository(db),
		products: inventory.NewProductRepository(db),
		users:    user.NewUserRepository(db),
	}

	if withBroker {
		if app.broker, err = newBroker(cfg, logger); err != nil {
			return nil, errors.Join(err, app.Close())
		}
	}

	var transactor domain.Transactor = mongoinfra.NoTransaction{}
	if cfg.MongoDBTransactions {
		transactor = mongoinfra.NewTransactor(client)
	}

	deps := domain.Dependencies{
		Logger:                 logger,
		Orders:                 app.orders,
		Products:               app.products,
		Users:                  app.users,
		Events:                 app.events,
		Transactor:             transactor,
		Metrics:                app.metrics,
		Pricing:                domain.Pricing{FreeDeliveryThreshold: cfg.FreeDeliveryThreshold, DeliveryCharge: cfg.DeliveryCharge, TaxRate: cfg.TaxRate},
		OrderNumbers:           domain.NewOrderNumberGenerator(cfg.OrderNumberPrefix),
		MaxOrderNumberAttempts: cfg.OrderNumberMaxAttempts,
	}
	if app.broker != nil {
		deps.Publisher = app.broker
	}
	app.orderService = domain.NewOrderService(deps)
	app.inventoryService = inventory.NewInventoryService(logger, app.products)
	return app, nil
}

// newBroker connects the configured broker. It returns nil for
// EVENT_BROKER=none, in which case events are not published.
func newBroker(cfg *config.Config, logger log.Logger) (eventBroker, error) {
	switch cfg.EventBroker {
	case config.BrokerRabbitMQ:
		svc, err := rabbitmq.NewRabbitMQService(cfg.RabbitMQHostName, cfg.RabbitMQExchange, cfg.RabbitMQQueueName, events.Topics)
		if err != nil {
			return nil, fmt.Errorf("failed to create RabbitMQ service: %w", err)
		}
		if !svc.IsHealthy() {
			return nil, errors.Join(errors.New("RabbitMQ connection is not healthy"), svc.Close())
		}
		logger.Info(context.Background(), "RabbitMQ connection successful")
		return svc, nil
	case config.BrokerKafka:
		client, err := kafka.NewClient(cfg.KafkaBrokers, cfg.KafkaGroupID, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka client: %w", err)
		}
		logger.Info(context.Background(), "Kafka client configured")
		return client, nil
	default:
		logger.Warn(context.Background(), "Event broker disabled, events will not be published")
		return nil, nil
	}
}

func (a *application) Close() error {
	var errs []error
	if a.broker != nil {
		errs = append(errs, a.broker.Close())
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errs = append(errs, a.client.Disconnect(shutdownCtx))
	return errors.Join(errs...)
}
