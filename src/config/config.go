package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BrokerRabbitMQ = "rabbitmq"
	BrokerKafka    = "kafka"
	BrokerNone     = "none"
)

type Config struct {
	Port string

	MongoDBConnectionString string
	MongoDBDatabaseName     string
	MongoDBTransactions     bool

	EventBroker       string
	RabbitMQHostName  string
	RabbitMQExchange  string
	RabbitMQQueueName string
	KafkaBrokers      []string
	KafkaGroupID      string

	AdminEmail string
	AdminPhone string

	OrderNumberPrefix      string
	OrderNumberMaxAttempts int
	FreeDeliveryThreshold  float64
	DeliveryCharge         float64
	TaxRate                float64
	LowStockThreshold      int
}

func LoadConfig() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found, using environment variables only")
	}

	config := &Config{
		Port:                    os.Getenv("PORT"),
		MongoDBConnectionString: os.Getenv("MONGODB_CONNECTION_STRING"),
		MongoDBDatabaseName:     os.Getenv("MONGODB_DATABASE_NAME"),
		EventBroker:             strings.ToLower(strings.TrimSpace(os.Getenv("EVENT_BROKER"))),
		RabbitMQHostName:        os.Getenv("RABBITMQ_HOSTNAME"),
		RabbitMQExchange:        os.Getenv("RABBITMQ_EXCHANGE"),
		RabbitMQQueueName:       os.Getenv("RABBITMQ_QUEUENAME"),
		KafkaBrokers:            splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaGroupID:            os.Getenv("KAFKA_GROUP_ID"),
		AdminEmail:              os.Getenv("ADMIN_EMAIL"),
		AdminPhone:              os.Getenv("ADMIN_PHONE"),
		OrderNumberPrefix:       os.Getenv("ORDER_NUMBER_PREFIX"),
	}

	// Set default values if environment variables are not set
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.MongoDBDatabaseName == "" {
		config.MongoDBDatabaseName = "maharani-store"
	}
	if config.EventBroker == "" {
		config.EventBroker = BrokerRabbitMQ
	}
	if config.RabbitMQExchange == "" {
		config.RabbitMQExchange = "order_events"
	}
	if config.RabbitMQQueueName == "" {
		config.RabbitMQQueueName = "order_events_queue"
	}
	if config.KafkaGroupID == "" {
		config.KafkaGroupID = "maharani-order-service"
	}
	if config.OrderNumberPrefix == "" {
		config.OrderNumberPrefix = "ORD"
	}

	switch config.EventBroker {
	case BrokerRabbitMQ, BrokerKafka, BrokerNone:
	default:
		return nil, fmt.Errorf("unsupported EVENT_BROKER %q", config.EventBroker)
	}
	if config.EventBroker == BrokerKafka && len(config.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required when EVENT_BROKER=kafka")
	}

	if config.MongoDBTransactions, err = boolEnv("MONGODB_TRANSACTIONS", false); err != nil {
		return nil, err
	}
	if config.OrderNumberMaxAttempts, err = intEnv("ORDER_NUMBER_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if config.LowStockThreshold, err = intEnv("LOW_STOCK_THRESHOLD", 5); err != nil {
		return nil, err
	}
	if config.FreeDeliveryThreshold, err = floatEnv("FREE_DELIVERY_THRESHOLD", 500); err != nil {
		return nil, err
	}
	if config.DeliveryCharge, err = floatEnv("DELIVERY_CHARGE", 30); err != nil {
		return nil, err
	}
	if config.TaxRate, err = floatEnv("TAX_RATE", 0.05); err != nil {
		return nil, err
	}
	if config.OrderNumberMaxAttempts < 1 {
		return nil, fmt.Errorf("ORDER_NUMBER_MAX_ATTEMPTS must be at least 1")
	}
	if config.TaxRate < 0 || config.DeliveryCharge < 0 || config.FreeDeliveryThreshold < 0 {
		return nil, fmt.Errorf("pricing parameters must not be negative")
	}

	return config, nil
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
