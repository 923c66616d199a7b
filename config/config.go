package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server    ServerConfig
	Logger    LoggerConfig
	Postgres  PostgresConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Elastic   ElasticsearchConfig
	Payment   PaymentConfig
	Checkout  CheckoutConfig
	Inventory InventoryConfig
	Cart      CartConfig
	Telemetry TelemetryConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	AppEnv   string
	HTTPPort string
	GRPCPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
	AutoMigrate     bool
}

type JWTConfig struct {
	SecretKey string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers          []string
	OrdersTopic      string
	AdjustmentsTopic string
	GroupID          string
}

type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
}

type PaymentConfig struct {
	PublicKey     string
	SecretKey     string
	BaseURL       string
	Currency      string
	VerifyEnabled bool
	Timeout       int // seconds
}

type CheckoutConfig struct {
	DeliveryFee decimal.Decimal
	SessionTTL  int // seconds
}

type InventoryConfig struct {
	DefaultLowStockThreshold int
}

type CartConfig struct {
	TTL int // hours
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

type CORSConfig struct {
	AllowOrigins []string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   getEnv("APP_ENV", "dev"),
			HTTPPort: getEnv("HTTP_PORT", ":8080"),
			GRPCPort: getEnv("GRPC_PORT", ":8082"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5433"),
			User:            getEnv("POSTGRES_USER", "omnipos"),
			Password:        getEnv("POSTGRES_PASSWORD", "omnipos"),
			DBName:          getEnv("POSTGRES_DB", "omnipos_storefront"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
			AutoMigrate:     getEnvBool("POSTGRES_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", "your-secret-key-change-this-in-prod"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:          getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrdersTopic:      getEnv("KAFKA_TOPIC_ORDERS", "orders.events"),
			AdjustmentsTopic: getEnv("KAFKA_TOPIC_RECEIPTS", "inventory.receipts"),
			GroupID:          getEnv("KAFKA_GROUP_INVENTORY", "storefront-inventory"),
		},
		Elastic: ElasticsearchConfig{
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", []string{"http://localhost:9200"}),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
		},
		Payment: PaymentConfig{
			PublicKey:     getEnv("PAYSTACK_PUBLIC_KEY", ""),
			SecretKey:     getEnv("PAYSTACK_SECRET_KEY", ""),
			BaseURL:       getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			Currency:      getEnv("PAYMENT_CURRENCY", "ZAR"),
			VerifyEnabled: getEnvBool("PAYMENT_VERIFY_ENABLED", true),
			Timeout:       getEnvInt("PAYMENT_TIMEOUT", 10),
		},
		Checkout: CheckoutConfig{
			DeliveryFee: getEnvDecimal("CHECKOUT_DELIVERY_FEE", decimal.NewFromInt(50)),
			SessionTTL:  getEnvInt("CHECKOUT_SESSION_TTL", 1800),
		},
		Inventory: InventoryConfig{
			DefaultLowStockThreshold: getEnvInt("INVENTORY_LOW_STOCK_THRESHOLD", 10),
		},
		Cart: CartConfig{
			TTL: getEnvInt("CART_TTL_HOURS", 720),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "omnipos-storefront-service"),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnvSlice("CORS_ALLOW_ORIGINS", []string{"http://localhost:4200"}),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.Split(value, ",")
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return fallback
}
