package config

import (
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds everything the services read at startup. Defaults apply first,
// then the YAML file, then environment variables override field by field.
type Config struct {
	App   App   `yaml:"app"`
	Infra Infra `yaml:"infra"`
}

type App struct {
	// DefaultHoldTTLSeconds is used when a pre-reserva request does not carry
	// its own TTL. The original webapp used 180 seconds.
	DefaultHoldTTLSeconds int `yaml:"defaultHoldTtlSeconds" envconfig:"DEFAULT_HOLD_TTL_SECONDS"`

	// DestinationAccount is the hotel's collection account for transfers.
	DestinationAccount string `yaml:"destinationAccount" envconfig:"DESTINATION_ACCOUNT"`

	InvoicePathPrefix string `yaml:"invoicePathPrefix" envconfig:"INVOICE_PATH_PREFIX"`

	SearchPageSize        int `yaml:"searchPageSize" envconfig:"SEARCH_PAGE_SIZE"`
	SearchCacheTTLSeconds int `yaml:"searchCacheTtlSeconds" envconfig:"SEARCH_CACHE_TTL_SECONDS"`
}

type Jaeger struct {
	Endpoint string `yaml:"endpoint" envconfig:"JAEGER_ENDPOINT"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`
}

type Redis struct {
	Addr string `yaml:"addr" envconfig:"REDIS_ADDR"`
}

type MySQL struct {
	DSN string `yaml:"dsn" envconfig:"MYSQL_DSN"`
}

type Nacos struct {
	ServerAddrs string `yaml:"serverAddrs" envconfig:"NACOS_SERVER_ADDRS"`
	Namespace   string `yaml:"namespace" envconfig:"NACOS_NAMESPACE"`
	Group       string `yaml:"group" envconfig:"NACOS_GROUP"`
}

// Services lists base URLs of external collaborators. The back ends behind
// these are not part of this codebase.
type Services struct {
	BookingBaseURL   string `yaml:"bookingBaseUrl" envconfig:"BOOKING_BASE_URL"`
	PaymentBaseURL   string `yaml:"paymentBaseUrl" envconfig:"PAYMENT_BASE_URL"`
	InvoicingBaseURL string `yaml:"invoicingBaseUrl" envconfig:"INVOICING_BASE_URL"`
	DocumentBaseURL  string `yaml:"documentBaseUrl" envconfig:"DOCUMENT_BASE_URL"`
	CatalogBaseURL   string `yaml:"catalogBaseUrl" envconfig:"CATALOG_BASE_URL"`
}

type Infra struct {
	Jaeger   Jaeger   `yaml:"jaeger"`
	Kafka    Kafka    `yaml:"kafka"`
	Redis    Redis    `yaml:"redis"`
	MySQL    MySQL    `yaml:"mysql"`
	Nacos    Nacos    `yaml:"nacos"`
	Services Services `yaml:"services"`
}

func defaults() Config {
	var cfg Config
	cfg.App.DefaultHoldTTLSeconds = 180
	cfg.App.DestinationAccount = "196"
	cfg.App.InvoicePathPrefix = "facturas"
	cfg.App.SearchPageSize = 12
	cfg.App.SearchCacheTTLSeconds = 30
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Infra.Redis.Addr = "localhost:6379"
	cfg.Infra.MySQL.DSN = "gereca:gereca@tcp(localhost:3306)/gereca?charset=utf8mb4&parseTime=True&loc=UTC"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.Infra.Services.BookingBaseURL = "http://localhost:9081"
	cfg.Infra.Services.PaymentBaseURL = "http://localhost:9082"
	cfg.Infra.Services.InvoicingBaseURL = "http://localhost:9083"
	cfg.Infra.Services.DocumentBaseURL = "http://localhost:9084"
	cfg.Infra.Services.CatalogBaseURL = "http://localhost:9085"
	return cfg
}

// Load reads the YAML file at path (optional, may not exist) and applies
// environment overrides on top.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
