package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	Redis     RedisConfig
	Eventing  EventingConfig
	GCP       GCPConfig
	Firestore FirestoreConfig
	PubSub    PubSubConfig
	Vertex    VertexConfig
	Store     StoreConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BRANDPULSE_APP_ENV" required:"true"`
	Port         string `envconfig:"BRANDPULSE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BRANDPULSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRANDPULSE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BRANDPULSE_SERVICE_KIND" default:"api"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRANDPULSE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BRANDPULSE_REDIS_ADDR"`
	Password     string        `envconfig:"BRANDPULSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRANDPULSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRANDPULSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRANDPULSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRANDPULSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRANDPULSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRANDPULSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"BRANDPULSE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BRANDPULSE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BRANDPULSE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BRANDPULSE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type FirestoreConfig struct {
	DatabaseID            string `envconfig:"BRANDPULSE_FIRESTORE_DATABASE_ID" default:"(default)"`
	InvoicesCollection    string `envconfig:"BRANDPULSE_FIRESTORE_INVOICES_COLLECTION" default:"invoices"`
	MerchantsCollection   string `envconfig:"BRANDPULSE_FIRESTORE_MERCHANTS_COLLECTION" default:"merchants"`
	ProductsCollection    string `envconfig:"BRANDPULSE_FIRESTORE_PRODUCTS_COLLECTION" default:"products"`
	CommunitiesCollection string `envconfig:"BRANDPULSE_FIRESTORE_COMMUNITIES_COLLECTION" default:"communities"`
	PerformanceCollection string `envconfig:"BRANDPULSE_FIRESTORE_PERFORMANCE_COLLECTION" default:"brand_store_performance"`
}

type PubSubConfig struct {
	InvoicesTopic            string `envconfig:"BRANDPULSE_PUBSUB_INVOICES_TOPIC"`
	InvoicesSubscription     string `envconfig:"BRANDPULSE_PUBSUB_INVOICES_SUBSCRIPTION"`
	InvoiceLinksTopic        string `envconfig:"BRANDPULSE_PUBSUB_INVOICE_LINKS_TOPIC"`
	InvoiceLinksSubscription string `envconfig:"BRANDPULSE_PUBSUB_INVOICE_LINKS_SUBSCRIPTION"`
}

type VertexConfig struct {
	Location        string        `envconfig:"BRANDPULSE_VERTEX_LOCATION" default:"us-central1"`
	Model           string        `envconfig:"BRANDPULSE_VERTEX_MODEL" default:"gemini-1.5-pro"`
	DownloadTimeout time.Duration `envconfig:"BRANDPULSE_VERTEX_DOWNLOAD_TIMEOUT" default:"30s"`
}

// StoreConfig carries fallbacks applied when a merchant document is sparse.
// The default location is central Tripoli, where most onboarded merchants are.
type StoreConfig struct {
	DefaultLatitude  float64 `envconfig:"BRANDPULSE_STORE_DEFAULT_LATITUDE" default:"32.8872"`
	DefaultLongitude float64 `envconfig:"BRANDPULSE_STORE_DEFAULT_LONGITUDE" default:"13.1913"`
}
