package config

const (
	EnvPrefix = "brandpulse"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names shared with tests and deploy tooling.
const (
	EnvAppEnv       = "BRANDPULSE_APP_ENV"
	EnvPort         = "BRANDPULSE_APP_PORT"
	EnvLogLevel     = "BRANDPULSE_LOG_LEVEL"
	EnvRedisURL     = "BRANDPULSE_REDIS_URL"
	EnvGCPProjectID = "BRANDPULSE_GCP_PROJECT_ID"

	EnvInvoicesSubscription     = "BRANDPULSE_PUBSUB_INVOICES_SUBSCRIPTION"
	EnvInvoiceLinksSubscription = "BRANDPULSE_PUBSUB_INVOICE_LINKS_SUBSCRIPTION"

	EnvVertexLocation = "BRANDPULSE_VERTEX_LOCATION"
	EnvVertexModel    = "BRANDPULSE_VERTEX_MODEL"
)
