package config

// EnvPrefix namespaces every environment variable consumed by the daemon.
const EnvPrefix = "LUMAPAY"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "LUMAPAY_APP_ENV"
	EnvPort   = "LUMAPAY_APP_PORT"
	EnvDBDSN  = "LUMAPAY_DB_DSN"
)
