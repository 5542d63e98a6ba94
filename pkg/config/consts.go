package config

const (
	EnvPrefix = "magpress"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "MAGPRESS_APP_ENV"
	EnvPort   = "MAGPRESS_APP_PORT"

	EnvDBDSN  = "MAGPRESS_DB_DSN"
	EnvDBHost = "MAGPRESS_DB_HOST"
	EnvDBUser = "MAGPRESS_DB_USER"
	EnvDBName = "MAGPRESS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
