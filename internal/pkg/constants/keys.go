package constants

const (
	CookieKeySession = "sid"

	CtxKeyIdentity  = "identity"
	CtxKeySessionID = "session_id"
)

const (
	ViperHTTPAddr        = "http.addr"
	ViperHTTPCORSOrigins = "http.cors_origins"
	ViperHTTPBodyLimit   = "http.body_limit"
	ViperAppEnv          = "app.env"

	ViperDBPrimaryDSN       = "db.primary_dsn"
	ViperDBReplicaDSN       = "db.replica_dsn"
	ViperDBMaxConns         = "db.max_conns"
	ViperDBConnectTimeout   = "db.connect_timeout"
	ViperDBStatementTimeout = "db.statement_timeout"
	ViperDBQueryTimeout     = "db.query_timeout"

	ViperRedisURL = "redis.url"

	ViperSessionSecret       = "session.secret"
	ViperSessionTTL          = "session.ttl"
	ViperSessionCookieSecure = "session.cookie_secure"

	ViperAuthBcryptCost     = "auth.bcrypt_cost"
	ViperAuthMinPasswordLen = "auth.min_password_len"

	ViperImportMaxFileSize     = "import.max_file_size"
	ViperImportSummaryPatterns = "import.summary_patterns"

	ViperDashboardRecentMaxLimit = "dashboard.recent_max_limit"

	ViperLogLevel       = "log.level"
	ViperLogDevelopment = "log.development"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)
