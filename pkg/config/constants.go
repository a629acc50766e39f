package config

// EnvPrefix is passed to envconfig; individual fields carry fully-qualified
// env tags so the prefix stays empty to avoid double-prefixing.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	StorageDriverFile   = "file"
	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
	StorageDriverMemory = "memory"
)

// Environment variable names, for tests and tooling.
const (
	EnvAppEnv          = "THRIFTGRAM_APP_ENV"
	EnvLogLevel        = "THRIFTGRAM_LOG_LEVEL"
	EnvAPIBaseURL      = "THRIFTGRAM_API_BASE_URL"
	EnvAPITimeout      = "THRIFTGRAM_API_TIMEOUT"
	EnvChatPushEnabled = "THRIFTGRAM_CHAT_PUSH_ENABLED"
	EnvChatSocketURL   = "THRIFTGRAM_CHAT_SOCKET_URL"
	EnvStorageDriver   = "THRIFTGRAM_STORAGE_DRIVER"
	EnvStorageDir      = "THRIFTGRAM_STORAGE_DIR"
	EnvRedisURL        = "THRIFTGRAM_REDIS_URL"
	EnvFeedPageSize    = "THRIFTGRAM_FEED_PAGE_SIZE"
)
