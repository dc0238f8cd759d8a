package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvSessionSecret = "SESSION_SECRET"
	EnvSessionTTL    = "SESSION_TTL"
	EnvAuthSource    = "AUTH_SOURCE"
	EnvAuthUsers     = "AUTH_USERS"

	EnvMirrorBaseURL             = "MIRROR_BASE_URL"
	EnvMirrorSigningSecret       = "MIRROR_SIGNING_SECRET"
	EnvMirrorTimeout             = "MIRROR_TIMEOUT"
	EnvMirrorQueueSize           = "MIRROR_QUEUE_SIZE"
	EnvMirrorWorkers             = "MIRROR_WORKERS"
	EnvMirrorAllowPrivateNetwork = "MIRROR_ALLOW_PRIVATE_NETWORKS"
	EnvMirrorDLQTopic            = "MIRROR_DLQ_TOPIC"
	EnvMirrorReplayGroupID       = "MIRROR_REPLAY_GROUP_ID"
	EnvMirrorParkingTopic        = "MIRROR_PARKING_TOPIC"

	EnvRateLimitRequests      = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow        = "RATE_LIMIT_WINDOW"
	EnvLoginRateLimitRequests = "LOGIN_RATE_LIMIT_REQUESTS"
	EnvLoginRateLimitWindow   = "LOGIN_RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
