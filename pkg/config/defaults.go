package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "propdash"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultSessionTTL     = 30 * 24 * time.Hour
	MinSessionSecretBytes = 32

	AuthSourceStatic = "static"
	AuthSourceMongo  = "mongo"

	DefaultAuthSource = AuthSourceStatic

	DefaultMirrorTimeout   = 10 * time.Second
	DefaultMirrorQueueSize = 256
	DefaultMirrorWorkers   = 2

	DefaultMirrorReplayGroupID = "propdash-mirror-replay"

	DefaultRateLimitRequests      = 60
	DefaultRateLimitWindow        = 1 * time.Minute
	DefaultLoginRateLimitRequests = 10
	DefaultLoginRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
