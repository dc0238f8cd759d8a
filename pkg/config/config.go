package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"

	mongodb "propdash/pkg/db/mongo"
	kafka_config "propdash/pkg/kafka/config"
	"propdash/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	SessionSecret string
	SessionTTL    time.Duration
	AuthSource    string
	AuthUsers     string

	MirrorBaseURL             string
	MirrorSigningSecret       string
	MirrorTimeout             time.Duration
	MirrorQueueSize           int
	MirrorWorkers             int
	MirrorAllowPrivateNetwork bool
	MirrorDLQTopic            string
	MirrorReplayGroupID       string
	MirrorParkingTopic        string

	RateLimitRequests      int
	RateLimitWindow        time.Duration
	LoginRateLimitRequests int
	LoginRateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Kafka is nil unless KAFKA_BROKERS is set.
	Kafka *kafka_config.Config

	Log   *logger.Logger
	Mongo *mongo.Client
}

func Load(serviceName string) *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		SessionSecret: getEnvStr(EnvSessionSecret, ""),
		SessionTTL:    getEnvDuration(EnvSessionTTL, DefaultSessionTTL),
		AuthSource:    getEnvStr(EnvAuthSource, DefaultAuthSource),
		AuthUsers:     getEnvStr(EnvAuthUsers, ""),

		MirrorBaseURL:             getEnvStr(EnvMirrorBaseURL, ""),
		MirrorSigningSecret:       getEnvStr(EnvMirrorSigningSecret, ""),
		MirrorTimeout:             getEnvDuration(EnvMirrorTimeout, DefaultMirrorTimeout),
		MirrorQueueSize:           getEnvNum(EnvMirrorQueueSize, DefaultMirrorQueueSize),
		MirrorWorkers:             getEnvNum(EnvMirrorWorkers, DefaultMirrorWorkers),
		MirrorAllowPrivateNetwork: getEnvBool(EnvMirrorAllowPrivateNetwork, false),
		MirrorDLQTopic:            getEnvStr(EnvMirrorDLQTopic, ""),
		MirrorReplayGroupID:       getEnvStr(EnvMirrorReplayGroupID, DefaultMirrorReplayGroupID),
		MirrorParkingTopic:        getEnvStr(EnvMirrorParkingTopic, ""),

		RateLimitRequests:      getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:        getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		LoginRateLimitRequests: getEnvNum(EnvLoginRateLimitRequests, DefaultLoginRateLimitRequests),
		LoginRateLimitWindow:   getEnvDuration(EnvLoginRateLimitWindow, DefaultLoginRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Kafka: kafka_config.LoadOptional(),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	client, err := mongodb.Connect(cfg.MongoURI, cfg.MongoConnTimeout)
	if err != nil {
		cfg.Log.Fatal("Failed to connect to MongoDB",
			"error", err,
			"uri", redactMongoURI(cfg.MongoURI),
		)
	}
	cfg.Log.Info("Successfully connected to MongoDB")
	cfg.Mongo = client
}

// MirrorEnabled reports whether listing writes are forwarded to the external webhook.
func (cfg *Config) MirrorEnabled() bool {
	return cfg.MirrorBaseURL != ""
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !mongoURIRegex.MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if len(cfg.SessionSecret) < MinSessionSecretBytes {
		errors = append(errors, fmt.Sprintf("SessionSecret must be at least %d bytes, got: %d", MinSessionSecretBytes, len(cfg.SessionSecret)))
	}
	if cfg.SessionTTL <= 0 {
		errors = append(errors, fmt.Sprintf("SessionTTL must be positive, got: %s", cfg.SessionTTL))
	}
	switch cfg.AuthSource {
	case AuthSourceStatic:
		if cfg.AuthUsers == "" {
			errors = append(errors, "AuthUsers cannot be empty when AuthSource is 'static'")
		}
	case AuthSourceMongo:
	default:
		errors = append(errors, fmt.Sprintf("AuthSource must be 'static' or 'mongo', got: %s", cfg.AuthSource))
	}

	if cfg.MirrorBaseURL != "" {
		if u, err := url.Parse(cfg.MirrorBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("MirrorBaseURL must be an absolute http(s) URL, got: %s", cfg.MirrorBaseURL))
		}
	}
	if cfg.MirrorTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MirrorTimeout must be positive, got: %s", cfg.MirrorTimeout))
	}
	if cfg.MirrorQueueSize <= 0 {
		errors = append(errors, fmt.Sprintf("MirrorQueueSize must be positive, got: %d", cfg.MirrorQueueSize))
	}
	if cfg.MirrorWorkers <= 0 {
		errors = append(errors, fmt.Sprintf("MirrorWorkers must be positive, got: %d", cfg.MirrorWorkers))
	}
	if cfg.MirrorDLQTopic != "" && cfg.Kafka == nil {
		errors = append(errors, "MirrorDLQTopic requires KAFKA_BROKERS to be set")
	}
	if cfg.MirrorParkingTopic != "" && cfg.Kafka == nil {
		errors = append(errors, "MirrorParkingTopic requires KAFKA_BROKERS to be set")
	}
	if cfg.Kafka != nil {
		if err := cfg.Kafka.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.LoginRateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("LoginRateLimitRequests must be positive, got: %d", cfg.LoginRateLimitRequests))
	}
	if cfg.LoginRateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("LoginRateLimitWindow must be positive, got: %s", cfg.LoginRateLimitWindow))
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"session_ttl", cfg.SessionTTL,
		"auth_source", cfg.AuthSource,
		"mirror_enabled", cfg.MirrorEnabled(),
		"mirror_signing_secret_set", cfg.MirrorSigningSecret != "",
		"mirror_timeout", cfg.MirrorTimeout,
		"mirror_queue_size", cfg.MirrorQueueSize,
		"mirror_workers", cfg.MirrorWorkers,
		"mirror_allow_private_networks", cfg.MirrorAllowPrivateNetwork,
		"mirror_dlq_topic", cfg.MirrorDLQTopic,
		"mirror_replay_group_id", cfg.MirrorReplayGroupID,
		"mirror_parking_topic", cfg.MirrorParkingTopic,
		"kafka_enabled", cfg.Kafka != nil,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"login_rate_limit_requests", cfg.LoginRateLimitRequests,
		"login_rate_limit_window", cfg.LoginRateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func (cfg *Config) GracefulShutdown() {
	if cfg.Mongo == nil {
		return
	}
	if err := mongodb.Disconnect(cfg.Mongo, cfg.ShutdownTimeout); err != nil {
		cfg.Log.Error("Failed to disconnect from MongoDB", "error", err)
		return
	}
	cfg.Log.Info("Disconnected from MongoDB")
}

var (
	mongoURIRegex      = regexp.MustCompile(`^mongodb(\+srv)?://`)
	mongoCredentialsRe = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
)

func redactMongoURI(uri string) string {
	return mongoCredentialsRe.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
