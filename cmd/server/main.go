// Command server starts the field programme minutes HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"fieldlog/internal/api"
	"fieldlog/internal/blob"
	"fieldlog/internal/observability/logging"
	"fieldlog/internal/observability/metrics"
	"fieldlog/internal/server"
	"fieldlog/internal/tabular"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to the JSON sheet datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresConnectTimeout := flag.Duration("postgres-connect-timeout", 0, "timeout for the initial Postgres connection")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	meetingIDPrefix := flag.String("meeting-id-prefix", "", "prefix for generated meeting IDs")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	blobEndpoint := flag.String("blob-endpoint", "", "S3-compatible endpoint for media uploads")
	blobRegion := flag.String("blob-region", "", "region for the media bucket")
	blobAccessKey := flag.String("blob-access-key", "", "access key for the media bucket")
	blobSecretKey := flag.String("blob-secret-key", "", "secret key for the media bucket")
	blobBucket := flag.String("blob-bucket", "", "bucket receiving media uploads")
	blobPrefix := flag.String("blob-prefix", "", "key prefix for stored media objects")
	blobPublicEndpoint := flag.String("blob-public-endpoint", "", "public base URL for stored media objects")
	blobUseSSL := flag.Bool("blob-use-ssl", false, "use HTTPS when talking to the blob endpoint")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	writeLimit := flag.Int("rate-write-limit", 0, "maximum mutating requests per window for a single IP")
	writeWindow := flag.Duration("rate-write-window", 0, "window for counting mutating requests")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed write throttling")
	redisUsername := flag.String("rate-redis-username", "", "Redis username for distributed write throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed write throttling")
	redisDB := flag.Int("rate-redis-db", 0, "Redis database for distributed write throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis rate limiter commands")
	redisTLSCA := flag.String("rate-redis-tls-ca", "", "path to Redis TLS CA certificate")
	redisTLSCert := flag.String("rate-redis-tls-cert", "", "path to Redis TLS client certificate")
	redisTLSKey := flag.String("rate-redis-tls-key", "", "path to Redis TLS client key")
	redisTLSServerName := flag.String("rate-redis-tls-server-name", "", "server name for Redis TLS verification")
	redisTLSSkipVerify := flag.Bool("rate-redis-tls-skip-verify", false, "skip Redis TLS certificate verification")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("FIELDLOG_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("FIELDLOG_LOG_FORMAT")),
	})

	listenAddr := firstNonEmpty(*addr, os.Getenv("FIELDLOG_ADDR"), ":8080")

	store, storeCleanup, err := buildStore(storeSettings{
		Driver:          firstNonEmpty(*storageDriver, os.Getenv("FIELDLOG_STORAGE_DRIVER")),
		DataPath:        firstNonEmpty(*dataPath, os.Getenv("FIELDLOG_DATA_PATH"), "data/sheets.json"),
		PostgresDSN:     firstNonEmpty(*postgresDSN, os.Getenv("FIELDLOG_POSTGRES_DSN"), os.Getenv("DATABASE_URL")),
		MaxConns:        resolveInt(*postgresMaxConns, "FIELDLOG_POSTGRES_MAX_CONNS"),
		MinConns:        resolveInt(*postgresMinConns, "FIELDLOG_POSTGRES_MIN_CONNS"),
		MaxConnLifetime: resolveDuration(*postgresMaxConnLifetime, "FIELDLOG_POSTGRES_MAX_CONN_LIFETIME", 0),
		MaxConnIdle:     resolveDuration(*postgresMaxConnIdle, "FIELDLOG_POSTGRES_MAX_CONN_IDLE", 0),
		HealthInterval:  resolveDuration(*postgresHealthInterval, "FIELDLOG_POSTGRES_HEALTH_INTERVAL", 0),
		ConnectTimeout:  resolveDuration(*postgresConnectTimeout, "FIELDLOG_POSTGRES_CONNECT_TIMEOUT", 0),
		AppName:         firstNonEmpty(*postgresAppName, os.Getenv("FIELDLOG_POSTGRES_APP_NAME"), "fieldlog"),
	})
	if err != nil {
		logger.Error("failed to initialise datastore", "error", err)
		os.Exit(1)
	}

	blobs := blob.NewStore(blob.Config{
		Endpoint:       firstNonEmpty(*blobEndpoint, os.Getenv("FIELDLOG_BLOB_ENDPOINT")),
		Region:         firstNonEmpty(*blobRegion, os.Getenv("FIELDLOG_BLOB_REGION")),
		AccessKey:      firstNonEmpty(*blobAccessKey, os.Getenv("FIELDLOG_BLOB_ACCESS_KEY")),
		SecretKey:      firstNonEmpty(*blobSecretKey, os.Getenv("FIELDLOG_BLOB_SECRET_KEY")),
		Bucket:         firstNonEmpty(*blobBucket, os.Getenv("FIELDLOG_BLOB_BUCKET")),
		Prefix:         firstNonEmpty(*blobPrefix, os.Getenv("FIELDLOG_BLOB_PREFIX")),
		PublicEndpoint: firstNonEmpty(*blobPublicEndpoint, os.Getenv("FIELDLOG_BLOB_PUBLIC_ENDPOINT")),
		UseSSL:         resolveBool(*blobUseSSL, "FIELDLOG_BLOB_USE_SSL"),
	})
	if !blobs.Enabled() {
		logger.Warn("blob storage not configured; upload_media requests will be rejected")
	}

	recorder := metrics.Default()
	handler := api.NewHandler(store, blobs)
	handler.Logger = logging.WithComponent(logger, "api")
	handler.Metrics = recorder
	if prefix := firstNonEmpty(*meetingIDPrefix, os.Getenv("FIELDLOG_MEETING_ID_PREFIX")); prefix != "" {
		handler.MeetingIDPrefix = prefix
	}

	rateCfg := server.RateLimitConfig{
		GlobalRPS:   resolveFloat(*globalRPS, "FIELDLOG_RATE_GLOBAL_RPS"),
		GlobalBurst: resolveInt(*globalBurst, "FIELDLOG_RATE_GLOBAL_BURST"),
		WriteLimit:  resolveInt(*writeLimit, "FIELDLOG_RATE_WRITE_LIMIT"),
		WriteWindow: resolveDuration(*writeWindow, "FIELDLOG_RATE_WRITE_WINDOW", time.Minute),
		Redis: server.RedisConfig{
			Addr:     firstNonEmpty(*redisAddr, os.Getenv("FIELDLOG_RATE_REDIS_ADDR")),
			Username: firstNonEmpty(*redisUsername, os.Getenv("FIELDLOG_RATE_REDIS_USERNAME")),
			Password: firstNonEmpty(*redisPassword, os.Getenv("FIELDLOG_RATE_REDIS_PASSWORD")),
			DB:       resolveInt(*redisDB, "FIELDLOG_RATE_REDIS_DB"),
			Timeout:  resolveDuration(*redisTimeout, "FIELDLOG_RATE_REDIS_TIMEOUT", 0),
			TLS: server.RedisTLSConfig{
				CAFile:             firstNonEmpty(*redisTLSCA, os.Getenv("FIELDLOG_RATE_REDIS_TLS_CA")),
				CertFile:           firstNonEmpty(*redisTLSCert, os.Getenv("FIELDLOG_RATE_REDIS_TLS_CERT")),
				KeyFile:            firstNonEmpty(*redisTLSKey, os.Getenv("FIELDLOG_RATE_REDIS_TLS_KEY")),
				ServerName:         firstNonEmpty(*redisTLSServerName, os.Getenv("FIELDLOG_RATE_REDIS_TLS_SERVER_NAME")),
				InsecureSkipVerify: resolveBool(*redisTLSSkipVerify, "FIELDLOG_RATE_REDIS_TLS_SKIP_VERIFY"),
			},
		},
	}

	tlsCfg := server.TLSConfig{
		CertFile: firstNonEmpty(*tlsCert, os.Getenv("FIELDLOG_TLS_CERT")),
		KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("FIELDLOG_TLS_KEY")),
	}

	srv, err := server.New(handler, server.Config{
		Addr:      listenAddr,
		TLS:       tlsCfg,
		RateLimit: rateCfg,
		Logger:    logging.WithComponent(logger, "http"),
		Metrics:   recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("field minutes API listening", "addr", listenAddr)
		if tlsCfg.CertFile != "" && tlsCfg.KeyFile != "" {
			logger.Info("TLS enabled", "cert_file", tlsCfg.CertFile)
		}
		logger.Info("metrics endpoint available", "path", "/metrics")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	if err := storeCleanup(ctx); err != nil {
		logger.Warn("failed to close datastore", "error", err)
	}

	logger.Info("server stopped")
}

type storeSettings struct {
	Driver          string
	DataPath        string
	PostgresDSN     string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdle     time.Duration
	HealthInterval  time.Duration
	ConnectTimeout  time.Duration
	AppName         string
}

func buildStore(cfg storeSettings) (tabular.Store, func(context.Context) error, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		if strings.TrimSpace(cfg.PostgresDSN) != "" {
			driver = "postgres"
		} else {
			driver = "json"
		}
	}

	switch driver {
	case "json":
		store, err := tabular.NewJSONStore(cfg.DataPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open json datastore %q: %w", cfg.DataPath, err)
		}
		return store, func(context.Context) error { return nil }, nil
	case "postgres":
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, nil, fmt.Errorf("postgres storage selected without DSN")
		}
		opts := []tabular.PostgresOption{
			tabular.WithPostgresPoolLimits(int32(cfg.MaxConns), int32(cfg.MinConns)),
			tabular.WithPostgresPoolDurations(cfg.MaxConnLifetime, cfg.MaxConnIdle, cfg.HealthInterval),
			tabular.WithPostgresApplicationName(cfg.AppName),
		}
		if cfg.ConnectTimeout > 0 {
			opts = append(opts, tabular.WithPostgresConnectTimeout(cfg.ConnectTimeout))
		}
		store, err := tabular.NewPostgresStore(context.Background(), cfg.PostgresDSN, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}

func resolveBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}
	if env, ok := os.LookupEnv(envKey); ok {
		if value, err := strconv.ParseBool(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return false
}
