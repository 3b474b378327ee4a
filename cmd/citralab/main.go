package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/adityawarman/citralab/internal/api"
	"github.com/adityawarman/citralab/internal/cmd"
	"github.com/adityawarman/citralab/internal/hmac"
	"github.com/adityawarman/citralab/internal/metrics"
	"github.com/adityawarman/citralab/internal/pipeline"
	"github.com/adityawarman/citralab/internal/session"
	"github.com/adityawarman/citralab/internal/tracing"

	"github.com/adityawarman/citralab/internal/cache"
	"github.com/adityawarman/citralab/internal/cache/memory"
	"github.com/adityawarman/citralab/internal/cache/redis"
	"github.com/adityawarman/citralab/internal/health"
	"github.com/adityawarman/citralab/internal/history"
	historyFile "github.com/adityawarman/citralab/internal/history/file"
	"github.com/adityawarman/citralab/internal/history/postgresql"
	"github.com/adityawarman/citralab/internal/image"
	"github.com/adityawarman/citralab/internal/image/opencv"
	"github.com/adityawarman/citralab/internal/logger"
	"github.com/adityawarman/citralab/internal/storage"
	fileStorage "github.com/adityawarman/citralab/internal/storage/file"
	"github.com/adityawarman/citralab/internal/storage/spaces"

	"github.com/jamiealquiza/envy"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

const serviceName = "citralab"

// Comandline flags
var (
	// Global
	listen        = flag.String("listen", ":8080", "listen address")
	metricsListen = flag.String("metrics-listen", ":8082", "metrics listen address")
	rootURL       = flag.String("root-url", "http://127.0.0.1:8080", "root url")
	loglevel      = zap.LevelFlag("log-level", zap.InfoLevel, "log level (default \"info\") (debug, info, warn, error, dpanic, panic, fatal)")
	workers       = flag.Int("workers", runtime.NumCPU(), "worker count for the image processor")
	removeFiles   = flag.Bool("remove-files", false, "also delete the stored files when history is deleted")
	enableTracing = flag.Bool("tracing", false, "export traces over otlp grpc")

	// History
	historyBackend           = flag.String("history", "file", "which history backend to use (file, postgresql)")
	historyWaitTimeout       = flag.Duration("history-wait-timeout", time.Second*30, "time to wait for a history store connection to be established before giving up")
	historyMigrationsAddress = flag.String("history-migrations-address", "file://migrations", "path to the history store migrations")

	// History - File
	historyFilePath = flag.String("history-file-path", "./history.json", "path to the history file")

	// History - Postgresql
	historyPostgresqlAddress  = flag.String("history-postgresql-address", "postgresql://postgres@127.0.0.1/postgres", "postgresql address")
	historyPostgresqlMaxConns = flag.Int("history-postgresql-max-conns", 0, "postgresql max connections")

	// Storage
	storageBackend = flag.String("storage", "file", "which storage backend to use (file, spaces)")

	// Storage - File
	storageFilePath = flag.String("storage-file-path", "./static", "path to the file storage")

	// Storage - Spaces
	storageSpacesSpace          = flag.String("storage-spaces-space", "", "digitalocean space to use")
	storageSpacesEndpoint       = flag.String("storage-spaces-endpoint", "", "spaces endpoint")
	storageSpacesAccessKey      = flag.String("storage-spaces-access-key", "", "spaces access key")
	storageSpacesSecretKey      = flag.String("storage-spaces-secret-key", "", "spaces secret key")
	storageSpacesForcePathStyle = flag.Bool("storage-spaces-force-path-style", false, "use path-style bucket addressing")

	// Cache
	cacheBackend = flag.String("cache", "memory", "which cache backend to use (memory, redis)")

	// Cache - Redis
	cacheRedisAddress  = flag.String("cache-redis-address", "redis://127.0.0.1:6379", "redis address, may contain authentication details")
	cacheRedisPoolSize = flag.Int("cache-redis-pool-size", 10, "redis connection pool size")

	// Session
	sessionKey = flag.String("session-key", "", "hmac key to use for signing the session cookies")
)

func main() {
	// Parse environment variables
	envy.Parse("CITRALAB")

	// Parse commandline flags
	flag.Parse()

	// Initialize the logger
	log := logger.New(*loglevel)
	defer log.Sync()

	// Set GOMAXPROCS
	maxprocs.Set(maxprocs.Logger(log.Infof))

	// Set up context for shutting down
	shutdownCtx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	// Initialize the tracer
	tracer := tracing.NewNoop(log, serviceName)
	if *enableTracing {
		var err error
		tracer, err = tracing.New(shutdownCtx, log, serviceName)
		if err != nil {
			log.Fatalf("error initializing tracing: %s", err)
		}
	}
	defer tracer.Shutdown(context.Background())

	// Initialize the history store, storage and cache
	store, artifactStorage, cacheProvider, err := setupBackends(shutdownCtx, log, tracer)
	if err != nil {
		log.Fatalf("error initializing backends: %s", err)
	}
	defer store.Shutdown()
	defer artifactStorage.Shutdown()
	defer cacheProvider.Shutdown()

	log.Infof("waiting for the history store")
	waitCtx, cancel := context.WithTimeout(context.Background(), *historyWaitTimeout)
	err = store.Wait(waitCtx)
	if err != nil {
		log.Fatalf("error waiting for the history store: %s", err)
	}

	cancel()

	log.Infof("migrating the history store")
	err = store.Migrate(*historyMigrationsAddress)
	if err != nil {
		log.Fatalf("error migrating the history store: %s", err)
	}

	// Initialize the image processor
	imageProcessorCtx, imageProcessorCancel := context.WithCancel(context.Background())
	defer imageProcessorCancel()

	imageProcessor, err := opencv.New(imageProcessorCtx, log, *workers, image.NewCache(tracer, cacheProvider, artifactStorage))
	if err != nil {
		log.Fatalf("error initializing image processor: %s", err)
	}

	// Initialize and start the health checker
	checkerCtx, checkerCancel := context.WithCancel(context.Background())
	defer checkerCancel()

	checker := &health.Checker{
		Ctx:     checkerCtx,
		History: store,
		Cache:   cacheProvider,
		Storage: artifactStorage,
		Log:     log,
	}
	go checker.Run()

	// Start the metrics http server
	go metrics.Serve(shutdownCtx, log, checker, *metricsListen)

	// Start and listen on http
	api := &api.API{
		Pipeline: &pipeline.Pipeline{
			Storage:     artifactStorage,
			Processor:   imageProcessor,
			History:     store,
			Tracer:      tracer,
			Log:         log,
			RemoveFiles: *removeFiles,
		},
		History: store,
		Storage: artifactStorage,
		Session: &session.Session{
			HMAC: &hmac.HMAC{
				Key: []byte(*sessionKey),
			},
		},
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		RootURL:        *rootURL,
		HandlerTimeout: cmd.HandlerTimeout,
	}
	server := &http.Server{
		Addr:         *listen,
		Handler:      api.Router(),
		ReadTimeout:  cmd.ReadTimeout,
		WriteTimeout: cmd.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Infof("shutting down the http server: %s", err)
			shutdown()
		}
	}()

	log.Infof("http server listening on %s", *listen)

	// Wait for shutdown or error
	err = cmd.WaitForInterrupt(shutdownCtx)
	log.Infof("shutting down: %s", err)

	// Shut down http server
	serverCtx, serverCancel := context.WithTimeout(context.Background(), cmd.WriteTimeout)
	defer serverCancel()
	if err := server.Shutdown(serverCtx); err != nil {
		log.Warnf("error shutting down: %s", err)
	}
}

func setupBackends(ctx context.Context, log *logger.Logger, tracer *tracing.Tracer) (store history.Provider, artifactStorage storage.Provider, cacheProvider cache.Provider, err error) {
	// History
	switch *historyBackend {
	case "file":
		store, err = historyFile.New(*historyFilePath)
	case "postgresql":
		store, err = postgresql.New(*historyPostgresqlAddress, *historyPostgresqlMaxConns)
	default:
		err = fmt.Errorf("invalid history backend")
	}

	if err != nil {
		return
	}

	// Storage
	switch *storageBackend {
	case "file":
		artifactStorage, err = fileStorage.New(*storageFilePath)
	case "spaces":
		artifactStorage, err = spaces.New(*storageSpacesSpace, *storageSpacesEndpoint, *storageSpacesAccessKey, *storageSpacesSecretKey, *storageSpacesForcePathStyle)
	default:
		err = fmt.Errorf("invalid storage backend")
	}

	if err != nil {
		return
	}

	// Cache
	switch *cacheBackend {
	case "memory":
		cacheProvider = memory.New()
	case "redis":
		cacheProvider, err = redis.New(ctx, tracer, *cacheRedisAddress, *cacheRedisPoolSize)
	default:
		err = fmt.Errorf("invalid cache backend")
	}

	return
}
