package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/crm/internal/contacts/auth"
	"github.com/gartstein/crm/internal/contacts/cache"
	"github.com/gartstein/crm/internal/contacts/config"
	"github.com/gartstein/crm/internal/contacts/controller"
	"github.com/gartstein/crm/internal/contacts/db"
	"github.com/gartstein/crm/internal/contacts/events"
	"github.com/gartstein/crm/internal/contacts/handlers"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const startupTimeout = 2 * time.Minute

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		err := logger.Sync()
		if err != nil {
			logger.Error("failed to sync logger", zap.Error(err))
		}
	}(logger)

	cfg, err := config.Load(config.Path())
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	repo, err := connectDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	candidates := initCache(ctx, cfg, logger)

	var producer controller.EventProducer = events.NopProducer{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaProducer, err := connectProducer(cfg, logger)
		if err != nil {
			logger.Fatal("failed to initialize Kafka producer", zap.Error(err))
		}
		defer kafkaProducer.Close()
		producer = kafkaProducer

		consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.Topic, logger)
		consumer.RegisterHandler(events.InvalidateCandidates(candidates))
		consumer.Start(ctx)
		defer consumer.Close()
	} else {
		logger.Warn("KAFKA_BROKERS not set, contact events are not published")
	}

	contactSvc := controller.NewContactService(repo, candidates, producer, logger)
	duplicateSvc := controller.NewDuplicateService(repo, candidates, logger)

	// Create handlers
	contactHandler := handlers.NewContactHandler(contactSvc, duplicateSvc, logger,
		handlers.WithDetailedErrorStatus(cfg.DetailedErrorStatus))

	// Create server
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)

	// Register HTTP gateway
	if err := server.RegisterHTTPGateway(
		[]grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
		contactHandler,
		initVerifier(cfg, logger),
		cfg.AllowedOrigins); err != nil {
		logger.Fatal("Failed to register HTTP gateway", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, logger)
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}

// connectDatabase retries until Postgres accepts connections.
func connectDatabase(cfg *config.Config, logger *zap.Logger) (*db.Repository, error) {
	var repo *db.Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = db.NewRepository(cfg.Database())
		return err
	}, startupBackOff(), func(err error, wait time.Duration) {
		logger.Warn("database not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	return repo, err
}

// connectProducer retries until a Kafka broker answers.
func connectProducer(cfg *config.Config, logger *zap.Logger) (*events.Producer, error) {
	var producer *events.Producer
	err := backoff.RetryNotify(func() error {
		var err error
		producer, err = events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		return err
	}, startupBackOff(), func(err error, wait time.Duration) {
		logger.Warn("Kafka not ready, retrying", zap.Error(err), zap.Duration("wait", wait))
	})
	return producer, err
}

func startupBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = startupTimeout
	return b
}

// initCache uses Redis when configured. An unreachable Redis is only
// logged; the duplicate service falls back to the database.
func initCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) cache.CandidateCache {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, duplicate candidates are not cached")
		return cache.Nop{}
	}

	rc := cache.NewRedis(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}), cfg.CandidateTTL)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		logger.Warn("Redis is not reachable", zap.Error(err), zap.String("addr", cfg.RedisAddr))
	}
	return rc
}

func initVerifier(cfg *config.Config, logger *zap.Logger) auth.Verifier {
	if cfg.AuthMode == config.AuthModeRemote {
		logger.Info("Verifying tokens with the identity provider", zap.String("url", cfg.AuthURL))
		return auth.NewRemoteVerifier(cfg.AuthURL, cfg.AuthAPIKey, cfg.AuthTimeout)
	}
	return auth.NewJWTVerifier(cfg.JWTSecret)
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then shuts down servers.
func waitForShutdown(server *handlers.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()
	logger.Info("Servers stopped properly")
}
