package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/example/storefront-cart/internal/api"
	"github.com/example/storefront-cart/internal/cartstore"
	"github.com/example/storefront-cart/internal/catalog"
	"github.com/example/storefront-cart/internal/config"
	"github.com/example/storefront-cart/internal/identity"
	"github.com/example/storefront-cart/internal/infrastructure/kafka"
	"github.com/example/storefront-cart/internal/logging"
	"github.com/example/storefront-cart/internal/profile"
	"github.com/example/storefront-cart/internal/session"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json", os.Stderr)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	root := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	logger := logging.Component(root, "Main")

	logger.Info().
		Str("addr", cfg.HTTPAddr).
		Str("profile_backend", cfg.ProfileBackend).
		Dur("debounce", cfg.CartDebounce).
		Dur("sync_interval", cfg.CartSyncInterval).
		Bool("kafka", cfg.KafkaEnabled).
		Msg("starting storefront cart service")

	profiles, closeProfiles, err := newProfileStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize profile store")
	}
	defer closeProfiles()

	verifier, err := identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token verifier")
	}

	storeOpts := []cartstore.Option{
		cartstore.WithDebounce(cfg.CartDebounce),
		cartstore.WithSyncInterval(cfg.CartSyncInterval),
		cartstore.WithRemoteTimeout(cfg.CartRemoteTimeout),
	}

	var producer *kafka.Producer
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		storeOpts = append(storeOpts, cartstore.WithPublisher(producer))
	}

	sessions := session.NewManager(profiles, root, storeOpts...)

	// Other instances announce their cart writes; reconcile early instead
	// of waiting for the next tick.
	var wg sync.WaitGroup
	if cfg.KafkaEnabled {
		groupID := cfg.KafkaGroupID
		if groupID == "" {
			groupID = "cart-sync-" + uuid.NewString()
		}
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, groupID, root)
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info().Str("group_id", groupID).Msg("starting cart sync consumer")
			if err := consumer.Consume(ctx, sessions.HandleMessage); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("cart sync consumer stopped")
			}
		}()
	}

	products := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogLimit, cfg.CatalogCacheTTL, root)
	handlers := api.NewHandlers(products, sessions, root)
	router := api.NewRouter(api.RouterConfig{
		Handlers: handlers,
		Verifier: verifier,
		Logger:   root,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	// Pending cart writes go out before the consumer and producer close.
	sessions.Shutdown(shutdownCtx)
	cancel()
	wg.Wait()
}

func newProfileStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (profile.Store, func(), error) {
	noop := func() {}

	switch cfg.ProfileBackend {
	case config.BackendPostgres:
		db, err := profile.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		store := profile.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		logger.Info().Msg("connected to PostgreSQL")
		return store, func() { db.Close() }, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, err
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
		return profile.NewRedisStore(client), func() { client.Close() }, nil

	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, noop, err
		}
		logger.Info().Str("table", cfg.DynamoTable).Msg("using DynamoDB")
		return profile.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoTable), noop, nil

	case config.BackendIdentityAPI:
		logger.Info().Str("url", cfg.IdentityAPIURL).Msg("using identity provider metadata")
		return profile.NewIdentityAPIStore(cfg.IdentityAPIURL, cfg.IdentityAPIKey, cfg.CartRemoteTimeout), noop, nil

	default:
		logger.Warn().Msg("using in-memory profile store; carts are lost on restart")
		return profile.NewMemoryStore(), noop, nil
	}
}
