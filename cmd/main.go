package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/config"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/repository/memory"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/pkg/logger"
	"github.com/fjod/go_cart/storefront/pkg/tracing"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:   "storefront",
		Usage:  "cart and checkout API",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "seed",
				Usage:  "insert the sample catalog when it is empty",
				Action: seed,
			},
			{
				Name:   "migrate",
				Usage:  "apply the orders schema migrations",
				Action: migrateOrders,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// stores holds the repositories for the configured storage driver and the
// functions that release them.
type stores struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	users    repository.UserRepository
	orders   repository.OrderRepository
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func ordersCredentials(cfg *config.Config) *repository.Credentials {
	return &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.StorageDriver == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &stores{carts: store, products: store, users: store, orders: store}, nil
	}

	s := &stores{}

	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			log.Warn("mongo disconnect failed", zap.Error(err))
		}
	})
	if err := repository.EnsureIndexes(ctx, mongoDB); err != nil {
		s.close()
		return nil, err
	}
	log.Info("connected to MongoDB", zap.String("db", cfg.MongoDBName))

	creds := ordersCredentials(cfg)
	orders, err := repository.NewPostgresOrderRepository(creds)
	if err != nil {
		s.close()
		return nil, err
	}
	s.closers = append(s.closers, func() { _ = orders.Close() })
	if err := orders.RunMigrations(creds); err != nil {
		s.close()
		return nil, err
	}
	log.Info("connected to Postgres", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	s.carts = repository.NewMongoCartRepository(mongoDB)
	s.products = repository.NewMongoProductRepository(mongoDB)
	s.users = repository.NewMongoUserRepository(mongoDB)
	s.orders = orders
	return s, nil
}

func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (cache.CartCache, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("cart cache disabled")
		return cache.NoopCache{}, func() {}, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	return cache.NewRedisCache(redisClient), func() { _ = redisClient.Close() }, nil
}

type closablePublisher interface {
	service.OrderPublisher
	Close() error
}

func openPublisher(cfg *config.Config, log *zap.Logger) closablePublisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("order events disabled")
		return publisher.NoopPublisher{}
	}
	log.Info("publishing order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.OrdersTopic))
	return publisher.NewKafkaPublisher(cfg.OrdersTopic, cfg.KafkaBrokers...)
}

func serve(c *cli.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	shutdownTracing, err := tracing.Setup("storefront", cfg.TracingExporter)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	ctx := c.Context
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	cartCache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	events := openPublisher(cfg, log)
	defer func() {
		if err := events.Close(); err != nil {
			log.Warn("publisher close failed", zap.Error(err))
		}
	}()

	catalog := service.NewCatalogService(st.products, log)
	if cfg.SeedProducts {
		n, err := catalog.Seed(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("seeded catalog", zap.Int("products", n))
		}
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)

	router := h.NewRouter(h.Services{
		Cart:     service.NewCartService(st.carts, st.products, cartCache, log),
		Checkout: service.NewCheckoutService(st.carts, st.products, st.orders, cartCache, events, log),
		Catalog:  catalog,
		Accounts: service.NewAccountService(st.users, st.orders, tokens, hasher, log),
	}, log, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("storefront starting", zap.String("port", cfg.HTTPPort), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

func seed(c *cli.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := openStores(c.Context, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	n, err := service.NewCatalogService(st.products, log).Seed(c.Context)
	if err != nil {
		return err
	}
	log.Info("seed finished", zap.Int("inserted", n))
	return nil
}

func migrateOrders(c *cli.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.StorageDriver == config.StorageMemory {
		log.Info("in-memory storage has no schema to migrate")
		return nil
	}

	creds := ordersCredentials(cfg)
	orders, err := repository.NewPostgresOrderRepository(creds)
	if err != nil {
		return err
	}
	defer orders.Close()

	if err := orders.RunMigrations(creds); err != nil {
		return err
	}
	log.Info("orders schema is up to date")
	return nil
}
