package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-be/internal/auth"
	"storefront-be/internal/cart"
	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/events"
	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/product"
	"storefront-be/internal/rest"
	"storefront-be/internal/user"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	initDBFunc      = db.NewDatabase
	startServerFunc = startServer
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	decimal.MarshalJSONWithoutQuotes = true

	database, err := initDBFunc(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(database, cfg.MigrationsPath, db.Up); err != nil {
			return err
		}
		logger.L().Info("migrations applied", zap.String("path", cfg.MigrationsPath))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, closeCache := newCartCache(ctx, cfg)
	defer closeCache()

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
	defer publisher.Close()

	return startServerFunc(ctx, ":"+cfg.AppPort, newServer(ctx, cfg, database, cache, publisher))
}

// newServer wires repositories, services and the router.
func newServer(ctx context.Context, cfg *config.Config, database *sql.DB, cache cart.Cache, publisher events.Publisher) http.Handler {
	if cfg.JWTSecret == "" {
		logger.L().Warn("JWT_SECRET is not set, login and registration will fail")
	}
	if cfg.PaystackSecretKey == "" {
		logger.L().Warn("PAYSTACK_SECRET_KEY is not set, payments are disabled")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	userSvc := user.NewService(user.NewRepository(database), tokens)
	productSvc := product.NewService(product.NewRepository(database), cache)
	cartSvc := cart.NewService(cart.NewRepository(database), productSvc, cache)
	orderSvc := order.NewService(order.NewRepository(database), cartSvc, publisher)
	paymentSvc := payment.NewService(
		payment.NewRepository(database),
		payment.NewPaystackGateway(cfg.PaystackSecretKey, cfg.PaystackBaseURL, cfg.PaymentTimeout),
		orderSvc,
		cartSvc,
		publisher,
		cfg.PaystackCallbackURL,
	)

	return rest.NewRouter(rest.Deps{
		DB:             database,
		Tokens:         tokens,
		Limiter:        middleware.NewRateLimiter(ctx),
		Users:          userSvc,
		Products:       productSvc,
		Carts:          cartSvc,
		Orders:         orderSvc,
		Payments:       paymentSvc,
		WebhookSecret:  cfg.PaystackSecretKey,
		CORSOrigin:     cfg.CORSOrigin,
		RequestTimeout: cfg.RequestTimeout,
		VerboseErrors:  !cfg.IsProduction(),
		SecureCookies:  cfg.IsProduction(),
	})
}

// newCartCache returns a Redis cache when REDIS_ADDR is set and reachable.
// Carts are always served from Postgres otherwise.
func newCartCache(ctx context.Context, cfg *config.Config) (cart.Cache, func()) {
	if cfg.RedisAddr == "" {
		return cart.NoopCache{}, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.L().Warn("redis unreachable, cart cache disabled",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
		_ = client.Close()
		return cart.NoopCache{}, func() {}
	}

	logger.L().Info("cart cache enabled", zap.String("addr", cfg.RedisAddr))
	return cart.NewRedisCache(client, cfg.CartCacheTTL), func() { _ = client.Close() }
}

func startServer(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
