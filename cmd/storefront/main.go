package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/cache"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/cart"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/catalog"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/config"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/db"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/events"
	httpHandler "github.com/vasiliy-maslov/ethnic-storefront/internal/handler/http"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/order"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/settings"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/user"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/wishlist"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg)

	log.Info().Msg("Storefront starting...")

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	pg, err := db.New(startCtx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	if err := pg.Migrate(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	rdb, err := cache.NewRedis(startCtx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis client")
		}
	}()

	var publisher events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
	} else {
		log.Warn().Msg("No Kafka brokers configured, order events are discarded")
		publisher = events.NewNoopPublisher()
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	sessions := session.NewRedisStore(rdb, cfg.Session.TTL)

	userService := user.NewService(user.NewRepository(pg.DB))
	catalogService := catalog.NewService(catalog.NewRepository(pg.DB))
	settingsService := settings.NewService(settings.NewRepository(pg.DB), rdb)
	cartService := cart.NewService(cart.NewRepository(pg.DB), catalogService, sessions)
	wishlistService := wishlist.NewService(wishlist.NewRepository(pg.DB))
	orderService := order.NewService(order.NewRepository(pg.DB), settingsService, cartService, publisher)

	health := httpHandler.NewHealthHandler(map[string]httpHandler.HealthCheck{
		"postgres": func(ctx context.Context) error { return pg.DB.PingContext(ctx) },
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	router := httpHandler.NewRouter(httpHandler.RouterConfig{
		Sessions:       sessions,
		CookieName:     cfg.Session.CookieName,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Health:         health,
		API: []httpHandler.Routes{
			httpHandler.NewAuthHandler(userService, sessions, cfg.Session),
			httpHandler.NewCatalogHandler(catalogService),
			httpHandler.NewCartHandler(cartService),
			httpHandler.NewOrderHandler(orderService, cartService),
			httpHandler.NewWishlistHandler(wishlistService),
			httpHandler.NewAdminUserHandler(userService),
			httpHandler.NewSettingsHandler(settingsService),
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	log.Logger = log.With().Str("service", cfg.App.Name).Logger()
}
