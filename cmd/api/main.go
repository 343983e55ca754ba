package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "staybook/internal/adapters/http_server"
	kafkaad "staybook/internal/adapters/kafka"
	"staybook/internal/adapters/observability"
	redisad "staybook/internal/adapters/redis"
	"staybook/internal/app"
	"staybook/internal/pricing"
	"staybook/internal/shared"
	mysqlrepo "staybook/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	publisher := kafkaad.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	search := app.NewSearchService(repo, cache, cfg.CacheTTL)
	booking := app.NewBookingService(repo, publisher, log.Logger, cfg.BookingTimeout, cfg.EventQueueSize)
	defer booking.Close()
	admin := app.NewAdminService(repo)

	pricer := pricing.NewModel(log.Logger)
	if err := pricer.ReloadFromCSV(cfg.PriceDataPath); err != nil {
		log.Warn().Err(err).Msg("price model load failed, continuing with fallback")
	}

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Search: search, Booking: booking, Admin: admin, Pricer: pricer})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
