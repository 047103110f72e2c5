package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/foodshare/internal/config"
	"github.com/example/foodshare/internal/database"
	"github.com/example/foodshare/internal/geo"
	"github.com/example/foodshare/internal/jobs"
	"github.com/example/foodshare/internal/logging"
	"github.com/example/foodshare/internal/realtime"
	"github.com/example/foodshare/internal/routes"
	"github.com/example/foodshare/internal/services"
	"github.com/example/foodshare/internal/store"
	"github.com/example/foodshare/internal/store/mongostore"
	"github.com/example/foodshare/internal/store/sqlstore"
	"github.com/example/foodshare/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("server stopped with error")
	}
	logging.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logging.Warn().Err(err).Msg("close store")
		}
	}()

	idx, closeIndex := openGeoIndex(ctx, cfg)
	defer closeIndex()

	hub := realtime.NewHub()

	var events services.EventPublisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kafka := services.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		defer kafka.Close()
		events = kafka
		logging.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("publishing listing events to kafka")
	}

	var admin services.AdminNotifier
	if telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat); telegram.Enabled() {
		admin = telegram
	}

	notifier := services.NewNotifier(hub, events, admin)
	defer notifier.Wait()

	listings := services.NewListingService(st, idx, notifier)
	if n, err := listings.WarmGeoIndex(ctx); err != nil {
		logging.Warn().Err(err).Msg("geo index warm-up failed")
	} else {
		logging.Info().Int("listings", n).Msg("geo index warmed")
	}

	app := routes.NewApp(cfg, routes.Deps{
		Store:     st,
		Auth:      services.NewAuthService(st, cfg.JWTSecret, cfg.TokenExpires),
		Listings:  listings,
		Donations: services.NewDonationService(st, idx),
	})

	realtimeServer := &http.Server{
		Addr: ":" + cfg.RealtimePort,
		Handler: realtime.NewRouter(hub, realtime.RouterConfig{
			AllowedOrigins:    cfg.RealtimeAllowedOrigins(),
			ConnectsPerMinute: cfg.RealtimeConnectRate,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(supervisor.TreeConfig{ShutdownTimeout: cfg.ShutdownTimeout})
	tree.AddAPIService(supervisor.NewFiberService(app, ":"+cfg.AppPort, cfg.ShutdownTimeout))
	tree.AddAPIService(supervisor.NewHTTPServerService("realtime-server", realtimeServer, cfg.ShutdownTimeout))
	tree.AddBackgroundService(hub)
	tree.AddBackgroundService(jobs.NewExpirySweeper(listings, cfg.ExpirySweepInterval))

	logging.Info().
		Str("api_port", cfg.AppPort).
		Str("realtime_port", cfg.RealtimePort).
		Str("store", cfg.StoreDriver).
		Str("environment", cfg.Environment).
		Msg("starting server")
	return tree.Serve(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == config.DriverMongo {
		return mongostore.Connect(ctx, mongostore.Options{
			URI:          cfg.MongoURI,
			Database:     cfg.MongoDatabase,
			Transactions: cfg.MongoTransactions,
		})
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	return sqlstore.New(db), nil
}

func openGeoIndex(ctx context.Context, cfg *config.Config) (geo.Index, func()) {
	if cfg.RedisAddr == "" {
		return geo.NewMemoryIndex(), func() {}
	}

	idx, err := geo.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	if err != nil {
		logging.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using in-memory geo index")
		return geo.NewMemoryIndex(), func() {}
	}
	logging.Info().Str("addr", cfg.RedisAddr).Msg("using redis geo index")
	return idx, func() { _ = idx.Close() }
}
