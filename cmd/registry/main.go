package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"athletics-registry/internal/config"
	"athletics-registry/internal/endpoint"
	"athletics-registry/internal/localstore"
	"athletics-registry/internal/logger"
	"athletics-registry/internal/memstore"
	"athletics-registry/internal/pgstore"
	"athletics-registry/internal/repository"
	"athletics-registry/internal/server"
	"athletics-registry/internal/session"
	"athletics-registry/internal/sheets"
	"athletics-registry/internal/store"
	"athletics-registry/internal/tabular"
	"athletics-registry/internal/tgbot"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	if cfg.DefaultSecret() {
		zl.Warn("JWT_SECRET is the default placeholder, set it before exposing the server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	events := repository.NewEventRepository(st, localstore.NewMemory(), logger.Component(zl, "events"))

	var (
		botApp *tgbot.App
		opts   []repository.ParticipantOption
	)
	if cfg.TelegramToken != "" {
		botApp, err = tgbot.New(cfg.TelegramToken, cfg.AdminTGIDs, events, logger.Component(zl, "tgbot"))
		if err != nil {
			zl.Fatal("telegram", zap.Error(err))
		}
		opts = append(opts, repository.WithNotifier(botApp))
	}
	participants := repository.NewParticipantRepository(st, events, logger.Component(zl, "participants"), opts...)
	if botApp != nil {
		botApp.SetParticipants(participants)
	}

	auth := session.NewAuthenticator(st, logger.Component(zl, "auth"))
	api := server.NewAPI(events, participants, auth, []byte(cfg.JWTSecret), cfg.SessionTTL, logger.Component(zl, "api"))

	// /exec skips the policy layer; it is opt-in and always signed.
	var storeHandler *endpoint.Handler
	if cfg.ServeStore {
		storeHandler = endpoint.New(st, cfg.StoreSecret, logger.Component(zl, "endpoint"))
	}

	httpSrv := server.New(cfg, api, storeHandler, zl)

	go func() {
		zl.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.String("backend", cfg.StoreBackend))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("http server", zap.Error(err))
			stop()
		}
	}()

	if botApp != nil {
		go func() {
			if err := botApp.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("bot stopped", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	zl.Info("bye")
}

// openStore builds the store for the configured backend. The returned func
// releases whatever the backend holds open.
func openStore(ctx context.Context, cfg config.Config, zl *zap.Logger) (store.Store, func(), error) {
	closeFn := func() {}
	var backend tabular.Backend
	switch cfg.StoreBackend {
	case config.BackendRemote:
		return store.NewRemote(cfg.StoreEndpointURL, logger.Component(zl, "store"),
			store.WithSecret(cfg.StoreSecret),
			store.WithTimeout(cfg.StoreTimeout),
		), closeFn, nil
	case config.BackendSheets:
		c, err := sheets.New(ctx, cfg.GoogleServiceAccountJSON, cfg.SpreadsheetID, logger.Component(zl, "sheets"))
		if err != nil {
			return nil, closeFn, err
		}
		backend = c
	case config.BackendPostgres:
		db, err := pgstore.Setup(ctx, cfg.DatabaseURL, cfg.Debug)
		if err != nil {
			return nil, closeFn, err
		}
		if err := pgstore.CreateTables(ctx, db); err != nil {
			_ = db.Close()
			return nil, closeFn, err
		}
		backend = pgstore.New(db)
		closeFn = func() { _ = db.Close() }
	default:
		zl.Warn("using in-memory store, data is lost on restart")
		backend = memstore.New()
	}
	return store.NewLocal(backend, logger.Component(zl, "store")), closeFn, nil
}
