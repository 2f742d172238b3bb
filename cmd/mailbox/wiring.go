package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamza-younas94/whatsapp-mailbox/internal/autoreply"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/matcher"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/storage"
	"github.com/hamza-younas94/whatsapp-mailbox/internal/suppression"
	"github.com/hamza-younas94/whatsapp-mailbox/pkg/config"
)

// app holds the wired components shared by the serve and bot commands.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	store       storage.Storage
	suppression suppression.Store
	matcher     *matcher.Matcher
	watcher     *matcher.StopwordWatcher
	service     *autoreply.Service
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newApp(ctx context.Context) (*app, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	path := resolveConfigPath()
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err), zap.String("path", path))
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	if a.cfg.Database.UseInMemory {
		a.logger.Info("Using in-memory storage")
		a.store = storage.NewMemoryStorage()
	} else {
		a.logger.Info("Using PostgreSQL storage")
		db := a.cfg.Database
		pg, err := storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
			Host:     db.Host,
			Port:     db.Port,
			User:     db.User,
			Password: db.Password,
			DBName:   db.DBName,
			SSLMode:  db.SSLMode,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.store = pg
	}

	supp, err := a.newSuppressionStore(ctx)
	if err != nil {
		return err
	}
	a.suppression = supp

	a.matcher = matcher.NewDefault()
	if path := a.cfg.AutoReply.StopwordsFile; path != "" {
		w, err := matcher.NewStopwordWatcher(path, a.matcher, a.logger)
		if err != nil {
			return fmt.Errorf("failed to load stopwords: %w", err)
		}
		a.watcher = w
	}

	ar := a.cfg.AutoReply
	ledger := suppression.NewLedger(a.suppression, suppression.Policy{
		RateLimitInterval: ar.RateLimitInterval,
		DuplicateWindow:   ar.DuplicateWindow,
		SweepInterval:     ar.SweepInterval,
	}, a.logger)

	a.service = autoreply.NewService(a.matcher, ledger, a.logger)
	return nil
}

func (a *app) newSuppressionStore(ctx context.Context) (suppression.Store, error) {
	backend := a.cfg.AutoReply.SuppressionBackend
	a.logger.Info("Using suppression store", zap.String("backend", backend))

	switch backend {
	case config.BackendSQLite:
		s, err := suppression.NewSQLiteStore(a.cfg.AutoReply.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open suppression store: %w", err)
		}
		return s, nil
	case config.BackendPostgres:
		pg, ok := a.store.(*storage.PostgresStorage)
		if !ok {
			return nil, fmt.Errorf("suppression backend %q requires PostgreSQL storage", backend)
		}
		s, err := suppression.NewPostgresStore(ctx, pg.DB())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize suppression store: %w", err)
		}
		return s, nil
	default:
		return suppression.NewMemoryStore(), nil
	}
}

// startBackground launches the janitor and the stopword watcher.
func (a *app) startBackground(ctx context.Context) {
	go a.service.RunJanitor(ctx, a.cfg.AutoReply.JanitorInterval)
	if a.watcher != nil {
		go a.watcher.Run(ctx)
	}
}

func (a *app) Close() {
	if a.suppression != nil {
		if err := a.suppression.Close(); err != nil {
			a.logger.Warn("Failed to close suppression store", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close storage", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
