package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/lemon/internal/analytics"
	"github.com/MarcoPoloResearchLab/lemon/internal/auth"
	"github.com/MarcoPoloResearchLab/lemon/internal/config"
	"github.com/MarcoPoloResearchLab/lemon/internal/database"
	"github.com/MarcoPoloResearchLab/lemon/internal/recordstore"
	"github.com/MarcoPoloResearchLab/lemon/internal/social"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	sessionIssuer   = "lemon-cli"
	sessionAudience = "lemon"
)

// Runtime bundles the collaborators a command needs.
type Runtime struct {
	Service  *social.Service
	Store    *recordstore.Store
	Sessions *auth.SessionIssuer
	closers  []func() error
}

// RuntimeFactory builds a Runtime for a single command invocation.
type RuntimeFactory func(ctx context.Context) (*Runtime, error)

// Close releases storage and analytics resources in reverse order of acquisition.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for index := len(r.closers) - 1; index >= 0; index-- {
		if err := r.closers[index](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// NewRuntime wires storage, analytics, password hashing and sessions from cfg.
func NewRuntime(cfg config.AppConfig, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rt := &Runtime{}

	backend, err := openBackend(rt, cfg, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	tagger, err := openTagger(rt, cfg, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	store, err := recordstore.New(recordstore.Config{Backend: backend, Logger: logger})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	service, err := social.NewService(social.ServiceConfig{
		Store:     store,
		Hasher:    auth.NewBcryptHasher(cfg.BcryptCost),
		Analytics: tagger,
		Logger:    logger,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Service = service
	rt.Store = store

	if cfg.SessionsEnabled() {
		sessions, err := auth.NewSessionIssuer(auth.SessionIssuerConfig{
			SigningSecret: []byte(cfg.AuthSigningSecret),
			Issuer:        sessionIssuer,
			Audience:      sessionAudience,
			TokenTTL:      cfg.SessionTTL,
		})
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.Sessions = sessions
	}

	return rt, nil
}

func openBackend(rt *Runtime, cfg config.AppConfig, logger *zap.Logger) (recordstore.Backend, error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		return recordstore.NewMemoryBackend(), nil
	case config.StorageDriverDirectory:
		backend, err := recordstore.NewDirectoryBackend(afero.NewOsFs(), cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.StorageDriverSQLite:
		db, err := database.OpenSQLite(cfg.StoragePath, logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, sqlDB.Close)
		backend, err := recordstore.NewSQLiteBackend(db)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("storage driver %q is not supported", cfg.StorageDriver)
	}
}

func openTagger(rt *Runtime, cfg config.AppConfig, logger *zap.Logger) (analytics.Tagger, error) {
	switch cfg.AnalyticsSink {
	case config.AnalyticsSinkNone:
		return analytics.Nop{}, nil
	case config.AnalyticsSinkLog:
		return analytics.NewLogTagger(logger), nil
	case config.AnalyticsSinkRedis:
		tagger, err := analytics.NewRedisStreamTagger(analytics.RedisStreamConfig{
			Addr:     cfg.AnalyticsRedisAddress,
			Password: cfg.AnalyticsRedisPassword,
			Stream:   cfg.AnalyticsRedisStream,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, tagger.Close)
		return tagger, nil
	default:
		return nil, fmt.Errorf("analytics sink %q is not supported", cfg.AnalyticsSink)
	}
}
