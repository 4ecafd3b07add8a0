package main

import (
	"context"
	"fmt"
	"log"

	"github.com/iliyamo/home-services/internal/config"
	"github.com/iliyamo/home-services/internal/database"
	"github.com/iliyamo/home-services/internal/metrics"
	"github.com/iliyamo/home-services/internal/queue"
	"github.com/iliyamo/home-services/internal/repository"
	"github.com/iliyamo/home-services/internal/service"
	"github.com/iliyamo/home-services/internal/utils"
)

// openStore opens the principal store selected by STORE_DRIVER.  SQL stores
// create their tables before returning.
func openStore(ctx context.Context, cfg config.Config) (repository.PrincipalStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.Open(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		s, err := repository.NewMySQLStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		return repository.NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.DriverJSONFile:
		return repository.OpenFileStore(cfg.DataFile)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// newAuthService wires the Auth Service from cfg.  Registration events are
// published only when EVENTS_ENABLED is set.
func newAuthService(cfg config.Config, store repository.PrincipalStore, m *metrics.Metrics) *service.AuthService {
	opts := service.Options{
		PasswordMinLength: cfg.PasswordMinLength,
		Metrics:           m,
	}
	if cfg.EventsEnabled {
		opts.Events = queue.NewPublisher(cfg.AMQPURL)
	}
	return service.NewAuthService(store,
		utils.NewHasher(cfg.BcryptCost),
		utils.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL),
		opts,
	)
}

func seedAdmin(ctx context.Context, svc *service.AuthService, email, password string) error {
	p, created, err := svc.SeedAdmin(ctx, email, password)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Printf("admin %s created (id=%d)", p.Email, p.ID)
	} else {
		log.Printf("admin %s already exists (id=%d, role=%s)", p.Email, p.ID, p.Role)
	}
	return nil
}
