// Package app wires configuration into the concrete gateways, transports and
// router shared by the binaries under cmd/.
package app

import (
	"context"
	"fmt"

	"bookingdesk/internal/config"
	"bookingdesk/internal/database"
	"bookingdesk/internal/domain"
	"bookingdesk/internal/modules/booking"
	"bookingdesk/internal/modules/notification"
	"bookingdesk/internal/repository"
	"bookingdesk/internal/repository/mongostore"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BusinessStore interface {
	booking.BusinessRepository
	Create(ctx context.Context, b *domain.Business) error
}

type CustomerStore interface {
	notification.CustomerReader
	Create(ctx context.Context, c *domain.Customer) error
}

// Stores is one persistence backend seen through the interfaces the
// services consume.
type Stores struct {
	Bookings   booking.BookingRepository
	Businesses BusinessStore
	Customers  CustomerStore
	Outbox     notification.OutboxStore

	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// OpenStores connects the backend selected by STORE_DRIVER and prepares its
// schema or indexes.
func OpenStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		return openMongo(ctx, cfg, log)
	case config.StoreSQL:
		db, err := database.Connect(cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		return SQLStores(db)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// SQLStores migrates db and wraps it in the gorm repositories.
func SQLStores(db *gorm.DB) (*Stores, error) {
	if err := repository.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}

	return &Stores{
		Bookings:   repository.NewBookingRepository(db),
		Businesses: repository.NewBusinessRepository(db),
		Customers:  repository.NewCustomerRepository(db),
		Outbox:     repository.NewOutboxRepository(db),
		Ping:       sqlDB.PingContext,
		Close:      func(context.Context) error { return sqlDB.Close() },
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Stores, error) {
	store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}

	return &Stores{
		Bookings:   store.Bookings(),
		Businesses: store.Businesses(),
		Customers:  store.Customers(),
		Outbox:     store.Outbox(),
		Ping:       store.Ping,
		Close:      store.Close,
	}, nil
}
