package booking

import (
	"context"

	"bookingdesk/internal/domain"
)

// BookingRepository is the persistence gateway for booking records.
type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	// Update is a compare-and-swap on Version; events are written atomically with the record.
	Update(ctx context.Context, b *domain.Booking, expectedVersion int64, events ...domain.OutboxEvent) error
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.Booking, error)
	ListByBusiness(ctx context.Context, businessID string, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
}

type BusinessRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Business, error)
	IncrementCounter(ctx context.Context, businessID, field string, delta int64) error
}

// EventPublisher pushes committed booking changes to live business dashboards.
type EventPublisher interface {
	PublishBookingEvent(businessID, eventType string, b *domain.Booking)
}
