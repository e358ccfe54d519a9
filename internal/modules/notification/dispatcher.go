package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"bookingdesk/internal/domain"
	"bookingdesk/internal/pkg/logger"

	"go.uber.org/zap"
)

type BookingReader interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
}

type BusinessReader interface {
	GetByID(ctx context.Context, id string) (*domain.Business, error)
}

type CustomerReader interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
}

// Dispatcher renders and sends the Acceptance and Confirmation emails.
type Dispatcher struct {
	bookings   BookingReader
	businesses BusinessReader
	customers  CustomerReader
	renderer   *Renderer
	mailer     Mailer
	log        *zap.Logger
}

func NewDispatcher(
	bookings BookingReader,
	businesses BusinessReader,
	customers CustomerReader,
	renderer *Renderer,
	mailer Mailer,
	log *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		bookings:   bookings,
		businesses: businesses,
		customers:  customers,
		renderer:   renderer,
		mailer:     mailer,
		log:        logger.OrNop(log),
	}
}

// Deliver sends the email for one outbox event. Every failure is wrapped in
// ErrNotificationFailure so the worker can schedule a retry.
func (d *Dispatcher) Deliver(ctx context.Context, ev domain.OutboxEvent) error {
	b, err := d.bookings.GetByID(ctx, ev.BookingID)
	if err != nil {
		return fmt.Errorf("%w: load booking %s: %v", ErrNotificationFailure, ev.BookingID, err)
	}

	var payload domain.NotificationPayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("%w: decode payload: %v", ErrNotificationFailure, err)
		}
	}

	switch ev.Type {
	case domain.EventBookingAcceptance:
		// A payment link for a booking that is already cancelled is noise.
		if b.IsCancelled() {
			d.log.Info("acceptance skipped for cancelled booking", zap.String("booking_id", b.ID))
			return nil
		}
		return d.send(ctx, b, payload, d.renderer.Acceptance)
	case domain.EventBookingConfirmation:
		// The payment may have been rejected or resubmitted after the event was queued.
		if !confirmationStillValid(b, payload) {
			d.log.Info("confirmation skipped, payment no longer verified",
				zap.String("booking_id", b.ID),
				zap.String("payment_status", string(b.PaymentStatus)),
			)
			return nil
		}
		return d.send(ctx, b, payload, d.renderer.Confirmation)
	}
	return fmt.Errorf("%w: unknown event type %q", ErrNotificationFailure, ev.Type)
}

func confirmationStillValid(b *domain.Booking, p domain.NotificationPayload) bool {
	if b.PaymentStatus != domain.PaymentPaid || b.TransactionID == nil {
		return false
	}
	return p.TransactionID == "" || *b.TransactionID == p.TransactionID
}

type renderFunc func(*domain.Booking, *domain.Business, *domain.Customer, domain.NotificationPayload) (Message, error)

func (d *Dispatcher) send(ctx context.Context, b *domain.Booking, p domain.NotificationPayload, render renderFunc) error {
	biz, err := d.businesses.GetByID(ctx, b.BusinessID)
	if err != nil {
		return fmt.Errorf("%w: load business %s: %v", ErrNotificationFailure, b.BusinessID, err)
	}
	cust, err := d.customers.GetByID(ctx, b.CustomerID)
	if err != nil {
		return fmt.Errorf("%w: load customer %s: %v", ErrNotificationFailure, b.CustomerID, err)
	}
	if cust.Email == "" {
		return fmt.Errorf("%w: customer %s has no email", ErrNotificationFailure, cust.ID)
	}

	msg, err := render(b, biz, cust, p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailure, err)
	}
	if err := d.mailer.Send(ctx, msg.To, msg.Subject, msg.HTML); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailure, err)
	}

	d.log.Info("email sent",
		zap.String("booking_id", b.ID),
		zap.String("subject", msg.Subject),
	)
	return nil
}
