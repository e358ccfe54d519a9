package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookingdesk/internal/domain"
	"bookingdesk/internal/pkg/logger"
	"bookingdesk/internal/pkg/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	EventBookingCreated          = "booking.created"
	EventBookingConfirmed        = "booking.confirmed"
	EventBookingDeclined         = "booking.declined"
	EventBookingPaymentSubmitted = "booking.payment_submitted"
	EventBookingPaymentVerified  = "booking.payment_verified"
	EventBookingPaymentRejected  = "booking.payment_rejected"
	EventBookingCancelled        = "booking.cancelled"
)

// Service is the booking lifecycle engine. Every mutation is
// guard -> transition check -> mutate a copy -> compare-and-swap save.
type Service struct {
	bookings   BookingRepository
	businesses BusinessRepository
	guard      *Guard
	publisher  EventPublisher
	log        *zap.Logger

	now   func() time.Time
	newID func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(
	bookings BookingRepository,
	businesses BusinessRepository,
	publisher EventPublisher,
	log *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		bookings:   bookings,
		businesses: businesses,
		guard:      NewGuard(bookings),
		publisher:  publisher,
		log:        logger.OrNop(log),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) CreateBooking(ctx context.Context, actor Actor, req CreateBookingRequest) (*domain.Booking, error) {
	if actor.Role != RoleCustomer || actor.ID == "" {
		return nil, ErrForbidden
	}

	businessID := strings.TrimSpace(req.BusinessID)
	if businessID == "" {
		return nil, fmt.Errorf("%w: businessId is required", ErrValidation)
	}
	bt := domain.BusinessType(strings.ToLower(strings.TrimSpace(req.BusinessType)))
	if !bt.Valid() {
		return nil, fmt.Errorf("%w: unknown businessType %q", ErrValidation, req.BusinessType)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	advance := req.Amount
	if req.AdvanceAmount != nil {
		advance = *req.AdvanceAmount
		if advance <= 0 || advance > req.Amount {
			return nil, fmt.Errorf("%w: advanceAmount must be in (0, amount]", ErrValidation)
		}
	}

	details, err := domain.DecodeDetails(bt, req.BookingDetails)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if verrs := validator.Validate(details); verrs != nil {
		return nil, fmt.Errorf("%w: bookingDetails %v", ErrValidation, verrs)
	}
	if err := details.Check(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	business, err := s.businesses.GetByID(ctx, businessID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load business: %w", err)
	}
	if business.BusinessType != "" && business.BusinessType != bt {
		return nil, fmt.Errorf("%w: business %s does not take %s bookings", ErrValidation, businessID, bt)
	}

	now := s.now()
	b := &domain.Booking{
		ID:              s.newID(),
		CustomerID:      actor.ID,
		BusinessID:      businessID,
		BusinessType:    bt,
		Details:         details,
		Amount:          req.Amount,
		AdvanceAmount:   advance,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		Status:          domain.BookingPendingApproval,
		PaymentStatus:   domain.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	// The record is committed; a failed increment is logged, not surfaced.
	if err := s.businesses.IncrementCounter(ctx, businessID, domain.CounterTotalBookings, 1); err != nil {
		s.log.Error("business booking counter not incremented",
			zap.String("booking_id", b.ID),
			zap.String("business_id", businessID),
			zap.Error(err),
		)
	}

	s.log.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("business_id", businessID),
		zap.String("business_type", string(bt)),
	)
	s.publish(EventBookingCreated, b)
	return b, nil
}

// BusinessTransition lets the owning business confirm or decline a pending request.
func (s *Service) BusinessTransition(ctx context.Context, actor Actor, bookingID string, req TransitionRequest) (*domain.Booking, error) {
	target := domain.BookingStatus(strings.TrimSpace(req.Status))
	if target != domain.BookingConfirmed && target != domain.BookingCancelled {
		return nil, fmt.Errorf("%w: status must be confirmed or cancelled", ErrValidation)
	}

	current, err := s.guard.ForBusiness(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	roomNumber := strings.TrimSpace(req.RoomNumber)
	if roomNumber != "" && (current.BusinessType != domain.BusinessHotel || target != domain.BookingConfirmed) {
		return nil, fmt.Errorf("%w: roomNumber only applies when confirming a hotel booking", ErrValidation)
	}

	if err := checkBusinessTransition(current.Status, target); err != nil {
		return nil, err
	}

	now := s.now()
	next := current.Clone()
	next.Status = target
	next.UpdatedAt = now

	var events []domain.OutboxEvent
	eventType := EventBookingDeclined
	if target == domain.BookingConfirmed {
		next.ApprovedAt = &now
		if roomNumber != "" {
			next.RoomNumber = roomNumber
		}
		ev, err := s.newOutboxEvent(domain.EventBookingAcceptance, next, domain.NotificationPayload{RoomNumber: next.RoomNumber}, now)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
		eventType = EventBookingConfirmed
	} else {
		next.CancelledAt = &now
	}

	if err := s.save(ctx, next, current.Version, events...); err != nil {
		return nil, err
	}

	s.log.Info("booking status changed by business",
		zap.String("booking_id", next.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next.Status)),
	)
	s.publish(eventType, next)
	return next, nil
}

// SubmitPayment records the customer's claim that the advance was paid.
// Resubmitting overwrites the previous claim.
func (s *Service) SubmitPayment(ctx context.Context, actor Actor, bookingID string, req SubmitPaymentRequest) (*domain.Booking, error) {
	txnID := strings.TrimSpace(req.TransactionID)
	if txnID == "" {
		return nil, fmt.Errorf("%w: transactionId is required", ErrValidation)
	}

	current, err := s.guard.ForCustomer(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkSubmitPayment(current); err != nil {
		return nil, err
	}

	now := s.now()
	next := current.Clone()
	next.PaymentStatus = domain.PaymentPendingVerification
	next.TransactionID = &txnID
	next.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	next.PaymentSubmittedAt = &now
	next.UpdatedAt = now

	if err := s.save(ctx, next, current.Version); err != nil {
		return nil, err
	}

	s.log.Info("payment submitted",
		zap.String("booking_id", next.ID),
		zap.String("payment_method", next.PaymentMethod),
	)
	s.publish(EventBookingPaymentSubmitted, next)
	return next, nil
}

// VerifyPayment records the business's yes/no on a payment claim. A rejection
// sends the booking back to pending and clears the claim.
func (s *Service) VerifyPayment(ctx context.Context, actor Actor, bookingID string, received bool) (*domain.Booking, error) {
	current, err := s.guard.ForBusiness(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkVerifyPayment(current, received); err != nil {
		return nil, err
	}

	now := s.now()
	next := current.Clone()
	next.UpdatedAt = now

	var events []domain.OutboxEvent
	eventType := EventBookingPaymentRejected
	if received {
		next.PaymentStatus = domain.PaymentPaid
		next.PaymentVerifiedAt = &now
		payload := domain.NotificationPayload{}
		if next.TransactionID != nil {
			payload.TransactionID = *next.TransactionID
		}
		ev, err := s.newOutboxEvent(domain.EventBookingConfirmation, next, payload, now)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
		eventType = EventBookingPaymentVerified
	} else {
		next.PaymentStatus = domain.PaymentPending
		next.TransactionID = nil
		next.PaymentSubmittedAt = nil
		next.PaymentMethod = ""
		// PaymentVerifiedAt survives a reversal as the record of the earlier verification.
	}

	if err := s.save(ctx, next, current.Version, events...); err != nil {
		return nil, err
	}

	s.log.Info("payment verified",
		zap.String("booking_id", next.ID),
		zap.Bool("received", received),
		zap.String("payment_status", string(next.PaymentStatus)),
	)
	s.publish(eventType, next)
	return next, nil
}

// CancelBooking is customer-initiated and allowed from any non-terminal
// state. No refund is computed or recorded.
func (s *Service) CancelBooking(ctx context.Context, actor Actor, bookingID string) (*domain.Booking, error) {
	current, err := s.guard.ForCustomer(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if err := checkCancel(current); err != nil {
		return nil, err
	}

	now := s.now()
	next := current.Clone()
	next.Status = domain.BookingCancelled
	next.CancelledAt = &now
	next.UpdatedAt = now

	if err := s.save(ctx, next, current.Version); err != nil {
		return nil, err
	}

	s.log.Info("booking cancelled by customer",
		zap.String("booking_id", next.ID),
		zap.String("payment_status", string(next.PaymentStatus)),
	)
	s.publish(EventBookingCancelled, next)
	return next, nil
}

func (s *Service) GetBooking(ctx context.Context, actor Actor, bookingID string) (*domain.Booking, error) {
	return s.guard.ForParticipant(ctx, actor, bookingID)
}

func (s *Service) ListForCustomer(ctx context.Context, actor Actor, limit, offset int) ([]domain.Booking, error) {
	if actor.Role != RoleCustomer || actor.ID == "" {
		return nil, ErrForbidden
	}
	return s.bookings.ListByCustomer(ctx, actor.ID, limit, offset)
}

func (s *Service) ListForBusiness(ctx context.Context, actor Actor, status string, limit, offset int) ([]domain.Booking, error) {
	if actor.Role != RoleBusiness || actor.ID == "" {
		return nil, ErrForbidden
	}
	st := domain.BookingStatus(strings.TrimSpace(status))
	if st != "" && !st.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.bookings.ListByBusiness(ctx, actor.ID, st, limit, offset)
}

func (s *Service) save(ctx context.Context, next *domain.Booking, expectedVersion int64, events ...domain.OutboxEvent) error {
	if err := next.CheckInvariants(); err != nil {
		return fmt.Errorf("booking %s: %w", next.ID, err)
	}
	err := s.bookings.Update(ctx, next, expectedVersion, events...)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrConflict):
		s.log.Warn("booking changed concurrently",
			zap.String("booking_id", next.ID),
			zap.Int64("expected_version", expectedVersion),
		)
		return ErrConflict
	case errors.Is(err, domain.ErrNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("save booking: %w", err)
	}
}

func (s *Service) newOutboxEvent(t domain.OutboxEventType, b *domain.Booking, payload domain.NotificationPayload, now time.Time) (domain.OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.OutboxEvent{}, fmt.Errorf("encode outbox payload: %w", err)
	}
	return domain.OutboxEvent{
		ID:            s.newID(),
		BookingID:     b.ID,
		BusinessID:    b.BusinessID,
		Type:          t,
		Payload:       raw,
		Status:        domain.OutboxNew,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *Service) publish(eventType string, b *domain.Booking) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishBookingEvent(b.BusinessID, eventType, b)
}
