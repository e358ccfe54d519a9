package notification

import (
	"context"
	"sync"
	"time"

	"bookingdesk/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockBookingReader struct{ mock.Mock }

func (m *MockBookingReader) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockBusinessReader struct{ mock.Mock }

func (m *MockBusinessReader) GetByID(ctx context.Context, id string) (*domain.Business, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*domain.Business), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCustomerReader struct{ mock.Mock }

func (m *MockCustomerReader) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*domain.Customer), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockMailer struct{ mock.Mock }

func (m *MockMailer) Send(ctx context.Context, to, subject, html string) error {
	return m.Called(ctx, to, subject, html).Error(0)
}

type MockDeliverer struct{ mock.Mock }

func (m *MockDeliverer) Deliver(ctx context.Context, ev domain.OutboxEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type retryCall struct {
	id       string
	attempts int
	next     time.Time
	lastErr  string
}

// memOutbox records what the worker did with each claimed event.
type memOutbox struct {
	mu        sync.Mutex
	due       []domain.OutboxEvent
	fetchErr  error
	sent      []string
	retries   []retryCall
	dead      map[string]int
	released  []time.Time
	fetchArgs []int
}

func newMemOutbox(events ...domain.OutboxEvent) *memOutbox {
	return &memOutbox{due: events, dead: map[string]int{}}
}

func (s *memOutbox) FetchDue(_ context.Context, limit int, _ time.Time) ([]domain.OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchArgs = append(s.fetchArgs, limit)
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	n := limit
	if n > len(s.due) {
		n = len(s.due)
	}
	out := s.due[:n]
	s.due = s.due[n:]
	return out, nil
}

func (s *memOutbox) MarkSent(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *memOutbox) MarkRetry(_ context.Context, id string, attempts int, next time.Time, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries = append(s.retries, retryCall{id: id, attempts: attempts, next: next, lastErr: lastErr})
	return nil
}

func (s *memOutbox) MarkDead(_ context.Context, id string, attempts int, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dead[id] = attempts
	return nil
}

func (s *memOutbox) ReleaseStale(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, olderThan)
	return 0, nil
}

var fixedNow = time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

func hotelBooking() *domain.Booking {
	return &domain.Booking{
		ID:           "bk-1",
		CustomerID:   "cust-1",
		BusinessID:   "biz-1",
		BusinessType: domain.BusinessHotel,
		Details: domain.HotelDetails{
			CheckIn:  "2024-10-10",
			CheckOut: "2024-10-12",
			RoomType: "Deluxe",
			Guests:   2,
		},
		Amount:        5000,
		AdvanceAmount: 1000,
		Status:        domain.BookingConfirmed,
		PaymentStatus: domain.PaymentPending,
		RoomNumber:    "204",
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
		Version:       2,
	}
}

func hotelBusiness() *domain.Business {
	return &domain.Business{
		ID:           "biz-1",
		Name:         "Sea View Hotel",
		Email:        "desk@seaview.test",
		UPIID:        "seaview@upi",
		BusinessType: domain.BusinessHotel,
	}
}

func customer() *domain.Customer {
	return &domain.Customer{ID: "cust-1", Username: "asha", Email: "asha@example.test"}
}
