package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bookingdesk/internal/domain"

	"github.com/stretchr/testify/mock"
)

// memBookings is a stateful BookingRepository with compare-and-swap on Version.
type memBookings struct {
	mu      sync.Mutex
	records map[string]*domain.Booking
	events  []domain.OutboxEvent
	saves   int
	failErr error
}

func newMemBookings() *memBookings {
	return &memBookings{records: map[string]*domain.Booking{}}
}

func (m *memBookings) Create(_ context.Context, b *domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[b.ID]; ok {
		return domain.ErrConflict
	}
	m.records[b.ID] = b.Clone()
	return nil
}

func (m *memBookings) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return b.Clone(), nil
}

func (m *memBookings) Update(_ context.Context, b *domain.Booking, expectedVersion int64, events ...domain.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	cur, ok := m.records[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrConflict
	}
	b.Version = expectedVersion + 1
	m.records[b.ID] = b.Clone()
	m.events = append(m.events, events...)
	m.saves++
	return nil
}

func (m *memBookings) ListByCustomer(_ context.Context, customerID string, _, _ int) ([]domain.Booking, error) {
	return m.list(func(b *domain.Booking) bool { return b.CustomerID == customerID }), nil
}

func (m *memBookings) ListByBusiness(_ context.Context, businessID string, status domain.BookingStatus, _, _ int) ([]domain.Booking, error) {
	return m.list(func(b *domain.Booking) bool {
		return b.BusinessID == businessID && (status == "" || b.Status == status)
	}), nil
}

func (m *memBookings) list(keep func(*domain.Booking) bool) []domain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Booking{}
	for _, b := range m.records {
		if keep(b) {
			out = append(out, *b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memBookings) eventsOfType(t domain.OutboxEventType) []domain.OutboxEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OutboxEvent
	for _, e := range m.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type MockBusinessRepository struct {
	mock.Mock
}

func (m *MockBusinessRepository) GetByID(ctx context.Context, id string) (*domain.Business, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Business), args.Error(1)
}

func (m *MockBusinessRepository) IncrementCounter(ctx context.Context, businessID, field string, delta int64) error {
	args := m.Called(ctx, businessID, field, delta)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishBookingEvent(businessID, eventType string, b *domain.Booking) {
	m.Called(businessID, eventType, b)
}

var fixedNow = time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	svc        *Service
	bookings   *memBookings
	businesses *MockBusinessRepository
	publisher  *MockPublisher
	clock      *time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		bookings:   newMemBookings(),
		businesses: &MockBusinessRepository{},
		publisher:  &MockPublisher{},
	}
	now := fixedNow
	env.clock = &now
	seq := 0
	env.svc = NewService(env.bookings, env.businesses, env.publisher, nil,
		WithClock(func() time.Time { return *env.clock }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	env.publisher.On("PublishBookingEvent", mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
	return env
}

func (e *testEnv) advance(d time.Duration) {
	*e.clock = e.clock.Add(d)
}
