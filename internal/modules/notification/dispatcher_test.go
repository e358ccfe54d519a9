package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"bookingdesk/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type dispatcherEnv struct {
	bookings   *MockBookingReader
	businesses *MockBusinessReader
	customers  *MockCustomerReader
	mailer     *MockMailer
	dispatcher *Dispatcher
}

func newDispatcherEnv(t *testing.T) *dispatcherEnv {
	t.Helper()
	env := &dispatcherEnv{
		bookings:   new(MockBookingReader),
		businesses: new(MockBusinessReader),
		customers:  new(MockCustomerReader),
		mailer:     new(MockMailer),
	}
	env.dispatcher = NewDispatcher(env.bookings, env.businesses, env.customers,
		newTestRenderer(t), env.mailer, nil)
	return env
}

func acceptanceEvent(t *testing.T) domain.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(domain.NotificationPayload{RoomNumber: "204"})
	require.NoError(t, err)
	return domain.OutboxEvent{
		ID:        "ev-1",
		BookingID: "bk-1",
		Type:      domain.EventBookingAcceptance,
		Payload:   payload,
	}
}

func TestDispatcher_DeliverAcceptance(t *testing.T) {
	env := newDispatcherEnv(t)
	env.bookings.On("GetByID", mock.Anything, "bk-1").Return(hotelBooking(), nil)
	env.businesses.On("GetByID", mock.Anything, "biz-1").Return(hotelBusiness(), nil)
	env.customers.On("GetByID", mock.Anything, "cust-1").Return(customer(), nil)
	env.mailer.On("Send", mock.Anything, "asha@example.test",
		"Booking approved by Sea View Hotel - complete your payment",
		mock.MatchedBy(func(html string) bool { return len(html) > 0 })).
		Return(nil).Once()

	err := env.dispatcher.Deliver(context.Background(), acceptanceEvent(t))

	require.NoError(t, err)
	env.mailer.AssertExpectations(t)
}

func TestDispatcher_DeliverConfirmation(t *testing.T) {
	env := newDispatcherEnv(t)
	env.bookings.On("GetByID", mock.Anything, "bk-1").Return(paidBooking("TXN-9"), nil)
	env.businesses.On("GetByID", mock.Anything, "biz-1").Return(hotelBusiness(), nil)
	env.customers.On("GetByID", mock.Anything, "cust-1").Return(customer(), nil)

	var sentHTML string
	env.mailer.On("Send", mock.Anything, "asha@example.test", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sentHTML = args.String(3) }).
		Return(nil).Once()

	err := env.dispatcher.Deliver(context.Background(), confirmationEvent(t, "TXN-9"))

	require.NoError(t, err)
	assert.Contains(t, sentHTML, "TXN-9")
}

func paidBooking(txn string) *domain.Booking {
	b := hotelBooking()
	b.PaymentStatus = domain.PaymentPaid
	b.TransactionID = &txn
	return b
}

func confirmationEvent(t *testing.T, txn string) domain.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(domain.NotificationPayload{TransactionID: txn})
	require.NoError(t, err)
	return domain.OutboxEvent{ID: "ev-2", BookingID: "bk-1", Type: domain.EventBookingConfirmation, Payload: payload}
}

func TestDispatcher_SkipsConfirmationAfterRejection(t *testing.T) {
	resubmitted := hotelBooking()
	resubmitted.PaymentStatus = domain.PaymentPendingVerification
	newTxn := "TXN-NEW"
	resubmitted.TransactionID = &newTxn

	tests := []struct {
		name    string
		booking *domain.Booking
	}{
		{"rejected back to pending", hotelBooking()},
		{"claim resubmitted", resubmitted},
		{"paid again with another transaction", paidBooking("TXN-NEW")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newDispatcherEnv(t)
			env.bookings.On("GetByID", mock.Anything, "bk-1").Return(tt.booking, nil)

			err := env.dispatcher.Deliver(context.Background(), confirmationEvent(t, "TXN-9"))

			require.NoError(t, err)
			env.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDispatcher_SkipsAcceptanceForCancelledBooking(t *testing.T) {
	env := newDispatcherEnv(t)
	b := hotelBooking()
	b.Status = domain.BookingCancelled
	cancelledAt := fixedNow
	b.CancelledAt = &cancelledAt
	env.bookings.On("GetByID", mock.Anything, "bk-1").Return(b, nil)

	err := env.dispatcher.Deliver(context.Background(), acceptanceEvent(t))

	require.NoError(t, err)
	env.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_DeliverFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name  string
		setup func(env *dispatcherEnv)
		event func(t *testing.T) domain.OutboxEvent
	}{
		{
			name: "booking missing",
			setup: func(env *dispatcherEnv) {
				env.bookings.On("GetByID", mock.Anything, "bk-1").Return(nil, domain.ErrNotFound)
			},
			event: acceptanceEvent,
		},
		{
			name: "customer lookup fails",
			setup: func(env *dispatcherEnv) {
				env.bookings.On("GetByID", mock.Anything, "bk-1").Return(hotelBooking(), nil)
				env.businesses.On("GetByID", mock.Anything, "biz-1").Return(hotelBusiness(), nil)
				env.customers.On("GetByID", mock.Anything, "cust-1").Return(nil, boom)
			},
			event: acceptanceEvent,
		},
		{
			name: "customer without email",
			setup: func(env *dispatcherEnv) {
				env.bookings.On("GetByID", mock.Anything, "bk-1").Return(hotelBooking(), nil)
				env.businesses.On("GetByID", mock.Anything, "biz-1").Return(hotelBusiness(), nil)
				env.customers.On("GetByID", mock.Anything, "cust-1").Return(&domain.Customer{ID: "cust-1"}, nil)
			},
			event: acceptanceEvent,
		},
		{
			name: "transport fails",
			setup: func(env *dispatcherEnv) {
				env.bookings.On("GetByID", mock.Anything, "bk-1").Return(hotelBooking(), nil)
				env.businesses.On("GetByID", mock.Anything, "biz-1").Return(hotelBusiness(), nil)
				env.customers.On("GetByID", mock.Anything, "cust-1").Return(customer(), nil)
				env.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(boom)
			},
			event: acceptanceEvent,
		},
		{
			name: "unknown event type",
			setup: func(env *dispatcherEnv) {
				env.bookings.On("GetByID", mock.Anything, "bk-1").Return(hotelBooking(), nil)
			},
			event: func(t *testing.T) domain.OutboxEvent {
				return domain.OutboxEvent{ID: "ev-x", BookingID: "bk-1", Type: "booking.reminder"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newDispatcherEnv(t)
			tt.setup(env)

			err := env.dispatcher.Deliver(context.Background(), tt.event(t))

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotificationFailure)
		})
	}
}

func TestLogMailer_Send(t *testing.T) {
	m := NewLogMailer(nil)
	assert.NoError(t, m.Send(context.Background(), "a@b.test", "hi", "<p>hi</p>"))
}
