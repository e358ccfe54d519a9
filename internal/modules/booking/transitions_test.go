package booking

import (
	"testing"

	"bookingdesk/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCheckBusinessTransition(t *testing.T) {
	cases := []struct {
		from, to domain.BookingStatus
		want     error
	}{
		{domain.BookingPendingApproval, domain.BookingConfirmed, nil},
		{domain.BookingPendingApproval, domain.BookingCancelled, nil},
		{domain.BookingConfirmed, domain.BookingConfirmed, ErrInvalidTransition},
		{domain.BookingConfirmed, domain.BookingCancelled, ErrInvalidTransition},
		{domain.BookingCancelled, domain.BookingConfirmed, ErrInvalidTransition},
		{domain.BookingCancelled, domain.BookingCancelled, ErrInvalidTransition},
	}

	for _, tc := range cases {
		err := checkBusinessTransition(tc.from, tc.to)
		if tc.want == nil {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			assert.ErrorIs(t, err, tc.want, "%s -> %s", tc.from, tc.to)
		}
	}
}

func TestCheckSubmitPayment(t *testing.T) {
	cases := []struct {
		name    string
		status  domain.BookingStatus
		payment domain.PaymentStatus
		ok      bool
	}{
		{"confirmed pending", domain.BookingConfirmed, domain.PaymentPending, true},
		{"confirmed resubmit", domain.BookingConfirmed, domain.PaymentPendingVerification, true},
		{"confirmed failed", domain.BookingConfirmed, domain.PaymentFailed, true},
		{"confirmed paid", domain.BookingConfirmed, domain.PaymentPaid, false},
		{"awaiting approval", domain.BookingPendingApproval, domain.PaymentPending, false},
		{"cancelled", domain.BookingCancelled, domain.PaymentPending, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := checkSubmitPayment(&domain.Booking{Status: tc.status, PaymentStatus: tc.payment})
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestCheckVerifyPayment(t *testing.T) {
	pendingVerification := &domain.Booking{Status: domain.BookingConfirmed, PaymentStatus: domain.PaymentPendingVerification}
	paid := &domain.Booking{Status: domain.BookingConfirmed, PaymentStatus: domain.PaymentPaid}
	cancelled := &domain.Booking{Status: domain.BookingCancelled, PaymentStatus: domain.PaymentPendingVerification}

	assert.NoError(t, checkVerifyPayment(pendingVerification, true))
	assert.NoError(t, checkVerifyPayment(pendingVerification, false))
	assert.NoError(t, checkVerifyPayment(paid, false))
	assert.ErrorIs(t, checkVerifyPayment(paid, true), ErrInvalidTransition)
	assert.ErrorIs(t, checkVerifyPayment(cancelled, true), ErrInvalidTransition)
	assert.ErrorIs(t, checkVerifyPayment(cancelled, false), ErrInvalidTransition)
}

func TestCheckCancel(t *testing.T) {
	for _, st := range []domain.BookingStatus{domain.BookingPendingApproval, domain.BookingConfirmed} {
		assert.NoError(t, checkCancel(&domain.Booking{Status: st}))
	}
	assert.ErrorIs(t, checkCancel(&domain.Booking{Status: domain.BookingCancelled}), ErrAlreadyCancelled)
}
