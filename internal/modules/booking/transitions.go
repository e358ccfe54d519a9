package booking

import "bookingdesk/internal/domain"

// businessTransitions lists the status edges a business may take.
// Anything absent is rejected with ErrInvalidTransition.
var businessTransitions = map[domain.BookingStatus][]domain.BookingStatus{
	domain.BookingPendingApproval: {domain.BookingConfirmed, domain.BookingCancelled},
}

func checkBusinessTransition(from, to domain.BookingStatus) error {
	for _, allowed := range businessTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return ErrInvalidTransition
}

func checkSubmitPayment(b *domain.Booking) error {
	if b.Status != domain.BookingConfirmed {
		return ErrInvalidTransition
	}
	switch b.PaymentStatus {
	case domain.PaymentPending, domain.PaymentPendingVerification, domain.PaymentFailed:
		return nil
	}
	return ErrInvalidTransition
}

func checkVerifyPayment(b *domain.Booking, received bool) error {
	if b.IsCancelled() {
		return ErrInvalidTransition
	}
	// A rejection resets whatever claim is on file, including a paid one.
	if !received {
		return nil
	}
	if b.PaymentStatus != domain.PaymentPendingVerification {
		return ErrInvalidTransition
	}
	return nil
}

func checkCancel(b *domain.Booking) error {
	if b.IsCancelled() {
		return ErrAlreadyCancelled
	}
	return nil
}
