package domain

import (
	"errors"
	"time"
)

type BookingStatus string

const (
	BookingPendingApproval BookingStatus = "pending_approval"
	BookingConfirmed       BookingStatus = "confirmed"
	BookingCancelled       BookingStatus = "cancelled"

	// Legacy values still present in older rows.
	bookingLegacyPending        BookingStatus = "pending"
	bookingLegacyApproved       BookingStatus = "approved"
	bookingLegacyPendingPayment BookingStatus = "pending_payment"
	bookingLegacyBooked         BookingStatus = "Booked"
)

// NormalizeStatus maps legacy persisted values onto the current lifecycle.
func NormalizeStatus(s BookingStatus) BookingStatus {
	switch s {
	case bookingLegacyPending, bookingLegacyPendingPayment:
		return BookingPendingApproval
	case bookingLegacyApproved, bookingLegacyBooked:
		return BookingConfirmed
	default:
		return s
	}
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPendingApproval, BookingConfirmed, BookingCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending             PaymentStatus = "pending"
	PaymentPendingVerification PaymentStatus = "pending_verification"
	PaymentPaid                PaymentStatus = "paid"
	PaymentFailed              PaymentStatus = "failed"
)

type BusinessType string

const (
	BusinessHotel      BusinessType = "hotel"
	BusinessRestaurant BusinessType = "restaurant"
	BusinessCafe       BusinessType = "cafe"
	BusinessCab        BusinessType = "cab"
	BusinessShopping   BusinessType = "shopping"
)

func (t BusinessType) Valid() bool {
	switch t {
	case BusinessHotel, BusinessRestaurant, BusinessCafe, BusinessCab, BusinessShopping:
		return true
	}
	return false
}

var ErrInvariantViolated = errors.New("booking invariant violated")

// Booking is a single reservation request and its approval/payment state.
type Booking struct {
	ID              string         `json:"id"`
	CustomerID      string         `json:"customerId"`
	BusinessID      string         `json:"businessId"`
	BusinessType    BusinessType   `json:"businessType"`
	Details         BookingDetails `json:"bookingDetails"`
	Amount          float64        `json:"amount"`
	AdvanceAmount   float64        `json:"advanceAmount"`
	SpecialRequests string         `json:"specialRequests,omitempty"`

	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	TransactionID *string       `json:"transactionId,omitempty"`
	PaymentMethod string        `json:"paymentMethod,omitempty"`
	RoomNumber    string        `json:"roomNumber,omitempty"`

	CreatedAt          time.Time  `json:"createdAt"`
	ApprovedAt         *time.Time `json:"approvedAt,omitempty"`
	PaymentSubmittedAt *time.Time `json:"paymentSubmittedAt,omitempty"`
	PaymentVerifiedAt  *time.Time `json:"paymentVerifiedAt,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	UpdatedAt          time.Time  `json:"updatedAt"`

	// Version is bumped on every save and used for compare-and-swap.
	Version int64 `json:"version"`
}

func (b *Booking) IsCancelled() bool {
	return b.Status == BookingCancelled
}

// Clone returns a deep copy so callers can mutate without touching the loaded record.
func (b *Booking) Clone() *Booking {
	c := *b
	c.TransactionID = cloneString(b.TransactionID)
	c.ApprovedAt = cloneTime(b.ApprovedAt)
	c.PaymentSubmittedAt = cloneTime(b.PaymentSubmittedAt)
	c.PaymentVerifiedAt = cloneTime(b.PaymentVerifiedAt)
	c.CancelledAt = cloneTime(b.CancelledAt)
	return &c
}

// CheckInvariants validates the record-local invariants.
func (b *Booking) CheckInvariants() error {
	if b.TransactionID != nil &&
		b.PaymentStatus != PaymentPendingVerification && b.PaymentStatus != PaymentPaid {
		return ErrInvariantViolated
	}
	if b.Status == BookingCancelled && b.CancelledAt == nil {
		return ErrInvariantViolated
	}
	if b.Details != nil && b.Details.Type() != b.BusinessType {
		return ErrInvariantViolated
	}
	return nil
}

// SameIdentity reports whether the immutable fields of two records match.
func (b *Booking) SameIdentity(o *Booking) bool {
	return b.ID == o.ID &&
		b.CustomerID == o.CustomerID &&
		b.BusinessID == o.BusinessID &&
		b.BusinessType == o.BusinessType &&
		b.Amount == o.Amount &&
		b.AdvanceAmount == o.AdvanceAmount
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
