package booking

import "encoding/json"

type CreateBookingRequest struct {
	BusinessID      string          `json:"businessId" binding:"required"`
	BusinessType    string          `json:"businessType" binding:"required"`
	BookingDetails  json.RawMessage `json:"bookingDetails" binding:"required"`
	Amount          float64         `json:"amount" binding:"required"`
	AdvanceAmount   *float64        `json:"advanceAmount"`
	SpecialRequests string          `json:"specialRequests"`
}

type TransitionRequest struct {
	Status     string `json:"status" binding:"required"`
	RoomNumber string `json:"roomNumber"`
}

type SubmitPaymentRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
	PaymentMethod string `json:"paymentMethod"`
}

type VerifyPaymentRequest struct {
	PaymentReceived *bool `json:"paymentReceived" binding:"required"`
}
