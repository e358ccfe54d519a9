package domain

import "time"

// Business is the merchant side of a booking. Only the fields the booking
// lifecycle reads are modelled here.
type Business struct {
	ID            string       `json:"id"`
	Name          string       `json:"businessName"`
	Email         string       `json:"email"`
	UPIID         string       `json:"upiId,omitempty"`
	BusinessType  BusinessType `json:"businessType"`
	TotalBookings int64        `json:"totalBookings"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// CounterTotalBookings is the only business counter the booking lifecycle touches.
const CounterTotalBookings = "total_bookings"
