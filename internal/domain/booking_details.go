package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownBusinessType = errors.New("unknown business type")
	ErrInvalidDetails      = errors.New("invalid booking details")
)

// BookingDetails is the per-business-type payload of a booking.
// Exactly one concrete type exists for each BusinessType.
type BookingDetails interface {
	Type() BusinessType
	// Check runs cross-field rules that struct tags can't express.
	Check() error
}

type HotelDetails struct {
	CheckIn  string `json:"checkIn" bson:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"checkOut" bson:"check_out" validate:"required,datetime=2006-01-02"`
	RoomType string `json:"roomType" bson:"room_type" validate:"required"`
	Guests   int    `json:"guests" bson:"guests" validate:"required,gte=1"`
}

func (HotelDetails) Type() BusinessType { return BusinessHotel }

func (d HotelDetails) Check() error {
	in, err := time.Parse("2006-01-02", d.CheckIn)
	if err != nil {
		return fmt.Errorf("%w: checkIn", ErrInvalidDetails)
	}
	out, err := time.Parse("2006-01-02", d.CheckOut)
	if err != nil {
		return fmt.Errorf("%w: checkOut", ErrInvalidDetails)
	}
	if !out.After(in) {
		return fmt.Errorf("%w: checkOut must be after checkIn", ErrInvalidDetails)
	}
	return nil
}

type RestaurantDetails struct {
	ReservationDate string `json:"reservationDate" bson:"reservation_date" validate:"required,datetime=2006-01-02"`
	ReservationTime string `json:"reservationTime" bson:"reservation_time" validate:"required,datetime=15:04"`
	PartySize       int    `json:"partySize" bson:"party_size" validate:"required,gte=1"`
	Occasion        string `json:"occasion,omitempty" bson:"occasion,omitempty"`
}

func (RestaurantDetails) Type() BusinessType { return BusinessRestaurant }
func (RestaurantDetails) Check() error       { return nil }

type CafeDetails struct {
	ReservationDate string `json:"reservationDate" bson:"reservation_date" validate:"required,datetime=2006-01-02"`
	ReservationTime string `json:"reservationTime" bson:"reservation_time" validate:"required,datetime=15:04"`
	PartySize       int    `json:"partySize" bson:"party_size" validate:"required,gte=1"`
}

func (CafeDetails) Type() BusinessType { return BusinessCafe }
func (CafeDetails) Check() error       { return nil }

type CabDetails struct {
	PickupLocation string `json:"pickupLocation" bson:"pickup_location" validate:"required"`
	DropLocation   string `json:"dropLocation" bson:"drop_location" validate:"required"`
	PickupTime     string `json:"pickupTime" bson:"pickup_time" validate:"required"`
	Passengers     int    `json:"passengers" bson:"passengers" validate:"required,gte=1"`
	VehicleType    string `json:"vehicleType,omitempty" bson:"vehicle_type,omitempty"`
}

func (CabDetails) Type() BusinessType { return BusinessCab }

func (d CabDetails) Check() error {
	if d.PickupLocation == d.DropLocation {
		return fmt.Errorf("%w: pickup and drop locations are the same", ErrInvalidDetails)
	}
	return nil
}

type ShoppingDetails struct {
	AppointmentDate string `json:"appointmentDate" bson:"appointment_date" validate:"required,datetime=2006-01-02"`
	AppointmentTime string `json:"appointmentTime,omitempty" bson:"appointment_time,omitempty"`
	Purpose         string `json:"purpose,omitempty" bson:"purpose,omitempty"`
}

func (ShoppingDetails) Type() BusinessType { return BusinessShopping }
func (ShoppingDetails) Check() error       { return nil }

// NewDetails returns a zero value of the variant selected by t.
func NewDetails(t BusinessType) (BookingDetails, error) {
	switch t {
	case BusinessHotel:
		return &HotelDetails{}, nil
	case BusinessRestaurant:
		return &RestaurantDetails{}, nil
	case BusinessCafe:
		return &CafeDetails{}, nil
	case BusinessCab:
		return &CabDetails{}, nil
	case BusinessShopping:
		return &ShoppingDetails{}, nil
	}
	return nil, ErrUnknownBusinessType
}

// DecodeDetails decodes raw JSON into the variant selected by t.
// Unknown fields are rejected so a payload for one variant can't pass as another.
func DecodeDetails(t BusinessType, raw []byte) (BookingDetails, error) {
	ptr, err := NewDetails(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: missing", ErrInvalidDetails)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ptr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDetails, err)
	}
	return deref(ptr), nil
}

// EncodeDetails is the inverse of DecodeDetails.
func EncodeDetails(d BookingDetails) ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: missing", ErrInvalidDetails)
	}
	return json.Marshal(d)
}

func deref(d BookingDetails) BookingDetails {
	switch v := d.(type) {
	case *HotelDetails:
		return *v
	case *RestaurantDetails:
		return *v
	case *CafeDetails:
		return *v
	case *CabDetails:
		return *v
	case *ShoppingDetails:
		return *v
	}
	return d
}
