package model

import "time"

// Booking links a customer to a requested service visit.  Only the
// reference side matters to the auth flow: a user's profile reports how
// many bookings reference it.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – customer who made the booking.
//	WorkerID  – assigned worker (zero until assigned).
//	ServiceID – booked service.
//	Status    – PENDING, CONFIRMED, COMPLETED or CANCELLED.
type Booking struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"userId"`
	WorkerID  uint64    `json:"workerId,omitempty"`
	ServiceID uint64    `json:"serviceId,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
