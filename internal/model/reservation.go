package model

import "time"

// Reservation status values.  PENDING_PAYMENT and CONFIRMED count as
// active: an active reservation owns its block instance and counts
// against the user's daily quota.  CANCELLED and FAILED are terminal.
const (
	ReservationPendingPayment = "PENDING_PAYMENT"
	ReservationConfirmed      = "CONFIRMED"
	ReservationCancelled      = "CANCELLED"
	ReservationFailed         = "FAILED"
)

// Reservation records a user's booking of a single block instance.
// Free-tier bookings are created directly in CONFIRMED state; premium
// bookings start in PENDING_PAYMENT and are finalized by the payment
// callback.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – user who made the reservation.
//  BlockInstanceID – block instance being reserved.
//  Status          – state of the reservation (see constants above).
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
	ID              uint64    // reservations.id
	UserID          uint64    // reservations.user_id
	BlockInstanceID uint64    // reservations.block_instance_id
	Status          string    // reservations.status
	CreatedAt       time.Time // reservations.created_at
	UpdatedAt       time.Time // reservations.updated_at
}
