// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published when a reservation reaches the
// CONFIRMED state, either directly (standard tier) or after an
// authorized payment (premium tier). It carries enough information for
// downstream consumers to deliver the confirmation notice without
// querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	FacilityID    uint64 `json:"facility_id"`
	FacilityName  string `json:"facility_name"`
	ContactEmail  string `json:"contact_email"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Tier          string `json:"tier"`
	AmountCents   uint32 `json:"amount_cents"`
	ConfirmedAt   string `json:"confirmed_at"`
}
