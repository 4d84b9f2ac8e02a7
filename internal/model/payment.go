package model

import "time"

// Payment status values.  A payment begins as pending when the
// gateway transaction is created and is finalized exactly once by the
// provider callback.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Payment tracks the gateway transaction backing a premium-tier
// reservation.  Standard-tier reservations never have a payment row.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – reservation this payment belongs to.
//  AmountCents   – charged amount in cents.
//  Status        – pending, completed or failed.
//  TransactionID – opaque token issued by the payment provider.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Payment struct {
	ID            uint64    // payments.id
	ReservationID uint64    // payments.reservation_id
	AmountCents   uint32    // payments.amount_cents
	Status        string    // payments.status
	TransactionID string    // payments.transaction_id
	CreatedAt     time.Time // payments.created_at
	UpdatedAt     time.Time // payments.updated_at
}
