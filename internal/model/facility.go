package model

// Facility tiers determine whether a booking is free or must pass
// through the payment gateway before it is confirmed.
const (
	TierStandard = "STANDARD" // free to reserve
	TierPremium  = "PREMIUM"  // requires an authorized payment
)

// Facility describes a bookable venue such as a court or a meeting
// room.  Facilities are managed elsewhere; this engine only reads
// them to resolve the tier and price of a block instance.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name of the facility.
//  Tier         – pricing classification (STANDARD or PREMIUM).
//  PriceCents   – price per block in cents; zero for standard tier.
//  ContactEmail – address confirmation notices are sent to.
type Facility struct {
	ID           uint64 // facilities.id
	Name         string // facilities.name
	Tier         string // facilities.tier
	PriceCents   uint32 // facilities.price_cents
	ContactEmail string // facilities.contact_email
}
