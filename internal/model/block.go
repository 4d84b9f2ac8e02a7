package model

import "time"

// BlockTemplate is one entry of the small fixed set of daily time
// slots shared by every facility.  Templates never reference a
// facility directly; the generator materializes per-facility,
// per-date instances from them.
//
// Fields:
//  ID        – primary key identifier.
//  Slot      – ordinal position of the slot within a day (1-based).
//  StartTime – slot start in "HH:MM" 24h format.
//  EndTime   – slot end in "HH:MM" 24h format.
type BlockTemplate struct {
	ID        uint64 // block_templates.id
	Slot      uint32 // block_templates.slot
	StartTime string // block_templates.start_time
	EndTime   string // block_templates.end_time
}

// BlockInstance is a concrete occurrence of a template at one
// facility on one date.  The Available flag is the single source of
// truth for double-booking prevention: it is flipped off by an
// atomic conditional update when a reservation takes the block and
// flipped back on when the block is released.
//
// Fields:
//  ID         – primary key identifier.
//  FacilityID – facility the instance belongs to.
//  TemplateID – template the instance was generated from.
//  Date       – calendar date in "YYYY-MM-DD" format.
//  Available  – whether the block can still be reserved.
//  CreatedAt  – creation timestamp.
type BlockInstance struct {
	ID         uint64    // facility_block_instances.id
	FacilityID uint64    // facility_block_instances.facility_id
	TemplateID uint64    // facility_block_instances.template_id
	Date       string    // facility_block_instances.date
	Available  bool      // facility_block_instances.available
	CreatedAt  time.Time // facility_block_instances.created_at
}

// DateLayout is the wire and storage format for block instance dates.
const DateLayout = "2006-01-02"
