package service

import (
	"context"
	"errors"
	"time"

	"github.com/reservaplay/facility-booking/internal/model"
	"github.com/reservaplay/facility-booking/internal/repository"
)

// ErrInvalidRange is returned when a generation range is malformed or
// the end date precedes the start date.
var ErrInvalidRange = errors.New("invalid date range")

// ErrNoTemplates is returned when generation runs against an empty
// template registry, which would silently produce nothing.
var ErrNoTemplates = errors.New("no block templates defined")

// TemplateStore is the template registry surface block generation
// reads from.
type TemplateStore interface {
	List(ctx context.Context) ([]model.BlockTemplate, error)
}

// InstanceStore materializes and prunes concrete block instances.
type InstanceStore interface {
	Upsert(ctx context.Context, facilityID, templateID uint64, date string) (bool, error)
	Reserve(ctx context.Context, id uint64) error
	DeleteForDate(ctx context.Context, facilityID uint64, date string) (int64, error)
	AvailabilityForDate(ctx context.Context, facilityID uint64, date string) ([]repository.AvailabilitySlot, error)
}

// FacilityStore resolves facilities for generation targets.
type FacilityStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Facility, error)
}

// BlockService materializes the daily grid of reservable block
// instances from the template registry. Generation is idempotent: the
// store skips instances that already exist, so re-running a range
// never duplicates blocks or resets availability.
type BlockService struct {
	templates  TemplateStore
	instances  InstanceStore
	facilities FacilityStore
}

func NewBlockService(templates TemplateStore, instances InstanceStore, facilities FacilityStore) *BlockService {
	return &BlockService{templates: templates, instances: instances, facilities: facilities}
}

// GenerationReport summarizes one GenerateRange run.
type GenerationReport struct {
	FacilityID uint64 `json:"facility_id"`
	Days       int    `json:"days"`
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
}

// GenerateRange creates block instances for every template on every
// date from start to end inclusive. Existing instances are counted as
// skipped, whatever their availability.
func (s *BlockService) GenerateRange(ctx context.Context, facilityID uint64, startDate, endDate string) (*GenerationReport, error) {
	start, err := time.Parse(model.DateLayout, startDate)
	if err != nil {
		return nil, ErrInvalidRange
	}
	end, err := time.Parse(model.DateLayout, endDate)
	if err != nil {
		return nil, ErrInvalidRange
	}
	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	if _, err := s.facilities.GetByID(ctx, facilityID); err != nil {
		return nil, err
	}
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, ErrNoTemplates
	}

	report := &GenerationReport{FacilityID: facilityID}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(model.DateLayout)
		for _, tpl := range templates {
			created, err := s.instances.Upsert(ctx, facilityID, tpl.ID, date)
			if err != nil {
				return report, err
			}
			if created {
				report.Created++
			} else {
				report.Skipped++
			}
		}
		report.Days++
	}
	return report, nil
}

// Availability lists every block instance for a facility on a date in
// start-time order, available and taken alike.
func (s *BlockService) Availability(ctx context.Context, facilityID uint64, date string) ([]repository.AvailabilitySlot, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, ErrInvalidRange
	}
	return s.instances.AvailabilityForDate(ctx, facilityID, date)
}

// Hold marks one block instance unavailable without creating a
// reservation, for maintenance windows and walk-ins.
func (s *BlockService) Hold(ctx context.Context, instanceID uint64) error {
	return s.instances.Reserve(ctx, instanceID)
}

// PruneDate removes every block instance for a facility on a date and
// reports how many rows went away. Instances referenced by
// reservations survive behind the foreign key and surface as a
// storage error.
func (s *BlockService) PruneDate(ctx context.Context, facilityID uint64, date string) (int64, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return 0, ErrInvalidRange
	}
	return s.instances.DeleteForDate(ctx, facilityID, date)
}
