package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reservaplay/facility-booking/internal/model"
	"github.com/reservaplay/facility-booking/internal/repository"
)

type fakeTemplateStore struct {
	templates []model.BlockTemplate
}

func (f *fakeTemplateStore) List(context.Context) ([]model.BlockTemplate, error) {
	return f.templates, nil
}

type fakeInstanceStore struct {
	existing map[string]bool
}

func newFakeInstanceStore() *fakeInstanceStore {
	return &fakeInstanceStore{existing: make(map[string]bool)}
}

func (f *fakeInstanceStore) key(facilityID, templateID uint64, date string) string {
	return fmt.Sprintf("%d/%d/%s", facilityID, templateID, date)
}

func (f *fakeInstanceStore) Upsert(_ context.Context, facilityID, templateID uint64, date string) (bool, error) {
	k := f.key(facilityID, templateID, date)
	if f.existing[k] {
		return false, nil
	}
	f.existing[k] = true
	return true, nil
}

func (f *fakeInstanceStore) Reserve(context.Context, uint64) error { return nil }

func (f *fakeInstanceStore) DeleteForDate(context.Context, uint64, string) (int64, error) {
	return 0, nil
}

func (f *fakeInstanceStore) AvailabilityForDate(context.Context, uint64, string) ([]repository.AvailabilitySlot, error) {
	return nil, nil
}

type fakeFacilityStore struct {
	facilities map[uint64]*model.Facility
}

func (f *fakeFacilityStore) GetByID(_ context.Context, id uint64) (*model.Facility, error) {
	fac, ok := f.facilities[id]
	if !ok {
		return nil, repository.ErrFacilityNotFound
	}
	return fac, nil
}

func newBlockFixture() (*BlockService, *fakeInstanceStore) {
	templates := &fakeTemplateStore{templates: []model.BlockTemplate{
		{ID: 1, Slot: 0, StartTime: "09:00", EndTime: "10:00"},
		{ID: 2, Slot: 1, StartTime: "10:00", EndTime: "11:00"},
		{ID: 3, Slot: 2, StartTime: "11:00", EndTime: "12:00"},
	}}
	instances := newFakeInstanceStore()
	facilities := &fakeFacilityStore{facilities: map[uint64]*model.Facility{
		1: {ID: 1, Name: "Cancha Sur", Tier: model.TierStandard},
	}}
	return NewBlockService(templates, instances, facilities), instances
}

func TestGenerateRangeCreatesDateTemplateGrid(t *testing.T) {
	svc, _ := newBlockFixture()

	report, err := svc.GenerateRange(context.Background(), 1, "2026-09-01", "2026-09-03")
	require.NoError(t, err)
	require.Equal(t, 3, report.Days)
	require.Equal(t, 9, report.Created)
	require.Zero(t, report.Skipped)
}

func TestGenerateRangeIsIdempotent(t *testing.T) {
	svc, _ := newBlockFixture()

	_, err := svc.GenerateRange(context.Background(), 1, "2026-09-01", "2026-09-02")
	require.NoError(t, err)

	report, err := svc.GenerateRange(context.Background(), 1, "2026-09-01", "2026-09-02")
	require.NoError(t, err)
	require.Zero(t, report.Created)
	require.Equal(t, 6, report.Skipped)
}

func TestGenerateRangeRejectsInvalidRange(t *testing.T) {
	svc, _ := newBlockFixture()

	_, err := svc.GenerateRange(context.Background(), 1, "2026-09-03", "2026-09-01")
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.GenerateRange(context.Background(), 1, "01-09-2026", "2026-09-03")
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestGenerateRangeRejectsUnknownFacility(t *testing.T) {
	svc, _ := newBlockFixture()

	_, err := svc.GenerateRange(context.Background(), 99, "2026-09-01", "2026-09-01")
	require.ErrorIs(t, err, repository.ErrFacilityNotFound)
}

func TestGenerateRangeRejectsEmptyRegistry(t *testing.T) {
	svc := NewBlockService(
		&fakeTemplateStore{},
		newFakeInstanceStore(),
		&fakeFacilityStore{facilities: map[uint64]*model.Facility{1: {ID: 1}}},
	)

	_, err := svc.GenerateRange(context.Background(), 1, "2026-09-01", "2026-09-01")
	require.ErrorIs(t, err, ErrNoTemplates)
}
