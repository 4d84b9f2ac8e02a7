package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/reservaplay/facility-booking/internal/model"
	"github.com/reservaplay/facility-booking/internal/payment"
	"github.com/reservaplay/facility-booking/internal/queue"
	"github.com/reservaplay/facility-booking/internal/repository"
	"github.com/reservaplay/facility-booking/internal/service"
)

// memStore backs every service interface with maps so handler tests
// can run the booking endpoints end to end without a database.
type memStore struct {
	mu           sync.Mutex
	available    map[uint64]bool
	facilities   map[uint64]*model.Facility
	instances    map[uint64]*model.BlockInstance
	reservations map[uint64]*model.Reservation
	payments     map[string]*model.Payment
	nextRes      uint64
	nextPay      uint64
	authorize    bool
}

func newMemStore() *memStore {
	return &memStore{
		available:    make(map[uint64]bool),
		facilities:   make(map[uint64]*model.Facility),
		instances:    make(map[uint64]*model.BlockInstance),
		reservations: make(map[uint64]*model.Reservation),
		payments:     make(map[string]*model.Payment),
		authorize:    true,
	}
}

func (m *memStore) addBlock(id uint64, fac *model.Facility, date string, available bool) {
	m.available[id] = available
	m.facilities[id] = fac
	m.instances[id] = &model.BlockInstance{ID: id, FacilityID: fac.ID, TemplateID: 1, Date: date}
}

func (m *memStore) Reserve(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	avail, ok := m.available[id]
	if !ok {
		return repository.ErrBlockNotFound
	}
	if !avail {
		return repository.ErrConflict
	}
	m.available[id] = false
	return nil
}

func (m *memStore) Release(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.available[id]; !ok {
		return repository.ErrBlockNotFound
	}
	m.available[id] = true
	return nil
}

func (m *memStore) GetWithFacility(_ context.Context, id uint64) (*model.BlockInstance, *model.Facility, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return nil, nil, repository.ErrBlockNotFound
	}
	return inst, m.facilities[id], nil
}

func (m *memStore) Create(_ context.Context, res *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRes++
	res.ID = m.nextRes
	res.CreatedAt = time.Now()
	cp := *res
	m.reservations[res.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *res
	return &cp, nil
}

func (m *memStore) GetDetail(_ context.Context, id uint64) (*repository.ReservationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	inst := m.instances[res.BlockInstanceID]
	fac := m.facilities[res.BlockInstanceID]
	return &repository.ReservationDetail{
		ID: res.ID, UserID: res.UserID, BlockInstanceID: res.BlockInstanceID,
		Status: res.Status, FacilityID: fac.ID, FacilityName: fac.Name,
		Tier: fac.Tier, Date: inst.Date, StartTime: "09:00", EndTime: "10:00",
		CreatedAt: res.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (m *memStore) CountActiveForUserOnDate(_ context.Context, userID uint64, date string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, res := range m.reservations {
		if res.UserID == userID &&
			(res.Status == model.ReservationPendingPayment || res.Status == model.ReservationConfirmed) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ConfirmIfPending(_ context.Context, id uint64) (bool, error) {
	return m.moveIf(id, model.ReservationConfirmed, model.ReservationPendingPayment)
}

func (m *memStore) moveIf(id uint64, to string, from ...string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if res.Status == s {
			res.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CancelIfActive(_ context.Context, id uint64) (bool, error) {
	return m.moveIf(id, model.ReservationCancelled, model.ReservationPendingPayment, model.ReservationConfirmed)
}

func (m *memStore) FailIfPending(_ context.Context, id uint64) (bool, error) {
	return m.moveIf(id, model.ReservationFailed, model.ReservationPendingPayment)
}

func (m *memStore) Repoint(_ context.Context, id, newInstanceID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return repository.ErrReservationNotFound
	}
	res.BlockInstanceID = newInstanceID
	return nil
}

func (m *memStore) ListPendingOlderThan(context.Context, string) ([]model.Reservation, error) {
	return nil, nil
}

func (m *memStore) CreatePayment(_ context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPay++
	p.ID = m.nextPay
	cp := *p
	m.payments[p.TransactionID] = &cp
	return nil
}

func (m *memStore) GetByTransactionID(_ context.Context, transactionID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[transactionID]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) OpenByReservation(_ context.Context, reservationID uint64) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ReservationID == reservationID && p.Status == model.PaymentPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (m *memStore) FinalizeIfPending(_ context.Context, transactionID, status string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[transactionID]
	if !ok || p.Status != model.PaymentPending {
		return false, nil
	}
	p.Status = status
	return true, nil
}

func (m *memStore) CreateTx(_ context.Context, buyOrder, sessionID string, amountCents uint32, returnURL string) (*payment.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPay++
	return &payment.Transaction{Token: fmt.Sprintf("tok-%d", m.nextPay), URL: "https://pay.example.com"}, nil
}

func (m *memStore) Commit(_ context.Context, token string) (*payment.Result, error) {
	status := "FAILED"
	if m.authorize {
		status = payment.StatusAuthorized
	}
	return &payment.Result{Status: status}, nil
}

func (m *memStore) Status(context.Context, string) (*payment.Result, error) {
	return &payment.Result{Status: "INITIALIZED"}, nil
}

func (m *memStore) ReservationConfirmed(context.Context, queue.ReservationConfirmedEvent) error {
	return nil
}

// gatewayAdapter exposes memStore's payment methods under the names
// the service interfaces expect.
type gatewayAdapter struct{ *memStore }

func (g gatewayAdapter) Create(ctx context.Context, buyOrder, sessionID string, amountCents uint32, returnURL string) (*payment.Transaction, error) {
	return g.CreateTx(ctx, buyOrder, sessionID, amountCents, returnURL)
}

type paymentStoreAdapter struct{ *memStore }

func (p paymentStoreAdapter) Create(ctx context.Context, pay *model.Payment) error {
	return p.CreatePayment(ctx, pay)
}

func newHandlerFixture(t *testing.T) (*ReservationHandler, *PaymentHandler, *memStore) {
	t.Helper()
	store := newMemStore()
	svc := service.NewBookingService(
		store, store, paymentStoreAdapter{store}, gatewayAdapter{store}, store,
		5, "https://booking.example.com/v1/payments/confirm", 30*time.Minute,
	)
	return NewReservationHandler(svc), NewPaymentHandler(svc), store
}

func authedRequest(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(42))
	return c, rec
}

var (
	standardFac = &model.Facility{ID: 1, Name: "Cancha Sur", Tier: model.TierStandard}
	premiumFac  = &model.Facility{ID: 2, Name: "Cancha Norte", Tier: model.TierPremium, PriceCents: 150000}
)

func TestCreateReservationHandlerStandard(t *testing.T) {
	h, _, store := newHandlerFixture(t)
	store.addBlock(10, standardFac, "2026-09-01", true)

	c, rec := authedRequest(http.MethodPost, "/v1/reservations", `{"block_instance_id":10}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), model.ReservationConfirmed)
	require.NotContains(t, rec.Body.String(), `"payment"`)
}

func TestCreateReservationHandlerPremiumReturnsRedirect(t *testing.T) {
	h, _, store := newHandlerFixture(t)
	store.addBlock(20, premiumFac, "2026-09-01", true)

	c, rec := authedRequest(http.MethodPost, "/v1/reservations", `{"block_instance_id":20}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"payment"`)
	require.Contains(t, rec.Body.String(), model.ReservationPendingPayment)
}

func TestCreateReservationHandlerConflict(t *testing.T) {
	h, _, store := newHandlerFixture(t)
	store.addBlock(10, standardFac, "2026-09-01", false)

	c, rec := authedRequest(http.MethodPost, "/v1/reservations", `{"block_instance_id":10}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateReservationHandlerUnknownBlock(t *testing.T) {
	h, _, _ := newHandlerFixture(t)

	c, rec := authedRequest(http.MethodPost, "/v1/reservations", `{"block_instance_id":99}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateReservationHandlerUnauthenticated(t *testing.T) {
	h, _, store := newHandlerFixture(t)
	store.addBlock(10, standardFac, "2026-09-01", true)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/reservations", strings.NewReader(`{"block_instance_id":10}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Create(e.NewContext(req, rec)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCancelReservationHandler(t *testing.T) {
	h, _, store := newHandlerFixture(t)
	store.addBlock(10, standardFac, "2026-09-01", true)
	c, _ := authedRequest(http.MethodPost, "/v1/reservations", `{"block_instance_id":10}`)
	require.NoError(t, h.Create(c))

	c, rec := authedRequest(http.MethodDelete, "/v1/reservations/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, store.available[10])

	// Cancelling again finds nothing active.
	c, rec = authedRequest(http.MethodDelete, "/v1/reservations/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmPaymentHandlerAuthorized(t *testing.T) {
	h, ph, store := newHandlerFixture(t)
	store.addBlock(20, premiumFac, "2026-09-01", true)
	c, _ := authedRequest(http.MethodPost, "/v1/reservations", `{"block_instance_id":20}`)
	require.NoError(t, h.Create(c))

	c, rec := authedRequest(http.MethodGet, "/v1/payments/confirm?token_ws=tok-1", "")
	require.NoError(t, ph.Confirm(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"authorized":true`)
}

func TestConfirmPaymentHandlerDeclined(t *testing.T) {
	h, ph, store := newHandlerFixture(t)
	store.addBlock(20, premiumFac, "2026-09-01", true)
	c, _ := authedRequest(http.MethodPost, "/v1/reservations", `{"block_instance_id":20}`)
	require.NoError(t, h.Create(c))
	store.authorize = false

	c, rec := authedRequest(http.MethodGet, "/v1/payments/confirm?token_ws=tok-1", "")
	require.NoError(t, ph.Confirm(c))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	require.True(t, store.available[20])
}

func TestConfirmPaymentHandlerMissingToken(t *testing.T) {
	_, ph, _ := newHandlerFixture(t)

	c, rec := authedRequest(http.MethodGet, "/v1/payments/confirm", "")
	require.NoError(t, ph.Confirm(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
