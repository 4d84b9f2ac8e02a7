package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/reservaplay/facility-booking/internal/model"
	"github.com/reservaplay/facility-booking/internal/payment"
	"github.com/reservaplay/facility-booking/internal/queue"
	"github.com/reservaplay/facility-booking/internal/repository"
)

// ErrQuotaExceeded is returned when a booking would push the user
// past the daily active-reservation limit.
var ErrQuotaExceeded = errors.New("daily reservation limit reached")

// ErrReservationNotActive is returned when cancel or modify targets a
// reservation that is already in a terminal state.
var ErrReservationNotActive = errors.New("reservation is not active")

// ErrPaymentOpen is returned by StartPayment when the reservation
// already has a pending payment waiting on the provider.
var ErrPaymentOpen = errors.New("reservation already has an open payment")

// BlockStore is the availability surface the coordinator depends on.
// Reserve must be atomic at the storage layer: it either takes an
// available block or reports repository.ErrConflict.
type BlockStore interface {
	Reserve(ctx context.Context, id uint64) error
	Release(ctx context.Context, id uint64) error
	GetWithFacility(ctx context.Context, id uint64) (*model.BlockInstance, *model.Facility, error)
}

// ReservationStore persists reservation rows and their status
// transitions.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	GetDetail(ctx context.Context, id uint64) (*repository.ReservationDetail, error)
	CountActiveForUserOnDate(ctx context.Context, userID uint64, date string) (int, error)
	ConfirmIfPending(ctx context.Context, id uint64) (bool, error)
	CancelIfActive(ctx context.Context, id uint64) (bool, error)
	FailIfPending(ctx context.Context, id uint64) (bool, error)
	Repoint(ctx context.Context, id, newInstanceID uint64) error
	ListPendingOlderThan(ctx context.Context, cutoff string) ([]model.Reservation, error)
}

// PaymentStore persists the gateway transactions backing premium
// reservations.
type PaymentStore interface {
	Create(ctx context.Context, p *model.Payment) error
	GetByTransactionID(ctx context.Context, transactionID string) (*model.Payment, error)
	OpenByReservation(ctx context.Context, reservationID uint64) (*model.Payment, error)
	FinalizeIfPending(ctx context.Context, transactionID, status string) (bool, error)
}

// PaymentGateway is the provider contract consumed by the premium
// flow: create opens a checkout, commit finalizes it, status peeks.
type PaymentGateway interface {
	Create(ctx context.Context, buyOrder, sessionID string, amountCents uint32, returnURL string) (*payment.Transaction, error)
	Commit(ctx context.Context, token string) (*payment.Result, error)
	Status(ctx context.Context, token string) (*payment.Result, error)
}

// Notifier delivers confirmation events. Failures after a confirmed
// booking are logged, never propagated.
type Notifier interface {
	ReservationConfirmed(ctx context.Context, event queue.ReservationConfirmedEvent) error
}

// BookingService drives a reservation through its lifecycle: quota
// check, atomic block reserve, the free/premium branch, payment
// callbacks and cancellation. All stores are injected so the service
// never touches connection state directly.
type BookingService struct {
	blocks       BlockStore
	reservations ReservationStore
	payments     PaymentStore
	gateway      PaymentGateway
	notifier     Notifier

	dailyLimit int
	returnURL  string
	pendingTTL time.Duration
	now        func() time.Time
}

// NewBookingService wires a BookingService. dailyLimit must be
// positive; returnURL is where the provider redirects the payer after
// checkout.
func NewBookingService(blocks BlockStore, reservations ReservationStore, payments PaymentStore, gateway PaymentGateway, notifier Notifier, dailyLimit int, returnURL string, pendingTTL time.Duration) *BookingService {
	if blocks == nil || reservations == nil || payments == nil || gateway == nil || notifier == nil {
		panic("nil dependency passed to NewBookingService")
	}
	if dailyLimit < 1 {
		dailyLimit = 1
	}
	return &BookingService{
		blocks:       blocks,
		reservations: reservations,
		payments:     payments,
		gateway:      gateway,
		notifier:     notifier,
		dailyLimit:   dailyLimit,
		returnURL:    returnURL,
		pendingTTL:   pendingTTL,
		now:          time.Now,
	}
}

// PaymentRedirect tells the caller where to send the payer to
// complete a premium booking.
type PaymentRedirect struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

// BookingResult is the outcome of CreateReservation. Payment is nil
// for standard-tier bookings, which come back already confirmed.
type BookingResult struct {
	Reservation *model.Reservation
	Payment     *PaymentRedirect
}

// CreateReservation books one block instance for a user. The quota
// check is advisory; the Reserve call is the hard exclusion point, so
// two concurrent requests for the same block leave exactly one
// reservation behind. Standard-tier bookings confirm immediately;
// premium bookings come back PENDING_PAYMENT with a checkout
// redirect. Every failure after the block was taken releases it
// before the error surfaces.
func (s *BookingService) CreateReservation(ctx context.Context, userID, instanceID uint64) (*BookingResult, error) {
	inst, fac, err := s.blocks.GetWithFacility(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	active, err := s.reservations.CountActiveForUserOnDate(ctx, userID, inst.Date)
	if err != nil {
		return nil, err
	}
	if active >= s.dailyLimit {
		return nil, ErrQuotaExceeded
	}

	if err := s.blocks.Reserve(ctx, instanceID); err != nil {
		return nil, err
	}

	res := &model.Reservation{
		UserID:          userID,
		BlockInstanceID: instanceID,
		Status:          model.ReservationConfirmed,
	}
	if fac.Tier == model.TierPremium {
		res.Status = model.ReservationPendingPayment
	}
	if err := s.reservations.Create(ctx, res); err != nil {
		if relErr := s.blocks.Release(ctx, instanceID); relErr != nil {
			log.Printf("booking: release after failed insert for block %d: %v", instanceID, relErr)
		}
		return nil, err
	}

	if fac.Tier != model.TierPremium {
		// The booking already succeeded; notification delivery must
		// not undo it.
		s.notifyConfirmed(ctx, res.ID)
		return &BookingResult{Reservation: res}, nil
	}

	redirect, err := s.openPayment(ctx, res, fac.PriceCents)
	if err != nil {
		if _, failErr := s.reservations.FailIfPending(ctx, res.ID); failErr != nil {
			log.Printf("booking: mark reservation %d failed: %v", res.ID, failErr)
		}
		if relErr := s.blocks.Release(ctx, instanceID); relErr != nil {
			log.Printf("booking: release block %d after gateway failure: %v", instanceID, relErr)
		}
		return nil, err
	}
	res.Status = model.ReservationPendingPayment
	return &BookingResult{Reservation: res, Payment: redirect}, nil
}

// openPayment creates the provider transaction and the pending
// payment row for a PENDING_PAYMENT reservation.
func (s *BookingService) openPayment(ctx context.Context, res *model.Reservation, amountCents uint32) (*PaymentRedirect, error) {
	buyOrder := fmt.Sprintf("resv-%d-%d", res.ID, s.now().Unix())
	sessionID := fmt.Sprintf("session-%d", res.UserID)
	tx, err := s.gateway.Create(ctx, buyOrder, sessionID, amountCents, s.returnURL)
	if err != nil {
		return nil, err
	}
	pay := &model.Payment{
		ReservationID: res.ID,
		AmountCents:   amountCents,
		Status:        model.PaymentPending,
		TransactionID: tx.Token,
	}
	if err := s.payments.Create(ctx, pay); err != nil {
		return nil, err
	}
	return &PaymentRedirect{URL: tx.URL, Token: tx.Token}, nil
}

// StartPayment opens a payment for an existing PENDING_PAYMENT
// reservation that has no transaction in flight, e.g. after the payer
// abandoned the first checkout URL. Failures here do not release the
// block: the reservation stays pending and can be retried or expired.
func (s *BookingService) StartPayment(ctx context.Context, reservationID uint64) (*PaymentRedirect, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status != model.ReservationPendingPayment {
		return nil, ErrReservationNotActive
	}
	if _, err := s.payments.OpenByReservation(ctx, reservationID); err == nil {
		return nil, ErrPaymentOpen
	} else if !errors.Is(err, repository.ErrPaymentNotFound) {
		return nil, err
	}
	_, fac, err := s.blocks.GetWithFacility(ctx, res.BlockInstanceID)
	if err != nil {
		return nil, err
	}
	return s.openPayment(ctx, res, fac.PriceCents)
}

// PaymentOutcome reports the terminal state reached by a payment
// callback. Replayed reports whether the payment had already been
// finalized when the callback arrived; ReservationStatus carries the
// reservation's state after reconciling, which can differ from the
// payment when a cancellation or the expiry sweep got there first.
type PaymentOutcome struct {
	ReservationID     uint64 `json:"reservation_id"`
	Status            string `json:"status"`
	ReservationStatus string `json:"reservation_status"`
	Authorized        bool   `json:"authorized"`
	Replayed          bool   `json:"replayed"`
}

// ConfirmPayment handles the provider callback for a token. On an
// authorized commit the payment completes, the reservation confirms
// and the block stays held; on any other result the payment fails,
// the reservation fails and the block returns to the pool. The
// finalize and the reservation transitions are all conditional, so a
// retried callback never contacts the provider twice and finishes
// whatever a previous delivery left undone.
func (s *BookingService) ConfirmPayment(ctx context.Context, token string) (*PaymentOutcome, error) {
	pay, err := s.payments.GetByTransactionID(ctx, token)
	if err != nil {
		return nil, err
	}
	if pay.Status != model.PaymentPending {
		resStatus, err := s.settleReservation(ctx, pay.ReservationID, pay.Status)
		if err != nil {
			return nil, err
		}
		return &PaymentOutcome{
			ReservationID:     pay.ReservationID,
			Status:            pay.Status,
			ReservationStatus: resStatus,
			Authorized:        pay.Status == model.PaymentCompleted,
			Replayed:          true,
		}, nil
	}

	result, err := s.gateway.Commit(ctx, token)
	if err != nil {
		// Nothing was finalized; the provider may redeliver the
		// callback and succeed then.
		return nil, err
	}
	authorized := result.Status == payment.StatusAuthorized

	finalStatus := model.PaymentFailed
	if authorized {
		finalStatus = model.PaymentCompleted
	}
	changed, err := s.payments.FinalizeIfPending(ctx, token, finalStatus)
	if err != nil {
		return nil, err
	}
	if !changed {
		// A concurrent callback finalized first; reconcile against
		// whatever it recorded.
		current, err := s.payments.GetByTransactionID(ctx, token)
		if err != nil {
			return nil, err
		}
		resStatus, err := s.settleReservation(ctx, current.ReservationID, current.Status)
		if err != nil {
			return nil, err
		}
		return &PaymentOutcome{
			ReservationID:     current.ReservationID,
			Status:            current.Status,
			ReservationStatus: resStatus,
			Authorized:        current.Status == model.PaymentCompleted,
			Replayed:          true,
		}, nil
	}

	resStatus, err := s.settleReservation(ctx, pay.ReservationID, finalStatus)
	if err != nil {
		return nil, err
	}
	return &PaymentOutcome{
		ReservationID:     pay.ReservationID,
		Status:            finalStatus,
		ReservationStatus: resStatus,
		Authorized:        authorized,
	}, nil
}

// settleReservation brings a reservation in line with its finalized
// payment and returns the reservation status that resulted. Every
// transition here is conditional on PENDING_PAYMENT, so the call is
// safe to repeat and never overwrites a cancellation or an expiry
// that won the race; in that case the block was already released and
// both it and the terminal status are left alone.
func (s *BookingService) settleReservation(ctx context.Context, reservationID uint64, paymentStatus string) (string, error) {
	if paymentStatus == model.PaymentCompleted {
		changed, err := s.reservations.ConfirmIfPending(ctx, reservationID)
		if err != nil {
			return "", err
		}
		if changed {
			s.notifyConfirmed(ctx, reservationID)
			return model.ReservationConfirmed, nil
		}
		res, err := s.reservations.GetByID(ctx, reservationID)
		if err != nil {
			return "", err
		}
		return res.Status, nil
	}

	// A failed token must not take down a reservation that has since
	// opened a newer checkout.
	if _, err := s.payments.OpenByReservation(ctx, reservationID); err == nil {
		res, err := s.reservations.GetByID(ctx, reservationID)
		if err != nil {
			return "", err
		}
		return res.Status, nil
	} else if !errors.Is(err, repository.ErrPaymentNotFound) {
		return "", err
	}
	if _, err := s.reservations.FailIfPending(ctx, reservationID); err != nil {
		return "", err
	}
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return "", err
	}
	if res.Status != model.ReservationConfirmed {
		// Release is idempotent; this also finishes a delivery that
		// failed the reservation but stopped before freeing the block.
		if err := s.blocks.Release(ctx, res.BlockInstanceID); err != nil {
			return "", err
		}
	}
	return res.Status, nil
}

// PaymentStatus reports the provider-side state of a transaction
// without finalizing it.
func (s *BookingService) PaymentStatus(ctx context.Context, token string) (*payment.Result, error) {
	return s.gateway.Status(ctx, token)
}

// CancelReservation moves an active reservation to CANCELLED and
// returns its block to the pool. The status write is recorded before
// the release; Release is idempotent so a retry after a crash between
// the two completes the release harmlessly.
func (s *BookingService) CancelReservation(ctx context.Context, id uint64) error {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	changed, err := s.reservations.CancelIfActive(ctx, id)
	if err != nil {
		return err
	}
	if !changed {
		return repository.ErrReservationNotFound
	}
	return s.blocks.Release(ctx, res.BlockInstanceID)
}

// ModifyReservation moves an active reservation onto a different
// block instance. The new block is reserved before the old one is
// touched, so when the new block is unavailable the user keeps the
// original slot untouched.
func (s *BookingService) ModifyReservation(ctx context.Context, id, newInstanceID uint64) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != model.ReservationPendingPayment && res.Status != model.ReservationConfirmed {
		return nil, ErrReservationNotActive
	}
	if res.BlockInstanceID == newInstanceID {
		return res, nil
	}
	if _, _, err := s.blocks.GetWithFacility(ctx, newInstanceID); err != nil {
		return nil, err
	}
	if err := s.blocks.Reserve(ctx, newInstanceID); err != nil {
		return nil, err
	}
	if err := s.reservations.Repoint(ctx, id, newInstanceID); err != nil {
		// Give the new block back; the reservation still points at
		// the old one.
		if relErr := s.blocks.Release(ctx, newInstanceID); relErr != nil {
			log.Printf("booking: release block %d after failed repoint: %v", newInstanceID, relErr)
		}
		return nil, err
	}
	oldInstanceID := res.BlockInstanceID
	if err := s.blocks.Release(ctx, oldInstanceID); err != nil {
		log.Printf("booking: release old block %d after modify: %v", oldInstanceID, err)
	}
	res.BlockInstanceID = newInstanceID
	return res, nil
}

// GetReservation returns the joined detail view of one reservation.
func (s *BookingService) GetReservation(ctx context.Context, id uint64) (*repository.ReservationDetail, error) {
	return s.reservations.GetDetail(ctx, id)
}

// CountUserReservations reports how many active reservations a user
// holds on a date, the number the quota check compares against.
func (s *BookingService) CountUserReservations(ctx context.Context, userID uint64, date string) (int, error) {
	return s.reservations.CountActiveForUserOnDate(ctx, userID, date)
}

// ExpirePending fails every PENDING_PAYMENT reservation older than
// the configured TTL and releases its block. The original system kept
// abandoned checkouts pending forever, stranding their blocks; this
// sweep is invoked from an admin endpoint rather than a background
// scheduler. It returns the number of reservations expired.
func (s *BookingService) ExpirePending(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.pendingTTL).Format("2006-01-02 15:04:05")
	pending, err := s.reservations.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, res := range pending {
		changed, err := s.reservations.FailIfPending(ctx, res.ID)
		if err != nil {
			return expired, err
		}
		if !changed {
			// A payment callback won the race; leave it alone.
			continue
		}
		if err := s.blocks.Release(ctx, res.BlockInstanceID); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// notifyConfirmed loads the data a confirmation event needs and
// publishes it. Only ever best-effort.
func (s *BookingService) notifyConfirmed(ctx context.Context, reservationID uint64) {
	det, err := s.reservations.GetDetail(ctx, reservationID)
	if err != nil {
		log.Printf("booking: load detail for notification of reservation %d: %v", reservationID, err)
		return
	}
	_, fac, err := s.blocks.GetWithFacility(ctx, det.BlockInstanceID)
	if err != nil {
		log.Printf("booking: load facility for notification of reservation %d: %v", reservationID, err)
		return
	}
	ev := queue.ReservationConfirmedEvent{
		ReservationID: det.ID,
		UserID:        det.UserID,
		FacilityID:    det.FacilityID,
		FacilityName:  det.FacilityName,
		ContactEmail:  fac.ContactEmail,
		Date:          det.Date,
		StartTime:     det.StartTime,
		EndTime:       det.EndTime,
		Tier:          det.Tier,
		AmountCents:   fac.PriceCents,
		ConfirmedAt:   s.now().UTC().Format(time.RFC3339),
	}
	if err := s.notifier.ReservationConfirmed(ctx, ev); err != nil {
		log.Printf("booking: notify reservation %d: %v", reservationID, err)
	}
}
