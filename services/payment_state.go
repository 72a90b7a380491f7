package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/countessevian/konchamar/models"

	"gorm.io/gorm"
)

// Payment statuses. Every payment entry point (card route, crypto routes,
// webhooks, admin confirmation) goes through TransitionPayment so the guards
// live in exactly one place.
const (
	PaymentPending              = "pending"
	PaymentCompleted            = "completed"
	PaymentFailed               = "failed"
	PaymentAwaitingVerification = "awaiting_verification"
)

var (
	ErrPaymentAlreadyCompleted = errors.New("payment already completed")
	ErrHoldExpired             = errors.New("reservation hold expired")
	ErrInvalidTransition       = errors.New("invalid payment status transition")
)

// completed is terminal. failed ends the card path but the guest may retry
// with crypto, which re-enters pending before moving to verification.
var allowedTransitions = map[string][]string{
	PaymentPending:              {PaymentCompleted, PaymentFailed, PaymentAwaitingVerification},
	PaymentAwaitingVerification: {PaymentCompleted},
	PaymentFailed:               {PaymentPending, PaymentAwaitingVerification},
}

func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BeginPaymentAttempt is the shared guard run before contacting any gateway:
// completed reservations reject every further attempt, and an elapsed hold is
// reported explicitly even if the sweep has not released it yet. Retries after
// a decline stay inside the same hold window. awaiting_verification is exempt;
// admin confirmation of a slow transaction may land after the deadline.
func BeginPaymentAttempt(reservation *models.Reservation) error {
	if reservation.PaymentStatus == PaymentCompleted {
		return ErrPaymentAlreadyCompleted
	}
	switch reservation.PaymentStatus {
	case PaymentPending, PaymentFailed:
		if time.Now().After(reservation.HoldExpiresAt) {
			return ErrHoldExpired
		}
	}
	return nil
}

// TransitionPayment applies a guarded status change and persists it. A
// duplicate webhook landing on a terminal status comes back as
// ErrInvalidTransition and the caller treats it as already handled.
func TransitionPayment(db *gorm.DB, reservation *models.Reservation, to string, paymentRef string) error {
	if !CanTransition(reservation.PaymentStatus, to) {
		if reservation.PaymentStatus == PaymentCompleted {
			return ErrPaymentAlreadyCompleted
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, reservation.PaymentStatus, to)
	}

	reservation.PaymentStatus = to
	if paymentRef != "" {
		reservation.PaymentRef = paymentRef
	}

	if err := db.Save(reservation).Error; err != nil {
		return err
	}

	// Sync-on-write: every status change lands in the mirror outbox.
	EnqueueReservationSync(db, reservation)
	return nil
}
