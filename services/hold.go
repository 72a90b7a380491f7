package services

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/countessevian/konchamar/models"

	"gorm.io/gorm"
)

// HoldService releases abandoned reservation holds. Holds are durable: only
// the persisted hold_expires_at matters, so a restart cannot leak a hold.
type HoldService struct {
	DB       *gorm.DB
	Interval time.Duration
}

func NewHoldService(db *gorm.DB) *HoldService {
	interval := 60 * time.Second
	if v := os.Getenv("HOLD_SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Second
		}
	}
	return &HoldService{DB: db, Interval: interval}
}

// HoldDuration is the payment window granted at reservation creation.
func HoldDuration() time.Duration {
	minutes := 15
	if v := os.Getenv("HOLD_DURATION_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minutes = n
		}
	}
	return time.Duration(minutes) * time.Minute
}

// Start runs the sweep loop until the process exits.
func (s *HoldService) Start() {
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := s.ExpireDue(); err != nil {
				log.Println("Hold sweep error:", err)
			} else if n > 0 {
				log.Printf("Hold sweep released %d expired reservations", n)
			}
		}
	}()
}

// ExpireDue releases every pending reservation whose hold window has elapsed:
// the held days get their units back and the reservation is deleted. A
// reservation paid in the interim no longer matches the pending filter and is
// untouched.
func (s *HoldService) ExpireDue() (int, error) {
	var due []models.Reservation
	err := s.DB.
		Where("payment_status = ? AND hold_expires_at < ?", PaymentPending, time.Now()).
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range due {
		reservation := &due[i]
		if err := ReleaseHold(s.DB, reservation); err != nil {
			log.Printf("Hold release failed for %s: %v", reservation.ReservationID, err)
			continue
		}
		if err := s.DB.Delete(reservation).Error; err != nil {
			log.Printf("Hold cleanup failed for %s: %v", reservation.ReservationID, err)
			continue
		}
		EnqueueReservationDelete(s.DB, reservation.ReservationID)
		log.Printf("Hold expired for reservation %s", reservation.ReservationID)
		released++
	}

	return released, nil
}

// HoldDays enumerates the calendar days a stay occupies: [checkIn, checkOut).
func HoldDays(checkIn, checkOut time.Time) []time.Time {
	var days []time.Time
	for d := dayOf(checkIn); d.Before(dayOf(checkOut)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PlaceHold decrements each held day by one unit. The decrement is a single
// SQL expression per row so concurrent holds cannot lose an update, though
// the check-then-hold sequence itself stays unguarded (accepted risk at
// resort-scale traffic).
func PlaceHold(db *gorm.DB, reservation *models.Reservation) error {
	return adjustAvailability(db, reservation, -1)
}

// ReleaseHold gives the held days their units back.
func ReleaseHold(db *gorm.DB, reservation *models.Reservation) error {
	return adjustAvailability(db, reservation, +1)
}

func adjustAvailability(db *gorm.DB, reservation *models.Reservation, delta int) error {
	for _, day := range HoldDays(reservation.CheckIn, reservation.CheckOut) {
		err := db.Model(&models.Availability{}).
			Where("accommodation_id = ? AND date = ?", reservation.AccommodationID, day).
			Update("available", gorm.Expr("available + ?", delta)).Error
		if err != nil {
			return err
		}
		EnqueueAvailabilitySync(db, reservation.AccommodationID, day)
	}
	return nil
}
