package models

import (
	"time"

	"gorm.io/gorm"
)

// Availability is the per-day unit counter for an accommodation.
// One row per (accommodation, calendar day); available must stay >= 0
// outside of the known check-then-decrement race window.
type Availability struct {
	gorm.Model
	AccommodationID uint          `json:"accommodationID" gorm:"not null;uniqueIndex:idx_accommodation_date"`
	Date            time.Time     `json:"date" gorm:"not null;uniqueIndex:idx_accommodation_date;index"`
	Available       int           `json:"available" gorm:"not null;default:0"`
	Accommodation   Accommodation `json:"-" gorm:"foreignKey:AccommodationID"`
}

// Status derives the display state from the unit counter.
func (a *Availability) Status() string {
	if a.Available > 0 {
		return "available"
	}
	return "booked"
}
