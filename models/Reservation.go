package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GuestDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"` // stored encrypted, see utils.EncryptField
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type ReservationAddOn struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Reservation struct {
	gorm.Model
	ReservationID   string         `json:"reservationId" gorm:"uniqueIndex;not null"` // KONCH-XXXXXXXX
	AccommodationID uint           `json:"accommodationID" gorm:"not null;index"`
	GuestDetails    datatypes.JSON `json:"guestDetails" gorm:"not null"`
	CheckIn         time.Time      `json:"checkIn" gorm:"not null"`
	CheckOut        time.Time      `json:"checkOut" gorm:"not null"`
	Nights          int            `json:"nights" gorm:"not null"`
	Guests          int            `json:"guests" gorm:"not null"`
	AddOns          datatypes.JSON `json:"addOns"`
	Subtotal        float64        `json:"subtotal" gorm:"not null"`
	AddOnsTotal     float64        `json:"addOnsTotal"`
	Tax             float64        `json:"tax" gorm:"not null"`
	ResortFee       float64        `json:"resortFee" gorm:"not null"`
	Total           float64        `json:"total" gorm:"not null"`
	PaymentMethod   string         `json:"paymentMethod" gorm:"type:varchar(20);not null"` // credit_card, crypto
	PaymentStatus   string         `json:"paymentStatus" gorm:"type:varchar(30);default:pending;index"`
	PaymentRef      string         `json:"paymentRef"`
	SpecialRequests string         `json:"specialRequests"`
	HoldExpiresAt   time.Time      `json:"holdExpiresAt" gorm:"index"`
	Accommodation   Accommodation  `json:"accommodation" gorm:"foreignKey:AccommodationID"`
}

// Guest decodes the guest details JSON column. The email stays in whatever
// form it was stored (encrypted at rest).
func (r *Reservation) Guest() GuestDetails {
	var g GuestDetails
	if r.GuestDetails != nil {
		json.Unmarshal(r.GuestDetails, &g)
	}
	return g
}

func (r *Reservation) SetGuest(g GuestDetails) error {
	b, err := json.Marshal(g)
	if err != nil {
		return err
	}
	r.GuestDetails = datatypes.JSON(b)
	return nil
}

func (r *Reservation) AddOnList() []ReservationAddOn {
	var list []ReservationAddOn
	if r.AddOns != nil {
		json.Unmarshal(r.AddOns, &list)
	}
	return list
}

func (r *Reservation) SetAddOns(list []ReservationAddOn) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	r.AddOns = datatypes.JSON(b)
	return nil
}
