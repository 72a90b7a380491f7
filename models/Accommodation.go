package models

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Accommodation types offered by the resort.
var AccommodationTypes = []string{"room", "suite", "villa", "event_hall"}

type Accommodation struct {
	gorm.Model
	Type        string         `json:"type" gorm:"type:varchar(20);not null;index"` // room, suite, villa, event_hall
	Name        string         `json:"name" gorm:"not null"`
	Description string         `json:"description" gorm:"not null"`
	Capacity    int            `json:"capacity" gorm:"not null"`
	BasePrice   float64        `json:"basePrice" gorm:"not null"`
	Amenities   datatypes.JSON `json:"amenities"`
	Images      datatypes.JSON `json:"images"`
	IsActive    bool           `json:"isActive" gorm:"default:true;index"`
}

func (a *Accommodation) MarshalJSON() ([]byte, error) {
	type Alias Accommodation
	aux := &struct {
		Amenities []string `json:"amenities"`
		Images    []string `json:"images"`
		*Alias
	}{
		Amenities: []string{},
		Images:    []string{},
		Alias:     (*Alias)(a),
	}

	if a.Amenities != nil {
		json.Unmarshal(a.Amenities, &aux.Amenities)
	}
	if a.Images != nil {
		json.Unmarshal(a.Images, &aux.Images)
	}

	return json.Marshal(aux)
}
