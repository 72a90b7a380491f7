package storage

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/countessevian/konchamar/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func jsonList(items []string) datatypes.JSON {
	b, _ := json.Marshal(items)
	return datatypes.JSON(b)
}

// SeedAccommodations creates the resort's reference data on first boot:
// one accommodation per type and a 365-day availability horizon.
func SeedAccommodations(db *gorm.DB) {
	var count int64
	db.Model(&models.Accommodation{}).Count(&count)
	if count > 0 {
		return
	}

	accommodations := []models.Accommodation{
		{
			Type:        "room",
			Name:        "Garden View Room",
			Description: "Serene retreat with lush garden views, premium linens, and modern amenities.",
			Capacity:    2,
			BasePrice:   envFloat("ROOM_PRICE", 100),
			Amenities:   jsonList([]string{"King-size bed", "Private balcony", "Air conditioning", "WiFi", "Mini-fridge", "Coffee maker"}),
			Images:      jsonList([]string{"/images/room-1.jpg", "/images/room-2.jpg"}),
			IsActive:    true,
		},
		{
			Type:        "suite",
			Name:        "Oceanfront Suite",
			Description: "Spacious suite with separate living area, luxury bathroom, and direct beach access.",
			Capacity:    4,
			BasePrice:   envFloat("SUITE_PRICE", 200),
			Amenities:   jsonList([]string{"Ocean view balcony", "Marble bathroom", "Living area", "King bed + sofa bed", "Beach access"}),
			Images:      jsonList([]string{"/images/suite-1.jpg", "/images/suite-2.jpg"}),
			IsActive:    true,
		},
		{
			Type:        "villa",
			Name:        "Private Pool Villa",
			Description: "Ultimate luxury with your own infinity pool, outdoor shower, and expansive terrace.",
			Capacity:    8,
			BasePrice:   envFloat("VILLA_PRICE", 500),
			Amenities:   jsonList([]string{"Private infinity pool", "Master bedroom + guest room", "Full kitchen", "BBQ area", "Ocean views"}),
			Images:      jsonList([]string{"/images/villa-1.jpg", "/images/villa-2.jpg"}),
			IsActive:    true,
		},
		{
			Type:        "event_hall",
			Name:        "Beachfront Event Hall",
			Description: "Sophisticated event space with stunning ocean views for weddings and corporate events.",
			Capacity:    50,
			BasePrice:   envFloat("EVENT_HALL_PRICE", 1000),
			Amenities:   jsonList([]string{"Ocean views", "Audio/visual equipment", "Catering options", "Outdoor terrace"}),
			Images:      jsonList([]string{"/images/hall-1.jpg", "/images/hall-2.jpg"}),
			IsActive:    true,
		},
	}

	if err := db.Create(&accommodations).Error; err != nil {
		log.Println("Seed: failed to create accommodations:", err)
		return
	}

	unitsByType := map[string]int{
		"room":       envInt("ROOMS_AVAILABLE", 4),
		"suite":      envInt("SUITES_AVAILABLE", 2),
		"villa":      envInt("VILLAS_AVAILABLE", 1),
		"event_hall": envInt("EVENT_HALL_AVAILABLE", 1),
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	var records []models.Availability
	for _, accommodation := range accommodations {
		for i := 0; i < 365; i++ {
			records = append(records, models.Availability{
				AccommodationID: accommodation.ID,
				Date:            today.AddDate(0, 0, i),
				Available:       unitsByType[accommodation.Type],
			})
		}
	}

	// Insert in chunks, 4x365 rows in one statement trips parameter limits
	if err := db.CreateInBatches(&records, 365).Error; err != nil {
		log.Println("Seed: failed to create availability records:", err)
		return
	}

	log.Printf("Seed: created %d accommodations and %d availability records", len(accommodations), len(records))
}
