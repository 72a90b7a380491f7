package services

import (
	"math"
	"os"
	"strconv"
	"time"

	"github.com/countessevian/konchamar/models"
)

// Add-on pricing comes from the environment; this legacy table is the
// fallback when a rate is unset, kept for parity with the first deployment.
var legacyAddOnPrices = map[string]float64{
	"spa":      75,
	"surf":     60,
	"transfer": 45,
	"catering": 25,
}

var addOnEnvKeys = map[string]string{
	"spa":      "SPA_PACKAGE",
	"surf":     "SURF_LESSON",
	"transfer": "AIRPORT_TRANSFER",
	"catering": "CATERING_PER_PERSON",
}

type Quote struct {
	Nights      int
	Subtotal    float64
	AddOns      []models.ReservationAddOn
	AddOnsTotal float64
	Tax         float64
	ResortFee   float64
	Total       float64
}

func rateFromEnv(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func addOnRate(name string) (float64, bool) {
	envKey, ok := addOnEnvKeys[name]
	if !ok {
		return 0, false
	}
	return rateFromEnv(envKey, legacyAddOnPrices[name]), true
}

func TaxRate() float64 {
	return rateFromEnv("TAX_RATE", 0.13)
}

func ResortFeeRate() float64 {
	return rateFromEnv("RESORT_FEE_RATE", 0.05)
}

// Nights is the calendar-day difference rounded up, never below 1.
func Nights(checkIn, checkOut time.Time) int {
	nights := int(math.Ceil(checkOut.Sub(checkIn).Hours() / 24))
	if nights < 1 {
		nights = 1
	}
	return nights
}

// PriceBooking computes the full quote for a stay. Add-ons are flat-rate
// except catering, which is priced per guest per night. Unknown add-on names
// are ignored. Tax and resort fee apply to subtotal plus add-ons.
func PriceBooking(basePrice float64, nights, guests int, addOns []string) Quote {
	quote := Quote{Nights: nights}
	quote.Subtotal = basePrice * float64(nights)

	for _, name := range addOns {
		rate, ok := addOnRate(name)
		if !ok {
			continue
		}
		price := rate
		if name == "catering" {
			price = rate * float64(guests) * float64(nights)
		}
		quote.AddOns = append(quote.AddOns, models.ReservationAddOn{Name: name, Price: price})
		quote.AddOnsTotal += price
	}

	taxable := quote.Subtotal + quote.AddOnsTotal
	quote.Tax = taxable * TaxRate()
	quote.ResortFee = taxable * ResortFeeRate()
	quote.Total = quote.Subtotal + quote.AddOnsTotal + quote.Tax + quote.ResortFee

	return quote
}
