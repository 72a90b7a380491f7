package services

import (
	"math"
	"testing"
	"time"
)

func clearPricingEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TAX_RATE", "RESORT_FEE_RATE", "SPA_PACKAGE", "SURF_LESSON", "AIRPORT_TRANSFER", "CATERING_PER_PERSON"} {
		t.Setenv(key, "")
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPriceBookingBaseStay(t *testing.T) {
	clearPricingEnv(t)

	// Two nights at 100/night, no add-ons.
	quote := PriceBooking(100, 2, 2, nil)

	if !almostEqual(quote.Subtotal, 200) {
		t.Errorf("Expected subtotal 200, got %v", quote.Subtotal)
	}
	if !almostEqual(quote.Tax, 26) {
		t.Errorf("Expected tax 26, got %v", quote.Tax)
	}
	if !almostEqual(quote.ResortFee, 10) {
		t.Errorf("Expected resort fee 10, got %v", quote.ResortFee)
	}
	if !almostEqual(quote.Total, 236) {
		t.Errorf("Expected total 236, got %v", quote.Total)
	}
}

func TestPriceBookingFlatAddOns(t *testing.T) {
	clearPricingEnv(t)

	// Spa and surf are flat-rate regardless of nights or guests.
	quote := PriceBooking(100, 3, 4, []string{"spa", "surf"})

	if !almostEqual(quote.AddOnsTotal, 135) {
		t.Errorf("Expected add-ons total 135, got %v", quote.AddOnsTotal)
	}
	if len(quote.AddOns) != 2 {
		t.Fatalf("Expected 2 priced add-ons, got %d", len(quote.AddOns))
	}

	taxable := quote.Subtotal + quote.AddOnsTotal
	if !almostEqual(quote.Tax, taxable*0.13) {
		t.Errorf("Expected tax on subtotal plus add-ons, got %v", quote.Tax)
	}
	if !almostEqual(quote.ResortFee, taxable*0.05) {
		t.Errorf("Expected resort fee on subtotal plus add-ons, got %v", quote.ResortFee)
	}
}

func TestPriceBookingCateringPerGuestPerNight(t *testing.T) {
	clearPricingEnv(t)

	// Catering scales with both guests and nights: 25 * 4 guests * 3 nights.
	quote := PriceBooking(100, 3, 4, []string{"catering"})

	if !almostEqual(quote.AddOnsTotal, 300) {
		t.Errorf("Expected catering total 300, got %v", quote.AddOnsTotal)
	}
}

func TestPriceBookingIgnoresUnknownAddOns(t *testing.T) {
	clearPricingEnv(t)

	quote := PriceBooking(100, 2, 2, []string{"jetpack", "spa"})

	if len(quote.AddOns) != 1 {
		t.Fatalf("Expected unknown add-on to be dropped, got %d priced add-ons", len(quote.AddOns))
	}
	if quote.AddOns[0].Name != "spa" {
		t.Errorf("Expected surviving add-on to be spa, got %s", quote.AddOns[0].Name)
	}
}

func TestPriceBookingEnvRatesOverrideDefaults(t *testing.T) {
	clearPricingEnv(t)
	t.Setenv("TAX_RATE", "0.10")
	t.Setenv("SPA_PACKAGE", "50")

	quote := PriceBooking(100, 1, 1, []string{"spa"})

	if !almostEqual(quote.AddOnsTotal, 50) {
		t.Errorf("Expected env spa rate 50, got %v", quote.AddOnsTotal)
	}
	if !almostEqual(quote.Tax, 15) {
		t.Errorf("Expected tax 15 at 10%% of 150, got %v", quote.Tax)
	}
}

func TestNights(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
	}

	if n := Nights(day(1), day(3)); n != 2 {
		t.Errorf("Expected 2 nights, got %d", n)
	}
	// Partial days round up.
	if n := Nights(day(1).Add(14*time.Hour), day(3)); n != 2 {
		t.Errorf("Expected 2 nights for partial span, got %d", n)
	}
	// Same-day stays still bill one night.
	if n := Nights(day(1), day(1)); n != 1 {
		t.Errorf("Expected minimum 1 night, got %d", n)
	}
}
