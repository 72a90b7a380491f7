package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/countessevian/konchamar/models"
	"github.com/countessevian/konchamar/storage"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// buildBookingTestApp wires the public booking routes against an in-memory
// database assigned to the package-global handle the handlers read.
func buildBookingTestApp(t *testing.T) *iris.Application {
	t.Helper()
	t.Setenv("ENCRYPTION_KEY", "test-encryption-key")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	storage.PerformMigrations(db)
	storage.DB = db

	app := iris.New()
	app.Validator = validator.New()

	booking := app.Party("/api/booking")
	{
		booking.Post("/availability/check", CheckAvailability)
		booking.Post("/create", CreateBooking)
		booking.Post("/expire-pending", ExpirePendingHolds)
		booking.Get("/{reservationId}", GetBooking)
	}

	if err := app.Build(); err != nil {
		t.Fatalf("Failed to build test app: %v", err)
	}
	return app
}

func seedAccommodationWithDays(t *testing.T, accType string, capacity int, basePrice float64, units int, days ...string) models.Accommodation {
	t.Helper()
	accommodation := models.Accommodation{
		Type:        accType,
		Name:        "Test " + accType,
		Description: "test",
		Capacity:    capacity,
		BasePrice:   basePrice,
		IsActive:    true,
	}
	if err := storage.DB.Create(&accommodation).Error; err != nil {
		t.Fatalf("Failed to seed accommodation: %v", err)
	}
	for _, day := range days {
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			t.Fatalf("Bad test date %s: %v", day, err)
		}
		availability := models.Availability{AccommodationID: accommodation.ID, Date: date.UTC(), Available: units}
		if err := storage.DB.Create(&availability).Error; err != nil {
			t.Fatalf("Failed to seed availability: %v", err)
		}
	}
	return accommodation
}

func postJSON(t *testing.T, app *iris.Application, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", resp.Body.String(), err)
	}
	return body
}

func TestCheckAvailabilityAllDaysFree(t *testing.T) {
	app := buildBookingTestApp(t)
	seedAccommodationWithDays(t, "room", 2, 100, 1, "2026-09-01", "2026-09-02")

	resp := postJSON(t, app, "/api/booking/availability/check", iris.Map{
		"checkIn":           "2026-09-01T00:00:00Z",
		"checkOut":          "2026-09-03T00:00:00Z",
		"accommodationType": "room",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	body := decodeBody(t, resp)
	if body["available"] != true {
		t.Errorf("Expected available=true, got %v", body["available"])
	}
}

func TestCheckAvailabilitySuggestsAlternatives(t *testing.T) {
	app := buildBookingTestApp(t)
	accommodation := seedAccommodationWithDays(t, "room", 2, 100, 0, "2026-09-01")
	// Free units on later days become suggestions.
	for _, day := range []string{"2026-09-03", "2026-09-05"} {
		date, _ := time.Parse("2006-01-02", day)
		storage.DB.Create(&models.Availability{AccommodationID: accommodation.ID, Date: date.UTC(), Available: 1})
	}

	resp := postJSON(t, app, "/api/booking/availability/check", iris.Map{
		"checkIn":           "2026-09-01T00:00:00Z",
		"checkOut":          "2026-09-02T00:00:00Z",
		"accommodationType": "room",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	body := decodeBody(t, resp)
	if body["available"] != false {
		t.Errorf("Expected available=false, got %v", body["available"])
	}
	suggested, ok := body["suggestedDates"].([]interface{})
	if !ok || len(suggested) != 2 {
		t.Fatalf("Expected 2 suggested dates, got %v", body["suggestedDates"])
	}
	if suggested[0] != "2026-09-03" {
		t.Errorf("Expected first suggestion 2026-09-03, got %v", suggested[0])
	}
}

func TestCheckAvailabilityRejectsUnknownType(t *testing.T) {
	app := buildBookingTestApp(t)

	resp := postJSON(t, app, "/api/booking/availability/check", iris.Map{
		"checkIn":           "2026-09-01T00:00:00Z",
		"checkOut":          "2026-09-02T00:00:00Z",
		"accommodationType": "treehouse",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for unknown type, got %d", resp.Code)
	}
}

func TestCreateBookingPricesAndHoldsStay(t *testing.T) {
	app := buildBookingTestApp(t)
	accommodation := seedAccommodationWithDays(t, "room", 2, 100, 2, "2026-09-01", "2026-09-02", "2026-09-03")

	resp := postJSON(t, app, "/api/booking/create", iris.Map{
		"accommodationId": accommodation.ID,
		"checkIn":         "2026-09-01T00:00:00Z",
		"checkOut":        "2026-09-03T00:00:00Z",
		"guests":          2,
		"guestDetails": iris.Map{
			"name":    "Ama Mensah",
			"email":   "ama@example.com",
			"phone":   "+233200000000",
			"address": "12 Beach Rd",
		},
		"paymentMethod": "credit_card",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	body := decodeBody(t, resp)
	// 2 nights at 100: subtotal 200, tax 26, resort fee 10.
	if total, _ := body["total"].(float64); total != 236 {
		t.Errorf("Expected total 236, got %v", body["total"])
	}

	reservationID, _ := body["reservationId"].(string)
	var reservation models.Reservation
	if err := storage.DB.Where("reservation_id = ?", reservationID).First(&reservation).Error; err != nil {
		t.Fatalf("Expected reservation %s to be persisted: %v", reservationID, err)
	}
	if reservation.PaymentStatus != "pending" {
		t.Errorf("Expected pending payment status, got %s", reservation.PaymentStatus)
	}
	if reservation.HoldExpiresAt.Before(time.Now()) {
		t.Error("Expected hold to expire in the future")
	}

	// Guest email is not stored in the clear.
	if guest := reservation.Guest(); guest.Email == "ama@example.com" {
		t.Error("Expected guest email to be encrypted at rest")
	}

	// Both nights lost a unit; the checkout day did not.
	for _, day := range []string{"2026-09-01", "2026-09-02"} {
		date, _ := time.Parse("2006-01-02", day)
		var availability models.Availability
		storage.DB.Where("accommodation_id = ? AND date = ?", accommodation.ID, date.UTC()).First(&availability)
		if availability.Available != 1 {
			t.Errorf("Expected 1 unit left on %s, got %d", day, availability.Available)
		}
	}
	date, _ := time.Parse("2006-01-02", "2026-09-03")
	var checkout models.Availability
	storage.DB.Where("accommodation_id = ? AND date = ?", accommodation.ID, date.UTC()).First(&checkout)
	if checkout.Available != 2 {
		t.Errorf("Expected checkout day untouched, got %d", checkout.Available)
	}
}

func TestCreateBookingRejectsOverCapacity(t *testing.T) {
	app := buildBookingTestApp(t)
	accommodation := seedAccommodationWithDays(t, "villa", 8, 500, 1, "2026-09-01")

	resp := postJSON(t, app, "/api/booking/create", iris.Map{
		"accommodationId": accommodation.ID,
		"checkIn":         "2026-09-01T00:00:00Z",
		"checkOut":        "2026-09-02T00:00:00Z",
		"guests":          10,
		"guestDetails": iris.Map{
			"name":    "Big Group",
			"email":   "group@example.com",
			"phone":   "+233200000001",
			"address": "1 Party Ln",
		},
		"paymentMethod": "crypto",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for over-capacity booking, got %d: %s", resp.Code, resp.Body.String())
	}

	// Rejected before any mutation: no reservation, counters intact.
	var count int64
	storage.DB.Model(&models.Reservation{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no reservation rows, got %d", count)
	}

	date, _ := time.Parse("2006-01-02", "2026-09-01")
	var availability models.Availability
	storage.DB.Where("accommodation_id = ? AND date = ?", accommodation.ID, date.UTC()).First(&availability)
	if availability.Available != 1 {
		t.Errorf("Expected availability untouched, got %d", availability.Available)
	}
}

func TestGetBookingReturnsDecryptedEmail(t *testing.T) {
	app := buildBookingTestApp(t)
	accommodation := seedAccommodationWithDays(t, "suite", 4, 200, 2, "2026-09-01")

	createResp := postJSON(t, app, "/api/booking/create", iris.Map{
		"accommodationId": accommodation.ID,
		"checkIn":         "2026-09-01T00:00:00Z",
		"checkOut":        "2026-09-02T00:00:00Z",
		"guests":          2,
		"guestDetails": iris.Map{
			"name":    "Kofi Asante",
			"email":   "kofi@example.com",
			"phone":   "+233200000002",
			"address": "3 Hill St",
		},
		"paymentMethod": "credit_card",
	})
	if createResp.Code != http.StatusOK {
		t.Fatalf("Booking creation failed: %d %s", createResp.Code, createResp.Body.String())
	}
	reservationID, _ := decodeBody(t, createResp)["reservationId"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/booking/"+reservationID, nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	body := decodeBody(t, resp)
	reservation, _ := body["reservation"].(map[string]interface{})
	guest, _ := reservation["guestDetails"].(map[string]interface{})
	if guest["email"] != "kofi@example.com" {
		t.Errorf("Expected decrypted email in detail view, got %v", guest["email"])
	}
}

func TestExpirePendingHoldsEndpoint(t *testing.T) {
	app := buildBookingTestApp(t)
	accommodation := seedAccommodationWithDays(t, "room", 2, 100, 1, "2026-09-01")

	createResp := postJSON(t, app, "/api/booking/create", iris.Map{
		"accommodationId": accommodation.ID,
		"checkIn":         "2026-09-01T00:00:00Z",
		"checkOut":        "2026-09-02T00:00:00Z",
		"guests":          1,
		"guestDetails": iris.Map{
			"name":    "Late Payer",
			"email":   "late@example.com",
			"phone":   "+233200000003",
			"address": "9 Slow Ave",
		},
		"paymentMethod": "credit_card",
	})
	if createResp.Code != http.StatusOK {
		t.Fatalf("Booking creation failed: %d %s", createResp.Code, createResp.Body.String())
	}
	reservationID, _ := decodeBody(t, createResp)["reservationId"].(string)

	// Force the hold into the past, then sweep.
	storage.DB.Model(&models.Reservation{}).
		Where("reservation_id = ?", reservationID).
		Update("hold_expires_at", time.Now().Add(-time.Minute))

	resp := postJSON(t, app, "/api/booking/expire-pending", iris.Map{})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if released, _ := decodeBody(t, resp)["released"].(float64); released != 1 {
		t.Errorf("Expected 1 released hold, got %v", released)
	}

	var count int64
	storage.DB.Model(&models.Reservation{}).Where("reservation_id = ?", reservationID).Count(&count)
	if count != 0 {
		t.Error("Expected expired reservation to be deleted")
	}

	date, _ := time.Parse("2006-01-02", "2026-09-01")
	var availability models.Availability
	storage.DB.Where("accommodation_id = ? AND date = ?", accommodation.ID, date.UTC()).First(&availability)
	if availability.Available != 1 {
		t.Errorf("Expected unit restored after expiry, got %d", availability.Available)
	}
}
