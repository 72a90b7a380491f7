package routes

import (
	"fmt"
	"strings"
	"time"

	"github.com/countessevian/konchamar/models"
	"github.com/countessevian/konchamar/services"
	"github.com/countessevian/konchamar/storage"
	"github.com/countessevian/konchamar/utils"

	"github.com/google/uuid"
	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
)

type CheckAvailabilityInput struct {
	CheckIn           time.Time `json:"checkIn" validate:"required"`
	CheckOut          time.Time `json:"checkOut" validate:"required"`
	AccommodationType string    `json:"accommodationType" validate:"required"`
}

// CheckAvailability reports whether every day of the requested stay has a
// free unit. When it doesn't, the next week is scanned for up to three
// alternative start dates.
func CheckAvailability(ctx iris.Context) {
	var input CheckAvailabilityInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !slices.Contains(models.AccommodationTypes, input.AccommodationType) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid accommodation type", ctx)
		return
	}
	if !input.CheckIn.Before(input.CheckOut) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "checkIn must be before checkOut", ctx)
		return
	}

	var accommodation models.Accommodation
	err := storage.DB.Where("type = ? AND is_active = ?", input.AccommodationType, true).First(&accommodation).Error
	if err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Accommodation not found", ctx)
		return
	}

	if allDaysAvailable(accommodation.ID, input.CheckIn, input.CheckOut) {
		ctx.JSON(iris.Map{
			"success":   true,
			"available": true,
			"message":   "Accommodation is available for selected dates",
		})
		return
	}

	ctx.JSON(iris.Map{
		"success":        true,
		"available":      false,
		"message":        "Selected dates are not available",
		"suggestedDates": findAlternativeDates(accommodation.ID, input.CheckIn, 7),
	})
}

// allDaysAvailable is a plain conjunction over the day range; there is no
// cross-record isolation between this read and a later hold.
func allDaysAvailable(accommodationID uint, checkIn, checkOut time.Time) bool {
	days := services.HoldDays(checkIn, checkOut)
	for _, day := range days {
		var availability models.Availability
		err := storage.DB.Where("accommodation_id = ? AND date = ?", accommodationID, day).First(&availability).Error
		if err != nil || availability.Available <= 0 {
			return false
		}
	}
	return len(days) > 0
}

// findAlternativeDates scans the days after checkIn for free units,
// returning at most three suggestions.
func findAlternativeDates(accommodationID uint, checkIn time.Time, daysToCheck int) []string {
	alternatives := []string{}
	day := time.Date(checkIn.Year(), checkIn.Month(), checkIn.Day(), 0, 0, 0, 0, time.UTC)

	for i := 0; i < daysToCheck; i++ {
		day = day.AddDate(0, 0, 1)

		var availability models.Availability
		err := storage.DB.Where("accommodation_id = ? AND date = ?", accommodationID, day).First(&availability).Error
		if err == nil && availability.Available > 0 {
			alternatives = append(alternatives, day.Format("2006-01-02"))
			if len(alternatives) >= 3 {
				break
			}
		}
	}

	return alternatives
}

type GuestDetailsInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"required"`
}

type CreateBookingInput struct {
	AccommodationID uint              `json:"accommodationId" validate:"required"`
	CheckIn         time.Time         `json:"checkIn" validate:"required"`
	CheckOut        time.Time         `json:"checkOut" validate:"required"`
	Guests          int               `json:"guests" validate:"required,min=1,max=50"`
	GuestDetails    GuestDetailsInput `json:"guestDetails" validate:"required"`
	AddOns          []string          `json:"addOns"`
	PaymentMethod   string            `json:"paymentMethod" validate:"required,oneof=credit_card crypto"`
	SpecialRequests string            `json:"specialRequests"`
}

// CreateBooking validates the request, prices the stay, persists the
// reservation with a payment hold and decrements each held day.
func CreateBooking(ctx iris.Context) {
	var input CreateBookingInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !input.CheckIn.Before(input.CheckOut) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "checkIn must be before checkOut", ctx)
		return
	}

	var accommodation models.Accommodation
	if err := storage.DB.First(&accommodation, input.AccommodationID).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Accommodation not found", ctx)
		return
	}

	// Capacity check happens before any availability mutation
	if input.Guests > accommodation.Capacity {
		utils.CreateError(iris.StatusBadRequest, "Validation Error",
			fmt.Sprintf("Maximum capacity is %d guests", accommodation.Capacity), ctx)
		return
	}

	nights := services.Nights(input.CheckIn, input.CheckOut)
	quote := services.PriceBooking(accommodation.BasePrice, nights, input.Guests, input.AddOns)

	reservationID := "KONCH-" + strings.ToUpper(uuid.NewString()[:8])
	holdExpiresAt := time.Now().Add(services.HoldDuration())

	encryptedEmail, err := utils.EncryptField(input.GuestDetails.Email)
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	reservation := models.Reservation{
		ReservationID:   reservationID,
		AccommodationID: accommodation.ID,
		CheckIn:         input.CheckIn,
		CheckOut:        input.CheckOut,
		Nights:          nights,
		Guests:          input.Guests,
		Subtotal:        quote.Subtotal,
		AddOnsTotal:     quote.AddOnsTotal,
		Tax:             quote.Tax,
		ResortFee:       quote.ResortFee,
		Total:           quote.Total,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   services.PaymentPending,
		SpecialRequests: input.SpecialRequests,
		HoldExpiresAt:   holdExpiresAt,
	}
	reservation.SetGuest(models.GuestDetails{
		Name:    input.GuestDetails.Name,
		Email:   encryptedEmail,
		Phone:   input.GuestDetails.Phone,
		Address: input.GuestDetails.Address,
	})
	reservation.SetAddOns(quote.AddOns)

	if err := storage.DB.Create(&reservation).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	// Temporarily reduce availability for every night of the stay
	if err := services.PlaceHold(storage.DB, &reservation); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.EnqueueReservationSync(storage.DB, &reservation)

	ctx.JSON(iris.Map{
		"success":       true,
		"reservationId": reservation.ReservationID,
		"total":         reservation.Total,
		"holdExpiresAt": reservation.HoldExpiresAt,
		"message":       "Reservation created successfully. Complete payment before the hold expires.",
	})
}

// GetBooking returns the reservation detail with the guest email decrypted
// for display.
func GetBooking(ctx iris.Context) {
	reservationID := ctx.Params().Get("reservationId")

	var reservation models.Reservation
	err := storage.DB.Preload("Accommodation").
		Where("reservation_id = ?", reservationID).First(&reservation).Error
	if err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Reservation not found", ctx)
		return
	}

	guest := reservation.Guest()
	if decrypted, err := utils.DecryptField(guest.Email); err == nil {
		guest.Email = decrypted
	}

	ctx.JSON(iris.Map{
		"success": true,
		"reservation": iris.Map{
			"reservationId":   reservation.ReservationID,
			"accommodation":   reservation.Accommodation,
			"guestDetails":    guest,
			"checkIn":         reservation.CheckIn,
			"checkOut":        reservation.CheckOut,
			"nights":          reservation.Nights,
			"guests":          reservation.Guests,
			"addOns":          reservation.AddOnList(),
			"subtotal":        reservation.Subtotal,
			"addOnsTotal":     reservation.AddOnsTotal,
			"tax":             reservation.Tax,
			"resortFee":       reservation.ResortFee,
			"total":           reservation.Total,
			"paymentMethod":   reservation.PaymentMethod,
			"paymentStatus":   reservation.PaymentStatus,
			"specialRequests": reservation.SpecialRequests,
			"holdExpiresAt":   reservation.HoldExpiresAt,
		},
	})
}

// ExpirePendingHolds runs one hold sweep on demand. The background sweeper
// covers normal operation; this exists for schedulers and operators.
func ExpirePendingHolds(ctx iris.Context) {
	sweeper := services.NewHoldService(storage.DB)
	released, err := sweeper.ExpireDue()
	if err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}
	ctx.JSON(iris.Map{"ok": true, "released": released})
}
