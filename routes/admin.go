package routes

import (
	"fmt"
	"time"

	"github.com/countessevian/konchamar/models"
	"github.com/countessevian/konchamar/services"
	"github.com/countessevian/konchamar/storage"
	"github.com/countessevian/konchamar/utils"

	"github.com/kataras/iris/v12"
	"github.com/xuri/excelize/v2"
)

// AdminListReservations pages through reservations, optionally filtered by
// payment status.
func AdminListReservations(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := storage.DB.Model(&models.Reservation{})
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("payment_status = ?", status)
	}

	var total int64
	query.Count(&total)

	var reservations []models.Reservation
	result := query.Preload("Accommodation").
		Order("created_at DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&reservations)

	if result.Error != nil {
		utils.JSONError(ctx, iris.StatusInternalServerError, "db_error", "Failed to fetch reservations")
		return
	}

	utils.JSONPage(ctx, reservations, page, perPage, total)
}

func AdminGetReservation(ctx iris.Context) {
	code := ctx.Params().Get("code")

	var reservation models.Reservation
	err := storage.DB.Preload("Accommodation").
		Where("reservation_id = ?", code).First(&reservation).Error
	if err != nil {
		utils.JSONError(ctx, iris.StatusNotFound, "not_found", "Reservation not found")
		return
	}

	var token models.PaymentToken
	storage.DB.Where("reservation_id = ?", code).First(&token)

	ctx.JSON(iris.Map{
		"data":         reservation,
		"paymentToken": token,
	})
}

// AdminConfirmCryptoPayment completes a crypto payment after manual
// verification of the submitted transaction.
func AdminConfirmCryptoPayment(ctx iris.Context) {
	code := ctx.Params().Get("code")

	var reservation models.Reservation
	if err := storage.DB.Where("reservation_id = ?", code).First(&reservation).Error; err != nil {
		utils.JSONError(ctx, iris.StatusNotFound, "not_found", "Reservation not found")
		return
	}

	before := reservation.PaymentStatus
	if err := services.TransitionPayment(storage.DB, &reservation, services.PaymentCompleted, ""); err != nil {
		utils.JSONError(ctx, iris.StatusBadRequest, "invalid_state",
			fmt.Sprintf("Cannot complete payment from status %q", before))
		return
	}

	utils.Audit(ctx, "payment.confirm_crypto", "reservation", reservation.ReservationID,
		iris.Map{"paymentStatus": before},
		iris.Map{"paymentStatus": reservation.PaymentStatus})

	ctx.JSON(iris.Map{
		"success":       true,
		"reservationId": reservation.ReservationID,
		"paymentStatus": reservation.PaymentStatus,
	})
}

// AdminListOutbox surfaces mirror sync state; failed rows are the ones that
// need attention.
func AdminListOutbox(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 50)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	query := storage.DB.Model(&models.SyncOutbox{})
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var rows []models.SyncOutbox
	if err := query.Order("id DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		utils.JSONError(ctx, iris.StatusInternalServerError, "db_error", "Failed to fetch outbox")
		return
	}

	utils.JSONPage(ctx, rows, page, perPage, total)
}

// AdminListAvailability shows the per-day counters for an accommodation over
// a date range.
func AdminListAvailability(ctx iris.Context) {
	accommodationID, err := ctx.Params().GetUint("id")
	if err != nil {
		utils.JSONError(ctx, iris.StatusBadRequest, "invalid_id", "Invalid accommodation ID")
		return
	}

	startDate, err := time.Parse("2006-01-02", ctx.URLParamDefault("startDate", time.Now().Format("2006-01-02")))
	if err != nil {
		utils.JSONError(ctx, iris.StatusBadRequest, "invalid_date", "Invalid start date format")
		return
	}
	endDate := startDate.AddDate(0, 0, 30)
	if v := ctx.URLParam("endDate"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			endDate = parsed
		}
	}

	var records []models.Availability
	result := storage.DB.Where("accommodation_id = ? AND date >= ? AND date <= ?",
		accommodationID, startDate, endDate).Order("date ASC").Find(&records)
	if result.Error != nil {
		utils.JSONError(ctx, iris.StatusInternalServerError, "db_error", "Failed to fetch availability")
		return
	}

	data := make([]iris.Map, 0, len(records))
	for i := range records {
		data = append(data, iris.Map{
			"date":      records[i].Date.Format("2006-01-02"),
			"available": records[i].Available,
			"status":    records[i].Status(),
		})
	}

	ctx.JSON(iris.Map{"data": data})
}

// AdminExportReservations streams an xlsx workbook of reservations for
// offline reporting.
func AdminExportReservations(ctx iris.Context) {
	var reservations []models.Reservation
	query := storage.DB.Preload("Accommodation").Order("created_at DESC")
	if status := ctx.URLParam("status"); status != "" {
		query = query.Where("payment_status = ?", status)
	}
	if err := query.Find(&reservations).Error; err != nil {
		utils.JSONError(ctx, iris.StatusInternalServerError, "db_error", "Failed to fetch reservations")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Reservations"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Reservation ID", "Accommodation", "Check-In", "Check-Out", "Nights", "Guests",
		"Subtotal", "Add-Ons", "Tax", "Resort Fee", "Total", "Payment Method", "Payment Status", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, r := range reservations {
		values := []interface{}{
			r.ReservationID,
			r.Accommodation.Name,
			r.CheckIn.Format("2006-01-02"),
			r.CheckOut.Format("2006-01-02"),
			r.Nights,
			r.Guests,
			r.Subtotal,
			r.AddOnsTotal,
			r.Tax,
			r.ResortFee,
			r.Total,
			r.PaymentMethod,
			r.PaymentStatus,
			r.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	utils.Audit(ctx, "reservations.export", "reservation", "all", nil,
		iris.Map{"count": len(reservations)})

	filename := fmt.Sprintf("reservations-%s.xlsx", time.Now().Format("20060102-150405"))
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.ContentType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	f.Write(ctx.ResponseWriter())
}

// AdminListAuditLog pages through the admin action trail.
func AdminListAuditLog(ctx iris.Context) {
	page := ctx.URLParamIntDefault("page", 1)
	perPage := ctx.URLParamIntDefault("per_page", 50)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	var total int64
	storage.DB.Model(&models.AuditLog{}).Count(&total)

	var entries []models.AuditLog
	if err := storage.DB.Order("id DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&entries).Error; err != nil {
		utils.JSONError(ctx, iris.StatusInternalServerError, "db_error", "Failed to fetch audit log")
		return
	}

	utils.JSONPage(ctx, entries, page, perPage, total)
}
