package routes

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"os"

	"github.com/countessevian/konchamar/models"
	"github.com/countessevian/konchamar/services"
	"github.com/countessevian/konchamar/storage"
	"github.com/countessevian/konchamar/utils"

	"github.com/kataras/iris/v12"
)

func loadReservationForPayment(ctx iris.Context, reservationID string) *models.Reservation {
	if reservationID == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Reservation ID is required", ctx)
		return nil
	}

	var reservation models.Reservation
	err := storage.DB.Preload("Accommodation").
		Where("reservation_id = ?", reservationID).First(&reservation).Error
	if err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Reservation not found", ctx)
		return nil
	}

	if err := services.BeginPaymentAttempt(&reservation); err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentAlreadyCompleted):
			utils.CreateError(iris.StatusBadRequest, "Payment Error", "Payment already completed", ctx)
		case errors.Is(err, services.ErrHoldExpired):
			utils.CreateError(iris.StatusBadRequest, "Hold Expired", "Reservation hold expired", ctx)
		default:
			utils.CreateInternalServerError(ctx)
		}
		return nil
	}

	return &reservation
}

type CreditCardPaymentInput struct {
	ReservationID string `json:"reservationId" validate:"required"`
	CardToken     string `json:"cardToken" validate:"required"`
}

// ProcessCreditCardPayment charges the card gateway and settles the
// reservation. Gateway declines mark the payment failed with a generic
// message; the raw gateway error never reaches the guest.
func ProcessCreditCardPayment(ctx iris.Context) {
	var input CreditCardPaymentInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	reservation := loadReservationForPayment(ctx, input.ReservationID)
	if reservation == nil {
		return
	}

	amountCents := int64(math.Round(reservation.Total * 100))
	charge, err := services.Card.Charge(
		amountCents,
		"usd",
		input.CardToken,
		"Konchamar Resort - "+reservation.Accommodation.Name,
		map[string]string{
			"reservationId": reservation.ReservationID,
			"checkIn":       reservation.CheckIn.Format("2006-01-02"),
			"checkOut":      reservation.CheckOut.Format("2006-01-02"),
		},
	)
	if err != nil {
		if errors.Is(err, services.ErrGatewayDeclined) {
			if txErr := services.TransitionPayment(storage.DB, reservation, services.PaymentFailed, ""); txErr != nil {
				log.Println("Payment status update failed:", txErr)
			}
			utils.CreateError(iris.StatusBadRequest, "Payment Error", "Payment failed. Please try again.", ctx)
			return
		}
		log.Println("Card gateway error:", err)
		utils.CreateError(iris.StatusInternalServerError, "Payment Error", "Payment processing error", ctx)
		return
	}

	if err := services.TransitionPayment(storage.DB, reservation, services.PaymentCompleted, charge.ID); err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	encryptedToken, err := utils.EncryptField(charge.ID)
	if err != nil {
		log.Println("Gateway token encryption failed:", err)
	}
	token := models.PaymentToken{
		ReservationID: reservation.ReservationID,
		GatewayToken:  encryptedToken,
		CardLast4:     charge.CardLast4,
		CardBrand:     charge.CardBrand,
	}
	if err := storage.DB.Create(&token).Error; err != nil {
		log.Println("Payment token persist failed:", err)
	}

	ctx.JSON(iris.Map{
		"success":       true,
		"reservationId": reservation.ReservationID,
		"message":       "Payment processed successfully",
	})
}

type CryptoGenerateInput struct {
	ReservationID string `json:"reservationId" validate:"required"`
}

// GenerateCryptoPayment creates a crypto charge for the reservation total and
// returns the deposit address. The reservation stays pending until the
// transaction is confirmed.
func GenerateCryptoPayment(ctx iris.Context) {
	var input CryptoGenerateInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	reservation := loadReservationForPayment(ctx, input.ReservationID)
	if reservation == nil {
		return
	}

	charge, err := services.Crypto.CreateCharge(
		reservation.Total,
		"Konchamar Resort - "+reservation.Accommodation.Name,
		map[string]string{"reservationId": reservation.ReservationID},
	)
	if err != nil {
		log.Println("Crypto gateway error:", err)
		utils.CreateError(iris.StatusInternalServerError, "Payment Error", "Crypto payment generation error", ctx)
		return
	}

	// A failed card attempt may retry through crypto; re-enter pending first.
	if reservation.PaymentStatus == services.PaymentFailed {
		if err := services.TransitionPayment(storage.DB, reservation, services.PaymentPending, charge.ID); err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
	} else {
		reservation.PaymentRef = charge.ID
		if err := storage.DB.Save(reservation).Error; err != nil {
			utils.CreateInternalServerError(ctx)
			return
		}
		services.EnqueueReservationSync(storage.DB, reservation)
	}

	token := models.PaymentToken{
		ReservationID: reservation.ReservationID,
		CryptoAddress: charge.Address,
		CryptoNetwork: charge.Network,
		CryptoAmount:  charge.Amount,
		CryptoSymbol:  charge.Symbol,
	}
	if err := storage.DB.Where("reservation_id = ?", reservation.ReservationID).
		Assign(token).FirstOrCreate(&token).Error; err != nil {
		log.Println("Payment token persist failed:", err)
	}

	ctx.JSON(iris.Map{
		"success":   true,
		"address":   charge.Address,
		"amount":    charge.Amount,
		"symbol":    charge.Symbol,
		"amountUSD": reservation.Total,
		"hostedUrl": charge.HostedURL,
		"expiresAt": charge.ExpiresAt,
	})
}

type CryptoConfirmInput struct {
	ReservationID string `json:"reservationId" validate:"required"`
	TxHash        string `json:"txHash" validate:"required"`
}

// ConfirmCryptoPayment records the guest-submitted transaction hash and moves
// the reservation to awaiting_verification for manual admin review.
func ConfirmCryptoPayment(ctx iris.Context) {
	var input CryptoConfirmInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	reservation := loadReservationForPayment(ctx, input.ReservationID)
	if reservation == nil {
		return
	}

	if err := services.TransitionPayment(storage.DB, reservation, services.PaymentAwaitingVerification, ""); err != nil {
		utils.CreateError(iris.StatusBadRequest, "Payment Error", "Payment cannot be confirmed in its current state", ctx)
		return
	}

	err := storage.DB.Model(&models.PaymentToken{}).
		Where("reservation_id = ?", reservation.ReservationID).
		Update("tx_hash", input.TxHash).Error
	if err != nil {
		log.Println("Payment token update failed:", err)
	}

	ctx.JSON(iris.Map{
		"success":       true,
		"reservationId": reservation.ReservationID,
		"paymentStatus": reservation.PaymentStatus,
		"message":       "Transaction submitted. Your payment will be verified shortly.",
	})
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID       string            `json:"id"`
		Metadata map[string]string `json:"metadata"`
	} `json:"data"`
}

func handleGatewayWebhook(ctx iris.Context, secretEnv, signatureHeader string, settle func(*models.Reservation, webhookEvent) error) {
	body, err := ctx.GetBody()
	if err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.WriteString("Invalid body")
		return
	}

	signature := ctx.GetHeader(signatureHeader)
	if !services.VerifyWebhookSignature(os.Getenv(secretEnv), body, signature) {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.WriteString("Webhook verification failed")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		ctx.StatusCode(iris.StatusBadRequest)
		ctx.WriteString("Invalid payload")
		return
	}

	reservationID := event.Data.Metadata["reservationId"]
	if reservationID == "" {
		ctx.JSON(iris.Map{"received": true})
		return
	}

	var reservation models.Reservation
	if err := storage.DB.Where("reservation_id = ?", reservationID).First(&reservation).Error; err != nil {
		// Reservation may have been released by the hold sweep; acknowledge
		// so the gateway stops retrying.
		ctx.JSON(iris.Map{"received": true})
		return
	}

	if err := settle(&reservation, event); err != nil {
		if errors.Is(err, services.ErrPaymentAlreadyCompleted) || errors.Is(err, services.ErrInvalidTransition) {
			// Duplicate delivery; terminal-state guard already handled it.
			ctx.JSON(iris.Map{"received": true})
			return
		}
		log.Println("Webhook settle error:", err)
		ctx.StatusCode(iris.StatusInternalServerError)
		ctx.WriteString("Webhook processing error")
		return
	}

	ctx.JSON(iris.Map{"received": true})
}

// CardWebhook settles card charges reported asynchronously by the gateway.
func CardWebhook(ctx iris.Context) {
	handleGatewayWebhook(ctx, "CARD_WEBHOOK_SECRET", "X-Gateway-Signature",
		func(reservation *models.Reservation, event webhookEvent) error {
			switch event.Type {
			case "charge.succeeded":
				return services.TransitionPayment(storage.DB, reservation, services.PaymentCompleted, event.Data.ID)
			case "charge.failed":
				return services.TransitionPayment(storage.DB, reservation, services.PaymentFailed, event.Data.ID)
			default:
				log.Println("Unhandled card webhook event type:", event.Type)
				return nil
			}
		})
}

// CryptoWebhook settles confirmed crypto charges.
func CryptoWebhook(ctx iris.Context) {
	handleGatewayWebhook(ctx, "CRYPTO_WEBHOOK_SECRET", "X-CC-Webhook-Signature",
		func(reservation *models.Reservation, event webhookEvent) error {
			if event.Type != "charge:confirmed" {
				return nil
			}
			return services.TransitionPayment(storage.DB, reservation, services.PaymentCompleted, event.Data.ID)
		})
}
