package main

import (
	"fmt"
	"log"
	"os"

	"github.com/countessevian/konchamar/routes"
	"github.com/countessevian/konchamar/services"
	"github.com/countessevian/konchamar/storage"
	"github.com/countessevian/konchamar/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	// Initialize services
	db := storage.InitializeDB()
	storage.InitializeRedis()
	storage.InitializeMongo()

	// Background workers: hold release sweep and mirror outbox drain
	services.NewHoldService(db).Start()
	services.NewMirrorService(db).Start()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	// Minimal middleware - compression only
	app.Use(iris.Compression)

	// JWT Verifiers
	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	// Health check endpoint
	app.Get("/api/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	// Routes
	api := app.Party("/api", utils.RateLimitMiddleware)

	user := api.Party("/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
	}

	accommodations := api.Party("/accommodations")
	{
		accommodations.Get("/", routes.GetAccommodations)
		accommodations.Get("/{id:uint}", routes.GetAccommodation)
	}

	booking := api.Party("/booking")
	{
		booking.Post("/availability/check", routes.CheckAvailability)
		booking.Post("/create", routes.CreateBooking)
		booking.Post("/expire-pending", routes.ExpirePendingHolds)
		booking.Get("/{reservationId}", routes.GetBooking)
	}

	payment := api.Party("/payment")
	{
		payment.Post("/credit-card", routes.ProcessCreditCardPayment)
		payment.Post("/crypto/generate", routes.GenerateCryptoPayment)
		payment.Post("/crypto/confirm", routes.ConfirmCryptoPayment)
		payment.Post("/webhooks/card", routes.CardWebhook)
		payment.Post("/webhooks/crypto", routes.CryptoWebhook)
	}

	admin := api.Party("/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/reservations", routes.AdminListReservations)
		admin.Get("/reservations/export", routes.AdminExportReservations)
		admin.Get("/reservations/{code:string}", routes.AdminGetReservation)
		admin.Post("/reservations/{code:string}/confirm-crypto", routes.AdminConfirmCryptoPayment)
		admin.Post("/accommodations", routes.CreateAccommodation)
		admin.Get("/accommodations/{id:uint}/availability", routes.AdminListAvailability)
		admin.Get("/outbox", routes.AdminListOutbox)
		admin.Get("/audit", utils.SuperAdminOnlyMiddleware, routes.AdminListAuditLog)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
