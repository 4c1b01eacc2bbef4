package routes

import (
	"unilib-circ/internal/adapters/http/handlers"
	"unilib-circ/internal/adapters/http/middleware"
	"unilib-circ/internal/adapters/persistence/repositories"
	"unilib-circ/internal/config"
	"unilib-circ/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	fineRepo := repositories.NewFineRepository(db)
	reservationRepo := repositories.NewReservationRepository(db)
	requestRepo := repositories.NewRequestRepository(db)

	// Initialize services
	notifyService := services.NewNotificationService(cfg.Notify.LineToken)
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo)
	bookService := services.NewBookService(bookRepo)
	fineService := services.NewFineService(fineRepo, loanRepo)
	reservationService := services.NewReservationService(userRepo, bookRepo, loanRepo, reservationRepo, notifyService)
	loanService := services.NewLoanService(userRepo, bookRepo, loanRepo, requestRepo, reservationRepo,
		fineService, reservationService, notifyService)
	requestService := services.NewRequestService(requestRepo, loanService, notifyService)
	sweepService := services.NewSweepService(userRepo, loanRepo, fineService, reservationService, notifyService)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	bookHandler := handlers.NewBookHandler(bookService)
	loanHandler := handlers.NewLoanHandler(loanService)
	fineHandler := handlers.NewFineHandler(fineService)
	reservationHandler := handlers.NewReservationHandler(reservationService)
	requestHandler := handlers.NewRequestHandler(requestService)
	adminHandler := handlers.NewAdminHandler(sweepService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes (public, stricter rate limit)
	auth := apiV1.Group("/auth")
	auth.Post("/register", middleware.AuthRateLimiter(), authHandler.Register)
	auth.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)
	auth.Post("/logout-all", middleware.AuthMiddleware(cfg), authHandler.LogoutAll)
	auth.Get("/me", middleware.AuthMiddleware(cfg), authHandler.Me)

	// Book routes (catalog is readable by everyone, writable by staff)
	books := apiV1.Group("/books")
	books.Get("/", bookHandler.List)
	books.Get("/:id", bookHandler.Get)
	books.Post("/", middleware.AuthMiddleware(cfg), middleware.StaffOrAdmin(), bookHandler.Create)
	books.Patch("/:id", middleware.AuthMiddleware(cfg), middleware.StaffOrAdmin(), bookHandler.Update)
	books.Delete("/:id", middleware.AuthMiddleware(cfg), middleware.StaffOrAdmin(), bookHandler.Delete)

	// Loan routes (circulation desk)
	loans := apiV1.Group("/loans", middleware.AuthMiddleware(cfg))
	loans.Get("/my", loanHandler.MyLoans)
	loans.Get("/eligibility", middleware.StaffOrAdmin(), loanHandler.Evaluate)
	loans.Post("/", middleware.StaffOrAdmin(), loanHandler.Create)
	loans.Post("/:id/return", middleware.StaffOrAdmin(), loanHandler.Return)
	loans.Post("/:id/renew", loanHandler.Renew)

	// Fine routes
	fines := apiV1.Group("/fines", middleware.AuthMiddleware(cfg))
	fines.Get("/my", fineHandler.MyFines)
	fines.Get("/users/:id/outstanding", middleware.StaffOrAdmin(), fineHandler.Outstanding)
	fines.Post("/:id/pay", middleware.StaffOrAdmin(), fineHandler.Pay)
	fines.Post("/loans/:loanId/pay", middleware.StaffOrAdmin(), fineHandler.PayVirtual)

	// Reservation routes
	reservations := apiV1.Group("/reservations", middleware.AuthMiddleware(cfg))
	reservations.Get("/my", reservationHandler.MyReservations)
	reservations.Post("/", reservationHandler.Create)
	reservations.Delete("/:id", reservationHandler.Cancel)

	// Approval request routes
	requests := apiV1.Group("/requests", middleware.AuthMiddleware(cfg))
	requests.Post("/loans", requestHandler.CreateLoanRequest)
	requests.Get("/loans", middleware.StaffOrAdmin(), requestHandler.ListPendingLoanRequests)
	requests.Post("/loans/:id/approve", middleware.StaffOrAdmin(), requestHandler.ApproveLoanRequest)
	requests.Post("/loans/:id/reject", middleware.StaffOrAdmin(), requestHandler.RejectLoanRequest)
	requests.Post("/renewals", requestHandler.CreateRenewalRequest)
	requests.Get("/renewals", middleware.StaffOrAdmin(), requestHandler.ListPendingRenewalRequests)
	requests.Post("/renewals/:id/approve", middleware.StaffOrAdmin(), requestHandler.ApproveRenewalRequest)
	requests.Post("/renewals/:id/reject", middleware.StaffOrAdmin(), requestHandler.RejectRenewalRequest)

	// User administration routes
	users := apiV1.Group("/users", middleware.AuthMiddleware(cfg), middleware.AdminOnly())
	users.Get("/", userHandler.List)
	users.Get("/:id", userHandler.Get)
	users.Patch("/:id/activate", userHandler.Activate)
	users.Patch("/:id/deactivate", userHandler.Deactivate)
	users.Patch("/:id/role", userHandler.SetRole)

	// Administrative maintenance routes
	admin := apiV1.Group("/admin", middleware.AuthMiddleware(cfg), middleware.AdminOnly())
	admin.Post("/sweep", adminHandler.RunSweep)
}
