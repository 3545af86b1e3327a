package router

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/lessionprm-api/database"
	"github.com/sahilchouksey/lessionprm-api/handlers"
	admin_handlers "github.com/sahilchouksey/lessionprm-api/handlers/admin"
	auth_handlers "github.com/sahilchouksey/lessionprm-api/handlers/auth"
	course_handlers "github.com/sahilchouksey/lessionprm-api/handlers/course"
	expense_handlers "github.com/sahilchouksey/lessionprm-api/handlers/expense"
	invoice_handlers "github.com/sahilchouksey/lessionprm-api/handlers/invoice"
	payment_handlers "github.com/sahilchouksey/lessionprm-api/handlers/payment"
	revenue_handlers "github.com/sahilchouksey/lessionprm-api/handlers/revenue"
	statistics_handlers "github.com/sahilchouksey/lessionprm-api/handlers/statistics"
	user_handlers "github.com/sahilchouksey/lessionprm-api/handlers/user"
	"github.com/sahilchouksey/lessionprm-api/services"
	"github.com/sahilchouksey/lessionprm-api/services/momo"
	"github.com/sahilchouksey/lessionprm-api/services/storage"
	"github.com/sahilchouksey/lessionprm-api/utils"
	"github.com/sahilchouksey/lessionprm-api/utils/auth"
	"github.com/sahilchouksey/lessionprm-api/utils/cache"
	"github.com/sahilchouksey/lessionprm-api/utils/metrics"
	"github.com/sahilchouksey/lessionprm-api/utils/middleware"
)

// Dependencies are the shared clients the routes are built from.
// Cache and Uploader may be nil.
type Dependencies struct {
	Store    database.Storage
	Cache    *cache.RedisCache
	JWT      *auth.JWTManager
	Gateway  momo.Gateway
	Mailer   services.Mailer
	Uploader storage.Uploader
}

func SetupRoutes(app *fiber.App, deps Dependencies) error {
	db := deps.Store.DB()

	rbac, err := middleware.NewRBAC()
	if err != nil {
		return fmt.Errorf("failed to initialize rbac: %w", err)
	}

	var loginGuard *middleware.LoginGuard
	if deps.Cache != nil {
		loginGuard = middleware.NewLoginGuard(deps.Cache)
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.JWT, db)

	courseService := services.NewCourseService(db)

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Cache)
	authHandler := auth_handlers.NewAuthHandler(services.NewAuthService(db, deps.JWT, deps.Mailer), loginGuard)
	userHandler := user_handlers.NewUserHandler(services.NewUserService(db))
	courseHandler := course_handlers.NewCourseHandler(courseService)
	invoiceHandler := invoice_handlers.NewInvoiceHandler(services.NewInvoiceService(db))
	paymentHandler := payment_handlers.NewPaymentHandler(services.NewPaymentService(db, deps.Gateway, deps.Mailer))
	expenseHandler := expense_handlers.NewExpenseHandler(services.NewExpenseService(db, deps.Uploader))
	revenueHandler := revenue_handlers.NewRevenueHandler(services.NewRevenueService(db))
	statisticsHandler := statistics_handlers.NewStatisticsHandler(services.NewStatisticsService(db, courseService))

	required := authMiddleware.Required()
	guard := rbac.Guard
	audit := func(action, resource string) fiber.Handler {
		return middleware.AuditLog(db, action, resource)
	}

	// Public probes
	app.Get("/health", healthHandler.Check)
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	if loginGuard != nil {
		authGroup.Post("/login", loginGuard.Check(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)
	authGroup.Get("/verify-email/:token", authHandler.VerifyEmail)
	authGroup.Post("/logout", required, authHandler.Logout)

	// Users
	users := api.Group("/users", required)
	users.Get("/profile", userHandler.GetProfile)
	users.Put("/profile", userHandler.UpdateProfile)
	users.Post("/change-password", userHandler.ChangePassword)

	manageUsers := guard(middleware.ObjUsers, middleware.ActManage)
	users.Get("/", manageUsers, userHandler.ListUsers)
	users.Get("/stats", manageUsers, userHandler.GetUserStats)
	users.Get("/:id", manageUsers, userHandler.GetUser)
	users.Put("/:id/status", manageUsers, audit("user_status_update", "users"), userHandler.UpdateStatus)
	users.Put("/:id/role", manageUsers, audit("user_role_update", "users"), userHandler.UpdateRole)
	users.Delete("/:id", manageUsers, audit("user_delete", "users"), userHandler.DeleteUser)

	// Courses. Static paths are registered before /:id.
	courses := api.Group("/courses")
	optional := authMiddleware.Optional()
	manageCourses := []fiber.Handler{required, guard(middleware.ObjCourses, middleware.ActManage)}

	courses.Get("/", optional, courseHandler.ListCourses)
	courses.Get("/categories", courseHandler.GetCategories)
	courses.Get("/featured", courseHandler.GetFeatured)
	courses.Get("/popular", courseHandler.GetPopular)
	courses.Get("/my-courses", required, courseHandler.MyCourses)
	courses.Get("/:id", optional, courseHandler.GetCourse)
	courses.Post("/:id/enroll", required, guard(middleware.ObjCourses, middleware.ActCreate), courseHandler.Enroll)
	courses.Post("/:id/reviews", required, guard(middleware.ObjCourses, middleware.ActCreate), courseHandler.AddReview)

	courses.Post("/", append(manageCourses, audit("course_create", "courses"), courseHandler.CreateCourse)...)
	courses.Put("/:id", append(manageCourses, audit("course_update", "courses"), courseHandler.UpdateCourse)...)
	courses.Delete("/:id", append(manageCourses, audit("course_delete", "courses"), courseHandler.DeleteCourse)...)
	courses.Post("/:id/publish", append(manageCourses, audit("course_publish", "courses"), courseHandler.PublishCourse)...)
	courses.Post("/:id/archive", append(manageCourses, audit("course_archive", "courses"), courseHandler.ArchiveCourse)...)
	courses.Post("/:id/enrollments", append(manageCourses, audit("course_enroll_user", "courses"), courseHandler.EnrollUser)...)

	// Invoices
	invoices := api.Group("/invoices", required)
	readInvoices := guard(middleware.ObjInvoices, middleware.ActRead)
	manageInvoices := guard(middleware.ObjInvoices, middleware.ActManage)

	invoices.Get("/my-invoices", readInvoices, invoiceHandler.MyInvoices)
	invoices.Get("/statistics", manageInvoices, invoiceHandler.GetStatistics)
	invoices.Post("/process-expired", manageInvoices, audit("invoice_process_expired", "invoices"), invoiceHandler.ProcessExpired)
	invoices.Get("/", manageInvoices, invoiceHandler.ListInvoices)
	invoices.Get("/:id", readInvoices, invoiceHandler.GetInvoice)
	invoices.Put("/:id/paid", manageInvoices, audit("invoice_mark_paid", "invoices"), invoiceHandler.MarkPaid)
	invoices.Put("/:id/failed", manageInvoices, audit("invoice_mark_failed", "invoices"), invoiceHandler.MarkFailed)
	invoices.Put("/:id/cancelled", manageInvoices, audit("invoice_mark_cancelled", "invoices"), invoiceHandler.MarkCancelled)

	// Payments. The callback is authenticated by its signature.
	momoGroup := api.Group("/payments/momo")
	momoGroup.Post("/callback", paymentHandler.HandleMoMoCallback)
	momoGroup.Post("/create", required, guard(middleware.ObjPayments, middleware.ActCreate), paymentHandler.CreateMoMoPayment)
	momoGroup.Get("/status/:orderId", required, guard(middleware.ObjPayments, middleware.ActRead), paymentHandler.GetPaymentStatus)
	momoGroup.Post("/refund/:invoiceId", required, guard(middleware.ObjPayments, middleware.ActRefund), audit("payment_refund", "payments"), paymentHandler.RefundPayment)

	// Expenses
	expenses := api.Group("/expenses", required, guard(middleware.ObjExpenses, middleware.ActManage))
	expenses.Get("/categories", expenseHandler.GetCategories)
	expenses.Get("/totals", expenseHandler.GetTotals)
	expenses.Get("/monthly", expenseHandler.GetMonthlySummary)
	expenses.Get("/", expenseHandler.ListExpenses)
	expenses.Post("/", audit("expense_create", "expenses"), expenseHandler.CreateExpense)
	expenses.Get("/:id", expenseHandler.GetExpense)
	expenses.Put("/:id", audit("expense_update", "expenses"), expenseHandler.UpdateExpense)
	expenses.Delete("/:id", audit("expense_delete", "expenses"), expenseHandler.DeleteExpense)
	expenses.Post("/:id/approve", audit("expense_approve", "expenses"), expenseHandler.ApproveExpense)
	expenses.Post("/:id/reject", audit("expense_reject", "expenses"), expenseHandler.RejectExpense)
	expenses.Post("/:id/receipt", audit("expense_receipt_upload", "expenses"), expenseHandler.UploadReceipt)

	// Revenues
	revenues := api.Group("/revenues", required, guard(middleware.ObjRevenues, middleware.ActManage))
	revenues.Post("/generate", audit("revenue_generate", "revenues"), revenueHandler.GenerateMonthly)
	revenues.Post("/recalculate", audit("revenue_recalculate", "revenues"), revenueHandler.RecalculateAll)
	revenues.Get("/:year/totals", revenueHandler.GetYearlyTotals)
	revenues.Get("/:year/:month", revenueHandler.GetMonthly)
	revenues.Get("/:year", revenueHandler.ListByYear)

	// Statistics
	statistics := api.Group("/statistics", required, guard(middleware.ObjStatistics, middleware.ActRead))
	statistics.Get("/dashboard", statisticsHandler.Dashboard)
	statistics.Get("/revenue", statisticsHandler.Revenue)
	statistics.Get("/courses", statisticsHandler.Courses)
	statistics.Get("/users", statisticsHandler.Users)
	statistics.Get("/financial", statisticsHandler.Financial)

	// Admin bookkeeping
	admin := api.Group("/admin", required, guard(middleware.ObjAudit, middleware.ActRead))
	admin.Get("/audit-logs", utils.MakeHTTPHandleFunc(admin_handlers.ListAuditLogs, deps.Store))
	admin.Get("/audit-logs/:id", utils.MakeHTTPHandleFunc(admin_handlers.GetAuditLog, deps.Store))
	admin.Get("/cron-logs", utils.MakeHTTPHandleFunc(admin_handlers.ListCronLogs, deps.Store))

	return nil
}
