// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"tapcash/internal/config"
	"tapcash/internal/handlers"
	"tapcash/internal/middleware"
	"tapcash/internal/providers"
	"tapcash/internal/repositories"
	"tapcash/internal/services/funding"
	"tapcash/internal/services/gateway"
	"tapcash/internal/services/history"
	"tapcash/internal/services/ledger"
	"tapcash/internal/services/loan"
	"tapcash/internal/services/notification"
	"tapcash/internal/services/rates"
	"tapcash/internal/services/refund"
	"tapcash/internal/services/split"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GatewayService is kept package-visible so the stale-transaction sweeper in
// main can share the wired instance.
var GatewayService gateway.Service

// SetupRoutes wires repositories, services and handlers, then registers all
// application routes.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Repositories
	ledgerRepo := repositories.NewLedgerRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	gatewayRepo := repositories.NewGatewayRepository(db)
	refundRepo := repositories.NewRefundRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)

	// Core services
	ratesService := rates.NewService(settingsRepo)
	ledgerService := ledger.NewService(
		ledgerRepo,
		repositories.CacheService,
		ratesService,
		settingsRepo,
		&ledger.NoopMetricsCollector{},
	)
	loanService := loan.NewService(loanRepo)
	splitService := split.NewService(settingsRepo, ledgerService)
	notificationService := notification.NewService(nil)

	// Providers
	providerTimeout := config.GetDurationEnv("PROVIDER_TIMEOUT", gateway.DefaultInitiateTimeout)
	efashe := providers.NewEfashe(
		config.GetEnv("EFASHE_BASE_URL", "https://api.efashe.example"),
		config.GetEnv("EFASHE_API_KEY", ""),
		providerTimeout,
	)
	fdi := providers.NewFDI(
		config.GetEnv("FDI_BASE_URL", "https://api.fdi.example"),
		config.GetEnv("FDI_API_KEY", ""),
		providerTimeout,
	)

	webhookSecrets := map[string]string{
		efashe.Name(): config.GetEnv("EFASHE_WEBHOOK_SECRET", ""),
		fdi.Name():    config.GetEnv("FDI_WEBHOOK_SECRET", ""),
	}

	GatewayService = gateway.NewService(
		gatewayRepo,
		ledgerService,
		splitService,
		[]gateway.Provider{efashe, fdi},
		webhookSecrets,
		notificationService,
		gateway.Config{
			StalenessWindow: config.GetDurationEnv("GATEWAY_STALENESS_WINDOW", gateway.DefaultStalenessWindow),
		},
	)

	refundService := refund.NewService(
		refundRepo,
		gatewayRepo,
		ledgerService,
		fdi,
		config.GetEnv("FDI_REFUND_DEBIT_PHONE", ""),
	)

	fundingService := funding.NewService(ledgerService, nil,
		config.GetEnv("FUNDING_CURRENCY", "rwf"))
	historyService := history.NewService(ledgerRepo, gatewayRepo, repositories.CacheService)

	// Handlers
	walletHandler := handlers.NewWalletHandler(ledgerService, fundingService)
	loanHandler := handlers.NewLoanHandler(loanService, ledgerService)
	billPayHandler := handlers.NewBillPayHandler(GatewayService)
	refundHandler := handlers.NewRefundHandler(refundService)
	historyHandler := handlers.NewHistoryHandler(historyService)
	adminHandler := handlers.NewAdminHandler(settingsRepo)

	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/api")

	// Provider callbacks are authenticated by their signed token, not by a
	// user session.
	api.Post("/billpay/webhook", billPayHandler.Webhook)

	authMiddleware := middleware.NewAuthMiddleware()
	authenticated := api.Group("/", authMiddleware.Handler)

	wallet := authenticated.Group("/wallet")
	wallet.Get("/balance", walletHandler.GetBalance)
	wallet.Post("/topup", middleware.ReceiverAuthMiddleware, walletHandler.TopUp)
	wallet.Post("/topup/card", walletHandler.CardTopUp)
	wallet.Post("/pay", walletHandler.Pay)

	loans := authenticated.Group("/loans")
	loans.Get("/", loanHandler.List)
	loans.Get("/:id", loanHandler.Get)
	loans.Post("/:id/repay", loanHandler.Repay)

	billpay := authenticated.Group("/billpay")
	billpay.Post("/", billPayHandler.Initiate)
	billpay.Get("/", billPayHandler.List)
	billpay.Get("/:id", billPayHandler.Get)
	billpay.Post("/:id/poll", billPayHandler.Poll)

	authenticated.Get("/transactions", historyHandler.Transactions)
	authenticated.Get("/billpayments", historyHandler.BillPayments)

	admin := authenticated.Group("/admin", middleware.AdminAuthMiddleware)
	admin.Post("/refunds", refundHandler.Refund)
	admin.Get("/refunds/:id", refundHandler.List)
	admin.Get("/settings/ranges", adminHandler.ListRangeSettings)
	admin.Post("/settings/ranges", adminHandler.UpsertRangeSetting)
	admin.Get("/settings/gateway/:serviceType", adminHandler.GetGatewaySetting)
	admin.Post("/settings/gateway", adminHandler.UpsertGatewaySetting)
	admin.Get("/settings/commissions/:receiverID", adminHandler.ListCommissionSettings)
	admin.Post("/settings/commissions", adminHandler.UpsertCommissionSetting)
	admin.Get("/settings/global", adminHandler.GetGlobalSettings)
	admin.Put("/settings/global", adminHandler.UpdateGlobalSettings)
}
