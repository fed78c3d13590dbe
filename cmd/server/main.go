package main

import (
	"strings"

	"optipos-backend/internal/audit"
	"optipos-backend/internal/auth"
	"optipos-backend/internal/catalog"
	"optipos-backend/internal/config"
	"optipos-backend/internal/customer"
	"optipos-backend/internal/dashboard"
	"optipos-backend/internal/database"
	"optipos-backend/internal/lens"
	"optipos-backend/internal/models"
	"optipos-backend/internal/purchase"
	"optipos-backend/internal/reports"
	"optipos-backend/internal/sales"
	"optipos-backend/internal/supplier"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			config.Logger().WithError(err).Error("unexpected error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Admin-only mutations
	adminRoutes := protected.Group("")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/categories", catalog.CreateCategoryHandler())
	adminRoutes.Put("/categories/:id", catalog.UpdateCategoryHandler())
	adminRoutes.Delete("/categories/:id", catalog.DeleteCategoryHandler())

	adminRoutes.Post("/items", catalog.CreateItemHandler())
	adminRoutes.Put("/items/:id", catalog.UpdateItemHandler())
	adminRoutes.Delete("/items/:id", catalog.DeleteItemHandler())

	adminRoutes.Post("/suppliers", supplier.CreateSupplierHandler())
	adminRoutes.Put("/suppliers/:id", supplier.UpdateSupplierHandler())
	adminRoutes.Delete("/suppliers/:id", supplier.DeleteSupplierHandler())

	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	// Catalog reads
	protected.Get("/categories", catalog.ListCategoriesHandler())
	protected.Get("/items", catalog.ListItemsHandler())
	protected.Get("/items/search", catalog.SearchItemsHandler())
	protected.Get("/items/low-stock", catalog.LowStockHandler())
	protected.Get("/items/barcode/:code", catalog.ScanBarcodeHandler())
	protected.Get("/stock-movements", catalog.ListStockMovementsHandler())

	// Suppliers & customers
	protected.Get("/suppliers", supplier.ListSuppliersHandler())
	protected.Post("/customers", customer.CreateCustomerHandler())
	protected.Get("/customers", customer.ListCustomersHandler())

	// Sales
	protected.Post("/sales", sales.CreateSaleHandler())
	protected.Get("/sales", sales.ListSalesHandler())
	protected.Get("/sales/:id", sales.GetSaleHandler())
	protected.Put("/sales/:id/deliver", sales.DeliverSaleHandler())
	protected.Post("/sales/:id/return", sales.ReturnSaleHandler())
	protected.Get("/sales/:id/pdf", sales.InvoicePDFHandler(cfg))
	protected.Get("/sales/:id/return-pdf", sales.ReturnReceiptPDFHandler())

	// Purchases
	protected.Post("/purchases", purchase.CreatePurchaseHandler())
	protected.Get("/purchases", purchase.ListPurchasesHandler())
	protected.Get("/purchases/:id", purchase.GetPurchaseHandler())
	protected.Post("/purchases/import", purchase.ImportPurchaseHandler())

	// Lens lab workflow
	protected.Post("/lens/prescriptions", lens.CreatePrescriptionHandler())
	protected.Get("/lens/prescriptions/:id", lens.GetPrescriptionHandler())
	protected.Post("/lens/orders", lens.CreateLensOrderHandler())
	protected.Get("/lens/orders", lens.ListLensOrdersHandler())
	protected.Put("/lens/orders/:id/status", lens.UpdateLensStatusHandler())
	protected.Get("/lens/orders/:id/logs", lens.ListLensStatusLogsHandler())

	// Dashboard & reports
	protected.Get("/dashboard", dashboard.SummaryHandler())
	protected.Get("/dashboard/sales-chart", dashboard.SalesChartHandler())
	protected.Get("/reports/gst", reports.GSTReportHandler())
	protected.Get("/reports/gst/export", reports.GSTExportHandler())

	config.Logger().WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		config.Logger().WithError(err).Fatal("server stopped")
	}
}
