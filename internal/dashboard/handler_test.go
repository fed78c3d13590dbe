package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	database.DB = db
	return db
}

func TestDashboardSummary(t *testing.T) {
	db := newTestDB(t)

	app := fiber.New()
	app.Get("/api/dashboard", SummaryHandler())

	cat := models.Category{Name: "Frames"}
	db.Create(&cat)
	db.Create(&models.Item{Name: "Low", CategoryID: cat.ID, StockQty: 0, ReorderLevel: 3})
	db.Create(&models.Item{Name: "Fine", CategoryID: cat.ID, StockQty: 20, ReorderLevel: 3})

	// two sales today, one from last week
	db.Create(&models.Sale{Total: decimal.NewFromInt(500), Status: models.SaleStatusCompleted})
	db.Create(&models.Sale{Total: decimal.NewFromInt(250), Status: models.SaleStatusCompleted})
	old := models.Sale{Total: decimal.NewFromInt(999), Status: models.SaleStatusCompleted}
	db.Create(&old)
	db.Model(&old).Update("created_at", time.Now().AddDate(0, 0, -7))

	sale := models.Sale{Status: models.SaleStatusCompleted}
	db.Create(&sale)
	rx := models.Prescription{SaleID: &sale.ID}
	db.Create(&rx)
	supplier := models.Supplier{Name: "Lab"}
	db.Create(&supplier)

	db.Create(&models.LensOrder{SaleID: sale.ID, PrescriptionID: rx.ID, SupplierID: supplier.ID, Status: models.LensStatusReady})
	db.Create(&models.LensOrder{SaleID: sale.ID, PrescriptionID: rx.ID, SupplierID: supplier.ID, Status: models.LensStatusOrdered})
	db.Create(&models.LensOrder{SaleID: sale.ID, PrescriptionID: rx.ID, SupplierID: supplier.ID, Status: models.LensStatusDelivered})

	db.Create(&models.Purchase{SupplierID: supplier.ID, Date: time.Now(), Total: decimal.NewFromInt(1200)})

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out SummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out.SalesToday != 750 {
		t.Errorf("sales_today = %v, want 750", out.SalesToday)
	}
	if out.SalesCount != 3 {
		// the lens fixture sale counts too, it was created today
		t.Errorf("sales_count = %d, want 3", out.SalesCount)
	}
	if out.LowStockItems != 1 {
		t.Errorf("low_stock_items = %d, want 1", out.LowStockItems)
	}
	if out.PendingLensOrders != 2 {
		t.Errorf("pending_lens_orders = %d, want 2", out.PendingLensOrders)
	}
	if out.ReadyOrders != 1 {
		t.Errorf("ready_orders = %d, want 1", out.ReadyOrders)
	}
	if out.PurchaseToday != 1200 {
		t.Errorf("purchase_today = %v, want 1200", out.PurchaseToday)
	}
}
