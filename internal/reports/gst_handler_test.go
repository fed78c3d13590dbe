package reports

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

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

func dec(s string) decimal.NullDecimal {
	d, _ := decimal.NewFromString(s)
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func seedTaxedSale(t *testing.T, db *gorm.DB, rate, taxable, gst string) {
	t.Helper()

	total, _ := decimal.NewFromString(taxable)
	g, _ := decimal.NewFromString(gst)
	sale := models.Sale{
		Total:  total.Add(g),
		Status: models.SaleStatusCompleted,
	}
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}

	half := g.Div(decimal.NewFromInt(2))
	line := models.SaleItem{
		SaleID:       sale.ID,
		ItemID:       1,
		Qty:          1,
		Price:        total,
		GSTPercent:   dec(rate),
		TaxableValue: dec(taxable),
		GSTAmount:    dec(gst),
		CGST:         decimal.NullDecimal{Decimal: half, Valid: true},
		SGST:         decimal.NullDecimal{Decimal: half, Valid: true},
	}
	if err := db.Create(&line).Error; err != nil {
		t.Fatalf("seed sale item: %v", err)
	}
}

func TestGSTReportAggregatesByRate(t *testing.T) {
	db := newTestDB(t)

	seedTaxedSale(t, db, "12", "200", "24")
	seedTaxedSale(t, db, "12", "100", "12")
	seedTaxedSale(t, db, "18", "1000", "180")

	app := fiber.New()
	app.Get("/api/reports/gst", GSTReportHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/reports/gst", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var report GSTReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if report.TaxableValue != 1300 {
		t.Errorf("taxable = %v, want 1300", report.TaxableValue)
	}
	if report.TotalGST != 216 {
		t.Errorf("total_gst = %v, want 216", report.TotalGST)
	}
	if report.CGST != 108 || report.SGST != 108 {
		t.Errorf("cgst/sgst = %v/%v, want 108/108", report.CGST, report.SGST)
	}
	if report.GrandTotal != 1516 {
		t.Errorf("grand_total = %v, want 1516", report.GrandTotal)
	}

	if len(report.ByRate) != 2 {
		t.Fatalf("rate buckets = %d, want 2", len(report.ByRate))
	}
	if report.ByRate[0].GSTPercent != 12 || report.ByRate[0].TaxableValue != 300 {
		t.Errorf("12%% bucket = %+v", report.ByRate[0])
	}
	if report.ByRate[1].GSTPercent != 18 || report.ByRate[1].TotalGST != 180 {
		t.Errorf("18%% bucket = %+v", report.ByRate[1])
	}
}

func TestGSTReportRejectsBadDates(t *testing.T) {
	newTestDB(t)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})
	app.Get("/api/reports/gst", GSTReportHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/reports/gst?from=yesterday", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
