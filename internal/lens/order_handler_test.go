package lens

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
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

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Unexpected server error"})
		},
	})

	app.Post("/api/lens/prescriptions", CreatePrescriptionHandler())
	app.Post("/api/lens/orders", CreateLensOrderHandler())
	app.Get("/api/lens/orders", ListLensOrdersHandler())
	app.Put("/api/lens/orders/:id/status", UpdateLensStatusHandler())
	app.Get("/api/lens/orders/:id/logs", ListLensStatusLogsHandler())
	return app
}

func jsonRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func seedLensFixtures(t *testing.T, db *gorm.DB) (models.Sale, models.Prescription, models.Supplier) {
	t.Helper()

	sale := models.Sale{
		CustomerName:   "Priya Nair",
		CustomerPhone:  "9876500000",
		Status:         models.SaleStatusCompleted,
		PaymentStatus:  models.PaymentStatusPending,
		DeliveryStatus: models.DeliveryStatusPending,
	}
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}

	rx := models.Prescription{SaleID: &sale.ID, Notes: "progressive"}
	if err := db.Create(&rx).Error; err != nil {
		t.Fatalf("seed prescription: %v", err)
	}

	supplier := models.Supplier{Name: "Prime Lens Lab"}
	if err := db.Create(&supplier).Error; err != nil {
		t.Fatalf("seed supplier: %v", err)
	}

	return sale, rx, supplier
}

func TestCreateLensOrderWritesFirstLog(t *testing.T) {
	db := newTestDB(t)
	sale, rx, supplier := seedLensFixtures(t, db)
	app := newTestApp()

	body := fmt.Sprintf(`{
		"sale_id": %d,
		"prescription_id": %d,
		"supplier_id": %d,
		"lens_type": "Progressive",
		"index_value": "1.67",
		"coating": "Blue Cut",
		"expected_date": "2026-09-05"
	}`, sale.ID, rx.ID, supplier.ID)

	resp := jsonRequest(t, app, http.MethodPost, "/api/lens/orders", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var out struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != models.LensStatusOrdered {
		t.Errorf("status = %q, want ORDERED", out.Status)
	}

	var logs []models.LensOrderStatusLog
	db.Where("lens_order_id = ?", out.ID).Find(&logs)
	if len(logs) != 1 || logs[0].Status != models.LensStatusOrdered {
		t.Errorf("logs = %+v, want single ORDERED entry", logs)
	}
}

func TestLensStatusTransitionsAppendLogs(t *testing.T) {
	db := newTestDB(t)
	sale, rx, supplier := seedLensFixtures(t, db)
	app := newTestApp()

	order := models.LensOrder{
		SaleID:         sale.ID,
		PrescriptionID: rx.ID,
		SupplierID:     supplier.ID,
		Status:         models.LensStatusOrdered,
	}
	db.Create(&order)
	db.Create(&models.LensOrderStatusLog{LensOrderID: order.ID, Status: models.LensStatusOrdered})

	for _, status := range []string{
		models.LensStatusReceived,
		models.LensStatusFitting,
		models.LensStatusReady,
	} {
		resp := jsonRequest(t, app, http.MethodPut,
			fmt.Sprintf("/api/lens/orders/%d/status", order.ID),
			fmt.Sprintf(`{"status": %q}`, status))
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transition to %s: status = %d, want 200", status, resp.StatusCode)
		}
	}

	var stored models.LensOrder
	db.First(&stored, order.ID)
	if stored.Status != models.LensStatusReady {
		t.Errorf("final status = %q, want READY", stored.Status)
	}

	var logs []models.LensOrderStatusLog
	db.Where("lens_order_id = ?", order.ID).Order("id asc").Find(&logs)
	if len(logs) != 4 {
		t.Fatalf("logs = %d, want 4 (one per transition)", len(logs))
	}
	if logs[3].Status != models.LensStatusReady {
		t.Errorf("last log = %q, want READY", logs[3].Status)
	}
}

func TestLensStatusRejectsUnknownValue(t *testing.T) {
	db := newTestDB(t)
	sale, rx, supplier := seedLensFixtures(t, db)
	app := newTestApp()

	order := models.LensOrder{
		SaleID:         sale.ID,
		PrescriptionID: rx.ID,
		SupplierID:     supplier.ID,
		Status:         models.LensStatusOrdered,
	}
	db.Create(&order)

	resp := jsonRequest(t, app, http.MethodPut,
		fmt.Sprintf("/api/lens/orders/%d/status", order.ID),
		`{"status": "LOST"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListLensOrdersUsesInlinePatient(t *testing.T) {
	db := newTestDB(t)
	sale, rx, supplier := seedLensFixtures(t, db)
	app := newTestApp()

	db.Create(&models.LensOrder{
		SaleID:         sale.ID,
		PrescriptionID: rx.ID,
		SupplierID:     supplier.ID,
		LensType:       "Single Vision",
		Status:         models.LensStatusOrdered,
	})

	resp := jsonRequest(t, app, http.MethodGet, "/api/lens/orders", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var orders []LensOrderListEntry
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	if orders[0].PatientName != "Priya Nair" || orders[0].PatientPhone != "9876500000" {
		t.Errorf("patient = %q/%q, want inline sale values", orders[0].PatientName, orders[0].PatientPhone)
	}
	if orders[0].Supplier != "Prime Lens Lab" {
		t.Errorf("supplier = %q", orders[0].Supplier)
	}
}
