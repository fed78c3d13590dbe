package purchase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
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

	app.Post("/api/purchases", CreatePurchaseHandler())
	app.Get("/api/purchases", ListPurchasesHandler())
	app.Post("/api/purchases/import", ImportPurchaseHandler())
	return app
}

func seedCatalog(t *testing.T, db *gorm.DB) (models.Supplier, models.Item) {
	t.Helper()

	supplier := models.Supplier{Name: "Essilor Distributors"}
	if err := db.Create(&supplier).Error; err != nil {
		t.Fatalf("seed supplier: %v", err)
	}

	cat := models.Category{Name: "Lenses"}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("seed category: %v", err)
	}

	item := models.Item{
		Name:       "CR-39 Single Vision",
		CategoryID: cat.ID,
		Barcode:    "8901234567890",
		StockQty:   5,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}

	return supplier, item
}

func TestCreatePurchaseIncrementsStock(t *testing.T) {
	db := newTestDB(t)
	supplier, item := seedCatalog(t, db)
	app := newTestApp()

	body := fmt.Sprintf(`{
		"supplier_id": %d,
		"invoice_no": "INV-2026-042",
		"date": "2026-08-15",
		"items": [{"item_id": %d, "qty": 10, "price": 250.00, "gst_percent": 12}]
	}`, supplier.ID, item.ID)

	req := httptest.NewRequest(http.MethodPost, "/api/purchases", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var out PurchaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Total != 2500 {
		t.Errorf("total = %v, want 2500", out.Total)
	}
	if out.InvoiceNo != "INV-2026-042" {
		t.Errorf("invoice_no = %q", out.InvoiceNo)
	}

	var stored models.Item
	db.First(&stored, item.ID)
	if stored.StockQty != 15 {
		t.Errorf("stock = %d, want 15", stored.StockQty)
	}

	var movement models.StockMovement
	if err := db.Where("item_id = ? AND movement_type = ?", item.ID, models.MovementPurchase).
		First(&movement).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if movement.ChangeQty != 10 {
		t.Errorf("movement change = %d, want 10", movement.ChangeQty)
	}
}

func TestCreatePurchaseUnknownItemRollsBack(t *testing.T) {
	db := newTestDB(t)
	supplier, item := seedCatalog(t, db)
	app := newTestApp()

	body := fmt.Sprintf(`{
		"supplier_id": %d,
		"items": [
			{"item_id": %d, "qty": 10, "price": 250.00},
			{"item_id": 9999, "qty": 1, "price": 10.00}
		]
	}`, supplier.ID, item.ID)

	req := httptest.NewRequest(http.MethodPost, "/api/purchases", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var stored models.Item
	db.First(&stored, item.ID)
	if stored.StockQty != 5 {
		t.Errorf("stock after rollback = %d, want 5", stored.StockQty)
	}

	var purchaseCount int64
	db.Model(&models.Purchase{}).Count(&purchaseCount)
	if purchaseCount != 0 {
		t.Errorf("purchase rows after rollback = %d, want 0", purchaseCount)
	}
}

func TestCreatePurchaseRejectsEmpty(t *testing.T) {
	db := newTestDB(t)
	supplier, _ := seedCatalog(t, db)
	app := newTestApp()

	body := fmt.Sprintf(`{"supplier_id": %d, "items": []}`, supplier.ID)
	req := httptest.NewRequest(http.MethodPost, "/api/purchases", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func buildImportWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()

	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)

	header := []any{"Barcode", "Name", "Qty", "Price"}
	if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}

	var buf bytes.Buffer
	if err := wb.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func TestImportPurchaseMatchesByBarcode(t *testing.T) {
	db := newTestDB(t)
	_, item := seedCatalog(t, db)
	app := newTestApp()

	wbBuf := buildImportWorkbook(t, [][]any{
		{item.Barcode, "", 10, 250.0},
		{"", "CR-39 Single Vision", 5, 240.0},
		{"0000000000000", "No Such Item", 1, 10.0},
	})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "invoice.xlsx")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(wbBuf.Bytes()); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/purchases/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out struct {
		Rows    []ImportLinePreview `json:"rows"`
		Total   int                 `json:"total"`
		Matched int                 `json:"matched"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if out.Total != 3 {
		t.Errorf("total rows = %d, want 3", out.Total)
	}
	if out.Matched != 2 {
		t.Errorf("matched = %d, want 2", out.Matched)
	}
	if !out.Rows[0].Matched || out.Rows[0].ItemID == nil || *out.Rows[0].ItemID != item.ID {
		t.Errorf("barcode row not matched to item %d: %+v", item.ID, out.Rows[0])
	}
	if out.Rows[2].Matched {
		t.Errorf("unknown row should not match: %+v", out.Rows[2])
	}

	// Preview only, nothing persisted.
	var stored models.Item
	db.First(&stored, item.ID)
	if stored.StockQty != 5 {
		t.Errorf("stock = %d, want unchanged 5", stored.StockQty)
	}
}

func TestPurchaseTotalUsesDecimalRounding(t *testing.T) {
	db := newTestDB(t)
	supplier, item := seedCatalog(t, db)
	app := newTestApp()

	body := fmt.Sprintf(`{
		"supplier_id": %d,
		"items": [{"item_id": %d, "qty": 3, "price": 33.335}]
	}`, supplier.ID, item.ID)

	req := httptest.NewRequest(http.MethodPost, "/api/purchases", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var p models.Purchase
	if err := db.Order("id desc").First(&p).Error; err != nil {
		t.Fatalf("load purchase: %v", err)
	}
	want := decimal.NewFromFloat(100.01)
	if !p.Total.Equal(want) {
		t.Errorf("total = %s, want %s", p.Total, want)
	}
}
