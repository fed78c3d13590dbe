package sales

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"optipos-backend/internal/auth"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Unexpected server error"})
		},
	})

	// stand-in for JWTMiddleware
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, uint(1))
		c.Locals(auth.CtxUserNameKey, "counter-staff")
		return c.Next()
	})

	app.Post("/api/sales", CreateSaleHandler())
	app.Get("/api/sales", ListSalesHandler())
	app.Get("/api/sales/:id", GetSaleHandler())
	app.Put("/api/sales/:id/deliver", DeliverSaleHandler())
	app.Post("/api/sales/:id/return", ReturnSaleHandler())
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestSaleEndpointRoundTrip(t *testing.T) {
	db := newTestDB(t)
	item := seedItem(t, db, "Aviator", 100, 12, 10)
	app := newTestApp()

	body := fmt.Sprintf(`{
		"customer_name": "Rahul Mehta",
		"customer_phone": "9876501234",
		"items": [{"item_id": %d, "qty": 2}],
		"payment_amount": 100,
		"payment_method": "UPI"
	}`, item.ID)

	resp := doJSON(t, app, http.MethodPost, "/api/sales", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	var created struct {
		SaleID  uint    `json:"sale_id"`
		Total   float64 `json:"total"`
		Balance float64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if created.Total != 224 || created.Balance != 124 {
		t.Errorf("create response = %+v, want total 224 balance 124", created)
	}

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/sales/%d", created.SaleID), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detail status = %d, want 200", resp.StatusCode)
	}

	var detail struct {
		Total      float64 `json:"total"`
		GSTSummary struct {
			CGST     float64 `json:"cgst"`
			SGST     float64 `json:"sgst"`
			TotalGST float64 `json:"total_gst"`
		} `json:"gst_summary"`
		Items    []SaleItemResponse `json:"items"`
		Payments []PaymentResponse  `json:"payments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.GSTSummary.CGST != 12 || detail.GSTSummary.SGST != 12 || detail.GSTSummary.TotalGST != 24 {
		t.Errorf("gst_summary = %+v, want 12/12/24", detail.GSTSummary)
	}
	if len(detail.Items) != 1 || len(detail.Payments) != 1 {
		t.Errorf("items/payments = %d/%d, want 1/1", len(detail.Items), len(detail.Payments))
	}
	if detail.Payments[0].Method != "UPI" {
		t.Errorf("payment method = %q, want UPI", detail.Payments[0].Method)
	}

	resp = doJSON(t, app, http.MethodGet, "/api/sales", "")
	var list []struct {
		ID             uint    `json:"id"`
		Total          float64 `json:"total"`
		Status         string  `json:"status"`
		PaymentStatus  string  `json:"payment_status"`
		DeliveryStatus string  `json:"delivery_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Status != "COMPLETED" || list[0].PaymentStatus != "partial" {
		t.Errorf("list = %+v", list)
	}
}

func TestSaleDetailDerivesTaxForNullSnapshots(t *testing.T) {
	db := newTestDB(t)
	item := seedItem(t, db, "Legacy", 100, 12, 10)
	app := newTestApp()

	// A row predating tax snapshots: line tax columns all null.
	sale := models.Sale{
		Total:          f("224"),
		Status:         models.SaleStatusCompleted,
		PaymentStatus:  models.PaymentStatusPending,
		DeliveryStatus: models.DeliveryStatusPending,
	}
	if err := db.Create(&sale).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}
	line := models.SaleItem{
		SaleID: sale.ID,
		ItemID: item.ID,
		Qty:    2,
		Price:  f("100"),
	}
	if err := db.Create(&line).Error; err != nil {
		t.Fatalf("seed sale item: %v", err)
	}

	resp := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/sales/%d", sale.ID), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var detail struct {
		GSTSummary struct {
			CGST     float64 `json:"cgst"`
			SGST     float64 `json:"sgst"`
			TotalGST float64 `json:"total_gst"`
		} `json:"gst_summary"`
		Items []SaleItemResponse `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(detail.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(detail.Items))
	}
	li := detail.Items[0]
	if li.TaxableValue == nil || *li.TaxableValue != 200 {
		t.Errorf("taxable_value = %v, want derived 200", li.TaxableValue)
	}
	if li.GSTAmount == nil || *li.GSTAmount != 24 {
		t.Errorf("gst_amount = %v, want derived 24", li.GSTAmount)
	}
	if li.CGST == nil || *li.CGST != 12 || li.SGST == nil || *li.SGST != 12 {
		t.Errorf("cgst/sgst = %v/%v, want derived 12/12", li.CGST, li.SGST)
	}

	// The summary block only sums stored snapshots.
	if detail.GSTSummary.TotalGST != 0 || detail.GSTSummary.CGST != 0 {
		t.Errorf("gst_summary = %+v, want zeros for null snapshots", detail.GSTSummary)
	}
}

func TestSaleEndpointInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	item := seedItem(t, db, "Scarce", 100, 12, 1)
	app := newTestApp()

	body := fmt.Sprintf(`{"items": [{"item_id": %d, "qty": 5}]}`, item.ID)
	resp := doJSON(t, app, http.MethodPost, "/api/sales", body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var out struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Error == "" {
		t.Error("expected error message in body")
	}
}

func TestReturnEndpoint(t *testing.T) {
	db := newTestDB(t)
	item := seedItem(t, db, "Returned", 100, 12, 10)
	app := newTestApp()

	sale := mustCreateSale(t, db, CreateSaleInput{
		Lines:     []SaleLineInput{{ItemID: item.ID, Qty: 2}},
		CreatedBy: 1,
	})

	body := fmt.Sprintf(`{"items": [{"item_id": %d, "qty": 1}]}`, item.ID)
	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/sales/%d/return", sale.ID), body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out struct {
		Refund float64 `json:"refund"`
		Method string  `json:"method"`
		Status string  `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Refund != 100 || out.Method != "CASH" || out.Status != "PARTIAL_RETURN" {
		t.Errorf("return response = %+v", out)
	}
}

func TestDeliverEndpointUnknownSale(t *testing.T) {
	newTestDB(t)
	app := newTestApp()

	resp := doJSON(t, app, http.MethodPut, "/api/sales/999/deliver", `{"balance_payment_mode": "CASH"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
