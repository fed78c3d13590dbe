package sales

import (
	"errors"
	"fmt"

	"optipos-backend/internal/audit"
	"optipos-backend/internal/auth"
	"optipos-backend/internal/config"
	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// -------------------------
// Request/Response Types
// -------------------------

type SaleLineRequest struct {
	ItemID uint     `json:"item_id"`
	Qty    int      `json:"qty"`
	Price  *float64 `json:"price"`
}

type CreateSaleRequest struct {
	CustomerID    *uint  `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`

	Items []SaleLineRequest `json:"items"`

	PaymentMethod      *string  `json:"payment_method"`
	PaymentAmount      *float64 `json:"payment_amount"`
	AdvanceAmount      *float64 `json:"advance_amount"`
	AdvancePaymentMode *string  `json:"advance_payment_mode"`
}

type ReturnLineRequest struct {
	ItemID uint `json:"item_id"`
	Qty    int  `json:"qty"`
}

type ReturnRequest struct {
	Items  []ReturnLineRequest `json:"items"`
	Method string              `json:"method"`
}

type DeliverRequest struct {
	BalancePaymentMode string `json:"balance_payment_mode"`
}

type SaleItemResponse struct {
	ID           uint     `json:"id"`
	ItemID       uint     `json:"item_id"`
	ItemName     string   `json:"item_name"`
	Qty          int      `json:"qty"`
	ReturnedQty  int      `json:"returned_qty"`
	Price        float64  `json:"price"`
	GSTPercent   *float64 `json:"gst_percent"`
	TaxableValue *float64 `json:"taxable_value"`
	GSTAmount    *float64 `json:"gst_amount"`
	CGST         *float64 `json:"cgst"`
	SGST         *float64 `json:"sgst"`
}

type PaymentResponse struct {
	ID        uint    `json:"id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	ReceiptNo string  `json:"receipt_no"`
	CreatedAt string  `json:"created_at"`
}

func decimalToFloat(f decimal.Decimal) float64 {
	return f.InexactFloat64()
}

func floatPtr(d decimal.Decimal) *float64 {
	v := d.InexactFloat64()
	return &v
}

func floatPtrToDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

func mapCalcError(err error) error {
	switch {
	case errors.Is(err, ErrSaleNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Sale not found")
	case errors.Is(err, ErrEmptySale),
		errors.Is(err, ErrInvalidQty),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInvalidReturnItem),
		errors.Is(err, ErrReturnExceedsSold):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "Could not process sale")
	}
}

// -------------------------
// Sale endpoints
// -------------------------

// POST /api/sales
func CreateSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		userID, userName, err := auth.CurrentUser(c)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "User not found")
		}

		input := CreateSaleInput{
			CustomerID:         body.CustomerID,
			CustomerName:       body.CustomerName,
			CustomerPhone:      body.CustomerPhone,
			PaymentMethod:      body.PaymentMethod,
			PaymentAmount:      floatPtrToDecimal(body.PaymentAmount),
			AdvanceAmount:      floatPtrToDecimal(body.AdvanceAmount),
			AdvancePaymentMode: body.AdvancePaymentMode,
			CreatedBy:          userID,
		}
		for _, line := range body.Items {
			input.Lines = append(input.Lines, SaleLineInput{
				ItemID: line.ItemID,
				Qty:    line.Qty,
				Price:  floatPtrToDecimal(line.Price),
			})
		}

		sale, err := CreateSale(database.DB, input)
		if err != nil {
			return mapCalcError(err)
		}

		if logErr := audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    userName,
			EntityType:  "sale",
			EntityID:    sale.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Sale #%d created, total %s", sale.ID, sale.Total.StringFixed(2)),
			After: fiber.Map{
				"total":   decimalToFloat(sale.Total),
				"paid":    decimalToFloat(sale.Paid),
				"balance": decimalToFloat(sale.Balance),
			},
		}); logErr != nil {
			config.Logger().WithError(logErr).Warn("audit log write failed")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"sale_id": sale.ID,
			"total":   decimalToFloat(sale.Total),
			"balance": decimalToFloat(sale.Balance),
		})
	}
}

// GET /api/sales
func ListSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sales []models.Sale
		if err := database.DB.Order("id desc").Find(&sales).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list sales")
		}

		resp := make([]fiber.Map, 0, len(sales))
		for _, s := range sales {
			resp = append(resp, fiber.Map{
				"id":              s.ID,
				"total":           decimalToFloat(s.Total),
				"status":          s.Status,
				"payment_status":  s.PaymentStatus,
				"delivery_status": s.DeliveryStatus,
			})
		}

		return c.JSON(resp)
	}
}

// GET /api/sales/:id
// The GST summary sums the stored line snapshots, not live item rates.
func GetSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var sale models.Sale
		if err := database.DB.Preload("Items.Item").Preload("Payments").
			First(&sale, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sale not found")
		}

		totalCGST := decimal.Zero
		totalSGST := decimal.Zero
		totalGST := decimal.Zero

		items := make([]SaleItemResponse, 0, len(sale.Items))
		for _, si := range sale.Items {
			if si.CGST.Valid {
				totalCGST = totalCGST.Add(si.CGST.Decimal)
			}
			if si.SGST.Valid {
				totalSGST = totalSGST.Add(si.SGST.Decimal)
			}
			if si.GSTAmount.Valid {
				totalGST = totalGST.Add(si.GSTAmount.Decimal)
			}

			// Line tax fields use the effective view: the stored
			// snapshot when present, derived from price/rate when a
			// pre-snapshot row left them null.
			items = append(items, SaleItemResponse{
				ID:           si.ID,
				ItemID:       si.ItemID,
				ItemName:     si.Item.Name,
				Qty:          si.Qty,
				ReturnedQty:  si.ReturnedQty,
				Price:        decimalToFloat(si.Price),
				GSTPercent:   floatPtr(si.EffectiveGSTPercent()),
				TaxableValue: floatPtr(si.EffectiveTaxableValue()),
				GSTAmount:    floatPtr(si.EffectiveGSTAmount()),
				CGST:         floatPtr(si.EffectiveCGST()),
				SGST:         floatPtr(si.EffectiveSGST()),
			})
		}

		payments := make([]PaymentResponse, 0, len(sale.Payments))
		for _, p := range sale.Payments {
			payments = append(payments, PaymentResponse{
				ID:        p.ID,
				Amount:    decimalToFloat(p.Amount),
				Method:    p.Method,
				ReceiptNo: p.ReceiptNo,
				CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}

		return c.JSON(fiber.Map{
			"id":              sale.ID,
			"customer_name":   sale.CustomerName,
			"customer_phone":  sale.CustomerPhone,
			"total":           decimalToFloat(sale.Total),
			"paid":            decimalToFloat(sale.Paid),
			"balance":         decimalToFloat(sale.Balance),
			"status":          sale.Status,
			"payment_status":  sale.PaymentStatus,
			"delivery_status": sale.DeliveryStatus,
			"created_at":      sale.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"gst_summary": fiber.Map{
				"cgst":      decimalToFloat(totalCGST),
				"sgst":      decimalToFloat(totalSGST),
				"total_gst": decimalToFloat(totalGST),
			},
			"items":    items,
			"payments": payments,
		})
	}
}

// PUT /api/sales/:id/deliver
func DeliverSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid sale id")
		}

		var body DeliverRequest
		if err := c.BodyParser(&body); err != nil && len(c.Body()) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		sale, err := DeliverSale(database.DB, uint(id), body.BalancePaymentMode)
		if err != nil {
			return mapCalcError(err)
		}

		if userID, userName, uerr := auth.CurrentUser(c); uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "sale",
				EntityID:    sale.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Sale #%d delivered", sale.ID),
				After: fiber.Map{
					"paid":            decimalToFloat(sale.Paid),
					"delivery_status": sale.DeliveryStatus,
				},
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.JSON(fiber.Map{
			"id":              sale.ID,
			"paid":            decimalToFloat(sale.Paid),
			"balance":         decimalToFloat(sale.Balance),
			"payment_status":  sale.PaymentStatus,
			"delivery_status": sale.DeliveryStatus,
		})
	}
}

// POST /api/sales/:id/return
func ReturnSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid sale id")
		}

		var body ReturnRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Method == "" {
			body.Method = models.DefaultPaymentMethod
		}

		input := ReturnInput{SaleID: uint(id), Method: body.Method}
		for _, line := range body.Items {
			input.Lines = append(input.Lines, ReturnLineInput{ItemID: line.ItemID, Qty: line.Qty})
		}

		result, err := ProcessReturn(database.DB, input)
		if err != nil {
			return mapCalcError(err)
		}

		if userID, userName, uerr := auth.CurrentUser(c); uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "sale",
				EntityID:    uint(id),
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Return against sale #%d, refund %s", id, result.Refund.StringFixed(2)),
				After: fiber.Map{
					"refund": decimalToFloat(result.Refund),
					"status": result.Status,
				},
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.JSON(fiber.Map{
			"refund": decimalToFloat(result.Refund),
			"method": input.Method,
			"status": result.Status,
			"time":   result.Time.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
}
