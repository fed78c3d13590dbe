package purchase

import (
	"fmt"
	"time"

	"optipos-backend/internal/audit"
	"optipos-backend/internal/auth"
	"optipos-backend/internal/config"
	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// -------------------------
// Request/Response Types
// -------------------------

type PurchaseLineRequest struct {
	ItemID     uint     `json:"item_id"`
	Qty        int      `json:"qty"`
	Price      float64  `json:"price"`
	GSTPercent *float64 `json:"gst_percent"`
}

type CreatePurchaseRequest struct {
	SupplierID uint                  `json:"supplier_id"`
	InvoiceNo  string                `json:"invoice_no"`
	Date       string                `json:"date"`
	Items      []PurchaseLineRequest `json:"items"`
}

type PurchaseLineResponse struct {
	ID         uint     `json:"id"`
	ItemID     uint     `json:"item_id"`
	ItemName   string   `json:"item_name"`
	Qty        int      `json:"qty"`
	Price      float64  `json:"price"`
	GSTPercent *float64 `json:"gst_percent"`
}

type PurchaseResponse struct {
	ID           uint                   `json:"id"`
	SupplierID   uint                   `json:"supplier_id"`
	SupplierName string                 `json:"supplier_name"`
	InvoiceNo    string                 `json:"invoice_no"`
	Date         string                 `json:"date"`
	Total        float64                `json:"total"`
	Items        []PurchaseLineResponse `json:"items"`
}

func purchaseResponse(p models.Purchase) PurchaseResponse {
	resp := PurchaseResponse{
		ID:           p.ID,
		SupplierID:   p.SupplierID,
		SupplierName: p.Supplier.Name,
		InvoiceNo:    p.InvoiceNo,
		Date:         p.Date.Format("2006-01-02"),
		Total:        p.Total.InexactFloat64(),
	}
	for _, line := range p.Items {
		lr := PurchaseLineResponse{
			ID:       line.ID,
			ItemID:   line.ItemID,
			ItemName: line.Item.Name,
			Qty:      line.Qty,
			Price:    line.Price.InexactFloat64(),
		}
		if line.GSTPercent.Valid {
			v := line.GSTPercent.Decimal.InexactFloat64()
			lr.GSTPercent = &v
		}
		resp.Items = append(resp.Items, lr)
	}
	return resp
}

// -------------------------
// Purchase endpoints
// -------------------------

// POST /api/purchases
// Stock increments and the PURCHASE movements commit together with the
// purchase header, or not at all.
func CreatePurchaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePurchaseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Purchase has no items")
		}

		var supplier models.Supplier
		if err := database.DB.First(&supplier, "id = ?", body.SupplierID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Supplier not found")
		}

		date := time.Now()
		if body.Date != "" {
			parsed, err := time.Parse("2006-01-02", body.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Date must be YYYY-MM-DD")
			}
			date = parsed
		}

		var purchase models.Purchase

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			purchase = models.Purchase{
				SupplierID: body.SupplierID,
				InvoiceNo:  body.InvoiceNo,
				Date:       date,
			}
			if err := tx.Create(&purchase).Error; err != nil {
				return err
			}

			total := decimal.Zero

			for _, line := range body.Items {
				if line.Qty <= 0 {
					return fiber.NewError(fiber.StatusBadRequest,
						fmt.Sprintf("Quantity must be positive for item %d", line.ItemID))
				}

				var item models.Item
				if err := database.LockForUpdate(tx).
					First(&item, "id = ?", line.ItemID).Error; err != nil {
					return fiber.NewError(fiber.StatusBadRequest,
						fmt.Sprintf("Item %d not found", line.ItemID))
				}

				price := decimal.NewFromFloat(line.Price)

				var gst decimal.NullDecimal
				if line.GSTPercent != nil {
					gst = decimal.NullDecimal{Decimal: decimal.NewFromFloat(*line.GSTPercent), Valid: true}
				}

				pi := models.PurchaseItem{
					PurchaseID: purchase.ID,
					ItemID:     item.ID,
					Qty:        line.Qty,
					Price:      price,
					GSTPercent: gst,
				}
				if err := tx.Create(&pi).Error; err != nil {
					return err
				}

				if err := tx.Model(&models.Item{}).Where("id = ?", item.ID).
					Update("stock_qty", item.StockQty+line.Qty).Error; err != nil {
					return err
				}

				movement := models.StockMovement{
					ItemID:       item.ID,
					ChangeQty:    line.Qty,
					MovementType: models.MovementPurchase,
					ReferenceID:  purchase.ID,
				}
				if err := tx.Create(&movement).Error; err != nil {
					return err
				}

				total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Qty))).Round(2))
			}

			purchase.Total = total
			if err := tx.Save(&purchase).Error; err != nil {
				return err
			}

			return tx.Preload("Supplier").Preload("Items.Item").First(&purchase, purchase.ID).Error
		})
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return fe
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create purchase")
		}

		if userID, userName, uerr := auth.CurrentUser(c); uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase",
				EntityID:    purchase.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Purchase #%d from %s, total %s", purchase.ID, supplier.Name, purchase.Total.StringFixed(2)),
				After:       purchaseResponse(purchase),
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.Status(fiber.StatusCreated).JSON(purchaseResponse(purchase))
	}
}

// GET /api/purchases
func ListPurchasesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var purchases []models.Purchase
		if err := database.DB.Preload("Supplier").Preload("Items.Item").
			Order("id desc").Find(&purchases).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list purchases")
		}

		resp := make([]PurchaseResponse, 0, len(purchases))
		for _, p := range purchases {
			resp = append(resp, purchaseResponse(p))
		}

		return c.JSON(resp)
	}
}

// GET /api/purchases/:id
func GetPurchaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.Purchase
		if err := database.DB.Preload("Supplier").Preload("Items.Item").
			First(&p, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Purchase not found")
		}

		return c.JSON(purchaseResponse(p))
	}
}
