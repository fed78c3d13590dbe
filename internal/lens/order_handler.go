package lens

import (
	"fmt"
	"time"

	"optipos-backend/internal/audit"
	"optipos-backend/internal/auth"
	"optipos-backend/internal/config"
	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// -------------------------
// Request/Response Types
// -------------------------

type CreateLensOrderRequest struct {
	SaleID         uint `json:"sale_id"`
	PrescriptionID uint `json:"prescription_id"`
	SupplierID     uint `json:"supplier_id"`

	LensType   string `json:"lens_type"`
	IndexValue string `json:"index_value"`
	Coating    string `json:"coating"`
	Tint       string `json:"tint"`

	ExpectedDate string `json:"expected_date"`
}

type UpdateLensStatusRequest struct {
	Status string `json:"status"`
}

type LensOrderListEntry struct {
	ID           uint   `json:"id"`
	PatientName  string `json:"patient_name"`
	PatientPhone string `json:"patient_phone"`
	Supplier     string `json:"supplier"`

	LensType   string `json:"lens_type"`
	IndexValue string `json:"index_value"`
	Coating    string `json:"coating"`
	Tint       string `json:"tint"`

	Status       string `json:"status"`
	OrderDate    string `json:"order_date"`
	ExpectedDate string `json:"expected_date"`

	SaleID         uint `json:"sale_id"`
	SupplierID     uint `json:"supplier_id"`
	PrescriptionID uint `json:"prescription_id"`
}

var validLensStatuses = map[string]bool{
	models.LensStatusOrdered:   true,
	models.LensStatusReceived:  true,
	models.LensStatusFitting:   true,
	models.LensStatusReady:     true,
	models.LensStatusDelivered: true,
}

// -------------------------
// Lens order endpoints
// -------------------------

// POST /api/lens/orders
// The order and its first ORDERED status log commit together.
func CreateLensOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateLensOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		var sale models.Sale
		if err := database.DB.First(&sale, "id = ?", body.SaleID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Sale not found")
		}
		var rx models.Prescription
		if err := database.DB.First(&rx, "id = ?", body.PrescriptionID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Prescription not found")
		}
		var supplier models.Supplier
		if err := database.DB.First(&supplier, "id = ?", body.SupplierID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Supplier not found")
		}

		var expected *time.Time
		if body.ExpectedDate != "" {
			parsed, err := time.Parse("2006-01-02", body.ExpectedDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Expected date must be YYYY-MM-DD")
			}
			expected = &parsed
		}

		now := time.Now()
		order := models.LensOrder{
			SaleID:         body.SaleID,
			PrescriptionID: body.PrescriptionID,
			SupplierID:     body.SupplierID,
			LensType:       body.LensType,
			IndexValue:     body.IndexValue,
			Coating:        body.Coating,
			Tint:           body.Tint,
			OrderDate:      &now,
			ExpectedDate:   expected,
			Status:         models.LensStatusOrdered,
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			log := models.LensOrderStatusLog{
				LensOrderID: order.ID,
				Status:      models.LensStatusOrdered,
			}
			return tx.Create(&log).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create lens order")
		}

		if userID, userName, uerr := auth.CurrentUser(c); uerr == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "lens_order",
				EntityID:    order.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Lens order #%d placed with %s", order.ID, supplier.Name),
				After:       order,
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":         order.ID,
			"status":     order.Status,
			"order_date": now.Format("2006-01-02"),
		})
	}
}

// PUT /api/lens/orders/:id/status
func UpdateLensStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid order id")
		}

		var body UpdateLensStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if !validLensStatuses[body.Status] {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown lens order status")
		}

		userID, userName, uerr := auth.CurrentUser(c)

		var order models.LensOrder
		txErr := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&order, "id = ?", id).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Lens order not found")
			}

			prev := order.Status
			order.Status = body.Status
			if err := tx.Save(&order).Error; err != nil {
				return err
			}

			log := models.LensOrderStatusLog{
				LensOrderID: order.ID,
				Status:      body.Status,
			}
			if uerr == nil {
				log.ChangedBy = &userID
			}
			if err := tx.Create(&log).Error; err != nil {
				return err
			}

			if uerr == nil {
				if logErr := audit.WriteLog(audit.LogOptions{
					UserID:      userID,
					UserName:    userName,
					EntityType:  "lens_order",
					EntityID:    order.ID,
					Action:      models.AuditActionUpdate,
					Description: fmt.Sprintf("Lens order #%d: %s -> %s", order.ID, prev, body.Status),
				}); logErr != nil {
					config.Logger().WithError(logErr).Warn("audit log write failed")
				}
			}

			return nil
		})
		if txErr != nil {
			if fe, ok := txErr.(*fiber.Error); ok {
				return fe
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update lens order")
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"order_id":   order.ID,
			"new_status": order.Status,
		})
	}
}

// GET /api/lens/orders
// Patient fields come from the sale's inline name/phone with the
// linked customer record as fallback.
func ListLensOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var orders []models.LensOrder
		if err := database.DB.
			Preload("Sale.Customer").
			Preload("Supplier").
			Order("id desc").
			Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list lens orders")
		}

		resp := make([]LensOrderListEntry, 0, len(orders))
		for _, o := range orders {
			entry := LensOrderListEntry{
				ID:             o.ID,
				Supplier:       o.Supplier.Name,
				LensType:       o.LensType,
				IndexValue:     o.IndexValue,
				Coating:        o.Coating,
				Tint:           o.Tint,
				Status:         o.Status,
				SaleID:         o.SaleID,
				SupplierID:     o.SupplierID,
				PrescriptionID: o.PrescriptionID,
			}

			entry.PatientName = o.Sale.CustomerName
			entry.PatientPhone = o.Sale.CustomerPhone
			if o.Sale.Customer != nil {
				if entry.PatientName == "" {
					entry.PatientName = o.Sale.Customer.Name
				}
				if entry.PatientPhone == "" {
					entry.PatientPhone = o.Sale.Customer.Phone
				}
			}

			if o.OrderDate != nil {
				entry.OrderDate = o.OrderDate.Format("2006-01-02")
			}
			if o.ExpectedDate != nil {
				entry.ExpectedDate = o.ExpectedDate.Format("2006-01-02")
			}

			resp = append(resp, entry)
		}

		return c.JSON(resp)
	}
}

// GET /api/lens/orders/:id/logs
func ListLensStatusLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var order models.LensOrder
		if err := database.DB.First(&order, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Lens order not found")
		}

		var logs []models.LensOrderStatusLog
		if err := database.DB.Where("lens_order_id = ?", order.ID).
			Order("id asc").Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list status logs")
		}

		resp := make([]fiber.Map, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, fiber.Map{
				"status":     l.Status,
				"changed_by": l.ChangedBy,
				"changed_at": l.ChangedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}

		return c.JSON(resp)
	}
}
