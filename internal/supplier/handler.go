package supplier

import (
	"fmt"
	"strings"

	"optipos-backend/internal/audit"
	"optipos-backend/internal/auth"
	"optipos-backend/internal/config"
	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// -------------------------
// Request/Response Types
// -------------------------

type CreateSupplierRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	GSTIN   string `json:"gstin"`
	Address string `json:"address"`
}

type UpdateSupplierRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	GSTIN   *string `json:"gstin"`
	Address *string `json:"address"`
}

type SupplierResponse struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	GSTIN   string `json:"gstin"`
	Address string `json:"address"`
}

func supplierResponse(s models.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:      s.ID,
		Name:    s.Name,
		Phone:   s.Phone,
		GSTIN:   s.GSTIN,
		Address: s.Address,
	}
}

// -------------------------
// Supplier CRUD
// -------------------------

// POST /api/suppliers
func CreateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if strings.TrimSpace(body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name must not be empty")
		}

		s := models.Supplier{
			Name:    strings.TrimSpace(body.Name),
			Phone:   strings.TrimSpace(body.Phone),
			GSTIN:   strings.TrimSpace(body.GSTIN),
			Address: strings.TrimSpace(body.Address),
		}

		if err := database.DB.Create(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create supplier")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "supplier",
				EntityID:    s.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Supplier created: %s", s.Name),
				After:       s,
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.Status(fiber.StatusCreated).JSON(supplierResponse(s))
	}
}

// GET /api/suppliers
func ListSuppliersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var suppliers []models.Supplier
		if err := database.DB.Order("name asc").Find(&suppliers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list suppliers")
		}

		resp := make([]SupplierResponse, 0, len(suppliers))
		for _, s := range suppliers {
			resp = append(resp, supplierResponse(s))
		}

		return c.JSON(resp)
	}
}

// PUT /api/suppliers/:id
func UpdateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var s models.Supplier
		if err := database.DB.First(&s, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Supplier not found")
		}

		var body UpdateSupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		before := s

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name must not be empty")
			}
			s.Name = name
		}
		if body.Phone != nil {
			s.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.GSTIN != nil {
			s.GSTIN = strings.TrimSpace(*body.GSTIN)
		}
		if body.Address != nil {
			s.Address = strings.TrimSpace(*body.Address)
		}

		if err := database.DB.Save(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update supplier")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "supplier",
				EntityID:    s.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Supplier updated: %s", s.Name),
				Before:      before,
				After:       s,
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.JSON(supplierResponse(s))
	}
}

// DELETE /api/suppliers/:id
func DeleteSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var s models.Supplier
		if err := database.DB.First(&s, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Supplier not found")
		}

		var purchaseCount int64
		database.DB.Model(&models.Purchase{}).Where("supplier_id = ?", s.ID).Count(&purchaseCount)
		if purchaseCount > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Supplier is referenced by purchases and cannot be deleted")
		}

		if err := database.DB.Delete(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete supplier")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "supplier",
				EntityID:    s.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Supplier deleted: %s", s.Name),
				Before:      s,
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
