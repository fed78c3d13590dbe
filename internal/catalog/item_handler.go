package catalog

import (
	"fmt"
	"strings"

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

type CreateItemRequest struct {
	Name       string `json:"name"`
	CategoryID uint   `json:"category_id"`

	Brand string `json:"brand"`
	Model string `json:"model"`
	Color string `json:"color"`
	Size  string `json:"size"`

	SupplierName    string `json:"supplier_name"`
	SupplierGST     string `json:"supplier_gst"`
	SupplierContact string `json:"supplier_contact"`
	SupplierAddress string `json:"supplier_address"`

	Barcode string `json:"barcode"`
	HSNCode string `json:"hsn_code"`

	CostPrice     *float64 `json:"cost_price"`
	PurchasePrice *float64 `json:"purchase_price"`
	SellingPrice  *float64 `json:"selling_price"`
	GSTPercent    *float64 `json:"gst_percent"`

	StockQty     int `json:"stock_qty"`
	ReorderLevel int `json:"reorder_level"`
}

type UpdateItemRequest struct {
	Name       *string `json:"name"`
	CategoryID *uint   `json:"category_id"`

	Brand *string `json:"brand"`
	Model *string `json:"model"`
	Color *string `json:"color"`
	Size  *string `json:"size"`

	SupplierName    *string `json:"supplier_name"`
	SupplierGST     *string `json:"supplier_gst"`
	SupplierContact *string `json:"supplier_contact"`
	SupplierAddress *string `json:"supplier_address"`

	Barcode *string `json:"barcode"`
	HSNCode *string `json:"hsn_code"`

	CostPrice     *float64 `json:"cost_price"`
	PurchasePrice *float64 `json:"purchase_price"`
	SellingPrice  *float64 `json:"selling_price"`
	GSTPercent    *float64 `json:"gst_percent"`

	StockQty     *int `json:"stock_qty"`
	ReorderLevel *int `json:"reorder_level"`
}

type ItemResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	CategoryID uint   `json:"category_id"`

	Brand string `json:"brand"`
	Model string `json:"model"`
	Color string `json:"color"`
	Size  string `json:"size"`

	SupplierName    string `json:"supplier_name"`
	SupplierGST     string `json:"supplier_gst"`
	SupplierContact string `json:"supplier_contact"`
	SupplierAddress string `json:"supplier_address"`

	Barcode string `json:"barcode"`
	HSNCode string `json:"hsn_code"`

	CostPrice     *float64 `json:"cost_price"`
	PurchasePrice *float64 `json:"purchase_price"`
	SellingPrice  *float64 `json:"selling_price"`
	GSTPercent    *float64 `json:"gst_percent"`

	StockQty     int `json:"stock_qty"`
	ReorderLevel int `json:"reorder_level"`
}

func nullDecimalFromPtr(f *float64) decimal.NullDecimal {
	if f == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(*f), Valid: true}
}

func floatPtrFromNullDecimal(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	v := d.Decimal.InexactFloat64()
	return &v
}

func itemResponse(item models.Item) ItemResponse {
	return ItemResponse{
		ID:              item.ID,
		Name:            item.Name,
		CategoryID:      item.CategoryID,
		Brand:           item.Brand,
		Model:           item.Model,
		Color:           item.Color,
		Size:            item.Size,
		SupplierName:    item.SupplierName,
		SupplierGST:     item.SupplierGST,
		SupplierContact: item.SupplierContact,
		SupplierAddress: item.SupplierAddress,
		Barcode:         item.Barcode,
		HSNCode:         item.HSNCode,
		CostPrice:       floatPtrFromNullDecimal(item.CostPrice),
		PurchasePrice:   floatPtrFromNullDecimal(item.PurchasePrice),
		SellingPrice:    floatPtrFromNullDecimal(item.SellingPrice),
		GSTPercent:      floatPtrFromNullDecimal(item.GSTPercent),
		StockQty:        item.StockQty,
		ReorderLevel:    item.ReorderLevel,
	}
}

// -------------------------
// Item CRUD
// -------------------------

// POST /api/items
func CreateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if strings.TrimSpace(body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name must not be empty")
		}
		if body.StockQty < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Stock quantity must not be negative")
		}

		var cat models.Category
		if err := database.DB.First(&cat, "id = ?", body.CategoryID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Category not found")
		}

		item := models.Item{
			Name:            strings.TrimSpace(body.Name),
			CategoryID:      body.CategoryID,
			Brand:           strings.TrimSpace(body.Brand),
			Model:           strings.TrimSpace(body.Model),
			Color:           strings.TrimSpace(body.Color),
			Size:            strings.TrimSpace(body.Size),
			SupplierName:    strings.TrimSpace(body.SupplierName),
			SupplierGST:     strings.TrimSpace(body.SupplierGST),
			SupplierContact: strings.TrimSpace(body.SupplierContact),
			SupplierAddress: strings.TrimSpace(body.SupplierAddress),
			Barcode:         strings.TrimSpace(body.Barcode),
			HSNCode:         strings.TrimSpace(body.HSNCode),
			CostPrice:       nullDecimalFromPtr(body.CostPrice),
			PurchasePrice:   nullDecimalFromPtr(body.PurchasePrice),
			SellingPrice:    nullDecimalFromPtr(body.SellingPrice),
			GSTPercent:      nullDecimalFromPtr(body.GSTPercent),
			StockQty:        body.StockQty,
			ReorderLevel:    body.ReorderLevel,
		}

		if err := database.DB.Create(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create item")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "item",
				EntityID:    item.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Item created: %s", item.Name),
				After:       itemResponse(item),
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.Status(fiber.StatusCreated).JSON(itemResponse(item))
	}
}

// GET /api/items
func ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var items []models.Item
		if err := database.DB.Order("name asc").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list items")
		}

		resp := make([]ItemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, itemResponse(item))
		}

		return c.JSON(resp)
	}
}

// PUT /api/items/:id
// Only fields present in the JSON body are applied.
func UpdateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var item models.Item
		if err := database.DB.First(&item, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Item not found")
		}

		var body UpdateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		before := itemResponse(item)

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name must not be empty")
			}
			item.Name = name
		}
		if body.CategoryID != nil {
			var cat models.Category
			if err := database.DB.First(&cat, "id = ?", *body.CategoryID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Category not found")
			}
			item.CategoryID = *body.CategoryID
		}
		if body.Brand != nil {
			item.Brand = strings.TrimSpace(*body.Brand)
		}
		if body.Model != nil {
			item.Model = strings.TrimSpace(*body.Model)
		}
		if body.Color != nil {
			item.Color = strings.TrimSpace(*body.Color)
		}
		if body.Size != nil {
			item.Size = strings.TrimSpace(*body.Size)
		}
		if body.SupplierName != nil {
			item.SupplierName = strings.TrimSpace(*body.SupplierName)
		}
		if body.SupplierGST != nil {
			item.SupplierGST = strings.TrimSpace(*body.SupplierGST)
		}
		if body.SupplierContact != nil {
			item.SupplierContact = strings.TrimSpace(*body.SupplierContact)
		}
		if body.SupplierAddress != nil {
			item.SupplierAddress = strings.TrimSpace(*body.SupplierAddress)
		}
		if body.Barcode != nil {
			item.Barcode = strings.TrimSpace(*body.Barcode)
		}
		if body.HSNCode != nil {
			item.HSNCode = strings.TrimSpace(*body.HSNCode)
		}
		if body.CostPrice != nil {
			item.CostPrice = nullDecimalFromPtr(body.CostPrice)
		}
		if body.PurchasePrice != nil {
			item.PurchasePrice = nullDecimalFromPtr(body.PurchasePrice)
		}
		if body.SellingPrice != nil {
			item.SellingPrice = nullDecimalFromPtr(body.SellingPrice)
		}
		if body.GSTPercent != nil {
			item.GSTPercent = nullDecimalFromPtr(body.GSTPercent)
		}
		if body.StockQty != nil {
			if *body.StockQty < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Stock quantity must not be negative")
			}
			item.StockQty = *body.StockQty
		}
		if body.ReorderLevel != nil {
			item.ReorderLevel = *body.ReorderLevel
		}

		if err := database.DB.Save(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update item")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "item",
				EntityID:    item.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Item updated: %s", item.Name),
				Before:      before,
				After:       itemResponse(item),
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.JSON(itemResponse(item))
	}
}

// DELETE /api/items/:id
func DeleteItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var item models.Item
		if err := database.DB.First(&item, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Item not found")
		}

		var soldCount int64
		database.DB.Model(&models.SaleItem{}).Where("item_id = ?", item.ID).Count(&soldCount)
		if soldCount > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Item is referenced by past sales and cannot be deleted")
		}

		if err := database.DB.Delete(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete item")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "item",
				EntityID:    item.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Item deleted: %s", item.Name),
				Before:      itemResponse(item),
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// -------------------------
// Lookups
// -------------------------

// GET /api/items/search?q=ray
func SearchItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q is required")
		}

		pattern := "%" + q + "%"
		var items []models.Item
		if err := database.DB.
			Where("name ILIKE ? OR brand ILIKE ? OR model ILIKE ? OR barcode ILIKE ?",
				pattern, pattern, pattern, pattern).
			Limit(20).
			Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Search failed")
		}

		resp := make([]ItemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, itemResponse(item))
		}

		return c.JSON(resp)
	}
}

// GET /api/items/low-stock
func LowStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var items []models.Item
		if err := database.DB.
			Where("stock_qty <= reorder_level").
			Order("stock_qty asc").
			Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list low stock items")
		}

		resp := make([]ItemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, itemResponse(item))
		}

		return c.JSON(resp)
	}
}

// GET /api/items/barcode/:code
func ScanBarcodeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := strings.TrimSpace(c.Params("code"))
		if code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Barcode is required")
		}

		var item models.Item
		if err := database.DB.Where("barcode = ?", code).First(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Item not found")
		}

		return c.JSON(itemResponse(item))
	}
}
