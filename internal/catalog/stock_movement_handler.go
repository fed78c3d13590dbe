package catalog

import (
	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type StockMovementResponse struct {
	ID           uint   `json:"id"`
	ItemID       uint   `json:"item_id"`
	ChangeQty    int    `json:"change_qty"`
	MovementType string `json:"movement_type"`
	ReferenceID  uint   `json:"reference_id"`
	CreatedAt    string `json:"created_at"`
}

// GET /api/stock-movements?item_id=3
func ListStockMovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.StockMovement{}).Order("id desc")
		if itemID := c.QueryInt("item_id"); itemID > 0 {
			q = q.Where("item_id = ?", itemID)
		}

		var movements []models.StockMovement
		if err := q.Limit(200).Find(&movements).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list stock movements")
		}

		resp := make([]StockMovementResponse, 0, len(movements))
		for _, m := range movements {
			resp = append(resp, StockMovementResponse{
				ID:           m.ID,
				ItemID:       m.ItemID,
				ChangeQty:    m.ChangeQty,
				MovementType: m.MovementType,
				ReferenceID:  m.ReferenceID,
				CreatedAt:    m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}

		return c.JSON(resp)
	}
}
