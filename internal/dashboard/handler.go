package dashboard

import (
	"time"

	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SummaryResponse struct {
	SalesToday        float64 `json:"sales_today"`
	SalesCount        int64   `json:"sales_count"`
	LowStockItems     int64   `json:"low_stock_items"`
	PendingLensOrders int64   `json:"pending_lens_orders"`
	ReadyOrders       int64   `json:"ready_orders"`
	PurchaseToday     float64 `json:"purchase_today"`
}

// GET /api/dashboard
func SummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := time.Now()
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		dayEnd := dayStart.AddDate(0, 0, 1)

		var resp SummaryResponse

		var salesToday *float64
		if err := database.DB.Model(&models.Sale{}).
			Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
			Select("SUM(total)").Scan(&salesToday).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load dashboard")
		}
		if salesToday != nil {
			resp.SalesToday = *salesToday
		}

		database.DB.Model(&models.Sale{}).
			Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
			Count(&resp.SalesCount)

		database.DB.Model(&models.Item{}).
			Where("stock_qty <= reorder_level").
			Count(&resp.LowStockItems)

		database.DB.Model(&models.LensOrder{}).
			Where("status <> ?", models.LensStatusDelivered).
			Count(&resp.PendingLensOrders)

		database.DB.Model(&models.LensOrder{}).
			Where("status = ?", models.LensStatusReady).
			Count(&resp.ReadyOrders)

		var purchaseToday *float64
		database.DB.Model(&models.Purchase{}).
			Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
			Select("SUM(total)").Scan(&purchaseToday)
		if purchaseToday != nil {
			resp.PurchaseToday = *purchaseToday
		}

		return c.JSON(resp)
	}
}
