package audit

import (
	"strconv"

	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/audit-logs?entity_type=sale&limit=50
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := 100
		if ls := c.Query("limit"); ls != "" {
			if v, err := strconv.Atoi(ls); err == nil && v > 0 && v <= 500 {
				limit = v
			}
		}

		q := database.DB.Model(&models.AuditLog{}).Order("id desc").Limit(limit)
		if et := c.Query("entity_type"); et != "" {
			q = q.Where("entity_type = ?", et)
		}

		var logs []models.AuditLog
		if err := q.Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list audit logs")
		}

		return c.JSON(logs)
	}
}
