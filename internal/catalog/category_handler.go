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
)

// -------------------------
// Request/Response Types
// -------------------------

type CreateCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type CategoryResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

func categoryResponse(cat models.Category) CategoryResponse {
	return CategoryResponse{
		ID:          cat.ID,
		Name:        cat.Name,
		Description: cat.Description,
		CreatedAt:   cat.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// -------------------------
// Category CRUD
// -------------------------

// POST /api/categories
func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if strings.TrimSpace(body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name must not be empty")
		}

		cat := models.Category{
			Name:        strings.TrimSpace(body.Name),
			Description: strings.TrimSpace(body.Description),
		}

		if err := database.DB.Create(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create category")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "category",
				EntityID:    cat.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Category created: %s", cat.Name),
				After:       cat,
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.Status(fiber.StatusCreated).JSON(categoryResponse(cat))
	}
}

// GET /api/categories
func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cats []models.Category
		if err := database.DB.Order("name asc").Find(&cats).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list categories")
		}

		resp := make([]CategoryResponse, 0, len(cats))
		for _, cat := range cats {
			resp = append(resp, categoryResponse(cat))
		}

		return c.JSON(resp)
	}
}

// PUT /api/categories/:id
func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var cat models.Category
		if err := database.DB.First(&cat, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Category not found")
		}

		var body UpdateCategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		before := cat

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name must not be empty")
			}
			cat.Name = name
		}
		if body.Description != nil {
			cat.Description = strings.TrimSpace(*body.Description)
		}

		if err := database.DB.Save(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update category")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "category",
				EntityID:    cat.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Category updated: %s", cat.Name),
				Before:      before,
				After:       cat,
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.JSON(categoryResponse(cat))
	}
}

// DELETE /api/categories/:id
func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var cat models.Category
		if err := database.DB.First(&cat, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Category not found")
		}

		var itemCount int64
		database.DB.Model(&models.Item{}).Where("category_id = ?", cat.ID).Count(&itemCount)
		if itemCount > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Category still has items assigned")
		}

		if err := database.DB.Delete(&cat).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete category")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			if logErr := audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "category",
				EntityID:    cat.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Category deleted: %s", cat.Name),
				Before:      cat,
			}); logErr != nil {
				config.Logger().WithError(logErr).Warn("audit log write failed")
			}
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
