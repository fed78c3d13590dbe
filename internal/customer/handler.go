package customer

import (
	"strings"

	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// -------------------------
// Request/Response Types
// -------------------------

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type CustomerResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	CreatedAt string `json:"created_at"`
}

func customerResponse(cust models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        cust.ID,
		Name:      cust.Name,
		Phone:     cust.Phone,
		CreatedAt: cust.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// -------------------------
// Customer endpoints
// -------------------------

// POST /api/customers
// Phone is the natural key: posting an existing phone returns the
// stored customer instead of failing, so walk-in lookup and creation
// share one call.
func CreateCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Phone = strings.TrimSpace(body.Phone)
		if body.Name == "" || body.Phone == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name and phone are required")
		}

		var existing models.Customer
		if err := database.DB.Where("phone = ?", body.Phone).First(&existing).Error; err == nil {
			return c.JSON(customerResponse(existing))
		}

		cust := models.Customer{Name: body.Name, Phone: body.Phone}
		if err := database.DB.Create(&cust).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create customer")
		}

		return c.Status(fiber.StatusCreated).JSON(customerResponse(cust))
	}
}

// GET /api/customers?q=98
func ListCustomersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.Customer{}).Order("name asc")
		if search := strings.TrimSpace(c.Query("q")); search != "" {
			pattern := "%" + search + "%"
			q = q.Where("name ILIKE ? OR phone ILIKE ?", pattern, pattern)
		}

		var customers []models.Customer
		if err := q.Limit(50).Find(&customers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list customers")
		}

		resp := make([]CustomerResponse, 0, len(customers))
		for _, cust := range customers {
			resp = append(resp, customerResponse(cust))
		}

		return c.JSON(resp)
	}
}
