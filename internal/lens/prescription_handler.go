package lens

import (
	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// -------------------------
// Request/Response Types
// -------------------------

type CreatePrescriptionRequest struct {
	SaleID *uint `json:"sale_id"`

	SphereR *float64 `json:"sphere_r"`
	CylR    *float64 `json:"cyl_r"`
	AxisR   *int     `json:"axis_r"`
	AddR    *float64 `json:"add_r"`

	SphereL *float64 `json:"sphere_l"`
	CylL    *float64 `json:"cyl_l"`
	AxisL   *int     `json:"axis_l"`
	AddL    *float64 `json:"add_l"`

	PD    *float64 `json:"pd"`
	Notes string   `json:"notes"`
}

type PrescriptionResponse struct {
	ID     uint  `json:"id"`
	SaleID *uint `json:"sale_id"`

	SphereR *float64 `json:"sphere_r"`
	CylR    *float64 `json:"cyl_r"`
	AxisR   *int     `json:"axis_r"`
	AddR    *float64 `json:"add_r"`

	SphereL *float64 `json:"sphere_l"`
	CylL    *float64 `json:"cyl_l"`
	AxisL   *int     `json:"axis_l"`
	AddL    *float64 `json:"add_l"`

	PD        *float64 `json:"pd"`
	Notes     string   `json:"notes"`
	CreatedAt string   `json:"created_at"`
}

func measure(f *float64) decimal.NullDecimal {
	if f == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(*f), Valid: true}
}

func measureOut(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	v := d.Decimal.InexactFloat64()
	return &v
}

func prescriptionResponse(rx models.Prescription) PrescriptionResponse {
	return PrescriptionResponse{
		ID:        rx.ID,
		SaleID:    rx.SaleID,
		SphereR:   measureOut(rx.SphereR),
		CylR:      measureOut(rx.CylR),
		AxisR:     rx.AxisR,
		AddR:      measureOut(rx.AddR),
		SphereL:   measureOut(rx.SphereL),
		CylL:      measureOut(rx.CylL),
		AxisL:     rx.AxisL,
		AddL:      measureOut(rx.AddL),
		PD:        measureOut(rx.PD),
		Notes:     rx.Notes,
		CreatedAt: rx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// -------------------------
// Prescription endpoints
// -------------------------

// POST /api/lens/prescriptions
func CreatePrescriptionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePrescriptionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.SaleID != nil {
			var sale models.Sale
			if err := database.DB.First(&sale, "id = ?", *body.SaleID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Sale not found")
			}
		}

		rx := models.Prescription{
			SaleID:  body.SaleID,
			SphereR: measure(body.SphereR),
			CylR:    measure(body.CylR),
			AxisR:   body.AxisR,
			AddR:    measure(body.AddR),
			SphereL: measure(body.SphereL),
			CylL:    measure(body.CylL),
			AxisL:   body.AxisL,
			AddL:    measure(body.AddL),
			PD:      measure(body.PD),
			Notes:   body.Notes,
		}

		if err := database.DB.Create(&rx).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create prescription")
		}

		return c.Status(fiber.StatusCreated).JSON(prescriptionResponse(rx))
	}
}

// GET /api/lens/prescriptions/:id
func GetPrescriptionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var rx models.Prescription
		if err := database.DB.First(&rx, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Prescription not found")
		}

		return c.JSON(prescriptionResponse(rx))
	}
}
