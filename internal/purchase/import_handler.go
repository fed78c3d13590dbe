package purchase

import (
	"strconv"
	"strings"

	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

type ImportLinePreview struct {
	Row     int      `json:"row"`
	Barcode string   `json:"barcode"`
	Name    string   `json:"name"`
	Qty     int      `json:"qty"`
	Price   float64  `json:"price"`
	ItemID  *uint    `json:"item_id"`
	Matched bool     `json:"matched"`
	Errors  []string `json:"errors,omitempty"`
}

// POST /api/purchases/import
// Parses a supplier invoice spreadsheet and matches rows against the
// item catalog. Nothing is persisted: the caller reviews the preview
// and submits a regular purchase afterwards.
//
// Expected columns: barcode | name | qty | price
func ImportPurchaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Spreadsheet file is required")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not open uploaded file")
		}
		defer file.Close()

		wb, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "File is not a valid xlsx workbook")
		}
		defer wb.Close()

		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Workbook has no sheets")
		}

		rows, err := wb.GetRows(sheets[0])
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not read sheet rows")
		}

		preview := make([]ImportLinePreview, 0)
		matched := 0

		for i, row := range rows {
			if i == 0 {
				// header row
				continue
			}

			cell := func(idx int) string {
				if idx < len(row) {
					return strings.TrimSpace(row[idx])
				}
				return ""
			}

			line := ImportLinePreview{
				Row:     i + 1,
				Barcode: cell(0),
				Name:    cell(1),
			}

			if line.Barcode == "" && line.Name == "" {
				continue
			}

			if qty, err := strconv.Atoi(cell(2)); err == nil && qty > 0 {
				line.Qty = qty
			} else {
				line.Errors = append(line.Errors, "invalid quantity")
			}

			if price, err := strconv.ParseFloat(cell(3), 64); err == nil && price >= 0 {
				line.Price = price
			} else {
				line.Errors = append(line.Errors, "invalid price")
			}

			// Barcode match wins over name match.
			var item models.Item
			found := false
			if line.Barcode != "" {
				if err := database.DB.Where("barcode = ?", line.Barcode).First(&item).Error; err == nil {
					found = true
				}
			}
			if !found && line.Name != "" {
				if err := database.DB.Where("LOWER(name) = LOWER(?)", line.Name).First(&item).Error; err == nil {
					found = true
				}
			}

			if found {
				id := item.ID
				line.ItemID = &id
				line.Matched = true
				matched++
			} else {
				line.Errors = append(line.Errors, "no matching item")
			}

			preview = append(preview, line)
		}

		return c.JSON(fiber.Map{
			"rows":    preview,
			"total":   len(preview),
			"matched": matched,
		})
	}
}
