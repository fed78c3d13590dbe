package sales

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"optipos-backend/internal/config"
	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

// GenerateInvoicePDF renders a tax invoice for the sale and writes it
// under cfg.InvoicePDFPath. Returns the file path.
func GenerateInvoicePDF(cfg *config.Config, sale *models.Sale) (string, error) {
	if err := os.MkdirAll(cfg.InvoicePDFPath, 0o755); err != nil {
		return "", fmt.Errorf("could not create invoice directory: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "TAX INVOICE", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Invoice No: %d", sale.ID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s", sale.CreatedAt.Format("02-01-2006 15:04")), "", 1, "L", false, 0, "")
	if sale.CustomerName != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Customer: %s", sale.CustomerName), "", 1, "L", false, 0, "")
	}
	if sale.CustomerPhone != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Phone: %s", sale.CustomerPhone), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(60, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(15, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(25, 7, "Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(25, 7, "Taxable", "1", 0, "R", false, 0, "")
	pdf.CellFormat(20, 7, "GST %", "1", 0, "R", false, 0, "")
	pdf.CellFormat(25, 7, "GST Amt", "1", 0, "R", false, 0, "")
	pdf.CellFormat(25, 7, "Total", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 9)

	totalCGST := decimal.Zero
	totalSGST := decimal.Zero

	for i := range sale.Items {
		si := &sale.Items[i]
		name := si.Item.Name
		if name == "" {
			name = fmt.Sprintf("Item #%d", si.ItemID)
		}

		totalCGST = totalCGST.Add(si.EffectiveCGST())
		totalSGST = totalSGST.Add(si.EffectiveSGST())

		pdf.CellFormat(60, 7, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", si.Qty), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, si.Price.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, si.EffectiveTaxableValue().StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 7, si.EffectiveGSTPercent().StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, si.EffectiveGSTAmount().StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, si.TotalValue().StringFixed(2), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("CGST: %s", totalCGST.StringFixed(2)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("SGST: %s", totalSGST.StringFixed(2)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Grand Total: %s", sale.Total.StringFixed(2)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Paid: %s", sale.Paid.StringFixed(2)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Balance: %s", sale.Balance.StringFixed(2)), "", 1, "R", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "Thank you for your business", "", 1, "C", false, 0, "")

	path := filepath.Join(cfg.InvoicePDFPath, fmt.Sprintf("invoice_%d.pdf", sale.ID))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("could not write invoice pdf: %w", err)
	}

	return path, nil
}

// GET /api/sales/:id/pdf
func InvoicePDFHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var sale models.Sale
		if err := database.DB.Preload("Items.Item").Preload("Payments").
			First(&sale, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sale not found")
		}

		path, err := GenerateInvoicePDF(cfg, &sale)
		if err != nil {
			config.Logger().WithError(err).Error("invoice pdf generation failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Could not generate invoice")
		}

		return c.Download(path, fmt.Sprintf("invoice_%d.pdf", sale.ID))
	}
}

// GET /api/sales/:id/return-pdf
// Rendered in memory, nothing is kept on disk for return receipts.
func ReturnReceiptPDFHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid sale id")
		}

		var sale models.Sale
		if err := database.DB.First(&sale, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sale not found")
		}

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()

		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, "RETURN RECEIPT", "", 1, "C", false, 0, "")
		pdf.Ln(4)

		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, fmt.Sprintf("Sale ID: %d", sale.ID), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("Status: %s", sale.Status), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 7, "Refund processed", "", 1, "L", false, 0, "")
		pdf.Ln(6)
		pdf.CellFormat(0, 7, "Thank you", "", 1, "L", false, 0, "")

		var buf bytes.Buffer
		if err := pdf.Output(&buf); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not generate receipt")
		}

		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=return_%d.pdf", sale.ID))
		return c.Send(buf.Bytes())
	}
}
