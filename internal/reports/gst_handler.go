package reports

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"optipos-backend/internal/config"
	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type GSTRateBreakdown struct {
	GSTPercent   float64 `json:"gst_percent"`
	TaxableValue float64 `json:"taxable_value"`
	CGST         float64 `json:"cgst"`
	SGST         float64 `json:"sgst"`
	TotalGST     float64 `json:"total_gst"`
}

type GSTReport struct {
	From         string             `json:"from"`
	To           string             `json:"to"`
	TaxableValue float64            `json:"taxable_value"`
	CGST         float64            `json:"cgst"`
	SGST         float64            `json:"sgst"`
	TotalGST     float64            `json:"total_gst"`
	GrandTotal   float64            `json:"grand_total"`
	ByRate       []GSTRateBreakdown `json:"by_rate"`
}

func parseRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := now

	if fs := c.Query("from"); fs != "" {
		parsed, err := time.Parse("2006-01-02", fs)
		if err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		from = parsed
	}
	if ts := c.Query("to"); ts != "" {
		parsed, err := time.Parse("2006-01-02", ts)
		if err != nil {
			return from, to, fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		// inclusive end of day
		to = parsed.AddDate(0, 0, 1).Add(-time.Second)
	}

	return from, to, nil
}

// Aggregates the stored line snapshots, never the items' live rates.
func buildGSTReport(from, to time.Time) (*GSTReport, error) {
	var lines []models.SaleItem
	if err := database.DB.
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.created_at >= ? AND sales.created_at <= ?", from, to).
		Find(&lines).Error; err != nil {
		return nil, err
	}

	type agg struct {
		taxable decimal.Decimal
		cgst    decimal.Decimal
		sgst    decimal.Decimal
		gst     decimal.Decimal
	}

	total := agg{}
	byRate := make(map[string]*agg)
	rateKeys := make(map[string]decimal.Decimal)

	for i := range lines {
		li := &lines[i]

		taxable := decimal.Zero
		if li.TaxableValue.Valid {
			taxable = li.TaxableValue.Decimal
		}
		cgst := decimal.Zero
		if li.CGST.Valid {
			cgst = li.CGST.Decimal
		}
		sgst := decimal.Zero
		if li.SGST.Valid {
			sgst = li.SGST.Decimal
		}
		gst := decimal.Zero
		if li.GSTAmount.Valid {
			gst = li.GSTAmount.Decimal
		}

		rate := decimal.Zero
		if li.GSTPercent.Valid {
			rate = li.GSTPercent.Decimal
		}
		key := rate.StringFixed(2)

		bucket, ok := byRate[key]
		if !ok {
			bucket = &agg{}
			byRate[key] = bucket
			rateKeys[key] = rate
		}

		bucket.taxable = bucket.taxable.Add(taxable)
		bucket.cgst = bucket.cgst.Add(cgst)
		bucket.sgst = bucket.sgst.Add(sgst)
		bucket.gst = bucket.gst.Add(gst)

		total.taxable = total.taxable.Add(taxable)
		total.cgst = total.cgst.Add(cgst)
		total.sgst = total.sgst.Add(sgst)
		total.gst = total.gst.Add(gst)
	}

	report := &GSTReport{
		From:         from.Format("2006-01-02"),
		To:           to.Format("2006-01-02"),
		TaxableValue: total.taxable.InexactFloat64(),
		CGST:         total.cgst.InexactFloat64(),
		SGST:         total.sgst.InexactFloat64(),
		TotalGST:     total.gst.InexactFloat64(),
		GrandTotal:   total.taxable.Add(total.gst).InexactFloat64(),
		ByRate:       make([]GSTRateBreakdown, 0, len(byRate)),
	}

	keys := make([]string, 0, len(byRate))
	for k := range byRate {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return rateKeys[keys[i]].LessThan(rateKeys[keys[j]])
	})

	for _, k := range keys {
		b := byRate[k]
		report.ByRate = append(report.ByRate, GSTRateBreakdown{
			GSTPercent:   rateKeys[k].InexactFloat64(),
			TaxableValue: b.taxable.InexactFloat64(),
			CGST:         b.cgst.InexactFloat64(),
			SGST:         b.sgst.InexactFloat64(),
			TotalGST:     b.gst.InexactFloat64(),
		})
	}

	return report, nil
}

// GET /api/reports/gst?from=2026-08-01&to=2026-08-31
func GSTReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := parseRange(c)
		if err != nil {
			return err
		}

		report, err := buildGSTReport(from, to)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build GST report")
		}

		return c.JSON(report)
	}
}

// GET /api/reports/gst/export
func GSTExportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := parseRange(c)
		if err != nil {
			return err
		}

		report, err := buildGSTReport(from, to)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build GST report")
		}

		wb := excelize.NewFile()
		defer wb.Close()

		sheet := wb.GetSheetName(0)

		header := []any{"GST %", "Taxable Value", "CGST", "SGST", "Total GST"}
		if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not write export")
		}

		rowNum := 2
		for _, b := range report.ByRate {
			row := []any{b.GSTPercent, b.TaxableValue, b.CGST, b.SGST, b.TotalGST}
			cell := fmt.Sprintf("A%d", rowNum)
			if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not write export")
			}
			rowNum++
		}

		totals := []any{"TOTAL", report.TaxableValue, report.CGST, report.SGST, report.TotalGST}
		if err := wb.SetSheetRow(sheet, fmt.Sprintf("A%d", rowNum+1), &totals); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not write export")
		}

		var buf bytes.Buffer
		if err := wb.Write(&buf); err != nil {
			config.Logger().WithError(err).Error("gst export write failed")
			return fiber.NewError(fiber.StatusInternalServerError, "Could not write export")
		}

		filename := fmt.Sprintf("gst_report_%s_%s.xlsx", report.From, report.To)
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
		return c.Send(buf.Bytes())
	}
}
