package dashboard

import (
	"fmt"
	"sort"
	"time"

	"optipos-backend/internal/database"

	"github.com/gofiber/fiber/v2"
)

type SalesChartPoint struct {
	Label string  `json:"label"`
	Cash  float64 `json:"cash"`
	Card  float64 `json:"card"`
	UPI   float64 `json:"upi"`
	Other float64 `json:"other"`
	Total float64 `json:"total"`
}

type SalesChartTotals struct {
	Cash  float64 `json:"cash"`
	Card  float64 `json:"card"`
	UPI   float64 `json:"upi"`
	Other float64 `json:"other"`
	Total float64 `json:"total"`
}

type SalesChartResponse struct {
	Period      string            `json:"period"` // daily | weekly | monthly
	From        string            `json:"from"`
	To          string            `json:"to"`
	Points      []SalesChartPoint `json:"points"`
	GrandTotals SalesChartTotals  `json:"grand_totals"`
}

// GET /api/dashboard/sales-chart?period=daily&count=7
// Buckets collected payments by method. Refund rows carry negative
// amounts, so returned money subtracts from the bucket it was paid in.
func SalesChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		period := c.Query("period", "daily")
		countStr := c.Query("count", "")

		var count int
		if countStr == "" {
			switch period {
			case "weekly":
				count = 8
			case "monthly":
				count = 12
			default:
				period = "daily"
				count = 7
			}
		} else {
			if _, err := fmt.Sscan(countStr, &count); err != nil || count <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "count must be a positive number")
			}
		}

		now := time.Now()
		loc := now.Location()
		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		var start time.Time

		switch period {
		case "weekly":
			start = end.AddDate(0, 0, -7*(count-1))
		case "monthly":
			end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
			start = end.AddDate(0, -(count - 1), 0)
		default:
			period = "daily"
			start = end.AddDate(0, 0, -(count - 1))
		}

		type row struct {
			Bucket time.Time `gorm:"column:bucket"`
			Method string    `gorm:"column:method"`
			Total  float64   `gorm:"column:total"`
		}
		var rows []row

		var sql string
		switch period {
		case "weekly":
			sql = `
				SELECT date_trunc('week', created_at)::date AS bucket,
					   method,
					   SUM(amount) AS total
				FROM payments
				WHERE created_at >= ? AND created_at < ?
				GROUP BY bucket, method
				ORDER BY bucket ASC;
			`
		case "monthly":
			sql = `
				SELECT date_trunc('month', created_at)::date AS bucket,
					   method,
					   SUM(amount) AS total
				FROM payments
				WHERE created_at >= ? AND created_at < ?
				GROUP BY bucket, method
				ORDER BY bucket ASC;
			`
		default:
			sql = `
				SELECT created_at::date AS bucket,
					   method,
					   SUM(amount) AS total
				FROM payments
				WHERE created_at >= ? AND created_at < ?
				GROUP BY bucket, method
				ORDER BY bucket ASC;
			`
		}

		queryEnd := end.AddDate(0, 0, 1)
		if period == "monthly" {
			queryEnd = start.AddDate(0, count, 0)
		}

		if err := database.DB.Raw(sql, start, queryEnd).Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not aggregate payments")
		}

		type bucketAgg struct {
			Bucket time.Time
			Cash   float64
			Card   float64
			UPI    float64
			Other  float64
		}

		buckets := make(map[time.Time]*bucketAgg)
		for _, r := range rows {
			agg, ok := buckets[r.Bucket]
			if !ok {
				agg = &bucketAgg{Bucket: r.Bucket}
				buckets[r.Bucket] = agg
			}

			switch r.Method {
			case "CASH":
				agg.Cash += r.Total
			case "CARD":
				agg.Card += r.Total
			case "UPI":
				agg.UPI += r.Total
			default:
				agg.Other += r.Total
			}
		}

		ordered := make([]bucketAgg, 0, len(buckets))
		for _, v := range buckets {
			ordered = append(ordered, *v)
		}
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].Bucket.Before(ordered[j].Bucket)
		})

		points := make([]SalesChartPoint, 0, len(ordered))
		grand := SalesChartTotals{}

		for _, b := range ordered {
			total := b.Cash + b.Card + b.UPI + b.Other
			points = append(points, SalesChartPoint{
				Label: b.Bucket.Format("2006-01-02"),
				Cash:  b.Cash,
				Card:  b.Card,
				UPI:   b.UPI,
				Other: b.Other,
				Total: total,
			})

			grand.Cash += b.Cash
			grand.Card += b.Card
			grand.UPI += b.UPI
			grand.Other += b.Other
			grand.Total += total
		}

		return c.JSON(SalesChartResponse{
			Period:      period,
			From:        start.Format("2006-01-02"),
			To:          end.Format("2006-01-02"),
			Points:      points,
			GrandTotals: grand,
		})
	}
}
