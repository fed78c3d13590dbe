package sales

import (
	"errors"
	"fmt"
	"time"

	"optipos-backend/internal/database"
	"optipos-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrEmptySale         = errors.New("sale has no items")
	ErrInvalidQty        = errors.New("quantity must be positive")
	ErrItemNotFound      = errors.New("item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type SaleLineInput struct {
	ItemID uint
	Qty    int
	// Price overrides the item's selling price when set.
	Price *decimal.Decimal
}

type CreateSaleInput struct {
	CustomerID    *uint
	CustomerName  string
	CustomerPhone string

	Lines []SaleLineInput

	PaymentMethod      *string
	PaymentAmount      *decimal.Decimal
	AdvanceAmount      *decimal.Decimal
	AdvancePaymentMode *string

	CreatedBy uint
}

var hundred = decimal.NewFromInt(100)

// CreateSale books one checkout atomically: per line it locks the item
// row, verifies stock, snapshots price and GST, decrements stock and
// appends a SALE movement. Any failing line rolls back the whole call.
func CreateSale(db *gorm.DB, input CreateSaleInput) (*models.Sale, error) {
	if len(input.Lines) == 0 {
		return nil, ErrEmptySale
	}

	var sale models.Sale

	err := db.Transaction(func(tx *gorm.DB) error {
		sale = models.Sale{
			CustomerID:    input.CustomerID,
			CustomerName:  input.CustomerName,
			CustomerPhone: input.CustomerPhone,
			Status:        models.SaleStatusCompleted,
			CreatedBy:     input.CreatedBy,
		}
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}

		total := decimal.Zero

		for _, line := range input.Lines {
			if line.Qty <= 0 {
				return fmt.Errorf("%w: item %d", ErrInvalidQty, line.ItemID)
			}

			var item models.Item
			if err := database.LockForUpdate(tx).
				First(&item, "id = ?", line.ItemID).Error; err != nil {
				return fmt.Errorf("%w: id %d", ErrItemNotFound, line.ItemID)
			}

			if item.StockQty < line.Qty {
				return fmt.Errorf("%w: %s (have %d, want %d)",
					ErrInsufficientStock, item.Name, item.StockQty, line.Qty)
			}

			price := decimal.Zero
			if line.Price != nil {
				price = *line.Price
			} else if item.SellingPrice.Valid {
				price = item.SellingPrice.Decimal
			}

			qty := decimal.NewFromInt(int64(line.Qty))
			taxable := price.Mul(qty).Round(2)

			// The item's stored GST rate is authoritative.
			rate := decimal.Zero
			if item.GSTPercent.Valid {
				rate = item.GSTPercent.Decimal
			}
			gst := taxable.Mul(rate).Div(hundred).Round(2)
			half := gst.Div(decimal.NewFromInt(2)).Round(2)

			saleItem := models.SaleItem{
				SaleID:       sale.ID,
				ItemID:       item.ID,
				Qty:          line.Qty,
				Price:        price,
				GSTPercent:   decimal.NullDecimal{Decimal: rate, Valid: true},
				TaxableValue: decimal.NullDecimal{Decimal: taxable, Valid: true},
				GSTAmount:    decimal.NullDecimal{Decimal: gst, Valid: true},
				CGST:         decimal.NullDecimal{Decimal: half, Valid: true},
				SGST:         decimal.NullDecimal{Decimal: half, Valid: true},
			}
			if err := tx.Create(&saleItem).Error; err != nil {
				return err
			}

			item.StockQty -= line.Qty
			if err := tx.Model(&models.Item{}).Where("id = ?", item.ID).
				Update("stock_qty", item.StockQty).Error; err != nil {
				return err
			}

			movement := models.StockMovement{
				ItemID:       item.ID,
				ChangeQty:    -line.Qty,
				MovementType: models.MovementSale,
				ReferenceID:  sale.ID,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}

			total = total.Add(taxable).Add(gst)
		}

		// Advance falls back to the plain payment amount so both the
		// order-taking flow and the straight counter sale land in one
		// code path.
		advance := decimal.Zero
		switch {
		case input.AdvanceAmount != nil:
			advance = *input.AdvanceAmount
		case input.PaymentAmount != nil:
			advance = *input.PaymentAmount
		}

		balanceDue := total.Sub(advance)
		if balanceDue.IsNegative() {
			balanceDue = decimal.Zero
		}

		// The header pair stores the literal figures: an overpayment
		// leaves a negative balance (customer credit), it is not
		// collapsed to zero like balance_amount above.
		paid := advance
		if input.PaymentAmount != nil {
			paid = *input.PaymentAmount
		}
		headerBalance := total.Sub(paid)

		paymentStatus := models.PaymentStatusPending
		switch {
		case advance.GreaterThanOrEqual(total):
			paymentStatus = models.PaymentStatusPaid
		case advance.IsPositive():
			paymentStatus = models.PaymentStatusPartial
		}

		method := models.DefaultPaymentMethod
		switch {
		case input.AdvancePaymentMode != nil && *input.AdvancePaymentMode != "":
			method = *input.AdvancePaymentMode
		case input.PaymentMethod != nil && *input.PaymentMethod != "":
			method = *input.PaymentMethod
		}

		now := time.Now()

		sale.Total = total
		sale.Paid = paid
		sale.Balance = headerBalance
		sale.AdvanceAmount = advance
		sale.BalanceAmount = balanceDue
		sale.PaymentStatus = paymentStatus
		sale.DeliveryStatus = models.DeliveryStatusPending
		if advance.IsPositive() {
			sale.AdvancePaymentMode = &method
			sale.AdvancePaymentDate = &now
		}

		if err := tx.Save(&sale).Error; err != nil {
			return err
		}

		if paid.IsPositive() {
			payment := models.Payment{
				SaleID:    sale.ID,
				Amount:    paid,
				Method:    method,
				ReceiptNo: uuid.NewString(),
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		}

		return tx.Preload("Items.Item").Preload("Payments").First(&sale, sale.ID).Error
	})
	if err != nil {
		return nil, err
	}

	return &sale, nil
}
