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
	ErrSaleNotFound      = errors.New("sale not found")
	ErrInvalidReturnItem = errors.New("item was not part of this sale")
	ErrReturnExceedsSold = errors.New("return exceeds sold quantity")
)

type ReturnLineInput struct {
	ItemID uint
	Qty    int
}

type ReturnInput struct {
	SaleID uint
	Lines  []ReturnLineInput
	Method string
}

type ReturnResult struct {
	Refund decimal.Decimal
	Status string
	Time   time.Time
}

// ProcessReturn restores stock for the returned lines and records the
// refund as a negative payment so the sale ledger still reconciles.
// The sold-quantity check is cumulative: returns across multiple calls
// can never exceed what the line originally sold.
func ProcessReturn(db *gorm.DB, input ReturnInput) (*ReturnResult, error) {
	if len(input.Lines) == 0 {
		return nil, ErrEmptySale
	}

	method := input.Method
	if method == "" {
		method = models.DefaultPaymentMethod
	}

	var result ReturnResult

	err := db.Transaction(func(tx *gorm.DB) error {
		var sale models.Sale
		if err := tx.First(&sale, "id = ?", input.SaleID).Error; err != nil {
			return ErrSaleNotFound
		}

		refund := decimal.Zero

		for _, line := range input.Lines {
			if line.Qty <= 0 {
				return fmt.Errorf("%w: item %d", ErrInvalidQty, line.ItemID)
			}

			var saleItem models.SaleItem
			if err := tx.Where("sale_id = ? AND item_id = ?", input.SaleID, line.ItemID).
				First(&saleItem).Error; err != nil {
				return fmt.Errorf("%w: id %d", ErrInvalidReturnItem, line.ItemID)
			}

			remaining := saleItem.Qty - saleItem.ReturnedQty
			if line.Qty > remaining {
				return fmt.Errorf("%w: item %d (sold %d, already returned %d)",
					ErrReturnExceedsSold, line.ItemID, saleItem.Qty, saleItem.ReturnedQty)
			}

			var item models.Item
			if err := database.LockForUpdate(tx).
				First(&item, "id = ?", line.ItemID).Error; err != nil {
				return fmt.Errorf("%w: id %d", ErrItemNotFound, line.ItemID)
			}

			if err := tx.Model(&models.Item{}).Where("id = ?", item.ID).
				Update("stock_qty", item.StockQty+line.Qty).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.SaleItem{}).Where("id = ?", saleItem.ID).
				Update("returned_qty", saleItem.ReturnedQty+line.Qty).Error; err != nil {
				return err
			}

			movement := models.StockMovement{
				ItemID:       item.ID,
				ChangeQty:    line.Qty,
				MovementType: models.MovementReturn,
				ReferenceID:  sale.ID,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}

			// Refund is price-only. Tax is not adjusted here.
			refund = refund.Add(saleItem.Price.Mul(decimal.NewFromInt(int64(line.Qty))))
		}

		status := models.SaleStatusPartialReturn
		if refund.Equal(sale.Total) {
			status = models.SaleStatusFullReturn
		}

		if err := tx.Model(&models.Sale{}).Where("id = ?", sale.ID).
			Update("status", status).Error; err != nil {
			return err
		}

		if refund.IsPositive() {
			payment := models.Payment{
				SaleID:    sale.ID,
				Amount:    refund.Neg(),
				Method:    method,
				ReceiptNo: uuid.NewString(),
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		}

		result = ReturnResult{
			Refund: refund,
			Status: status,
			Time:   time.Now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// DeliverSale settles the outstanding balance and marks the sale
// delivered. Calling it on an already delivered sale changes nothing.
func DeliverSale(db *gorm.DB, saleID uint, mode string) (*models.Sale, error) {
	if mode == "" {
		mode = models.DefaultPaymentMethod
	}

	var sale models.Sale

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sale, "id = ?", saleID).Error; err != nil {
			return ErrSaleNotFound
		}

		if sale.DeliveryStatus == models.DeliveryStatusDelivered {
			return nil
		}

		now := time.Now()
		bal := sale.BalanceAmount

		if bal.IsPositive() {
			payment := models.Payment{
				SaleID:    sale.ID,
				Amount:    bal,
				Method:    mode,
				ReceiptNo: uuid.NewString(),
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
		}

		sale.Paid = sale.Paid.Add(bal)
		sale.Balance = decimal.Zero
		sale.BalanceAmount = decimal.Zero
		sale.BalancePaymentMode = &mode
		sale.BalancePaymentDate = &now
		sale.PaymentStatus = models.PaymentStatusPaid
		sale.DeliveryStatus = models.DeliveryStatusDelivered

		return tx.Save(&sale).Error
	})
	if err != nil {
		return nil, err
	}

	return &sale, nil
}
