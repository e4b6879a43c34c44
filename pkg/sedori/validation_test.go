package sedori

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidatePaymentBreakdown(t *testing.T) {
	tests := []struct {
		name                 string
		total, card, pt, bal float64
		wantErr              bool
	}{
		{"一致", 3000, 2000, 500, 500, false},
		{"許容誤差内", 1000, 333.33, 333.33, 333.33, false},
		{"端数の加算誤差", 0.3, 0.1, 0.2, 0, false},
		{"不足", 3000, 2000, 500, 400, true},
		{"超過", 3000, 3000, 0.02, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePaymentBreakdown(tt.total, tt.card, tt.pt, tt.bal)
			if tt.wantErr {
				var ruleErr *BusinessRuleError
				assert.ErrorAs(t, err, &ruleErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTransaction(t *testing.T) {
	valid := func() *Transaction {
		tx := sampleTransaction()
		tx.ID = ""
		return tx
	}

	assert.NoError(t, ValidateTransaction(valid()))

	tests := []struct {
		name   string
		mutate func(*Transaction)
		field  string
	}{
		{"商品名なし", func(tx *Transaction) { tx.ProductName = "  " }, "product_name"},
		{"数量0", func(tx *Transaction) { tx.Quantity = 0 }, "quantity"},
		{"販売済み超過", func(tx *Transaction) { tx.QuantitySold = 5 }, "quantity_sold"},
		{"仕入日なし", func(tx *Transaction) { tx.PurchaseDate = time.Time{} }, "purchase_date"},
		{"負の金額", func(tx *Transaction) { tx.ExtraPoints = -1 }, "extra_points"},
		{"NaN", func(tx *Transaction) { tx.CardPoints = math.NaN() }, "card_points"},
		{"カード支払に支払方法なし", func(tx *Transaction) { tx.BalancePaid = 0; tx.CardPaid = 8000 }, "payment_method_id"},
		{"無効なステータス", func(tx *Transaction) { tx.Status = "lost" }, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := valid()
			tt.mutate(tx)
			var validationErr *ValidationError
			if assert.ErrorAs(t, ValidateTransaction(tx), &validationErr) {
				assert.Equal(t, tt.field, validationErr.Field)
			}
		})
	}
}

func TestValidateSaleInput(t *testing.T) {
	base := SaleInput{QuantitySold: 1, SellingPricePerUnit: 1000, SaleDate: jan(20)}
	assert.NoError(t, ValidateSaleInput(base, 1))

	over := base
	over.QuantitySold = 3
	assert.True(t, errors.Is(ValidateSaleInput(over, 2), ErrInsufficientStock))

	tests := []struct {
		name   string
		mutate func(*SaleInput)
		field  string
	}{
		{"数量0", func(in *SaleInput) { in.QuantitySold = 0 }, "quantity_sold"},
		{"販売単価0", func(in *SaleInput) { in.SellingPricePerUnit = 0 }, "selling_price_per_unit"},
		{"手数料が負", func(in *SaleInput) { in.PlatformFee = -10 }, "platform_fee"},
		{"送料がNaN", func(in *SaleInput) { in.ShippingFee = math.NaN() }, "shipping_fee"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			var validationErr *ValidationError
			if assert.ErrorAs(t, ValidateSaleInput(in, 10), &validationErr) {
				assert.Equal(t, tt.field, validationErr.Field)
			}
		})
	}
}

func TestValidateReferenceData(t *testing.T) {
	rate := -0.5
	assert.Error(t, ValidatePointsPlatform(&PointsPlatform{Name: "P", YenConversionRate: &rate}))
	assert.NoError(t, ValidatePointsPlatform(&PointsPlatform{Name: "P"}))

	assert.Error(t, ValidateBankAccount(&BankAccount{Name: "口座", Type: "crypto"}))
	assert.NoError(t, ValidateBankAccount(&BankAccount{Name: "口座", Type: AccountBank, Balance: -100}))

	assert.Error(t, ValidateCoupon(&Coupon{Name: "券", DiscountAmount: 100}))
	assert.NoError(t, ValidateCoupon(&Coupon{Name: "券", DiscountAmount: 100, ExpiryDate: jan(31)}))

	assert.Error(t, ValidateSuppliesCost(&SuppliesCost{ItemName: "梱包材", Amount: 100}))
	assert.Error(t, ValidatePaymentMethod(&PaymentMethod{Name: "カード", Type: PaymentCreditCard, PointRate: 1.5}))

	assert.NoError(t, ValidateID("id", NewID()))
	assert.Error(t, ValidateID("id", "not-a-uuid"))
}
