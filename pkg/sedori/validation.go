package sedori

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentTolerance 支払内訳合計と仕入総額の許容誤差
const PaymentTolerance = 0.01

const (
	maxNameLength  = 500
	maxNotesLength = 2000
	maxAmount      = 999_999_999
)

// ValidateID レコードIDの形式をバリデーション
func ValidateID(field, id string) error {
	if id == "" {
		return NewValidationError(field, "IDが空です", id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return NewValidationError(field, "IDの形式が無効です", id)
	}
	return nil
}

// ValidateName 名称をバリデーション
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError(field, "名称が空です", name)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return NewValidationError(field, "名称が長すぎます", name)
	}
	return nil
}

// ValidateNotes メモをバリデーション
func ValidateNotes(notes string) error {
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return NewValidationError("notes", "メモが長すぎます", notes)
	}
	return nil
}

// ValidateAmount 金額（0以上）をバリデーション
func ValidateAmount(field string, amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return NewValidationError(field, "金額が数値ではありません", fmt.Sprintf("%v", amount))
	}
	if amount < 0 {
		return NewValidationError(field, "金額は0以上である必要があります", fmt.Sprintf("%.2f", amount))
	}
	if amount > maxAmount {
		return NewValidationError(field, "金額が有効範囲を超えています", fmt.Sprintf("%.2f", amount))
	}
	return nil
}

// ValidatePaymentBreakdown 支払内訳（カード＋ポイント＋残高）が仕入総額と一致するかバリデーション
func ValidatePaymentBreakdown(total, card, point, balance float64) error {
	sum := decimal.NewFromFloat(card).Add(decimal.NewFromFloat(point)).Add(decimal.NewFromFloat(balance))
	diff := sum.Sub(decimal.NewFromFloat(total)).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(PaymentTolerance)) {
		return NewBusinessRuleError(
			"payment_total",
			"支払内訳の合計が仕入総額と一致しません",
			fmt.Sprintf("合計=%s 仕入総額=%.2f", sum.StringFixed(2), total),
		)
	}
	return nil
}

// ValidateTransaction 取引をバリデーション
func ValidateTransaction(tx *Transaction) error {
	if tx == nil {
		return NewValidationError("transaction", "取引が指定されていません", "")
	}
	if err := ValidateName("product_name", tx.ProductName); err != nil {
		return err
	}
	if tx.Quantity < 1 {
		return NewValidationError("quantity", "数量は1以上である必要があります", fmt.Sprintf("%d", tx.Quantity))
	}
	if tx.QuantitySold < 0 || tx.QuantitySold > tx.Quantity {
		return NewValidationError("quantity_sold", "販売済み数量が範囲外です", fmt.Sprintf("%d", tx.QuantitySold))
	}
	if tx.PurchaseDate.IsZero() {
		return NewValidationError("purchase_date", "仕入日が空です", "")
	}

	amounts := []struct {
		field string
		value float64
	}{
		{"purchase_price_total", tx.PurchasePriceTotal},
		{"card_paid", tx.CardPaid},
		{"point_paid", tx.PointPaid},
		{"balance_paid", tx.BalancePaid},
		{"expected_points", tx.ExpectedPoints},
		{"card_points", tx.CardPoints},
		{"extra_points", tx.ExtraPoints},
	}
	for _, a := range amounts {
		if err := ValidateAmount(a.field, a.value); err != nil {
			return err
		}
	}

	if err := ValidatePaymentBreakdown(tx.PurchasePriceTotal, tx.CardPaid, tx.PointPaid, tx.BalancePaid); err != nil {
		return err
	}
	if tx.CardPaid > 0 && (tx.PaymentMethodID == nil || *tx.PaymentMethodID == "") {
		return NewValidationError("payment_method_id", "カード支払には支払方法が必要です", "")
	}
	if err := ValidateTransactionStatus(tx.Status); err != nil {
		return err
	}
	if err := ValidatePointStatus(tx.PointStatus); err != nil {
		return err
	}
	return ValidateNotes(tx.Notes)
}

// ValidateTransactionStatus 取引ステータスをバリデーション
func ValidateTransactionStatus(status TransactionStatus) error {
	switch status {
	case StatusInStock, StatusSold, StatusReturned:
		return nil
	}
	return NewValidationError("status", "無効な取引ステータスです", string(status))
}

// ValidatePointStatus ポイント受取状況をバリデーション
func ValidatePointStatus(status PointStatus) error {
	switch status {
	case PointPending, PointReceived, PointExpired:
		return nil
	}
	return NewValidationError("point_status", "無効なポイント受取状況です", string(status))
}

// ValidateSaleInput 販売入力をバリデーション。remainingは残り在庫数
func ValidateSaleInput(input SaleInput, remaining int) error {
	if input.QuantitySold < 1 {
		return NewValidationError("quantity_sold", "販売数量は1以上である必要があります", fmt.Sprintf("%d", input.QuantitySold))
	}
	if input.QuantitySold > remaining {
		return fmt.Errorf("%w: 販売数量=%d 残り在庫=%d", ErrInsufficientStock, input.QuantitySold, remaining)
	}
	if math.IsNaN(input.SellingPricePerUnit) || input.SellingPricePerUnit <= 0 {
		return NewValidationError("selling_price_per_unit", "販売単価は0より大きい必要があります", fmt.Sprintf("%v", input.SellingPricePerUnit))
	}
	if err := ValidateAmount("selling_price_per_unit", input.SellingPricePerUnit); err != nil {
		return err
	}
	if err := ValidateAmount("platform_fee", input.PlatformFee); err != nil {
		return err
	}
	if err := ValidateAmount("shipping_fee", input.ShippingFee); err != nil {
		return err
	}
	if input.SaleDate.IsZero() {
		return NewValidationError("sale_date", "販売日が空です", "")
	}
	return ValidateNotes(input.Notes)
}

// ValidatePaymentMethod 支払方法をバリデーション
func ValidatePaymentMethod(method *PaymentMethod) error {
	if method == nil {
		return NewValidationError("payment_method", "支払方法が指定されていません", "")
	}
	if err := ValidateName("name", method.Name); err != nil {
		return err
	}
	switch method.Type {
	case PaymentCreditCard, PaymentDebitCard, PaymentBank, PaymentEMoney, PaymentOther:
	default:
		return NewValidationError("type", "無効な支払方法種別です", string(method.Type))
	}
	if err := validateDay("closing_day", method.ClosingDay); err != nil {
		return err
	}
	if err := validateDay("payment_day", method.PaymentDay); err != nil {
		return err
	}
	if method.PointRate < 0 || method.PointRate > 1 || math.IsNaN(method.PointRate) {
		return NewValidationError("point_rate", "還元率は0から1の範囲である必要があります", fmt.Sprintf("%v", method.PointRate))
	}
	return nil
}

func validateDay(field string, day *int) error {
	if day == nil {
		return nil
	}
	if *day < 1 || *day > 31 {
		return NewValidationError(field, "日付は1から31の範囲である必要があります", fmt.Sprintf("%d", *day))
	}
	return nil
}

// ValidatePointsPlatform ポイントプラットフォームをバリデーション
func ValidatePointsPlatform(platform *PointsPlatform) error {
	if platform == nil {
		return NewValidationError("points_platform", "ポイントプラットフォームが指定されていません", "")
	}
	if err := ValidateName("name", platform.Name); err != nil {
		return err
	}
	if r := platform.YenConversionRate; r != nil && (math.IsNaN(*r) || *r < 0) {
		return NewValidationError("yen_conversion_rate", "換算レートは0以上である必要があります", fmt.Sprintf("%v", *r))
	}
	return nil
}

// ValidateSuppliesCost 消耗品費をバリデーション
func ValidateSuppliesCost(cost *SuppliesCost) error {
	if cost == nil {
		return NewValidationError("supplies_cost", "消耗品費が指定されていません", "")
	}
	if err := ValidateName("item_name", cost.ItemName); err != nil {
		return err
	}
	if cost.PurchaseDate.IsZero() {
		return NewValidationError("purchase_date", "購入日が空です", "")
	}
	if err := ValidateAmount("amount", cost.Amount); err != nil {
		return err
	}
	return ValidateNotes(cost.Notes)
}

// ValidateBankAccount 口座をバリデーション
func ValidateBankAccount(account *BankAccount) error {
	if account == nil {
		return NewValidationError("bank_account", "口座が指定されていません", "")
	}
	if err := ValidateName("name", account.Name); err != nil {
		return err
	}
	switch account.Type {
	case AccountBank, AccountSecurities, AccountEMoney, AccountCash:
	default:
		return NewValidationError("type", "無効な口座種別です", string(account.Type))
	}
	if math.IsNaN(account.Balance) || math.IsInf(account.Balance, 0) {
		return NewValidationError("balance", "残高が数値ではありません", fmt.Sprintf("%v", account.Balance))
	}
	return nil
}

// ValidateCoupon クーポンをバリデーション
func ValidateCoupon(coupon *Coupon) error {
	if coupon == nil {
		return NewValidationError("coupon", "クーポンが指定されていません", "")
	}
	if err := ValidateName("name", coupon.Name); err != nil {
		return err
	}
	if err := ValidateAmount("discount_amount", coupon.DiscountAmount); err != nil {
		return err
	}
	if coupon.ExpiryDate.IsZero() {
		return NewValidationError("expiry_date", "有効期限が空です", "")
	}
	return ValidateNotes(coupon.Notes)
}
