package main

import (
	"time"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori"
)

const dateLayout = "2006-01-02"

// parseDate YYYY-MM-DD形式の日付を解析（UTC）
func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// TransactionRequest represents request to create or update a transaction
// 取引作成・更新リクエストを表現
type TransactionRequest struct {
	PurchaseDate          string  `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	ProductName           string  `json:"product_name" validate:"required,max=500"`
	Quantity              int     `json:"quantity" validate:"required,min=1"`
	PurchasePriceTotal    float64 `json:"purchase_price_total" validate:"gte=0"`
	CardPaid              float64 `json:"card_paid" validate:"gte=0"`
	PointPaid             float64 `json:"point_paid" validate:"gte=0"`
	BalancePaid           float64 `json:"balance_paid" validate:"gte=0"`
	PaymentMethodID       *string `json:"payment_method_id" validate:"omitempty,uuid"`
	ExpectedPoints        float64 `json:"expected_points" validate:"gte=0"`
	CardPoints            float64 `json:"card_points" validate:"gte=0"`
	ExtraPoints           float64 `json:"extra_points" validate:"gte=0"`
	PointsPlatformID      *string `json:"points_platform_id" validate:"omitempty,uuid"`
	CardPointsPlatformID  *string `json:"card_points_platform_id" validate:"omitempty,uuid"`
	ExtraPointsPlatformID *string `json:"extra_points_platform_id" validate:"omitempty,uuid"`
	PointStatus           string  `json:"point_status" validate:"omitempty,oneof=pending received expired"`
	Notes                 string  `json:"notes" validate:"max=2000"`
}

// toTransaction converts the request into a domain transaction
func (r TransactionRequest) toTransaction() (*sedori.Transaction, error) {
	purchaseDate, err := parseDate(r.PurchaseDate)
	if err != nil {
		return nil, sedori.NewValidationError("purchase_date", "日付形式が不正です", r.PurchaseDate)
	}
	return &sedori.Transaction{
		PurchaseDate:          purchaseDate,
		ProductName:           r.ProductName,
		Quantity:              r.Quantity,
		PurchasePriceTotal:    r.PurchasePriceTotal,
		CardPaid:              r.CardPaid,
		PointPaid:             r.PointPaid,
		BalancePaid:           r.BalancePaid,
		PaymentMethodID:       r.PaymentMethodID,
		ExpectedPoints:        r.ExpectedPoints,
		CardPoints:            r.CardPoints,
		ExtraPoints:           r.ExtraPoints,
		PointsPlatformID:      r.PointsPlatformID,
		CardPointsPlatformID:  r.CardPointsPlatformID,
		ExtraPointsPlatformID: r.ExtraPointsPlatformID,
		PointStatus:           sedori.PointStatus(r.PointStatus),
		Notes:                 r.Notes,
	}, nil
}

// SaleRequest represents request to record a sale
// 販売登録リクエストを表現
type SaleRequest struct {
	QuantitySold        int     `json:"quantity_sold" validate:"required,min=1"`
	SellingPricePerUnit float64 `json:"selling_price_per_unit" validate:"gt=0"`
	PlatformFee         float64 `json:"platform_fee" validate:"gte=0"`
	ShippingFee         float64 `json:"shipping_fee" validate:"gte=0"`
	SaleDate            string  `json:"sale_date" validate:"required,datetime=2006-01-02"`
	Notes               string  `json:"notes" validate:"max=2000"`
}

func (r SaleRequest) toInput() (sedori.SaleInput, error) {
	saleDate, err := parseDate(r.SaleDate)
	if err != nil {
		return sedori.SaleInput{}, sedori.NewValidationError("sale_date", "日付形式が不正です", r.SaleDate)
	}
	return sedori.SaleInput{
		QuantitySold:        r.QuantitySold,
		SellingPricePerUnit: r.SellingPricePerUnit,
		PlatformFee:         r.PlatformFee,
		ShippingFee:         r.ShippingFee,
		SaleDate:            saleDate,
		Notes:               r.Notes,
	}, nil
}

// EstimateRequest 一括販売の利益試算リクエスト
type EstimateRequest struct {
	SellingPrice float64 `json:"selling_price" validate:"gt=0"`
	PlatformFee  float64 `json:"platform_fee" validate:"gte=0"`
	ShippingFee  float64 `json:"shipping_fee" validate:"gte=0"`
}

// PointStatusRequest ポイント受取状況の更新リクエスト
type PointStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending received expired"`
}

// PaymentMethodRequest 支払方法作成リクエスト
type PaymentMethodRequest struct {
	Name             string  `json:"name" validate:"required,max=500"`
	Type             string  `json:"type" validate:"required,oneof=credit_card debit_card bank e_money other"`
	ClosingDay       *int    `json:"closing_day" validate:"omitempty,min=1,max=31"`
	PaymentDay       *int    `json:"payment_day" validate:"omitempty,min=1,max=31"`
	PaymentSameMonth bool    `json:"payment_same_month"`
	PointRate        float64 `json:"point_rate" validate:"gte=0,lte=1"`
}

// PointsPlatformRequest ポイントプラットフォーム作成リクエスト
type PointsPlatformRequest struct {
	Name              string   `json:"name" validate:"required,max=500"`
	YenConversionRate *float64 `json:"yen_conversion_rate" validate:"omitempty,gt=0"`
}

// SuppliesCostRequest 消耗品費作成リクエスト
type SuppliesCostRequest struct {
	PurchaseDate string  `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	Category     string  `json:"category" validate:"max=100"`
	ItemName     string  `json:"item_name" validate:"required,max=500"`
	Amount       float64 `json:"amount" validate:"gte=0"`
	Notes        string  `json:"notes" validate:"max=2000"`
}

// BankAccountRequest 口座作成リクエスト
type BankAccountRequest struct {
	Name    string  `json:"name" validate:"required,max=500"`
	Type    string  `json:"type" validate:"required,oneof=bank securities e_money cash"`
	Balance float64 `json:"balance"`
}

// BalanceRequest 残高更新リクエスト
type BalanceRequest struct {
	Balance *float64 `json:"balance" validate:"required"`
}

// CouponRequest クーポン作成リクエスト
type CouponRequest struct {
	Name           string  `json:"name" validate:"required,max=500"`
	DiscountAmount float64 `json:"discount_amount" validate:"gte=0"`
	ExpiryDate     string  `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	Notes          string  `json:"notes" validate:"max=2000"`
}

// PaymentDateRequest 支払予定日の計算リクエスト
type PaymentDateRequest struct {
	PurchaseDate string `json:"purchase_date" validate:"required,datetime=2006-01-02"`
	ClosingDay   int    `json:"closing_day" validate:"required,min=1,max=31"`
	PaymentDay   int    `json:"payment_day" validate:"required,min=1,max=31"`
	SameMonth    bool   `json:"same_month"`
}

// WaterLevelRequest 水位の計算リクエスト
type WaterLevelRequest struct {
	TotalBalance     float64 `json:"total_balance"`
	UpcomingPayments float64 `json:"upcoming_payments" validate:"gte=0"`
}
