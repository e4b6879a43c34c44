// Package sedori provides resale bookkeeping: purchase lots, partial sales,
// payment methods, points, supplies costs, bank balances and reports.
package sedori

import (
	"time"

	"github.com/google/uuid"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori/calc"
)

// Transaction represents one purchased lot of a product bought for resale
// 転売用に仕入れた商品ロット（仕入取引）を表現
type Transaction struct {
	ID                    string            `json:"id" db:"id"`                                             // 取引ID
	PurchaseDate          time.Time         `json:"purchase_date" db:"purchase_date"`                       // 仕入日
	ProductName           string            `json:"product_name" db:"product_name"`                         // 商品名
	Quantity              int               `json:"quantity" db:"quantity"`                                 // 仕入数量
	QuantitySold          int               `json:"quantity_sold" db:"quantity_sold"`                       // 販売済み数量
	QuantityInStock       int               `json:"quantity_in_stock" db:"quantity_in_stock"`               // 在庫数量
	PurchasePriceTotal    float64           `json:"purchase_price_total" db:"purchase_price_total"`         // 仕入総額
	CardPaid              float64           `json:"card_paid" db:"card_paid"`                               // カード支払額
	PointPaid             float64           `json:"point_paid" db:"point_paid"`                             // ポイント支払額
	BalancePaid           float64           `json:"balance_paid" db:"balance_paid"`                         // 残高支払額
	PaymentMethodID       *string           `json:"payment_method_id" db:"payment_method_id"`               // 支払方法
	PaymentDate           *time.Time        `json:"payment_date" db:"payment_date"`                         // 支払予定日
	ExpectedPoints        float64           `json:"expected_points" db:"expected_points"`                   // プラットフォーム付与ポイント
	CardPoints            float64           `json:"card_points" db:"card_points"`                           // カード付与ポイント
	ExtraPoints           float64           `json:"extra_points" db:"extra_points"`                         // 追加付与ポイント
	PointsPlatformID      *string           `json:"points_platform_id" db:"points_platform_id"`             // プラットフォームポイントの換算先
	CardPointsPlatformID  *string           `json:"card_points_platform_id" db:"card_points_platform_id"`   // カードポイントの換算先
	ExtraPointsPlatformID *string           `json:"extra_points_platform_id" db:"extra_points_platform_id"` // 追加ポイントの換算先
	Status                TransactionStatus `json:"status" db:"status"`                                     // 取引ステータス
	PointStatus           PointStatus       `json:"point_status" db:"point_status"`                         // ポイント受取状況
	AggregatedProfit      float64           `json:"aggregated_profit" db:"aggregated_profit"`               // 販売記録の総利益合計
	AggregatedROI         float64           `json:"aggregated_roi" db:"aggregated_roi"`                     // 販売記録ROIの単純平均
	Notes                 string            `json:"notes" db:"notes"`                                       // メモ
	CreatedAt             time.Time         `json:"created_at" db:"created_at"`                             // 作成日時
	UpdatedAt             time.Time         `json:"updated_at" db:"updated_at"`                             // 更新日時
}

// TransactionStatus defines the lifecycle status of a transaction
// 取引のライフサイクル状態を定義
type TransactionStatus string

const (
	StatusInStock  TransactionStatus = "in_stock" // 在庫あり
	StatusSold     TransactionStatus = "sold"     // 完売
	StatusReturned TransactionStatus = "returned" // 返品済み
)

// PointStatus defines whether promised points have arrived
// ポイント受取状況を定義
type PointStatus string

const (
	PointPending  PointStatus = "pending"  // 受取待ち
	PointReceived PointStatus = "received" // 受取済み
	PointExpired  PointStatus = "expired"  // 失効
)

// SalesRecord represents one partial or full sale against a transaction
// 取引に対する1回の販売（分割販売を含む）を表現
type SalesRecord struct {
	ID                  string    `json:"id" db:"id"`                                           // 販売記録ID
	TransactionID       string    `json:"transaction_id" db:"transaction_id"`                   // 取引ID
	QuantitySold        int       `json:"quantity_sold" db:"quantity_sold"`                     // 販売数量
	SellingPricePerUnit float64   `json:"selling_price_per_unit" db:"selling_price_per_unit"`   // 販売単価
	PlatformFee         float64   `json:"platform_fee" db:"platform_fee"`                       // 販売手数料
	ShippingFee         float64   `json:"shipping_fee" db:"shipping_fee"`                       // 送料
	SaleDate            time.Time `json:"sale_date" db:"sale_date"`                             // 販売日
	CashProfit          float64   `json:"cash_profit" db:"cash_profit"`                         // 現金利益
	TotalProfit         float64   `json:"total_profit" db:"total_profit"`                       // 総利益（ポイント込み）
	ROI                 float64   `json:"roi" db:"roi"`                                         // ROI(%)
	Notes               string    `json:"notes" db:"notes"`                                     // メモ
	CreatedAt           time.Time `json:"created_at" db:"created_at"`                           // 作成日時
}

// PaymentMethod represents a card, bank or wallet used to pay for purchases
// 仕入に使う支払方法（カード・銀行・電子マネー）を表現
type PaymentMethod struct {
	ID               string            `json:"id" db:"id"`                                 // 支払方法ID
	Name             string            `json:"name" db:"name"`                             // 名称
	Type             PaymentMethodType `json:"type" db:"type"`                             // 種別
	ClosingDay       *int              `json:"closing_day" db:"closing_day"`               // 締め日
	PaymentDay       *int              `json:"payment_day" db:"payment_day"`               // 支払日
	PaymentSameMonth bool              `json:"payment_same_month" db:"payment_same_month"` // 締め月と同月払い
	PointRate        float64           `json:"point_rate" db:"point_rate"`                 // ポイント還元率
	IsActive         bool              `json:"is_active" db:"is_active"`                   // 有効
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`                 // 作成日時
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`                 // 更新日時
}

// PaymentMethodType defines kinds of payment methods
// 支払方法の種別を定義
type PaymentMethodType string

const (
	PaymentCreditCard PaymentMethodType = "credit_card" // クレジットカード
	PaymentDebitCard  PaymentMethodType = "debit_card"  // デビットカード
	PaymentBank       PaymentMethodType = "bank"        // 銀行
	PaymentEMoney     PaymentMethodType = "e_money"     // 電子マネー
	PaymentOther      PaymentMethodType = "other"       // その他
)

// PointsPlatform represents a rewards program and its yen conversion rate
// ポイントプラットフォームと円換算レートを表現
type PointsPlatform struct {
	ID                string    `json:"id" db:"id"`                                   // プラットフォームID
	Name              string    `json:"name" db:"name"`                               // 名称
	YenConversionRate *float64  `json:"yen_conversion_rate" db:"yen_conversion_rate"` // 1ポイントの円換算（nilは1.0）
	IsActive          bool      `json:"is_active" db:"is_active"`                     // 有効
	CreatedAt         time.Time `json:"created_at" db:"created_at"`                   // 作成日時
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`                   // 更新日時
}

// SuppliesCost represents a dated operating expense not tied to a transaction
// 取引に紐付かない消耗品費（梱包材など）を表現
type SuppliesCost struct {
	ID           string    `json:"id" db:"id"`                       // 消耗品費ID
	PurchaseDate time.Time `json:"purchase_date" db:"purchase_date"` // 購入日
	Category     string    `json:"category" db:"category"`           // カテゴリ
	ItemName     string    `json:"item_name" db:"item_name"`         // 品名
	Amount       float64   `json:"amount" db:"amount"`               // 金額
	Notes        string    `json:"notes" db:"notes"`                 // メモ
	CreatedAt    time.Time `json:"created_at" db:"created_at"`       // 作成日時
}

// BankAccount represents a balance-bearing account
// 残高を持つ口座を表現
type BankAccount struct {
	ID        string          `json:"id" db:"id"`                 // 口座ID
	Name      string          `json:"name" db:"name"`             // 名称
	Type      BankAccountType `json:"type" db:"type"`             // 種別
	Balance   float64         `json:"balance" db:"balance"`       // 残高
	IsActive  bool            `json:"is_active" db:"is_active"`   // 有効
	CreatedAt time.Time       `json:"created_at" db:"created_at"` // 作成日時
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"` // 更新日時
}

// BankAccountType defines kinds of accounts
type BankAccountType string

const (
	AccountBank       BankAccountType = "bank"       // 銀行
	AccountSecurities BankAccountType = "securities" // 証券
	AccountEMoney     BankAccountType = "e_money"    // 電子マネー
	AccountCash       BankAccountType = "cash"       // 現金
)

// Coupon represents a discount coupon with an expiry date
// 有効期限付きクーポンを表現
type Coupon struct {
	ID             string    `json:"id" db:"id"`                           // クーポンID
	Name           string    `json:"name" db:"name"`                       // 名称
	DiscountAmount float64   `json:"discount_amount" db:"discount_amount"` // 割引額
	ExpiryDate     time.Time `json:"expiry_date" db:"expiry_date"`         // 有効期限
	IsUsed         bool      `json:"is_used" db:"is_used"`                 // 使用済み
	Notes          string    `json:"notes" db:"notes"`                     // メモ
	CreatedAt      time.Time `json:"created_at" db:"created_at"`           // 作成日時
}

// SaleInput carries the form values of one sales event
// 販売登録フォームの入力値
type SaleInput struct {
	QuantitySold        int       `json:"quantity_sold"`
	SellingPricePerUnit float64   `json:"selling_price_per_unit"`
	PlatformFee         float64   `json:"platform_fee"`
	ShippingFee         float64   `json:"shipping_fee"`
	SaleDate            time.Time `json:"sale_date"`
	Notes               string    `json:"notes"`
}

// TransactionFilter narrows transaction listings. From is inclusive, To exclusive.
// 取引一覧の絞り込み条件
type TransactionFilter struct {
	Status      *TransactionStatus `json:"status,omitempty"`
	PointStatus *PointStatus       `json:"point_status,omitempty"`
	From        *time.Time         `json:"from,omitempty"`
	To          *time.Time         `json:"to,omitempty"`
	Limit       int                `json:"limit,omitempty"`
	Offset      int                `json:"offset,omitempty"`
}

// TransactionDetail bundles a transaction with its sales records
// 取引詳細（販売記録付き）
type TransactionDetail struct {
	Transaction  Transaction   `json:"transaction"`
	SalesRecords []SalesRecord `json:"sales_records"`
	PointsValue  float64       `json:"points_value"`
}

// NewID generates a new record ID
// 新しいレコードIDを生成
func NewID() string {
	return uuid.New().String()
}

// RemainingQuantity returns units not yet sold
func (t *Transaction) RemainingQuantity() int {
	if t.Status == StatusReturned {
		return 0
	}
	return t.Quantity - t.QuantitySold
}

// RecalculateStock derives the in-stock quantity (quantity - sold)
// 在庫数量を再計算（仕入数量 - 販売済み数量）
func (t *Transaction) RecalculateStock() {
	t.QuantityInStock = t.RemainingQuantity()
}

// PointGrants returns the platform, card and extra point grants
// プラットフォーム・カード・追加の3種のポイント付与を返す
func (t *Transaction) PointGrants() []calc.PointGrant {
	return []calc.PointGrant{
		{Points: t.ExpectedPoints, PlatformID: deref(t.PointsPlatformID)},
		{Points: t.CardPoints, PlatformID: deref(t.CardPointsPlatformID)},
		{Points: t.ExtraPoints, PlatformID: deref(t.ExtraPointsPlatformID)},
	}
}

// PaymentTotal returns card + point + balance payments
func (t *Transaction) PaymentTotal() float64 {
	return t.CardPaid + t.PointPaid + t.BalancePaid
}

// ProfitResult returns the derived figures stored on the record
func (r *SalesRecord) ProfitResult() calc.ProfitResult {
	return calc.ProfitResult{
		CashProfit:  r.CashProfit,
		TotalProfit: r.TotalProfit,
		ROI:         r.ROI,
	}
}

// Revenue returns selling price per unit × quantity
func (r *SalesRecord) Revenue() float64 {
	return r.SellingPricePerUnit * float64(r.QuantitySold)
}

// Cycle returns the billing cycle when both closing and payment days are set
// 締め日と支払日が両方設定されている場合に支払サイクルを返す
func (p *PaymentMethod) Cycle() (calc.PaymentCycle, bool) {
	if p == nil || p.ClosingDay == nil || p.PaymentDay == nil {
		return calc.PaymentCycle{}, false
	}
	return calc.PaymentCycle{
		ClosingDay: *p.ClosingDay,
		PaymentDay: *p.PaymentDay,
		SameMonth:  p.PaymentSameMonth,
	}, true
}

// RateTableOf builds the conversion rate lookup for the calculation engine
// 計算エンジン用の換算レート表を作成
func RateTableOf(platforms []PointsPlatform) calc.RateTable {
	table := make(calc.RateTable, len(platforms))
	for _, p := range platforms {
		table[p.ID] = calc.Platform{
			ID:                p.ID,
			Name:              p.Name,
			YenConversionRate: p.YenConversionRate,
		}
	}
	return table
}

// IsExpired checks if a coupon has expired as of now
// クーポンが期限切れかチェック
func (c *Coupon) IsExpired(now time.Time) bool {
	return calc.DaysUntil(now, c.ExpiryDate) < 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
