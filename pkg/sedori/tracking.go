package sedori

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori/calc"
)

// TrackingManager handles payment, coupon and points deadline tracking
// 支払・クーポン・ポイントの期限追跡を処理
type TrackingManager struct {
	storage Storage
	logger  *zap.Logger
}

var _ TrackingService = (*TrackingManager)(nil)

// UpcomingPayment is a card payment falling due soon
// 近日中に引き落とされるカード支払
type UpcomingPayment struct {
	TransactionID   string       `json:"transaction_id"`
	ProductName     string       `json:"product_name"`
	PaymentMethodID string       `json:"payment_method_id"`
	PaymentDate     time.Time    `json:"payment_date"`
	Amount          float64      `json:"amount"`
	DaysUntil       int          `json:"days_until"`
	Urgency         calc.Urgency `json:"urgency"`
}

// CouponAlert is an unused coupon close to or past its expiry
// 期限が近い、または期限切れの未使用クーポン
type CouponAlert struct {
	Coupon    Coupon       `json:"coupon"`
	DaysUntil int          `json:"days_until"`
	Expired   bool         `json:"expired"`
	Urgency   calc.Urgency `json:"urgency"`
}

// PendingPointsItem is a transaction whose points have not arrived yet
type PendingPointsItem struct {
	TransactionID string    `json:"transaction_id"`
	ProductName   string    `json:"product_name"`
	PurchaseDate  time.Time `json:"purchase_date"`
	Points        float64   `json:"points"`
	Value         float64   `json:"value"`
}

// PendingPointsSummary totals points still waiting to be granted
// 受取待ちポイントの合計
type PendingPointsSummary struct {
	Items      []PendingPointsItem `json:"items"`
	TotalValue float64             `json:"total_value"`
}

// NewTrackingManager creates a new tracking manager
// 新しい追跡マネージャーを作成
func NewTrackingManager(storage Storage, logger *zap.Logger) *TrackingManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingManager{
		storage: storage,
		logger:  logger,
	}
}

// UpcomingPayments returns card payments due between today and today+within
// 本日から指定期間内に支払予定のカード支払を取得
func (tm *TrackingManager) UpcomingPayments(ctx context.Context, now time.Time, within time.Duration) ([]UpcomingPayment, error) {
	// 支払予定日はDATE列（UTC 0時）なので本日の暦日をUTCで表す
	year, month, day := now.Date()
	from := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	to := from.Add(within).AddDate(0, 0, 1)

	txs, err := tm.storage.ListTransactionsByPaymentDate(ctx, from, to)
	if err != nil {
		return nil, NewStorageError("list_transactions_by_payment_date", "支払予定の取得に失敗しました", err)
	}

	payments := make([]UpcomingPayment, 0, len(txs))
	for _, tx := range txs {
		if tx.Status == StatusReturned || tx.PaymentDate == nil || tx.CardPaid <= 0 {
			continue
		}
		days := calc.DaysUntil(now, *tx.PaymentDate)
		if days < 0 {
			continue
		}
		payments = append(payments, UpcomingPayment{
			TransactionID:   tx.ID,
			ProductName:     tx.ProductName,
			PaymentMethodID: deref(tx.PaymentMethodID),
			PaymentDate:     *tx.PaymentDate,
			Amount:          tx.CardPaid,
			DaysUntil:       days,
			Urgency:         calc.DeadlineUrgency(days),
		})
	}

	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].PaymentDate.Before(payments[j].PaymentDate)
	})

	tm.logger.Debug("支払予定取得",
		zap.Int("count", len(payments)),
		zap.Duration("within", within),
	)
	return payments, nil
}

// TotalUpcoming sums the amounts of upcoming payments
// 支払予定額の合計
func TotalUpcoming(payments []UpcomingPayment) float64 {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(decimal.NewFromFloat(p.Amount))
	}
	return total.InexactFloat64()
}

// ExpiringCoupons returns unused coupons expiring within the window, expired ones included
// 指定期間内に期限を迎える未使用クーポンを取得（期限切れを含む）
func (tm *TrackingManager) ExpiringCoupons(ctx context.Context, now time.Time, within time.Duration) ([]CouponAlert, error) {
	coupons, err := tm.storage.ListCoupons(ctx, false)
	if err != nil {
		return nil, NewStorageError("list_coupons", "クーポン一覧取得に失敗しました", err)
	}

	limit := int(within / (24 * time.Hour))
	alerts := make([]CouponAlert, 0)
	for _, c := range coupons {
		if c.IsUsed {
			continue
		}
		days := calc.DaysUntil(now, c.ExpiryDate)
		if days > limit {
			continue
		}
		alerts = append(alerts, CouponAlert{
			Coupon:    c,
			DaysUntil: days,
			Expired:   c.IsExpired(now),
			Urgency:   calc.UrgencyLevel(days),
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DaysUntil < alerts[j].DaysUntil
	})

	if len(alerts) > 0 {
		tm.logger.Info("期限間近のクーポンがあります", zap.Int("count", len(alerts)))
	}
	return alerts, nil
}

// PendingPoints returns transactions whose points are still pending
// ポイント受取待ちの取引とその円換算額を取得
func (tm *TrackingManager) PendingPoints(ctx context.Context) (*PendingPointsSummary, error) {
	status := PointPending
	txs, err := tm.storage.ListTransactions(ctx, TransactionFilter{PointStatus: &status})
	if err != nil {
		return nil, NewStorageError("list_transactions", "取引一覧取得に失敗しました", err)
	}
	platforms, err := tm.storage.ListPointsPlatforms(ctx)
	if err != nil {
		return nil, NewStorageError("list_points_platforms", "ポイントプラットフォーム取得に失敗しました", err)
	}
	rates := RateTableOf(platforms)

	summary := &PendingPointsSummary{Items: make([]PendingPointsItem, 0, len(txs))}
	total := decimal.Zero
	for i := range txs {
		tx := &txs[i]
		if tx.Status == StatusReturned {
			continue
		}
		points := tx.ExpectedPoints + tx.CardPoints + tx.ExtraPoints
		if points <= 0 {
			continue
		}
		value := calc.TotalPointsValue(tx.PointGrants(), rates, 1)
		summary.Items = append(summary.Items, PendingPointsItem{
			TransactionID: tx.ID,
			ProductName:   tx.ProductName,
			PurchaseDate:  tx.PurchaseDate,
			Points:        points,
			Value:         value,
		})
		total = total.Add(decimal.NewFromFloat(value))
	}
	summary.TotalValue = total.InexactFloat64()

	return summary, nil
}
