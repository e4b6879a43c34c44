package sedori

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori/calc"
)

// Dashboard summarizes the current financial position
// 現在の資金状況のサマリー
type Dashboard struct {
	Date                 time.Time        `json:"date"`
	TotalBalance         float64          `json:"total_balance"`          // 有効口座の残高合計
	UpcomingPayments     float64          `json:"upcoming_payments"`      // 支払予定額
	UpcomingPaymentCount int              `json:"upcoming_payment_count"` // 支払予定件数
	WaterLevel           float64          `json:"water_level"`            // 水位(%)
	WaterStatus          calc.WaterStatus `json:"water_status"`           // 水位ステータス
	StockValue           float64          `json:"stock_value"`            // 在庫評価額（未販売分の仕入原価）
	StockUnits           int              `json:"stock_units"`            // 在庫数量
	PendingPointsValue   float64          `json:"pending_points_value"`   // 受取待ちポイント価値
	MonthlySalesCount    int              `json:"monthly_sales_count"`    // 当月販売件数
	MonthlyProfit        float64          `json:"monthly_profit"`         // 当月総利益
	ExpiringCoupons      int              `json:"expiring_coupons"`       // 期限間近のクーポン数
}

// TaxReport is the yearly income summary used for the tax return
// 確定申告用の年間収支サマリー
type TaxReport struct {
	Year          int              `json:"year"`
	Revenue       float64          `json:"revenue"`        // 売上高
	CostOfGoods   float64          `json:"cost_of_goods"`  // 売上原価（按分）
	PlatformFees  float64          `json:"platform_fees"`  // 販売手数料
	ShippingFees  float64          `json:"shipping_fees"`  // 送料
	SuppliesCost  float64          `json:"supplies_cost"`  // 消耗品費（年間合計）
	PointsValue   float64          `json:"points_value"`   // ポイント価値
	CashProfit    float64          `json:"cash_profit"`    // 現金利益
	TotalProfit   float64          `json:"total_profit"`   // 総利益
	TaxableIncome float64          `json:"taxable_income"` // 所得（売上 - 原価 - 経費）
	AverageROI    float64          `json:"average_roi"`    // 平均ROI
	SalesCount    int              `json:"sales_count"`    // 販売件数
	Months        []MonthlySummary `json:"months"`         // 月別内訳
	GeneratedAt   time.Time        `json:"generated_at"`
}

// MonthlySummary is one month of a tax report
// 月別内訳
type MonthlySummary struct {
	Month       int     `json:"month"`
	SalesCount  int     `json:"sales_count"`
	Revenue     float64 `json:"revenue"`
	CostOfGoods float64 `json:"cost_of_goods"`
	Fees        float64 `json:"fees"`
	CashProfit  float64 `json:"cash_profit"`
	TotalProfit float64 `json:"total_profit"`
}

// Reporter implements the ReportEngine interface
// ReportEngineインターフェースの実装
type Reporter struct {
	storage Storage
	tracker *TrackingManager
	cache   ReportCache
	logger  *zap.Logger
	config  *Config
	now     func() time.Time
}

var _ ReportEngine = (*Reporter)(nil)

// NewReporter creates a new report engine. cache may be nil.
// 新しいレポートエンジンを作成
func NewReporter(storage Storage, cache ReportCache, logger *zap.Logger, config *Config) *Reporter {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		storage: storage,
		tracker: NewTrackingManager(storage, logger),
		cache:   cache,
		logger:  logger,
		config:  config,
		now:     time.Now,
	}
}

// Dashboard computes balances, water level, stock value and pending points
// 残高・水位・在庫評価額・受取待ちポイントを集計
func (r *Reporter) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	accounts, err := r.storage.ListBankAccounts(ctx, true)
	if err != nil {
		return nil, NewStorageError("list_bank_accounts", "口座一覧取得に失敗しました", err)
	}
	balance := decimal.Zero
	for _, a := range accounts {
		balance = balance.Add(decimal.NewFromFloat(a.Balance))
	}

	payments, err := r.tracker.UpcomingPayments(ctx, now, r.config.PaymentWindow)
	if err != nil {
		return nil, err
	}
	upcoming := TotalUpcoming(payments)

	status := StatusInStock
	stock, err := r.storage.ListTransactions(ctx, TransactionFilter{Status: &status})
	if err != nil {
		return nil, NewStorageError("list_transactions", "取引一覧取得に失敗しました", err)
	}
	stockValue, stockUnits := StockValue(stock)

	pending, err := r.tracker.PendingPoints(ctx)
	if err != nil {
		return nil, err
	}

	coupons, err := r.tracker.ExpiringCoupons(ctx, now, r.config.CouponWindow)
	if err != nil {
		return nil, err
	}

	from, to := monthRange(now)
	records, err := r.storage.ListSalesRecordsByDateRange(ctx, from, to)
	if err != nil {
		return nil, NewStorageError("list_sales_records", "販売記録取得に失敗しました", err)
	}
	monthlyProfit := decimal.Zero
	for _, rec := range records {
		monthlyProfit = monthlyProfit.Add(decimal.NewFromFloat(rec.TotalProfit))
	}

	level := calc.WaterLevel(balance.InexactFloat64(), upcoming)
	d := &Dashboard{
		Date:                 now,
		TotalBalance:         balance.InexactFloat64(),
		UpcomingPayments:     upcoming,
		UpcomingPaymentCount: len(payments),
		WaterLevel:           level,
		WaterStatus:          calc.WaterLevelStatus(level),
		StockValue:           stockValue,
		StockUnits:           stockUnits,
		PendingPointsValue:   pending.TotalValue,
		MonthlySalesCount:    len(records),
		MonthlyProfit:        monthlyProfit.InexactFloat64(),
		ExpiringCoupons:      len(coupons),
	}

	if d.WaterStatus == calc.WaterDanger {
		r.logger.Warn("資金水位が危険域です",
			zap.Float64("water_level", level),
			zap.Float64("total_balance", d.TotalBalance),
			zap.Float64("upcoming_payments", upcoming),
		)
	}

	return d, nil
}

// StockValue returns the unsold share of purchase cost and the unit count
// 未販売分の仕入原価と在庫数量を返す
func StockValue(txs []Transaction) (float64, int) {
	value := decimal.Zero
	units := 0
	for i := range txs {
		tx := &txs[i]
		if tx.Status != StatusInStock || tx.Quantity <= 0 {
			continue
		}
		remaining := tx.RemainingQuantity()
		value = value.Add(decimal.NewFromFloat(tx.PurchasePriceTotal).
			Mul(decimal.NewFromInt(int64(remaining))).
			Div(decimal.NewFromInt(int64(tx.Quantity))))
		units += remaining
	}
	return value.Round(2).InexactFloat64(), units
}

// TaxReport builds the yearly report, using the cache when configured
// 年間レポートを作成（キャッシュがあれば利用）
func (r *Reporter) TaxReport(ctx context.Context, year int) (*TaxReport, error) {
	if year < 1900 || year > 9999 {
		return nil, NewValidationError("year", "年が範囲外です", fmt.Sprintf("%d", year))
	}

	if r.cache != nil {
		report, ok, err := r.cache.GetTaxReport(ctx, year)
		if err != nil {
			r.logger.Warn("レポートキャッシュの取得に失敗しました", zap.Int("year", year), zap.Error(err))
		} else if ok {
			r.logger.Debug("レポートキャッシュヒット", zap.Int("year", year))
			return report, nil
		}
	}

	// ロックは取得できなくても作成を続行する
	if locker, ok := r.cache.(ReportLocker); ok {
		release, err := locker.LockTaxReport(ctx, year)
		if err != nil {
			r.logger.Warn("レポートロックを取得できませんでした", zap.Int("year", year), zap.Error(err))
		} else {
			defer release()
		}
	}

	report, err := r.buildTaxReport(ctx, year)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetTaxReport(ctx, report); err != nil {
			r.logger.Warn("レポートキャッシュの保存に失敗しました", zap.Int("year", year), zap.Error(err))
		}
	}

	r.logger.Info("確定申告レポート作成完了",
		zap.Int("year", year),
		zap.Int("sales_count", report.SalesCount),
		zap.Float64("taxable_income", report.TaxableIncome),
	)
	return report, nil
}

type monthTotals struct {
	count                                    int
	revenue, cost, fees, cashProfit, profits decimal.Decimal
}

func (r *Reporter) buildTaxReport(ctx context.Context, year int) (*TaxReport, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	records, err := r.storage.ListSalesRecordsByDateRange(ctx, from, to)
	if err != nil {
		return nil, NewStorageError("list_sales_records", "販売記録取得に失敗しました", err)
	}
	costs, err := r.storage.ListSuppliesCosts(ctx, from, to)
	if err != nil {
		return nil, NewStorageError("list_supplies_costs", "消耗品費取得に失敗しました", err)
	}

	txs := make(map[string]*Transaction)
	var months [12]monthTotals

	var (
		platformFees = decimal.Zero
		shippingFees = decimal.Zero
		pointsValue  = decimal.Zero
		results      = make([]calc.ProfitResult, 0, len(records))
	)
	for i := range records {
		rec := &records[i]
		tx, ok := txs[rec.TransactionID]
		if !ok {
			tx, err = r.storage.GetTransaction(ctx, rec.TransactionID)
			if err != nil {
				return nil, wrapStorage("get_transaction", "取引取得に失敗しました", err)
			}
			txs[rec.TransactionID] = tx
		}

		allocated := calc.PartialSaleProfit(calc.PartialSaleInput{
			PurchaseCost: tx.PurchasePriceTotal,
			Quantity:     tx.Quantity,
			QuantitySold: rec.QuantitySold,
		}).AllocatedCost

		m := &months[rec.SaleDate.Month()-1]
		m.count++
		m.revenue = m.revenue.Add(decimal.NewFromFloat(rec.Revenue()))
		m.cost = m.cost.Add(decimal.NewFromFloat(allocated))
		m.fees = m.fees.Add(decimal.NewFromFloat(rec.PlatformFee)).Add(decimal.NewFromFloat(rec.ShippingFee))
		m.cashProfit = m.cashProfit.Add(decimal.NewFromFloat(rec.CashProfit))
		m.profits = m.profits.Add(decimal.NewFromFloat(rec.TotalProfit))

		platformFees = platformFees.Add(decimal.NewFromFloat(rec.PlatformFee))
		shippingFees = shippingFees.Add(decimal.NewFromFloat(rec.ShippingFee))
		pointsValue = pointsValue.Add(decimal.NewFromFloat(rec.TotalProfit).Sub(decimal.NewFromFloat(rec.CashProfit)))
		results = append(results, rec.ProfitResult())
	}

	supplies := decimal.Zero
	for _, c := range costs {
		supplies = supplies.Add(decimal.NewFromFloat(c.Amount))
	}

	report := &TaxReport{
		Year:        year,
		Months:      make([]MonthlySummary, 12),
		SalesCount:  len(records),
		GeneratedAt: r.now(),
	}
	revenue, cost, cashProfit, totalProfit := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for i, m := range months {
		report.Months[i] = MonthlySummary{
			Month:       i + 1,
			SalesCount:  m.count,
			Revenue:     m.revenue.InexactFloat64(),
			CostOfGoods: m.cost.Round(2).InexactFloat64(),
			Fees:        m.fees.InexactFloat64(),
			CashProfit:  m.cashProfit.Round(2).InexactFloat64(),
			TotalProfit: m.profits.Round(2).InexactFloat64(),
		}
		revenue = revenue.Add(m.revenue)
		cost = cost.Add(m.cost)
		cashProfit = cashProfit.Add(m.cashProfit)
		totalProfit = totalProfit.Add(m.profits)
	}

	report.Revenue = revenue.InexactFloat64()
	report.CostOfGoods = cost.Round(2).InexactFloat64()
	report.PlatformFees = platformFees.InexactFloat64()
	report.ShippingFees = shippingFees.InexactFloat64()
	report.SuppliesCost = supplies.InexactFloat64()
	report.PointsValue = pointsValue.Round(2).InexactFloat64()
	report.CashProfit = cashProfit.Round(2).InexactFloat64()
	report.TotalProfit = totalProfit.Round(2).InexactFloat64()
	report.TaxableIncome = revenue.Sub(cost).Sub(platformFees).Sub(shippingFees).Sub(supplies).Round(2).InexactFloat64()
	report.AverageROI = calc.Aggregate(results).ROI

	return report, nil
}

// RenderTaxReportCSV renders the monthly breakdown and yearly totals as CSV
// 月別内訳と年間合計をCSVで出力
func RenderTaxReportCSV(report *TaxReport) ([]byte, error) {
	if report == nil {
		return nil, NewValidationError("report", "レポートが指定されていません", "")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"月", "販売件数", "売上高", "売上原価", "手数料・送料", "現金利益", "総利益"},
	}
	for _, m := range report.Months {
		rows = append(rows, []string{
			fmt.Sprintf("%d-%02d", report.Year, m.Month),
			fmt.Sprintf("%d", m.SalesCount),
			yen(m.Revenue), yen(m.CostOfGoods), yen(m.Fees), yen(m.CashProfit), yen(m.TotalProfit),
		})
	}
	rows = append(rows,
		[]string{},
		[]string{"項目", "金額"},
		[]string{"売上高", yen(report.Revenue)},
		[]string{"売上原価", yen(report.CostOfGoods)},
		[]string{"販売手数料", yen(report.PlatformFees)},
		[]string{"送料", yen(report.ShippingFees)},
		[]string{"消耗品費", yen(report.SuppliesCost)},
		[]string{"所得", yen(report.TaxableIncome)},
		[]string{"ポイント価値", yen(report.PointsValue)},
		[]string{"総利益", yen(report.TotalProfit)},
		[]string{"平均ROI", calc.FormatPercent(report.AverageROI)},
	)

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("CSV出力に失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

// yen 円単位に丸めた数値文字列
func yen(v float64) string {
	return decimal.NewFromFloat(v).Round(0).String()
}
