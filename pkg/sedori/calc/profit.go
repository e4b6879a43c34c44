package calc

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProfitResult holds derived profit figures for one sale
// 販売1件分の利益計算結果
type ProfitResult struct {
	TotalSellingPrice float64 `json:"total_selling_price"` // 販売総額
	AllocatedCost     float64 `json:"allocated_cost"`      // 按分仕入原価
	SuppliesShare     float64 `json:"supplies_share"`      // 按分消耗品費
	CashProfit        float64 `json:"cash_profit"`         // 現金利益
	PointsValue       float64 `json:"points_value"`        // ポイント価値
	TotalProfit       float64 `json:"total_profit"`        // 総利益
	ActualCashSpent   float64 `json:"actual_cash_spent"`   // 実質現金支出
	ROI               float64 `json:"roi"`                 // ROI(%)
}

// WholeSaleInput describes a transaction sold in one shot
type WholeSaleInput struct {
	SellingPrice float64
	PlatformFee  float64
	ShippingFee  float64
	PurchaseCost float64
	PointPaid    float64
	Grants       []PointGrant
	Rates        RateTable
}

// PartialSaleInput describes one sales event against a multi-unit transaction
type PartialSaleInput struct {
	PurchaseCost        float64
	PointPaid           float64
	Quantity            int
	QuantitySold        int
	SellingPricePerUnit float64
	PlatformFee         float64
	ShippingFee         float64
	TransactionDate     time.Time
	Grants              []PointGrant
	Rates               RateTable
	Supplies            *SuppliesAllocator // nilは消耗品費なし
}

// WholeSaleProfit computes profit and ROI for a transaction sold at once
// 一括販売時の利益とROIを計算
func WholeSaleProfit(in WholeSaleInput) ProfitResult {
	selling := dec(in.SellingPrice)
	cost := dec(in.PurchaseCost)

	cash := selling.Sub(dec(in.PlatformFee)).Sub(dec(in.ShippingFee)).Sub(cost)
	points := totalPointsValue(in.Grants, in.Rates, decimal.NewFromInt(1))
	total := cash.Add(points)
	spent := cost.Sub(dec(in.PointPaid))

	return ProfitResult{
		TotalSellingPrice: out(selling),
		AllocatedCost:     out(cost),
		CashProfit:        out(cash),
		PointsValue:       out(points),
		TotalProfit:       out(total),
		ActualCashSpent:   out(spent),
		ROI:               out(roi(total, spent)),
	}
}

// PartialSaleProfit computes profit and ROI for one partial/batch sale.
// Purchase cost and point grants are attributed by quantitySold/quantity; the
// supplies share is added to both cost and cash basis.
// 分割販売時の利益とROIを計算
func PartialSaleProfit(in PartialSaleInput) ProfitResult {
	qty := decimal.NewFromInt(int64(in.Quantity))
	sold := decimal.NewFromInt(int64(in.QuantitySold))
	cost := dec(in.PurchaseCost)

	allocated := ratio(cost, qty).Mul(sold)
	supplies := in.Supplies.share(in.TransactionDate)
	selling := dec(in.SellingPricePerUnit).Mul(sold)

	cash := selling.Sub(allocated).Sub(dec(in.PlatformFee)).Sub(dec(in.ShippingFee)).Sub(supplies)
	share := ratio(sold, qty)
	points := totalPointsValue(in.Grants, in.Rates, share)
	total := cash.Add(points)
	spent := cost.Sub(dec(in.PointPaid)).Mul(share).Add(supplies)

	return ProfitResult{
		TotalSellingPrice: out(selling),
		AllocatedCost:     out(allocated),
		SuppliesShare:     out(supplies),
		CashProfit:        out(cash),
		PointsValue:       out(points),
		TotalProfit:       out(total),
		ActualCashSpent:   out(spent),
		ROI:               out(roi(total, spent)),
	}
}

// ROI returns totalProfit / actualCashSpent × 100, or 0 when the cash basis is not positive
func ROI(totalProfit, actualCashSpent float64) float64 {
	return out(roi(dec(totalProfit), dec(actualCashSpent)))
}

func roi(total, spent decimal.Decimal) decimal.Decimal {
	return ratio(total, spent).Mul(hundred)
}

// Aggregation summarises all sales records of one transaction
// 取引単位の集計結果
type Aggregation struct {
	TotalProfit float64 `json:"total_profit"`
	ROI         float64 `json:"roi"`
	Count       int     `json:"count"`
}

// Aggregate sums TotalProfit and takes the unweighted mean of ROI across results.
// Each record counts once regardless of quantity or profit size.
// 利益は合計、ROIは単純平均（数量加重なし）
func Aggregate(results []ProfitResult) Aggregation {
	if len(results) == 0 {
		return Aggregation{}
	}

	profit := decimal.Zero
	rois := decimal.Zero
	for _, r := range results {
		profit = profit.Add(dec(r.TotalProfit))
		rois = rois.Add(dec(r.ROI))
	}

	return Aggregation{
		TotalProfit: out(profit),
		ROI:         out(rois.Div(decimal.NewFromInt(int64(len(results))))),
		Count:       len(results),
	}
}
