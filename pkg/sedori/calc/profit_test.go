package calc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestPartialSaleProfit_Basic は分割販売の基本計算のテスト
func TestPartialSaleProfit_Basic(t *testing.T) {
	got := PartialSaleProfit(PartialSaleInput{
		PurchaseCost:        1000,
		PointPaid:           0,
		Quantity:            10,
		QuantitySold:        3,
		SellingPricePerUnit: 150,
		TransactionDate:     date(2024, 1, 10),
	})

	assert.InDelta(t, 300.0, got.AllocatedCost, 1e-9)
	assert.InDelta(t, 450.0, got.TotalSellingPrice, 1e-9)
	assert.InDelta(t, 150.0, got.CashProfit, 1e-9)
	assert.InDelta(t, 300.0, got.ActualCashSpent, 1e-9)
	assert.InDelta(t, 50.0, got.ROI, 1e-9)
}

// TestPartialSaleProfit_WithSuppliesAndPoints は消耗品費・ポイント込みの分割販売のテスト
func TestPartialSaleProfit_WithSuppliesAndPoints(t *testing.T) {
	supplies := NewSuppliesAllocator(
		[]DatedAmount{{Date: date(2024, 4, 1), Amount: 600}},
		[]time.Time{date(2024, 4, 2), date(2024, 4, 5), date(2024, 4, 20)},
	)

	got := PartialSaleProfit(PartialSaleInput{
		PurchaseCost:        4000,
		PointPaid:           400,
		Quantity:            4,
		QuantitySold:        2,
		SellingPricePerUnit: 2500,
		PlatformFee:         500,
		ShippingFee:         200,
		TransactionDate:     date(2024, 4, 5),
		Grants:              []PointGrant{{Points: 400, PlatformID: "rakuten"}},
		Rates:               RateTable{"rakuten": {ID: "rakuten"}},
		Supplies:            supplies,
	})

	assert.InDelta(t, 2000.0, got.AllocatedCost, 1e-9)
	assert.InDelta(t, 200.0, got.SuppliesShare, 1e-9)
	assert.InDelta(t, 2100.0, got.CashProfit, 1e-9)
	assert.InDelta(t, 200.0, got.PointsValue, 1e-9)
	assert.InDelta(t, 2300.0, got.TotalProfit, 1e-9)
	assert.InDelta(t, 2000.0, got.ActualCashSpent, 1e-9)
	assert.InDelta(t, 115.0, got.ROI, 1e-9)
}

// TestPartialSaleProfit_Degenerate はゼロ数量・不正値で NaN/Inf を返さないことのテスト
func TestPartialSaleProfit_Degenerate(t *testing.T) {
	cases := []PartialSaleInput{
		{PurchaseCost: 1000, Quantity: 0, QuantitySold: 1, SellingPricePerUnit: 100},
		{PurchaseCost: math.NaN(), Quantity: 2, QuantitySold: 1, SellingPricePerUnit: math.Inf(1)},
		{PurchaseCost: 1000, PointPaid: 1000, Quantity: 2, QuantitySold: 1, SellingPricePerUnit: 800},
	}

	for _, in := range cases {
		got := PartialSaleProfit(in)
		for _, v := range []float64{got.CashProfit, got.TotalProfit, got.ActualCashSpent, got.ROI, got.PointsValue} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
		assert.Equal(t, 0.0, got.ROI)
	}
}

// TestWholeSaleProfit は一括販売の利益計算のテスト
func TestWholeSaleProfit(t *testing.T) {
	half := 0.5
	got := WholeSaleProfit(WholeSaleInput{
		SellingPrice: 15000,
		PlatformFee:  1500,
		ShippingFee:  800,
		PurchaseCost: 10000,
		PointPaid:    2000,
		Grants: []PointGrant{
			{Points: 300, PlatformID: "rakuten"},
			{Points: 100, PlatformID: "card"},
			{Points: 200, PlatformID: "docomo"},
		},
		Rates: RateTable{
			"rakuten": {ID: "rakuten"},
			"card":    {ID: "card"},
			"docomo":  {ID: "docomo", YenConversionRate: &half},
		},
	})

	assert.InDelta(t, 2700.0, got.CashProfit, 1e-9)
	assert.InDelta(t, 500.0, got.PointsValue, 1e-9)
	assert.InDelta(t, 3200.0, got.TotalProfit, 1e-9)
	assert.InDelta(t, 8000.0, got.ActualCashSpent, 1e-9)
	assert.InDelta(t, 40.0, got.ROI, 1e-9)
}

// TestWholeSaleProfit_FullyPaidWithPoints は現金支出ゼロでROIが0になることのテスト
func TestWholeSaleProfit_FullyPaidWithPoints(t *testing.T) {
	got := WholeSaleProfit(WholeSaleInput{SellingPrice: 5000, PurchaseCost: 3000, PointPaid: 3000})

	assert.InDelta(t, 2000.0, got.TotalProfit, 1e-9)
	assert.Equal(t, 0.0, got.ROI)
}

// TestROI はROI計算のテスト
func TestROI(t *testing.T) {
	assert.Equal(t, 50.0, ROI(150, 300))
	assert.Equal(t, -25.0, ROI(-75, 300))
	assert.Equal(t, 0.0, ROI(100, 0))
	assert.Equal(t, 0.0, ROI(100, -10))
}

// TestAggregate は複数販売記録の集計（ROI単純平均）のテスト
func TestAggregate(t *testing.T) {
	small := PartialSaleProfit(PartialSaleInput{PurchaseCost: 1000, Quantity: 10, QuantitySold: 1, SellingPricePerUnit: 200})
	large := PartialSaleProfit(PartialSaleInput{PurchaseCost: 1000, Quantity: 10, QuantitySold: 9, SellingPricePerUnit: 110})

	assert.InDelta(t, 100.0, small.ROI, 1e-9)
	assert.InDelta(t, 10.0, large.ROI, 1e-9)

	agg := Aggregate([]ProfitResult{small, large})

	assert.Equal(t, 2, agg.Count)
	assert.InDelta(t, 190.0, agg.TotalProfit, 1e-9)
	assert.InDelta(t, 55.0, agg.ROI, 1e-9)
	// 数量加重平均 (1×100 + 9×10) / 10 = 19 ではない
	assert.NotEqual(t, 19.0, agg.ROI)
}

// TestAggregate_Empty は空集計のテスト
func TestAggregate_Empty(t *testing.T) {
	assert.Equal(t, Aggregation{}, Aggregate(nil))
}
