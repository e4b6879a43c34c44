package sedori

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori/calc"
)

func TestReporter_Dashboard(t *testing.T) {
	mockStorage := new(MockStorage)
	reporter := NewReporter(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()
	now := jan(20)

	inStock := StatusInStock
	pending := PointPending
	mockStorage.On("ListBankAccounts", ctx, true).Return([]BankAccount{
		{ID: "b-1", Balance: 100000, IsActive: true},
		{ID: "b-2", Balance: 50000, IsActive: true},
	}, nil)
	mockStorage.On("ListTransactionsByPaymentDate", ctx, mock.Anything, mock.Anything).Return([]Transaction{
		{ID: "tx-1", CardPaid: 30000, PaymentDate: datePtr(jan(25)), Status: StatusInStock},
	}, nil)
	mockStorage.On("ListTransactions", ctx, TransactionFilter{Status: &inStock}).Return([]Transaction{
		{ID: "tx-1", Quantity: 4, QuantitySold: 1, PurchasePriceTotal: 8000, Status: StatusInStock},
		{ID: "tx-2", Quantity: 1, PurchasePriceTotal: 3000, Status: StatusInStock},
	}, nil)
	mockStorage.On("ListTransactions", ctx, TransactionFilter{PointStatus: &pending}).Return([]Transaction{
		{ID: "tx-1", ExpectedPoints: 400, PointsPlatformID: strPtr("pp-1"), Status: StatusInStock},
	}, nil)
	mockStorage.On("ListPointsPlatforms", ctx).Return([]PointsPlatform{{ID: "pp-1"}}, nil)
	mockStorage.On("ListCoupons", ctx, false).Return([]Coupon{{ID: "c-1", ExpiryDate: jan(22)}}, nil)
	mockStorage.On("ListSalesRecordsByDateRange", ctx, jan(1), time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)).Return([]SalesRecord{
		{ID: "sr-1", TotalProfit: 1200},
		{ID: "sr-2", TotalProfit: 800},
	}, nil)

	d, err := reporter.Dashboard(ctx, now)

	require.NoError(t, err)
	assert.InDelta(t, 150000, d.TotalBalance, 1e-9)
	assert.InDelta(t, 30000, d.UpcomingPayments, 1e-9)
	assert.InDelta(t, 80, d.WaterLevel, 1e-9)
	assert.Equal(t, calc.WaterSafe, d.WaterStatus)
	// 8000 × 3/4 + 3000
	assert.InDelta(t, 9000, d.StockValue, 1e-9)
	assert.Equal(t, 4, d.StockUnits)
	assert.InDelta(t, 400, d.PendingPointsValue, 1e-9)
	assert.Equal(t, 2, d.MonthlySalesCount)
	assert.InDelta(t, 2000, d.MonthlyProfit, 1e-9)
	assert.Equal(t, 1, d.ExpiringCoupons)
	mockStorage.AssertExpectations(t)
}

func taxReportFixture(mockStorage *MockStorage, ctx context.Context) {
	from := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	mockStorage.On("ListSalesRecordsByDateRange", ctx, from, to).Return([]SalesRecord{
		{ID: "sr-1", TransactionID: "tx-1", QuantitySold: 2, SellingPricePerUnit: 3000, PlatformFee: 600, ShippingFee: 200,
			SaleDate: jan(20), CashProfit: 1200, TotalProfit: 1400, ROI: 100},
		{ID: "sr-2", TransactionID: "tx-1", QuantitySold: 2, SellingPricePerUnit: 2500, PlatformFee: 500,
			SaleDate: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), CashProfit: 500, TotalProfit: 600, ROI: 10},
	}, nil)
	mockStorage.On("ListSuppliesCosts", ctx, from, to).Return([]SuppliesCost{
		{ID: "sc-1", Amount: 700},
		{ID: "sc-2", Amount: 300},
	}, nil)
	mockStorage.On("GetTransaction", ctx, "tx-1").Return(&Transaction{
		ID: "tx-1", Quantity: 4, PurchasePriceTotal: 8000,
	}, nil)
}

func TestReporter_TaxReport(t *testing.T) {
	mockStorage := new(MockStorage)
	reporter := NewReporter(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()
	taxReportFixture(mockStorage, ctx)

	report, err := reporter.TaxReport(ctx, 2024)

	require.NoError(t, err)
	assert.Equal(t, 2, report.SalesCount)
	assert.InDelta(t, 11000, report.Revenue, 1e-9)
	assert.InDelta(t, 8000, report.CostOfGoods, 1e-9)
	assert.InDelta(t, 1100, report.PlatformFees, 1e-9)
	assert.InDelta(t, 200, report.ShippingFees, 1e-9)
	assert.InDelta(t, 1000, report.SuppliesCost, 1e-9)
	assert.InDelta(t, 300, report.PointsValue, 1e-9)
	assert.InDelta(t, 2000, report.TotalProfit, 1e-9)
	// 11000 - 8000 - 1100 - 200 - 1000
	assert.InDelta(t, 700, report.TaxableIncome, 1e-9)
	// 単純平均 (100 + 10) / 2
	assert.InDelta(t, 55, report.AverageROI, 1e-9)

	require.Len(t, report.Months, 12)
	assert.Equal(t, 1, report.Months[0].SalesCount)
	assert.InDelta(t, 6000, report.Months[0].Revenue, 1e-9)
	assert.InDelta(t, 800, report.Months[0].Fees, 1e-9)
	assert.Equal(t, 0, report.Months[1].SalesCount)
	assert.Equal(t, 1, report.Months[2].SalesCount)

	// 同一取引は1回だけ取得する
	mockStorage.AssertNumberOfCalls(t, "GetTransaction", 1)
}

func TestReporter_TaxReport_Cache(t *testing.T) {
	ctx := context.Background()

	t.Run("ヒット", func(t *testing.T) {
		mockStorage := new(MockStorage)
		mockCache := new(MockReportCache)
		reporter := NewReporter(mockStorage, mockCache, zap.NewNop(), nil)

		cached := &TaxReport{Year: 2024, SalesCount: 9}
		mockCache.On("GetTaxReport", ctx, 2024).Return(cached, true, nil)

		report, err := reporter.TaxReport(ctx, 2024)

		require.NoError(t, err)
		assert.Same(t, cached, report)
		mockStorage.AssertNotCalled(t, "ListSalesRecordsByDateRange", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ミス", func(t *testing.T) {
		mockStorage := new(MockStorage)
		mockCache := new(MockReportCache)
		reporter := NewReporter(mockStorage, mockCache, zap.NewNop(), nil)
		taxReportFixture(mockStorage, ctx)

		mockCache.On("GetTaxReport", ctx, 2024).Return(nil, false, nil)
		mockCache.On("SetTaxReport", ctx, mock.AnythingOfType("*sedori.TaxReport")).Return(nil)

		report, err := reporter.TaxReport(ctx, 2024)

		require.NoError(t, err)
		assert.Equal(t, 2, report.SalesCount)
		mockCache.AssertExpectations(t)
	})
}

func TestReporter_TaxReport_InvalidYear(t *testing.T) {
	reporter := NewReporter(new(MockStorage), nil, zap.NewNop(), nil)

	_, err := reporter.TaxReport(context.Background(), 0)

	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestRenderTaxReportCSV(t *testing.T) {
	mockStorage := new(MockStorage)
	reporter := NewReporter(mockStorage, nil, zap.NewNop(), nil)
	ctx := context.Background()
	taxReportFixture(mockStorage, ctx)

	report, err := reporter.TaxReport(ctx, 2024)
	require.NoError(t, err)

	out, err := RenderTaxReportCSV(report)
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, "月", rows[0][0])
	assert.Equal(t, []string{"2024-01", "1", "6000", "4000", "800", "1200", "1400"}, rows[1])
	assert.Equal(t, []string{"所得", "700"}, rows[len(rows)-4])
	assert.Equal(t, []string{"平均ROI", "+55.00%"}, rows[len(rows)-1])

	_, err = RenderTaxReportCSV(nil)
	assert.Error(t, err)
}

func TestStockValue(t *testing.T) {
	value, units := StockValue([]Transaction{
		{Quantity: 3, QuantitySold: 1, PurchasePriceTotal: 1000, Status: StatusInStock},
		{Quantity: 2, QuantitySold: 2, PurchasePriceTotal: 5000, Status: StatusSold},
		{Quantity: 1, PurchasePriceTotal: 700, Status: StatusReturned},
	})

	assert.InDelta(t, 666.67, value, 1e-9)
	assert.Equal(t, 2, units)
}
