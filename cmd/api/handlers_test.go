package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori"
	"github.com/nemonet1337/sedoriKeeper/pkg/sedori/calc"
)

// mockKeeper implements the Bookkeeper methods exercised by these tests
type mockKeeper struct {
	sedori.Bookkeeper
	mock.Mock
}

func (m *mockKeeper) CreateTransaction(ctx context.Context, tx *sedori.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockKeeper) GetTransactionDetail(ctx context.Context, id string) (*sedori.TransactionDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sedori.TransactionDetail), args.Error(1)
}

func (m *mockKeeper) RecordSale(ctx context.Context, id string, input sedori.SaleInput) (*sedori.SalesRecord, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sedori.SalesRecord), args.Error(1)
}

func (m *mockKeeper) CancelSale(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockKeeper) ListTransactions(ctx context.Context, filter sedori.TransactionFilter) ([]sedori.Transaction, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]sedori.Transaction), args.Error(1)
}

func (m *mockKeeper) DeleteCoupon(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type stubReports struct {
	report    *sedori.TaxReport
	dashboard *sedori.Dashboard
	err       error
}

func (s *stubReports) Dashboard(ctx context.Context, now time.Time) (*sedori.Dashboard, error) {
	return s.dashboard, s.err
}

func (s *stubReports) TaxReport(ctx context.Context, year int) (*sedori.TaxReport, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

type testServer struct {
	keeper   *mockKeeper
	reports  *stubReports
	handlers *Handlers
	router   http.Handler
}

func newTestServer(t *testing.T, pinger Pinger) *testServer {
	t.Helper()
	keeper := new(mockKeeper)
	reports := &stubReports{}
	registry := prometheus.NewRegistry()

	h := NewHandlers(keeper, nil, reports, pinger, nil, NewMetrics(registry), zap.NewNop())
	h.now = func() time.Time { return time.Date(2024, time.January, 20, 9, 0, 0, 0, time.UTC) }

	return &testServer{
		keeper:   keeper,
		reports:  reports,
		handlers: h,
		router:   setupRouter(h, routerOptions{gatherer: registry, enableMetrics: true}),
	}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	rec := newTestServer(t, stubPinger{}).do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)

	rec = newTestServer(t, stubPinger{err: errors.New("down")}).do("GET", "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, decodeResponse(t, rec).Success)
}

func TestCreateTransaction(t *testing.T) {
	s := newTestServer(t, nil)
	s.keeper.On("CreateTransaction", mock.Anything, mock.MatchedBy(func(tx *sedori.Transaction) bool {
		return tx.ProductName == "ゲーム機" && tx.Quantity == 2 &&
			tx.PurchaseDate.Equal(time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC))
	})).Return(nil)

	rec := s.do("POST", "/api/v1/transactions", map[string]interface{}{
		"purchase_date":        "2024-01-10",
		"product_name":         "ゲーム機",
		"quantity":             2,
		"purchase_price_total": 60000,
		"balance_paid":         60000,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	s.keeper.AssertExpectations(t)
}

func TestCreateTransaction_Validation(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do("POST", "/api/v1/transactions", map[string]interface{}{
		"purchase_date": "2024/01/10",
		"product_name":  "ゲーム機",
		"quantity":      0,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	fields, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "required", fields["quantity"])
	assert.Equal(t, "datetime", fields["purchase_date"])
	s.keeper.AssertNotCalled(t, "CreateTransaction", mock.Anything, mock.Anything)
}

func TestCreateTransaction_MalformedJSON(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest("POST", "/api/v1/transactions", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTransaction_NotFound(t *testing.T) {
	s := newTestServer(t, nil)
	s.keeper.On("GetTransactionDetail", mock.Anything, "tx-404").Return(nil, sedori.ErrTransactionNotFound)

	rec := s.do("GET", "/api/v1/transactions/tx-404", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTransactions_Filter(t *testing.T) {
	s := newTestServer(t, nil)
	s.keeper.On("ListTransactions", mock.Anything, mock.MatchedBy(func(f sedori.TransactionFilter) bool {
		return f.Status != nil && *f.Status == sedori.StatusInStock && f.Limit == 20 && f.From != nil && f.To == nil
	})).Return([]sedori.Transaction{{ID: "tx-1"}}, nil)

	rec := s.do("GET", "/api/v1/transactions?status=in_stock&limit=20&from=2024-01-01", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do("GET", "/api/v1/transactions?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, query := range []string{"status=archived", "point_status=lost"} {
		rec = s.do("GET", "/api/v1/transactions?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.False(t, decodeResponse(t, rec).Success)
	}
	s.keeper.AssertNumberOfCalls(t, "ListTransactions", 1)
}

func TestRecordSale(t *testing.T) {
	s := newTestServer(t, nil)
	input := sedori.SaleInput{
		QuantitySold:        1,
		SellingPricePerUnit: 3000,
		PlatformFee:         300,
		SaleDate:            time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC),
	}
	s.keeper.On("RecordSale", mock.Anything, "tx-1", input).Return(&sedori.SalesRecord{ID: "sr-1", TotalProfit: 700}, nil)
	s.keeper.On("RecordSale", mock.Anything, "tx-2", mock.Anything).Return(nil, fmt.Errorf("%w: 残り1個", sedori.ErrInsufficientStock))

	body := map[string]interface{}{
		"quantity_sold":          1,
		"selling_price_per_unit": 3000,
		"platform_fee":           300,
		"sale_date":              "2024-01-20",
	}

	rec := s.do("POST", "/api/v1/transactions/tx-1/sales", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.handlers.metrics.salesCounter))

	rec = s.do("POST", "/api/v1/transactions/tx-2/sales", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.handlers.metrics.salesCounter))
}

func TestCancelSale(t *testing.T) {
	s := newTestServer(t, nil)
	s.keeper.On("CancelSale", mock.Anything, "sr-1").Return(nil)
	s.keeper.On("CancelSale", mock.Anything, "sr-2").Return(sedori.NewStorageError("delete_sales_record", "削除失敗", errors.New("connection reset")))

	assert.Equal(t, http.StatusOK, s.do("DELETE", "/api/v1/sales/sr-1", nil).Code)

	rec := s.do("DELETE", "/api/v1/sales/sr-2", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, decodeResponse(t, rec).Error, "connection reset")
}

func TestDeleteCoupon_NotFound(t *testing.T) {
	s := newTestServer(t, nil)
	s.keeper.On("DeleteCoupon", mock.Anything, "c-1").Return(sedori.ErrCouponNotFound)

	assert.Equal(t, http.StatusNotFound, s.do("DELETE", "/api/v1/coupons/c-1", nil).Code)
}

func TestTaxReport(t *testing.T) {
	s := newTestServer(t, nil)
	s.reports.report = &sedori.TaxReport{Year: 2024, Revenue: 11000, Months: make([]sedori.MonthlySummary, 12)}
	for i := range s.reports.report.Months {
		s.reports.report.Months[i].Month = i + 1
	}

	rec := s.do("GET", "/api/v1/reports/tax/2024", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do("GET", "/api/v1/reports/tax/2024.csv", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tax_report_2024.csv")

	s.reports.err = sedori.NewValidationError("year", "年が範囲外です", "0")
	assert.Equal(t, http.StatusBadRequest, s.do("GET", "/api/v1/reports/tax/0", nil).Code)
}

func TestDashboard_WaterLevelGauge(t *testing.T) {
	s := newTestServer(t, nil)
	s.reports.dashboard = &sedori.Dashboard{WaterLevel: 42, WaterStatus: calc.WaterWarning}

	rec := s.do("GET", "/api/v1/dashboard", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 42.0, testutil.ToFloat64(s.handlers.metrics.waterLevel))
}

func TestCalcPaymentDate(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do("POST", "/api/v1/calc/payment-date", map[string]interface{}{
		"purchase_date": "2024-01-20",
		"closing_day":   15,
		"payment_day":   10,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, "2024-02-15", data["closing_date"])
	assert.Equal(t, "2024-03-10", data["payment_date"])
	assert.Equal(t, 50.0, data["days_until"])
	assert.Equal(t, string(calc.UrgencyNormal), data["urgency"])

	rec = s.do("POST", "/api/v1/calc/payment-date", map[string]interface{}{
		"purchase_date": "2024-01-20",
		"closing_day":   32,
		"payment_day":   10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalcWaterLevel(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do("POST", "/api/v1/calc/water-level", map[string]interface{}{
		"total_balance":     100000,
		"upcoming_payments": 20000,
	})

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, 80.0, data["water_level"])
	assert.Equal(t, string(calc.WaterSafe), data["status"])
	assert.Equal(t, "+80.00%", data["display"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do("GET", "/health", nil)

	rec := s.do("GET", "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sedori_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"バリデーション", sedori.NewValidationError("quantity", "不正", "0"), http.StatusBadRequest},
		{"未検出", sedori.ErrSalesRecordNotFound, http.StatusNotFound},
		{"ラップされた未検出", sedori.NewStorageError("get", "取得失敗", sedori.ErrTransactionNotFound), http.StatusNotFound},
		{"重複", fmt.Errorf("%w: name", sedori.ErrDuplicateRecord), http.StatusConflict},
		{"在庫不足", fmt.Errorf("%w", sedori.ErrInsufficientStock), http.StatusConflict},
		{"業務ルール", sedori.NewBusinessRuleError("not_in_stock", "在庫なし", ""), http.StatusConflict},
		{"その他", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
