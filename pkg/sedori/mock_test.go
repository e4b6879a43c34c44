package sedori

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStorage はテスト用のStorageモック
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) CreateTransaction(ctx context.Context, tx *Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockStorage) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockStorage) UpdateTransaction(ctx context.Context, tx *Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockStorage) DeleteTransaction(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]Transaction), args.Error(1)
}

func (m *MockStorage) ListTransactionsByPaymentDate(ctx context.Context, from, to time.Time) ([]Transaction, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]Transaction), args.Error(1)
}

func (m *MockStorage) CreateSalesRecord(ctx context.Context, record *SalesRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStorage) GetSalesRecord(ctx context.Context, id string) (*SalesRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SalesRecord), args.Error(1)
}

func (m *MockStorage) UpdateSalesRecord(ctx context.Context, record *SalesRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStorage) DeleteSalesRecord(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) ListSalesRecordsByTransaction(ctx context.Context, transactionID string) ([]SalesRecord, error) {
	args := m.Called(ctx, transactionID)
	return args.Get(0).([]SalesRecord), args.Error(1)
}

func (m *MockStorage) ListSalesRecordsByDateRange(ctx context.Context, from, to time.Time) ([]SalesRecord, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]SalesRecord), args.Error(1)
}

func (m *MockStorage) CreatePaymentMethod(ctx context.Context, method *PaymentMethod) error {
	args := m.Called(ctx, method)
	return args.Error(0)
}

func (m *MockStorage) GetPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaymentMethod), args.Error(1)
}

func (m *MockStorage) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]PaymentMethod, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]PaymentMethod), args.Error(1)
}

func (m *MockStorage) DeletePaymentMethod(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) CreatePointsPlatform(ctx context.Context, platform *PointsPlatform) error {
	args := m.Called(ctx, platform)
	return args.Error(0)
}

func (m *MockStorage) ListPointsPlatforms(ctx context.Context) ([]PointsPlatform, error) {
	args := m.Called(ctx)
	return args.Get(0).([]PointsPlatform), args.Error(1)
}

func (m *MockStorage) DeletePointsPlatform(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) CreateSuppliesCost(ctx context.Context, cost *SuppliesCost) error {
	args := m.Called(ctx, cost)
	return args.Error(0)
}

func (m *MockStorage) ListSuppliesCosts(ctx context.Context, from, to time.Time) ([]SuppliesCost, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]SuppliesCost), args.Error(1)
}

func (m *MockStorage) DeleteSuppliesCost(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) CreateBankAccount(ctx context.Context, account *BankAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockStorage) UpdateBankBalance(ctx context.Context, id string, balance float64) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

func (m *MockStorage) ListBankAccounts(ctx context.Context, activeOnly bool) ([]BankAccount, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]BankAccount), args.Error(1)
}

func (m *MockStorage) DeleteBankAccount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) CreateCoupon(ctx context.Context, coupon *Coupon) error {
	args := m.Called(ctx, coupon)
	return args.Error(0)
}

func (m *MockStorage) MarkCouponUsed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) ListCoupons(ctx context.Context, includeUsed bool) ([]Coupon, error) {
	args := m.Called(ctx, includeUsed)
	return args.Get(0).([]Coupon), args.Error(1)
}

func (m *MockStorage) DeleteCoupon(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockPublisher はテスト用のEventPublisherモック
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishSaleRecorded(ctx context.Context, event SaleRecordedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishSaleCancelled(ctx context.Context, event SaleCancelledEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) PublishLedgerChanged(ctx context.Context, event LedgerChangedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockReportCache はテスト用のReportCacheモック
type MockReportCache struct {
	mock.Mock
}

func (m *MockReportCache) GetTaxReport(ctx context.Context, year int) (*TaxReport, bool, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*TaxReport), args.Bool(1), args.Error(2)
}

func (m *MockReportCache) SetTaxReport(ctx context.Context, report *TaxReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}
