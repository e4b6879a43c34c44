package sedori

import (
	"context"
	"time"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori/calc"
)

// TransactionManager defines the transaction and sales lifecycle
// 取引と販売のライフサイクルを定義
type TransactionManager interface {
	// 取引 - Transactions
	CreateTransaction(ctx context.Context, tx *Transaction) error
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, transactionID string) error
	GetTransaction(ctx context.Context, transactionID string) (*Transaction, error)
	GetTransactionDetail(ctx context.Context, transactionID string) (*TransactionDetail, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)

	// 販売 - Sales
	RecordSale(ctx context.Context, transactionID string, input SaleInput) (*SalesRecord, error)
	CancelSale(ctx context.Context, salesRecordID string) error
	GetSalesRecords(ctx context.Context, transactionID string) ([]SalesRecord, error)
	WholeSaleEstimate(ctx context.Context, transactionID string, sellingPrice, platformFee, shippingFee float64) (*calc.ProfitResult, error)

	// 状態変更 - Status changes
	MarkReturned(ctx context.Context, transactionID string) error
	UpdatePointStatus(ctx context.Context, transactionID string, status PointStatus) error
}

// MasterDataManager defines reference data management
// 参照データ（支払方法・ポイント・消耗品・口座・クーポン）の管理を定義
type MasterDataManager interface {
	CreatePaymentMethod(ctx context.Context, method *PaymentMethod) error
	ListPaymentMethods(ctx context.Context, activeOnly bool) ([]PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, id string) error

	CreatePointsPlatform(ctx context.Context, platform *PointsPlatform) error
	ListPointsPlatforms(ctx context.Context) ([]PointsPlatform, error)
	DeletePointsPlatform(ctx context.Context, id string) error

	CreateSuppliesCost(ctx context.Context, cost *SuppliesCost) error
	ListSuppliesCosts(ctx context.Context, from, to time.Time) ([]SuppliesCost, error)
	DeleteSuppliesCost(ctx context.Context, id string) error

	CreateBankAccount(ctx context.Context, account *BankAccount) error
	UpdateBankBalance(ctx context.Context, id string, balance float64) error
	ListBankAccounts(ctx context.Context, activeOnly bool) ([]BankAccount, error)
	DeleteBankAccount(ctx context.Context, id string) error

	CreateCoupon(ctx context.Context, coupon *Coupon) error
	UseCoupon(ctx context.Context, id string) error
	ListCoupons(ctx context.Context, includeUsed bool) ([]Coupon, error)
	DeleteCoupon(ctx context.Context, id string) error
}

// Bookkeeper combines the transaction and master data operations
// 取引操作と参照データ操作をまとめたインターフェース
type Bookkeeper interface {
	TransactionManager
	MasterDataManager
}

// TrackingService defines deadline tracking
// 期限トラッキングのインターフェースを定義
type TrackingService interface {
	UpcomingPayments(ctx context.Context, now time.Time, within time.Duration) ([]UpcomingPayment, error)
	ExpiringCoupons(ctx context.Context, now time.Time, within time.Duration) ([]CouponAlert, error)
	PendingPoints(ctx context.Context) (*PendingPointsSummary, error)
}

// ReportEngine defines dashboard and tax reporting
// ダッシュボードと確定申告レポートのインターフェースを定義
type ReportEngine interface {
	Dashboard(ctx context.Context, now time.Time) (*Dashboard, error)
	TaxReport(ctx context.Context, year int) (*TaxReport, error)
}

// Storage defines the interface for data persistence layer
// データ永続化層のインターフェースを定義
type Storage interface {
	// Transactions
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	ListTransactionsByPaymentDate(ctx context.Context, from, to time.Time) ([]Transaction, error)

	// Sales records
	CreateSalesRecord(ctx context.Context, record *SalesRecord) error
	GetSalesRecord(ctx context.Context, id string) (*SalesRecord, error)
	UpdateSalesRecord(ctx context.Context, record *SalesRecord) error
	DeleteSalesRecord(ctx context.Context, id string) error
	ListSalesRecordsByTransaction(ctx context.Context, transactionID string) ([]SalesRecord, error)
	ListSalesRecordsByDateRange(ctx context.Context, from, to time.Time) ([]SalesRecord, error)

	// Payment methods
	CreatePaymentMethod(ctx context.Context, method *PaymentMethod) error
	GetPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, activeOnly bool) ([]PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, id string) error

	// Points platforms
	CreatePointsPlatform(ctx context.Context, platform *PointsPlatform) error
	ListPointsPlatforms(ctx context.Context) ([]PointsPlatform, error)
	DeletePointsPlatform(ctx context.Context, id string) error

	// Supplies costs
	CreateSuppliesCost(ctx context.Context, cost *SuppliesCost) error
	ListSuppliesCosts(ctx context.Context, from, to time.Time) ([]SuppliesCost, error)
	DeleteSuppliesCost(ctx context.Context, id string) error

	// Bank accounts
	CreateBankAccount(ctx context.Context, account *BankAccount) error
	UpdateBankBalance(ctx context.Context, id string, balance float64) error
	ListBankAccounts(ctx context.Context, activeOnly bool) ([]BankAccount, error)
	DeleteBankAccount(ctx context.Context, id string) error

	// Coupons
	CreateCoupon(ctx context.Context, coupon *Coupon) error
	MarkCouponUsed(ctx context.Context, id string) error
	ListCoupons(ctx context.Context, includeUsed bool) ([]Coupon, error)
	DeleteCoupon(ctx context.Context, id string) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher defines interface for publishing bookkeeping events
// 帳簿イベント発行のインターフェースを定義
type EventPublisher interface {
	PublishSaleRecorded(ctx context.Context, event SaleRecordedEvent) error
	PublishSaleCancelled(ctx context.Context, event SaleCancelledEvent) error
	PublishLedgerChanged(ctx context.Context, event LedgerChangedEvent) error
}

// ReportCache stores computed tax reports
// 計算済みの確定申告レポートを保存
type ReportCache interface {
	GetTaxReport(ctx context.Context, year int) (*TaxReport, bool, error)
	SetTaxReport(ctx context.Context, report *TaxReport) error
}

// ReportLocker serializes tax report builds across processes
// 複数プロセス間でレポート作成を直列化
type ReportLocker interface {
	LockTaxReport(ctx context.Context, year int) (release func(), err error)
}

// Events for bookkeeping operations
// 帳簿操作のイベント定義

// SaleRecordedEvent represents a new sales record
// 販売記録の追加イベントを表現
type SaleRecordedEvent struct {
	TransactionID string    `json:"transaction_id"`
	SalesRecordID string    `json:"sales_record_id"`
	QuantitySold  int       `json:"quantity_sold"`
	SaleDate      time.Time `json:"sale_date"`
	TotalProfit   float64   `json:"total_profit"`
	Timestamp     time.Time `json:"timestamp"`
}

// SaleCancelledEvent represents a deleted sales record
// 販売取消イベントを表現
type SaleCancelledEvent struct {
	TransactionID string    `json:"transaction_id"`
	SalesRecordID string    `json:"sales_record_id"`
	QuantitySold  int       `json:"quantity_sold"`
	SaleDate      time.Time `json:"sale_date"`
	Timestamp     time.Time `json:"timestamp"`
}

// LedgerChangedEvent represents a change that affects reports for a date
// レポートに影響する帳簿変更イベントを表現
type LedgerChangedEvent struct {
	Kind      string    `json:"kind"` // transaction, supplies
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Timestamp time.Time `json:"timestamp"`
}
