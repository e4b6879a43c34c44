package sedori

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori/calc"
)

// Manager implements the TransactionManager and MasterDataManager interfaces
// TransactionManager・MasterDataManagerインターフェースの実装
type Manager struct {
	storage   Storage          // ストレージ層
	publisher EventPublisher   // イベント発行者
	logger    *zap.Logger      // ログ
	config    *Config          // 設定
	now       func() time.Time // 現在時刻
}

// すべてのインターフェースを実装することを明示
var (
	_ TransactionManager = (*Manager)(nil)
	_ MasterDataManager  = (*Manager)(nil)
	_ Bookkeeper         = (*Manager)(nil)
)

// Config holds configuration for the bookkeeping services
// 帳簿サービスの設定を保持
type Config struct {
	PaymentWindow time.Duration `yaml:"payment_window"` // 支払予定の集計期間
	CouponWindow  time.Duration `yaml:"coupon_window"`  // クーポン期限の通知期間
	ReportTTL     time.Duration `yaml:"report_ttl"`     // レポートキャッシュの有効期間
}

// DefaultConfig returns the default service configuration
// デフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		PaymentWindow: 30 * 24 * time.Hour,
		CouponWindow:  14 * 24 * time.Hour,
		ReportTTL:     10 * time.Minute,
	}
}

// NewManager creates a new bookkeeping manager
// 新しい帳簿マネージャーを作成
func NewManager(storage Storage, publisher EventPublisher, logger *zap.Logger, config *Config) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		storage:   storage,
		publisher: publisher,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// CreateTransaction registers a new purchase lot
// 新しい仕入取引を登録
func (m *Manager) CreateTransaction(ctx context.Context, tx *Transaction) error {
	if tx == nil {
		return NewValidationError("transaction", "取引が指定されていません", "")
	}
	if tx.Status == "" {
		tx.Status = StatusInStock
	}
	if tx.PointStatus == "" {
		tx.PointStatus = PointPending
	}
	if tx.Status != StatusInStock {
		return NewBusinessRuleError("initial_status", "新規取引は在庫ありで作成する必要があります", string(tx.Status))
	}
	tx.QuantitySold = 0
	if err := ValidateTransaction(tx); err != nil {
		return err
	}

	if err := m.derivePaymentDate(ctx, tx); err != nil {
		return err
	}

	now := m.now()
	tx.ID = NewID()
	tx.AggregatedProfit = 0
	tx.AggregatedROI = 0
	tx.RecalculateStock()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	if err := m.storage.CreateTransaction(ctx, tx); err != nil {
		return wrapStorage("create_transaction", "取引作成に失敗しました", err)
	}

	m.publishLedgerChanged(ctx, "transaction", tx.ID, tx.PurchaseDate)

	m.logger.Info("取引作成完了",
		zap.String("transaction_id", tx.ID),
		zap.String("product_name", tx.ProductName),
		zap.Int("quantity", tx.Quantity),
		zap.Float64("purchase_price_total", tx.PurchasePriceTotal),
	)

	return nil
}

// UpdateTransaction edits a transaction and recomputes its sales records
// 取引を更新し、販売記録の利益を再計算
func (m *Manager) UpdateTransaction(ctx context.Context, tx *Transaction) error {
	if tx == nil {
		return NewValidationError("transaction", "取引が指定されていません", "")
	}
	existing, err := m.loadTransaction(ctx, tx.ID)
	if err != nil {
		return err
	}

	// 販売状況はサーバー側の値を維持
	tx.QuantitySold = existing.QuantitySold
	tx.Status = existing.Status
	tx.CreatedAt = existing.CreatedAt
	if tx.PointStatus == "" {
		tx.PointStatus = existing.PointStatus
	}
	if tx.Quantity < existing.QuantitySold {
		return NewBusinessRuleError("quantity_below_sold", "数量は販売済み数量以上である必要があります",
			fmt.Sprintf("数量=%d 販売済み=%d", tx.Quantity, existing.QuantitySold))
	}
	if err := ValidateTransaction(tx); err != nil {
		return err
	}

	tx.PaymentDate = nil
	if err := m.derivePaymentDate(ctx, tx); err != nil {
		return err
	}

	records, err := m.storage.ListSalesRecordsByTransaction(ctx, tx.ID)
	if err != nil {
		return NewStorageError("list_sales_records", "販売記録取得に失敗しました", err)
	}
	if len(records) > 0 {
		pc, err := m.newProfitContext(ctx, tx.PurchaseDate)
		if err != nil {
			return err
		}
		for i := range records {
			r := &records[i]
			result := pc.partial(tx, r.QuantitySold, r.SellingPricePerUnit, r.PlatformFee, r.ShippingFee)
			r.CashProfit = result.CashProfit
			r.TotalProfit = result.TotalProfit
			r.ROI = result.ROI
			if err := m.storage.UpdateSalesRecord(ctx, r); err != nil {
				return wrapStorage("update_sales_record", "販売記録更新に失敗しました", err)
			}
		}
	}

	applyAggregates(tx, records)
	tx.UpdatedAt = m.now()

	if err := m.storage.UpdateTransaction(ctx, tx); err != nil {
		return wrapStorage("update_transaction", "取引更新に失敗しました", err)
	}

	m.publishLedgerChanged(ctx, "transaction", tx.ID, tx.PurchaseDate)
	if !existing.PurchaseDate.Equal(tx.PurchaseDate) {
		m.publishLedgerChanged(ctx, "transaction", tx.ID, existing.PurchaseDate)
	}

	m.logger.Info("取引更新完了",
		zap.String("transaction_id", tx.ID),
		zap.Int("recalculated_sales", len(records)),
	)

	return nil
}

// DeleteTransaction removes a transaction together with its sales records
// 取引を販売記録ごと削除
func (m *Manager) DeleteTransaction(ctx context.Context, transactionID string) error {
	tx, err := m.loadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if err := m.storage.DeleteTransaction(ctx, transactionID); err != nil {
		return wrapStorage("delete_transaction", "取引削除に失敗しました", err)
	}

	m.publishLedgerChanged(ctx, "transaction", tx.ID, tx.PurchaseDate)
	m.logger.Info("取引削除完了", zap.String("transaction_id", transactionID))
	return nil
}

// GetTransaction returns a transaction by ID
// 取引を取得
func (m *Manager) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	return m.loadTransaction(ctx, transactionID)
}

// GetTransactionDetail returns a transaction with its sales records and points value
// 販売記録とポイント価値付きの取引詳細を取得
func (m *Manager) GetTransactionDetail(ctx context.Context, transactionID string) (*TransactionDetail, error) {
	tx, err := m.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	records, err := m.GetSalesRecords(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	rates, err := m.rateTable(ctx)
	if err != nil {
		return nil, err
	}

	return &TransactionDetail{
		Transaction:  *tx,
		SalesRecords: records,
		PointsValue:  calc.TotalPointsValue(tx.PointGrants(), rates, 1),
	}, nil
}

// ListTransactions lists transactions matching the filter
// 条件に一致する取引一覧を取得
func (m *Manager) ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	txs, err := m.storage.ListTransactions(ctx, filter)
	if err != nil {
		return nil, NewStorageError("list_transactions", "取引一覧取得に失敗しました", err)
	}
	return txs, nil
}

// RecordSale appends a partial or full sale to a transaction
// 取引に販売（分割販売を含む）を記録
func (m *Manager) RecordSale(ctx context.Context, transactionID string, input SaleInput) (*SalesRecord, error) {
	tx, err := m.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != StatusInStock {
		return nil, NewBusinessRuleError("not_in_stock", "在庫ありの取引のみ販売できます",
			fmt.Sprintf("取引ID: %s, ステータス: %s", tx.ID, tx.Status))
	}
	if err := ValidateSaleInput(input, tx.RemainingQuantity()); err != nil {
		return nil, err
	}

	pc, err := m.newProfitContext(ctx, tx.PurchaseDate)
	if err != nil {
		return nil, err
	}
	result := pc.partial(tx, input.QuantitySold, input.SellingPricePerUnit, input.PlatformFee, input.ShippingFee)

	record := &SalesRecord{
		ID:                  NewID(),
		TransactionID:       tx.ID,
		QuantitySold:        input.QuantitySold,
		SellingPricePerUnit: input.SellingPricePerUnit,
		PlatformFee:         input.PlatformFee,
		ShippingFee:         input.ShippingFee,
		SaleDate:            input.SaleDate,
		CashProfit:          result.CashProfit,
		TotalProfit:         result.TotalProfit,
		ROI:                 result.ROI,
		Notes:               input.Notes,
		CreatedAt:           m.now(),
	}

	if err := m.storage.CreateSalesRecord(ctx, record); err != nil {
		return nil, wrapStorage("create_sales_record", "販売記録作成に失敗しました", err)
	}

	if err := m.refreshTransaction(ctx, tx); err != nil {
		// ロールバック
		if rbErr := m.storage.DeleteSalesRecord(ctx, record.ID); rbErr != nil {
			m.logger.Error("販売記録のロールバックに失敗しました",
				zap.String("sales_record_id", record.ID),
				zap.Error(rbErr),
			)
		}
		return nil, err
	}

	if m.publisher != nil {
		event := SaleRecordedEvent{
			TransactionID: tx.ID,
			SalesRecordID: record.ID,
			QuantitySold:  record.QuantitySold,
			SaleDate:      record.SaleDate,
			TotalProfit:   record.TotalProfit,
			Timestamp:     m.now(),
		}
		if err := m.publisher.PublishSaleRecorded(ctx, event); err != nil {
			m.logger.Error("イベント発行に失敗しました", zap.Error(err))
		}
	}

	m.logger.Info("販売記録完了",
		zap.String("transaction_id", tx.ID),
		zap.String("sales_record_id", record.ID),
		zap.Int("quantity_sold", record.QuantitySold),
		zap.Float64("total_profit", record.TotalProfit),
		zap.Float64("roi", record.ROI),
		zap.String("status", string(tx.Status)),
	)

	return record, nil
}

// CancelSale deletes a sales record and restores inventory
// 販売記録を削除し在庫を戻す
func (m *Manager) CancelSale(ctx context.Context, salesRecordID string) error {
	record, err := m.storage.GetSalesRecord(ctx, salesRecordID)
	if err != nil {
		return wrapStorage("get_sales_record", "販売記録取得に失敗しました", err)
	}
	tx, err := m.loadTransaction(ctx, record.TransactionID)
	if err != nil {
		return err
	}

	if err := m.storage.DeleteSalesRecord(ctx, record.ID); err != nil {
		return wrapStorage("delete_sales_record", "販売記録削除に失敗しました", err)
	}

	if err := m.refreshTransaction(ctx, tx); err != nil {
		// ロールバック
		if rbErr := m.storage.CreateSalesRecord(ctx, record); rbErr != nil {
			m.logger.Error("販売記録の復元に失敗しました",
				zap.String("sales_record_id", record.ID),
				zap.Error(rbErr),
			)
		}
		return err
	}

	if m.publisher != nil {
		event := SaleCancelledEvent{
			TransactionID: tx.ID,
			SalesRecordID: record.ID,
			QuantitySold:  record.QuantitySold,
			SaleDate:      record.SaleDate,
			Timestamp:     m.now(),
		}
		if err := m.publisher.PublishSaleCancelled(ctx, event); err != nil {
			m.logger.Error("イベント発行に失敗しました", zap.Error(err))
		}
	}

	m.logger.Info("販売取消完了",
		zap.String("transaction_id", tx.ID),
		zap.String("sales_record_id", record.ID),
		zap.Int("quantity_restored", record.QuantitySold),
	)

	return nil
}

// GetSalesRecords returns sales records ordered by sale date
// 販売日順の販売記録を取得
func (m *Manager) GetSalesRecords(ctx context.Context, transactionID string) ([]SalesRecord, error) {
	records, err := m.storage.ListSalesRecordsByTransaction(ctx, transactionID)
	if err != nil {
		return nil, NewStorageError("list_sales_records", "販売記録取得に失敗しました", err)
	}
	return records, nil
}

// WholeSaleEstimate previews the profit of selling the whole lot at once
// ロット一括販売時の利益を試算（保存しない）
func (m *Manager) WholeSaleEstimate(ctx context.Context, transactionID string, sellingPrice, platformFee, shippingFee float64) (*calc.ProfitResult, error) {
	if sellingPrice <= 0 {
		return nil, NewValidationError("selling_price", "販売価格は0より大きい必要があります", fmt.Sprintf("%.2f", sellingPrice))
	}
	if err := ValidateAmount("platform_fee", platformFee); err != nil {
		return nil, err
	}
	if err := ValidateAmount("shipping_fee", shippingFee); err != nil {
		return nil, err
	}

	tx, err := m.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	rates, err := m.rateTable(ctx)
	if err != nil {
		return nil, err
	}

	result := calc.WholeSaleProfit(calc.WholeSaleInput{
		SellingPrice: sellingPrice,
		PlatformFee:  platformFee,
		ShippingFee:  shippingFee,
		PurchaseCost: tx.PurchasePriceTotal,
		PointPaid:    tx.PointPaid,
		Grants:       tx.PointGrants(),
		Rates:        rates,
	})
	return &result, nil
}

// MarkReturned marks an unsold transaction as returned
// 未販売の取引を返品済みにする
func (m *Manager) MarkReturned(ctx context.Context, transactionID string) error {
	tx, err := m.loadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if tx.Status != StatusInStock || tx.QuantitySold > 0 {
		return NewBusinessRuleError("return_after_sale", "販売記録のある取引は返品できません",
			fmt.Sprintf("取引ID: %s, 販売済み: %d", tx.ID, tx.QuantitySold))
	}

	tx.Status = StatusReturned
	tx.RecalculateStock()
	tx.UpdatedAt = m.now()

	if err := m.storage.UpdateTransaction(ctx, tx); err != nil {
		return wrapStorage("update_transaction", "取引更新に失敗しました", err)
	}

	m.logger.Info("返品登録完了", zap.String("transaction_id", tx.ID))
	return nil
}

// UpdatePointStatus changes the point receipt status of a transaction
// 取引のポイント受取状況を変更
func (m *Manager) UpdatePointStatus(ctx context.Context, transactionID string, status PointStatus) error {
	if err := ValidatePointStatus(status); err != nil {
		return err
	}
	tx, err := m.loadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}

	old := tx.PointStatus
	tx.PointStatus = status
	tx.UpdatedAt = m.now()

	if err := m.storage.UpdateTransaction(ctx, tx); err != nil {
		return wrapStorage("update_transaction", "取引更新に失敗しました", err)
	}

	m.logger.Info("ポイント受取状況更新",
		zap.String("transaction_id", tx.ID),
		zap.String("old_status", string(old)),
		zap.String("new_status", string(status)),
	)
	return nil
}

// CreatePaymentMethod registers a payment method
// 支払方法を登録
func (m *Manager) CreatePaymentMethod(ctx context.Context, method *PaymentMethod) error {
	if err := ValidatePaymentMethod(method); err != nil {
		return err
	}
	now := m.now()
	method.ID = NewID()
	method.CreatedAt = now
	method.UpdatedAt = now

	if err := m.storage.CreatePaymentMethod(ctx, method); err != nil {
		return wrapStorage("create_payment_method", "支払方法作成に失敗しました", err)
	}
	m.logger.Info("支払方法作成完了", zap.String("payment_method_id", method.ID), zap.String("name", method.Name))
	return nil
}

// ListPaymentMethods 支払方法一覧を取得
func (m *Manager) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]PaymentMethod, error) {
	methods, err := m.storage.ListPaymentMethods(ctx, activeOnly)
	if err != nil {
		return nil, NewStorageError("list_payment_methods", "支払方法一覧取得に失敗しました", err)
	}
	return methods, nil
}

// DeletePaymentMethod 支払方法を削除
func (m *Manager) DeletePaymentMethod(ctx context.Context, id string) error {
	if err := m.storage.DeletePaymentMethod(ctx, id); err != nil {
		return wrapStorage("delete_payment_method", "支払方法削除に失敗しました", err)
	}
	m.logger.Info("支払方法削除完了", zap.String("payment_method_id", id))
	return nil
}

// CreatePointsPlatform registers a points platform
// ポイントプラットフォームを登録
func (m *Manager) CreatePointsPlatform(ctx context.Context, platform *PointsPlatform) error {
	if err := ValidatePointsPlatform(platform); err != nil {
		return err
	}
	now := m.now()
	platform.ID = NewID()
	platform.CreatedAt = now
	platform.UpdatedAt = now

	if err := m.storage.CreatePointsPlatform(ctx, platform); err != nil {
		return wrapStorage("create_points_platform", "ポイントプラットフォーム作成に失敗しました", err)
	}
	m.logger.Info("ポイントプラットフォーム作成完了", zap.String("points_platform_id", platform.ID), zap.String("name", platform.Name))
	return nil
}

// ListPointsPlatforms ポイントプラットフォーム一覧を取得
func (m *Manager) ListPointsPlatforms(ctx context.Context) ([]PointsPlatform, error) {
	platforms, err := m.storage.ListPointsPlatforms(ctx)
	if err != nil {
		return nil, NewStorageError("list_points_platforms", "ポイントプラットフォーム一覧取得に失敗しました", err)
	}
	return platforms, nil
}

// DeletePointsPlatform ポイントプラットフォームを削除
func (m *Manager) DeletePointsPlatform(ctx context.Context, id string) error {
	if err := m.storage.DeletePointsPlatform(ctx, id); err != nil {
		return wrapStorage("delete_points_platform", "ポイントプラットフォーム削除に失敗しました", err)
	}
	m.logger.Info("ポイントプラットフォーム削除完了", zap.String("points_platform_id", id))
	return nil
}

// CreateSuppliesCost registers a supplies expense
// 消耗品費を登録
func (m *Manager) CreateSuppliesCost(ctx context.Context, cost *SuppliesCost) error {
	if err := ValidateSuppliesCost(cost); err != nil {
		return err
	}
	cost.ID = NewID()
	cost.CreatedAt = m.now()

	if err := m.storage.CreateSuppliesCost(ctx, cost); err != nil {
		return wrapStorage("create_supplies_cost", "消耗品費作成に失敗しました", err)
	}
	m.publishLedgerChanged(ctx, "supplies", cost.ID, cost.PurchaseDate)
	m.logger.Info("消耗品費作成完了",
		zap.String("supplies_cost_id", cost.ID),
		zap.String("item_name", cost.ItemName),
		zap.Float64("amount", cost.Amount),
	)
	return nil
}

// ListSuppliesCosts 期間内の消耗品費を取得（fromを含み、toを含まない）
func (m *Manager) ListSuppliesCosts(ctx context.Context, from, to time.Time) ([]SuppliesCost, error) {
	costs, err := m.storage.ListSuppliesCosts(ctx, from, to)
	if err != nil {
		return nil, NewStorageError("list_supplies_costs", "消耗品費一覧取得に失敗しました", err)
	}
	return costs, nil
}

// DeleteSuppliesCost 消耗品費を削除
func (m *Manager) DeleteSuppliesCost(ctx context.Context, id string) error {
	if err := m.storage.DeleteSuppliesCost(ctx, id); err != nil {
		return wrapStorage("delete_supplies_cost", "消耗品費削除に失敗しました", err)
	}
	m.publishLedgerChanged(ctx, "supplies", id, time.Time{})
	m.logger.Info("消耗品費削除完了", zap.String("supplies_cost_id", id))
	return nil
}

// CreateBankAccount registers a bank account
// 口座を登録
func (m *Manager) CreateBankAccount(ctx context.Context, account *BankAccount) error {
	if err := ValidateBankAccount(account); err != nil {
		return err
	}
	now := m.now()
	account.ID = NewID()
	account.CreatedAt = now
	account.UpdatedAt = now

	if err := m.storage.CreateBankAccount(ctx, account); err != nil {
		return wrapStorage("create_bank_account", "口座作成に失敗しました", err)
	}
	m.logger.Info("口座作成完了", zap.String("bank_account_id", account.ID), zap.String("name", account.Name))
	return nil
}

// UpdateBankBalance 口座残高を更新
func (m *Manager) UpdateBankBalance(ctx context.Context, id string, balance float64) error {
	if err := ValidateAmount("balance", balance); err != nil {
		return err
	}
	if err := m.storage.UpdateBankBalance(ctx, id, balance); err != nil {
		return wrapStorage("update_bank_balance", "口座残高更新に失敗しました", err)
	}
	m.logger.Info("口座残高更新", zap.String("bank_account_id", id), zap.Float64("balance", balance))
	return nil
}

// ListBankAccounts 口座一覧を取得
func (m *Manager) ListBankAccounts(ctx context.Context, activeOnly bool) ([]BankAccount, error) {
	accounts, err := m.storage.ListBankAccounts(ctx, activeOnly)
	if err != nil {
		return nil, NewStorageError("list_bank_accounts", "口座一覧取得に失敗しました", err)
	}
	return accounts, nil
}

// DeleteBankAccount 口座を削除
func (m *Manager) DeleteBankAccount(ctx context.Context, id string) error {
	if err := m.storage.DeleteBankAccount(ctx, id); err != nil {
		return wrapStorage("delete_bank_account", "口座削除に失敗しました", err)
	}
	m.logger.Info("口座削除完了", zap.String("bank_account_id", id))
	return nil
}

// CreateCoupon registers a coupon
// クーポンを登録
func (m *Manager) CreateCoupon(ctx context.Context, coupon *Coupon) error {
	if err := ValidateCoupon(coupon); err != nil {
		return err
	}
	coupon.ID = NewID()
	coupon.IsUsed = false
	coupon.CreatedAt = m.now()

	if err := m.storage.CreateCoupon(ctx, coupon); err != nil {
		return wrapStorage("create_coupon", "クーポン作成に失敗しました", err)
	}
	m.logger.Info("クーポン作成完了",
		zap.String("coupon_id", coupon.ID),
		zap.Time("expiry_date", coupon.ExpiryDate),
	)
	return nil
}

// UseCoupon クーポンを使用済みにする
func (m *Manager) UseCoupon(ctx context.Context, id string) error {
	if err := m.storage.MarkCouponUsed(ctx, id); err != nil {
		return wrapStorage("mark_coupon_used", "クーポン更新に失敗しました", err)
	}
	m.logger.Info("クーポン使用", zap.String("coupon_id", id))
	return nil
}

// ListCoupons クーポン一覧を取得
func (m *Manager) ListCoupons(ctx context.Context, includeUsed bool) ([]Coupon, error) {
	coupons, err := m.storage.ListCoupons(ctx, includeUsed)
	if err != nil {
		return nil, NewStorageError("list_coupons", "クーポン一覧取得に失敗しました", err)
	}
	return coupons, nil
}

// DeleteCoupon クーポンを削除
func (m *Manager) DeleteCoupon(ctx context.Context, id string) error {
	if err := m.storage.DeleteCoupon(ctx, id); err != nil {
		return wrapStorage("delete_coupon", "クーポン削除に失敗しました", err)
	}
	m.logger.Info("クーポン削除完了", zap.String("coupon_id", id))
	return nil
}

// Helper methods
// ヘルパーメソッド

func (m *Manager) loadTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	tx, err := m.storage.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, wrapStorage("get_transaction", "取引取得に失敗しました", err)
	}
	return tx, nil
}

// derivePaymentDate カード支払がある場合、支払方法の締め日・支払日から支払予定日を算出
func (m *Manager) derivePaymentDate(ctx context.Context, tx *Transaction) error {
	if tx.CardPaid <= 0 || tx.PaymentMethodID == nil {
		return nil
	}
	method, err := m.storage.GetPaymentMethod(ctx, *tx.PaymentMethodID)
	if err != nil {
		return wrapStorage("get_payment_method", "支払方法取得に失敗しました", err)
	}
	if cycle, ok := method.Cycle(); ok {
		date := cycle.PaymentDate(tx.PurchaseDate)
		tx.PaymentDate = &date
	}
	return nil
}

// refreshTransaction 販売記録から販売済み数量・ステータス・集計値を再計算して保存
func (m *Manager) refreshTransaction(ctx context.Context, tx *Transaction) error {
	records, err := m.storage.ListSalesRecordsByTransaction(ctx, tx.ID)
	if err != nil {
		return NewStorageError("list_sales_records", "販売記録取得に失敗しました", err)
	}

	applyAggregates(tx, records)
	if tx.QuantitySold > tx.Quantity {
		return fmt.Errorf("%w: 販売済み=%d 数量=%d", ErrInsufficientStock, tx.QuantitySold, tx.Quantity)
	}
	tx.UpdatedAt = m.now()

	if err := m.storage.UpdateTransaction(ctx, tx); err != nil {
		return wrapStorage("update_transaction", "取引更新に失敗しました", err)
	}
	return nil
}

// applyAggregates 販売記録の合計から取引の販売状況と集計値を設定
func applyAggregates(tx *Transaction, records []SalesRecord) {
	results := make([]calc.ProfitResult, 0, len(records))
	sold := 0
	for i := range records {
		results = append(results, records[i].ProfitResult())
		sold += records[i].QuantitySold
	}
	agg := calc.Aggregate(results)

	tx.QuantitySold = sold
	tx.AggregatedProfit = agg.TotalProfit
	tx.AggregatedROI = agg.ROI

	switch {
	case tx.Status == StatusReturned:
	case sold >= tx.Quantity:
		tx.Status = StatusSold
	default:
		tx.Status = StatusInStock
	}
	tx.RecalculateStock()
}

func (m *Manager) rateTable(ctx context.Context) (calc.RateTable, error) {
	platforms, err := m.storage.ListPointsPlatforms(ctx)
	if err != nil {
		return nil, NewStorageError("list_points_platforms", "ポイントプラットフォーム取得に失敗しました", err)
	}
	return RateTableOf(platforms), nil
}

// profitContext holds the lookups needed to price a sale
type profitContext struct {
	rates    calc.RateTable
	supplies *calc.SuppliesAllocator
}

// newProfitContext 仕入月の消耗品費・取引とポイント換算レートを読み込む
func (m *Manager) newProfitContext(ctx context.Context, purchaseDate time.Time) (*profitContext, error) {
	rates, err := m.rateTable(ctx)
	if err != nil {
		return nil, err
	}

	from, to := monthRange(purchaseDate)
	costs, err := m.storage.ListSuppliesCosts(ctx, from, to)
	if err != nil {
		return nil, NewStorageError("list_supplies_costs", "消耗品費取得に失敗しました", err)
	}
	txs, err := m.storage.ListTransactions(ctx, TransactionFilter{From: &from, To: &to})
	if err != nil {
		return nil, NewStorageError("list_transactions", "取引一覧取得に失敗しました", err)
	}

	supplies := make([]calc.DatedAmount, 0, len(costs))
	for _, c := range costs {
		supplies = append(supplies, calc.DatedAmount{Date: c.PurchaseDate, Amount: c.Amount})
	}
	dates := make([]time.Time, 0, len(txs))
	for _, t := range txs {
		dates = append(dates, t.PurchaseDate)
	}

	return &profitContext{
		rates:    rates,
		supplies: calc.NewSuppliesAllocator(supplies, dates),
	}, nil
}

func (pc *profitContext) partial(tx *Transaction, quantitySold int, pricePerUnit, platformFee, shippingFee float64) calc.ProfitResult {
	return calc.PartialSaleProfit(calc.PartialSaleInput{
		PurchaseCost:        tx.PurchasePriceTotal,
		PointPaid:           tx.PointPaid,
		Quantity:            tx.Quantity,
		QuantitySold:        quantitySold,
		SellingPricePerUnit: pricePerUnit,
		PlatformFee:         platformFee,
		ShippingFee:         shippingFee,
		TransactionDate:     tx.PurchaseDate,
		Grants:              tx.PointGrants(),
		Rates:               pc.rates,
		Supplies:            pc.supplies,
	})
}

func (m *Manager) publishLedgerChanged(ctx context.Context, kind, id string, date time.Time) {
	if m.publisher == nil {
		return
	}
	event := LedgerChangedEvent{
		Kind:      kind,
		ID:        id,
		Date:      date,
		Timestamp: m.now(),
	}
	if err := m.publisher.PublishLedgerChanged(ctx, event); err != nil {
		m.logger.Error("イベント発行に失敗しました", zap.Error(err))
	}
}

// monthRange 日付の属する暦月の[月初, 翌月初)を返す
func monthRange(t time.Time) (time.Time, time.Time) {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 1, 0)
}
