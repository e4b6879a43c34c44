package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori"
)

// PostgreSQLStorage implements the Storage interface using PostgreSQL
// PostgreSQLを使用したStorageインターフェースの実装
type PostgreSQLStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ sedori.Storage = (*PostgreSQLStorage)(nil)

// PoolConfig holds connection pool settings
// 接続プール設定
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultPoolConfig 25接続 / アイドル10 / 5分
var DefaultPoolConfig = PoolConfig{
	MaxOpenConns:    25,
	MaxIdleConns:    10,
	ConnMaxLifetime: 5 * time.Minute,
}

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
// 新しいPostgreSQLストレージインスタンスを作成
func NewPostgreSQLStorage(ctx context.Context, dsn string, pool PoolConfig, logger *zap.Logger) (*PostgreSQLStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続テスト
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	return NewFromDB(db, logger), nil
}

// NewFromDB wraps an existing connection pool
// 既存の接続プールからストレージを作成
func NewFromDB(db *sql.DB, logger *zap.Logger) *PostgreSQLStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgreSQLStorage{
		db:     db,
		logger: logger,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// mapError PostgreSQLのエラーをドメインエラーに変換
func mapError(err error, notFound error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", sedori.ErrDuplicateRecord, pqErr.Constraint)
		case "23503":
			return sedori.NewBusinessRuleError("foreign_key", "参照されているレコードは変更できません", pqErr.Constraint)
		}
	}
	return fmt.Errorf("%s: %w", message, err)
}

// execAffecting 1行以上更新されたことを確認
func (s *PostgreSQLStorage) execAffecting(ctx context.Context, notFound error, message, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err, notFound, message)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

// Transactions
// 仕入取引

const transactionColumns = `id, purchase_date, product_name, quantity, quantity_sold, quantity_in_stock,
		purchase_price_total, card_paid, point_paid, balance_paid, payment_method_id, payment_date,
		expected_points, card_points, extra_points, points_platform_id, card_points_platform_id,
		extra_points_platform_id, status, point_status, aggregated_profit, aggregated_roi, notes,
		created_at, updated_at`

func scanTransaction(row rowScanner) (*sedori.Transaction, error) {
	var (
		tx          sedori.Transaction
		paymentDate sql.NullTime
	)
	err := row.Scan(
		&tx.ID,
		&tx.PurchaseDate,
		&tx.ProductName,
		&tx.Quantity,
		&tx.QuantitySold,
		&tx.QuantityInStock,
		&tx.PurchasePriceTotal,
		&tx.CardPaid,
		&tx.PointPaid,
		&tx.BalancePaid,
		&tx.PaymentMethodID,
		&paymentDate,
		&tx.ExpectedPoints,
		&tx.CardPoints,
		&tx.ExtraPoints,
		&tx.PointsPlatformID,
		&tx.CardPointsPlatformID,
		&tx.ExtraPointsPlatformID,
		&tx.Status,
		&tx.PointStatus,
		&tx.AggregatedProfit,
		&tx.AggregatedROI,
		&tx.Notes,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paymentDate.Valid {
		tx.PaymentDate = &paymentDate.Time
	}
	return &tx, nil
}

func (s *PostgreSQLStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]sedori.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("取引一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	transactions := make([]sedori.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("取引スキャンに失敗しました: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("取引一覧の読み込みに失敗しました: %w", err)
	}
	return transactions, nil
}

// CreateTransaction creates a new transaction record
// 新しい仕入取引を作成
func (s *PostgreSQLStorage) CreateTransaction(ctx context.Context, tx *sedori.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.PurchaseDate,
		tx.ProductName,
		tx.Quantity,
		tx.QuantitySold,
		tx.QuantityInStock,
		tx.PurchasePriceTotal,
		tx.CardPaid,
		tx.PointPaid,
		tx.BalancePaid,
		tx.PaymentMethodID,
		tx.PaymentDate,
		tx.ExpectedPoints,
		tx.CardPoints,
		tx.ExtraPoints,
		tx.PointsPlatformID,
		tx.CardPointsPlatformID,
		tx.ExtraPointsPlatformID,
		tx.Status,
		tx.PointStatus,
		tx.AggregatedProfit,
		tx.AggregatedROI,
		tx.Notes,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	return mapError(err, nil, "取引作成に失敗しました")
}

// GetTransaction retrieves a transaction by ID
// 取引を取得
func (s *PostgreSQLStorage) GetTransaction(ctx context.Context, id string) (*sedori.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, sedori.ErrTransactionNotFound, "取引取得に失敗しました")
	}
	return tx, nil
}

// UpdateTransaction updates an existing transaction
// 既存の取引を更新
func (s *PostgreSQLStorage) UpdateTransaction(ctx context.Context, tx *sedori.Transaction) error {
	query := `
		UPDATE transactions
		SET purchase_date = $2, product_name = $3, quantity = $4, quantity_sold = $5, quantity_in_stock = $6,
			purchase_price_total = $7, card_paid = $8, point_paid = $9, balance_paid = $10,
			payment_method_id = $11, payment_date = $12, expected_points = $13, card_points = $14,
			extra_points = $15, points_platform_id = $16, card_points_platform_id = $17,
			extra_points_platform_id = $18, status = $19, point_status = $20, aggregated_profit = $21,
			aggregated_roi = $22, notes = $23, updated_at = $24
		WHERE id = $1`

	return s.execAffecting(ctx, sedori.ErrTransactionNotFound, "取引更新に失敗しました", query,
		tx.ID,
		tx.PurchaseDate,
		tx.ProductName,
		tx.Quantity,
		tx.QuantitySold,
		tx.QuantityInStock,
		tx.PurchasePriceTotal,
		tx.CardPaid,
		tx.PointPaid,
		tx.BalancePaid,
		tx.PaymentMethodID,
		tx.PaymentDate,
		tx.ExpectedPoints,
		tx.CardPoints,
		tx.ExtraPoints,
		tx.PointsPlatformID,
		tx.CardPointsPlatformID,
		tx.ExtraPointsPlatformID,
		tx.Status,
		tx.PointStatus,
		tx.AggregatedProfit,
		tx.AggregatedROI,
		tx.Notes,
		tx.UpdatedAt,
	)
}

// DeleteTransaction deletes a transaction and its sales records in one database transaction
// 取引と販売記録を1つのDBトランザクションで削除
func (s *PostgreSQLStorage) DeleteTransaction(ctx context.Context, id string) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗しました: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM sales_records WHERE transaction_id = $1`, id); err != nil {
		return mapError(err, nil, "販売記録削除に失敗しました")
	}

	result, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return mapError(err, nil, "取引削除に失敗しました")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return sedori.ErrTransactionNotFound
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗しました: %w", err)
	}
	return nil
}

// buildTransactionFilter 絞り込み条件からWHERE句と引数を組み立てる
func buildTransactionFilter(filter sedori.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.PointStatus != nil {
		add("point_status = $%d", *filter.PointStatus)
	}
	if filter.From != nil {
		add("purchase_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("purchase_date < $%d", *filter.To)
	}

	clause := ""
	if len(conds) > 0 {
		clause = " WHERE " + strings.Join(conds, " AND ")
	}
	clause += " ORDER BY purchase_date DESC, created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		clause += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		clause += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return clause, args
}

// ListTransactions lists transactions matching the filter
// 条件に一致する取引を取得
func (s *PostgreSQLStorage) ListTransactions(ctx context.Context, filter sedori.TransactionFilter) ([]sedori.Transaction, error) {
	clause, args := buildTransactionFilter(filter)
	return s.queryTransactions(ctx, `SELECT `+transactionColumns+` FROM transactions`+clause, args...)
}

// ListTransactionsByPaymentDate lists transactions whose payment date is in [from, to)
// 支払予定日が期間内の取引を取得
func (s *PostgreSQLStorage) ListTransactionsByPaymentDate(ctx context.Context, from, to time.Time) ([]sedori.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE payment_date >= $1 AND payment_date < $2
		ORDER BY payment_date, created_at`
	return s.queryTransactions(ctx, query, from, to)
}

// Sales records
// 販売記録

const salesRecordColumns = `id, transaction_id, quantity_sold, selling_price_per_unit, platform_fee,
		shipping_fee, sale_date, cash_profit, total_profit, roi, notes, created_at`

func scanSalesRecord(row rowScanner) (*sedori.SalesRecord, error) {
	var r sedori.SalesRecord
	err := row.Scan(
		&r.ID,
		&r.TransactionID,
		&r.QuantitySold,
		&r.SellingPricePerUnit,
		&r.PlatformFee,
		&r.ShippingFee,
		&r.SaleDate,
		&r.CashProfit,
		&r.TotalProfit,
		&r.ROI,
		&r.Notes,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgreSQLStorage) querySalesRecords(ctx context.Context, query string, args ...any) ([]sedori.SalesRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("販売記録取得に失敗しました: %w", err)
	}
	defer rows.Close()

	records := make([]sedori.SalesRecord, 0)
	for rows.Next() {
		r, err := scanSalesRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("販売記録スキャンに失敗しました: %w", err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("販売記録の読み込みに失敗しました: %w", err)
	}
	return records, nil
}

// CreateSalesRecord creates a new sales record
// 新しい販売記録を作成
func (s *PostgreSQLStorage) CreateSalesRecord(ctx context.Context, r *sedori.SalesRecord) error {
	query := `
		INSERT INTO sales_records (` + salesRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.TransactionID,
		r.QuantitySold,
		r.SellingPricePerUnit,
		r.PlatformFee,
		r.ShippingFee,
		r.SaleDate,
		r.CashProfit,
		r.TotalProfit,
		r.ROI,
		r.Notes,
		r.CreatedAt,
	)
	return mapError(err, nil, "販売記録作成に失敗しました")
}

// GetSalesRecord retrieves a sales record by ID
// 販売記録を取得
func (s *PostgreSQLStorage) GetSalesRecord(ctx context.Context, id string) (*sedori.SalesRecord, error) {
	query := `SELECT ` + salesRecordColumns + ` FROM sales_records WHERE id = $1`

	r, err := scanSalesRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, sedori.ErrSalesRecordNotFound, "販売記録取得に失敗しました")
	}
	return r, nil
}

// UpdateSalesRecord updates the derived profit figures of a sales record
// 販売記録の利益計算結果を更新
func (s *PostgreSQLStorage) UpdateSalesRecord(ctx context.Context, r *sedori.SalesRecord) error {
	query := `
		UPDATE sales_records
		SET quantity_sold = $2, selling_price_per_unit = $3, platform_fee = $4, shipping_fee = $5,
			sale_date = $6, cash_profit = $7, total_profit = $8, roi = $9, notes = $10
		WHERE id = $1`

	return s.execAffecting(ctx, sedori.ErrSalesRecordNotFound, "販売記録更新に失敗しました", query,
		r.ID,
		r.QuantitySold,
		r.SellingPricePerUnit,
		r.PlatformFee,
		r.ShippingFee,
		r.SaleDate,
		r.CashProfit,
		r.TotalProfit,
		r.ROI,
		r.Notes,
	)
}

// DeleteSalesRecord 販売記録を削除
func (s *PostgreSQLStorage) DeleteSalesRecord(ctx context.Context, id string) error {
	return s.execAffecting(ctx, sedori.ErrSalesRecordNotFound, "販売記録削除に失敗しました",
		`DELETE FROM sales_records WHERE id = $1`, id)
}

// ListSalesRecordsByTransaction lists a transaction's sales ordered by sale date then creation time
// 取引の販売記録を販売日・作成日時順に取得
func (s *PostgreSQLStorage) ListSalesRecordsByTransaction(ctx context.Context, transactionID string) ([]sedori.SalesRecord, error) {
	query := `SELECT ` + salesRecordColumns + `
		FROM sales_records
		WHERE transaction_id = $1
		ORDER BY sale_date, created_at`
	return s.querySalesRecords(ctx, query, transactionID)
}

// ListSalesRecordsByDateRange lists sales with sale date in [from, to)
// 販売日が期間内の販売記録を取得
func (s *PostgreSQLStorage) ListSalesRecordsByDateRange(ctx context.Context, from, to time.Time) ([]sedori.SalesRecord, error) {
	query := `SELECT ` + salesRecordColumns + `
		FROM sales_records
		WHERE sale_date >= $1 AND sale_date < $2
		ORDER BY sale_date, created_at`
	return s.querySalesRecords(ctx, query, from, to)
}

// Payment methods
// 支払方法

const paymentMethodColumns = `id, name, type, closing_day, payment_day, payment_same_month, point_rate,
		is_active, created_at, updated_at`

func scanPaymentMethod(row rowScanner) (*sedori.PaymentMethod, error) {
	var (
		m          sedori.PaymentMethod
		closingDay sql.NullInt32
		paymentDay sql.NullInt32
	)
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Type,
		&closingDay,
		&paymentDay,
		&m.PaymentSameMonth,
		&m.PointRate,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.ClosingDay = nullIntPtr(closingDay)
	m.PaymentDay = nullIntPtr(paymentDay)
	return &m, nil
}

func nullIntPtr(n sql.NullInt32) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

// CreatePaymentMethod 支払方法を作成
func (s *PostgreSQLStorage) CreatePaymentMethod(ctx context.Context, m *sedori.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (` + paymentMethodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.Name, m.Type, m.ClosingDay, m.PaymentDay, m.PaymentSameMonth, m.PointRate,
		m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
	return mapError(err, nil, "支払方法作成に失敗しました")
}

// GetPaymentMethod 支払方法を取得
func (s *PostgreSQLStorage) GetPaymentMethod(ctx context.Context, id string) (*sedori.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE id = $1`

	m, err := scanPaymentMethod(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err, sedori.ErrPaymentMethodNotFound, "支払方法取得に失敗しました")
	}
	return m, nil
}

// ListPaymentMethods 支払方法一覧を取得
func (s *PostgreSQLStorage) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]sedori.PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + `
		FROM payment_methods
		WHERE ($1 = false OR is_active)
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("支払方法一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	methods := make([]sedori.PaymentMethod, 0)
	for rows.Next() {
		m, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("支払方法スキャンに失敗しました: %w", err)
		}
		methods = append(methods, *m)
	}
	return methods, rows.Err()
}

// DeletePaymentMethod 支払方法を削除
func (s *PostgreSQLStorage) DeletePaymentMethod(ctx context.Context, id string) error {
	return s.execAffecting(ctx, sedori.ErrPaymentMethodNotFound, "支払方法削除に失敗しました",
		`DELETE FROM payment_methods WHERE id = $1`, id)
}

// Points platforms
// ポイントプラットフォーム

// CreatePointsPlatform ポイントプラットフォームを作成
func (s *PostgreSQLStorage) CreatePointsPlatform(ctx context.Context, p *sedori.PointsPlatform) error {
	query := `
		INSERT INTO points_platforms (id, name, yen_conversion_rate, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.YenConversionRate, p.IsActive, p.CreatedAt, p.UpdatedAt)
	return mapError(err, nil, "ポイントプラットフォーム作成に失敗しました")
}

// ListPointsPlatforms ポイントプラットフォーム一覧を取得
func (s *PostgreSQLStorage) ListPointsPlatforms(ctx context.Context) ([]sedori.PointsPlatform, error) {
	query := `
		SELECT id, name, yen_conversion_rate, is_active, created_at, updated_at
		FROM points_platforms
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ポイントプラットフォーム一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	platforms := make([]sedori.PointsPlatform, 0)
	for rows.Next() {
		var (
			p    sedori.PointsPlatform
			rate sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.Name, &rate, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ポイントプラットフォームスキャンに失敗しました: %w", err)
		}
		if rate.Valid {
			p.YenConversionRate = &rate.Float64
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}

// DeletePointsPlatform ポイントプラットフォームを削除
func (s *PostgreSQLStorage) DeletePointsPlatform(ctx context.Context, id string) error {
	return s.execAffecting(ctx, sedori.ErrPointsPlatformNotFound, "ポイントプラットフォーム削除に失敗しました",
		`DELETE FROM points_platforms WHERE id = $1`, id)
}

// Supplies costs
// 消耗品費

// CreateSuppliesCost 消耗品費を作成
func (s *PostgreSQLStorage) CreateSuppliesCost(ctx context.Context, c *sedori.SuppliesCost) error {
	query := `
		INSERT INTO supplies_costs (id, purchase_date, category, item_name, amount, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query, c.ID, c.PurchaseDate, c.Category, c.ItemName, c.Amount, c.Notes, c.CreatedAt)
	return mapError(err, nil, "消耗品費作成に失敗しました")
}

// ListSuppliesCosts 購入日が[from, to)の消耗品費を取得
func (s *PostgreSQLStorage) ListSuppliesCosts(ctx context.Context, from, to time.Time) ([]sedori.SuppliesCost, error) {
	query := `
		SELECT id, purchase_date, category, item_name, amount, notes, created_at
		FROM supplies_costs
		WHERE purchase_date >= $1 AND purchase_date < $2
		ORDER BY purchase_date, created_at`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("消耗品費一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	costs := make([]sedori.SuppliesCost, 0)
	for rows.Next() {
		var c sedori.SuppliesCost
		if err := rows.Scan(&c.ID, &c.PurchaseDate, &c.Category, &c.ItemName, &c.Amount, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("消耗品費スキャンに失敗しました: %w", err)
		}
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// DeleteSuppliesCost 消耗品費を削除
func (s *PostgreSQLStorage) DeleteSuppliesCost(ctx context.Context, id string) error {
	return s.execAffecting(ctx, sedori.ErrSuppliesCostNotFound, "消耗品費削除に失敗しました",
		`DELETE FROM supplies_costs WHERE id = $1`, id)
}

// Bank accounts
// 口座

// CreateBankAccount 口座を作成
func (s *PostgreSQLStorage) CreateBankAccount(ctx context.Context, a *sedori.BankAccount) error {
	query := `
		INSERT INTO bank_accounts (id, name, type, balance, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query, a.ID, a.Name, a.Type, a.Balance, a.IsActive, a.CreatedAt, a.UpdatedAt)
	return mapError(err, nil, "口座作成に失敗しました")
}

// UpdateBankBalance 口座残高を更新
func (s *PostgreSQLStorage) UpdateBankBalance(ctx context.Context, id string, balance float64) error {
	return s.execAffecting(ctx, sedori.ErrBankAccountNotFound, "口座残高更新に失敗しました",
		`UPDATE bank_accounts SET balance = $2, updated_at = NOW() WHERE id = $1`, id, balance)
}

// ListBankAccounts 口座一覧を取得
func (s *PostgreSQLStorage) ListBankAccounts(ctx context.Context, activeOnly bool) ([]sedori.BankAccount, error) {
	query := `
		SELECT id, name, type, balance, is_active, created_at, updated_at
		FROM bank_accounts
		WHERE ($1 = false OR is_active)
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("口座一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	accounts := make([]sedori.BankAccount, 0)
	for rows.Next() {
		var a sedori.BankAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.Type, &a.Balance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("口座スキャンに失敗しました: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteBankAccount 口座を削除
func (s *PostgreSQLStorage) DeleteBankAccount(ctx context.Context, id string) error {
	return s.execAffecting(ctx, sedori.ErrBankAccountNotFound, "口座削除に失敗しました",
		`DELETE FROM bank_accounts WHERE id = $1`, id)
}

// Coupons
// クーポン

// CreateCoupon クーポンを作成
func (s *PostgreSQLStorage) CreateCoupon(ctx context.Context, c *sedori.Coupon) error {
	query := `
		INSERT INTO coupons (id, name, discount_amount, expiry_date, is_used, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query, c.ID, c.Name, c.DiscountAmount, c.ExpiryDate, c.IsUsed, c.Notes, c.CreatedAt)
	return mapError(err, nil, "クーポン作成に失敗しました")
}

// MarkCouponUsed クーポンを使用済みにする
func (s *PostgreSQLStorage) MarkCouponUsed(ctx context.Context, id string) error {
	return s.execAffecting(ctx, sedori.ErrCouponNotFound, "クーポン更新に失敗しました",
		`UPDATE coupons SET is_used = true WHERE id = $1`, id)
}

// ListCoupons クーポン一覧を有効期限順に取得
func (s *PostgreSQLStorage) ListCoupons(ctx context.Context, includeUsed bool) ([]sedori.Coupon, error) {
	query := `
		SELECT id, name, discount_amount, expiry_date, is_used, notes, created_at
		FROM coupons
		WHERE ($1 OR NOT is_used)
		ORDER BY expiry_date`

	rows, err := s.db.QueryContext(ctx, query, includeUsed)
	if err != nil {
		return nil, fmt.Errorf("クーポン一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	coupons := make([]sedori.Coupon, 0)
	for rows.Next() {
		var c sedori.Coupon
		if err := rows.Scan(&c.ID, &c.Name, &c.DiscountAmount, &c.ExpiryDate, &c.IsUsed, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("クーポンスキャンに失敗しました: %w", err)
		}
		coupons = append(coupons, c)
	}
	return coupons, rows.Err()
}

// DeleteCoupon クーポンを削除
func (s *PostgreSQLStorage) DeleteCoupon(ctx context.Context, id string) error {
	return s.execAffecting(ctx, sedori.ErrCouponNotFound, "クーポン削除に失敗しました",
		`DELETE FROM coupons WHERE id = $1`, id)
}

// Ping checks database connectivity
// データベース接続を確認
func (s *PostgreSQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
// データベース接続を閉じる
func (s *PostgreSQLStorage) Close() error {
	return s.db.Close()
}
