package sedori

import (
	"errors"
	"fmt"
)

// Common bookkeeping errors
// 共通の帳簿エラー定義

var (
	// ErrTransactionNotFound is returned when a transaction doesn't exist
	// 取引が存在しない場合のエラー
	ErrTransactionNotFound = errors.New("取引が見つかりません")

	// ErrSalesRecordNotFound is returned when a sales record doesn't exist
	// 販売記録が存在しない場合のエラー
	ErrSalesRecordNotFound = errors.New("販売記録が見つかりません")

	// ErrPaymentMethodNotFound is returned when a payment method doesn't exist
	// 支払方法が存在しない場合のエラー
	ErrPaymentMethodNotFound = errors.New("支払方法が見つかりません")

	// ErrPointsPlatformNotFound is returned when a points platform doesn't exist
	// ポイントプラットフォームが存在しない場合のエラー
	ErrPointsPlatformNotFound = errors.New("ポイントプラットフォームが見つかりません")

	// ErrSuppliesCostNotFound is returned when a supplies cost doesn't exist
	// 消耗品費が存在しない場合のエラー
	ErrSuppliesCostNotFound = errors.New("消耗品費が見つかりません")

	// ErrBankAccountNotFound is returned when a bank account doesn't exist
	// 口座が存在しない場合のエラー
	ErrBankAccountNotFound = errors.New("口座が見つかりません")

	// ErrCouponNotFound is returned when a coupon doesn't exist
	// クーポンが存在しない場合のエラー
	ErrCouponNotFound = errors.New("クーポンが見つかりません")

	// ErrInsufficientStock is returned when a sale exceeds the remaining quantity
	// 販売数量が残り在庫を超える場合のエラー
	ErrInsufficientStock = errors.New("在庫が不足しています")

	// ErrDuplicateRecord is returned on a unique constraint violation
	// 一意制約違反の場合のエラー
	ErrDuplicateRecord = errors.New("レコードは既に存在します")
)

// IsNotFound reports whether err is one of the not-found sentinels
// errがいずれかの「見つかりません」エラーかを判定
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrTransactionNotFound,
		ErrSalesRecordNotFound,
		ErrPaymentMethodNotFound,
		ErrPointsPlatformNotFound,
		ErrSuppliesCostNotFound,
		ErrBankAccountNotFound,
		ErrCouponNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ValidationError represents a validation error with details
// 詳細付きバリデーションエラーを表現
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

// BusinessRuleError represents a business rule violation
// ビジネスルール違反を表現
type BusinessRuleError struct {
	Rule    string `json:"rule"`    // ルール名
	Message string `json:"message"` // エラーメッセージ
	Context string `json:"context"` // コンテキスト情報
}

func (e BusinessRuleError) Error() string {
	return fmt.Sprintf("ビジネスルール違反 [%s]: %s (コンテキスト: %s)", e.Rule, e.Message, e.Context)
}

// StorageError represents a storage layer error
// ストレージ層のエラーを表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e StorageError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewBusinessRuleError creates a new business rule error
// 新しいビジネスルールエラーを作成
func NewBusinessRuleError(rule, message, context string) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// wrapStorage passes not-found sentinels through and wraps everything else
func wrapStorage(operation, message string, err error) error {
	if IsNotFound(err) || errors.Is(err, ErrDuplicateRecord) {
		return err
	}
	return NewStorageError(operation, message, err)
}
