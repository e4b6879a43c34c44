package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori"
)

// Pinger reports backend health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds HTTP handlers for the bookkeeping API
// 帳簿API用のHTTPハンドラーを保持
type Handlers struct {
	keeper   sedori.Bookkeeper
	tracker  sedori.TrackingService
	reports  sedori.ReportEngine
	health   Pinger
	config   *sedori.Config
	validate *validator.Validate
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandlers creates new HTTP handlers
// 新しいHTTPハンドラーを作成
func NewHandlers(
	keeper sedori.Bookkeeper,
	tracker sedori.TrackingService,
	reports sedori.ReportEngine,
	health Pinger,
	config *sedori.Config,
	metrics *Metrics,
	logger *zap.Logger,
) *Handlers {
	if config == nil {
		config = sedori.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		keeper:   keeper,
		tracker:  tracker,
		reports:  reports,
		health:   health,
		config:   config,
		validate: newValidator(),
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// newValidator JSONタグ名でエラーを返すバリデーター
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Warn("ヘルスチェックに失敗しました", zap.Error(err))
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	h.sendJSON(w, code, APIResponse{
		Success: code == http.StatusOK,
		Data: map[string]interface{}{
			"status":    status,
			"timestamp": h.now(),
			"service":   "sedoriKeeper",
		},
	})
}

// 取引

// ListTransactions handles transaction list requests
// 取引一覧リクエストを処理
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	transactions, err := h.keeper.ListTransactions(r.Context(), filter)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, transactions)
}

// transactionFilterFromQuery クエリパラメータから絞り込み条件を作成
func transactionFilterFromQuery(r *http.Request) (sedori.TransactionFilter, error) {
	q := r.URL.Query()
	var filter sedori.TransactionFilter

	if s := q.Get("status"); s != "" {
		status := sedori.TransactionStatus(s)
		if err := sedori.ValidateTransactionStatus(status); err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if s := q.Get("point_status"); s != "" {
		status := sedori.PointStatus(s)
		if err := sedori.ValidatePointStatus(status); err != nil {
			return filter, err
		}
		filter.PointStatus = &status
	}
	for _, p := range []struct {
		key string
		dst **time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		if s := q.Get(p.key); s != "" {
			t, err := parseDate(s)
			if err != nil {
				return filter, sedori.NewValidationError(p.key, "日付形式が不正です", s)
			}
			*p.dst = &t
		}
	}
	for _, p := range []struct {
		key string
		dst *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		if s := q.Get(p.key); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return filter, sedori.NewValidationError(p.key, "0以上の整数を指定してください", s)
			}
			*p.dst = n
		}
	}
	return filter, nil
}

// CreateTransaction handles create transaction requests
// 取引作成リクエストを処理
func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	if err := h.keeper.CreateTransaction(r.Context(), tx); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusCreated, APIResponse{Success: true, Data: tx})
}

// GetTransaction handles transaction detail requests
// 取引詳細リクエストを処理
func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	detail, err := h.keeper.GetTransactionDetail(r.Context(), mux.Vars(r)["transactionId"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, detail)
}

// UpdateTransaction handles update transaction requests
// 取引更新リクエストを処理
func (h *Handlers) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	tx.ID = mux.Vars(r)["transactionId"]

	if err := h.keeper.UpdateTransaction(r.Context(), tx); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, tx)
}

// DeleteTransaction handles delete transaction requests
// 取引削除リクエストを処理
func (h *Handlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.keeper.DeleteTransaction(r.Context(), mux.Vars(r)["transactionId"]); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{
		"message": "取引を削除しました",
	})
}

// ListSales handles sales record list requests
// 販売記録一覧リクエストを処理
func (h *Handlers) ListSales(w http.ResponseWriter, r *http.Request) {
	records, err := h.keeper.GetSalesRecords(r.Context(), mux.Vars(r)["transactionId"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, records)
}

// RecordSale handles record sale requests
// 販売登録リクエストを処理
func (h *Handlers) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	record, err := h.keeper.RecordSale(r.Context(), mux.Vars(r)["transactionId"], input)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.metrics.saleRecorded()
	h.sendJSON(w, http.StatusCreated, APIResponse{Success: true, Data: record})
}

// CancelSale handles cancel sale requests
// 販売取消リクエストを処理
func (h *Handlers) CancelSale(w http.ResponseWriter, r *http.Request) {
	if err := h.keeper.CancelSale(r.Context(), mux.Vars(r)["salesRecordId"]); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{
		"message": "販売を取り消しました",
	})
}

// EstimateWholeSale handles whole-lot profit estimate requests
// 一括販売の利益試算リクエストを処理
func (h *Handlers) EstimateWholeSale(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.keeper.WholeSaleEstimate(r.Context(), mux.Vars(r)["transactionId"],
		req.SellingPrice, req.PlatformFee, req.ShippingFee)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, result)
}

// MarkReturned handles return requests
// 返品リクエストを処理
func (h *Handlers) MarkReturned(w http.ResponseWriter, r *http.Request) {
	if err := h.keeper.MarkReturned(r.Context(), mux.Vars(r)["transactionId"]); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{
		"message": "返品として記録しました",
	})
}

// UpdatePointStatus handles point status update requests
// ポイント受取状況の更新リクエストを処理
func (h *Handlers) UpdatePointStatus(w http.ResponseWriter, r *http.Request) {
	var req PointStatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.keeper.UpdatePointStatus(r.Context(), mux.Vars(r)["transactionId"], sedori.PointStatus(req.Status)); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{
		"message": "ポイント受取状況を更新しました",
	})
}

// ヘルパーメソッド

// decodeAndValidate JSONを読み込み、タグでバリデーションする。失敗時はレスポンス送信済み
func (h *Handlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.sendDomainError(w, err)
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes
// ドメインエラーをHTTPステータスに変換
func statusFor(err error) int {
	var (
		validationErr *sedori.ValidationError
		ruleErr       *sedori.BusinessRuleError
		fieldErrs     validator.ValidationErrors
	)
	switch {
	case errors.As(err, &fieldErrs), errors.As(err, &validationErr):
		return http.StatusBadRequest
	case sedori.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, sedori.ErrDuplicateRecord),
		errors.Is(err, sedori.ErrInsufficientStock),
		errors.As(err, &ruleErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// sendDomainError sends an error response with the mapped status
// ドメインエラーを対応するステータスで返す
func (h *Handlers) sendDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = fe.Tag()
		}
		h.sendJSON(w, status, APIResponse{Success: false, Data: fields, Error: "入力値が不正です"})
		return
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("リクエスト処理に失敗しました", zap.Error(err))
		h.sendError(w, status, "内部エラーが発生しました")
		return
	}
	h.sendError(w, status, err.Error())
}

// sendSuccess sends a successful API response
// 成功APIレスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	h.sendJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error API response
// エラーAPIレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	h.sendJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

func (h *Handlers) sendJSON(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}
