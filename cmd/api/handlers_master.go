package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori"
)

// activeOnly ?all=true で無効データも含める
func activeOnly(r *http.Request) bool {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	return !all
}

// 支払方法

// ListPaymentMethods 支払方法一覧
func (h *Handlers) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.keeper.ListPaymentMethods(r.Context(), activeOnly(r))
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, methods)
}

// CreatePaymentMethod 支払方法作成
func (h *Handlers) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req PaymentMethodRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	method := &sedori.PaymentMethod{
		Name:             req.Name,
		Type:             sedori.PaymentMethodType(req.Type),
		ClosingDay:       req.ClosingDay,
		PaymentDay:       req.PaymentDay,
		PaymentSameMonth: req.PaymentSameMonth,
		PointRate:        req.PointRate,
		IsActive:         true,
	}
	if err := h.keeper.CreatePaymentMethod(r.Context(), method); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusCreated, APIResponse{Success: true, Data: method})
}

// DeletePaymentMethod 支払方法削除
func (h *Handlers) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	h.deleteBy(w, r, h.keeper.DeletePaymentMethod)
}

// ポイントプラットフォーム

// ListPointsPlatforms ポイントプラットフォーム一覧
func (h *Handlers) ListPointsPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := h.keeper.ListPointsPlatforms(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, platforms)
}

// CreatePointsPlatform ポイントプラットフォーム作成
func (h *Handlers) CreatePointsPlatform(w http.ResponseWriter, r *http.Request) {
	var req PointsPlatformRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	platform := &sedori.PointsPlatform{
		Name:              req.Name,
		YenConversionRate: req.YenConversionRate,
		IsActive:          true,
	}
	if err := h.keeper.CreatePointsPlatform(r.Context(), platform); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusCreated, APIResponse{Success: true, Data: platform})
}

// DeletePointsPlatform ポイントプラットフォーム削除
func (h *Handlers) DeletePointsPlatform(w http.ResponseWriter, r *http.Request) {
	h.deleteBy(w, r, h.keeper.DeletePointsPlatform)
}

// 消耗品費

// ListSuppliesCosts 消耗品費一覧。期間未指定は当月
func (h *Handlers) ListSuppliesCosts(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	q := r.URL.Query()
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"from", &from}, {"to", &to}} {
		if s := q.Get(p.key); s != "" {
			t, err := parseDate(s)
			if err != nil {
				h.sendDomainError(w, sedori.NewValidationError(p.key, "日付形式が不正です", s))
				return
			}
			*p.dst = t
		}
	}

	costs, err := h.keeper.ListSuppliesCosts(r.Context(), from, to)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, costs)
}

// CreateSuppliesCost 消耗品費作成
func (h *Handlers) CreateSuppliesCost(w http.ResponseWriter, r *http.Request) {
	var req SuppliesCostRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	purchaseDate, err := parseDate(req.PurchaseDate)
	if err != nil {
		h.sendDomainError(w, sedori.NewValidationError("purchase_date", "日付形式が不正です", req.PurchaseDate))
		return
	}
	cost := &sedori.SuppliesCost{
		PurchaseDate: purchaseDate,
		Category:     req.Category,
		ItemName:     req.ItemName,
		Amount:       req.Amount,
		Notes:        req.Notes,
	}
	if err := h.keeper.CreateSuppliesCost(r.Context(), cost); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusCreated, APIResponse{Success: true, Data: cost})
}

// DeleteSuppliesCost 消耗品費削除
func (h *Handlers) DeleteSuppliesCost(w http.ResponseWriter, r *http.Request) {
	h.deleteBy(w, r, h.keeper.DeleteSuppliesCost)
}

// 口座

// ListBankAccounts 口座一覧
func (h *Handlers) ListBankAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.keeper.ListBankAccounts(r.Context(), activeOnly(r))
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, accounts)
}

// CreateBankAccount 口座作成
func (h *Handlers) CreateBankAccount(w http.ResponseWriter, r *http.Request) {
	var req BankAccountRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	account := &sedori.BankAccount{
		Name:     req.Name,
		Type:     sedori.BankAccountType(req.Type),
		Balance:  req.Balance,
		IsActive: true,
	}
	if err := h.keeper.CreateBankAccount(r.Context(), account); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusCreated, APIResponse{Success: true, Data: account})
}

// UpdateBankBalance 口座残高更新
func (h *Handlers) UpdateBankBalance(w http.ResponseWriter, r *http.Request) {
	var req BalanceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.keeper.UpdateBankBalance(r.Context(), mux.Vars(r)["id"], *req.Balance); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{
		"message": "残高を更新しました",
	})
}

// DeleteBankAccount 口座削除
func (h *Handlers) DeleteBankAccount(w http.ResponseWriter, r *http.Request) {
	h.deleteBy(w, r, h.keeper.DeleteBankAccount)
}

// クーポン

// ListCoupons クーポン一覧。?all=true で使用済みも含める
func (h *Handlers) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.keeper.ListCoupons(r.Context(), !activeOnly(r))
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, coupons)
}

// CreateCoupon クーポン作成
func (h *Handlers) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CouponRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		h.sendDomainError(w, sedori.NewValidationError("expiry_date", "日付形式が不正です", req.ExpiryDate))
		return
	}
	coupon := &sedori.Coupon{
		Name:           req.Name,
		DiscountAmount: req.DiscountAmount,
		ExpiryDate:     expiry,
		Notes:          req.Notes,
	}
	if err := h.keeper.CreateCoupon(r.Context(), coupon); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendJSON(w, http.StatusCreated, APIResponse{Success: true, Data: coupon})
}

// UseCoupon クーポン使用
func (h *Handlers) UseCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.keeper.UseCoupon(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{
		"message": "クーポンを使用済みにしました",
	})
}

// DeleteCoupon クーポン削除
func (h *Handlers) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	h.deleteBy(w, r, h.keeper.DeleteCoupon)
}

// deleteBy パスの{id}で削除を実行
func (h *Handlers) deleteBy(w http.ResponseWriter, r *http.Request, del func(ctx context.Context, id string) error) {
	if err := del(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]string{
		"message": "削除しました",
	})
}
