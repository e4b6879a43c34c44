package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nemonet1337/sedoriKeeper/pkg/sedori"
	"github.com/nemonet1337/sedoriKeeper/pkg/sedori/calc"
)

// Dashboard handles dashboard requests
// ダッシュボードリクエストを処理
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.reports.Dashboard(r.Context(), h.now())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.metrics.observeWaterLevel(dashboard.WaterLevel)
	h.sendSuccess(w, dashboard)
}

// windowFromQuery ?days=N で集計期間を上書き
func windowFromQuery(r *http.Request, fallback time.Duration) (time.Duration, error) {
	s := r.URL.Query().Get("days")
	if s == "" {
		return fallback, nil
	}
	days, err := strconv.Atoi(s)
	if err != nil || days < 0 || days > 366 {
		return 0, sedori.NewValidationError("days", "0から366の整数を指定してください", s)
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

// UpcomingPayments 支払予定一覧
func (h *Handlers) UpcomingPayments(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r, h.config.PaymentWindow)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	payments, err := h.tracker.UpcomingPayments(r.Context(), h.now(), window)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, map[string]interface{}{
		"payments": payments,
		"total":    sedori.TotalUpcoming(payments),
	})
}

// ExpiringCoupons 期限間近のクーポン一覧
func (h *Handlers) ExpiringCoupons(w http.ResponseWriter, r *http.Request) {
	window, err := windowFromQuery(r, h.config.CouponWindow)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	alerts, err := h.tracker.ExpiringCoupons(r.Context(), h.now(), window)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, alerts)
}

// PendingPoints 受取待ちポイント一覧
func (h *Handlers) PendingPoints(w http.ResponseWriter, r *http.Request) {
	summary, err := h.tracker.PendingPoints(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, summary)
}

func yearFromPath(r *http.Request) (int, error) {
	s := mux.Vars(r)["year"]
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, sedori.NewValidationError("year", "年の形式が不正です", s)
	}
	return year, nil
}

// TaxReport handles yearly tax report requests
// 確定申告レポートリクエストを処理
func (h *Handlers) TaxReport(w http.ResponseWriter, r *http.Request) {
	year, err := yearFromPath(r)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	report, err := h.reports.TaxReport(r.Context(), year)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, report)
}

// TaxReportCSV handles yearly tax report CSV downloads
// 確定申告レポートのCSVダウンロードを処理
func (h *Handlers) TaxReportCSV(w http.ResponseWriter, r *http.Request) {
	year, err := yearFromPath(r)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	report, err := h.reports.TaxReport(r.Context(), year)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	body, err := sedori.RenderTaxReportCSV(report)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tax_report_%d.csv"`, year))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		h.logger.Error("CSV送信に失敗しました", zap.Error(err))
	}
}

// CalcPaymentDate 支払予定日を計算
func (h *Handlers) CalcPaymentDate(w http.ResponseWriter, r *http.Request) {
	var req PaymentDateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	purchase, err := parseDate(req.PurchaseDate)
	if err != nil {
		h.sendDomainError(w, sedori.NewValidationError("purchase_date", "日付形式が不正です", req.PurchaseDate))
		return
	}

	paymentDate := calc.PaymentDate(purchase, req.ClosingDay, req.PaymentDay, req.SameMonth)
	days := calc.DaysUntil(h.now(), paymentDate)
	h.sendSuccess(w, map[string]interface{}{
		"closing_date": calc.ClosingDate(purchase, req.ClosingDay).Format(dateLayout),
		"payment_date": paymentDate.Format(dateLayout),
		"days_until":   days,
		"urgency":      calc.DeadlineUrgency(days),
	})
}

// CalcWaterLevel 水位を計算
func (h *Handlers) CalcWaterLevel(w http.ResponseWriter, r *http.Request) {
	var req WaterLevelRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	level := calc.WaterLevel(req.TotalBalance, req.UpcomingPayments)
	h.sendSuccess(w, map[string]interface{}{
		"water_level": level,
		"status":      calc.WaterLevelStatus(level),
		"display":     calc.FormatPercent(level),
	})
}
