// Package calc holds the pure financial derivation engine for resale bookkeeping:
// formatting, card payment dates, points valuation, supplies cost allocation,
// profit/ROI and the water-level liquidity indicator.
//
// 転売記帳用の純粋な計算エンジン。I/Oは行わず、エラーも返さない。
package calc

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Urgency classifies how close a date is
// 期日までの緊急度
type Urgency string

const (
	UrgencyExpired Urgency = "expired" // 期限切れ
	UrgencyUrgent  Urgency = "urgent"  // 3日以内
	UrgencyWarning Urgency = "warning" // 7日以内
	UrgencyNormal  Urgency = "normal"  // 通常
)

// FormatCurrency renders an optional yen amount, nil rendering as ¥0
// 円金額を表示用文字列に変換（nilは¥0）
func FormatCurrency(amount *float64) string {
	if amount == nil {
		return FormatYen(0)
	}
	return FormatYen(*amount)
}

// FormatYen renders an amount as a grouped integer with a yen sign, e.g. ¥12,345 or -¥500.
// 3桁区切りの円表記に変換
func FormatYen(amount float64) string {
	n := dec(amount).Round(0).IntPart()
	p := message.NewPrinter(language.Japanese)
	if n < 0 {
		return "-¥" + p.Sprintf("%d", -n)
	}
	return "¥" + p.Sprintf("%d", n)
}

// FormatROI renders an optional percentage with an explicit sign and two decimals
// 符号付き小数2桁のパーセント表記に変換（nilは+0.00%）
func FormatROI(percentage *float64) string {
	if percentage == nil {
		return FormatPercent(0)
	}
	return FormatPercent(*percentage)
}

// FormatPercent renders a percentage such as +12.50% or -3.00%.
// The sign is taken after rounding, so values that round to zero print +0.00%.
func FormatPercent(percentage float64) string {
	r := dec(percentage).Round(2)
	if r.IsNegative() {
		return r.StringFixed(2) + "%"
	}
	return "+" + r.StringFixed(2) + "%"
}

// DaysUntil returns whole days from now's calendar date to target's calendar date.
// Each side keeps the date it has in its own zone, so a DATE column decoded as
// UTC midnight counts as that day for a caller in any zone.
// Negative means target is in the past.
// 本日から対象日までの日数（過去は負）
func DaysUntil(now, target time.Time) int {
	loc := now.Location()
	diff := midnight(target, loc).Sub(midnight(now, loc))
	// DST days are 23 or 25 hours long
	return int(math.Round(diff.Hours() / 24))
}

// UrgencyLevel classifies days remaining into the four-state scale:
// expired (<0), urgent (0-3), warning (4-7), normal.
// 4段階の緊急度分類（期限切れを含む）
func UrgencyLevel(days int) Urgency {
	switch {
	case days < 0:
		return UrgencyExpired
	case days <= 3:
		return UrgencyUrgent
	case days <= 7:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// DeadlineUrgency is the three-state variant used for payment deadlines.
// Negative days are reported as normal; overdue handling belongs to the caller.
// 3段階の緊急度分類（期限超過は呼び出し側で扱う）
func DeadlineUrgency(days int) Urgency {
	switch {
	case days < 0:
		return UrgencyNormal
	case days <= 3:
		return UrgencyUrgent
	case days <= 7:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// midnight places t's own calendar date at midnight in loc
func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
