package calc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

// TestFormatCurrency は円表記フォーマットのテスト
func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name   string
		amount *float64
		want   string
	}{
		{"nil", nil, "¥0"},
		{"zero", ptr(0), "¥0"},
		{"grouped", ptr(1234567), "¥1,234,567"},
		{"rounds half away from zero", ptr(1234.5), "¥1,235"},
		{"negative", ptr(-500), "-¥500"},
		{"negative grouped", ptr(-12345.4), "-¥12,345"},
		{"NaN", ptr(math.NaN()), "¥0"},
		{"Inf", ptr(math.Inf(1)), "¥0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCurrency(tt.amount))
		})
	}
}

// TestFormatROI は符号付きパーセント表記のテスト
func TestFormatROI(t *testing.T) {
	tests := []struct {
		name string
		pct  *float64
		want string
	}{
		{"nil", nil, "+0.00%"},
		{"zero", ptr(0), "+0.00%"},
		{"positive", ptr(50), "+50.00%"},
		{"rounding", ptr(12.345), "+12.35%"},
		{"negative", ptr(-3), "-3.00%"},
		{"negative rounding to zero", ptr(-0.004), "+0.00%"},
		{"NaN", ptr(math.NaN()), "+0.00%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatROI(tt.pct))
		})
	}
}

// TestFormat_Pure は同じ入力に対して常に同じ出力になることのテスト
func TestFormat_Pure(t *testing.T) {
	for i := 0; i < 5; i++ {
		assert.Equal(t, "¥98,765", FormatYen(98765.2))
		assert.Equal(t, "-7.25%", FormatPercent(-7.25))
	}
}

// TestDaysUntil は日数差計算のテスト
func TestDaysUntil(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	now := time.Date(2024, 3, 10, 23, 30, 0, 0, jst)

	tests := []struct {
		name   string
		target time.Time
		want   int
	}{
		{"same day earlier hour", time.Date(2024, 3, 10, 1, 0, 0, 0, jst), 0},
		{"tomorrow early morning", time.Date(2024, 3, 11, 0, 5, 0, 0, jst), 1},
		{"three days", time.Date(2024, 3, 13, 12, 0, 0, 0, jst), 3},
		{"past", time.Date(2024, 3, 8, 12, 0, 0, 0, jst), -2},
		{"across month", time.Date(2024, 4, 1, 0, 0, 0, 0, jst), 22},
		// 対象日の暦日はそのゾーンで判定する
		{"calendar date in other zone", time.Date(2024, 3, 11, 15, 0, 0, 0, time.UTC), 1},
		{"utc midnight date", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(now, tt.target))
		})
	}
}

// TestDaysUntil_NegativeOffset はUTC深夜の日付が西側のタイムゾーンでずれないことのテスト
func TestDaysUntil_NegativeOffset(t *testing.T) {
	newYork := time.FixedZone("EST", -5*60*60)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, newYork)

	tests := []struct {
		name   string
		target time.Time
		want   int
	}{
		{"due today", date(2024, 3, 1), 0},
		{"four days", date(2024, 3, 5), 4},
		{"yesterday", date(2024, 2, 29), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days := DaysUntil(now, tt.target)
			assert.Equal(t, tt.want, days)
			assert.Equal(t, tt.want < 0, UrgencyLevel(days) == UrgencyExpired)
		})
	}
}

// TestUrgencyLevel は4段階緊急度分類のテスト
func TestUrgencyLevel(t *testing.T) {
	tests := []struct {
		days int
		want Urgency
	}{
		{-1, UrgencyExpired},
		{-30, UrgencyExpired},
		{0, UrgencyUrgent},
		{3, UrgencyUrgent},
		{4, UrgencyWarning},
		{7, UrgencyWarning},
		{8, UrgencyNormal},
		{100, UrgencyNormal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, UrgencyLevel(tt.days), "days=%d", tt.days)
	}
}

// TestDeadlineUrgency は3段階緊急度分類のテスト
func TestDeadlineUrgency(t *testing.T) {
	assert.Equal(t, UrgencyNormal, DeadlineUrgency(-1))
	assert.Equal(t, UrgencyUrgent, DeadlineUrgency(0))
	assert.Equal(t, UrgencyUrgent, DeadlineUrgency(3))
	assert.Equal(t, UrgencyWarning, DeadlineUrgency(4))
	assert.Equal(t, UrgencyWarning, DeadlineUrgency(7))
	assert.Equal(t, UrgencyNormal, DeadlineUrgency(8))
}
