package calc

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultConversionRate applies when a platform has no rate configured
const DefaultConversionRate = 1.0

// Platform is the rate view of a points program
// ポイントプラットフォームの換算レート
type Platform struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	YenConversionRate *float64 `json:"yen_conversion_rate"` // 1ポイントあたりの円換算（nilは1.0）
}

// Rate returns the yen value of one point
func (p *Platform) Rate() float64 {
	if p == nil {
		return 0
	}
	if p.YenConversionRate == nil || math.IsNaN(*p.YenConversionRate) || math.IsInf(*p.YenConversionRate, 0) {
		return DefaultConversionRate
	}
	return *p.YenConversionRate
}

// RateTable maps platform IDs to platforms
type RateTable map[string]Platform

// Lookup returns the platform for id, or nil when unknown
func (t RateTable) Lookup(id string) *Platform {
	if id == "" || t == nil {
		return nil
	}
	p, ok := t[id]
	if !ok {
		return nil
	}
	return &p
}

// PointGrant is one independent bucket of points attached to a purchase
// 購入に付随するポイント付与（プラットフォーム・カード・追加）
type PointGrant struct {
	Points     float64 `json:"points"`
	PlatformID string  `json:"platform_id"`
}

// PointsValue converts points to yen at the platform's rate.
// An absent platform or zero points is worth nothing.
// ポイントを円換算（プラットフォーム未指定は0）
func PointsValue(points float64, platform *Platform) float64 {
	return out(pointsValue(dec(points), platform))
}

func pointsValue(points decimal.Decimal, platform *Platform) decimal.Decimal {
	if platform == nil || points.IsZero() {
		return decimal.Zero
	}
	return points.Mul(dec(platform.Rate()))
}

// TotalPointsValue scales every grant by share, converts each against its own
// platform and sums the results. share is 1 for a whole transaction and
// quantitySold/quantity for a partial sale.
// 各ポイント付与を按分・換算して合計
func TotalPointsValue(grants []PointGrant, rates RateTable, share float64) float64 {
	return out(totalPointsValue(grants, rates, dec(share)))
}

func totalPointsValue(grants []PointGrant, rates RateTable, share decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, g := range grants {
		total = total.Add(pointsValue(dec(g.Points).Mul(share), rates.Lookup(g.PlatformID)))
	}
	return total
}
