package calc

import "github.com/shopspring/decimal"

// WaterStatus is the liquidity band of a water level
// 水位（資金余力）の状態
type WaterStatus string

const (
	WaterSafe    WaterStatus = "safe"    // 安全 (50%以上)
	WaterWarning WaterStatus = "warning" // 注意 (20%以上)
	WaterDanger  WaterStatus = "danger"  // 危険 (20%未満)
)

// WaterLevel returns how much of the balance survives upcoming payments, as 0-100.
// ≤0 balance is 0; no upcoming payments is 100.
// 残高と支払予定から水位(0-100)を算出
func WaterLevel(totalBalance, upcomingPayments float64) float64 {
	balance := dec(totalBalance)
	payments := dec(upcomingPayments)

	if !balance.IsPositive() {
		return 0
	}
	if !payments.IsPositive() {
		return 100
	}

	pct := balance.Sub(payments).Div(balance).Mul(hundred)
	switch {
	case pct.LessThan(decimal.Zero):
		return 0
	case pct.GreaterThan(hundred):
		return 100
	}
	return out(pct)
}

// WaterLevelStatus classifies a water level percentage
func WaterLevelStatus(percentage float64) WaterStatus {
	pct := dec(percentage)
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return WaterSafe
	case pct.GreaterThanOrEqual(decimal.NewFromInt(20)):
		return WaterWarning
	default:
		return WaterDanger
	}
}
