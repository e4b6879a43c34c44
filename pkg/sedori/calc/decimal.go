package calc

import (
	"math"

	"github.com/shopspring/decimal"
)

// hundred is used for percentage conversion
var hundred = decimal.NewFromInt(100)

// dec converts a float to decimal, mapping NaN and ±Inf to zero
// NaN/±Infをゼロとして扱いdecimalに変換
func dec(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

// decPtr converts an optional float, nil being zero
func decPtr(f *float64) decimal.Decimal {
	if f == nil {
		return decimal.Zero
	}
	return dec(*f)
}

// out converts a decimal result back to float64
func out(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

// ratio returns part/whole, or zero when whole is not positive
// 分母が正でない場合はゼロを返す
func ratio(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole)
}
