package calc

import "time"

// PaymentCycle describes when a card purchase is billed and paid
// カードの締め日・支払日サイクル
type PaymentCycle struct {
	ClosingDay int  `json:"closing_day"`        // 締め日 (1-31)
	PaymentDay int  `json:"payment_day"`        // 支払日 (1-31)
	SameMonth  bool `json:"payment_same_month"` // 締め月と同月払い
}

// PaymentDate projects the payment date of a purchase under this cycle
func (c PaymentCycle) PaymentDate(purchase time.Time) time.Time {
	return PaymentDate(purchase, c.ClosingDay, c.PaymentDay, c.SameMonth)
}

// PaymentDate projects a card payment date from the purchase date.
//
// The statement closes in the purchase month unless the purchase day is after
// closingDay, in which case it closes the following month. Payment falls in the
// closing month when sameMonth is set, otherwise in the month after it.
// A paymentDay past the end of the resulting month overflows into the next
// month (Feb 31 becomes Mar 3 or Mar 2) following time.Date normalization.
//
// 購入日と締め日・支払日から支払予定日を算出
func PaymentDate(purchase time.Time, closingDay, paymentDay int, sameMonth bool) time.Time {
	year, month, day := purchase.Date()

	// 締め日を過ぎた購入は翌月締め
	if day > closingDay {
		month++
	}
	if !sameMonth {
		month++
	}

	// 月・年の繰り上がりと日のはみ出しはtime.Dateが正規化する
	return time.Date(year, month, paymentDay, 0, 0, 0, 0, purchase.Location())
}

// ClosingDate returns the statement closing date a purchase belongs to.
// The statement month is the one PaymentDate counts from; a closingDay beyond
// that month's length reads as its last day (closing day 31 closes Feb 28).
// 購入が属する締め日を算出（月末超過は月末に丸める）
func ClosingDate(purchase time.Time, closingDay int) time.Time {
	year, month, day := purchase.Date()
	if day > closingDay {
		month++
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, purchase.Location())
	last := first.AddDate(0, 1, -1).Day()
	if closingDay > last {
		closingDay = last
	}
	return time.Date(first.Year(), first.Month(), closingDay, 0, 0, 0, 0, purchase.Location())
}
