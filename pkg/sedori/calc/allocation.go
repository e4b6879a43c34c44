package calc

import (
	"time"

	"github.com/shopspring/decimal"
)

// DatedAmount is a cost on a given date
type DatedAmount struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

type monthKey struct {
	year  int
	month time.Month
}

func monthOf(t time.Time) monthKey {
	y, m, _ := t.Date()
	return monthKey{year: y, month: m}
}

// SuppliesAllocator spreads monthly supplies costs evenly over the transactions
// purchased in the same calendar month.
// 消耗品費を同月の取引件数で均等按分
type SuppliesAllocator struct {
	costs  map[monthKey]decimal.Decimal
	counts map[monthKey]int
}

// NewSuppliesAllocator buckets supplies costs and transaction purchase dates by month
func NewSuppliesAllocator(supplies []DatedAmount, transactionDates []time.Time) *SuppliesAllocator {
	a := &SuppliesAllocator{
		costs:  make(map[monthKey]decimal.Decimal),
		counts: make(map[monthKey]int),
	}
	for _, s := range supplies {
		k := monthOf(s.Date)
		a.costs[k] = a.costs[k].Add(dec(s.Amount))
	}
	for _, d := range transactionDates {
		a.counts[monthOf(d)]++
	}
	return a
}

// MonthlyCost returns the supplies total for the month of date
func (a *SuppliesAllocator) MonthlyCost(date time.Time) float64 {
	if a == nil {
		return 0
	}
	return out(a.costs[monthOf(date)])
}

// TransactionCount returns the number of transactions purchased in the month of date
func (a *SuppliesAllocator) TransactionCount(date time.Time) int {
	if a == nil {
		return 0
	}
	return a.counts[monthOf(date)]
}

// Share returns the supplies cost attributed to one sale of a transaction
// purchased on transactionDate. Every transaction of the month absorbs the same
// share; quantitySoldInEvent does not scale it.
// 1回の販売に按分される消耗品費
func (a *SuppliesAllocator) Share(transactionDate time.Time, quantitySoldInEvent int) float64 {
	return out(a.share(transactionDate))
}

func (a *SuppliesAllocator) share(transactionDate time.Time) decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	k := monthOf(transactionDate)
	count := a.counts[k]
	if count == 0 {
		return decimal.Zero
	}
	return a.costs[k].Div(decimal.NewFromInt(int64(count)))
}

// SuppliesCostAllocation is the one-shot form of SuppliesAllocator.Share
func SuppliesCostAllocation(transactionDate time.Time, quantitySoldInEvent int, supplies []DatedAmount, transactionDates []time.Time) float64 {
	return NewSuppliesAllocator(supplies, transactionDates).Share(transactionDate, quantitySoldInEvent)
}
