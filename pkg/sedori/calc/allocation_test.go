package calc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestSuppliesAllocator は消耗品費按分のテスト
func TestSuppliesAllocator(t *testing.T) {
	supplies := []DatedAmount{
		{Date: date(2024, 1, 3), Amount: 1000},
		{Date: date(2024, 1, 28), Amount: 500},
		{Date: date(2024, 2, 1), Amount: 900},
		{Date: date(2023, 1, 15), Amount: 9999},
	}
	txDates := []time.Time{
		date(2024, 1, 5),
		date(2024, 1, 10),
		date(2024, 1, 31),
		date(2024, 3, 1),
	}

	a := NewSuppliesAllocator(supplies, txDates)

	assert.Equal(t, 1500.0, a.MonthlyCost(date(2024, 1, 20)))
	assert.Equal(t, 3, a.TransactionCount(date(2024, 1, 1)))
	assert.Equal(t, 500.0, a.Share(date(2024, 1, 10), 1))

	t.Run("month without transactions", func(t *testing.T) {
		assert.Equal(t, 0.0, a.Share(date(2024, 2, 10), 1))
	})

	t.Run("month without supplies", func(t *testing.T) {
		assert.Equal(t, 0.0, a.Share(date(2024, 3, 1), 1))
	})

	t.Run("quantity does not scale the share", func(t *testing.T) {
		assert.Equal(t, a.Share(date(2024, 1, 10), 1), a.Share(date(2024, 1, 10), 50))
	})

	t.Run("nil allocator", func(t *testing.T) {
		var none *SuppliesAllocator
		assert.Equal(t, 0.0, none.Share(date(2024, 1, 10), 1))
		assert.Equal(t, 0, none.TransactionCount(date(2024, 1, 10)))
	})
}

// TestSuppliesCostAllocation はワンショット版のテスト
func TestSuppliesCostAllocation(t *testing.T) {
	supplies := []DatedAmount{{Date: date(2024, 5, 2), Amount: 1000}}
	txDates := []time.Time{date(2024, 5, 1), date(2024, 5, 9), date(2024, 5, 20)}

	got := SuppliesCostAllocation(date(2024, 5, 9), 2, supplies, txDates)

	assert.InDelta(t, 333.3333, got, 1e-3)
	assert.Equal(t, 0.0, SuppliesCostAllocation(date(2024, 5, 9), 2, supplies, nil))
}
