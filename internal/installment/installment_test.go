package installment

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpand(t *testing.T) {
	t.Run("three equal installments", func(t *testing.T) {
		drafts, err := Expand(Purchase{
			Description: "Notebook",
			Total:       decimal.NewFromInt(1200),
			Count:       3,
			FirstDate:   date(2025, time.January, 10),
		})
		require.NoError(t, err)
		require.Len(t, drafts, 3)

		wantDates := []string{"2025-01-10", "2025-02-10", "2025-03-10"}
		wantDesc := []string{"Notebook (1/3)", "Notebook (2/3)", "Notebook (3/3)"}
		for i, d := range drafts {
			assert.Equal(t, wantDates[i], d.Date.Format("2006-01-02"))
			assert.Equal(t, wantDesc[i], d.Description)
			assert.True(t, decimal.NewFromInt(400).Equal(d.Amount))
			assert.Equal(t, i == 0, d.IsParent)
			assert.Equal(t, i+1, d.Number)
		}
	})

	t.Run("single installment keeps description", func(t *testing.T) {
		drafts, err := Expand(Purchase{Description: "Café", Total: decimal.NewFromInt(10), Count: 1, FirstDate: date(2025, 5, 1)})
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, "Café", drafts[0].Description)
		assert.True(t, drafts[0].IsParent)
	})

	t.Run("end of month is clamped", func(t *testing.T) {
		drafts, err := Expand(Purchase{Description: "x", Total: decimal.NewFromInt(300), Count: 3, FirstDate: date(2024, time.January, 31)})
		require.NoError(t, err)
		assert.Equal(t, "2024-02-29", drafts[1].Date.Format("2006-01-02"))
		assert.Equal(t, "2024-03-31", drafts[2].Date.Format("2006-01-02"))
	})

	t.Run("crosses year boundary", func(t *testing.T) {
		assert.Equal(t, date(2026, time.February, 28), AddMonths(date(2025, time.November, 30), 3))
	})

	t.Run("sum conserved within rounding and one parent", func(t *testing.T) {
		totals := []string{"1200", "100", "99.99", "1000", "7.77", "1234.57"}
		for _, raw := range totals {
			total := decimal.RequireFromString(raw)
			for count := 1; count <= 24; count++ {
				drafts, err := Expand(Purchase{Description: "p", Total: total, Count: count, FirstDate: date(2025, 1, 15)})
				require.NoError(t, err)

				sum := decimal.Zero
				parents := 0
				for _, d := range drafts {
					sum = sum.Add(d.Amount)
					if d.IsParent {
						parents++
					}
				}
				tolerance := decimal.New(5, -3).Mul(decimal.NewFromInt(int64(count)))
				assert.True(t, sum.Sub(total).Abs().LessThanOrEqual(tolerance), "total %s count %d sum %s", raw, count, sum)
				assert.Equal(t, 1, parents)
			}
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := Expand(Purchase{Total: decimal.NewFromInt(10), Count: 0})
		assert.ErrorIs(t, err, ErrInvalidCount)
		_, err = Expand(Purchase{Total: decimal.NewFromInt(10), Count: MaxCount + 1})
		assert.ErrorIs(t, err, ErrInvalidCount)
		_, err = Expand(Purchase{Total: decimal.Zero, Count: 2})
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = Expand(Purchase{Total: decimal.RequireFromString("0.05"), Count: 12})
		assert.ErrorIs(t, err, ErrAmountTooSmall)
	})
}
