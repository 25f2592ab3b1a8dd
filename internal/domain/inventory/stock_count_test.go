package inventory

import (
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestCountSession(t *testing.T) *StockCountSession {
	t.Helper()
	session, err := NewStockCountSession("CNT-1756600000000", uuid.New(), CountTypeFull, time.Now(), uuid.New(), "")
	require.NoError(t, err)
	return session
}

func TestNewStockCountSession(t *testing.T) {
	t.Run("creates planned session", func(t *testing.T) {
		warehouseID := uuid.New()
		creatorID := uuid.New()

		session, err := NewStockCountSession("CNT-001", warehouseID, CountTypeCycle, time.Now(), creatorID, "monthly cycle")

		require.NoError(t, err)
		assert.Equal(t, "CNT-001", session.SessionCode)
		assert.Equal(t, warehouseID, session.WarehouseID)
		assert.Equal(t, CountTypeCycle, session.CountType)
		assert.Equal(t, CountStatusPlanned, session.Status)
		assert.Equal(t, creatorID, session.CreatedBy)
		assert.Empty(t, session.Items)
	})

	t.Run("fails with empty session code", func(t *testing.T) {
		_, err := NewStockCountSession("", uuid.New(), CountTypeFull, time.Now(), uuid.New(), "")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Session code cannot be empty")
	})

	t.Run("fails with invalid count type", func(t *testing.T) {
		_, err := NewStockCountSession("CNT-001", uuid.New(), CountType("weekly"), time.Now(), uuid.New(), "")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid count type")
	})
}

func TestStockCountSession_AddItem(t *testing.T) {
	t.Run("adds item with frozen system quantity", func(t *testing.T) {
		session := createTestCountSession(t)
		itemID := uuid.New()

		err := session.AddItem(itemID, decimal.NewFromInt(100), decimal.NewFromFloat(2.5))

		require.NoError(t, err)
		require.Len(t, session.Items, 1)
		assert.Equal(t, itemID, session.Items[0].ItemID)
		assert.True(t, session.Items[0].SystemQty.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, CountItemPending, session.Items[0].Status)
		assert.Nil(t, session.Items[0].CountedQty)
	})

	t.Run("rejects duplicate item", func(t *testing.T) {
		session := createTestCountSession(t)
		itemID := uuid.New()
		require.NoError(t, session.AddItem(itemID, decimal.NewFromInt(100), decimal.Zero))

		err := session.AddItem(itemID, decimal.NewFromInt(50), decimal.Zero)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "already included")
	})

	t.Run("rejects items once started", func(t *testing.T) {
		session := createTestCountSession(t)
		require.NoError(t, session.AddItem(uuid.New(), decimal.NewFromInt(100), decimal.Zero))
		require.NoError(t, session.Start())

		err := session.AddItem(uuid.New(), decimal.NewFromInt(50), decimal.Zero)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "planned")
	})
}

func TestStockCountSession_Start(t *testing.T) {
	t.Run("starts a planned session with items", func(t *testing.T) {
		session := createTestCountSession(t)
		require.NoError(t, session.AddItem(uuid.New(), decimal.NewFromInt(10), decimal.Zero))

		err := session.Start()

		require.NoError(t, err)
		assert.Equal(t, CountStatusInProgress, session.Status)
		assert.NotNil(t, session.StartedAt)
	})

	t.Run("fails with no items", func(t *testing.T) {
		session := createTestCountSession(t)

		err := session.Start()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no items")
	})

	t.Run("fails when already started", func(t *testing.T) {
		session := createTestCountSession(t)
		require.NoError(t, session.AddItem(uuid.New(), decimal.NewFromInt(10), decimal.Zero))
		require.NoError(t, session.Start())

		err := session.Start()

		require.Error(t, err)
	})
}

func TestStockCountSession_RecordCount(t *testing.T) {
	counterID := uuid.New()

	setup := func(t *testing.T, itemIDs ...uuid.UUID) *StockCountSession {
		session := createTestCountSession(t)
		for _, id := range itemIDs {
			require.NoError(t, session.AddItem(id, decimal.NewFromInt(100), decimal.NewFromInt(3)))
		}
		require.NoError(t, session.Start())
		return session
	}

	t.Run("computes variance and percent", func(t *testing.T) {
		itemID := uuid.New()
		session := setup(t, itemID, uuid.New())

		item, err := session.RecordCount(itemID, decimal.NewFromInt(95), counterID, "shelf damage")

		require.NoError(t, err)
		assert.True(t, item.Variance.Equal(decimal.NewFromInt(-5)))
		assert.True(t, item.VariancePercent.Equal(decimal.NewFromInt(-5)))
		assert.True(t, item.VarianceValue().Equal(decimal.NewFromInt(-15)))
		assert.Equal(t, CountItemCounted, item.Status)
		assert.Equal(t, CountStatusInProgress, session.Status)
		assert.Equal(t, 1, session.PendingItems())
	})

	t.Run("zero system quantity yields zero percent", func(t *testing.T) {
		session := createTestCountSession(t)
		itemID := uuid.New()
		require.NoError(t, session.AddItem(itemID, decimal.Zero, decimal.Zero))
		require.NoError(t, session.Start())

		item, err := session.RecordCount(itemID, decimal.NewFromInt(7), counterID, "")

		require.NoError(t, err)
		assert.True(t, item.Variance.Equal(decimal.NewFromInt(7)))
		assert.True(t, item.VariancePercent.IsZero())
	})

	t.Run("last count advances session to review", func(t *testing.T) {
		first := uuid.New()
		second := uuid.New()
		session := setup(t, first, second)

		_, err := session.RecordCount(first, decimal.NewFromInt(100), counterID, "")
		require.NoError(t, err)
		assert.Equal(t, CountStatusInProgress, session.Status)

		_, err = session.RecordCount(second, decimal.NewFromInt(90), counterID, "")
		require.NoError(t, err)
		assert.Equal(t, CountStatusReview, session.Status)
		assert.Equal(t, 0, session.PendingItems())
	})

	t.Run("recount before review overwrites previous count", func(t *testing.T) {
		itemID := uuid.New()
		session := setup(t, itemID, uuid.New())
		_, err := session.RecordCount(itemID, decimal.NewFromInt(90), counterID, "")
		require.NoError(t, err)

		item, err := session.RecordCount(itemID, decimal.NewFromInt(98), counterID, "recount")

		require.NoError(t, err)
		assert.True(t, item.Variance.Equal(decimal.NewFromInt(-2)))
	})

	t.Run("fails for unknown item", func(t *testing.T) {
		session := setup(t, uuid.New())

		_, err := session.RecordCount(uuid.New(), decimal.NewFromInt(5), counterID, "")

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("fails when session not in progress", func(t *testing.T) {
		session := createTestCountSession(t)
		itemID := uuid.New()
		require.NoError(t, session.AddItem(itemID, decimal.NewFromInt(10), decimal.Zero))

		_, err := session.RecordCount(itemID, decimal.NewFromInt(10), counterID, "")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "planned")
	})

	t.Run("rejects negative counted quantity", func(t *testing.T) {
		itemID := uuid.New()
		session := setup(t, itemID)

		_, err := session.RecordCount(itemID, decimal.NewFromInt(-1), counterID, "")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be negative")
	})
}

func TestStockCountSession_ItemsWithVariance(t *testing.T) {
	session := createTestCountSession(t)
	matched := uuid.New()
	short := uuid.New()
	require.NoError(t, session.AddItem(matched, decimal.NewFromInt(50), decimal.Zero))
	require.NoError(t, session.AddItem(short, decimal.NewFromInt(50), decimal.Zero))
	require.NoError(t, session.Start())
	counterID := uuid.New()
	_, err := session.RecordCount(matched, decimal.NewFromInt(50), counterID, "")
	require.NoError(t, err)
	_, err = session.RecordCount(short, decimal.NewFromInt(45), counterID, "")
	require.NoError(t, err)

	variances := session.ItemsWithVariance()

	require.Len(t, variances, 1)
	assert.Equal(t, short, variances[0].ItemID)
	assert.True(t, variances[0].Variance.Equal(decimal.NewFromInt(-5)))
}

func TestStockCountSession_Approve(t *testing.T) {
	runToReview := func(t *testing.T) *StockCountSession {
		session := createTestCountSession(t)
		itemID := uuid.New()
		require.NoError(t, session.AddItem(itemID, decimal.NewFromInt(10), decimal.Zero))
		require.NoError(t, session.Start())
		_, err := session.RecordCount(itemID, decimal.NewFromInt(8), uuid.New(), "")
		require.NoError(t, err)
		return session
	}

	t.Run("approves session in review", func(t *testing.T) {
		session := runToReview(t)
		approver := uuid.New()

		err := session.Approve(approver)

		require.NoError(t, err)
		assert.Equal(t, CountStatusCompleted, session.Status)
		assert.Equal(t, approver, *session.ApprovedBy)
		assert.NotNil(t, session.CompletedAt)
	})

	t.Run("fails before review", func(t *testing.T) {
		session := createTestCountSession(t)

		err := session.Approve(uuid.New())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "planned")
	})

	t.Run("fails after completion", func(t *testing.T) {
		session := runToReview(t)
		require.NoError(t, session.Approve(uuid.New()))

		err := session.Approve(uuid.New())

		require.Error(t, err)
	})
}

func TestStockCountSession_Cancel(t *testing.T) {
	t.Run("cancels planned session with reason", func(t *testing.T) {
		session := createTestCountSession(t)

		err := session.Cancel("warehouse closed")

		require.NoError(t, err)
		assert.Equal(t, CountStatusCancelled, session.Status)
		assert.Equal(t, "warehouse closed", session.Notes)
	})

	t.Run("cancels in-progress session", func(t *testing.T) {
		session := createTestCountSession(t)
		require.NoError(t, session.AddItem(uuid.New(), decimal.NewFromInt(10), decimal.Zero))
		require.NoError(t, session.Start())

		err := session.Cancel("")

		require.NoError(t, err)
		assert.Equal(t, CountStatusCancelled, session.Status)
	})

	t.Run("cannot cancel completed session", func(t *testing.T) {
		session := createTestCountSession(t)
		itemID := uuid.New()
		require.NoError(t, session.AddItem(itemID, decimal.NewFromInt(10), decimal.Zero))
		require.NoError(t, session.Start())
		_, err := session.RecordCount(itemID, decimal.NewFromInt(10), uuid.New(), "")
		require.NoError(t, err)
		require.NoError(t, session.Approve(uuid.New()))

		err = session.Cancel("too late")

		require.Error(t, err)
	})
}

func TestCountSessionStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    CountSessionStatus
		to      CountSessionStatus
		allowed bool
	}{
		{CountStatusPlanned, CountStatusInProgress, true},
		{CountStatusPlanned, CountStatusCancelled, true},
		{CountStatusPlanned, CountStatusReview, false},
		{CountStatusInProgress, CountStatusReview, true},
		{CountStatusInProgress, CountStatusCompleted, false},
		{CountStatusReview, CountStatusCompleted, true},
		{CountStatusReview, CountStatusInProgress, false},
		{CountStatusCompleted, CountStatusCancelled, false},
		{CountStatusCancelled, CountStatusInProgress, false},
	}

	for _, tc := range cases {
		t.Run(tc.from.String()+"_to_"+tc.to.String(), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}
