package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockCountService_CreateSession(t *testing.T) {
	ctx := context.Background()
	creatorID := uuid.New()

	t.Run("full count covers every snapshot in the warehouse", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		env.seedSnapshot(warehouseID, uuid.New(), 10, 1)
		env.seedSnapshot(warehouseID, uuid.New(), 20, 1)
		env.seedSnapshot(uuid.New(), uuid.New(), 30, 1)

		resp, err := env.countSvc.CreateSession(ctx, CreateCountSessionRequest{
			WarehouseID: warehouseID,
			CountType:   "full",
			PlannedDate: time.Now(),
			CreatedBy:   creatorID,
		})

		require.NoError(t, err)
		assert.Contains(t, resp.SessionCode, "CNT-")
		assert.Equal(t, "planned", resp.Status)
		assert.Equal(t, 2, resp.TotalItems)
		assert.Equal(t, 2, resp.PendingItems)
	})

	t.Run("cycle count picks the highest-value items", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		// 25 snapshots with ascending value; the cycle keeps the top 20
		cheapest := env.seedSnapshot(warehouseID, uuid.New(), 1, 1)
		for i := 2; i <= 25; i++ {
			env.seedSnapshot(warehouseID, uuid.New(), int64(i), float64(i))
		}

		resp, err := env.countSvc.CreateSession(ctx, CreateCountSessionRequest{
			WarehouseID: warehouseID,
			CountType:   "cycle",
			PlannedDate: time.Now(),
			CreatedBy:   creatorID,
		})

		require.NoError(t, err)
		assert.Equal(t, CycleCountSize, resp.TotalItems)
		for _, item := range resp.Items {
			assert.NotEqual(t, cheapest.ItemID, item.ItemID)
		}
	})

	t.Run("spot count uses the requested items and freezes system quantities", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		itemID := uuid.New()
		env.seedSnapshot(warehouseID, itemID, 77, 3)

		resp, err := env.countSvc.CreateSession(ctx, CreateCountSessionRequest{
			WarehouseID: warehouseID,
			CountType:   "spot",
			ItemIDs:     []uuid.UUID{itemID},
			PlannedDate: time.Now(),
			CreatedBy:   creatorID,
		})

		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.True(t, resp.Items[0].SystemQty.Equal(decimal.NewFromInt(77)))
	})

	t.Run("spot count without items is rejected", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.countSvc.CreateSession(ctx, CreateCountSessionRequest{
			WarehouseID: uuid.New(),
			CountType:   "spot",
			PlannedDate: time.Now(),
			CreatedBy:   creatorID,
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one item")
	})

	t.Run("empty warehouse cannot be counted", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.countSvc.CreateSession(ctx, CreateCountSessionRequest{
			WarehouseID: uuid.New(),
			CountType:   "full",
			PlannedDate: time.Now(),
			CreatedBy:   creatorID,
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "No items to count")
	})
}

// runSessionToReview plans a spot count over the given items, starts it, and
// submits the provided counted quantities.
func runSessionToReview(t *testing.T, env *testEnv, warehouseID uuid.UUID, counts map[uuid.UUID]int64) *CountSessionResponse {
	t.Helper()
	ctx := context.Background()

	itemIDs := make([]uuid.UUID, 0, len(counts))
	for itemID := range counts {
		itemIDs = append(itemIDs, itemID)
	}

	session, err := env.countSvc.CreateSession(ctx, CreateCountSessionRequest{
		WarehouseID: warehouseID,
		CountType:   "spot",
		ItemIDs:     itemIDs,
		PlannedDate: time.Now(),
		CreatedBy:   uuid.New(),
	})
	require.NoError(t, err)

	_, err = env.countSvc.StartSession(ctx, session.ID)
	require.NoError(t, err)

	var last *CountSessionResponse
	for itemID, counted := range counts {
		last, err = env.countSvc.SubmitCount(ctx, SubmitCountRequest{
			SessionID:  session.ID,
			ItemID:     itemID,
			CountedQty: decimal.NewFromInt(counted),
			CountedBy:  uuid.New(),
		})
		require.NoError(t, err)
	}
	return last
}

func TestStockCountService_Workflow(t *testing.T) {
	ctx := context.Background()

	t.Run("session reaches review after the last submission", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		first := uuid.New()
		second := uuid.New()
		env.seedSnapshot(warehouseID, first, 100, 1)
		env.seedSnapshot(warehouseID, second, 50, 1)

		session := runSessionToReview(t, env, warehouseID, map[uuid.UUID]int64{
			first:  100,
			second: 45,
		})

		assert.Equal(t, "review", session.Status)
		assert.Equal(t, 0, session.PendingItems)
	})

	t.Run("variance report lists only non-zero variances", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		matched := uuid.New()
		short := uuid.New()
		env.seedSnapshot(warehouseID, matched, 100, 2)
		env.seedSnapshot(warehouseID, short, 50, 2)

		session := runSessionToReview(t, env, warehouseID, map[uuid.UUID]int64{
			matched: 100,
			short:   44,
		})

		report, err := env.countSvc.GetVarianceReport(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, report.TotalItems)
		assert.Equal(t, 1, report.ItemsWithVariance)
		require.Len(t, report.Items, 1)
		assert.Equal(t, short, report.Items[0].ItemID)
		assert.True(t, report.Items[0].Variance.Equal(decimal.NewFromInt(-6)))
		assert.True(t, report.TotalVarianceValue.Equal(decimal.NewFromInt(-12)))
	})

	t.Run("variance report aggregates surplus, shortage and percent", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		matched := uuid.New()
		short := uuid.New()
		over := uuid.New()
		env.seedSnapshot(warehouseID, matched, 100, 2)
		env.seedSnapshot(warehouseID, short, 50, 2)
		env.seedSnapshot(warehouseID, over, 50, 2)

		session := runSessionToReview(t, env, warehouseID, map[uuid.UUID]int64{
			matched: 100,
			short:   44,
			over:    53,
		})

		report, err := env.countSvc.GetVarianceReport(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, report.TotalSurplus.Equal(decimal.NewFromInt(3)))
		assert.True(t, report.TotalShortage.Equal(decimal.NewFromInt(6)))
		// (0% + 12% + 6%) / 3 items, absolute values
		assert.True(t, report.AvgVariancePercent.Equal(decimal.NewFromInt(6)))
	})

	t.Run("submissions read the session under lock", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		first := uuid.New()
		second := uuid.New()
		env.seedSnapshot(warehouseID, first, 100, 1)
		env.seedSnapshot(warehouseID, second, 50, 1)

		session := runSessionToReview(t, env, warehouseID, map[uuid.UUID]int64{
			first:  98,
			second: 45,
		})

		// Both counts must survive into the stored session; a stale unlocked
		// read would let the second submission overwrite the first
		stored, err := env.countSvc.GetSession(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, "review", stored.Status)
		for _, item := range stored.Items {
			assert.Equal(t, "counted", item.Status)
			require.NotNil(t, item.CountedQty)
		}
		// StartSession plus one locked read per submission
		assert.Equal(t, 3, env.counts.lockedReadCount())
	})

	t.Run("cannot start twice or submit before start", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		itemID := uuid.New()
		env.seedSnapshot(warehouseID, itemID, 10, 1)

		session, err := env.countSvc.CreateSession(ctx, CreateCountSessionRequest{
			WarehouseID: warehouseID,
			CountType:   "spot",
			ItemIDs:     []uuid.UUID{itemID},
			PlannedDate: time.Now(),
			CreatedBy:   uuid.New(),
		})
		require.NoError(t, err)

		_, err = env.countSvc.SubmitCount(ctx, SubmitCountRequest{
			SessionID: session.ID, ItemID: itemID,
			CountedQty: decimal.NewFromInt(9), CountedBy: uuid.New(),
		})
		require.Error(t, err)

		_, err = env.countSvc.StartSession(ctx, session.ID)
		require.NoError(t, err)
		_, err = env.countSvc.StartSession(ctx, session.ID)
		require.Error(t, err)
	})
}

func TestStockCountService_ApproveAndAdjust(t *testing.T) {
	ctx := context.Background()

	t.Run("approval writes variances back to snapshots and the ledger", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		short := uuid.New()
		over := uuid.New()
		matched := uuid.New()
		env.seedSnapshot(warehouseID, short, 100, 2)
		env.seedSnapshot(warehouseID, over, 50, 2)
		env.seedSnapshot(warehouseID, matched, 30, 2)

		session := runSessionToReview(t, env, warehouseID, map[uuid.UUID]int64{
			short:   95,
			over:    53,
			matched: 30,
		})
		approverID := uuid.New()

		resp, err := env.countSvc.ApproveAndAdjust(ctx, session.ID, approverID, true)

		require.NoError(t, err)
		assert.Equal(t, "completed", resp.Status)
		require.NotNil(t, resp.ApprovedBy)
		assert.Equal(t, approverID, *resp.ApprovedBy)
		assert.NotNil(t, resp.CompletedAt)

		shortSnap, err := env.snapshots.FindByKey(ctx, warehouseID, short)
		require.NoError(t, err)
		assert.True(t, shortSnap.Quantity.Equal(decimal.NewFromInt(95)))
		assert.NotNil(t, shortSnap.LastCountedAt)

		overSnap, err := env.snapshots.FindByKey(ctx, warehouseID, over)
		require.NoError(t, err)
		assert.True(t, overSnap.Quantity.Equal(decimal.NewFromInt(53)))

		matchedSnap, err := env.snapshots.FindByKey(ctx, warehouseID, matched)
		require.NoError(t, err)
		assert.True(t, matchedSnap.Quantity.Equal(decimal.NewFromInt(30)))

		entries, err := env.transactions.FindByReference(ctx, "stock_count", resp.SessionCode)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
		for _, entry := range entries {
			assert.Equal(t, approverID, entry.CreatedBy)
		}
	})

	t.Run("approval marks adjusted items", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		itemID := uuid.New()
		env.seedSnapshot(warehouseID, itemID, 100, 1)

		session := runSessionToReview(t, env, warehouseID, map[uuid.UUID]int64{itemID: 90})

		resp, err := env.countSvc.ApproveAndAdjust(ctx, session.ID, uuid.New(), true)
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "adjusted", resp.Items[0].Status)
	})

	t.Run("approval can skip the adjustments", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		itemID := uuid.New()
		env.seedSnapshot(warehouseID, itemID, 100, 1)

		session := runSessionToReview(t, env, warehouseID, map[uuid.UUID]int64{itemID: 90})

		resp, err := env.countSvc.ApproveAndAdjust(ctx, session.ID, uuid.New(), false)
		require.NoError(t, err)
		assert.Equal(t, "completed", resp.Status)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "counted", resp.Items[0].Status)

		snapshot, err := env.snapshots.FindByKey(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.True(t, snapshot.Quantity.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, 0, env.transactions.count())
	})

	t.Run("cannot approve before review", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		itemID := uuid.New()
		env.seedSnapshot(warehouseID, itemID, 100, 1)

		session, err := env.countSvc.CreateSession(ctx, CreateCountSessionRequest{
			WarehouseID: warehouseID,
			CountType:   "spot",
			ItemIDs:     []uuid.UUID{itemID},
			PlannedDate: time.Now(),
			CreatedBy:   uuid.New(),
		})
		require.NoError(t, err)

		_, err = env.countSvc.ApproveAndAdjust(ctx, session.ID, uuid.New(), true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "review")
	})

	t.Run("cannot approve twice", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		itemID := uuid.New()
		env.seedSnapshot(warehouseID, itemID, 10, 1)

		session := runSessionToReview(t, env, warehouseID, map[uuid.UUID]int64{itemID: 8})

		_, err := env.countSvc.ApproveAndAdjust(ctx, session.ID, uuid.New(), true)
		require.NoError(t, err)

		_, err = env.countSvc.ApproveAndAdjust(ctx, session.ID, uuid.New(), true)
		require.Error(t, err)
	})
}

func TestStockCountService_CancelAndHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("cancelled session stays out of the snapshots", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		itemID := uuid.New()
		env.seedSnapshot(warehouseID, itemID, 100, 1)

		session := runSessionToReview(t, env, warehouseID, map[uuid.UUID]int64{itemID: 90})

		resp, err := env.countSvc.CancelSession(ctx, session.ID, "count disputed")
		require.NoError(t, err)
		assert.Equal(t, "cancelled", resp.Status)

		snapshot, err := env.snapshots.FindByKey(ctx, warehouseID, itemID)
		require.NoError(t, err)
		assert.True(t, snapshot.Quantity.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, 0, env.transactions.count())
	})

	t.Run("history pages sessions per warehouse", func(t *testing.T) {
		env := newTestEnv()
		warehouseID := uuid.New()
		itemID := uuid.New()
		env.seedSnapshot(warehouseID, itemID, 10, 1)

		for i := 0; i < 3; i++ {
			_, err := env.countSvc.CreateSession(ctx, CreateCountSessionRequest{
				WarehouseID: warehouseID,
				CountType:   "spot",
				ItemIDs:     []uuid.UUID{itemID},
				PlannedDate: time.Now(),
				CreatedBy:   uuid.New(),
			})
			require.NoError(t, err)
		}

		page, err := env.countSvc.History(ctx, warehouseID, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Equal(t, 2, page.TotalPages)
	})

	t.Run("unknown session returns not found", func(t *testing.T) {
		env := newTestEnv()

		_, err := env.countSvc.GetSession(ctx, uuid.New())

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
