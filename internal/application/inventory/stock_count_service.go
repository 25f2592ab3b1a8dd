package inventory

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CycleCountSize is how many items a cycle count covers, picked by
// descending total value.
const CycleCountSize = 20

// StockCountService runs the stock count workflow: planning a session over a
// chosen item set, recording physical counts, reviewing variances, and
// writing approved variances back to the snapshots through the ledger.
type StockCountService struct {
	txScope      TransactionScope
	snapshotRepo inventory.SnapshotRepository
	countRepo    inventory.StockCountRepository
	cache        SnapshotCache
	codes        inventory.CodeGenerator
	logger       *zap.Logger
	cycleSize    int
}

// NewStockCountService creates a new StockCountService
func NewStockCountService(
	txScope TransactionScope,
	snapshotRepo inventory.SnapshotRepository,
	countRepo inventory.StockCountRepository,
	cache SnapshotCache,
	codes inventory.CodeGenerator,
	logger *zap.Logger,
) *StockCountService {
	if cache == nil {
		cache = NewNoOpSnapshotCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockCountService{
		txScope:      txScope,
		snapshotRepo: snapshotRepo,
		countRepo:    countRepo,
		cache:        cache,
		codes:        codes,
		logger:       logger,
		cycleSize:    CycleCountSize,
	}
}

// SetCycleCountSize overrides how many items a cycle count covers
func (s *StockCountService) SetCycleCountSize(size int) {
	if size > 0 {
		s.cycleSize = size
	}
}

// CreateSession plans a count session. The item set depends on the count
// type: full takes every snapshot in the warehouse, cycle takes the top
// items by total value, spot takes the explicitly requested items. System
// quantities are frozen into the session at this moment.
func (s *StockCountService) CreateSession(ctx context.Context, req CreateCountSessionRequest) (*CountSessionResponse, error) {
	countType := inventory.CountType(req.CountType)
	if !countType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Invalid count type")
	}
	if countType == inventory.CountTypeSpot && len(req.ItemIDs) == 0 {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Spot counts require at least one item")
	}

	session, err := inventory.NewStockCountSession(
		s.codes.CountSessionNo(),
		req.WarehouseID,
		countType,
		req.PlannedDate,
		req.CreatedBy,
		req.Notes,
	)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.resolveItemSet(ctx, countType, req.WarehouseID, req.ItemIDs)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "No items to count in this warehouse")
	}
	for _, snapshot := range snapshots {
		if err := session.AddItem(snapshot.ItemID, snapshot.Quantity, snapshot.UnitCost); err != nil {
			return nil, err
		}
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.StockCountRepo().Create(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("count session planned",
		zap.String("session_code", session.SessionCode),
		zap.String("warehouse_id", req.WarehouseID.String()),
		zap.String("count_type", req.CountType),
		zap.Int("items", len(session.Items)))

	resp := ToCountSessionResponse(session)
	return &resp, nil
}

func (s *StockCountService) resolveItemSet(ctx context.Context, countType inventory.CountType, warehouseID uuid.UUID, itemIDs []uuid.UUID) ([]*inventory.InventorySnapshot, error) {
	switch countType {
	case inventory.CountTypeFull:
		return s.snapshotRepo.FindByWarehouse(ctx, warehouseID)
	case inventory.CountTypeCycle:
		return s.snapshotRepo.FindTopByValue(ctx, warehouseID, s.cycleSize)
	case inventory.CountTypeSpot:
		snapshots := make([]*inventory.InventorySnapshot, 0, len(itemIDs))
		for _, itemID := range itemIDs {
			snapshot, err := s.snapshotRepo.FindByKey(ctx, warehouseID, itemID)
			if err != nil {
				return nil, err
			}
			snapshots = append(snapshots, snapshot)
		}
		return snapshots, nil
	}
	return nil, shared.NewDomainError("VALIDATION_FAILED", "Invalid count type")
}

// StartSession begins counting
func (s *StockCountService) StartSession(ctx context.Context, sessionID uuid.UUID) (*CountSessionResponse, error) {
	var result *CountSessionResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		session, err := repos.StockCountRepo().FindByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := session.Start(); err != nil {
			return err
		}
		if err := repos.StockCountRepo().Save(ctx, session); err != nil {
			return err
		}
		resp := ToCountSessionResponse(session)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitCount records the physical count for one item. When the last pending
// item is submitted the session moves to review automatically. The session
// row is locked so counters submitting different items do not overwrite each
// other's rows through the aggregate save.
func (s *StockCountService) SubmitCount(ctx context.Context, req SubmitCountRequest) (*CountSessionResponse, error) {
	var result *CountSessionResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		session, err := repos.StockCountRepo().FindByIDForUpdate(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if _, err := session.RecordCount(req.ItemID, req.CountedQty, req.CountedBy, req.Notes); err != nil {
			return err
		}
		if err := repos.StockCountRepo().Save(ctx, session); err != nil {
			return err
		}
		resp := ToCountSessionResponse(session)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == inventory.CountStatusReview.String() {
		s.logger.Info("count session ready for review",
			zap.String("session_id", req.SessionID.String()))
	}
	return result, nil
}

// GetSession returns a session with its items
func (s *StockCountService) GetSession(ctx context.Context, sessionID uuid.UUID) (*CountSessionResponse, error) {
	session, err := s.countRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	resp := ToCountSessionResponse(session)
	return &resp, nil
}

// GetVarianceReport summarizes the variances of a session for review
func (s *StockCountService) GetVarianceReport(ctx context.Context, sessionID uuid.UUID) (*VarianceReportResponse, error) {
	session, err := s.countRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	withVariance := session.ItemsWithVariance()
	items := make([]CountItemResponse, len(withVariance))
	totalValue := decimal.Zero
	for i := range withVariance {
		items[i] = ToCountItemResponse(&withVariance[i])
		totalValue = totalValue.Add(withVariance[i].VarianceValue())
	}

	// Surplus and shortage are quantity totals; the percent averages over
	// every item in the session, matched items pulling it toward zero
	surplus := decimal.Zero
	shortage := decimal.Zero
	percentSum := decimal.Zero
	for i := range session.Items {
		variance := session.Items[i].Variance
		if variance.IsPositive() {
			surplus = surplus.Add(variance)
		} else if variance.IsNegative() {
			shortage = shortage.Add(variance.Abs())
		}
		percentSum = percentSum.Add(session.Items[i].VariancePercent.Abs())
	}
	avgPercent := decimal.Zero
	if len(session.Items) > 0 {
		avgPercent = percentSum.Div(decimal.NewFromInt(int64(len(session.Items)))).Round(4)
	}

	return &VarianceReportResponse{
		SessionID:          session.ID,
		SessionCode:        session.SessionCode,
		Status:             session.Status.String(),
		TotalItems:         len(session.Items),
		ItemsWithVariance:  len(withVariance),
		TotalSurplus:       surplus,
		TotalShortage:      shortage,
		AvgVariancePercent: avgPercent,
		TotalVarianceValue: totalValue,
		Items:              items,
	}, nil
}

// ApproveAndAdjust approves a session in review and completes it. With
// adjustItems set, every non-zero variance is written back to the snapshots:
// the snapshot quantity becomes the counted value and each adjusted pair gets
// a ledger entry referencing the session. Without it the session completes
// as a record of the count with the snapshots untouched. All of it commits
// atomically.
func (s *StockCountService) ApproveAndAdjust(ctx context.Context, sessionID, approvedBy uuid.UUID, adjustItems bool) (*CountSessionResponse, error) {
	var result *CountSessionResponse
	var adjusted int

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		session, err := repos.StockCountRepo().FindByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != inventory.CountStatusReview {
			return shared.NewDomainError("INVALID_STATE", "Only sessions in review can be approved")
		}

		for i := 0; adjustItems && i < len(session.Items); i++ {
			item := &session.Items[i]
			if !item.HasVariance() {
				continue
			}

			snapshot, err := repos.SnapshotRepo().GetOrCreateForUpdate(ctx, session.WarehouseID, item.ItemID)
			if err != nil {
				return err
			}
			variance, err := snapshot.ApplyCount(*item.CountedQty)
			if err != nil {
				return err
			}
			if err := repos.SnapshotRepo().Save(ctx, snapshot); err != nil {
				return err
			}

			if !variance.IsZero() {
				entry, err := inventory.NewInventoryTransaction(
					session.SessionCode,
					inventory.TransactionTypeAdjust,
					session.WarehouseID,
					item.ItemID,
					variance,
					approvedBy,
				)
				if err != nil {
					return err
				}
				entry.WithReference(inventory.ReferenceTypeStockCount, session.SessionCode)
				if err := repos.TransactionRepo().Create(ctx, entry); err != nil {
					return err
				}
			}

			item.MarkAdjusted()
			adjusted++
		}

		if err := session.Approve(approvedBy); err != nil {
			return err
		}
		if err := repos.StockCountRepo().Save(ctx, session); err != nil {
			return err
		}

		resp := ToCountSessionResponse(session)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, item := range result.Items {
		if item.Status == string(inventory.CountItemAdjusted) {
			if err := s.cache.Invalidate(ctx, result.WarehouseID, item.ItemID); err != nil {
				s.logger.Warn("failed to invalidate snapshot cache", zap.Error(err))
			}
		}
	}

	s.logger.Info("count session approved",
		zap.String("session_id", sessionID.String()),
		zap.Int("adjusted_items", adjusted))
	return result, nil
}

// CancelSession abandons a session before completion
func (s *StockCountService) CancelSession(ctx context.Context, sessionID uuid.UUID, reason string) (*CountSessionResponse, error) {
	var result *CountSessionResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		session, err := repos.StockCountRepo().FindByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := session.Cancel(reason); err != nil {
			return err
		}
		if err := repos.StockCountRepo().Save(ctx, session); err != nil {
			return err
		}
		resp := ToCountSessionResponse(session)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// History pages through the count sessions of a warehouse
func (s *StockCountService) History(ctx context.Context, warehouseID uuid.UUID, page, pageSize int) (*shared.Paginated[CountSessionResponse], error) {
	filter := shared.DefaultFilter()
	filter.Page = page
	filter.PageSize = pageSize
	filter.Normalize()

	sessions, err := s.countRepo.FindByWarehouse(ctx, warehouseID, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]CountSessionResponse, len(sessions.Items))
	for i, session := range sessions.Items {
		responses[i] = ToCountSessionResponse(session)
	}
	result := shared.NewPaginated(responses, sessions.Total, sessions.Page, sessions.PageSize)
	return &result, nil
}
