package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// snapshotKey identifies one warehouse-item pair for lock ordering
type snapshotKey struct {
	warehouseID uuid.UUID
	itemID      uuid.UUID
}

// less defines the global lock acquisition order for snapshot pairs.
// Every multi-snapshot operation locks in this order to avoid deadlocks.
func (k snapshotKey) less(other snapshotKey) bool {
	if k.warehouseID != other.warehouseID {
		return k.warehouseID.String() < other.warehouseID.String()
	}
	return k.itemID.String() < other.itemID.String()
}

// SnapshotService handles per-location inventory operations: adjustments,
// reservations, transfers, and read paths over snapshots and the ledger.
type SnapshotService struct {
	txScope         TransactionScope
	snapshotRepo    inventory.SnapshotRepository
	transactionRepo inventory.TransactionRepository
	cache           SnapshotCache
	idempotency     shared.IdempotencyStore
	codes           inventory.CodeGenerator
	logger          *zap.Logger
}

// NewSnapshotService creates a new SnapshotService
func NewSnapshotService(
	txScope TransactionScope,
	snapshotRepo inventory.SnapshotRepository,
	transactionRepo inventory.TransactionRepository,
	cache SnapshotCache,
	idempotency shared.IdempotencyStore,
	codes inventory.CodeGenerator,
	logger *zap.Logger,
) *SnapshotService {
	if cache == nil {
		cache = NewNoOpSnapshotCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{
		txScope:         txScope,
		snapshotRepo:    snapshotRepo,
		transactionRepo: transactionRepo,
		cache:           cache,
		idempotency:     idempotency,
		codes:           codes,
		logger:          logger,
	}
}

// checkIdempotency rejects a request whose key was already processed.
// An empty key skips the check.
func (s *SnapshotService) checkIdempotency(ctx context.Context, scope, key string) error {
	if key == "" || s.idempotency == nil {
		return nil
	}
	seen, err := s.idempotency.IsProcessed(ctx, scope+":"+key)
	if err != nil {
		return err
	}
	if seen {
		return shared.ErrDuplicateRequest
	}
	return nil
}

// markIdempotency records a key as processed after the operation committed.
// Failures are logged, not propagated: the write already succeeded.
func (s *SnapshotService) markIdempotency(ctx context.Context, scope, key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, scope+":"+key, shared.DefaultIdempotencyTTL); err != nil {
		s.logger.Warn("failed to mark idempotency key",
			zap.String("scope", scope),
			zap.Error(err))
	}
}

// invalidateCache drops a cached snapshot; cache errors are logged only
func (s *SnapshotService) invalidateCache(ctx context.Context, warehouseID, itemID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, warehouseID, itemID); err != nil {
		s.logger.Warn("failed to invalidate snapshot cache",
			zap.String("warehouse_id", warehouseID.String()),
			zap.String("item_id", itemID.String()),
			zap.Error(err))
	}
}

// Adjust applies a manual stock adjustment and appends a ledger entry.
// The pair must already have a snapshot; adjustments correct existing stock
// and never mint a row. First stock arrives through batch receipt or a
// transfer destination instead.
func (s *SnapshotService) Adjust(ctx context.Context, req AdjustStockRequest) (*AdjustStockResponse, error) {
	adjType := inventory.AdjustmentType(req.AdjustmentType)
	if !adjType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Invalid adjustment type")
	}
	if req.OperatorID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Operator ID cannot be empty")
	}
	if err := s.checkIdempotency(ctx, "adjust", req.IdempotencyKey); err != nil {
		return nil, err
	}

	adjustmentNo := s.codes.AdjustmentNo()
	var result *AdjustStockResponse

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		snapshot, err := repos.SnapshotRepo().FindByKeyForUpdate(ctx, req.WarehouseID, req.ItemID)
		if err != nil {
			return err
		}

		delta, err := snapshot.Adjust(adjType, req.Quantity)
		if err != nil {
			return err
		}

		// A set to the current quantity moves nothing and leaves no ledger trace
		if !delta.IsZero() {
			entry, err := inventory.NewInventoryTransaction(
				adjustmentNo,
				inventory.TransactionTypeAdjust,
				req.WarehouseID,
				req.ItemID,
				delta,
				req.OperatorID,
			)
			if err != nil {
				return err
			}
			entry.WithReference(inventory.ReferenceTypeManualAdjustment, adjustmentNo).
				WithNotes(req.Reason)
			if err := repos.TransactionRepo().Create(ctx, entry); err != nil {
				return err
			}
		}

		if err := repos.SnapshotRepo().Save(ctx, snapshot); err != nil {
			return err
		}

		resp := ToSnapshotResponse(snapshot)
		result = &AdjustStockResponse{AdjustmentNo: adjustmentNo, Delta: delta, Snapshot: resp}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.markIdempotency(ctx, "adjust", req.IdempotencyKey)
	s.invalidateCache(ctx, req.WarehouseID, req.ItemID)
	s.logger.Info("stock adjusted",
		zap.String("adjustment_no", adjustmentNo),
		zap.String("warehouse_id", req.WarehouseID.String()),
		zap.String("item_id", req.ItemID.String()),
		zap.String("delta", result.Delta.String()))

	return result, nil
}

// Reserve holds available stock for a pending order. Reservations move
// quantity between buckets only; no ledger entry is written.
func (s *SnapshotService) Reserve(ctx context.Context, req ReserveStockRequest) (*SnapshotResponse, error) {
	var result *SnapshotResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		snapshot, err := repos.SnapshotRepo().FindByKeyForUpdate(ctx, req.WarehouseID, req.ItemID)
		if err != nil {
			return err
		}
		if err := snapshot.Reserve(req.Quantity); err != nil {
			return err
		}
		if err := repos.SnapshotRepo().Save(ctx, snapshot); err != nil {
			return err
		}
		resp := ToSnapshotResponse(snapshot)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, req.WarehouseID, req.ItemID)
	return result, nil
}

// Release returns reserved stock to available
func (s *SnapshotService) Release(ctx context.Context, req ReleaseStockRequest) (*SnapshotResponse, error) {
	var result *SnapshotResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		snapshot, err := repos.SnapshotRepo().FindByKeyForUpdate(ctx, req.WarehouseID, req.ItemID)
		if err != nil {
			return err
		}
		if err := snapshot.Release(req.Quantity); err != nil {
			return err
		}
		if err := repos.SnapshotRepo().Save(ctx, snapshot); err != nil {
			return err
		}
		resp := ToSnapshotResponse(snapshot)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, req.WarehouseID, req.ItemID)
	return result, nil
}

// Transfer dispatches stock from one warehouse to another. The quantity
// leaves the source's available stock and is tracked as in-transit on both
// sides until ReceiveTransfer confirms arrival. Two ledger entries are
// written under one transfer number: a negative out entry at the source and
// a positive transfer entry at the destination.
func (s *SnapshotService) Transfer(ctx context.Context, req TransferStockRequest) (*TransferStockResponse, error) {
	if req.FromWarehouseID == req.ToWarehouseID {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Source and destination warehouses must differ")
	}
	if req.OperatorID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Operator ID cannot be empty")
	}
	if err := s.checkIdempotency(ctx, "transfer", req.IdempotencyKey); err != nil {
		return nil, err
	}

	transferNo := s.codes.TransferNo()

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		source, dest, err := s.lockPair(ctx, repos,
			snapshotKey{req.FromWarehouseID, req.ItemID},
			snapshotKey{req.ToWarehouseID, req.ItemID},
		)
		if err != nil {
			return err
		}

		if err := source.TransferOut(req.Quantity); err != nil {
			return err
		}
		if err := dest.TransferIn(req.Quantity); err != nil {
			return err
		}

		outEntry, err := inventory.NewInventoryTransaction(
			transferNo,
			inventory.TransactionTypeOut,
			req.FromWarehouseID,
			req.ItemID,
			req.Quantity.Neg(),
			req.OperatorID,
		)
		if err != nil {
			return err
		}
		outEntry.WithReference(inventory.ReferenceTypeTransfer, transferNo).WithNotes(req.Notes)

		inEntry, err := inventory.NewInventoryTransaction(
			transferNo,
			inventory.TransactionTypeTransfer,
			req.ToWarehouseID,
			req.ItemID,
			req.Quantity,
			req.OperatorID,
		)
		if err != nil {
			return err
		}
		inEntry.WithReference(inventory.ReferenceTypeTransfer, transferNo).WithNotes(req.Notes)

		if err := repos.TransactionRepo().CreateAll(ctx, []*inventory.InventoryTransaction{outEntry, inEntry}); err != nil {
			return err
		}
		if err := repos.SnapshotRepo().Save(ctx, source); err != nil {
			return err
		}
		return repos.SnapshotRepo().Save(ctx, dest)
	})
	if err != nil {
		return nil, err
	}

	s.markIdempotency(ctx, "transfer", req.IdempotencyKey)
	s.invalidateCache(ctx, req.FromWarehouseID, req.ItemID)
	s.invalidateCache(ctx, req.ToWarehouseID, req.ItemID)
	s.logger.Info("transfer dispatched",
		zap.String("transfer_no", transferNo),
		zap.String("from_warehouse_id", req.FromWarehouseID.String()),
		zap.String("to_warehouse_id", req.ToWarehouseID.String()),
		zap.String("quantity", req.Quantity.String()))

	return &TransferStockResponse{
		TransferNo:      transferNo,
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		ItemID:          req.ItemID,
		Quantity:        req.Quantity,
	}, nil
}

// ReceiveTransfer confirms arrival of a dispatched transfer. The in-transit
// amount lands in the destination's on-hand stock and the source's in-transit
// tracking is cleared. Receiving the same transfer twice fails because the
// in-transit amount is already consumed.
func (s *SnapshotService) ReceiveTransfer(ctx context.Context, req ReceiveTransferRequest) (*SnapshotResponse, error) {
	if req.TransferNo == "" {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Transfer number cannot be empty")
	}

	entries, err := s.transactionRepo.FindByReference(ctx, inventory.ReferenceTypeTransfer, req.TransferNo)
	if err != nil {
		return nil, err
	}

	var outEntry, inEntry *inventory.InventoryTransaction
	for _, entry := range entries {
		switch entry.TransactionType {
		case inventory.TransactionTypeOut:
			outEntry = entry
		case inventory.TransactionTypeTransfer:
			inEntry = entry
		}
	}
	if outEntry == nil || inEntry == nil {
		return nil, shared.ErrNotFound
	}

	quantity := inEntry.Quantity
	var result *SnapshotResponse

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		source, dest, err := s.lockPair(ctx, repos,
			snapshotKey{outEntry.WarehouseID, outEntry.ItemID},
			snapshotKey{inEntry.WarehouseID, inEntry.ItemID},
		)
		if err != nil {
			return err
		}

		if err := dest.ReceiveTransfer(quantity); err != nil {
			if errors.Is(err, shared.ErrInvalidState) {
				return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Transfer %s has no in-transit quantity to receive", req.TransferNo))
			}
			return err
		}
		if err := source.ConfirmDispatch(quantity); err != nil {
			return err
		}

		if err := repos.SnapshotRepo().Save(ctx, source); err != nil {
			return err
		}
		if err := repos.SnapshotRepo().Save(ctx, dest); err != nil {
			return err
		}

		resp := ToSnapshotResponse(dest)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, outEntry.WarehouseID, outEntry.ItemID)
	s.invalidateCache(ctx, inEntry.WarehouseID, inEntry.ItemID)
	s.logger.Info("transfer received",
		zap.String("transfer_no", req.TransferNo),
		zap.String("warehouse_id", inEntry.WarehouseID.String()),
		zap.String("quantity", quantity.String()))

	return result, nil
}

// lockPair locks two snapshots FOR UPDATE in the global key order and returns
// them in (first-arg, second-arg) order. Both pairs must already exist for
// transfer paths except the destination, which is created on first use.
func (s *SnapshotService) lockPair(ctx context.Context, repos TransactionalRepositories, source, dest snapshotKey) (*inventory.InventorySnapshot, *inventory.InventorySnapshot, error) {
	first, second := source, dest
	if dest.less(source) {
		first, second = dest, source
	}

	lock := func(key snapshotKey) (*inventory.InventorySnapshot, error) {
		if key == dest {
			return repos.SnapshotRepo().GetOrCreateForUpdate(ctx, key.warehouseID, key.itemID)
		}
		return repos.SnapshotRepo().FindByKeyForUpdate(ctx, key.warehouseID, key.itemID)
	}

	firstSnap, err := lock(first)
	if err != nil {
		return nil, nil, err
	}
	secondSnap, err := lock(second)
	if err != nil {
		return nil, nil, err
	}

	if first == source {
		return firstSnap, secondSnap, nil
	}
	return secondSnap, firstSnap, nil
}

// GetByKey returns the snapshot for a warehouse-item pair, read through the cache
func (s *SnapshotService) GetByKey(ctx context.Context, warehouseID, itemID uuid.UUID) (*SnapshotResponse, error) {
	cached, err := s.cache.Get(ctx, warehouseID, itemID)
	if err != nil {
		s.logger.Warn("snapshot cache read failed", zap.Error(err))
	}
	if cached != nil {
		resp := ToSnapshotResponse(cached)
		return &resp, nil
	}

	snapshot, err := s.snapshotRepo.FindByKey(ctx, warehouseID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, snapshot); err != nil {
		s.logger.Warn("snapshot cache write failed", zap.Error(err))
	}

	resp := ToSnapshotResponse(snapshot)
	return &resp, nil
}

// GetOverview lists snapshots with filtering and pagination
func (s *SnapshotService) GetOverview(ctx context.Context, filter OverviewFilter) (*shared.Paginated[SnapshotResponse], error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
	}
	domainFilter.Normalize()

	page, err := s.snapshotRepo.FindOverview(ctx, inventory.OverviewQuery{
		WarehouseID: filter.WarehouseID,
		ItemID:      filter.ItemID,
		BelowMin:    filter.BelowMinimum,
		Filter:      domainFilter,
	})
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToSnapshotResponses(page.Items), page.Total, page.Page, page.PageSize)
	return &result, nil
}

// GetSummary aggregates snapshot figures for one warehouse, or globally when
// warehouseID is nil
func (s *SnapshotService) GetSummary(ctx context.Context, warehouseID *uuid.UUID) (*SummaryResponse, error) {
	summary, err := s.snapshotRepo.Summarize(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	return &SummaryResponse{
		TotalItems:    summary.TotalItems,
		TotalQuantity: summary.TotalQuantity,
		TotalValue:    summary.TotalValue,
		BelowMinimum:  summary.BelowMinimum,
		InTransit:     summary.InTransit,
	}, nil
}

// LowStockAlerts returns snapshots whose on-hand quantity is below their
// configured minimum
func (s *SnapshotService) LowStockAlerts(ctx context.Context, warehouseID *uuid.UUID) ([]SnapshotResponse, error) {
	snapshots, err := s.snapshotRepo.FindBelowMinimum(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	return ToSnapshotResponses(snapshots), nil
}

// ListTransactions pages through the movement ledger
func (s *SnapshotService) ListTransactions(ctx context.Context, filter TransactionListFilter) (*shared.Paginated[TransactionResponse], error) {
	domainFilter := shared.DefaultFilter()
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Normalize()

	query := inventory.TransactionQuery{
		WarehouseID: filter.WarehouseID,
		ItemID:      filter.ItemID,
		BatchID:     filter.BatchID,
		From:        filter.From,
		To:          filter.To,
		Filter:      domainFilter,
	}
	if filter.TransactionType != "" {
		txType := inventory.TransactionType(filter.TransactionType)
		if !txType.IsValid() {
			return nil, shared.NewDomainError("VALIDATION_FAILED", "Invalid transaction type")
		}
		query.TransactionType = &txType
	}

	page, err := s.transactionRepo.FindAll(ctx, query)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToTransactionResponses(page.Items), page.Total, page.Page, page.PageSize)
	return &result, nil
}

// SetMinQuantity sets the low-stock alert threshold for a pair. The snapshot
// is created if the pair has no history yet so thresholds can be configured
// ahead of the first receipt.
func (s *SnapshotService) SetMinQuantity(ctx context.Context, req SetMinQuantityRequest) (*SnapshotResponse, error) {
	var result *SnapshotResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		snapshot, err := repos.SnapshotRepo().GetOrCreateForUpdate(ctx, req.WarehouseID, req.ItemID)
		if err != nil {
			return err
		}
		if err := snapshot.SetMinQuantity(req.MinQuantity); err != nil {
			return err
		}
		if err := repos.SnapshotRepo().Save(ctx, snapshot); err != nil {
			return err
		}
		resp := ToSnapshotResponse(snapshot)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, req.WarehouseID, req.ItemID)
	return result, nil
}
