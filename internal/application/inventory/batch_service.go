package inventory

import (
	"context"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BatchService handles batch lifecycle operations: receipt, transfer between
// warehouses (whole or split), quarantine, and expiry reporting. Batch
// movements keep the snapshot aggregates in step with the batch quantities.
type BatchService struct {
	txScope     TransactionScope
	batchRepo   inventory.BatchRepository
	cache       SnapshotCache
	idempotency shared.IdempotencyStore
	codes       inventory.CodeGenerator
	logger      *zap.Logger
}

// NewBatchService creates a new BatchService
func NewBatchService(
	txScope TransactionScope,
	batchRepo inventory.BatchRepository,
	cache SnapshotCache,
	idempotency shared.IdempotencyStore,
	codes inventory.CodeGenerator,
	logger *zap.Logger,
) *BatchService {
	if cache == nil {
		cache = NewNoOpSnapshotCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		txScope:     txScope,
		batchRepo:   batchRepo,
		cache:       cache,
		idempotency: idempotency,
		codes:       codes,
		logger:      logger,
	}
}

func (s *BatchService) invalidateCache(ctx context.Context, warehouseID, itemID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, warehouseID, itemID); err != nil {
		s.logger.Warn("failed to invalidate snapshot cache",
			zap.String("warehouse_id", warehouseID.String()),
			zap.String("item_id", itemID.String()),
			zap.Error(err))
	}
}

// Create registers a batch on goods receipt. The receiving warehouse's
// snapshot is increased by the batch quantity and an inbound ledger entry
// is written, all in one transaction.
func (s *BatchService) Create(ctx context.Context, req CreateBatchRequest) (*BatchResponse, error) {
	if req.OperatorID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Operator ID cannot be empty")
	}
	if req.ProductionDate != nil && req.ExpiryDate != nil && req.ExpiryDate.Before(*req.ProductionDate) {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Expiry date cannot precede production date")
	}

	batch, err := inventory.NewInventoryBatch(req.BatchNo, req.ItemID, req.WarehouseID, req.Quantity)
	if err != nil {
		return nil, err
	}
	batch.ProductionDate = req.ProductionDate
	batch.ExpiryDate = req.ExpiryDate
	batch.SupplierID = req.SupplierID
	batch.SupplierBatchNo = req.SupplierBatchNo
	batch.QualityGrade = req.QualityGrade
	batch.Location = req.Location

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.BatchRepo().ExistsByBatchNo(ctx, req.BatchNo)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrDuplicateBatch
		}

		snapshot, err := repos.SnapshotRepo().GetOrCreateForUpdate(ctx, req.WarehouseID, req.ItemID)
		if err != nil {
			return err
		}
		if err := snapshot.Increase(req.Quantity); err != nil {
			return err
		}

		// A concurrent receipt with the same number passes the existence
		// check too; the loser surfaces the unique constraint as a duplicate
		if err := repos.BatchRepo().Create(ctx, batch); err != nil {
			return err
		}

		entry, err := inventory.NewInventoryTransaction(
			req.BatchNo,
			inventory.TransactionTypeIn,
			req.WarehouseID,
			req.ItemID,
			req.Quantity,
			req.OperatorID,
		)
		if err != nil {
			return err
		}
		entry.WithBatchID(batch.ID).WithReference(inventory.ReferenceTypeBatchReceipt, req.BatchNo)
		if err := repos.TransactionRepo().Create(ctx, entry); err != nil {
			return err
		}

		return repos.SnapshotRepo().Save(ctx, snapshot)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, req.WarehouseID, req.ItemID)
	s.logger.Info("batch received",
		zap.String("batch_no", req.BatchNo),
		zap.String("warehouse_id", req.WarehouseID.String()),
		zap.String("quantity", req.Quantity.String()))

	resp := ToBatchResponse(batch)
	return &resp, nil
}

// Transfer moves a batch between warehouses. A nil or full quantity moves
// the whole batch record; a partial quantity splits the batch, leaving the
// remainder at the source under the original number and creating a new batch
// at the destination with a derived number. Snapshots on both sides move
// immediately; batch transfers are single-phase, unlike plain stock
// transfers there is no separate receipt step because the batch record
// itself travels.
func (s *BatchService) Transfer(ctx context.Context, req TransferBatchRequest) (*TransferBatchResponse, error) {
	if req.OperatorID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Operator ID cannot be empty")
	}
	if req.FromWarehouseID == req.ToWarehouseID {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Source and destination warehouses must differ")
	}
	if s.idempotency != nil && req.IdempotencyKey != "" {
		seen, err := s.idempotency.IsProcessed(ctx, "batch-transfer:"+req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, shared.ErrDuplicateRequest
		}
	}

	transferNo := s.codes.BatchTransferNo()
	var result *TransferBatchResponse

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, req.BatchID)
		if err != nil {
			return err
		}
		// The caller addresses the batch by (id, source warehouse); a batch
		// that moved elsewhere in the meantime is not theirs to transfer
		if batch.WarehouseID != req.FromWarehouseID {
			return shared.ErrNotFound
		}

		quantity := batch.Quantity
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		if err := batch.CanTransfer(quantity); err != nil {
			return err
		}

		sourceWarehouseID := batch.WarehouseID
		itemID := batch.ItemID

		source, dest, err := s.lockSnapshots(ctx, repos, sourceWarehouseID, req.ToWarehouseID, itemID)
		if err != nil {
			return err
		}

		var moved *inventory.InventoryBatch
		var sourceBatch *inventory.InventoryBatch
		if quantity.Equal(batch.Quantity) {
			if err := batch.MoveTo(req.ToWarehouseID); err != nil {
				return err
			}
			moved = batch
			if err := repos.BatchRepo().Save(ctx, batch); err != nil {
				return err
			}
		} else {
			child, err := batch.Split(quantity, inventory.DeriveSplitBatchNo(batch.BatchNo), req.ToWarehouseID)
			if err != nil {
				return err
			}
			moved = child
			sourceBatch = batch
			if err := repos.BatchRepo().Save(ctx, batch); err != nil {
				return err
			}
			if err := repos.BatchRepo().Create(ctx, child); err != nil {
				return err
			}
		}

		// Batch moves land on-hand immediately on both sides
		if err := source.Decrease(quantity); err != nil {
			return err
		}
		if err := dest.Increase(quantity); err != nil {
			return err
		}

		outEntry, err := inventory.NewInventoryTransaction(
			transferNo,
			inventory.TransactionTypeOut,
			sourceWarehouseID,
			itemID,
			quantity.Neg(),
			req.OperatorID,
		)
		if err != nil {
			return err
		}
		outEntry.WithBatchID(batch.ID).WithReference(inventory.ReferenceTypeBatchTransfer, transferNo).WithNotes(req.Notes)

		inEntry, err := inventory.NewInventoryTransaction(
			transferNo,
			inventory.TransactionTypeTransfer,
			req.ToWarehouseID,
			itemID,
			quantity,
			req.OperatorID,
		)
		if err != nil {
			return err
		}
		inEntry.WithBatchID(moved.ID).WithReference(inventory.ReferenceTypeBatchTransfer, transferNo).WithNotes(req.Notes)

		if err := repos.TransactionRepo().CreateAll(ctx, []*inventory.InventoryTransaction{outEntry, inEntry}); err != nil {
			return err
		}
		if err := repos.SnapshotRepo().Save(ctx, source); err != nil {
			return err
		}
		if err := repos.SnapshotRepo().Save(ctx, dest); err != nil {
			return err
		}

		movedResp := ToBatchResponse(moved)
		result = &TransferBatchResponse{TransferNo: transferNo, Batch: movedResp}
		if sourceBatch != nil {
			srcResp := ToBatchResponse(sourceBatch)
			result.SourceBatch = &srcResp
		}

		s.invalidateCache(ctx, sourceWarehouseID, itemID)
		s.invalidateCache(ctx, req.ToWarehouseID, itemID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.idempotency != nil && req.IdempotencyKey != "" {
		if _, err := s.idempotency.MarkProcessed(ctx, "batch-transfer:"+req.IdempotencyKey, shared.DefaultIdempotencyTTL); err != nil {
			s.logger.Warn("failed to mark idempotency key", zap.Error(err))
		}
	}
	s.logger.Info("batch transferred",
		zap.String("transfer_no", transferNo),
		zap.String("batch_id", req.BatchID.String()),
		zap.String("to_warehouse_id", req.ToWarehouseID.String()))

	return result, nil
}

// lockSnapshots locks source and destination snapshots in the global key
// order. The destination is created on first use.
func (s *BatchService) lockSnapshots(ctx context.Context, repos TransactionalRepositories, sourceWarehouseID, destWarehouseID, itemID uuid.UUID) (*inventory.InventorySnapshot, *inventory.InventorySnapshot, error) {
	var source, dest *inventory.InventorySnapshot
	var err error
	if sourceWarehouseID.String() < destWarehouseID.String() {
		source, err = repos.SnapshotRepo().FindByKeyForUpdate(ctx, sourceWarehouseID, itemID)
		if err != nil {
			return nil, nil, err
		}
		dest, err = repos.SnapshotRepo().GetOrCreateForUpdate(ctx, destWarehouseID, itemID)
	} else {
		dest, err = repos.SnapshotRepo().GetOrCreateForUpdate(ctx, destWarehouseID, itemID)
		if err != nil {
			return nil, nil, err
		}
		source, err = repos.SnapshotRepo().FindByKeyForUpdate(ctx, sourceWarehouseID, itemID)
	}
	if err != nil {
		return nil, nil, err
	}
	return source, dest, nil
}

// Quarantine pulls a batch out of circulation. The batch stays on hand and
// counted, so snapshot quantities are unchanged and no ledger entry is
// written; only the batch status moves.
func (s *BatchService) Quarantine(ctx context.Context, req QuarantineBatchRequest) (*BatchResponse, error) {
	var result *BatchResponse
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, req.BatchID)
		if err != nil {
			return err
		}
		if err := batch.Quarantine(req.Reason); err != nil {
			return err
		}
		if err := repos.BatchRepo().Save(ctx, batch); err != nil {
			return err
		}
		resp := ToBatchResponse(batch)
		result = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch quarantined",
		zap.String("batch_id", req.BatchID.String()),
		zap.String("reason", req.Reason))
	return result, nil
}

// GetByID returns one batch
func (s *BatchService) GetByID(ctx context.Context, batchID uuid.UUID) (*BatchResponse, error) {
	batch, err := s.batchRepo.FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	resp := ToBatchResponse(batch)
	return &resp, nil
}

// ListByItem returns all batches of an item, optionally restricted to one warehouse
func (s *BatchService) ListByItem(ctx context.Context, itemID uuid.UUID, warehouseID *uuid.UUID) ([]BatchResponse, error) {
	batches, err := s.batchRepo.FindByItem(ctx, itemID, warehouseID)
	if err != nil {
		return nil, err
	}
	return ToBatchResponses(batches), nil
}

// ExpiryAlerts returns batches expiring within the given number of days,
// soonest first, including batches already past expiry
func (s *BatchService) ExpiryAlerts(ctx context.Context, withinDays int, warehouseID *uuid.UUID) ([]BatchResponse, error) {
	if withinDays < 0 {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Days must not be negative")
	}
	deadline := time.Now().AddDate(0, 0, withinDays)
	batches, err := s.batchRepo.FindExpiringWithin(ctx, deadline, warehouseID)
	if err != nil {
		return nil, err
	}
	return ToBatchResponses(batches), nil
}
