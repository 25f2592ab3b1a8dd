package inventory

import (
	"context"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OverviewQuery filters the snapshot overview listing
type OverviewQuery struct {
	WarehouseID *uuid.UUID
	ItemID      *uuid.UUID
	BelowMin    bool
	Filter      shared.Filter
}

// InventorySummary aggregates snapshot figures for a warehouse or globally
type InventorySummary struct {
	TotalItems    int64
	TotalQuantity decimal.Decimal
	TotalValue    decimal.Decimal
	BelowMinimum  int64
	InTransit     decimal.Decimal
}

// SnapshotRepository persists inventory snapshots.
// The ForUpdate variants must be called inside a transaction; they take row
// locks that live until the transaction ends.
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *InventorySnapshot) error
	Save(ctx context.Context, snapshot *InventorySnapshot) error
	FindByID(ctx context.Context, id uuid.UUID) (*InventorySnapshot, error)
	FindByKey(ctx context.Context, warehouseID, itemID uuid.UUID) (*InventorySnapshot, error)
	FindByKeyForUpdate(ctx context.Context, warehouseID, itemID uuid.UUID) (*InventorySnapshot, error)
	// GetOrCreateForUpdate returns the locked snapshot for the pair, creating
	// an empty one first if none exists yet.
	GetOrCreateForUpdate(ctx context.Context, warehouseID, itemID uuid.UUID) (*InventorySnapshot, error)
	FindOverview(ctx context.Context, query OverviewQuery) (*shared.Paginated[*InventorySnapshot], error)
	FindBelowMinimum(ctx context.Context, warehouseID *uuid.UUID) ([]*InventorySnapshot, error)
	// FindTopByValue returns the snapshots with the highest total value in a
	// warehouse, for cycle count selection.
	FindTopByValue(ctx context.Context, warehouseID uuid.UUID, limit int) ([]*InventorySnapshot, error)
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]*InventorySnapshot, error)
	Summarize(ctx context.Context, warehouseID *uuid.UUID) (*InventorySummary, error)
}

// BatchRepository persists inventory batches
type BatchRepository interface {
	Create(ctx context.Context, batch *InventoryBatch) error
	Save(ctx context.Context, batch *InventoryBatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryBatch, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*InventoryBatch, error)
	FindByBatchNo(ctx context.Context, batchNo string) (*InventoryBatch, error)
	ExistsByBatchNo(ctx context.Context, batchNo string) (bool, error)
	FindByItem(ctx context.Context, itemID uuid.UUID, warehouseID *uuid.UUID) ([]*InventoryBatch, error)
	// FindExpiringWithin returns batches whose expiry date falls before the
	// deadline, soonest first. Already expired batches are included.
	FindExpiringWithin(ctx context.Context, deadline time.Time, warehouseID *uuid.UUID) ([]*InventoryBatch, error)
}

// TransactionQuery filters the movement ledger listing
type TransactionQuery struct {
	WarehouseID     *uuid.UUID
	ItemID          *uuid.UUID
	BatchID         *uuid.UUID
	TransactionType *TransactionType
	From            *time.Time
	To              *time.Time
	Filter          shared.Filter
}

// TransactionRepository persists the movement ledger. The ledger is
// append-only: there is no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, tx *InventoryTransaction) error
	CreateAll(ctx context.Context, txs []*InventoryTransaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryTransaction, error)
	FindAll(ctx context.Context, query TransactionQuery) (*shared.Paginated[*InventoryTransaction], error)
	FindByReference(ctx context.Context, refType ReferenceType, refID string) ([]*InventoryTransaction, error)
}

// StockCountRepository persists count sessions with their items
type StockCountRepository interface {
	// Create persists the session and all its items
	Create(ctx context.Context, session *StockCountSession) error
	// Save persists session fields and upserts its items
	Save(ctx context.Context, session *StockCountSession) error
	// FindByID loads the session with its items
	FindByID(ctx context.Context, id uuid.UUID) (*StockCountSession, error)
	// FindByIDForUpdate loads the session with its items, locking the session
	// row so concurrent writers serialize. Must be called inside a
	// transaction; the lock is held until it ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*StockCountSession, error)
	FindByCode(ctx context.Context, code string) (*StockCountSession, error)
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter shared.Filter) (*shared.Paginated[*StockCountSession], error)
}
