package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBatchRepository implements BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// Create creates a new batch. The batch number carries a unique constraint;
// a violation surfaces as ErrDuplicateBatch so concurrent receipts of the
// same number fail cleanly even when both passed the existence check.
func (r *GormBatchRepository) Create(ctx context.Context, batch *inventory.InventoryBatch) error {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrDuplicateBatch
		}
		return err
	}
	return nil
}

// Save updates an existing batch
func (r *GormBatchRepository) Save(ctx context.Context, batch *inventory.InventoryBatch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryBatch, error) {
	var batch inventory.InventoryBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByIDForUpdate finds a batch by its ID with a row lock. Must run inside
// a transaction; the lock is held until it ends.
func (r *GormBatchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryBatch, error) {
	var batch inventory.InventoryBatch
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByBatchNo finds a batch by its externally unique batch number
func (r *GormBatchRepository) FindByBatchNo(ctx context.Context, batchNo string) (*inventory.InventoryBatch, error) {
	var batch inventory.InventoryBatch
	if err := r.db.WithContext(ctx).First(&batch, "batch_no = ?", batchNo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// ExistsByBatchNo checks whether a batch number is already taken
func (r *GormBatchRepository) ExistsByBatchNo(ctx context.Context, batchNo string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.InventoryBatch{}).
		Where("batch_no = ?", batchNo).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByItem finds batches for an item, optionally restricted to a warehouse
func (r *GormBatchRepository) FindByItem(ctx context.Context, itemID uuid.UUID, warehouseID *uuid.UUID) ([]*inventory.InventoryBatch, error) {
	query := r.db.WithContext(ctx).Where("item_id = ?", itemID)
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var batches []*inventory.InventoryBatch
	if err := query.Order("created_at ASC").Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindExpiringWithin returns batches whose expiry date falls before the
// deadline, soonest first. Already expired batches are included.
func (r *GormBatchRepository) FindExpiringWithin(ctx context.Context, deadline time.Time, warehouseID *uuid.UUID) ([]*inventory.InventoryBatch, error) {
	query := r.db.WithContext(ctx).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", deadline)
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var batches []*inventory.InventoryBatch
	if err := query.Order("expiry_date ASC").Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// Ensure GormBatchRepository implements BatchRepository
var _ inventory.BatchRepository = (*GormBatchRepository)(nil)
