package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// snapshotSortColumns are the columns the overview listing may be ordered by
var snapshotSortColumns = map[string]bool{
	"created_at":    true,
	"updated_at":    true,
	"quantity":      true,
	"available_qty": true,
	"unit_cost":     true,
}

// GormSnapshotRepository implements SnapshotRepository using GORM
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// Create creates a new snapshot
func (r *GormSnapshotRepository) Create(ctx context.Context, snapshot *inventory.InventorySnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// Save updates an existing snapshot
func (r *GormSnapshotRepository) Save(ctx context.Context, snapshot *inventory.InventorySnapshot) error {
	return r.db.WithContext(ctx).Save(snapshot).Error
}

// FindByID finds a snapshot by its ID
func (r *GormSnapshotRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventorySnapshot, error) {
	var snapshot inventory.InventorySnapshot
	if err := r.db.WithContext(ctx).First(&snapshot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

// FindByKey finds a snapshot by its warehouse-item pair
func (r *GormSnapshotRepository) FindByKey(ctx context.Context, warehouseID, itemID uuid.UUID) (*inventory.InventorySnapshot, error) {
	var snapshot inventory.InventorySnapshot
	if err := r.db.WithContext(ctx).
		First(&snapshot, "warehouse_id = ? AND item_id = ?", warehouseID, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

// FindByKeyForUpdate finds a snapshot by its warehouse-item pair with a row
// lock. Must run inside a transaction; the lock is held until it ends.
func (r *GormSnapshotRepository) FindByKeyForUpdate(ctx context.Context, warehouseID, itemID uuid.UUID) (*inventory.InventorySnapshot, error) {
	var snapshot inventory.InventorySnapshot
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&snapshot, "warehouse_id = ? AND item_id = ?", warehouseID, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

// GetOrCreateForUpdate returns the locked snapshot for the pair, creating an
// empty one first if none exists yet. The insert tolerates a concurrent
// creator; whichever row wins the unique index is the one locked.
func (r *GormSnapshotRepository) GetOrCreateForUpdate(ctx context.Context, warehouseID, itemID uuid.UUID) (*inventory.InventorySnapshot, error) {
	snapshot, err := r.FindByKeyForUpdate(ctx, warehouseID, itemID)
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	fresh, err := inventory.NewInventorySnapshot(warehouseID, itemID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(fresh).Error; err != nil {
		return nil, err
	}

	return r.FindByKeyForUpdate(ctx, warehouseID, itemID)
}

// FindOverview lists snapshots matching the query with pagination
func (r *GormSnapshotRepository) FindOverview(ctx context.Context, query inventory.OverviewQuery) (*shared.Paginated[*inventory.InventorySnapshot], error) {
	query.Filter.Normalize()

	base := r.db.WithContext(ctx).Model(&inventory.InventorySnapshot{})
	if query.WarehouseID != nil {
		base = base.Where("warehouse_id = ?", *query.WarehouseID)
	}
	if query.ItemID != nil {
		base = base.Where("item_id = ?", *query.ItemID)
	}
	if query.BelowMin {
		base = base.Where("min_quantity > 0 AND quantity < min_quantity")
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	var snapshots []*inventory.InventorySnapshot
	offset := (query.Filter.Page - 1) * query.Filter.PageSize
	if err := base.
		Order(orderClause(query.Filter, snapshotSortColumns, "updated_at DESC")).
		Offset(offset).Limit(query.Filter.PageSize).
		Find(&snapshots).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(snapshots, total, query.Filter.Page, query.Filter.PageSize)
	return &result, nil
}

// FindBelowMinimum finds snapshots under their alert threshold
func (r *GormSnapshotRepository) FindBelowMinimum(ctx context.Context, warehouseID *uuid.UUID) ([]*inventory.InventorySnapshot, error) {
	query := r.db.WithContext(ctx).
		Where("min_quantity > 0 AND quantity < min_quantity")
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var snapshots []*inventory.InventorySnapshot
	if err := query.Order("quantity ASC").Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// FindTopByValue returns the highest-value snapshots in a warehouse,
// for cycle count selection
func (r *GormSnapshotRepository) FindTopByValue(ctx context.Context, warehouseID uuid.UUID, limit int) ([]*inventory.InventorySnapshot, error) {
	var snapshots []*inventory.InventorySnapshot
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("quantity * unit_cost DESC").
		Limit(limit).
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// FindByWarehouse finds all snapshots in a warehouse
func (r *GormSnapshotRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]*inventory.InventorySnapshot, error) {
	var snapshots []*inventory.InventorySnapshot
	if err := r.db.WithContext(ctx).
		Where("warehouse_id = ?", warehouseID).
		Order("item_id ASC").
		Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Summarize aggregates snapshot figures for a warehouse, or globally when
// warehouseID is nil
func (r *GormSnapshotRepository) Summarize(ctx context.Context, warehouseID *uuid.UUID) (*inventory.InventorySummary, error) {
	query := r.db.WithContext(ctx).Model(&inventory.InventorySnapshot{})
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var summary inventory.InventorySummary
	if err := query.
		Select(`COUNT(*) AS total_items,
			COALESCE(SUM(quantity), 0) AS total_quantity,
			COALESCE(SUM(quantity * unit_cost), 0) AS total_value,
			COALESCE(SUM(CASE WHEN min_quantity > 0 AND quantity < min_quantity THEN 1 ELSE 0 END), 0) AS below_minimum,
			COALESCE(SUM(in_transit_qty), 0) AS in_transit`).
		Scan(&summary).Error; err != nil {
		return nil, err
	}
	return &summary, nil
}

// orderClause builds an ORDER BY clause from the filter, falling back to the
// default when the requested column is not in the allowlist
func orderClause(filter shared.Filter, allowed map[string]bool, fallback string) string {
	if filter.OrderBy == "" || !allowed[filter.OrderBy] {
		return fallback
	}
	dir := "ASC"
	if strings.ToLower(filter.OrderDir) == "desc" {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s", filter.OrderBy, dir)
}

// Ensure GormSnapshotRepository implements SnapshotRepository
var _ inventory.SnapshotRepository = (*GormSnapshotRepository)(nil)
