package persistence

import (
	"context"
	"errors"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ledgerSortColumns are the columns the ledger listing may be ordered by
var ledgerSortColumns = map[string]bool{
	"created_at":     true,
	"transaction_no": true,
	"quantity":       true,
}

// GormTransactionRepository implements TransactionRepository using GORM.
// The ledger is append-only; the repository exposes no update or delete.
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Create appends a ledger entry
func (r *GormTransactionRepository) Create(ctx context.Context, tx *inventory.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// CreateAll appends multiple ledger entries in one statement
func (r *GormTransactionRepository) CreateAll(ctx context.Context, txs []*inventory.InventoryTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&txs).Error
}

// FindByID finds a ledger entry by its ID
func (r *GormTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryTransaction, error) {
	var tx inventory.InventoryTransaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// FindAll lists ledger entries matching the query with pagination
func (r *GormTransactionRepository) FindAll(ctx context.Context, query inventory.TransactionQuery) (*shared.Paginated[*inventory.InventoryTransaction], error) {
	query.Filter.Normalize()

	base := r.db.WithContext(ctx).Model(&inventory.InventoryTransaction{})
	if query.WarehouseID != nil {
		base = base.Where("warehouse_id = ?", *query.WarehouseID)
	}
	if query.ItemID != nil {
		base = base.Where("item_id = ?", *query.ItemID)
	}
	if query.BatchID != nil {
		base = base.Where("batch_id = ?", *query.BatchID)
	}
	if query.TransactionType != nil {
		base = base.Where("transaction_type = ?", *query.TransactionType)
	}
	if query.From != nil {
		base = base.Where("created_at >= ?", *query.From)
	}
	if query.To != nil {
		base = base.Where("created_at <= ?", *query.To)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	var txs []*inventory.InventoryTransaction
	offset := (query.Filter.Page - 1) * query.Filter.PageSize
	if err := base.
		Order(orderClause(query.Filter, ledgerSortColumns, "created_at DESC")).
		Offset(offset).Limit(query.Filter.PageSize).
		Find(&txs).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(txs, total, query.Filter.Page, query.Filter.PageSize)
	return &result, nil
}

// FindByReference finds ledger entries by their source document, oldest first
func (r *GormTransactionRepository) FindByReference(ctx context.Context, refType inventory.ReferenceType, refID string) ([]*inventory.InventoryTransaction, error) {
	var txs []*inventory.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ inventory.TransactionRepository = (*GormTransactionRepository)(nil)
