package persistence

import (
	"context"
	"errors"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockCountRepository implements StockCountRepository using GORM
type GormStockCountRepository struct {
	db *gorm.DB
}

// NewGormStockCountRepository creates a new GormStockCountRepository
func NewGormStockCountRepository(db *gorm.DB) *GormStockCountRepository {
	return &GormStockCountRepository{db: db}
}

// Create persists the session and all its items
func (r *GormStockCountRepository) Create(ctx context.Context, session *inventory.StockCountSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// Save persists session fields and upserts its items. FullSaveAssociations
// keeps item rows (counts, variances, statuses) in step with the aggregate.
func (r *GormStockCountRepository) Save(ctx context.Context, session *inventory.StockCountSession) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(session).Error
}

// FindByID loads the session with its items
func (r *GormStockCountRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockCountSession, error) {
	var session inventory.StockCountSession
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// FindByIDForUpdate loads the session with its items, locking the session row.
// Save writes the whole aggregate back, so every writer must hold this lock
// or a concurrent submission would be overwritten with stale items.
func (r *GormStockCountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.StockCountSession, error) {
	var session inventory.StockCountSession
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	// Items load separately; the locking clause must not apply to them
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", id).
		Order("created_at ASC").
		Find(&session.Items).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByCode loads the session with its items by session code
func (r *GormStockCountRepository) FindByCode(ctx context.Context, code string) (*inventory.StockCountSession, error) {
	var session inventory.StockCountSession
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&session, "session_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// FindByWarehouse lists sessions for a warehouse with pagination.
// Items are not preloaded; the listing only needs header fields.
func (r *GormStockCountRepository) FindByWarehouse(ctx context.Context, warehouseID uuid.UUID, filter shared.Filter) (*shared.Paginated[*inventory.StockCountSession], error) {
	filter.Normalize()

	base := r.db.WithContext(ctx).
		Model(&inventory.StockCountSession{}).
		Where("warehouse_id = ?", warehouseID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	var sessions []*inventory.StockCountSession
	offset := (filter.Page - 1) * filter.PageSize
	if err := base.
		Order("created_at DESC").
		Offset(offset).Limit(filter.PageSize).
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(sessions, total, filter.Page, filter.PageSize)
	return &result, nil
}

// Ensure GormStockCountRepository implements StockCountRepository
var _ inventory.StockCountRepository = (*GormStockCountRepository)(nil)
