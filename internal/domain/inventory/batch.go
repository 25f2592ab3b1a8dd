package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchStatus represents the lifecycle state of an inventory batch
type BatchStatus string

const (
	BatchStatusAvailable  BatchStatus = "available"
	BatchStatusReserved   BatchStatus = "reserved"
	BatchStatusQuarantine BatchStatus = "quarantine"
	BatchStatusExpired    BatchStatus = "expired"
)

// IsValid returns true if the status is a valid BatchStatus
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusAvailable, BatchStatusReserved, BatchStatusQuarantine, BatchStatusExpired:
		return true
	}
	return false
}

// String returns the string representation of BatchStatus
func (s BatchStatus) String() string {
	return string(s)
}

// InventoryBatch is a lot of an item sharing production, expiry, and quality
// attributes, tracked separately from the aggregate snapshot. The batch
// number is externally unique across all warehouses.
type InventoryBatch struct {
	shared.BaseEntity
	BatchNo         string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	ItemID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_batch_item_warehouse,priority:1"`
	WarehouseID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_batch_item_warehouse,priority:2"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ProductionDate  *time.Time
	ExpiryDate      *time.Time  `gorm:"index"`
	SupplierID      *uuid.UUID  `gorm:"type:uuid"`
	SupplierBatchNo string      `gorm:"type:varchar(100)"`
	QualityGrade    string      `gorm:"type:varchar(30)"`
	Location        string      `gorm:"type:varchar(100)"` // Bin/shelf location within the warehouse
	Status          BatchStatus `gorm:"type:varchar(20);not null;default:'available'"`
	StatusReason    string      `gorm:"type:varchar(255)"` // Why the batch left the available state
}

// TableName returns the table name for GORM
func (InventoryBatch) TableName() string {
	return "inventory_batches"
}

// NewInventoryBatch creates a batch on goods receipt
func NewInventoryBatch(batchNo string, itemID, warehouseID uuid.UUID, quantity decimal.Decimal) (*InventoryBatch, error) {
	if batchNo == "" {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Batch number cannot be empty")
	}
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Item ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Warehouse ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Batch quantity must be positive")
	}

	return &InventoryBatch{
		BaseEntity:  shared.NewBaseEntity(),
		BatchNo:     batchNo,
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		Status:      BatchStatusAvailable,
	}, nil
}

// IsExpired returns true if the batch is past its expiry date
func (b *InventoryBatch) IsExpired() bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(time.Now())
}

// DaysUntilExpiry returns whole days until expiry, -1 if no expiry date
func (b *InventoryBatch) DaysUntilExpiry() int {
	if b.ExpiryDate == nil {
		return -1
	}
	return int(time.Until(*b.ExpiryDate).Hours() / 24)
}

// EffectiveStatus returns the status with expiry derived from ExpiryDate.
// Expired is computed, not actively transitioned.
func (b *InventoryBatch) EffectiveStatus() BatchStatus {
	if b.Status == BatchStatusAvailable && b.IsExpired() {
		return BatchStatusExpired
	}
	return b.Status
}

// CanTransfer returns nil if the batch may move between warehouses
func (b *InventoryBatch) CanTransfer(quantity decimal.Decimal) error {
	if b.Status != BatchStatusAvailable {
		return shared.NewDomainError("INVALID_STATE", "Batch is "+b.Status.String()+", cannot transfer")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_FAILED", "Transfer quantity must be positive")
	}
	if b.Quantity.LessThan(quantity) {
		return shared.ErrInsufficientBatchQty
	}
	return nil
}

// MoveTo relocates the whole batch to another warehouse. The bin location
// is cleared; the destination assigns its own.
func (b *InventoryBatch) MoveTo(warehouseID uuid.UUID) error {
	if err := b.CanTransfer(b.Quantity); err != nil {
		return err
	}
	b.WarehouseID = warehouseID
	b.Location = ""
	b.Touch()
	return nil
}

// Split transfers part of the batch to another warehouse. The source batch
// is decremented and a new batch record carries the transferred quantity
// under a derived batch number, so the two quantities always sum to the
// original.
func (b *InventoryBatch) Split(quantity decimal.Decimal, derivedBatchNo string, warehouseID uuid.UUID) (*InventoryBatch, error) {
	if err := b.CanTransfer(quantity); err != nil {
		return nil, err
	}
	if quantity.GreaterThanOrEqual(b.Quantity) {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Split quantity must be less than batch quantity")
	}

	child, err := NewInventoryBatch(derivedBatchNo, b.ItemID, warehouseID, quantity)
	if err != nil {
		return nil, err
	}
	child.ProductionDate = b.ProductionDate
	child.ExpiryDate = b.ExpiryDate
	child.SupplierID = b.SupplierID
	child.SupplierBatchNo = b.SupplierBatchNo
	child.QualityGrade = b.QualityGrade

	b.Quantity = b.Quantity.Sub(quantity)
	b.Touch()

	return child, nil
}

// Quarantine marks the batch as quarantined. Only available batches can be
// quarantined and the transition is irreversible. Quarantined stock stays
// on hand; snapshot quantities are unchanged.
func (b *InventoryBatch) Quarantine(reason string) error {
	if b.Status != BatchStatusAvailable {
		return shared.NewDomainError("INVALID_STATE", "Batch is "+b.Status.String()+", cannot quarantine")
	}
	if reason == "" {
		return shared.NewDomainError("VALIDATION_FAILED", "Quarantine reason is required")
	}
	b.Status = BatchStatusQuarantine
	b.StatusReason = reason
	b.Touch()
	return nil
}
