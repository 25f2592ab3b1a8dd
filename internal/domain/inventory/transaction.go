package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of inventory movement
type TransactionType string

const (
	// TransactionTypeIn is stock entering a warehouse (receipt, transfer receipt)
	TransactionTypeIn TransactionType = "in"
	// TransactionTypeOut is stock leaving a warehouse
	TransactionTypeOut TransactionType = "out"
	// TransactionTypeTransfer is the destination-side record of a warehouse transfer
	TransactionTypeTransfer TransactionType = "transfer"
	// TransactionTypeAdjust is a manual or count-driven correction
	TransactionTypeAdjust TransactionType = "adjust"
)

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeIn, TransactionTypeOut, TransactionTypeTransfer, TransactionTypeAdjust:
		return true
	}
	return false
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// ReferenceType identifies the source document kind for a transaction
type ReferenceType string

const (
	ReferenceTypeManualAdjustment ReferenceType = "manual_adjustment"
	ReferenceTypeTransfer         ReferenceType = "transfer"
	ReferenceTypeBatchReceipt     ReferenceType = "batch_receipt"
	ReferenceTypeBatchTransfer    ReferenceType = "batch_transfer"
	ReferenceTypeStockCount       ReferenceType = "stock_count"
)

// InventoryTransaction is an immutable record of one inventory movement.
// The ledger is append-only: corrections are new entries, never updates.
// Quantity is signed; negative means outflow.
type InventoryTransaction struct {
	shared.BaseEntity
	TransactionNo   string          `gorm:"type:varchar(50);not null;index"`
	TransactionType TransactionType `gorm:"type:varchar(20);not null;index"`
	WarehouseID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_warehouse_item,priority:1"`
	ItemID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_warehouse_item,priority:2"`
	BatchID         *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReferenceType   ReferenceType   `gorm:"type:varchar(30)"`
	ReferenceID     string          `gorm:"type:varchar(50);index"`
	Notes           string          `gorm:"type:varchar(255)"`
	CreatedBy       uuid.UUID       `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}

// NewInventoryTransaction creates a ledger entry. The quantity must be
// non-zero; its sign encodes direction.
func NewInventoryTransaction(
	transactionNo string,
	txType TransactionType,
	warehouseID, itemID uuid.UUID,
	quantity decimal.Decimal,
	createdBy uuid.UUID,
) (*InventoryTransaction, error) {
	if transactionNo == "" {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Transaction number cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Invalid transaction type")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Warehouse ID cannot be empty")
	}
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Item ID cannot be empty")
	}
	if quantity.IsZero() {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Transaction quantity cannot be zero")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Creator ID cannot be empty")
	}

	return &InventoryTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		TransactionNo:   transactionNo,
		TransactionType: txType,
		WarehouseID:     warehouseID,
		ItemID:          itemID,
		Quantity:        quantity,
		CreatedBy:       createdBy,
	}, nil
}

// WithBatchID links the transaction to a batch
func (t *InventoryTransaction) WithBatchID(batchID uuid.UUID) *InventoryTransaction {
	t.BatchID = &batchID
	return t
}

// WithReference sets the source document reference
func (t *InventoryTransaction) WithReference(refType ReferenceType, refID string) *InventoryTransaction {
	t.ReferenceType = refType
	t.ReferenceID = refID
	return t
}

// WithNotes sets free-form notes
func (t *InventoryTransaction) WithNotes(notes string) *InventoryTransaction {
	t.Notes = notes
	return t
}

// IsInbound returns true if the entry increases warehouse stock
func (t *InventoryTransaction) IsInbound() bool {
	return t.Quantity.GreaterThan(decimal.Zero)
}

// IsOutbound returns true if the entry decreases warehouse stock
func (t *InventoryTransaction) IsOutbound() bool {
	return t.Quantity.LessThan(decimal.Zero)
}

// OccurredAt returns when the movement was recorded
func (t *InventoryTransaction) OccurredAt() time.Time {
	return t.CreatedAt
}
