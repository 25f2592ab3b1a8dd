package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentType is the kind of manual stock adjustment
type AdjustmentType string

const (
	AdjustmentIncrease AdjustmentType = "increase"
	AdjustmentDecrease AdjustmentType = "decrease"
	AdjustmentSet      AdjustmentType = "set"
)

// IsValid returns true if the adjustment type is valid
func (t AdjustmentType) IsValid() bool {
	switch t {
	case AdjustmentIncrease, AdjustmentDecrease, AdjustmentSet:
		return true
	}
	return false
}

// InventorySnapshot is the aggregate on-hand quantity for one item in one
// warehouse. The composite identifier is WarehouseID + ItemID.
//
// At rest Quantity == AvailableQty + ReservedQty. During a transfer the
// moved amount lives in InTransitQty on both sides until the destination
// confirms receipt. The snapshot is a materialized aggregate of the
// transaction ledger; the ledger stays authoritative for audit.
type InventorySnapshot struct {
	shared.BaseEntity
	WarehouseID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_warehouse_item,priority:1"`
	ItemID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_warehouse_item,priority:2"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // On-hand total
	AvailableQty   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Free for reservation/outflow
	ReservedQty    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Held for pending orders
	InTransitQty   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Moving between warehouses
	UnitCost       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // For variance valuation
	MinQuantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Low-stock alert threshold
	LastMovementAt *time.Time
	LastCountedAt  *time.Time
}

// TableName returns the table name for GORM
func (InventorySnapshot) TableName() string {
	return "inventory_snapshots"
}

// NewInventorySnapshot creates an empty snapshot for a warehouse-item pair.
// Snapshots are created implicitly on first movement and never hard-deleted.
func NewInventorySnapshot(warehouseID, itemID uuid.UUID) (*InventorySnapshot, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Warehouse ID cannot be empty")
	}
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Item ID cannot be empty")
	}

	return &InventorySnapshot{
		BaseEntity:   shared.NewBaseEntity(),
		WarehouseID:  warehouseID,
		ItemID:       itemID,
		Quantity:     decimal.Zero,
		AvailableQty: decimal.Zero,
		ReservedQty:  decimal.Zero,
		InTransitQty: decimal.Zero,
		UnitCost:     decimal.Zero,
		MinQuantity:  decimal.Zero,
	}, nil
}

// Adjust applies a manual adjustment and returns the signed quantity delta.
// Quantity and AvailableQty move by the same delta so reservations survive
// the adjustment untouched.
func (s *InventorySnapshot) Adjust(adjType AdjustmentType, quantity decimal.Decimal) (decimal.Decimal, error) {
	if !adjType.IsValid() {
		return decimal.Zero, shared.NewDomainError("VALIDATION_FAILED", "Invalid adjustment type")
	}
	if quantity.IsNegative() {
		return decimal.Zero, shared.NewDomainError("VALIDATION_FAILED", "Adjustment quantity cannot be negative")
	}

	var newQuantity decimal.Decimal
	switch adjType {
	case AdjustmentIncrease:
		newQuantity = s.Quantity.Add(quantity)
	case AdjustmentDecrease:
		newQuantity = s.Quantity.Sub(quantity)
		if newQuantity.IsNegative() {
			return decimal.Zero, shared.ErrInsufficientInventory
		}
	case AdjustmentSet:
		newQuantity = quantity
	}

	delta := newQuantity.Sub(s.Quantity)
	if s.AvailableQty.Add(delta).IsNegative() {
		return decimal.Zero, shared.ErrInsufficientAvailable
	}

	s.Quantity = newQuantity
	s.AvailableQty = s.AvailableQty.Add(delta)
	s.markMovement()

	return delta, nil
}

// Increase adds quantity to both on-hand and available (receiving path)
func (s *InventorySnapshot) Increase(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_FAILED", "Quantity must be positive")
	}
	s.Quantity = s.Quantity.Add(quantity)
	s.AvailableQty = s.AvailableQty.Add(quantity)
	s.markMovement()
	return nil
}

// Decrease removes quantity from both on-hand and available
func (s *InventorySnapshot) Decrease(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_FAILED", "Quantity must be positive")
	}
	if s.AvailableQty.LessThan(quantity) {
		return shared.ErrInsufficientAvailable
	}
	if s.Quantity.LessThan(quantity) {
		return shared.ErrInsufficientInventory
	}
	s.Quantity = s.Quantity.Sub(quantity)
	s.AvailableQty = s.AvailableQty.Sub(quantity)
	s.markMovement()
	return nil
}

// Reserve moves quantity from available to reserved without changing the total
func (s *InventorySnapshot) Reserve(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_FAILED", "Quantity must be positive")
	}
	if s.AvailableQty.LessThan(quantity) {
		return shared.ErrInsufficientAvailable
	}
	s.AvailableQty = s.AvailableQty.Sub(quantity)
	s.ReservedQty = s.ReservedQty.Add(quantity)
	s.Touch()
	return nil
}

// Release moves quantity from reserved back to available
func (s *InventorySnapshot) Release(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_FAILED", "Quantity must be positive")
	}
	if s.ReservedQty.LessThan(quantity) {
		return shared.ErrInsufficientInventory
	}
	s.ReservedQty = s.ReservedQty.Sub(quantity)
	s.AvailableQty = s.AvailableQty.Add(quantity)
	s.Touch()
	return nil
}

// TransferOut starts the source side of a warehouse transfer: the amount
// leaves on-hand and available and is tracked as in-transit until receipt.
func (s *InventorySnapshot) TransferOut(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_FAILED", "Quantity must be positive")
	}
	if s.AvailableQty.LessThan(quantity) {
		return shared.ErrInsufficientAvailable
	}
	s.Quantity = s.Quantity.Sub(quantity)
	s.AvailableQty = s.AvailableQty.Sub(quantity)
	s.InTransitQty = s.InTransitQty.Add(quantity)
	s.markMovement()
	return nil
}

// TransferIn records the destination side of a transfer; the amount stays
// in-transit until ReceiveTransfer confirms it.
func (s *InventorySnapshot) TransferIn(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_FAILED", "Quantity must be positive")
	}
	s.InTransitQty = s.InTransitQty.Add(quantity)
	s.markMovement()
	return nil
}

// ConfirmDispatch clears the source-side in-transit amount once the
// destination has confirmed receipt.
func (s *InventorySnapshot) ConfirmDispatch(quantity decimal.Decimal) error {
	if s.InTransitQty.LessThan(quantity) {
		return shared.ErrInvalidState
	}
	s.InTransitQty = s.InTransitQty.Sub(quantity)
	s.Touch()
	return nil
}

// ReceiveTransfer moves a confirmed in-transit amount into on-hand stock
func (s *InventorySnapshot) ReceiveTransfer(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_FAILED", "Quantity must be positive")
	}
	if s.InTransitQty.LessThan(quantity) {
		return shared.ErrInvalidState
	}
	s.InTransitQty = s.InTransitQty.Sub(quantity)
	s.Quantity = s.Quantity.Add(quantity)
	s.AvailableQty = s.AvailableQty.Add(quantity)
	s.markMovement()
	return nil
}

// ApplyCount sets on-hand quantity to the physically counted value and moves
// the variance through AvailableQty. The quantity is set directly rather
// than by delta to avoid compounding drift across count cycles.
// Returns the signed variance applied.
func (s *InventorySnapshot) ApplyCount(countedQty decimal.Decimal) (decimal.Decimal, error) {
	if countedQty.IsNegative() {
		return decimal.Zero, shared.NewDomainError("VALIDATION_FAILED", "Counted quantity cannot be negative")
	}

	variance := countedQty.Sub(s.Quantity)
	now := time.Now()

	s.Quantity = countedQty
	s.AvailableQty = s.AvailableQty.Add(variance)
	s.LastCountedAt = &now
	s.markMovement()

	return variance, nil
}

// SetMinQuantity sets the low-stock alert threshold
func (s *InventorySnapshot) SetMinQuantity(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.NewDomainError("VALIDATION_FAILED", "Minimum quantity cannot be negative")
	}
	s.MinQuantity = quantity
	s.Touch()
	return nil
}

// SetUnitCost records the unit cost used for variance valuation
func (s *InventorySnapshot) SetUnitCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return shared.NewDomainError("VALIDATION_FAILED", "Unit cost cannot be negative")
	}
	s.UnitCost = cost
	s.Touch()
	return nil
}

// CanFulfill returns true if the available quantity covers the requested amount
func (s *InventorySnapshot) CanFulfill(quantity decimal.Decimal) bool {
	return s.AvailableQty.GreaterThanOrEqual(quantity)
}

// IsBelowMinimum returns true if on-hand quantity is below the alert threshold
func (s *InventorySnapshot) IsBelowMinimum() bool {
	return s.MinQuantity.GreaterThan(decimal.Zero) && s.Quantity.LessThan(s.MinQuantity)
}

// TotalValue returns on-hand quantity valued at unit cost
func (s *InventorySnapshot) TotalValue() decimal.Decimal {
	return s.Quantity.Mul(s.UnitCost)
}

func (s *InventorySnapshot) markMovement() {
	now := time.Now()
	s.LastMovementAt = &now
	s.UpdatedAt = now
}
