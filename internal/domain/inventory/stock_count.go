package inventory

import (
	"fmt"
	"time"

	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CountType selects how the item set for a count session is chosen
type CountType string

const (
	// CountTypeFull counts every item with a snapshot in the warehouse
	CountTypeFull CountType = "full"
	// CountTypeCycle counts a bounded sample, highest-value items first
	CountTypeCycle CountType = "cycle"
	// CountTypeSpot counts an explicitly chosen item set
	CountTypeSpot CountType = "spot"
)

// IsValid returns true if the count type is valid
func (t CountType) IsValid() bool {
	switch t {
	case CountTypeFull, CountTypeCycle, CountTypeSpot:
		return true
	}
	return false
}

// CountSessionStatus represents the state of a stock count session
type CountSessionStatus string

const (
	CountStatusPlanned    CountSessionStatus = "planned"
	CountStatusInProgress CountSessionStatus = "in_progress"
	CountStatusReview     CountSessionStatus = "review"
	CountStatusCompleted  CountSessionStatus = "completed"
	CountStatusCancelled  CountSessionStatus = "cancelled"
)

// CanTransitionTo checks if the status can move to the target status
func (s CountSessionStatus) CanTransitionTo(target CountSessionStatus) bool {
	switch s {
	case CountStatusPlanned:
		return target == CountStatusInProgress || target == CountStatusCancelled
	case CountStatusInProgress:
		return target == CountStatusReview || target == CountStatusCancelled
	case CountStatusReview:
		return target == CountStatusCompleted || target == CountStatusCancelled
	case CountStatusCompleted, CountStatusCancelled:
		return false // Terminal states
	}
	return false
}

// String returns the string representation of CountSessionStatus
func (s CountSessionStatus) String() string {
	return string(s)
}

// CountItemStatus represents the state of one line in a count session
type CountItemStatus string

const (
	CountItemPending  CountItemStatus = "pending"
	CountItemCounted  CountItemStatus = "counted"
	CountItemVerified CountItemStatus = "verified"
	CountItemAdjusted CountItemStatus = "adjusted"
)

// StockCountItem is one line of a count session: the system quantity frozen
// at plan time against the physically counted quantity.
type StockCountItem struct {
	shared.BaseEntity
	SessionID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_count_item_session_item,priority:1"`
	ItemID          uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_count_item_session_item,priority:2"`
	SystemQty       decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	CountedQty      *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Variance        decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	VariancePercent decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost        decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"` // For monetary variance
	CountedBy       *uuid.UUID       `gorm:"type:uuid"`
	CountedAt       *time.Time
	Notes           string          `gorm:"type:varchar(255)"`
	Status          CountItemStatus `gorm:"type:varchar(20);not null;default:'pending'"`
}

// TableName returns the table name for GORM
func (StockCountItem) TableName() string {
	return "stock_count_items"
}

// RecordCount captures the physical count. Variance and variance percent
// are frozen at this moment even if the snapshot changes afterwards.
func (i *StockCountItem) RecordCount(countedQty decimal.Decimal, countedBy uuid.UUID, notes string) error {
	if countedQty.IsNegative() {
		return shared.NewDomainError("VALIDATION_FAILED", "Counted quantity cannot be negative")
	}
	if countedBy == uuid.Nil {
		return shared.NewDomainError("VALIDATION_FAILED", "Counter ID cannot be empty")
	}

	now := time.Now()
	i.CountedQty = &countedQty
	i.Variance = countedQty.Sub(i.SystemQty)
	if i.SystemQty.GreaterThan(decimal.Zero) {
		i.VariancePercent = i.Variance.Div(i.SystemQty).Mul(decimal.NewFromInt(100)).Round(4)
	} else {
		i.VariancePercent = decimal.Zero
	}
	i.CountedBy = &countedBy
	i.CountedAt = &now
	i.Notes = notes
	i.Status = CountItemCounted
	i.Touch()
	return nil
}

// HasVariance returns true if the counted quantity differs from the system quantity
func (i *StockCountItem) HasVariance() bool {
	return i.CountedQty != nil && !i.Variance.IsZero()
}

// VarianceValue returns the monetary value of the variance
func (i *StockCountItem) VarianceValue() decimal.Decimal {
	return i.Variance.Mul(i.UnitCost)
}

// MarkAdjusted records that the variance was written back to the snapshot
func (i *StockCountItem) MarkAdjusted() {
	i.Status = CountItemAdjusted
	i.Touch()
}

// StockCountSession is a physical-inventory reconciliation exercise over a
// warehouse. It is the aggregate root for the count workflow:
// planned → in_progress → review → {completed | cancelled}. The transition
// to review happens automatically when the last pending item is counted.
type StockCountSession struct {
	shared.BaseEntity
	SessionCode string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	WarehouseID uuid.UUID          `gorm:"type:uuid;not null;index"`
	CountType   CountType          `gorm:"type:varchar(20);not null"`
	Status      CountSessionStatus `gorm:"type:varchar(20);not null;default:'planned'"`
	PlannedDate time.Time          `gorm:"not null"`
	StartedAt   *time.Time
	CompletedAt *time.Time
	ApprovedBy  *uuid.UUID `gorm:"type:uuid"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null"`
	Notes       string     `gorm:"type:varchar(255)"`

	Items []StockCountItem `gorm:"foreignKey:SessionID;references:ID"`
}

// TableName returns the table name for GORM
func (StockCountSession) TableName() string {
	return "stock_count_sessions"
}

// NewStockCountSession plans a count session
func NewStockCountSession(sessionCode string, warehouseID uuid.UUID, countType CountType, plannedDate time.Time, createdBy uuid.UUID, notes string) (*StockCountSession, error) {
	if sessionCode == "" {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Session code cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Warehouse ID cannot be empty")
	}
	if !countType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Invalid count type")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Creator ID cannot be empty")
	}

	return &StockCountSession{
		BaseEntity:  shared.NewBaseEntity(),
		SessionCode: sessionCode,
		WarehouseID: warehouseID,
		CountType:   countType,
		Status:      CountStatusPlanned,
		PlannedDate: plannedDate,
		CreatedBy:   createdBy,
		Notes:       notes,
		Items:       make([]StockCountItem, 0),
	}, nil
}

// AddItem snapshots the system quantity for one item at plan time
func (s *StockCountSession) AddItem(itemID uuid.UUID, systemQty, unitCost decimal.Decimal) error {
	if s.Status != CountStatusPlanned {
		return shared.NewDomainError("INVALID_STATE", "Can only add items while the session is planned")
	}
	for _, item := range s.Items {
		if item.ItemID == itemID {
			return shared.NewDomainError("VALIDATION_FAILED", "Item already included in this session")
		}
	}

	s.Items = append(s.Items, StockCountItem{
		BaseEntity: shared.NewBaseEntity(),
		SessionID:  s.ID,
		ItemID:     itemID,
		SystemQty:  systemQty,
		UnitCost:   unitCost,
		Status:     CountItemPending,
	})
	s.Touch()
	return nil
}

// Start begins counting
func (s *StockCountSession) Start() error {
	if !s.Status.CanTransitionTo(CountStatusInProgress) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start a session in status %s", s.Status))
	}
	if len(s.Items) == 0 {
		return shared.NewDomainError("INVALID_STATE", "Cannot start a session with no items")
	}
	now := time.Now()
	s.Status = CountStatusInProgress
	s.StartedAt = &now
	s.Touch()
	return nil
}

// RecordCount records the physical count for an item. When the last pending
// item is counted the session advances to review as a side effect.
func (s *StockCountSession) RecordCount(itemID uuid.UUID, countedQty decimal.Decimal, countedBy uuid.UUID, notes string) (*StockCountItem, error) {
	if s.Status != CountStatusInProgress {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot record counts in status %s", s.Status))
	}

	var target *StockCountItem
	for idx := range s.Items {
		if s.Items[idx].ItemID == itemID {
			target = &s.Items[idx]
			break
		}
	}
	if target == nil {
		return nil, shared.ErrNotFound
	}

	if err := target.RecordCount(countedQty, countedBy, notes); err != nil {
		return nil, err
	}

	if s.PendingItems() == 0 {
		s.Status = CountStatusReview
	}
	s.Touch()
	return target, nil
}

// PendingItems returns how many items still lack a count
func (s *StockCountSession) PendingItems() int {
	pending := 0
	for _, item := range s.Items {
		if item.Status == CountItemPending {
			pending++
		}
	}
	return pending
}

// ItemsWithVariance returns counted items whose variance is non-zero
func (s *StockCountSession) ItemsWithVariance() []StockCountItem {
	result := make([]StockCountItem, 0)
	for _, item := range s.Items {
		if item.HasVariance() {
			result = append(result, item)
		}
	}
	return result
}

// Approve completes the session. Whether adjustments were applied is the
// caller's concern; the session completes either way.
func (s *StockCountSession) Approve(approvedBy uuid.UUID) error {
	if !s.Status.CanTransitionTo(CountStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot approve a session in status %s", s.Status))
	}
	if approvedBy == uuid.Nil {
		return shared.NewDomainError("VALIDATION_FAILED", "Approver ID cannot be empty")
	}
	now := time.Now()
	s.Status = CountStatusCompleted
	s.ApprovedBy = &approvedBy
	s.CompletedAt = &now
	s.Touch()
	return nil
}

// Cancel abandons the session before completion
func (s *StockCountSession) Cancel(reason string) error {
	if !s.Status.CanTransitionTo(CountStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel a session in status %s", s.Status))
	}
	s.Status = CountStatusCancelled
	if reason != "" {
		s.Notes = reason
	}
	s.Touch()
	return nil
}
