package inventory

import (
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotResponse represents an inventory snapshot in API responses
type SnapshotResponse struct {
	ID             uuid.UUID       `json:"id"`
	WarehouseID    uuid.UUID       `json:"warehouse_id"`
	ItemID         uuid.UUID       `json:"item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	AvailableQty   decimal.Decimal `json:"available_qty"`
	ReservedQty    decimal.Decimal `json:"reserved_qty"`
	InTransitQty   decimal.Decimal `json:"in_transit_qty"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalValue     decimal.Decimal `json:"total_value"`
	MinQuantity    decimal.Decimal `json:"min_quantity"`
	IsBelowMinimum bool            `json:"is_below_minimum"`
	LastMovementAt *time.Time      `json:"last_movement_at"`
	LastCountedAt  *time.Time      `json:"last_counted_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToSnapshotResponse converts a domain snapshot to a response
func ToSnapshotResponse(s *inventory.InventorySnapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:             s.ID,
		WarehouseID:    s.WarehouseID,
		ItemID:         s.ItemID,
		Quantity:       s.Quantity,
		AvailableQty:   s.AvailableQty,
		ReservedQty:    s.ReservedQty,
		InTransitQty:   s.InTransitQty,
		UnitCost:       s.UnitCost,
		TotalValue:     s.TotalValue(),
		MinQuantity:    s.MinQuantity,
		IsBelowMinimum: s.IsBelowMinimum(),
		LastMovementAt: s.LastMovementAt,
		LastCountedAt:  s.LastCountedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// ToSnapshotResponses converts a slice of snapshots
func ToSnapshotResponses(snapshots []*inventory.InventorySnapshot) []SnapshotResponse {
	responses := make([]SnapshotResponse, len(snapshots))
	for i, s := range snapshots {
		responses[i] = ToSnapshotResponse(s)
	}
	return responses
}

// AdjustStockRequest represents a manual stock adjustment
type AdjustStockRequest struct {
	WarehouseID    uuid.UUID       `json:"warehouse_id"`
	ItemID         uuid.UUID       `json:"item_id"`
	AdjustmentType string          `json:"adjustment_type"` // increase, decrease, set
	Quantity       decimal.Decimal `json:"quantity"`
	Reason         string          `json:"reason"`
	OperatorID     uuid.UUID       `json:"operator_id"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// AdjustStockResponse returns the adjustment document and resulting snapshot
type AdjustStockResponse struct {
	AdjustmentNo string           `json:"adjustment_no"`
	Delta        decimal.Decimal  `json:"delta"`
	Snapshot     SnapshotResponse `json:"snapshot"`
}

// ReserveStockRequest holds available stock for a pending order
type ReserveStockRequest struct {
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ItemID      uuid.UUID       `json:"item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// ReleaseStockRequest returns reserved stock to available
type ReleaseStockRequest struct {
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ItemID      uuid.UUID       `json:"item_id"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// TransferStockRequest moves stock between warehouses
type TransferStockRequest struct {
	FromWarehouseID uuid.UUID       `json:"from_warehouse_id"`
	ToWarehouseID   uuid.UUID       `json:"to_warehouse_id"`
	ItemID          uuid.UUID       `json:"item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	Notes           string          `json:"notes"`
	OperatorID      uuid.UUID       `json:"operator_id"`
	IdempotencyKey  string          `json:"idempotency_key"`
}

// TransferStockResponse identifies the dispatched transfer
type TransferStockResponse struct {
	TransferNo      string          `json:"transfer_no"`
	FromWarehouseID uuid.UUID       `json:"from_warehouse_id"`
	ToWarehouseID   uuid.UUID       `json:"to_warehouse_id"`
	ItemID          uuid.UUID       `json:"item_id"`
	Quantity        decimal.Decimal `json:"quantity"`
}

// ReceiveTransferRequest confirms arrival of a dispatched transfer
type ReceiveTransferRequest struct {
	TransferNo string    `json:"transfer_no"`
	OperatorID uuid.UUID `json:"operator_id"`
}

// SetMinQuantityRequest sets the low-stock alert threshold for a pair
type SetMinQuantityRequest struct {
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	ItemID      uuid.UUID       `json:"item_id"`
	MinQuantity decimal.Decimal `json:"min_quantity"`
}

// OverviewFilter represents filter options for the snapshot overview
type OverviewFilter struct {
	WarehouseID  *uuid.UUID `json:"warehouse_id"`
	ItemID       *uuid.UUID `json:"item_id"`
	BelowMinimum bool       `json:"below_minimum"`
	Page         int        `json:"page"`
	PageSize     int        `json:"page_size"`
	OrderBy      string     `json:"order_by"`
	OrderDir     string     `json:"order_dir"`
}

// SummaryResponse aggregates snapshot figures
type SummaryResponse struct {
	TotalItems    int64           `json:"total_items"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
	BelowMinimum  int64           `json:"below_minimum"`
	InTransit     decimal.Decimal `json:"in_transit"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	TransactionNo   string          `json:"transaction_no"`
	TransactionType string          `json:"transaction_type"`
	WarehouseID     uuid.UUID       `json:"warehouse_id"`
	ItemID          uuid.UUID       `json:"item_id"`
	BatchID         *uuid.UUID      `json:"batch_id,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	ReferenceType   string          `json:"reference_type"`
	ReferenceID     string          `json:"reference_id"`
	Notes           string          `json:"notes"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ToTransactionResponse converts a domain ledger entry to a response
func ToTransactionResponse(t *inventory.InventoryTransaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		TransactionNo:   t.TransactionNo,
		TransactionType: t.TransactionType.String(),
		WarehouseID:     t.WarehouseID,
		ItemID:          t.ItemID,
		BatchID:         t.BatchID,
		Quantity:        t.Quantity,
		ReferenceType:   string(t.ReferenceType),
		ReferenceID:     t.ReferenceID,
		Notes:           t.Notes,
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
	}
}

// ToTransactionResponses converts a slice of ledger entries
func ToTransactionResponses(txs []*inventory.InventoryTransaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		responses[i] = ToTransactionResponse(tx)
	}
	return responses
}

// TransactionListFilter represents filter options for the movement ledger
type TransactionListFilter struct {
	WarehouseID     *uuid.UUID `json:"warehouse_id"`
	ItemID          *uuid.UUID `json:"item_id"`
	BatchID         *uuid.UUID `json:"batch_id"`
	TransactionType string     `json:"transaction_type"`
	From            *time.Time `json:"from"`
	To              *time.Time `json:"to"`
	Page            int        `json:"page"`
	PageSize        int        `json:"page_size"`
}

// CreateBatchRequest registers a batch on goods receipt
type CreateBatchRequest struct {
	BatchNo         string          `json:"batch_no"`
	ItemID          uuid.UUID       `json:"item_id"`
	WarehouseID     uuid.UUID       `json:"warehouse_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	ProductionDate  *time.Time      `json:"production_date"`
	ExpiryDate      *time.Time      `json:"expiry_date"`
	SupplierID      *uuid.UUID      `json:"supplier_id"`
	SupplierBatchNo string          `json:"supplier_batch_no"`
	QualityGrade    string          `json:"quality_grade"`
	Location        string          `json:"location"`
	OperatorID      uuid.UUID       `json:"operator_id"`
}

// BatchResponse represents a batch in API responses
type BatchResponse struct {
	ID              uuid.UUID       `json:"id"`
	BatchNo         string          `json:"batch_no"`
	ItemID          uuid.UUID       `json:"item_id"`
	WarehouseID     uuid.UUID       `json:"warehouse_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	ProductionDate  *time.Time      `json:"production_date"`
	ExpiryDate      *time.Time      `json:"expiry_date"`
	DaysUntilExpiry int             `json:"days_until_expiry"`
	SupplierID      *uuid.UUID      `json:"supplier_id,omitempty"`
	SupplierBatchNo string          `json:"supplier_batch_no"`
	QualityGrade    string          `json:"quality_grade"`
	Location        string          `json:"location"`
	Status          string          `json:"status"`
	StatusReason    string          `json:"status_reason"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ToBatchResponse converts a domain batch to a response. The status reported
// is the effective status with expiry derived.
func ToBatchResponse(b *inventory.InventoryBatch) BatchResponse {
	return BatchResponse{
		ID:              b.ID,
		BatchNo:         b.BatchNo,
		ItemID:          b.ItemID,
		WarehouseID:     b.WarehouseID,
		Quantity:        b.Quantity,
		ProductionDate:  b.ProductionDate,
		ExpiryDate:      b.ExpiryDate,
		DaysUntilExpiry: b.DaysUntilExpiry(),
		SupplierID:      b.SupplierID,
		SupplierBatchNo: b.SupplierBatchNo,
		QualityGrade:    b.QualityGrade,
		Location:        b.Location,
		Status:          b.EffectiveStatus().String(),
		StatusReason:    b.StatusReason,
		CreatedAt:       b.CreatedAt,
	}
}

// ToBatchResponses converts a slice of batches
func ToBatchResponses(batches []*inventory.InventoryBatch) []BatchResponse {
	responses := make([]BatchResponse, len(batches))
	for i, b := range batches {
		responses[i] = ToBatchResponse(b)
	}
	return responses
}

// TransferBatchRequest moves a batch (fully or partially) between warehouses.
// The caller names the source warehouse it believes the batch is in; a batch
// elsewhere is treated as not found.
type TransferBatchRequest struct {
	BatchID         uuid.UUID        `json:"batch_id"`
	FromWarehouseID uuid.UUID        `json:"from_warehouse_id"`
	ToWarehouseID   uuid.UUID        `json:"to_warehouse_id"`
	Quantity        *decimal.Decimal `json:"quantity"` // nil means the whole batch
	Notes           string           `json:"notes"`
	OperatorID      uuid.UUID        `json:"operator_id"`
	IdempotencyKey  string           `json:"idempotency_key"`
}

// TransferBatchResponse identifies the batch transfer outcome
type TransferBatchResponse struct {
	TransferNo string        `json:"transfer_no"`
	Batch      BatchResponse `json:"batch"`
	// SourceBatch is set on a partial transfer: the decremented parent batch
	SourceBatch *BatchResponse `json:"source_batch,omitempty"`
}

// QuarantineBatchRequest pulls a batch out of circulation
type QuarantineBatchRequest struct {
	BatchID    uuid.UUID `json:"batch_id"`
	Reason     string    `json:"reason"`
	OperatorID uuid.UUID `json:"operator_id"`
}

// CreateCountSessionRequest plans a stock count
type CreateCountSessionRequest struct {
	WarehouseID uuid.UUID   `json:"warehouse_id"`
	CountType   string      `json:"count_type"` // full, cycle, spot
	ItemIDs     []uuid.UUID `json:"item_ids"`   // required for spot counts
	PlannedDate time.Time   `json:"planned_date"`
	Notes       string      `json:"notes"`
	CreatedBy   uuid.UUID   `json:"created_by"`
}

// SubmitCountRequest records a physical count for one item
type SubmitCountRequest struct {
	SessionID  uuid.UUID       `json:"session_id"`
	ItemID     uuid.UUID       `json:"item_id"`
	CountedQty decimal.Decimal `json:"counted_qty"`
	CountedBy  uuid.UUID       `json:"counted_by"`
	Notes      string          `json:"notes"`
}

// CountItemResponse represents one count session line
type CountItemResponse struct {
	ID              uuid.UUID        `json:"id"`
	ItemID          uuid.UUID        `json:"item_id"`
	SystemQty       decimal.Decimal  `json:"system_qty"`
	CountedQty      *decimal.Decimal `json:"counted_qty"`
	Variance        decimal.Decimal  `json:"variance"`
	VariancePercent decimal.Decimal  `json:"variance_percent"`
	VarianceValue   decimal.Decimal  `json:"variance_value"`
	CountedBy       *uuid.UUID       `json:"counted_by,omitempty"`
	CountedAt       *time.Time       `json:"counted_at,omitempty"`
	Notes           string           `json:"notes"`
	Status          string           `json:"status"`
}

// CountSessionResponse represents a count session in API responses
type CountSessionResponse struct {
	ID           uuid.UUID           `json:"id"`
	SessionCode  string              `json:"session_code"`
	WarehouseID  uuid.UUID           `json:"warehouse_id"`
	CountType    string              `json:"count_type"`
	Status       string              `json:"status"`
	PlannedDate  time.Time           `json:"planned_date"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	ApprovedBy   *uuid.UUID          `json:"approved_by,omitempty"`
	CreatedBy    uuid.UUID           `json:"created_by"`
	Notes        string              `json:"notes"`
	TotalItems   int                 `json:"total_items"`
	PendingItems int                 `json:"pending_items"`
	Items        []CountItemResponse `json:"items,omitempty"`
}

// ToCountItemResponse converts a domain count item to a response
func ToCountItemResponse(item *inventory.StockCountItem) CountItemResponse {
	return CountItemResponse{
		ID:              item.ID,
		ItemID:          item.ItemID,
		SystemQty:       item.SystemQty,
		CountedQty:      item.CountedQty,
		Variance:        item.Variance,
		VariancePercent: item.VariancePercent,
		VarianceValue:   item.VarianceValue(),
		CountedBy:       item.CountedBy,
		CountedAt:       item.CountedAt,
		Notes:           item.Notes,
		Status:          string(item.Status),
	}
}

// ToCountSessionResponse converts a domain session to a response with items
func ToCountSessionResponse(session *inventory.StockCountSession) CountSessionResponse {
	items := make([]CountItemResponse, len(session.Items))
	for i := range session.Items {
		items[i] = ToCountItemResponse(&session.Items[i])
	}
	return CountSessionResponse{
		ID:           session.ID,
		SessionCode:  session.SessionCode,
		WarehouseID:  session.WarehouseID,
		CountType:    string(session.CountType),
		Status:       session.Status.String(),
		PlannedDate:  session.PlannedDate,
		StartedAt:    session.StartedAt,
		CompletedAt:  session.CompletedAt,
		ApprovedBy:   session.ApprovedBy,
		CreatedBy:    session.CreatedBy,
		Notes:        session.Notes,
		TotalItems:   len(session.Items),
		PendingItems: session.PendingItems(),
		Items:        items,
	}
}

// VarianceReportResponse summarizes count variances for review. Surplus and
// shortage are quantity totals over the positive and negative variances;
// the average percent spans every item in the session.
type VarianceReportResponse struct {
	SessionID          uuid.UUID           `json:"session_id"`
	SessionCode        string              `json:"session_code"`
	Status             string              `json:"status"`
	TotalItems         int                 `json:"total_items"`
	ItemsWithVariance  int                 `json:"items_with_variance"`
	TotalSurplus       decimal.Decimal     `json:"total_surplus"`
	TotalShortage      decimal.Decimal     `json:"total_shortage"`
	AvgVariancePercent decimal.Decimal     `json:"avg_variance_percent"`
	TotalVarianceValue decimal.Decimal     `json:"total_variance_value"`
	Items              []CountItemResponse `json:"items"`
}
