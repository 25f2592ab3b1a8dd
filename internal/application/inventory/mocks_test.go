package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory fakes backing the service tests. They implement the repository
// interfaces over plain maps so the services exercise real state transitions
// without a database.

func pairKey(warehouseID, itemID uuid.UUID) string {
	return warehouseID.String() + ":" + itemID.String()
}

type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots map[string]*inventory.InventorySnapshot
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{snapshots: make(map[string]*inventory.InventorySnapshot)}
}

func (r *fakeSnapshotRepo) put(s *inventory.InventorySnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[pairKey(s.WarehouseID, s.ItemID)] = s
}

func (r *fakeSnapshotRepo) Create(_ context.Context, s *inventory.InventorySnapshot) error {
	r.put(s)
	return nil
}

func (r *fakeSnapshotRepo) Save(_ context.Context, s *inventory.InventorySnapshot) error {
	r.put(s)
	return nil
}

func (r *fakeSnapshotRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.InventorySnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.snapshots {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSnapshotRepo) FindByKey(_ context.Context, warehouseID, itemID uuid.UUID) (*inventory.InventorySnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.snapshots[pairKey(warehouseID, itemID)]; ok {
		return s, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeSnapshotRepo) FindByKeyForUpdate(ctx context.Context, warehouseID, itemID uuid.UUID) (*inventory.InventorySnapshot, error) {
	return r.FindByKey(ctx, warehouseID, itemID)
}

func (r *fakeSnapshotRepo) GetOrCreateForUpdate(ctx context.Context, warehouseID, itemID uuid.UUID) (*inventory.InventorySnapshot, error) {
	if s, err := r.FindByKey(ctx, warehouseID, itemID); err == nil {
		return s, nil
	}
	s, err := inventory.NewInventorySnapshot(warehouseID, itemID)
	if err != nil {
		return nil, err
	}
	r.put(s)
	return s, nil
}

func (r *fakeSnapshotRepo) all() []*inventory.InventorySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*inventory.InventorySnapshot, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return pairKey(result[i].WarehouseID, result[i].ItemID) < pairKey(result[j].WarehouseID, result[j].ItemID)
	})
	return result
}

func (r *fakeSnapshotRepo) FindOverview(_ context.Context, query inventory.OverviewQuery) (*shared.Paginated[*inventory.InventorySnapshot], error) {
	matched := make([]*inventory.InventorySnapshot, 0)
	for _, s := range r.all() {
		if query.WarehouseID != nil && s.WarehouseID != *query.WarehouseID {
			continue
		}
		if query.ItemID != nil && s.ItemID != *query.ItemID {
			continue
		}
		if query.BelowMin && !s.IsBelowMinimum() {
			continue
		}
		matched = append(matched, s)
	}
	page := shared.NewPaginated(matched, int64(len(matched)), query.Filter.Page, query.Filter.PageSize)
	return &page, nil
}

func (r *fakeSnapshotRepo) FindBelowMinimum(_ context.Context, warehouseID *uuid.UUID) ([]*inventory.InventorySnapshot, error) {
	result := make([]*inventory.InventorySnapshot, 0)
	for _, s := range r.all() {
		if warehouseID != nil && s.WarehouseID != *warehouseID {
			continue
		}
		if s.IsBelowMinimum() {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *fakeSnapshotRepo) FindTopByValue(_ context.Context, warehouseID uuid.UUID, limit int) ([]*inventory.InventorySnapshot, error) {
	result := make([]*inventory.InventorySnapshot, 0)
	for _, s := range r.all() {
		if s.WarehouseID == warehouseID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TotalValue().GreaterThan(result[j].TotalValue())
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeSnapshotRepo) FindByWarehouse(_ context.Context, warehouseID uuid.UUID) ([]*inventory.InventorySnapshot, error) {
	result := make([]*inventory.InventorySnapshot, 0)
	for _, s := range r.all() {
		if s.WarehouseID == warehouseID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *fakeSnapshotRepo) Summarize(_ context.Context, warehouseID *uuid.UUID) (*inventory.InventorySummary, error) {
	summary := &inventory.InventorySummary{
		TotalQuantity: decimal.Zero,
		TotalValue:    decimal.Zero,
		InTransit:     decimal.Zero,
	}
	for _, s := range r.all() {
		if warehouseID != nil && s.WarehouseID != *warehouseID {
			continue
		}
		summary.TotalItems++
		summary.TotalQuantity = summary.TotalQuantity.Add(s.Quantity)
		summary.TotalValue = summary.TotalValue.Add(s.TotalValue())
		summary.InTransit = summary.InTransit.Add(s.InTransitQty)
		if s.IsBelowMinimum() {
			summary.BelowMinimum++
		}
	}
	return summary, nil
}

type fakeBatchRepo struct {
	mu      sync.Mutex
	batches map[uuid.UUID]*inventory.InventoryBatch
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[uuid.UUID]*inventory.InventoryBatch)}
}

func (r *fakeBatchRepo) Create(_ context.Context, b *inventory.InventoryBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.batches {
		if existing.BatchNo == b.BatchNo {
			return shared.ErrDuplicateBatch
		}
	}
	r.batches[b.ID] = b
	return nil
}

func (r *fakeBatchRepo) Save(_ context.Context, b *inventory.InventoryBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = b
	return nil
}

func (r *fakeBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.InventoryBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.batches[id]; ok {
		return b, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeBatchRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryBatch, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeBatchRepo) FindByBatchNo(_ context.Context, batchNo string) (*inventory.InventoryBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.batches {
		if b.BatchNo == batchNo {
			return b, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeBatchRepo) ExistsByBatchNo(_ context.Context, batchNo string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.batches {
		if b.BatchNo == batchNo {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBatchRepo) FindByItem(_ context.Context, itemID uuid.UUID, warehouseID *uuid.UUID) ([]*inventory.InventoryBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*inventory.InventoryBatch, 0)
	for _, b := range r.batches {
		if b.ItemID != itemID {
			continue
		}
		if warehouseID != nil && b.WarehouseID != *warehouseID {
			continue
		}
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BatchNo < result[j].BatchNo })
	return result, nil
}

func (r *fakeBatchRepo) FindExpiringWithin(_ context.Context, deadline time.Time, warehouseID *uuid.UUID) ([]*inventory.InventoryBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*inventory.InventoryBatch, 0)
	for _, b := range r.batches {
		if b.ExpiryDate == nil || b.ExpiryDate.After(deadline) {
			continue
		}
		if warehouseID != nil && b.WarehouseID != *warehouseID {
			continue
		}
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExpiryDate.Before(*result[j].ExpiryDate) })
	return result, nil
}

type fakeTransactionRepo struct {
	mu      sync.Mutex
	entries []*inventory.InventoryTransaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{entries: make([]*inventory.InventoryTransaction, 0)}
}

func (r *fakeTransactionRepo) Create(_ context.Context, tx *inventory.InventoryTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, tx)
	return nil
}

func (r *fakeTransactionRepo) CreateAll(ctx context.Context, txs []*inventory.InventoryTransaction) error {
	for _, tx := range txs {
		if err := r.Create(ctx, tx); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeTransactionRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.entries {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeTransactionRepo) FindAll(_ context.Context, query inventory.TransactionQuery) (*shared.Paginated[*inventory.InventoryTransaction], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]*inventory.InventoryTransaction, 0)
	for _, tx := range r.entries {
		if query.WarehouseID != nil && tx.WarehouseID != *query.WarehouseID {
			continue
		}
		if query.ItemID != nil && tx.ItemID != *query.ItemID {
			continue
		}
		if query.BatchID != nil && (tx.BatchID == nil || *tx.BatchID != *query.BatchID) {
			continue
		}
		if query.TransactionType != nil && tx.TransactionType != *query.TransactionType {
			continue
		}
		matched = append(matched, tx)
	}
	page := shared.NewPaginated(matched, int64(len(matched)), query.Filter.Page, query.Filter.PageSize)
	return &page, nil
}

func (r *fakeTransactionRepo) FindByReference(_ context.Context, refType inventory.ReferenceType, refID string) ([]*inventory.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*inventory.InventoryTransaction, 0)
	for _, tx := range r.entries {
		if tx.ReferenceType == refType && tx.ReferenceID == refID {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (r *fakeTransactionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type fakeStockCountRepo struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]*inventory.StockCountSession
	lockedReads int
}

func newFakeStockCountRepo() *fakeStockCountRepo {
	return &fakeStockCountRepo{sessions: make(map[uuid.UUID]*inventory.StockCountSession)}
}

// cloneSession mimics a database read: each call materializes a fresh
// aggregate, so edits to an unlocked read never reach the stored session.
func cloneSession(s *inventory.StockCountSession) *inventory.StockCountSession {
	copied := *s
	copied.Items = append([]inventory.StockCountItem(nil), s.Items...)
	return &copied
}

func (r *fakeStockCountRepo) Create(_ context.Context, session *inventory.StockCountSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *fakeStockCountRepo) Save(_ context.Context, session *inventory.StockCountSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *fakeStockCountRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.StockCountSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return cloneSession(s), nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeStockCountRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*inventory.StockCountSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		r.lockedReads++
		return cloneSession(s), nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeStockCountRepo) lockedReadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lockedReads
}

func (r *fakeStockCountRepo) FindByCode(_ context.Context, code string) (*inventory.StockCountSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.SessionCode == code {
			return cloneSession(s), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeStockCountRepo) FindByWarehouse(_ context.Context, warehouseID uuid.UUID, filter shared.Filter) (*shared.Paginated[*inventory.StockCountSession], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*inventory.StockCountSession, 0)
	for _, s := range r.sessions {
		if s.WarehouseID == warehouseID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SessionCode < result[j].SessionCode })
	page := shared.NewPaginated(result, int64(len(result)), filter.Page, filter.PageSize)
	return &page, nil
}

type fakeIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{keys: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }

type fakeSnapshotCache struct {
	mu          sync.Mutex
	entries     map[string]*inventory.InventorySnapshot
	hits        int
	invalidated int
}

func newFakeSnapshotCache() *fakeSnapshotCache {
	return &fakeSnapshotCache{entries: make(map[string]*inventory.InventorySnapshot)}
}

func (c *fakeSnapshotCache) Get(_ context.Context, warehouseID, itemID uuid.UUID) (*inventory.InventorySnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.entries[pairKey(warehouseID, itemID)]; ok {
		c.hits++
		return s, nil
	}
	return nil, nil
}

func (c *fakeSnapshotCache) Set(_ context.Context, snapshot *inventory.InventorySnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[pairKey(snapshot.WarehouseID, snapshot.ItemID)] = snapshot
	return nil
}

func (c *fakeSnapshotCache) Invalidate(_ context.Context, warehouseID, itemID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, pairKey(warehouseID, itemID))
	c.invalidated++
	return nil
}

// sequentialCodes issues deterministic document numbers for assertions
type sequentialCodes struct {
	mu sync.Mutex
	n  int
}

func (g *sequentialCodes) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", prefix, g.n)
}

func (g *sequentialCodes) AdjustmentNo() string    { return g.next("ADJ") }
func (g *sequentialCodes) TransferNo() string      { return g.next("TRF") }
func (g *sequentialCodes) BatchTransferNo() string { return g.next("BTF") }
func (g *sequentialCodes) CountSessionNo() string  { return g.next("CNT") }

// testEnv wires the services against the in-memory fakes
type testEnv struct {
	snapshots    *fakeSnapshotRepo
	batches      *fakeBatchRepo
	transactions *fakeTransactionRepo
	counts       *fakeStockCountRepo
	cache        *fakeSnapshotCache
	idempotency  *fakeIdempotencyStore
	scope        *NoOpTransactionScope

	snapshotSvc *SnapshotService
	batchSvc    *BatchService
	countSvc    *StockCountService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		snapshots:    newFakeSnapshotRepo(),
		batches:      newFakeBatchRepo(),
		transactions: newFakeTransactionRepo(),
		counts:       newFakeStockCountRepo(),
		cache:        newFakeSnapshotCache(),
		idempotency:  newFakeIdempotencyStore(),
	}
	env.scope = NewNoOpTransactionScope(env.snapshots, env.batches, env.transactions, env.counts)
	codes := &sequentialCodes{}
	env.snapshotSvc = NewSnapshotService(env.scope, env.snapshots, env.transactions, env.cache, env.idempotency, codes, nil)
	env.batchSvc = NewBatchService(env.scope, env.batches, env.cache, env.idempotency, codes, nil)
	env.countSvc = NewStockCountService(env.scope, env.snapshots, env.counts, env.cache, codes, nil)
	return env
}

// seedSnapshot creates a snapshot with on-hand stock at the given cost
func (env *testEnv) seedSnapshot(warehouseID, itemID uuid.UUID, quantity int64, unitCost float64) *inventory.InventorySnapshot {
	snapshot, err := inventory.NewInventorySnapshot(warehouseID, itemID)
	if err != nil {
		panic(err)
	}
	if quantity > 0 {
		if err := snapshot.Increase(decimal.NewFromInt(quantity)); err != nil {
			panic(err)
		}
	}
	if unitCost > 0 {
		if err := snapshot.SetUnitCost(decimal.NewFromFloat(unitCost)); err != nil {
			panic(err)
		}
	}
	env.snapshots.put(snapshot)
	return snapshot
}
