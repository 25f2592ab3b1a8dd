package inventory

import (
	"context"

	"github.com/erp/warehouse/internal/domain/inventory"
)

// TransactionScope provides transactional access to inventory repositories.
// When a function is executed within a transaction scope, all repository
// operations join the same database transaction and commit or roll back
// atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all inventory repositories
// within a transaction. All repositories returned share the same underlying
// database transaction, so a snapshot locked FOR UPDATE stays locked until
// the scope's Execute returns.
type TransactionalRepositories interface {
	// SnapshotRepo returns the snapshot repository scoped to the current transaction
	SnapshotRepo() inventory.SnapshotRepository
	// BatchRepo returns the batch repository scoped to the current transaction
	BatchRepo() inventory.BatchRepository
	// TransactionRepo returns the ledger repository scoped to the current transaction
	TransactionRepo() inventory.TransactionRepository
	// StockCountRepo returns the count session repository scoped to the current transaction
	StockCountRepo() inventory.StockCountRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	snapshotRepo    inventory.SnapshotRepository
	batchRepo       inventory.BatchRepository
	transactionRepo inventory.TransactionRepository
	stockCountRepo  inventory.StockCountRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	snapshotRepo inventory.SnapshotRepository,
	batchRepo inventory.BatchRepository,
	transactionRepo inventory.TransactionRepository,
	stockCountRepo inventory.StockCountRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		snapshotRepo:    snapshotRepo,
		batchRepo:       batchRepo,
		transactionRepo: transactionRepo,
		stockCountRepo:  stockCountRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// SnapshotRepo returns the snapshot repository.
func (s *NoOpTransactionScope) SnapshotRepo() inventory.SnapshotRepository {
	return s.snapshotRepo
}

// BatchRepo returns the batch repository.
func (s *NoOpTransactionScope) BatchRepo() inventory.BatchRepository {
	return s.batchRepo
}

// TransactionRepo returns the ledger repository.
func (s *NoOpTransactionScope) TransactionRepo() inventory.TransactionRepository {
	return s.transactionRepo
}

// StockCountRepo returns the count session repository.
func (s *NoOpTransactionScope) StockCountRepo() inventory.StockCountRepository {
	return s.stockCountRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
