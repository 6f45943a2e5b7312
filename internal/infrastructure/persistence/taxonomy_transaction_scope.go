package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	apptaxonomy "github.com/newsdesk/backend/internal/application/taxonomy"
	"github.com/newsdesk/backend/internal/domain/shared"
	"github.com/newsdesk/backend/internal/domain/taxonomy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Postgres SQLSTATEs raised when a concurrent transaction wins
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every repository handed to the callback shares one transaction.
type GormTransactionScope struct {
	db           *gorm.DB
	serializable bool
	logger       *zap.Logger
}

// TransactionScopeOption configures a GormTransactionScope
type TransactionScopeOption func(*GormTransactionScope)

// WithSerializable runs every transaction at SERIALIZABLE isolation
func WithSerializable(enabled bool) TransactionScopeOption {
	return func(s *GormTransactionScope) {
		s.serializable = enabled
	}
}

// WithTransactionLogger sets the logger used for conflict reports
func WithTransactionLogger(logger *zap.Logger) TransactionScopeOption {
	return func(s *GormTransactionScope) {
		s.logger = logger
	}
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, opts ...TransactionScopeOption) *GormTransactionScope {
	s := &GormTransactionScope{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs fn within a database transaction.
// An error from fn rolls back; serialization failures come back as CONCURRENT_MODIFICATION.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apptaxonomy.TransactionalRepositories) error) error {
	var txOpts []*sql.TxOptions
	if s.serializable {
		txOpts = append(txOpts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	}, txOpts...)

	if conflict := asConcurrentModification(err); conflict != nil {
		s.logger.Warn("transaction lost a concurrent update",
			zap.Bool("serializable", s.serializable),
			zap.Error(err),
		)
		return conflict
	}
	return err
}

// asConcurrentModification maps Postgres serialization and deadlock failures
// to shared.ErrConcurrentModification. It returns nil for every other error.
func asConcurrentModification(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return fmt.Errorf("%w: %s", shared.ErrConcurrentModification, pgErr.Message)
	default:
		return nil
	}
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// CategoryRepo returns the category repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CategoryRepo() taxonomy.CategoryRepository {
	return NewGormCategoryRepository(r.tx)
}

// NewsRepo returns the news repository scoped to the current transaction.
func (r *gormTransactionalRepositories) NewsRepo() taxonomy.NewsRepository {
	return NewGormNewsRepository(r.tx)
}

// AssignmentRepo returns the pivot repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AssignmentRepo() taxonomy.AssignmentRepository {
	return NewGormAssignmentRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ apptaxonomy.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ apptaxonomy.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
