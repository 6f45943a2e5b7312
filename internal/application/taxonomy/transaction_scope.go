package taxonomy

import (
	"context"

	"github.com/newsdesk/backend/internal/domain/taxonomy"
)

// TransactionScope runs taxonomy writes atomically.
// Every repository handed to fn shares one database transaction; an error
// returned by fn rolls all of it back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the taxonomy repositories within a transaction.
type TransactionalRepositories interface {
	// CategoryRepo returns the category repository scoped to the current transaction
	CategoryRepo() taxonomy.CategoryRepository
	// NewsRepo returns the news repository scoped to the current transaction
	NewsRepo() taxonomy.NewsRepository
	// AssignmentRepo returns the pivot repository scoped to the current transaction
	AssignmentRepo() taxonomy.AssignmentRepository
}

// NoOpTransactionScope runs the function against plain repositories.
// It is meant for tests with in-memory repositories.
type NoOpTransactionScope struct {
	categoryRepo   taxonomy.CategoryRepository
	newsRepo       taxonomy.NewsRepository
	assignmentRepo taxonomy.AssignmentRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	categoryRepo taxonomy.CategoryRepository,
	newsRepo taxonomy.NewsRepository,
	assignmentRepo taxonomy.AssignmentRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		categoryRepo:   categoryRepo,
		newsRepo:       newsRepo,
		assignmentRepo: assignmentRepo,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// CategoryRepo returns the category repository.
func (s *NoOpTransactionScope) CategoryRepo() taxonomy.CategoryRepository {
	return s.categoryRepo
}

// NewsRepo returns the news repository.
func (s *NoOpTransactionScope) NewsRepo() taxonomy.NewsRepository {
	return s.newsRepo
}

// AssignmentRepo returns the assignment repository.
func (s *NoOpTransactionScope) AssignmentRepo() taxonomy.AssignmentRepository {
	return s.assignmentRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
