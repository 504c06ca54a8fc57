package repository

import (
	"context"

	"bookLendingManagement/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, username, email, fullName, passwordHash string, role models.Role) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, subject string, role models.Role) (*models.User, error)
	Delete(ctx context.Context, subject string) error
}

// BookRepositoryI defines operations on Book entities.
type BookRepositoryI interface {
	Create(ctx context.Context, b *models.Book) (*models.Book, error)
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	List(ctx context.Context) ([]models.Book, error)
	Search(ctx context.Context, query string) ([]models.Book, error)
	ListByBorrower(ctx context.Context, userID int64) ([]models.Book, error)
	Update(ctx context.Context, id int64, upd models.BookUpdate) (*models.Book, error)
	Delete(ctx context.Context, id int64) error
}

// LendingRepositoryI defines the compound borrow/return mutations. Both run
// as single store transactions so concurrent calls on the same book cannot
// produce lost updates.
type LendingRepositoryI interface {
	Borrow(ctx context.Context, userID, bookID int64) error
	Return(ctx context.Context, userID, bookID int64) error
}
