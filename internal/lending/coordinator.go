// Package lending coordinates borrow/return flows across the user and book
// stores. Per (user, book) pair the state machine is
// NotBorrowed -> Borrowed -> NotBorrowed.
package lending

import (
	"context"

	"bookLendingManagement/internal/apperr"
	"bookLendingManagement/models"
	"bookLendingManagement/repository"
)

type Coordinator struct {
	books   repository.BookRepositoryI
	lending repository.LendingRepositoryI
}

func NewCoordinator(books repository.BookRepositoryI, lending repository.LendingRepositoryI) *Coordinator {
	return &Coordinator{books: books, lending: lending}
}

// Borrow lends one copy of the book to the user. Admin accounts are barred
// from borrowing. Availability and double-borrow checks run inside the
// store transaction.
func (c *Coordinator) Borrow(ctx context.Context, user *models.User, bookID int64) error {
	if user.Role == models.RoleAdmin {
		return apperr.New(apperr.KindForbidden, "admins cannot borrow books")
	}
	return c.lending.Borrow(ctx, user.ID, bookID)
}

// Return gives a borrowed copy back.
func (c *Coordinator) Return(ctx context.Context, user *models.User, bookID int64) error {
	return c.lending.Return(ctx, user.ID, bookID)
}

// MyBooks lists the books the user currently holds; empty when none.
func (c *Coordinator) MyBooks(ctx context.Context, user *models.User) ([]models.Book, error) {
	return c.books.ListByBorrower(ctx, user.ID)
}
