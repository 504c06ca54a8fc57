package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bookLendingManagement/internal/apperr"
)

// LendingRepository performs the compound borrow/return mutations. Each runs
// in a single transaction with a conditional copy-count update, so two
// concurrent borrows of the last copy cannot both succeed even across
// multiple server processes sharing the store.
type LendingRepository struct {
	db *sql.DB
}

func NewLendingRepository(db *sql.DB) *LendingRepository {
	return &LendingRepository{db: db}
}

// Borrow moves one copy of the book to the user.
func (r *LendingRepository) Borrow(ctx context.Context, userID, bookID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var available int
	err = tx.QueryRowContext(ctx, `SELECT available_copies FROM books WHERE id = ?`, bookID).Scan(&available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "book not found")
		}
		return err
	}
	if available <= 0 {
		return apperr.New(apperr.KindConflict, "no copies available")
	}

	var held int
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM borrows WHERE book_id = ? AND user_id = ?)`, bookID, userID).Scan(&held); err != nil {
		return err
	}
	if held == 1 {
		return apperr.New(apperr.KindConflict, "book already borrowed")
	}

	// Decrement-if-positive guards against a concurrent borrow taking the
	// last copy between the read above and this write.
	res, err := tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies - 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND available_copies > 0`, bookID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.KindConflict, "no copies available")
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO borrows (book_id, user_id) VALUES (?, ?)`, bookID, userID); err != nil {
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.KindConflict, "book already borrowed", err)
		}
		return err
	}
	return tx.Commit()
}

// Return gives one copy of the book back to the catalog.
func (r *LendingRepository) Return(ctx context.Context, userID, bookID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, bookID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "book not found")
		}
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM borrows WHERE book_id = ? AND user_id = ?`, bookID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.KindConflict, "book not borrowed by user")
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND available_copies < total_copies`, bookID)
	if err != nil {
		return err
	}
	n, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.KindInternal, "book availability out of sync")
	}
	return tx.Commit()
}
