package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"bookLendingManagement/internal/apperr"
	"bookLendingManagement/models"
)

type BookRepository struct {
	db *sql.DB
}

func NewBookRepository(db *sql.DB) *BookRepository {
	return &BookRepository{db: db}
}

const bookColumns = `id, title, author, genre, isbn, description, total_copies, available_copies, created_at, updated_at`

// Create inserts a catalog entry with every copy available and an empty
// borrower list. Duplicate ISBNs surface as a conflict.
func (r *BookRepository) Create(ctx context.Context, b *models.Book) (*models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO books (title, author, genre, isbn, description, total_copies, available_copies) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Title, b.Author, b.Genre, b.ISBN, b.Description, b.TotalCopies, b.TotalCopies)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.KindConflict, "book with this ISBN already exists", err)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

func (r *BookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.get(ctx, id)
}

func (r *BookRepository) get(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	err := r.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id).
		Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.ISBN, &b.Description, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	borrowers, err := r.borrowers(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.BorrowedBy = borrowers
	return &b, nil
}

// borrowers returns the canonical subject ids of users holding the book.
func (r *BookRepository) borrowers(ctx context.Context, bookID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, COALESCE(u.subject_id, '') FROM borrows b JOIN users u ON u.id = b.user_id WHERE b.book_id = ? ORDER BY u.id`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id int64
		var subject string
		if err := rows.Scan(&id, &subject); err != nil {
			return nil, err
		}
		if subject == "" {
			subject = strconv.FormatInt(id, 10)
		}
		out = append(out, subject)
	}
	return out, rows.Err()
}

func (r *BookRepository) List(ctx context.Context) ([]models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.queryBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
}

// Search matches a case-insensitive substring against title, author and genre.
func (r *BookRepository) Search(ctx context.Context, query string) ([]models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pattern := "%" + strings.ToLower(query) + "%"
	return r.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE lower(title) LIKE ? OR lower(author) LIKE ? OR lower(genre) LIKE ?
		 ORDER BY id`,
		pattern, pattern, pattern)
}

// ListByBorrower returns the books currently held by the given user.
func (r *BookRepository) ListByBorrower(ctx context.Context, userID int64) ([]models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id IN (SELECT book_id FROM borrows WHERE user_id = ?) ORDER BY id`,
		userID)
}

func (r *BookRepository) queryBooks(ctx context.Context, query string, args ...any) ([]models.Book, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Book{}
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.ISBN, &b.Description, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		borrowers, err := r.borrowers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].BorrowedBy = borrowers
	}
	return out, nil
}

// Update applies a partial edit. Changing total_copies recomputes
// available_copies against the current borrow count and rejects totals
// below it.
func (r *BookRepository) Update(ctx context.Context, id int64, upd models.BookUpdate) (*models.Book, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "book not found")
		}
		return nil, err
	}

	set := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}
	if upd.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Author != nil {
		set = append(set, "author = ?")
		args = append(args, *upd.Author)
	}
	if upd.Genre != nil {
		set = append(set, "genre = ?")
		args = append(args, *upd.Genre)
	}
	if upd.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.TotalCopies != nil {
		if *upd.TotalCopies < 1 {
			return nil, apperr.New(apperr.KindValidation, "total_copies must be at least 1")
		}
		var borrowed int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM borrows WHERE book_id = ?`, id).Scan(&borrowed); err != nil {
			return nil, err
		}
		if *upd.TotalCopies < borrowed {
			return nil, apperr.New(apperr.KindConflict, "total_copies is below the number of borrowed copies")
		}
		set = append(set, "total_copies = ?", "available_copies = ?")
		args = append(args, *upd.TotalCopies, *upd.TotalCopies-borrowed)
	}
	args = append(args, id)

	if _, err := tx.ExecContext(ctx, `UPDATE books SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.get(ctx, id)
}

// Delete removes a book that has no outstanding borrows.
func (r *BookRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, id).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.KindNotFound, "book not found")
		}
		return err
	}
	var borrowed int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM borrows WHERE book_id = ?`, id).Scan(&borrowed); err != nil {
		return err
	}
	if borrowed > 0 {
		return apperr.New(apperr.KindConflict, "cannot delete book that is currently borrowed")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}
