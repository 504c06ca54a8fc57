package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"bookLendingManagement/internal/apperr"
	"bookLendingManagement/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var sqErr sqlite3.Error
	return errors.As(err, &sqErr) && sqErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// Create inserts a new user with a fresh canonical subject id.
// Duplicate usernames surface as a conflict.
func (r *UserRepository) Create(ctx context.Context, username, email, fullName, passwordHash string, role models.Role) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	subject := uuid.NewString()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (subject_id, username, email, full_name, password_hash, role) VALUES (?, ?, ?, ?, ?, ?)`,
		subject, username, email, fullName, passwordHash, string(role))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Wrap(apperr.KindConflict, "username already exists", err)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:           id,
		SubjectID:    subject,
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		Role:         role,
		BorrowedIDs:  []int64{},
	}, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.getOne(ctx, `SELECT id, COALESCE(subject_id, ''), username, email, full_name, password_hash, role FROM users WHERE id = ?`, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.getOne(ctx, `SELECT id, COALESCE(subject_id, ''), username, email, full_name, password_hash, role FROM users WHERE username = ?`, username)
}

// GetBySubject looks a user up by canonical subject id first and falls back
// to the database-assigned id for subjects minted before the backfill.
// A subject that parses as neither is simply a miss, not an error.
func (r *UserRepository) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
	u, err := r.getBySubjectID(ctx, subject)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	legacyID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil, nil
	}
	return r.GetByID(ctx, legacyID)
}

func (r *UserRepository) getBySubjectID(ctx context.Context, subject string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.getOne(ctx, `SELECT id, COALESCE(subject_id, ''), username, email, full_name, password_hash, role FROM users WHERE subject_id = ?`, subject)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.SubjectID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	// Rows predating the backfill expose their row id as the subject.
	if u.SubjectID == "" {
		u.SubjectID = strconv.FormatInt(u.ID, 10)
	}
	borrowed, err := r.borrowedIDs(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.BorrowedIDs = borrowed
	return &u, nil
}

func (r *UserRepository) borrowedIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT book_id FROM borrows WHERE user_id = ? ORDER BY book_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT id, COALESCE(subject_id, ''), username, email, full_name, role FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.SubjectID, &u.Username, &u.Email, &u.FullName, &u.Role); err != nil {
			return nil, err
		}
		if u.SubjectID == "" {
			u.SubjectID = strconv.FormatInt(u.ID, 10)
		}
		u.BorrowedIDs = []int64{}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	borrows, err := r.db.QueryContext(ctx, `SELECT user_id, book_id FROM borrows ORDER BY book_id`)
	if err != nil {
		return nil, err
	}
	defer borrows.Close()
	byUser := map[int64][]int64{}
	for borrows.Next() {
		var userID, bookID int64
		if err := borrows.Scan(&userID, &bookID); err != nil {
			return nil, err
		}
		byUser[userID] = append(byUser[userID], bookID)
	}
	if err := borrows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if ids, ok := byUser[out[i].ID]; ok {
			out[i].BorrowedIDs = ids
		}
	}
	return out, nil
}

// UpdateRole sets the role for the user addressed by canonical subject id.
func (r *UserRepository) UpdateRole(ctx context.Context, subject string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperr.New(apperr.KindValidation, "invalid role")
	}
	u, err := r.GetBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE id = ?`, string(role), u.ID); err != nil {
		return nil, err
	}
	u.Role = role
	return u, nil
}

// Delete removes a user after returning every book they hold to the
// catalog, all inside one transaction so no orphaned borrow state remains.
func (r *UserRepository) Delete(ctx context.Context, subject string) error {
	u, err := r.GetBySubject(ctx, subject)
	if err != nil {
		return err
	}
	if u == nil {
		return apperr.New(apperr.KindNotFound, "user not found")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id IN (SELECT book_id FROM borrows WHERE user_id = ?)`, u.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM borrows WHERE user_id = ?`, u.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, u.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// BackfillSubjectIDs assigns a canonical subject id to every legacy row
// missing one. Run once at startup; returns how many rows were migrated.
func (r *UserRepository) BackfillSubjectIDs(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM users WHERE subject_id IS NULL`)
	if err != nil {
		return 0, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET subject_id = ? WHERE id = ?`, uuid.NewString(), id); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(ids), nil
}
