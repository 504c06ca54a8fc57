package models

import "time"

// Book represents a catalog entry. It maps to the `books` table.
// Invariant: AvailableCopies + len(BorrowedBy) == TotalCopies, with
// AvailableCopies in [0, TotalCopies].
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Genre           string    `json:"genre,omitempty"`
	ISBN            string    `json:"isbn"`
	Description     string    `json:"description,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	BorrowedBy      []string  `json:"borrowed_by"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookUpdate carries a partial catalog edit; nil fields are left untouched.
type BookUpdate struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Genre       *string `json:"genre"`
	Description *string `json:"description"`
	TotalCopies *int    `json:"total_copies"`
}
