package models

// Role is the closed set of access levels an account can hold.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered account. ID is the database-assigned row id
// and never leaves the process; SubjectID is the canonical identifier
// carried in tokens and API responses.
type User struct {
	ID           int64   `json:"-"`
	SubjectID    string  `json:"user_id"`
	Username     string  `json:"username"`
	Email        string  `json:"email,omitempty"`
	FullName     string  `json:"full_name,omitempty"`
	PasswordHash string  `json:"-"`
	Role         Role    `json:"role"`
	BorrowedIDs  []int64 `json:"borrowed_books"`
}

// HasBorrowed reports whether the user currently holds the given book.
func (u *User) HasBorrowed(bookID int64) bool {
	for _, id := range u.BorrowedIDs {
		if id == bookID {
			return true
		}
	}
	return false
}
