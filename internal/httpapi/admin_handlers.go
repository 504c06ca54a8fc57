package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"bookLendingManagement/internal/apperr"
	"bookLendingManagement/models"
)

type createBookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
	TotalCopies int    `json:"total_copies"`
}

func (s *Server) handleAdminListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.books.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	if req.Title == "" || req.Author == "" || req.ISBN == "" {
		s.writeError(w, apperr.New(apperr.KindValidation, "title, author and isbn are required"))
		return
	}
	if req.TotalCopies < 1 {
		s.writeError(w, apperr.New(apperr.KindValidation, "total_copies must be at least 1"))
		return
	}

	book, err := s.books.Create(r.Context(), &models.Book{
		Title:       req.Title,
		Author:      req.Author,
		Genre:       req.Genre,
		ISBN:        req.ISBN,
		Description: req.Description,
		TotalCopies: req.TotalCopies,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var upd models.BookUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.writeError(w, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	book, err := s.books.Update(r.Context(), id, upd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.books.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Detail: "Book deleted successfully"})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetBySubject(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	if user == nil {
		s.writeError(w, apperr.New(apperr.KindNotFound, "user not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	user, err := s.users.UpdateRole(r.Context(), mux.Vars(r)["id"], models.Role(req.Role))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Detail: "User deleted successfully"})
}
