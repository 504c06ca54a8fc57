package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"bookLendingManagement/internal/apperr"
	"bookLendingManagement/internal/auth"
)

func bookIDFromRequest(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperr.New(apperr.KindValidation, "invalid book id")
	}
	return id, nil
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.books.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	book, err := s.books.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if book == nil {
		s.writeError(w, apperr.New(apperr.KindNotFound, "book not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleSearchBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		s.writeError(w, apperr.New(apperr.KindValidation, "query parameter is required"))
		return
	}
	books, err := s.books.Search(r.Context(), query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, _ := auth.UserFromContext(r.Context())
	if err := s.lending.Borrow(r.Context(), user, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Detail: "Book borrowed successfully"})
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, err := bookIDFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, _ := auth.UserFromContext(r.Context())
	if err := s.lending.Return(r.Context(), user, id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Detail: "Book returned successfully"})
}

func (s *Server) handleMyBooks(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	books, err := s.lending.MyBooks(r.Context(), user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, books)
}
