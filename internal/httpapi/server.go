// Package httpapi exposes the service over HTTP/JSON.
package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"bookLendingManagement/internal/auth"
	"bookLendingManagement/internal/lending"
	"bookLendingManagement/models"
	"bookLendingManagement/repository"
)

// Server wires repositories and the access control gate into HTTP handlers.
type Server struct {
	log      *slog.Logger
	db       *sql.DB
	users    repository.UserRepositoryI
	books    repository.BookRepositoryI
	lending  *lending.Coordinator
	gate     *auth.Gate
	secret   string
	tokenTTL time.Duration
}

func NewServer(log *slog.Logger, db *sql.DB, users repository.UserRepositoryI, books repository.BookRepositoryI, coord *lending.Coordinator, gate *auth.Gate, secret string, tokenTTL time.Duration) *Server {
	return &Server{
		log:      log,
		db:       db,
		users:    users,
		books:    books,
		lending:  coord,
		gate:     gate,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

// Handler builds the router with CORS and request logging applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", s.authenticated(s.handleMe)).Methods(http.MethodGet)

	// /books/search must register before /books/{id}.
	r.HandleFunc("/books", s.handleListBooks).Methods(http.MethodGet)
	r.HandleFunc("/books/search", s.handleSearchBooks).Methods(http.MethodGet)
	r.HandleFunc("/books/{id}", s.handleGetBook).Methods(http.MethodGet)
	r.HandleFunc("/books/{id}/borrow", s.authenticated(s.handleBorrow)).Methods(http.MethodPost)
	r.HandleFunc("/books/{id}/return", s.authenticated(s.handleReturn)).Methods(http.MethodPost)
	r.HandleFunc("/mybooks", s.authenticated(s.handleMyBooks)).Methods(http.MethodGet)

	r.HandleFunc("/admin/books", s.adminOnly(s.handleAdminListBooks)).Methods(http.MethodGet)
	r.HandleFunc("/admin/books", s.adminOnly(s.handleCreateBook)).Methods(http.MethodPost)
	r.HandleFunc("/admin/books/{id}", s.adminOnly(s.handleUpdateBook)).Methods(http.MethodPut)
	r.HandleFunc("/admin/books/{id}", s.adminOnly(s.handleDeleteBook)).Methods(http.MethodDelete)

	r.HandleFunc("/admin/users", s.adminOnly(s.handleListUsers)).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id}", s.adminOnly(s.handleGetUser)).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id}", s.adminOnly(s.handleDeleteUser)).Methods(http.MethodDelete)
	r.HandleFunc("/admin/users/{id}/role", s.adminOnly(s.handleUpdateUserRole)).Methods(http.MethodPut)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return s.logRequests(c.Handler(r))
}

// authenticated verifies the bearer token, resolves the caller and stores
// the user view in the request context. Any failure is a uniform 401.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerFromRequest(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		user, err := s.gate.Authenticate(r.Context(), token)
		if err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r.WithContext(auth.WithUser(r.Context(), user)))
	}
}

// adminOnly is authenticated plus an exact-match admin role check.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFromContext(r.Context())
		if err := auth.Authorize(user, models.RoleAdmin); err != nil {
			s.writeError(w, err)
			return
		}
		next(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
