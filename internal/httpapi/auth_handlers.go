package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"bookLendingManagement/internal/apperr"
	"bookLendingManagement/internal/auth"
	"bookLendingManagement/models"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	Role        models.Role `json:"role"`
	Username    string      `json:"username"`
	UserID      string      `json:"user_id"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}
	if len(req.Username) < 3 || len(req.Username) > 50 {
		s.writeError(w, apperr.New(apperr.KindValidation, "username must be between 3 and 50 characters"))
		return
	}
	if len(req.Password) < 6 || len(req.Password) > 128 {
		s.writeError(w, apperr.New(apperr.KindValidation, "password must be between 6 and 128 characters"))
		return
	}
	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		s.writeError(w, apperr.New(apperr.KindValidation, "invalid role"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.users.Create(r.Context(), req.Username, req.Email, req.FullName, hash, role)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.Wrap(apperr.KindValidation, "invalid request body", err))
		return
	}

	user, err := s.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.writeError(w, apperr.New(apperr.KindUnauthorized, "invalid credentials"))
		return
	}

	token, err := auth.IssueToken(s.secret, user.SubjectID, user.Role, s.tokenTTL)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Role:        user.Role,
		Username:    user.Username,
		UserID:      user.SubjectID,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, database := "ok", "up"
	if err := s.db.PingContext(r.Context()); err != nil {
		status, database = "degraded", "down"
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    status,
		"database":  database,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
