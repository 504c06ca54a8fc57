package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"bookLendingManagement/internal/apperr"
)

// errorResponse is the uniform error body: a stable machine-checkable kind
// plus human-readable detail.
type errorResponse struct {
	Error  apperr.Kind `json:"error"`
	Detail string      `json:"detail"`
}

type messageResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", slog.Any("error", err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		s.log.Error("internal failure", slog.Any("error", err))
	}
	s.writeJSON(w, statusForKind(kind), errorResponse{Error: kind, Detail: apperr.DetailOf(err)})
}

// Conflict maps to 400: the signup contract fixes duplicate username at 400
// and the rest of the API keeps invariant violations consistent with it.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
