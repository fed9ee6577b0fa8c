package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jupiterclapton/post-service/internal/core/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, errorType, message string) {
	writeJSON(w, status, errorResponse{Error: errorType, Message: message})
}

// handleServiceError est l'unique couche de traduction erreur -> statut HTTP.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch kind := domain.KindOf(err); kind {
	case domain.KindBadRequest:
		writeError(w, http.StatusBadRequest, string(kind), err.Error())
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, string(kind), err.Error())
	case domain.KindForbidden:
		writeError(w, http.StatusForbidden, string(kind), err.Error())
	default:
		// Ne pas exposer le détail des erreurs internes
		slog.ErrorContext(r.Context(), "Unexpected error in post handler", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, string(domain.KindInternalServer), "An internal error occurred")
	}
}
