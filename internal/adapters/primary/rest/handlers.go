package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jupiterclapton/post-service/internal/core/ports"
)

const (
	defaultOffset = 0
	defaultCount  = 5
	maxBodyBytes  = 16 * 1024
)

type PostHandler struct {
	service ports.PostService
}

func NewPostHandler(service ports.PostService) *PostHandler {
	return &PostHandler{service: service}
}

// HandleList : GET /?userId=&offset=&count=
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "BadRequest", "userId is required.")
		return
	}

	offset, err := intParam(q.Get("offset"), defaultOffset)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "offset must be an integer.")
		return
	}
	count, err := intParam(q.Get("count"), defaultCount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadRequest", "count must be an integer.")
		return
	}

	posts, err := h.service.GetPosts(r.Context(), userID, count, offset)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostDTOs(posts))
}

// HandleGet : GET /{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.GetPostByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostDTO(post))
}

// HandleCreate : POST / (authentifié). Le corps ne fournit que le contenu,
// l'auteur vient du jeton.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "BadRequest", "Request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "BadRequest", "Request body is required")
		default:
			writeError(w, http.StatusBadRequest, "BadRequest", "Invalid request body")
		}
		return
	}

	post, err := h.service.AddPost(r.Context(), UserIDFromContext(r.Context()), req.Content)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPostDTO(post))
}

// HandleDelete : DELETE /{id} (authentifié)
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeletePost(r.Context(), chi.URLParam(r, "id"), UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
