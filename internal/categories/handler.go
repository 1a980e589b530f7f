package categories

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"flowershop/internal/domain"
)

type CategoryStore interface {
	List(ctx context.Context) ([]domain.Category, error)
	GetByID(ctx context.Context, id domain.CategoryID) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id domain.CategoryID) error
}

type Handler struct {
	store  CategoryStore
	logger *slog.Logger
}

func NewHandler(store CategoryStore, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list categories", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := domain.CategoryID(r.PathValue("id"))
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing category id")
		return
	}

	category, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get category", "error", err, "category_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if category == nil {
		h.writeError(w, http.StatusNotFound, "category not found")
		return
	}

	h.writeJSON(w, http.StatusOK, category)
}

type categoryRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

func (req *categoryRequest) validate() string {
	if req.Name == "" || len(req.Name) > 255 {
		return "name is required and must be at most 255 characters"
	}
	return ""
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	existing, err := h.store.GetByName(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("failed to check category name", "error", err, "name", req.Name)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if existing != nil {
		h.writeError(w, http.StatusConflict, "category already exists under id "+string(existing.ID))
		return
	}

	category := domain.NewCategory(req.Name)
	if err := h.store.Create(r.Context(), category); err != nil {
		h.logger.Error("failed to create category", "error", err, "name", req.Name)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("category created", "category_id", category.ID, "name", category.Name)
	h.writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		h.writeError(w, http.StatusBadRequest, "missing category id")
		return
	}
	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	category, err := h.store.GetByID(r.Context(), domain.CategoryID(req.ID))
	if err != nil {
		h.logger.Error("failed to get category", "error", err, "category_id", req.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if category == nil {
		h.writeError(w, http.StatusNotFound, "category not found")
		return
	}

	duplicate, err := h.store.GetByName(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("failed to check category name", "error", err, "name", req.Name)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if duplicate != nil && duplicate.ID != category.ID {
		h.writeError(w, http.StatusConflict, "category already exists under id "+string(duplicate.ID))
		return
	}

	category.Rename(req.Name)
	if err := h.store.Update(r.Context(), category); err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			h.writeError(w, http.StatusNotFound, "category not found")
			return
		}
		h.logger.Error("failed to update category", "error", err, "category_id", category.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("category updated", "category_id", category.ID, "name", category.Name)
	h.writeJSON(w, http.StatusOK, category)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := domain.CategoryID(r.PathValue("id"))
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing category id")
		return
	}

	category, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get category", "error", err, "category_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if category == nil {
		h.writeError(w, http.StatusNotFound, "category not found")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, domain.ErrCategoryInUse):
			h.writeError(w, http.StatusConflict, "category is still referenced by flowers")
		case errors.Is(err, domain.ErrCategoryNotFound):
			h.writeError(w, http.StatusNotFound, "category not found")
		default:
			h.logger.Error("failed to delete category", "error", err, "category_id", id)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.logger.Info("category deleted", "category_id", id)
	h.writeJSON(w, http.StatusOK, category)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
