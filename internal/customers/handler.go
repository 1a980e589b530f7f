package customers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"flowershop/internal/domain"
)

type CustomerStore interface {
	List(ctx context.Context) ([]domain.Customer, error)
	GetByID(ctx context.Context, id domain.CustomerID) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, id domain.CustomerID) error
}

type Handler struct {
	store  CustomerStore
	logger *slog.Logger
}

func NewHandler(store CustomerStore, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list customers", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := domain.CustomerID(r.PathValue("id"))
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing customer id")
		return
	}

	customer, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get customer", "error", err, "customer_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if customer == nil {
		h.writeError(w, http.StatusNotFound, "customer not found")
		return
	}

	h.writeJSON(w, http.StatusOK, customer)
}

type customerRequest struct {
	ID        string `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

func (req *customerRequest) validate() string {
	switch {
	case req.FirstName == "" || len(req.FirstName) > 100:
		return "first name is required and must be at most 100 characters"
	case req.LastName == "" || len(req.LastName) > 100:
		return "last name is required and must be at most 100 characters"
	case req.Email == "" || len(req.Email) > 255 || !strings.Contains(req.Email, "@"):
		return "a valid email is required"
	case len(req.Phone) > 20:
		return "phone must be at most 20 characters"
	case len(req.Address) > 500:
		return "address must be at most 500 characters"
	}
	return ""
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	existing, err := h.store.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to check customer email", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if existing != nil {
		h.writeError(w, http.StatusConflict, "customer email already registered")
		return
	}

	customer := domain.NewCustomer(req.FirstName, req.LastName, req.Email, req.Phone, req.Address)
	if err := h.store.Create(r.Context(), customer); err != nil {
		h.logger.Error("failed to create customer", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("customer created", "customer_id", customer.ID)
	h.writeJSON(w, http.StatusCreated, customer)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		h.writeError(w, http.StatusBadRequest, "missing customer id")
		return
	}
	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	customer, err := h.store.GetByID(r.Context(), domain.CustomerID(req.ID))
	if err != nil {
		h.logger.Error("failed to get customer", "error", err, "customer_id", req.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if customer == nil {
		h.writeError(w, http.StatusNotFound, "customer not found")
		return
	}

	duplicate, err := h.store.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to check customer email", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if duplicate != nil && duplicate.ID != customer.ID {
		h.writeError(w, http.StatusConflict, "customer email already registered")
		return
	}

	customer.UpdateDetails(req.FirstName, req.LastName, req.Email, req.Phone, req.Address)
	if err := h.store.Update(r.Context(), customer); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			h.writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.logger.Error("failed to update customer", "error", err, "customer_id", customer.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("customer updated", "customer_id", customer.ID)
	h.writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := domain.CustomerID(r.PathValue("id"))
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing customer id")
		return
	}

	customer, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get customer", "error", err, "customer_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if customer == nil {
		h.writeError(w, http.StatusNotFound, "customer not found")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			h.writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.logger.Error("failed to delete customer", "error", err, "customer_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("customer deleted", "customer_id", id)
	h.writeJSON(w, http.StatusOK, customer)
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
