package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"flowershop/internal/domain"
)

const reportTopFlowers = 10

type OrderStore interface {
	Place(ctx context.Context, customerID domain.CustomerID, lines []domain.OrderLine) (*domain.Order, error)
	GetByID(ctx context.Context, id domain.OrderID) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id domain.OrderID, status domain.OrderStatus) (*domain.Order, error)
	DeliveredBetween(ctx context.Context, start, end time.Time) ([]SalesRow, error)
}

type CustomerResolver interface {
	GetByID(ctx context.Context, id domain.CustomerID) (*domain.Customer, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	store     OrderStore
	customers CustomerResolver
	producer  EventPublisher
	logger    *slog.Logger
}

// NewHandler wires the order endpoints. producer may be nil, in which case no
// events are published.
func NewHandler(store OrderStore, customers CustomerResolver, producer EventPublisher, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		customers: customers,
		producer:  producer,
		logger:    logger,
	}
}

type createOrderRequest struct {
	CustomerID string `json:"customer_id"`
	Items      []struct {
		FlowerID string `json:"flower_id"`
		Quantity int    `json:"quantity"`
	} `json:"items"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" {
		h.writeError(w, http.StatusBadRequest, "missing customer id")
		return
	}
	if len(req.Items) == 0 {
		h.writeError(w, http.StatusBadRequest, "order must contain at least one item")
		return
	}

	lines := make([]domain.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		if item.FlowerID == "" {
			h.writeError(w, http.StatusBadRequest, "missing flower id")
			return
		}
		if item.Quantity <= 0 {
			h.writeError(w, http.StatusBadRequest, "quantity must be positive")
			return
		}
		lines = append(lines, domain.OrderLine{
			FlowerID: domain.FlowerID(item.FlowerID),
			Quantity: item.Quantity,
		})
	}

	order, err := h.store.Place(r.Context(), domain.CustomerID(req.CustomerID), lines)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		switch {
		case errors.Is(err, domain.ErrCustomerNotFound):
			h.writeError(w, http.StatusNotFound, "customer not found")
		case errors.Is(err, domain.ErrFlowerNotFound):
			h.writeError(w, http.StatusNotFound, "one or more flowers not found")
		case errors.As(err, &stockErr):
			h.writeError(w, http.StatusBadRequest, stockErr.Error())
		default:
			h.logger.Error("failed to place order", "error", err, "customer_id", req.CustomerID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	if h.producer != nil {
		h.publishOrderCreated(r.Context(), order)
	}

	h.logger.Info("order placed", "order_id", order.ID, "customer_id", order.CustomerID, "total", order.TotalAmount)
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) publishOrderCreated(ctx context.Context, order *domain.Order) {
	event := domain.OrderCreatedEvent{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		Items:       order.Items,
		TotalAmount: order.TotalAmount,
		Timestamp:   order.CreatedAt,
	}

	customer, err := h.customers.GetByID(ctx, order.CustomerID)
	if err != nil {
		h.logger.Error("failed to load customer for event", "error", err, "order_id", order.ID)
	} else if customer != nil {
		event.CustomerEmail = customer.Email
	}

	if err := h.producer.Publish(ctx, string(order.ID), event); err != nil {
		h.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := domain.OrderID(r.PathValue("id"))
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := domain.OrderID(r.PathValue("id"))
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, ok := domain.ParseOrderStatus(req.Status)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid order status")
		return
	}

	order, err := h.store.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "order_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

// HandleSalesReport aggregates delivered orders created in the requested
// window. Dates are accepted as YYYY-MM-DD (endDate covering its whole day)
// or RFC 3339.
func (h *Handler) HandleSalesReport(w http.ResponseWriter, r *http.Request) {
	start, err := parseReportDate(r.URL.Query().Get("startDate"), false)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid startDate")
		return
	}
	end, err := parseReportDate(r.URL.Query().Get("endDate"), true)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid endDate")
		return
	}
	if !end.After(start) {
		h.writeError(w, http.StatusBadRequest, "endDate must not be before startDate")
		return
	}

	rows, err := h.store.DeliveredBetween(r.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to load sales data", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	report := BuildSalesReport(rows, reportTopFlowers)

	h.logger.Info("sales report built", "orders", report.TotalOrders, "revenue", report.TotalRevenue)
	h.writeJSON(w, http.StatusOK, report)
}

func parseReportDate(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		if endOfDay {
			t = t.Add(24 * time.Hour)
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
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
