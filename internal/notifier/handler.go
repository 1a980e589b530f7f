// Package notifier consumes order.created events, confirms the order and
// sends the customer a confirmation email. Stock is already settled inside
// the placement transaction, so there is nothing to reserve or roll back
// here.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"flowershop/internal/domain"
)

type OrderConfirmer interface {
	UpdateStatus(ctx context.Context, id domain.OrderID, status domain.OrderStatus) (*domain.Order, error)
}

type Handler struct {
	orders     OrderConfirmer
	emailURL   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHandler(orders OrderConfirmer, emailURL string, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		orders:     orders,
		emailURL:   emailURL,
		httpClient: client,
		logger:     logger,
	}
}

func (h *Handler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "customer_id", event.CustomerID)

	order, err := h.orders.UpdateStatus(ctx, event.OrderID, domain.OrderStatusConfirmed)
	if err != nil {
		return fmt.Errorf("confirm order %s: %w", event.OrderID, err)
	}
	if order == nil {
		return fmt.Errorf("order %s not found", event.OrderID)
	}

	if err := h.sendConfirmationEmail(ctx, event); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}

	h.logger.Info("order confirmed", "order_id", event.OrderID)
	return nil
}

func (h *Handler) sendConfirmationEmail(ctx context.Context, event domain.OrderCreatedEvent) error {
	if event.CustomerEmail == "" {
		h.logger.Warn("event carries no customer email, skipping", "order_id", event.OrderID)
		return nil
	}

	body := map[string]string{
		"to":      event.CustomerEmail,
		"subject": "Order Confirmation: " + string(event.OrderID),
		"body": fmt.Sprintf("Your order %s (%d items, %s total) has been confirmed.",
			event.OrderID, len(event.Items), event.TotalAmount),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email gateway returned status %d", resp.StatusCode)
	}

	return nil
}
