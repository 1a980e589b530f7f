//go:build integration

package test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"flowershop/internal/categories"
	"flowershop/internal/customers"
	"flowershop/internal/domain"
	"flowershop/internal/flowers"
	"flowershop/internal/messaging"
	"flowershop/internal/notifier"
	"flowershop/internal/orders"
)

func seedCustomer(ctx context.Context, t *testing.T, repo *customers.Repository) *domain.Customer {
	t.Helper()

	customer := domain.NewCustomer("Ada", "Lovelace", "ada@example.com", "555-0100", "1 Analytical Way")
	if err := repo.Create(ctx, customer); err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}
	return customer
}

func seedFlower(ctx context.Context, t *testing.T, repo *flowers.Repository, name, price string, stock int) *domain.Flower {
	t.Helper()

	flower := domain.NewFlower(name, "", decimal.RequireFromString(price), stock)
	if err := repo.Create(ctx, flower, nil); err != nil {
		t.Fatalf("failed to create flower %s: %v", name, err)
	}
	return flower
}

func TestFlowerLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	categoryRepo := categories.NewRepository(db)
	flowerRepo := flowers.NewRepository(db)

	roses := domain.NewCategory("Roses")
	spring := domain.NewCategory("Spring")
	for _, category := range []*domain.Category{roses, spring} {
		if err := categoryRepo.Create(ctx, category); err != nil {
			t.Fatalf("failed to create category %s: %v", category.Name, err)
		}
	}

	flower := domain.NewFlower("Red Rose", "classic", decimal.RequireFromString("19.99"), 100)
	flower.Categories = []domain.Category{*roses}
	if err := flowerRepo.Create(ctx, flower, []domain.CategoryID{roses.ID}); err != nil {
		t.Fatalf("failed to create flower: %v", err)
	}

	fetched, err := flowerRepo.GetByID(ctx, flower.ID)
	if err != nil {
		t.Fatalf("failed to fetch flower: %v", err)
	}
	if fetched == nil {
		t.Fatal("flower not found after create")
	}
	if len(fetched.Categories) != 1 || fetched.Categories[0].ID != roses.ID {
		t.Fatalf("expected categories [%s], got %+v", roses.ID, fetched.Categories)
	}
	if !fetched.Price.Equal(decimal.RequireFromString("19.99")) {
		t.Fatalf("expected price 19.99, got %s", fetched.Price)
	}

	// Updating with a different category set replaces it entirely.
	fetched.UpdateDetails("Red Rose", "classic", fetched.Price, fetched.StockQuantity)
	if err := flowerRepo.Update(ctx, fetched, []domain.CategoryID{spring.ID}); err != nil {
		t.Fatalf("failed to update flower: %v", err)
	}

	updated, err := flowerRepo.GetByID(ctx, flower.ID)
	if err != nil {
		t.Fatalf("failed to fetch updated flower: %v", err)
	}
	if len(updated.Categories) != 1 || updated.Categories[0].ID != spring.ID {
		t.Fatalf("expected categories [%s], got %+v", spring.ID, updated.Categories)
	}

	byCategory, err := flowerRepo.ListByCategory(ctx, spring.ID)
	if err != nil {
		t.Fatalf("failed to list by category: %v", err)
	}
	if len(byCategory) != 1 {
		t.Fatalf("expected 1 flower in %s, got %d", spring.Name, len(byCategory))
	}

	if err := categoryRepo.Delete(ctx, spring.ID); !errors.Is(err, domain.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse deleting a referenced category, got %v", err)
	}

	if err := flowerRepo.Delete(ctx, flower.ID); err != nil {
		t.Fatalf("failed to delete flower: %v", err)
	}
	gone, err := flowerRepo.GetByID(ctx, flower.ID)
	if err != nil {
		t.Fatalf("failed to fetch deleted flower: %v", err)
	}
	if gone != nil {
		t.Fatal("flower still present after delete")
	}
	if err := flowerRepo.Delete(ctx, flower.ID); !errors.Is(err, domain.ErrFlowerNotFound) {
		t.Fatalf("expected ErrFlowerNotFound on second delete, got %v", err)
	}

	if err := categoryRepo.Delete(ctx, spring.ID); err != nil {
		t.Fatalf("failed to delete now-unreferenced category: %v", err)
	}
}

func TestOrderPlacementDecrementsStock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	customerRepo := customers.NewRepository(db)
	flowerRepo := flowers.NewRepository(db)
	orderRepo := orders.NewRepository(db)

	customer := seedCustomer(ctx, t, customerRepo)
	flower := seedFlower(ctx, t, flowerRepo, "Red Rose", "19.99", 100)

	order, err := orderRepo.Place(ctx, customer.ID, []domain.OrderLine{
		{FlowerID: flower.ID, Quantity: 3},
	})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}

	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected status %s, got %s", domain.OrderStatusPending, order.Status)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("59.97")) {
		t.Fatalf("expected total 59.97, got %s", order.TotalAmount)
	}
	if len(order.Items) != 1 || !order.Items[0].Price.Equal(flower.Price) {
		t.Fatalf("expected one item at the snapshot price %s, got %+v", flower.Price, order.Items)
	}

	remaining, err := flowerRepo.GetByID(ctx, flower.ID)
	if err != nil {
		t.Fatalf("failed to fetch flower: %v", err)
	}
	if remaining.StockQuantity != 97 {
		t.Fatalf("expected stock 97 after placement, got %d", remaining.StockQuantity)
	}

	fetched, err := orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if fetched == nil || fetched.CustomerID != customer.ID {
		t.Fatalf("unexpected persisted order: %+v", fetched)
	}
}

func TestOrderPlacementIsAllOrNothing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	customerRepo := customers.NewRepository(db)
	flowerRepo := flowers.NewRepository(db)
	orderRepo := orders.NewRepository(db)

	customer := seedCustomer(ctx, t, customerRepo)
	rose := seedFlower(ctx, t, flowerRepo, "Red Rose", "19.99", 100)
	tulip := seedFlower(ctx, t, flowerRepo, "Tulip", "4.50", 2)

	_, err := orderRepo.Place(ctx, customer.ID, []domain.OrderLine{
		{FlowerID: rose.ID, Quantity: 1},
		{FlowerID: tulip.ID, Quantity: 5},
	})

	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.FlowerID != tulip.ID || stockErr.Requested != 5 || stockErr.Available != 2 {
		t.Fatalf("unexpected shortage details: %+v", stockErr)
	}

	for _, flower := range []*domain.Flower{rose, tulip} {
		current, err := flowerRepo.GetByID(ctx, flower.ID)
		if err != nil {
			t.Fatalf("failed to fetch %s: %v", flower.Name, err)
		}
		if current.StockQuantity != flower.StockQuantity {
			t.Fatalf("%s: expected stock unchanged at %d, got %d", flower.Name, flower.StockQuantity, current.StockQuantity)
		}
	}

	placed, err := orderRepo.List(ctx)
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(placed) != 0 {
		t.Fatalf("expected no persisted orders, got %d", len(placed))
	}
}

func TestSalesReportCountsOnlyDeliveredOrders(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db := OpenDB(t, pg.ConnStr)
	customerRepo := customers.NewRepository(db)
	flowerRepo := flowers.NewRepository(db)
	orderRepo := orders.NewRepository(db)

	customer := seedCustomer(ctx, t, customerRepo)
	rose := seedFlower(ctx, t, flowerRepo, "Red Rose", "19.99", 100)

	delivered, err := orderRepo.Place(ctx, customer.ID, []domain.OrderLine{{FlowerID: rose.ID, Quantity: 3}})
	if err != nil {
		t.Fatalf("failed to place delivered order: %v", err)
	}
	if _, err := orderRepo.UpdateStatus(ctx, delivered.ID, domain.OrderStatusDelivered); err != nil {
		t.Fatalf("failed to mark order delivered: %v", err)
	}

	if _, err := orderRepo.Place(ctx, customer.ID, []domain.OrderLine{{FlowerID: rose.ID, Quantity: 1}}); err != nil {
		t.Fatalf("failed to place pending order: %v", err)
	}

	start := time.Now().UTC().Add(-time.Hour)
	end := time.Now().UTC().Add(time.Hour)
	rows, err := orderRepo.DeliveredBetween(ctx, start, end)
	if err != nil {
		t.Fatalf("failed to load sales rows: %v", err)
	}

	report := orders.BuildSalesReport(rows, 10)
	if report.TotalOrders != 1 {
		t.Fatalf("expected 1 delivered order in report, got %d", report.TotalOrders)
	}
	if report.TotalItemsSold != 3 {
		t.Fatalf("expected 3 items sold, got %d", report.TotalItemsSold)
	}
	if !report.TotalRevenue.Equal(decimal.RequireFromString("59.97")) {
		t.Fatalf("expected revenue 59.97, got %s", report.TotalRevenue)
	}
	if len(report.TopFlowers) != 1 || report.TopFlowers[0].FlowerName != "Red Rose" {
		t.Fatalf("unexpected top flowers: %+v", report.TopFlowers)
	}
}

type emailCapture struct {
	mu     sync.Mutex
	emails []map[string]string
}

func (e *emailCapture) handler(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	e.mu.Lock()
	e.emails = append(e.emails, req)
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"status":"sent"}`)
}

func (e *emailCapture) getEmails() []map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := make([]map[string]string, len(e.emails))
	copy(result, e.emails)
	return result
}

func TestOrderEventConfirmsAndNotifies(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	brokers, kafkaCleanup := SetupKafka(ctx, t)
	defer kafkaCleanup()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db := OpenDB(t, pg.ConnStr)
	customerRepo := customers.NewRepository(db)
	flowerRepo := flowers.NewRepository(db)
	orderRepo := orders.NewRepository(db)

	customer := seedCustomer(ctx, t, customerRepo)
	rose := seedFlower(ctx, t, flowerRepo, "Red Rose", "19.99", 100)

	order, err := orderRepo.Place(ctx, customer.ID, []domain.OrderLine{{FlowerID: rose.ID, Quantity: 2}})
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}

	emailCap := &emailCapture{}
	emailMux := http.NewServeMux()
	emailMux.HandleFunc("POST /send", emailCap.handler)
	emailServer := httptest.NewServer(emailMux)
	defer emailServer.Close()

	producer := messaging.NewProducer(brokers, messaging.TopicOrderCreated)
	defer func() { _ = producer.Close() }()

	event := domain.OrderCreatedEvent{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		CustomerEmail: customer.Email,
		Items:         order.Items,
		TotalAmount:   order.TotalAmount,
		Timestamp:     order.CreatedAt,
	}
	if err := producer.Publish(ctx, string(order.ID), event); err != nil {
		t.Fatalf("failed to publish event: %v", err)
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	notificationHandler := notifier.NewHandler(orderRepo, emailServer.URL, httpClient, logger)

	consumer := messaging.NewConsumer(brokers, messaging.TopicOrderCreated, "order-notifier-test", logger,
		messaging.WithStartOffset(kafkago.FirstOffset))
	defer func() { _ = consumer.Close() }()

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go func() {
		_ = consumer.Consume(consumerCtx, notificationHandler.Handle)
	}()

	deadline := time.Now().Add(90 * time.Second)
	for {
		if len(emailCap.getEmails()) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for confirmation email")
		}
		time.Sleep(500 * time.Millisecond)
	}
	stopConsumer()

	confirmed, err := orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if confirmed.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected status %s, got %s", domain.OrderStatusConfirmed, confirmed.Status)
	}

	emails := emailCap.getEmails()
	if len(emails) != 1 {
		t.Fatalf("expected 1 email, got %d", len(emails))
	}
	if emails[0]["to"] != customer.Email {
		t.Fatalf("expected email to %s, got %s", customer.Email, emails[0]["to"])
	}
}
