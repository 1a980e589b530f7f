package orders

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowershop/internal/domain"
)

type fakeOrderStore struct {
	placed    *domain.Order
	placeErr  error
	orders    map[domain.OrderID]*domain.Order
	rows      []SalesRow
	lastLines []domain.OrderLine
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[domain.OrderID]*domain.Order{}}
}

func (s *fakeOrderStore) Place(_ context.Context, customerID domain.CustomerID, lines []domain.OrderLine) (*domain.Order, error) {
	s.lastLines = lines
	if s.placeErr != nil {
		return nil, s.placeErr
	}
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.OrderItem{
			FlowerID: line.FlowerID,
			Quantity: line.Quantity,
			Price:    decimal.RequireFromString("19.99"),
		})
	}
	s.placed = domain.NewOrder(customerID, items)
	s.orders[s.placed.ID] = s.placed
	return s.placed, nil
}

func (s *fakeOrderStore) GetByID(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	return s.orders[id], nil
}

func (s *fakeOrderStore) List(context.Context) ([]domain.Order, error) {
	out := []domain.Order{}
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *fakeOrderStore) UpdateStatus(_ context.Context, id domain.OrderID, status domain.OrderStatus) (*domain.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	order.Status = status
	return order, nil
}

func (s *fakeOrderStore) DeliveredBetween(context.Context, time.Time, time.Time) ([]SalesRow, error) {
	return s.rows, nil
}

type fakeCustomerResolver struct {
	customers map[domain.CustomerID]*domain.Customer
}

func (r *fakeCustomerResolver) GetByID(_ context.Context, id domain.CustomerID) (*domain.Customer, error) {
	return r.customers[id], nil
}

type fakePublisher struct {
	keys   []string
	events []any
}

func (p *fakePublisher) Publish(_ context.Context, key string, event any) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return nil
}

func newTestHandler(store *fakeOrderStore, customers ...*domain.Customer) (*Handler, *fakePublisher) {
	resolver := &fakeCustomerResolver{customers: map[domain.CustomerID]*domain.Customer{}}
	for _, c := range customers {
		resolver.customers[c.ID] = c
	}
	producer := &fakePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(store, resolver, producer, logger), producer
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleCreate(t *testing.T) {
	customer := domain.NewCustomer("Ada", "Lovelace", "ada@example.com", "", "")

	t.Run("places order and publishes event", func(t *testing.T) {
		store := newFakeOrderStore()
		handler, producer := newTestHandler(store, customer)

		rec := httptest.NewRecorder()
		handler.HandleCreate(rec, jsonRequest(http.MethodPost, "/orders",
			`{"customer_id":"`+string(customer.ID)+`","items":[{"flower_id":"f1","quantity":3}]}`))

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var order domain.Order
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&order))
		assert.Equal(t, domain.OrderStatusPending, order.Status)
		assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("59.97")), order.TotalAmount.String())

		require.Len(t, producer.events, 1)
		event, ok := producer.events[0].(domain.OrderCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, order.ID, event.OrderID)
		assert.Equal(t, customer.Email, event.CustomerEmail)
		assert.Equal(t, string(order.ID), producer.keys[0])
	})

	t.Run("rejects empty items", func(t *testing.T) {
		handler, producer := newTestHandler(newFakeOrderStore(), customer)

		rec := httptest.NewRecorder()
		handler.HandleCreate(rec, jsonRequest(http.MethodPost, "/orders",
			`{"customer_id":"`+string(customer.ID)+`","items":[]}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, producer.events)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		store := newFakeOrderStore()
		handler, _ := newTestHandler(store, customer)

		rec := httptest.NewRecorder()
		handler.HandleCreate(rec, jsonRequest(http.MethodPost, "/orders",
			`{"customer_id":"`+string(customer.ID)+`","items":[{"flower_id":"f1","quantity":0}]}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, store.lastLines, "store must not be reached")
	})

	t.Run("unknown customer", func(t *testing.T) {
		store := newFakeOrderStore()
		store.placeErr = domain.ErrCustomerNotFound
		handler, _ := newTestHandler(store)

		rec := httptest.NewRecorder()
		handler.HandleCreate(rec, jsonRequest(http.MethodPost, "/orders",
			`{"customer_id":"nope","items":[{"flower_id":"f1","quantity":1}]}`))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown flower", func(t *testing.T) {
		store := newFakeOrderStore()
		store.placeErr = domain.ErrFlowerNotFound
		handler, _ := newTestHandler(store, customer)

		rec := httptest.NewRecorder()
		handler.HandleCreate(rec, jsonRequest(http.MethodPost, "/orders",
			`{"customer_id":"`+string(customer.ID)+`","items":[{"flower_id":"nope","quantity":1}]}`))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "one or more flowers not found")
	})

	t.Run("insufficient stock surfaces the shortage", func(t *testing.T) {
		store := newFakeOrderStore()
		store.placeErr = &domain.InsufficientStockError{
			FlowerID:   "f1",
			FlowerName: "Red Rose",
			Requested:  5,
			Available:  2,
		}
		handler, producer := newTestHandler(store, customer)

		rec := httptest.NewRecorder()
		handler.HandleCreate(rec, jsonRequest(http.MethodPost, "/orders",
			`{"customer_id":"`+string(customer.ID)+`","items":[{"flower_id":"f1","quantity":5}]}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Red Rose")
		assert.Empty(t, producer.events)
	})
}

func TestHandleUpdateStatus(t *testing.T) {
	customer := domain.NewCustomer("Ada", "Lovelace", "ada@example.com", "", "")

	placeOrder := func(t *testing.T, store *fakeOrderStore) *domain.Order {
		t.Helper()
		order, err := store.Place(context.Background(), customer.ID, []domain.OrderLine{{FlowerID: "f1", Quantity: 1}})
		require.NoError(t, err)
		return order
	}

	t.Run("updates to a known status", func(t *testing.T) {
		store := newFakeOrderStore()
		order := placeOrder(t, store)
		handler, _ := newTestHandler(store, customer)

		req := jsonRequest(http.MethodPatch, "/orders/"+string(order.ID)+"/status", `{"status":"delivered"}`)
		req.SetPathValue("id", string(order.ID))
		rec := httptest.NewRecorder()
		handler.HandleUpdateStatus(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got domain.Order
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, domain.OrderStatusDelivered, got.Status)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		store := newFakeOrderStore()
		order := placeOrder(t, store)
		handler, _ := newTestHandler(store, customer)

		req := jsonRequest(http.MethodPatch, "/orders/"+string(order.ID)+"/status", `{"status":"Delivered"}`)
		req.SetPathValue("id", string(order.ID))
		rec := httptest.NewRecorder()
		handler.HandleUpdateStatus(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, domain.OrderStatusPending, order.Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		handler, _ := newTestHandler(newFakeOrderStore(), customer)

		req := jsonRequest(http.MethodPatch, "/orders/nope/status", `{"status":"confirmed"}`)
		req.SetPathValue("id", "nope")
		rec := httptest.NewRecorder()
		handler.HandleUpdateStatus(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleSalesReportDates(t *testing.T) {
	salesReq := func(start, end string) *http.Request {
		return httptest.NewRequest(http.MethodGet, "/orders/reports/sales?startDate="+start+"&endDate="+end, nil)
	}

	t.Run("accepts calendar dates", func(t *testing.T) {
		store := newFakeOrderStore()
		handler, _ := newTestHandler(store)

		rec := httptest.NewRecorder()
		handler.HandleSalesReport(rec, salesReq("2026-08-01", "2026-08-31"))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var report SalesReport
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
		assert.Zero(t, report.TotalOrders)
		assert.True(t, report.TotalRevenue.IsZero())
	})

	t.Run("endDate covers its whole day", func(t *testing.T) {
		store := newFakeOrderStore()
		store.rows = []SalesRow{{
			OrderID:     "o1",
			TotalAmount: decimal.RequireFromString("10.00"),
			CreatedAt:   time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC),
			FlowerID:    "f1",
			FlowerName:  "Red Rose",
			Quantity:    1,
			Price:       decimal.RequireFromString("10.00"),
		}}
		handler, _ := newTestHandler(store)

		rec := httptest.NewRecorder()
		handler.HandleSalesReport(rec, salesReq("2026-08-31", "2026-08-31"))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var report SalesReport
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
		assert.Equal(t, 1, report.TotalOrders)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		handler, _ := newTestHandler(newFakeOrderStore())

		rec := httptest.NewRecorder()
		handler.HandleSalesReport(rec, salesReq("2026-08-31", "2026-08-01"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		handler, _ := newTestHandler(newFakeOrderStore())

		rec := httptest.NewRecorder()
		handler.HandleSalesReport(rec, salesReq("08/01/2026", "2026-08-31"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
