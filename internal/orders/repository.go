package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"flowershop/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Place runs the whole order placement inside one transaction: resolve the
// customer, lock and batch-load every referenced flower, verify stock for all
// lines before mutating anything, then decrement stock, snapshot prices and
// insert the order with its items. Any failure abandons the transaction, so
// no partial decrement survives.
func (r *Repository) Place(ctx context.Context, customerID domain.CustomerID, lines []domain.OrderLine) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)
	`, customerID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrCustomerNotFound
	}

	flowerIDs := make([]string, 0, len(lines))
	seen := make(map[domain.FlowerID]struct{}, len(lines))
	for _, line := range lines {
		if _, dup := seen[line.FlowerID]; dup {
			continue
		}
		seen[line.FlowerID] = struct{}{}
		flowerIDs = append(flowerIDs, string(line.FlowerID))
	}

	flowers, err := lockFlowers(ctx, tx, flowerIDs)
	if err != nil {
		return nil, err
	}
	if len(flowers) != len(flowerIDs) {
		return nil, domain.ErrFlowerNotFound
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		flower := flowers[line.FlowerID]
		if err := flower.DecreaseStock(line.Quantity); err != nil {
			return nil, err
		}
		items = append(items, domain.OrderItem{
			FlowerID: line.FlowerID,
			Quantity: line.Quantity,
			Price:    flower.Price,
		})
	}

	for _, flower := range flowers {
		_, err := tx.ExecContext(ctx, `
			UPDATE flowers SET stock_quantity = $2, updated_at = $3
			WHERE id = $1
		`, flower.ID, flower.StockQuantity, flower.UpdatedAt)
		if err != nil {
			return nil, err
		}
	}

	order := domain.NewOrder(customerID, items)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, order.ID, order.CustomerID, order.TotalAmount, order.Status, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, flower_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
		`, item.ID, item.OrderID, item.FlowerID, item.Quantity, item.Price)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return order, nil
}

func lockFlowers(ctx context.Context, tx *sql.Tx, flowerIDs []string) (map[domain.FlowerID]*domain.Flower, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, price, stock_quantity
		FROM flowers
		WHERE id = ANY($1)
		FOR UPDATE
	`, pq.Array(flowerIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	flowers := make(map[domain.FlowerID]*domain.Flower)
	for rows.Next() {
		flower := &domain.Flower{}
		if err := rows.Scan(&flower.ID, &flower.Name, &flower.Price, &flower.StockQuantity); err != nil {
			return nil, err
		}
		flowers[flower.ID] = flower
	}

	return flowers, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, total_amount, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.CustomerID, &order.TotalAmount, &order.Status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, flower_id, quantity, price
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.FlowerID, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_id, total_amount, status, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[domain.OrderID]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.CustomerID, &order.TotalAmount, &order.Status, &order.CreatedAt, &order.UpdatedAt); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, string(order.ID))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, flower_id, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var item domain.OrderItem
		if err := itemRows.Scan(&item.ID, &item.OrderID, &item.FlowerID, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		order := orderMap[item.OrderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[domain.OrderID(id)])
	}

	return orders, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id domain.OrderID, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// SalesRow is one order line of a delivered order inside the report window.
type SalesRow struct {
	OrderID     domain.OrderID
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	FlowerID    domain.FlowerID
	FlowerName  string
	Quantity    int
	Price       decimal.Decimal
}

// DeliveredBetween loads the raw material for the sales report: every item of
// every delivered order created in [start, end).
func (r *Repository) DeliveredBetween(ctx context.Context, start, end time.Time) ([]SalesRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.total_amount, o.created_at, i.flower_id, COALESCE(f.name, 'Unknown'), i.quantity, i.price
		FROM orders o
		JOIN order_items i ON i.order_id = o.id
		LEFT JOIN flowers f ON f.id = i.flower_id
		WHERE o.status = $1 AND o.created_at >= $2 AND o.created_at < $3
		ORDER BY o.created_at
	`, domain.OrderStatusDelivered, start, end)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sales []SalesRow
	for rows.Next() {
		var row SalesRow
		err := rows.Scan(&row.OrderID, &row.TotalAmount, &row.CreatedAt,
			&row.FlowerID, &row.FlowerName, &row.Quantity, &row.Price)
		if err != nil {
			return nil, err
		}
		sales = append(sales, row)
	}

	return sales, rows.Err()
}
