package customers

import (
	"context"
	"database/sql"

	"flowershop/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, email, phone, address, created_at, updated_at
		FROM customers
		ORDER BY last_name, first_name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	customers := []domain.Customer{}
	for rows.Next() {
		var customer domain.Customer
		err := rows.Scan(&customer.ID, &customer.FirstName, &customer.LastName,
			&customer.Email, &customer.Phone, &customer.Address, &customer.CreatedAt, &customer.UpdatedAt)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}

	return customers, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id domain.CustomerID) (*domain.Customer, error) {
	return r.getOne(ctx, `
		SELECT id, first_name, last_name, email, phone, address, created_at, updated_at
		FROM customers
		WHERE id = $1
	`, id)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return r.getOne(ctx, `
		SELECT id, first_name, last_name, email, phone, address, created_at, updated_at
		FROM customers
		WHERE email = $1
	`, email)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	customer := &domain.Customer{}

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&customer.ID, &customer.FirstName, &customer.LastName,
		&customer.Email, &customer.Phone, &customer.Address, &customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return customer, nil
}

func (r *Repository) Create(ctx context.Context, customer *domain.Customer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, first_name, last_name, email, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, customer.ID, customer.FirstName, customer.LastName, customer.Email,
		customer.Phone, customer.Address, customer.CreatedAt, customer.UpdatedAt)
	return err
}

func (r *Repository) Update(ctx context.Context, customer *domain.Customer) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET first_name = $2, last_name = $3, email = $4, phone = $5, address = $6, updated_at = $7
		WHERE id = $1
	`, customer.ID, customer.FirstName, customer.LastName, customer.Email,
		customer.Phone, customer.Address, customer.UpdatedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, id domain.CustomerID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}

	return nil
}
