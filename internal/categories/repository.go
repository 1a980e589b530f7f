package categories

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"flowershop/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	categories := []domain.Category{}
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id domain.CategoryID) (*domain.Category, error) {
	return r.getOne(ctx, `
		SELECT id, name, created_at, updated_at
		FROM categories
		WHERE id = $1
	`, id)
}

func (r *Repository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	return r.getOne(ctx, `
		SELECT id, name, created_at, updated_at
		FROM categories
		WHERE name = $1
	`, name)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*domain.Category, error) {
	category := &domain.Category{}

	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&category.ID, &category.Name, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return category, nil
}

// GetByIDs returns the categories found for the given ids; callers compare
// lengths to detect unknown ids.
func (r *Repository) GetByIDs(ctx context.Context, ids []domain.CategoryID) ([]domain.Category, error) {
	rawIDs := make([]string, len(ids))
	for i, id := range ids {
		rawIDs[i] = string(id)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM categories
		WHERE id = ANY($1)
		ORDER BY name
	`, pq.Array(rawIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	categories := []domain.Category{}
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

func (r *Repository) Create(ctx context.Context, category *domain.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, category.ID, category.Name, category.CreatedAt, category.UpdatedAt)
	return err
}

func (r *Repository) Update(ctx context.Context, category *domain.Category) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE categories SET name = $2, updated_at = $3
		WHERE id = $1
	`, category.ID, category.Name, category.UpdatedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrCategoryNotFound
	}

	return nil
}

// Delete refuses to remove a category that flowers still reference; the
// restrict foreign key backs the same rule at the database level.
func (r *Repository) Delete(ctx context.Context, id domain.CategoryID) error {
	var inUse bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM category_flowers WHERE category_id = $1)
	`, id).Scan(&inUse)
	if err != nil {
		return err
	}
	if inUse {
		return domain.ErrCategoryInUse
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrCategoryNotFound
	}

	return nil
}
