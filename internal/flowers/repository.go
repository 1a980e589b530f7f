package flowers

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

func (r *Repository) List(ctx context.Context) ([]domain.Flower, error) {
	return r.list(ctx, `
		SELECT id, name, description, price, stock_quantity, created_at, updated_at
		FROM flowers
		ORDER BY name
	`)
}

func (r *Repository) ListByCategory(ctx context.Context, categoryID domain.CategoryID) ([]domain.Flower, error) {
	return r.list(ctx, `
		SELECT f.id, f.name, f.description, f.price, f.stock_quantity, f.created_at, f.updated_at
		FROM flowers f
		JOIN category_flowers cf ON cf.flower_id = f.id
		WHERE cf.category_id = $1
		ORDER BY f.name
	`, categoryID)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Flower, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	flowerMap := make(map[domain.FlowerID]*domain.Flower)
	var flowerIDs []string

	for rows.Next() {
		flower, err := scanFlower(rows)
		if err != nil {
			return nil, err
		}
		flowerMap[flower.ID] = flower
		flowerIDs = append(flowerIDs, string(flower.ID))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(flowerIDs) == 0 {
		return []domain.Flower{}, nil
	}

	if err := r.attachAssociations(ctx, flowerMap, flowerIDs); err != nil {
		return nil, err
	}

	flowers := make([]domain.Flower, 0, len(flowerIDs))
	for _, id := range flowerIDs {
		flowers = append(flowers, *flowerMap[domain.FlowerID(id)])
	}

	return flowers, nil
}

func (r *Repository) GetByID(ctx context.Context, id domain.FlowerID) (*domain.Flower, error) {
	return r.getOne(ctx, `
		SELECT id, name, description, price, stock_quantity, created_at, updated_at
		FROM flowers
		WHERE id = $1
	`, id)
}

func (r *Repository) GetByName(ctx context.Context, name string) (*domain.Flower, error) {
	return r.getOne(ctx, `
		SELECT id, name, description, price, stock_quantity, created_at, updated_at
		FROM flowers
		WHERE name = $1
	`, name)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (*domain.Flower, error) {
	row := r.db.QueryRowContext(ctx, query, arg)

	flower, err := scanFlower(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	flowerMap := map[domain.FlowerID]*domain.Flower{flower.ID: flower}
	if err := r.attachAssociations(ctx, flowerMap, []string{string(flower.ID)}); err != nil {
		return nil, err
	}

	return flower, nil
}

// Create persists the flower and its category associations together.
func (r *Repository) Create(ctx context.Context, flower *domain.Flower, categoryIDs []domain.CategoryID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO flowers (id, name, description, price, stock_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, flower.ID, flower.Name, flower.Description, flower.Price, flower.StockQuantity, flower.CreatedAt, flower.UpdatedAt)
	if err != nil {
		return err
	}

	if err := insertAssociations(ctx, tx, flower.ID, categoryIDs); err != nil {
		return err
	}

	return tx.Commit()
}

// Update rewrites the scalar fields and replaces the whole category set,
// not a diff, inside one transaction.
func (r *Repository) Update(ctx context.Context, flower *domain.Flower, categoryIDs []domain.CategoryID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE flowers
		SET name = $2, description = $3, price = $4, stock_quantity = $5, updated_at = $6
		WHERE id = $1
	`, flower.ID, flower.Name, flower.Description, flower.Price, flower.StockQuantity, flower.UpdatedAt)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM category_flowers WHERE flower_id = $1
	`, flower.ID)
	if err != nil {
		return err
	}

	if err := insertAssociations(ctx, tx, flower.ID, categoryIDs); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes the flower row; images and category associations go with it
// via ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id domain.FlowerID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM flowers WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrFlowerNotFound
	}

	return nil
}

func (r *Repository) AddImages(ctx context.Context, flowerID domain.FlowerID, images []domain.FlowerImage) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, img := range images {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO flower_images (id, original_name, flower_id)
			VALUES ($1, $2, $3)
		`, img.ID, img.OriginalName, flowerID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) GetImage(ctx context.Context, flowerID domain.FlowerID, imageID domain.FlowerImageID) (*domain.FlowerImage, error) {
	img := &domain.FlowerImage{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, original_name, flower_id
		FROM flower_images
		WHERE id = $1 AND flower_id = $2
	`, imageID, flowerID).Scan(&img.ID, &img.OriginalName, &img.FlowerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return img, nil
}

func (r *Repository) DeleteImage(ctx context.Context, imageID domain.FlowerImageID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM flower_images WHERE id = $1`, imageID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrImageNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlower(row rowScanner) (*domain.Flower, error) {
	flower := &domain.Flower{
		Categories: []domain.Category{},
		Images:     []domain.FlowerImage{},
	}
	err := row.Scan(&flower.ID, &flower.Name, &flower.Description, &flower.Price,
		&flower.StockQuantity, &flower.CreatedAt, &flower.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return flower, nil
}

func (r *Repository) attachAssociations(ctx context.Context, flowerMap map[domain.FlowerID]*domain.Flower, flowerIDs []string) error {
	catRows, err := r.db.QueryContext(ctx, `
		SELECT cf.flower_id, c.id, c.name, c.created_at, c.updated_at
		FROM category_flowers cf
		JOIN categories c ON c.id = cf.category_id
		WHERE cf.flower_id = ANY($1)
		ORDER BY c.name
	`, pq.Array(flowerIDs))
	if err != nil {
		return err
	}
	defer func() { _ = catRows.Close() }()

	for catRows.Next() {
		var flowerID domain.FlowerID
		var category domain.Category
		if err := catRows.Scan(&flowerID, &category.ID, &category.Name, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return err
		}
		flower := flowerMap[flowerID]
		flower.Categories = append(flower.Categories, category)
	}

	if err := catRows.Err(); err != nil {
		return err
	}

	imgRows, err := r.db.QueryContext(ctx, `
		SELECT id, original_name, flower_id
		FROM flower_images
		WHERE flower_id = ANY($1)
	`, pq.Array(flowerIDs))
	if err != nil {
		return err
	}
	defer func() { _ = imgRows.Close() }()

	for imgRows.Next() {
		var img domain.FlowerImage
		if err := imgRows.Scan(&img.ID, &img.OriginalName, &img.FlowerID); err != nil {
			return err
		}
		flower := flowerMap[img.FlowerID]
		flower.Images = append(flower.Images, img)
	}

	return imgRows.Err()
}

func insertAssociations(ctx context.Context, tx *sql.Tx, flowerID domain.FlowerID, categoryIDs []domain.CategoryID) error {
	for _, categoryID := range categoryIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO category_flowers (category_id, flower_id)
			VALUES ($1, $2)
		`, categoryID, flowerID)
		if err != nil {
			return err
		}
	}
	return nil
}
