package domain

import (
	"path"
	"time"

	"github.com/shopspring/decimal"
)

type Flower struct {
	ID            FlowerID        `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
	Categories    []Category      `json:"categories"`
	Images        []FlowerImage   `json:"images"`
}

func NewFlower(name, description string, price decimal.Decimal, stockQuantity int) *Flower {
	return &Flower{
		ID:            NewFlowerID(),
		Name:          name,
		Description:   description,
		Price:         price,
		StockQuantity: stockQuantity,
		CreatedAt:     time.Now().UTC(),
		Categories:    []Category{},
		Images:        []FlowerImage{},
	}
}

func (f *Flower) UpdateDetails(name, description string, price decimal.Decimal, stockQuantity int) {
	f.Name = name
	f.Description = description
	f.Price = price
	f.StockQuantity = stockQuantity
	f.touch()
}

// DecreaseStock reduces the on-hand quantity, refusing to go negative.
func (f *Flower) DecreaseStock(quantity int) error {
	if f.StockQuantity < quantity {
		return &InsufficientStockError{
			FlowerID:   f.ID,
			FlowerName: f.Name,
			Requested:  quantity,
			Available:  f.StockQuantity,
		}
	}
	f.StockQuantity -= quantity
	f.touch()
	return nil
}

func (f *Flower) touch() {
	now := time.Now().UTC()
	f.UpdatedAt = &now
}

type FlowerImage struct {
	ID           FlowerImageID `json:"id"`
	FlowerID     FlowerID      `json:"flower_id"`
	OriginalName string        `json:"original_name"`
}

func NewFlowerImage(flowerID FlowerID, originalName string) FlowerImage {
	return FlowerImage{
		ID:           NewFlowerImageID(),
		FlowerID:     flowerID,
		OriginalName: originalName,
	}
}

// StoragePath derives the blob location from the owning flower, the image id
// and the original file extension. Nothing else about the file is stored.
func (i FlowerImage) StoragePath() string {
	return string(i.FlowerID) + "/" + string(i.ID) + path.Ext(i.OriginalName)
}

// CategoryFlower is the pure association between a category and a flower.
// It has no lifecycle of its own.
type CategoryFlower struct {
	CategoryID CategoryID `json:"category_id"`
	FlowerID   FlowerID   `json:"flower_id"`
}
