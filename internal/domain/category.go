package domain

import "time"

type Category struct {
	ID        CategoryID `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func NewCategory(name string) *Category {
	return &Category{
		ID:        NewCategoryID(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

func (c *Category) Rename(name string) {
	c.Name = name
	now := time.Now().UTC()
	c.UpdatedAt = &now
}
