package domain

import "time"

type Customer struct {
	ID        CustomerID `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Address   string     `json:"address"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func NewCustomer(firstName, lastName, email, phone, address string) *Customer {
	return &Customer{
		ID:        NewCustomerID(),
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     phone,
		Address:   address,
		CreatedAt: time.Now().UTC(),
	}
}

func (c *Customer) UpdateDetails(firstName, lastName, email, phone, address string) {
	c.FirstName = firstName
	c.LastName = lastName
	c.Email = email
	c.Phone = phone
	c.Address = address
	now := time.Now().UTC()
	c.UpdatedAt = &now
}
