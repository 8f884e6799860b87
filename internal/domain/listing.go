package domain

import "time"

// BookStatus is the availability state of a listing
type BookStatus string

const (
	StatusInStock  BookStatus = "in_stock"
	StatusExpected BookStatus = "expected"
	StatusLent     BookStatus = "lent"
	StatusSold     BookStatus = "sold"
)

// Valid reports whether s is one of the known statuses
func (s BookStatus) Valid() bool {
	switch s {
	case StatusInStock, StatusExpected, StatusLent, StatusSold:
		return true
	}
	return false
}

// BookListing is a seller's book offering. Stock is never negative.
type BookListing struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	ISBN        string     `json:"isbn,omitempty"`
	Title       string     `json:"title"`
	Author      string     `json:"author,omitempty"`
	Tags        string     `json:"tags,omitempty"` // comma-separated
	Description string     `json:"description,omitempty"`
	Price       float64    `json:"price"`
	Stock       int        `json:"stock"`
	Status      BookStatus `json:"status"`
	IsForSale   bool       `json:"is_for_sale"`
	IsForRent   bool       `json:"is_for_rent"`
	WeeklyFee   *float64   `json:"weekly_fee,omitempty"`
	Condition   string     `json:"condition,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
}

// NewListing holds the user-entered fields of a listing that does not exist yet
type NewListing struct {
	ISBN        string     `json:"isbn,omitempty"`
	Title       string     `json:"title"`
	Author      string     `json:"author,omitempty"`
	Tags        string     `json:"tags,omitempty"`
	Description string     `json:"description,omitempty"`
	Price       float64    `json:"price"`
	Stock       int        `json:"stock"`
	Status      BookStatus `json:"status,omitempty"`
	IsForSale   bool       `json:"is_for_sale"`
	IsForRent   bool       `json:"is_for_rent"`
	WeeklyFee   *float64   `json:"weekly_fee,omitempty"`
	Condition   string     `json:"condition,omitempty"`
}

// ListingUpdate is a partial update. Nil fields are left untouched.
type ListingUpdate struct {
	ISBN        *string     `json:"isbn,omitempty"`
	Title       *string     `json:"title,omitempty"`
	Author      *string     `json:"author,omitempty"`
	Tags        *string     `json:"tags,omitempty"`
	Description *string     `json:"description,omitempty"`
	Price       *float64    `json:"price,omitempty"`
	Stock       *int        `json:"stock,omitempty"`
	Status      *BookStatus `json:"status,omitempty"`
	IsForSale   *bool       `json:"is_for_sale,omitempty"`
	IsForRent   *bool       `json:"is_for_rent,omitempty"`
	WeeklyFee   *float64    `json:"weekly_fee,omitempty"`
	Condition   *string     `json:"condition,omitempty"`
}

// IsEmpty reports whether the update sets no field at all
func (u ListingUpdate) IsEmpty() bool {
	return u.ISBN == nil && u.Title == nil && u.Author == nil && u.Tags == nil &&
		u.Description == nil && u.Price == nil && u.Stock == nil && u.Status == nil &&
		u.IsForSale == nil && u.IsForRent == nil && u.WeeklyFee == nil && u.Condition == nil
}

// Apply copies the set fields of u onto l
func (u ListingUpdate) Apply(l *BookListing) {
	if u.ISBN != nil {
		l.ISBN = *u.ISBN
	}
	if u.Title != nil {
		l.Title = *u.Title
	}
	if u.Author != nil {
		l.Author = *u.Author
	}
	if u.Tags != nil {
		l.Tags = *u.Tags
	}
	if u.Description != nil {
		l.Description = *u.Description
	}
	if u.Price != nil {
		l.Price = *u.Price
	}
	if u.Stock != nil {
		l.Stock = *u.Stock
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	if u.IsForSale != nil {
		l.IsForSale = *u.IsForSale
	}
	if u.IsForRent != nil {
		l.IsForRent = *u.IsForRent
	}
	if u.WeeklyFee != nil {
		fee := *u.WeeklyFee
		l.WeeklyFee = &fee
	}
	if u.Condition != nil {
		l.Condition = *u.Condition
	}
}
