package store

import (
	"strings"
	"time"

	"github.com/readar/backend/internal/domain"
)

// ListingModel is the GORM model behind the listing_models table.
type ListingModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	OwnerID     int64  `gorm:"not null;index"`
	ISBN        string `gorm:"column:isbn"`
	Title       string `gorm:"not null;index"`
	Author      string
	Tags        string
	Description string  `gorm:"type:text"`
	SearchText  string  `gorm:"type:text;not null"`
	Price       float64 `gorm:"not null"`
	Stock       int     `gorm:"not null"`
	Status      string  `gorm:"not null"`
	IsForSale   bool    `gorm:"not null"`
	IsForRent   bool    `gorm:"not null"`
	WeeklyFee   *float64
	Condition   string
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// SearchText joins the free-text fields a catalogue search runs against.
func SearchText(title, author, tags, description string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{title, author, tags, description} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func listingToModel(ownerID int64, l domain.NewListing, now time.Time) ListingModel {
	return ListingModel{
		OwnerID:     ownerID,
		ISBN:        l.ISBN,
		Title:       l.Title,
		Author:      l.Author,
		Tags:        l.Tags,
		Description: l.Description,
		SearchText:  SearchText(l.Title, l.Author, l.Tags, l.Description),
		Price:       l.Price,
		Stock:       l.Stock,
		Status:      string(l.Status),
		IsForSale:   l.IsForSale,
		IsForRent:   l.IsForRent,
		WeeklyFee:   copyFloat(l.WeeklyFee),
		Condition:   l.Condition,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func listingFromModel(m ListingModel) domain.BookListing {
	return domain.BookListing{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		ISBN:        m.ISBN,
		Title:       m.Title,
		Author:      m.Author,
		Tags:        m.Tags,
		Description: m.Description,
		Price:       m.Price,
		Stock:       m.Stock,
		Status:      domain.BookStatus(m.Status),
		IsForSale:   m.IsForSale,
		IsForRent:   m.IsForRent,
		WeeklyFee:   copyFloat(m.WeeklyFee),
		Condition:   m.Condition,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// updateColumns turns the set fields of upd into a column map for Updates.
// search_text is rebuilt from the merged listing.
func updateColumns(current domain.BookListing, upd domain.ListingUpdate, now time.Time) map[string]any {
	cols := map[string]any{"updated_at": now}
	if upd.ISBN != nil {
		cols["isbn"] = *upd.ISBN
	}
	if upd.Title != nil {
		cols["title"] = *upd.Title
	}
	if upd.Author != nil {
		cols["author"] = *upd.Author
	}
	if upd.Tags != nil {
		cols["tags"] = *upd.Tags
	}
	if upd.Description != nil {
		cols["description"] = *upd.Description
	}
	if upd.Price != nil {
		cols["price"] = *upd.Price
	}
	if upd.Stock != nil {
		cols["stock"] = *upd.Stock
	}
	if upd.Status != nil {
		cols["status"] = string(*upd.Status)
	}
	if upd.IsForSale != nil {
		cols["is_for_sale"] = *upd.IsForSale
	}
	if upd.IsForRent != nil {
		cols["is_for_rent"] = *upd.IsForRent
	}
	if upd.WeeklyFee != nil {
		cols["weekly_fee"] = *upd.WeeklyFee
	}
	if upd.Condition != nil {
		cols["condition"] = *upd.Condition
	}

	merged := current
	upd.Apply(&merged)
	cols["search_text"] = SearchText(merged.Title, merged.Author, merged.Tags, merged.Description)
	return cols
}
