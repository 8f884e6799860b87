package domain

import (
	"context"
	"io"
)

// ListingRepository persists listings. Update applies upd only when
// expectedStock is nil or equals the stored stock, else ErrStockConflict.
type ListingRepository interface {
	ListByOwner(ctx context.Context, ownerID int64) ([]BookListing, error)
	Get(ctx context.Context, id int64) (BookListing, error)
	Create(ctx context.Context, ownerID int64, listing NewListing) (BookListing, error)
	// CreateMany stores every listing or, on error, none of them
	CreateMany(ctx context.Context, ownerID int64, listings []NewListing) ([]BookListing, error)
	Update(ctx context.Context, id int64, upd ListingUpdate, expectedStock *int) (BookListing, error)
}

// ListingAPI is the marketplace REST collaborator as seen by a seller client
type ListingAPI interface {
	ListMyBooks(ctx context.Context) ([]BookListing, error)
	CreateBook(ctx context.Context, listing NewListing) (BookListing, error)
	UpdateBook(ctx context.Context, id int64, upd ListingUpdate, expectedStock *int) (BookListing, error)
	ImportSpreadsheet(ctx context.Context, filename string, r io.Reader) (*ImportResult, error)
}

// UploadArchive keeps a copy of uploaded import files
type UploadArchive interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}
