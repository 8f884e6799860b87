package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/readar/backend/internal/domain"
)

// ListingService owns the seller-facing listing operations behind the REST API
type ListingService struct {
	repo domain.ListingRepository
}

// NewListingService creates a new listing service backed by repo
func NewListingService(repo domain.ListingRepository) *ListingService {
	return &ListingService{repo: repo}
}

// ListMine returns every listing owned by sellerID in creation order
func (s *ListingService) ListMine(ctx context.Context, sellerID int64) ([]domain.BookListing, error) {
	listings, err := s.repo.ListByOwner(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list listings for seller %d: %w", sellerID, err)
	}
	return listings, nil
}

// Create validates and persists a brand-new listing for sellerID
func (s *ListingService) Create(ctx context.Context, sellerID int64, listing domain.NewListing) (domain.BookListing, error) {
	listing, err := prepareNewListing(listing)
	if err != nil {
		return domain.BookListing{}, err
	}
	return s.repo.Create(ctx, sellerID, listing)
}

// CreateMany validates every listing, then persists them together: either
// all are stored or none are.
func (s *ListingService) CreateMany(ctx context.Context, sellerID int64, listings []domain.NewListing) ([]domain.BookListing, error) {
	prepared := make([]domain.NewListing, 0, len(listings))
	for i, l := range listings {
		p, err := prepareNewListing(l)
		if err != nil {
			return nil, fmt.Errorf("listing %d: %w", i+1, err)
		}
		prepared = append(prepared, p)
	}
	if len(prepared) == 0 {
		return []domain.BookListing{}, nil
	}
	return s.repo.CreateMany(ctx, sellerID, prepared)
}

// prepareNewListing trims the title, defaults the status and validates
func prepareNewListing(listing domain.NewListing) (domain.NewListing, error) {
	listing.Title = strings.TrimSpace(listing.Title)
	if listing.Status == "" {
		listing.Status = domain.StatusInStock
	}
	if err := validateNewListing(listing); err != nil {
		return domain.NewListing{}, err
	}
	return listing, nil
}

// Update applies a partial update to one of sellerID's listings. When
// expectedStock is set the update only lands if the stored stock still
// equals it.
func (s *ListingService) Update(
	ctx context.Context,
	sellerID int64,
	id int64,
	upd domain.ListingUpdate,
	expectedStock *int,
) (domain.BookListing, error) {
	if upd.IsEmpty() {
		return domain.BookListing{}, fmt.Errorf("%w: no fields to update", domain.ErrInvalidListing)
	}
	if err := validateUpdate(upd); err != nil {
		return domain.BookListing{}, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.BookListing{}, err
	}
	if existing.OwnerID != sellerID {
		return domain.BookListing{}, domain.ErrNotOwner
	}

	return s.repo.Update(ctx, id, upd, expectedStock)
}

func validateNewListing(l domain.NewListing) error {
	if l.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidListing)
	}
	if !validAmount(l.Price) {
		return fmt.Errorf("%w: price must be a non-negative number", domain.ErrInvalidListing)
	}
	if l.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", domain.ErrInvalidListing)
	}
	if l.WeeklyFee != nil && !validAmount(*l.WeeklyFee) {
		return fmt.Errorf("%w: weekly_fee must be a non-negative number", domain.ErrInvalidListing)
	}
	if !l.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidListing, l.Status)
	}
	return nil
}

func validateUpdate(u domain.ListingUpdate) error {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return fmt.Errorf("%w: title must not be blank", domain.ErrInvalidListing)
	}
	if u.Price != nil && !validAmount(*u.Price) {
		return fmt.Errorf("%w: price must be a non-negative number", domain.ErrInvalidListing)
	}
	if u.Stock != nil && *u.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", domain.ErrInvalidListing)
	}
	if u.WeeklyFee != nil && !validAmount(*u.WeeklyFee) {
		return fmt.Errorf("%w: weekly_fee must be a non-negative number", domain.ErrInvalidListing)
	}
	if u.Status != nil && !u.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidListing, *u.Status)
	}
	return nil
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
