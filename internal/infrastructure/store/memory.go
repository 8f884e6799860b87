package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/readar/backend/internal/domain"
)

// MemoryStore is a thread-safe in-memory listing repository
type MemoryStore struct {
	data   map[int64]domain.BookListing
	nextID int64
	mutex  sync.RWMutex
	now    func() time.Time
}

// NewMemoryStore creates a new empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[int64]domain.BookListing),
		nextID: 1,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListByOwner returns the owner's listings ordered by id (creation order)
func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID int64) ([]domain.BookListing, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	listings := make([]domain.BookListing, 0)
	for _, listing := range s.data {
		if listing.OwnerID == ownerID {
			listings = append(listings, cloneListing(listing))
		}
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID < listings[j].ID })

	return listings, nil
}

// Get retrieves a listing by id
func (s *MemoryStore) Get(ctx context.Context, id int64) (domain.BookListing, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	listing, exists := s.data[id]
	if !exists {
		return domain.BookListing{}, domain.ErrListingNotFound
	}
	return cloneListing(listing), nil
}

// Create stores a new listing and assigns it the next id
func (s *MemoryStore) Create(ctx context.Context, ownerID int64, l domain.NewListing) (domain.BookListing, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	listing := s.newListing(ownerID, l, s.now())
	s.data[listing.ID] = listing
	s.nextID++

	return cloneListing(listing), nil
}

// CreateMany stores all listings under one write lock
func (s *MemoryStore) CreateMany(ctx context.Context, ownerID int64, listings []domain.NewListing) ([]domain.BookListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	created := make([]domain.BookListing, 0, len(listings))
	for _, l := range listings {
		listing := s.newListing(ownerID, l, now)
		s.data[listing.ID] = listing
		s.nextID++
		created = append(created, cloneListing(listing))
	}
	return created, nil
}

// newListing builds the stored form of l with the next id. Callers hold the
// write lock.
func (s *MemoryStore) newListing(ownerID int64, l domain.NewListing, now time.Time) domain.BookListing {
	return domain.BookListing{
		ID:          s.nextID,
		OwnerID:     ownerID,
		ISBN:        l.ISBN,
		Title:       l.Title,
		Author:      l.Author,
		Tags:        l.Tags,
		Description: l.Description,
		Price:       l.Price,
		Stock:       l.Stock,
		Status:      l.Status,
		IsForSale:   l.IsForSale,
		IsForRent:   l.IsForRent,
		WeeklyFee:   copyFloat(l.WeeklyFee),
		Condition:   l.Condition,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Update applies upd under the write lock, so the expected-stock check and
// the write are atomic
func (s *MemoryStore) Update(ctx context.Context, id int64, upd domain.ListingUpdate, expectedStock *int) (domain.BookListing, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	listing, exists := s.data[id]
	if !exists {
		return domain.BookListing{}, domain.ErrListingNotFound
	}
	if expectedStock != nil && listing.Stock != *expectedStock {
		return domain.BookListing{}, domain.ErrStockConflict
	}

	upd.Apply(&listing)
	listing.UpdatedAt = s.now()
	s.data[id] = listing

	return cloneListing(listing), nil
}

// Size returns the current number of listings (for debugging/monitoring)
func (s *MemoryStore) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

func cloneListing(l domain.BookListing) domain.BookListing {
	l.WeeklyFee = copyFloat(l.WeeklyFee)
	return l
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
