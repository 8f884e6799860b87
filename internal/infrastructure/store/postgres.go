package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/readar/backend/internal/domain"
)

// PostgresStore implements domain.ListingRepository using GORM + Postgres.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore opens the DB and runs auto-migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return NewPostgresStoreWithDB(db)
}

// NewPostgresStoreWithDB wraps an already opened connection and migrates it.
func NewPostgresStoreWithDB(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&ListingModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ListByOwner returns the owner's listings in creation order.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID int64) ([]domain.BookListing, error) {
	var models []ListingModel
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.BookListing, 0, len(models))
	for _, m := range models {
		res = append(res, listingFromModel(m))
	}
	return res, nil
}

// Get retrieves a listing by id.
func (s *PostgresStore) Get(ctx context.Context, id int64) (domain.BookListing, error) {
	model, err := s.get(s.db.WithContext(ctx), id)
	if err != nil {
		return domain.BookListing{}, err
	}
	return listingFromModel(model), nil
}

// Create inserts a new listing.
func (s *PostgresStore) Create(ctx context.Context, ownerID int64, l domain.NewListing) (domain.BookListing, error) {
	model := listingToModel(ownerID, l, time.Now().UTC())
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.BookListing{}, err
	}
	return listingFromModel(model), nil
}

// CreateMany inserts all listings in one transaction; a failed insert rolls
// back the whole batch.
func (s *PostgresStore) CreateMany(ctx context.Context, ownerID int64, listings []domain.NewListing) ([]domain.BookListing, error) {
	if len(listings) == 0 {
		return []domain.BookListing{}, nil
	}

	now := time.Now().UTC()
	models := make([]ListingModel, 0, len(listings))
	for _, l := range listings {
		models = append(models, listingToModel(ownerID, l, now))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&models).Error
	})
	if err != nil {
		return nil, err
	}

	res := make([]domain.BookListing, 0, len(models))
	for _, m := range models {
		res = append(res, listingFromModel(m))
	}
	return res, nil
}

// Update applies the set fields of upd. With expectedStock the write is a
// single UPDATE ... WHERE id = ? AND stock = ?; zero affected rows on an
// existing listing means another writer changed the stock first.
func (s *PostgresStore) Update(ctx context.Context, id int64, upd domain.ListingUpdate, expectedStock *int) (domain.BookListing, error) {
	var updated ListingModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.get(tx, id)
		if err != nil {
			return err
		}

		q := tx.Model(&ListingModel{}).Where("id = ?", id)
		if expectedStock != nil {
			q = q.Where("stock = ?", *expectedStock)
		}
		res := q.Updates(updateColumns(listingFromModel(current), upd, time.Now().UTC()))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrStockConflict
		}

		updated, err = s.get(tx, id)
		return err
	})
	if err != nil {
		return domain.BookListing{}, err
	}
	return listingFromModel(updated), nil
}

func (s *PostgresStore) get(db *gorm.DB, id int64) (ListingModel, error) {
	var model ListingModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ListingModel{}, domain.ErrListingNotFound
		}
		return ListingModel{}, err
	}
	return model, nil
}
