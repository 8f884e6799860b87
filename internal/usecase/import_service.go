package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/readar/backend/internal/domain"
	"github.com/readar/backend/internal/infrastructure/spreadsheet"
)

// ImportServiceConfig holds configuration for the import service
type ImportServiceConfig struct {
	EnableDebugLogging bool
}

// ImportService runs the bulk spreadsheet import for one seller at a time
type ImportService struct {
	listings *ListingService
	matcher  *MatchingService
	parser   *RowParser
	archive  domain.UploadArchive
}

// NewImportService creates a new import service. archive may be nil.
func NewImportService(
	listings *ListingService,
	matcher *MatchingService,
	archive domain.UploadArchive,
	config ImportServiceConfig,
) *ImportService {
	return &ImportService{
		listings: listings,
		matcher:  matcher,
		parser:   NewRowParser(config.EnableDebugLogging),
		archive:  archive,
	}
}

// Import parses an uploaded sheet and partitions its rows.
// Flow: read sheet -> archive -> fetch seller listings once -> per row:
// validate -> match -> queue for create or suggestion -> create the queue in
// one batch. A failed batch persists nothing.
func (s *ImportService) Import(
	ctx context.Context,
	sellerID int64,
	filename string,
	r io.Reader,
) (*domain.ImportResult, error) {
	if !spreadsheet.Supported(filename) {
		return nil, domain.ErrUnsupportedFile
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	rows, err := spreadsheet.Read(filename, bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, domain.ErrMissingColumns) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFile, err)
	}

	result := &domain.ImportResult{
		BatchID: uuid.NewString(),
		Errors:  []domain.ImportError{},
		Matches: []domain.SuggestedMatch{},
	}
	logger := slog.Default().With("seller_id", sellerID, "batch_id", result.BatchID)

	s.archiveUpload(ctx, logger, sellerID, result.BatchID, filename, data)

	existing, err := s.listings.ListMine(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	var pending []domain.NewListing
	for _, row := range rows {
		listing, err := s.parser.ParseRow(row)
		if err != nil {
			var rowErr *RowError
			if errors.As(err, &rowErr) {
				result.Errors = append(result.Errors, domain.ImportError{
					Row:     rowErr.Row,
					Title:   rowErr.Title,
					Message: rowErr.Message,
				})
				continue
			}
			return nil, err
		}

		match, decision := s.matcher.Evaluate(listing.Title, existing)
		if decision == domain.DecisionPrompt {
			result.Matches = append(result.Matches, domain.SuggestedMatch{
				Row:     row.Row,
				Title:   listing.Title,
				RowData: listing,
				Suggested: domain.SuggestedListing{
					ID:     match.Best.Listing.ID,
					Title:  match.Best.Listing.Title,
					Author: match.Best.Listing.Author,
					Stock:  match.Best.Listing.Stock,
					Score:  match.BestScore,
				},
			})
			continue
		}

		prepared, err := prepareNewListing(listing)
		if err != nil {
			result.Errors = append(result.Errors, domain.ImportError{
				Row:     row.Row,
				Title:   listing.Title,
				Message: err.Error(),
			})
			continue
		}
		pending = append(pending, prepared)
	}

	created, err := s.listings.CreateMany(ctx, sellerID, pending)
	if err != nil {
		return nil, fmt.Errorf("create %d imported listings: %w", len(pending), err)
	}
	result.Created = len(created)

	logger.Info("import finished",
		"rows", len(rows),
		"created", result.Created,
		"errors", len(result.Errors),
		"matches", len(result.Matches))

	return result, nil
}

// archiveUpload stores the raw upload. Failures are logged, never returned.
func (s *ImportService) archiveUpload(
	ctx context.Context,
	logger *slog.Logger,
	sellerID int64,
	batchID string,
	filename string,
	data []byte,
) {
	if s.archive == nil {
		return
	}
	key := fmt.Sprintf("imports/%d/%s/%s", sellerID, batchID, filepath.Base(filename))
	err := s.archive.Put(ctx, key, bytes.NewReader(data), int64(len(data)), spreadsheet.ContentType(filename))
	if err != nil {
		logger.Warn("archive upload failed", "key", key, "err", err)
	}
}
