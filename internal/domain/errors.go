package domain

import "errors"

var (
	// ErrListingNotFound is returned when a listing id does not exist
	ErrListingNotFound = errors.New("listing not found")

	// ErrNotOwner is returned when a seller touches another seller's listing
	ErrNotOwner = errors.New("listing belongs to another seller")

	// ErrInvalidListing is returned when listing fields fail validation
	ErrInvalidListing = errors.New("invalid listing")

	// ErrStockConflict is returned when a conditional stock update finds the
	// stored stock no longer equals the expected value
	ErrStockConflict = errors.New("listing stock changed since it was read")

	// ErrUnsupportedFile is returned for uploads that are neither csv nor xlsx
	ErrUnsupportedFile = errors.New("only csv and xlsx files supported")

	// ErrInvalidFile is returned when an upload cannot be parsed as a sheet
	ErrInvalidFile = errors.New("unreadable spreadsheet")

	// ErrMissingColumns is returned when an import sheet lacks required headers
	ErrMissingColumns = errors.New("missing required columns")

	// ErrUnauthorized is returned when the seller cannot be identified
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrAPIFailure is returned when a marketplace API request fails
	ErrAPIFailure = errors.New("marketplace API request failed")

	// ErrSubmissionInFlight is returned when a submission or resolution is
	// started while another request is outstanding
	ErrSubmissionInFlight = errors.New("a submission is already in progress")

	// ErrPromptOpen is returned when a new submission is started while a
	// merge prompt is still waiting for an answer
	ErrPromptOpen = errors.New("a merge prompt is still open")

	// ErrNoPrompt is returned when a prompt action is used without an open prompt
	ErrNoPrompt = errors.New("no merge prompt is open")
)
