package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/readar/backend/internal/domain"
)

// IntakeState is the position of the add-book flow
type IntakeState int

const (
	StateIdle IntakeState = iota
	StateChecking
	StatePrompting
	StateMerging
	StateCreating
	StateResolved
)

func (s IntakeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StatePrompting:
		return "prompting"
	case StateMerging:
		return "merging"
	case StateCreating:
		return "creating"
	case StateResolved:
		return "resolved"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s IntakeState) busy() bool {
	return s == StateChecking || s == StateMerging || s == StateCreating
}

// Draft is a book as entered by the seller. Quantity is the raw stock input;
// absent, unparsable or negative quantities count as 1.
type Draft struct {
	Listing  domain.NewListing
	Quantity string
}

// Prompt is an open merge question: the seller's draft and the existing
// listing it most resembles
type Prompt struct {
	Candidate domain.MatchCandidate
	Draft     Draft
}

// Outcome reports what a submission or resolution did. Listing is set once
// something was persisted; Prompt is set while the seller must answer.
type Outcome struct {
	Decision domain.Decision
	Listing  *domain.BookListing
	Prompt   *Prompt
}

// Intake drives the add-book flow against the marketplace API: duplicate
// check, merge prompt and the single request that resolves it. At most one
// prompt is open and at most one request is outstanding at a time.
type Intake struct {
	api     domain.ListingAPI
	matcher *MatchingService
	logger  *slog.Logger

	mu        sync.Mutex
	state     IntakeState
	prompt    *Prompt
	importing bool
}

// NewIntake creates an idle intake flow
func NewIntake(api domain.ListingAPI, matcher *MatchingService) *Intake {
	return &Intake{
		api:     api,
		matcher: matcher,
		logger:  slog.Default(),
		state:   StateIdle,
	}
}

// State returns the current state
func (in *Intake) State() IntakeState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// Pending returns a copy of the open prompt, or nil
func (in *Intake) Pending() *Prompt {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.prompt == nil {
		return nil
	}
	p := *in.prompt
	return &p
}

// Listings fetches the seller's current listings
func (in *Intake) Listings(ctx context.Context) ([]domain.BookListing, error) {
	return in.api.ListMyBooks(ctx)
}

// Submit checks draft against the seller's listings fetched fresh from the
// API. A likely duplicate opens a prompt; anything else is created directly.
func (in *Intake) Submit(ctx context.Context, draft Draft) (Outcome, error) {
	in.mu.Lock()
	switch {
	case in.state == StatePrompting:
		in.mu.Unlock()
		return Outcome{}, domain.ErrPromptOpen
	case in.state.busy() || in.importing:
		in.mu.Unlock()
		return Outcome{}, domain.ErrSubmissionInFlight
	}
	in.state = StateChecking
	in.mu.Unlock()

	draft.Listing.Title = strings.TrimSpace(draft.Listing.Title)
	draft.Listing.Stock = ParseStock(draft.Quantity)

	listings, err := in.api.ListMyBooks(ctx)
	if err != nil {
		in.setState(StateIdle)
		return Outcome{}, fmt.Errorf("fetch listings: %w", err)
	}

	result, decision := in.matcher.Evaluate(draft.Listing.Title, listings)
	if decision == domain.DecisionPrompt {
		prompt := &Prompt{Candidate: *result.Best, Draft: draft}

		in.mu.Lock()
		in.state = StatePrompting
		in.prompt = prompt
		in.mu.Unlock()

		p := *prompt
		return Outcome{Decision: domain.DecisionPrompt, Prompt: &p}, nil
	}

	in.setState(StateCreating)
	created, err := in.api.CreateBook(ctx, draft.Listing)
	if err != nil {
		in.setState(StateIdle)
		return Outcome{}, fmt.Errorf("create listing: %w", err)
	}

	in.setState(StateResolved)
	in.logger.Info("listing created", "id", created.ID, "title", created.Title)
	return Outcome{Decision: domain.DecisionCreate, Listing: &created}, nil
}

// Cancel closes the open prompt without touching the API
func (in *Intake) Cancel() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.state != StatePrompting {
		return domain.ErrNoPrompt
	}
	in.prompt = nil
	in.state = StateIdle
	return nil
}

// CreateSeparate answers the prompt by creating the draft as a new listing
func (in *Intake) CreateSeparate(ctx context.Context) (Outcome, error) {
	prompt, err := in.beginResolution(StateCreating)
	if err != nil {
		return Outcome{}, err
	}

	created, err := in.api.CreateBook(ctx, prompt.Draft.Listing)
	if err != nil {
		in.setState(StatePrompting)
		return Outcome{}, fmt.Errorf("create listing: %w", err)
	}

	in.finishResolution()
	in.logger.Info("listing created despite match",
		"id", created.ID, "title", created.Title, "matched_id", prompt.Candidate.Listing.ID)
	return Outcome{Decision: domain.DecisionCreate, Listing: &created}, nil
}

// MergeStock answers the prompt by adding the draft's quantity to the
// matched listing's stock. The update is conditional on the stock the
// prompt was opened with; when another writer got there first the
// candidate is refreshed, the prompt stays open and ErrStockConflict is
// returned.
func (in *Intake) MergeStock(ctx context.Context) (Outcome, error) {
	prompt, err := in.beginResolution(StateMerging)
	if err != nil {
		return Outcome{}, err
	}

	target := prompt.Candidate.Listing
	existing := target.Stock
	stock := existing + ParseStock(prompt.Draft.Quantity)

	updated, err := in.api.UpdateBook(ctx, target.ID, domain.ListingUpdate{Stock: &stock}, &existing)
	if err != nil {
		if errors.Is(err, domain.ErrStockConflict) {
			in.refreshCandidate(ctx)
		}
		in.setState(StatePrompting)
		return Outcome{}, fmt.Errorf("merge stock into listing %d: %w", target.ID, err)
	}

	in.finishResolution()
	in.logger.Info("stock merged", "id", updated.ID, "from", existing, "to", updated.Stock)
	return Outcome{Decision: domain.DecisionPrompt, Listing: &updated}, nil
}

// ResolveImportMatch applies the seller's answer to one suggested match of a
// bulk import. Cancel leaves the row unresolved and returns nil. A stock
// conflict refreshes match.Suggested.Stock so the caller can retry.
func (in *Intake) ResolveImportMatch(ctx context.Context, match *domain.SuggestedMatch, action domain.Resolution) (*domain.BookListing, error) {
	if action == domain.ResolutionCancel {
		return nil, nil
	}
	if action != domain.ResolutionMerge && action != domain.ResolutionCreate {
		return nil, fmt.Errorf("unknown resolution %q", action)
	}

	in.mu.Lock()
	if in.state.busy() || in.importing {
		in.mu.Unlock()
		return nil, domain.ErrSubmissionInFlight
	}
	in.importing = true
	in.mu.Unlock()

	defer func() {
		in.mu.Lock()
		in.importing = false
		in.mu.Unlock()
	}()

	if action == domain.ResolutionCreate {
		created, err := in.api.CreateBook(ctx, match.RowData)
		if err != nil {
			return nil, fmt.Errorf("create listing for row %d: %w", match.Row, err)
		}
		return &created, nil
	}

	incoming := match.RowData.Stock
	if incoming < 0 {
		incoming = 1
	}
	existing := match.Suggested.Stock
	stock := existing + incoming

	updated, err := in.api.UpdateBook(ctx, match.Suggested.ID, domain.ListingUpdate{Stock: &stock}, &existing)
	if err != nil {
		if errors.Is(err, domain.ErrStockConflict) {
			if current, ok := in.findListing(ctx, match.Suggested.ID); ok {
				match.Suggested.Stock = current.Stock
			}
		}
		return nil, fmt.Errorf("merge row %d into listing %d: %w", match.Row, match.Suggested.ID, err)
	}
	return &updated, nil
}

// beginResolution moves an open prompt into the given in-flight state
func (in *Intake) beginResolution(next IntakeState) (Prompt, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.state.busy() || in.importing {
		return Prompt{}, domain.ErrSubmissionInFlight
	}
	if in.state != StatePrompting || in.prompt == nil {
		return Prompt{}, domain.ErrNoPrompt
	}
	in.state = next
	return *in.prompt, nil
}

func (in *Intake) finishResolution() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.prompt = nil
	in.state = StateResolved
}

func (in *Intake) setState(s IntakeState) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.state = s
}

// refreshCandidate reloads the prompted listing so the next merge is based
// on the stock the server holds now
func (in *Intake) refreshCandidate(ctx context.Context) {
	in.mu.Lock()
	if in.prompt == nil {
		in.mu.Unlock()
		return
	}
	id := in.prompt.Candidate.Listing.ID
	in.mu.Unlock()

	current, ok := in.findListing(ctx, id)
	if !ok {
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.prompt != nil && in.prompt.Candidate.Listing.ID == id {
		in.prompt.Candidate.Listing = current
	}
}

func (in *Intake) findListing(ctx context.Context, id int64) (domain.BookListing, bool) {
	listings, err := in.api.ListMyBooks(ctx)
	if err != nil {
		in.logger.Warn("refresh after stock conflict failed", "id", id, "error", err)
		return domain.BookListing{}, false
	}
	for _, l := range listings {
		if l.ID == id {
			return l, true
		}
	}
	return domain.BookListing{}, false
}
