package usecase

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/readar/backend/internal/domain"
)

// DefaultMatchThreshold is the minimum title similarity that holds a new
// listing back for a merge prompt
const DefaultMatchThreshold = 0.6

// titleNoiseRegex matches everything NormalizeTitle drops. Kept whitespace is
// the unicode.IsSpace set, the same one strings.Fields splits on.
var titleNoiseRegex = regexp.MustCompile(`[^a-z0-9\s\x{000B}\x{0085}\p{Z}]`)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	Threshold          float64
	EnableDebugLogging bool
	Logger             *slog.Logger
}

// MatchingService finds duplicate listings among a single seller's inventory
type MatchingService struct {
	threshold          float64
	enableDebugLogging bool
	logger             *slog.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	threshold := config.Threshold
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MatchingService{
		threshold:          threshold,
		enableDebugLogging: config.EnableDebugLogging,
		logger:             logger,
	}
}

// Threshold returns the decision threshold in use
func (s *MatchingService) Threshold() float64 {
	return s.threshold
}

// Evaluate finds the best match for title among listings and decides
// whether the submission needs a merge prompt.
func (s *MatchingService) Evaluate(title string, listings []domain.BookListing) (domain.MatchResult, domain.Decision) {
	result := FindBestMatch(title, listings)
	decision := Decide(result, s.threshold)

	if s.enableDebugLogging {
		attrs := []any{"title", title, "candidates", len(listings), "score", result.BestScore, "decision", decision}
		if result.Best != nil {
			attrs = append(attrs, "best_id", result.Best.Listing.ID, "best_title", result.Best.Listing.Title)
		}
		s.logger.Debug("duplicate check", attrs...)
	}

	return result, decision
}

// NormalizeTitle reduces a free-text title to its comparable form:
// lower-cased, only a-z, 0-9 and (Unicode) whitespace kept, outer whitespace
// trimmed.
func NormalizeTitle(s string) string {
	if s == "" {
		return ""
	}
	result := titleNoiseRegex.ReplaceAllString(strings.ToLower(s), "")
	return strings.TrimSpace(result)
}

// JaccardSimilarity scores two normalized titles as the intersection over
// union of their word sets. Two blank titles score 1.
func JaccardSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// FindBestMatch scores title against every listing and returns the highest
// scoring one. Listings whose title normalizes to empty are never candidates.
// Ties keep the earliest listing.
func FindBestMatch(title string, listings []domain.BookListing) domain.MatchResult {
	normalized := NormalizeTitle(title)

	var best *domain.MatchCandidate
	bestScore := 0.0

	for _, listing := range listings {
		existing := NormalizeTitle(listing.Title)
		if existing == "" {
			continue
		}

		score := JaccardSimilarity(normalized, existing)
		if best == nil || score > bestScore {
			bestScore = score
			best = &domain.MatchCandidate{Listing: listing, Score: score}
		}
	}

	if best == nil {
		return domain.MatchResult{Best: nil, BestScore: 0}
	}

	return domain.MatchResult{Best: best, BestScore: bestScore}
}

// Decide returns DecisionPrompt when a best match exists and reaches the
// threshold (inclusive), DecisionCreate otherwise
func Decide(result domain.MatchResult, threshold float64) domain.Decision {
	if result.Best != nil && result.BestScore >= threshold {
		return domain.DecisionPrompt
	}
	return domain.DecisionCreate
}

// tokenSet splits a normalized title on whitespace into a set of words
func tokenSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}
