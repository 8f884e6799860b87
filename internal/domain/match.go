package domain

// MatchCandidate is an existing listing proposed as a duplicate of a
// submission, with its title similarity score in [0,1]
type MatchCandidate struct {
	Listing BookListing `json:"listing"`
	Score   float64     `json:"score"`
}

// MatchResult is the outcome of a best-match search. Best is nil when the
// seller has no listing with a non-empty title.
type MatchResult struct {
	Best      *MatchCandidate `json:"best,omitempty"`
	BestScore float64         `json:"bestScore"`
}

// Decision tells the caller whether to interrupt creation with a merge prompt
type Decision string

const (
	DecisionPrompt Decision = "prompt"
	DecisionCreate Decision = "create"
)

// Resolution is the user's answer to a merge prompt
type Resolution string

const (
	ResolutionMerge  Resolution = "merge"
	ResolutionCreate Resolution = "create"
	ResolutionCancel Resolution = "cancel"
)
