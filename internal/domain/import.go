package domain

// ImportRow is one raw spreadsheet row. A nil field means the column is
// absent from the sheet or the cell is blank.
type ImportRow struct {
	Row         int // 1-based sheet row, header is row 1
	Title       *string
	Author      *string
	Price       *string
	Stock       *string
	IsForSale   *string
	IsForRent   *string
	WeeklyFee   *string
	Condition   *string
	Tags        *string
	Description *string
	ISBN        *string
}

// ImportError is a row rejected by validation. It never reaches the matcher.
type ImportError struct {
	Row     int    `json:"row"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// SuggestedListing is the existing listing a row was matched against
type SuggestedListing struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Author string  `json:"author,omitempty"`
	Stock  int     `json:"stock"`
	Score  float64 `json:"score"`
}

// SuggestedMatch is an import row held back for the seller to adjudicate
type SuggestedMatch struct {
	Row       int              `json:"row"`
	Title     string           `json:"title"`
	RowData   NewListing       `json:"row_data"`
	Suggested SuggestedListing `json:"suggested"`
}

// ImportResult partitions an imported sheet into created rows, hard errors
// and suggested matches
type ImportResult struct {
	BatchID string           `json:"batch_id"`
	Created int              `json:"created"`
	Errors  []ImportError    `json:"errors"`
	Matches []SuggestedMatch `json:"matches"`
}
