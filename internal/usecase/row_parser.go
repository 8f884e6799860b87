package usecase

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/readar/backend/internal/domain"
)

// Compiled regex patterns for cell cleanup
var (
	// Matches currency symbols and codes around a price, e.g. "$12.50", "Rs. 250", "₹ 99", "12 USD"
	currencyPattern = regexp.MustCompile(`(?i)^\s*(?:rs\.?|inr|usd|eur|gbp|[$€£₹])\s*|\s*(?:rs\.?|inr|usd|eur|gbp|[$€£₹])\s*$`)

	// Matches amounts written with thousands separators like "1,200.00"
	thousandsPattern = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)

	// Spreadsheets store whole numbers as floats, so "3" arrives as "3.0"
	wholeFloatPattern = regexp.MustCompile(`^(-?\d+)\.0+$`)
)

var truthyCells = map[string]bool{"true": true, "yes": true, "y": true, "1": true}
var falsyCells = map[string]bool{"false": true, "no": true, "n": true, "0": true}

// RowError is a hard validation failure for one import row
type RowError struct {
	Row     int
	Title   string
	Message string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// RowParser turns raw spreadsheet rows into listings ready to create
type RowParser struct {
	enableDebugLogging bool
}

// NewRowParser creates a new row parser
func NewRowParser(enableDebugLogging bool) *RowParser {
	return &RowParser{
		enableDebugLogging: enableDebugLogging,
	}
}

// ParseRow validates row and applies defaults: stock 1, for sale, not for rent.
// Title and price are required.
func (p *RowParser) ParseRow(row domain.ImportRow) (domain.NewListing, error) {
	title := cell(row.Title)
	fail := func(format string, args ...any) (domain.NewListing, error) {
		return domain.NewListing{}, &RowError{Row: row.Row, Title: title, Message: fmt.Sprintf(format, args...)}
	}

	if title == "" {
		return fail("missing required field: title")
	}

	rawPrice := cell(row.Price)
	if rawPrice == "" {
		return fail("missing required field: price")
	}
	price, err := parseAmount(rawPrice)
	if err != nil {
		return fail("invalid price: %q", rawPrice)
	}
	if price < 0 {
		return fail("price must not be negative")
	}

	listing := domain.NewListing{
		Title:       title,
		Author:      cell(row.Author),
		Price:       price,
		Stock:       1,
		Status:      domain.StatusInStock,
		IsForSale:   true,
		IsForRent:   false,
		Condition:   cell(row.Condition),
		Tags:        cleanTags(cell(row.Tags)),
		Description: cell(row.Description),
		ISBN:        wholeFloatPattern.ReplaceAllString(cell(row.ISBN), "$1"),
	}

	if raw := cell(row.Stock); raw != "" {
		stock, err := parseCount(raw)
		if err != nil {
			return fail("invalid stock: %q", raw)
		}
		if stock < 0 {
			return fail("stock must not be negative")
		}
		listing.Stock = stock
	}

	if raw := cell(row.IsForSale); raw != "" {
		v, ok := parseFlag(raw)
		if !ok {
			return fail("invalid is_for_sale: %q", raw)
		}
		listing.IsForSale = v
	}

	if raw := cell(row.IsForRent); raw != "" {
		v, ok := parseFlag(raw)
		if !ok {
			return fail("invalid is_for_rent: %q", raw)
		}
		listing.IsForRent = v
	}

	if raw := cell(row.WeeklyFee); raw != "" {
		fee, err := parseAmount(raw)
		if err != nil {
			return fail("invalid weekly_fee: %q", raw)
		}
		if fee < 0 {
			return fail("weekly_fee must not be negative")
		}
		listing.WeeklyFee = &fee
	}

	if p.enableDebugLogging {
		slog.Debug("import row parsed", "row", row.Row, "title", listing.Title, "price", listing.Price, "stock", listing.Stock)
	}

	return listing, nil
}

// ParseStock reads a user-entered stock count. Absent, unparsable or
// negative input yields 1.
func ParseStock(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1
	}
	n, err := parseCount(raw)
	if err != nil || n < 0 {
		return 1
	}
	return n
}

func cell(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

// parseAmount parses a money cell, tolerating currency markers and thousands separators
func parseAmount(raw string) (float64, error) {
	cleaned := strings.TrimSpace(currencyPattern.ReplaceAllString(raw, ""))
	if thousandsPattern.MatchString(cleaned) {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite amount: %q", raw)
	}
	return v, nil
}

func parseCount(raw string) (int, error) {
	cleaned := wholeFloatPattern.ReplaceAllString(strings.TrimSpace(raw), "$1")
	return strconv.Atoi(cleaned)
}

func parseFlag(raw string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if truthyCells[v] {
		return true, true
	}
	if falsyCells[v] {
		return false, true
	}
	return false, false
}

// cleanTags trims each comma-separated tag and drops empty ones
func cleanTags(raw string) string {
	if raw == "" {
		return ""
	}
	var kept []string
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			kept = append(kept, tag)
		}
	}
	return strings.Join(kept, ", ")
}
