package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/readar/backend/internal/domain"
)

func newImportCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Bulk import books from a .csv or .xlsx sheet",
		Long: `Upload a spreadsheet of books. The sheet needs a header row with at
least "title" and "price" columns.

Rows with no similar listing are created right away. Rows that look like a
book you already list are shown one at a time so you can merge, create or
skip them.`,
		Example: `  readar import inventory.xlsx`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, v)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open sheet: %w", err)
			}
			defer f.Close()

			result, err := s.api.ImportSpreadsheet(cmd.Context(), args[0], f)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			return runImport(cmd.Context(), s, result)
		},
	}
}

// runImport reports an import result and walks its suggested matches
func runImport(ctx context.Context, s *session, result *domain.ImportResult) error {
	fmt.Fprintf(s.out, "Imported batch %s: %d created, %d rejected, %d possible duplicates.\n",
		result.BatchID, result.Created, len(result.Errors), len(result.Matches))
	for _, e := range result.Errors {
		if e.Title != "" {
			fmt.Fprintf(s.out, "  row %d (%s): %s\n", e.Row, e.Title, e.Message)
		} else {
			fmt.Fprintf(s.out, "  row %d: %s\n", e.Row, e.Message)
		}
	}

	var merged, created, skipped int
	answers := map[string]domain.Resolution{
		"m": domain.ResolutionMerge,
		"c": domain.ResolutionCreate,
		"s": domain.ResolutionCancel,
	}

	for i := range result.Matches {
		match := &result.Matches[i]

		for {
			fmt.Fprintf(s.out, "Row %d %q looks like #%d %q (stock %d, %.0f%% similar).\n",
				match.Row, match.Title, match.Suggested.ID, match.Suggested.Title, match.Suggested.Stock, match.Suggested.Score*100)

			answer, err := s.choose("Merge (m), create (c) or skip (s)?", "m", "c", "s")
			if errors.Is(err, io.EOF) {
				skipped += len(result.Matches) - i
				fmt.Fprintf(s.out, "Resolved: %d merged, %d created, %d skipped.\n", merged, created, skipped)
				return nil
			}
			if err != nil {
				return err
			}

			listing, err := s.intake.ResolveImportMatch(ctx, match, answers[answer])
			if errors.Is(err, domain.ErrStockConflict) {
				fmt.Fprintln(s.out, "The listing's stock changed since the import. Please answer again.")
				continue
			}
			if err != nil {
				return err
			}

			switch {
			case listing == nil:
				skipped++
			case answers[answer] == domain.ResolutionMerge:
				merged++
				fmt.Fprintf(s.out, "  #%d stock is now %d\n", listing.ID, listing.Stock)
			default:
				created++
				fmt.Fprintf(s.out, "  created #%d\n", listing.ID)
			}
			break
		}
	}

	fmt.Fprintf(s.out, "Resolved: %d merged, %d created, %d skipped.\n", merged, created, skipped)
	return nil
}
