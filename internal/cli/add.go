package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/readar/backend/internal/domain"
	"github.com/readar/backend/internal/usecase"
)

func newAddCmd(v *viper.Viper) *cobra.Command {
	var (
		listing   domain.NewListing
		quantity  string
		status    string
		weeklyFee float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book, asking first when a similar listing exists",
		Long: `Add a book to your stock.

Your listings are fetched and compared by title. When one is similar enough
you are asked whether to merge the new copies into its stock, create a
separate listing or cancel.`,
		Example: `  # Add three copies of a paperback
  readar add --title "Dune" --author "Frank Herbert" --price 9.99 --stock 3

  # Offer a book for rent only
  readar add --title "Emma" --price 4 --for-sale=false --for-rent --weekly-fee 1.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, v)
			if err != nil {
				return err
			}

			listing.Status = domain.BookStatus(status)
			if cmd.Flags().Changed("weekly-fee") {
				fee := weeklyFee
				listing.WeeklyFee = &fee
			}
			return runAdd(cmd.Context(), s, usecase.Draft{Listing: listing, Quantity: quantity})
		},
	}

	cmd.Flags().StringVar(&listing.Title, "title", "", "Book title (required)")
	cmd.Flags().StringVar(&listing.Author, "author", "", "Author")
	cmd.Flags().StringVar(&listing.ISBN, "isbn", "", "ISBN")
	cmd.Flags().Float64Var(&listing.Price, "price", 0, "Sale price (required)")
	cmd.Flags().StringVar(&quantity, "stock", "", "Copies to add; blank, invalid or negative counts as 1")
	cmd.Flags().StringVar(&listing.Tags, "tags", "", "Comma-separated tags")
	cmd.Flags().StringVar(&listing.Description, "description", "", "Description")
	cmd.Flags().StringVar(&listing.Condition, "condition", "", "Condition, e.g. new or used")
	cmd.Flags().StringVar(&status, "status", string(domain.StatusInStock), "Status: in_stock, expected, lent or sold")
	cmd.Flags().BoolVar(&listing.IsForSale, "for-sale", true, "Offer the book for sale")
	cmd.Flags().BoolVar(&listing.IsForRent, "for-rent", false, "Offer the book for rent")
	cmd.Flags().Float64Var(&weeklyFee, "weekly-fee", 0, "Weekly rental fee")

	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

// runAdd submits draft and answers any merge prompt from the session input
func runAdd(ctx context.Context, s *session, draft usecase.Draft) error {
	outcome, err := s.intake.Submit(ctx, draft)
	if err != nil {
		return err
	}

	for outcome.Prompt != nil {
		showPrompt(s, outcome.Prompt)

		answer, err := s.choose("Merge stock (m), create a separate listing (c) or cancel (x)?", "m", "c", "x")
		if errors.Is(err, io.EOF) {
			answer = "x"
		} else if err != nil {
			return err
		}

		switch answer {
		case "x":
			if err := s.intake.Cancel(); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "Cancelled, nothing was changed.")
			return nil
		case "c":
			outcome, err = s.intake.CreateSeparate(ctx)
		case "m":
			outcome, err = s.intake.MergeStock(ctx)
		}

		if errors.Is(err, domain.ErrStockConflict) {
			fmt.Fprintln(s.out, "The listing's stock changed since it was read. Please answer again.")
			outcome = usecase.Outcome{Prompt: s.intake.Pending()}
			continue
		}
		if err != nil {
			return err
		}
	}

	if outcome.Listing == nil {
		return nil
	}
	l := outcome.Listing
	if outcome.Decision == domain.DecisionPrompt {
		fmt.Fprintf(s.out, "Merged into #%d %q, stock is now %d.\n", l.ID, l.Title, l.Stock)
	} else {
		fmt.Fprintf(s.out, "Created #%d %q with stock %d.\n", l.ID, l.Title, l.Stock)
	}
	return nil
}

func showPrompt(s *session, p *usecase.Prompt) {
	existing := p.Candidate.Listing
	fmt.Fprintf(s.out, "%q looks like a book you already list (%.0f%% similar):\n", p.Draft.Listing.Title, p.Candidate.Score*100)
	fmt.Fprintf(s.out, "  #%d %s\n", existing.ID, existing.Title)
	if existing.Author != "" {
		fmt.Fprintf(s.out, "  by %s\n", existing.Author)
	}
	fmt.Fprintf(s.out, "  current stock: %d, adding: %d\n", existing.Stock, usecase.ParseStock(p.Draft.Quantity))
}
