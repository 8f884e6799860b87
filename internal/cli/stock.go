package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/readar/backend/internal/domain"
)

func newStockCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stock",
		Short: "List your books and their stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, v)
			if err != nil {
				return err
			}

			listings, err := s.intake.Listings(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch listings: %w", err)
			}
			printListings(s, listings)
			return nil
		},
	}
}

func printListings(s *session, listings []domain.BookListing) {
	if len(listings) == 0 {
		fmt.Fprintln(s.out, "No listings yet.")
		return
	}

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tSTOCK\tPRICE\tSTATUS")
	for _, l := range listings {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.2f\t%s\n", l.ID, l.Title, l.Author, l.Stock, l.Price, l.Status)
	}
	_ = w.Flush()
}
