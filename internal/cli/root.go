package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/readar/backend/internal/domain"
	"github.com/readar/backend/internal/infrastructure/logging"
	"github.com/readar/backend/internal/infrastructure/marketplace"
	"github.com/readar/backend/internal/usecase"
)

const defaultAPIURL = "http://localhost:8080/api"

// NewRootCmd builds the readar command tree
func NewRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "readar",
		Short: "Manage your bookstore's stock on the Readar marketplace",
		Long: `Readar keeps a seller's listings free of duplicates.

Adding a book first checks it against your existing listings. When a listing
with a similar title exists you choose between merging the new copies into
its stock and creating a separate listing.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := "warn"
			if v.GetBool("debug") {
				level = "debug"
			}
			logging.NewWithWriter(cmd.ErrOrStderr(), level)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("api-url", defaultAPIURL, "Marketplace API base URL (env READAR_API_URL)")
	flags.String("token", "", "Seller bearer token (env READAR_TOKEN)")
	flags.Float64("threshold", usecase.DefaultMatchThreshold, "Title similarity at which you are asked before creating (env READAR_MATCH_THRESHOLD)")
	flags.Bool("debug", false, "Log API requests and match scores")

	_ = v.BindPFlag("api_url", flags.Lookup("api-url"))
	_ = v.BindPFlag("token", flags.Lookup("token"))
	_ = v.BindPFlag("threshold", flags.Lookup("threshold"))
	_ = v.BindPFlag("debug", flags.Lookup("debug"))
	_ = v.BindEnv("api_url", "READAR_API_URL")
	_ = v.BindEnv("token", "READAR_TOKEN")
	_ = v.BindEnv("threshold", "READAR_MATCH_THRESHOLD")
	_ = v.BindEnv("debug", "READAR_DEBUG")

	cmd.AddCommand(newStockCmd(v))
	cmd.AddCommand(newAddCmd(v))
	cmd.AddCommand(newImportCmd(v))

	return cmd
}

// session is one command run against the marketplace API
type session struct {
	api    domain.ListingAPI
	intake *usecase.Intake
	in     *bufio.Reader
	out    io.Writer
}

func newSession(cmd *cobra.Command, v *viper.Viper) (*session, error) {
	token := strings.TrimSpace(v.GetString("token"))
	if token == "" {
		return nil, errors.New("a seller token is required: pass --token or set READAR_TOKEN")
	}

	client := marketplace.NewClient(token, v.GetString("api_url"))
	client.SetDebug(v.GetBool("debug"))

	matcher := usecase.NewMatchingService(usecase.MatchConfig{
		Threshold:          v.GetFloat64("threshold"),
		EnableDebugLogging: v.GetBool("debug"),
	})

	return &session{
		api:    client,
		intake: usecase.NewIntake(client, matcher),
		in:     bufio.NewReader(cmd.InOrStdin()),
		out:    cmd.OutOrStdout(),
	}, nil
}
