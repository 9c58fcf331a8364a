package commands

import (
	"context"
	"errors"
	"os"

	"ledgerimport/internal/config"
	"ledgerimport/internal/logging"
	"ledgerimport/internal/models"
	"ledgerimport/internal/parser"
	"ledgerimport/pkg/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

type globalOptions struct {
	configFile  string
	databaseURL string
	logLevel    string
}

// NewRootCommand creates the ledgerctl command tree.
func NewRootCommand() *cobra.Command {
	var global globalOptions

	rootCmd := &cobra.Command{
		Use:     "ledgerctl",
		Short:   "Parse and import accounting ledger files",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&global.configFile, "config", os.Getenv("CONFIG_FILE"), "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&global.databaseURL, "database-url", "", "PostgreSQL url (overrides config)")
	rootCmd.PersistentFlags().StringVar(&global.logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(newParseCommand())
	rootCmd.AddCommand(newImportCommand(&global))
	rootCmd.AddCommand(newMigrateCommand(&global))

	return rootCmd
}

// connect loads the configuration and opens the database pool.
func (g *globalOptions) connect(ctx context.Context) (*config.Config, *pgxpool.Pool, logrus.FieldLogger, error) {
	if g.databaseURL != "" {
		os.Setenv("DATABASE_URL", g.databaseURL)
	}
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := logging.NewWithOutput(g.logLevel, os.Stderr)

	pool, err := database.NewPool(ctx, cfg.Database.URL, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, pool, logger, nil
}

func parseOptionsFromFlags(currency, standard string) (parser.ParseOptions, error) {
	opts := parser.ParseOptions{DefaultCurrency: currency}
	if standard != "" {
		opts.ExpectedStandard = models.ParseStandard(standard)
		if opts.ExpectedStandard == "" {
			return opts, errors.New("--standard must be one of PCG, SYSCOHADA, IFRS, SCF, US_GAAP")
		}
	}
	return opts, nil
}
