package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ledgerimport/internal/repositories"
	"ledgerimport/internal/services"
	"ledgerimport/pkg/database"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newImportCommand(global *globalOptions) *cobra.Command {
	var tenant, user, currency, standard string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a ledger file into a tenant's books",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			meta := services.ImportMeta{ID: uuid.New(), TenantID: tenantID, FileName: filepath.Base(args[0])}
			if user != "" {
				userID, err := uuid.Parse(user)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				meta.UserID = &userID
			}
			opts, err := parseOptionsFromFlags(currency, standard)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			ctx := cmd.Context()
			cfg, pool, logger, err := global.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if opts.DefaultCurrency == "" {
				opts.DefaultCurrency = cfg.Import.DefaultCurrency
			}

			svc := services.NewAccountingImportService(services.LedgerRepositories{
				Journals: repositories.NewJournalsRepo(pool),
				Accounts: repositories.NewAccountsRepo(pool),
				Entries:  repositories.NewJournalEntriesRepo(pool),
				Lines:    repositories.NewJournalEntryLinesRepo(pool),
			}, services.NewAuditLogsService(repositories.NewAuditLogsRepo(pool)), logger, cfg.Import.BatchSize)

			result, err := svc.ParseAndImport(ctx, meta, f, opts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("import failed: %s", result.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "tenant id (required)")
	_ = cmd.MarkFlagRequired("tenant")
	cmd.Flags().StringVar(&user, "user", "", "user id recorded in the audit log")
	cmd.Flags().StringVar(&currency, "currency", "", "currency of lines without one (config default when empty)")
	cmd.Flags().StringVar(&standard, "standard", "", "accounting standard, detected when empty")

	return cmd
}

func newMigrateCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger and audit tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, logger, err := global.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			logger.Info("schema is up to date")
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}
