package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"ledgerimport/internal/models"
	"ledgerimport/internal/parser"

	"github.com/spf13/cobra"
)

func newParseCommand() *cobra.Command {
	var currency, standard string
	var asJSON bool
	var maxErrors int

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a ledger file and print its statistics without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseOptionsFromFlags(currency, standard)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			content, err := parser.ReadContent(args[0], f)
			if err != nil {
				return err
			}
			result := content.Parse(opts)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printParseResult(cmd.OutOrStdout(), result, maxErrors)
			if !result.Success {
				return fmt.Errorf("%s has no valid entries", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&currency, "currency", parser.DefaultCurrency, "currency of lines without one")
	cmd.Flags().StringVar(&standard, "standard", "", "accounting standard, detected when empty")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full parse result as JSON")
	cmd.Flags().IntVar(&maxErrors, "errors", 10, "maximum number of line errors to print")

	return cmd
}

func printParseResult(w io.Writer, r *models.ParseResult, maxErrors int) {
	s := r.Stats
	fmt.Fprintf(w, "format:     %s\n", r.Format)
	fmt.Fprintf(w, "standard:   %s\n", r.Standard.Label())
	fmt.Fprintf(w, "lines:      %d valid, %d with errors, %d total\n", s.ValidLines, s.ErrorLines, s.TotalLines)
	fmt.Fprintf(w, "debit:      %s\n", s.TotalDebit.StringFixed(2))
	fmt.Fprintf(w, "credit:     %s\n", s.TotalCredit.StringFixed(2))
	fmt.Fprintf(w, "balance:    %s\n", s.Balance.StringFixed(2))
	fmt.Fprintf(w, "journals:   %v\n", s.Journals)
	fmt.Fprintf(w, "currencies: %v\n", s.Currencies)
	if s.DateRange != nil {
		fmt.Fprintf(w, "period:     %s to %s\n", s.DateRange.Start, s.DateRange.End)
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
	for i, e := range r.Errors {
		if i == maxErrors {
			fmt.Fprintf(w, "... %d more errors\n", len(r.Errors)-maxErrors)
			break
		}
		fmt.Fprintf(w, "error: %s\n", e.Error())
	}
}
