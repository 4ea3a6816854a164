package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fundprep/examgen/internal/exam"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and validate exam catalogs",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the variants and subjects of the active catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, logCommand)
		if err != nil {
			return err
		}
		defer e.close()

		printCatalog(cmd.OutOrStdout(), e.catalog)
		return nil
	},
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a catalog file against the catalog schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := exam.LoadCatalog(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d variants)\n", args[0], len(c.Variants))
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
}

func printCatalog(w io.Writer, c *exam.Catalog) {
	for i, v := range c.Variants {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s\n", v.ID, v.Title)
		fmt.Fprintf(w, "  questions: %d-%d (default %d)\n", v.MinCount, v.MaxCount, v.DefaultCount)
		fmt.Fprintln(w, "  "+strings.Repeat("─", 40))
		for _, s := range v.Subjects {
			fmt.Fprintf(w, "  %-10s %s\n", s.ID, s.Label)
		}
		if v.AllowCustom {
			fmt.Fprintf(w, "  %-10s %s\n", exam.CustomChoice, v.CustomLabel)
		}
	}
}
