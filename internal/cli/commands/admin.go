package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/contentanonymity/backend/internal/cli/api"
	"github.com/contentanonymity/backend/internal/cli/output"
	"github.com/contentanonymity/backend/internal/cli/prompter"
	"github.com/spf13/cobra"
)

var (
	importDryRun    bool
	importFormat    string
	importRunLimit  int
	reindexRecreate bool
	promoteYes      bool
)

var validRoles = []string{"member", "editor", "admin"}

var importCmd = &cobra.Command{
	Use:   "import <entity> <file>",
	Short: "Import catalog rows from a CSV or JSON file",
	Long: `Upload a CSV or JSON file of tools, niches, templates, articles or guides.
Rows are matched on external id or slug and updated in place. Use --dry-run
to validate a file without writing anything.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireLogin(); err != nil {
			return err
		}
		report, err := api.Import(api.ImportOptions{
			Entity: strings.ToLower(args[0]),
			Path:   args[1],
			Format: importFormat,
			DryRun: importDryRun,
		})
		if err != nil {
			return err
		}
		return printImportReport(report)
	},
}

var importRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent import runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireLogin(); err != nil {
			return err
		}
		page, err := api.ImportRuns(importRunLimit, 0)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(page.Items))
		for _, r := range page.Items {
			rows = append(rows, []string{
				r.Entity,
				r.Filename,
				strconv.FormatBool(r.DryRun),
				strconv.Itoa(r.Inserted),
				strconv.Itoa(r.Updated),
				strconv.Itoa(r.Skipped),
			})
		}
		return output.PrintList([]string{"ENTITY", "FILE", "DRY RUN", "INSERTED", "UPDATED", "SKIPPED"}, rows, page)
	},
}

func printImportReport(report *api.ImportReport) error {
	if output.GetFormat() == output.FormatJSON {
		return output.Print(report)
	}
	if report.DryRun {
		output.PrintWarning("dry run, nothing was written")
	}
	if err := output.PrintRecord(map[string]interface{}{
		"entity":   report.Entity,
		"format":   report.Format,
		"rows":     report.Rows,
		"inserted": report.Inserted,
		"updated":  report.Updated,
		"skipped":  report.Skipped,
	}); err != nil {
		return err
	}
	for _, e := range report.Errors {
		output.PrintError("row %d: %s", e.Row, e.Message)
	}
	if len(report.Errors) == 0 {
		output.PrintSuccess("Imported %d %s", report.Inserted+report.Updated, report.Entity)
	}
	return nil
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireLogin(); err != nil {
			return err
		}
		report, err := api.Reindex(reindexRecreate)
		if err != nil {
			return err
		}
		if output.GetFormat() == output.FormatJSON {
			return output.Print(report)
		}

		kinds := make([]string, 0, len(report.Indexed))
		for k := range report.Indexed {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		rows := make([][]string, 0, len(kinds))
		for _, k := range kinds {
			rows = append(rows, []string{k, strconv.Itoa(report.Indexed[k])})
		}
		if err := output.PrintList([]string{"KIND", "INDEXED"}, rows, report); err != nil {
			return err
		}
		if report.Failed > 0 {
			output.PrintWarning("%d documents failed to index", report.Failed)
		}
		output.PrintSuccess("Reindex finished in %s", report.Duration)
		return nil
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote <username> <role>",
	Short: "Change a member's role",
	Long:  "Set a member's role to member, editor or admin. Takes effect on their next request.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireLogin(); err != nil {
			return err
		}
		username, role := args[0], strings.ToLower(args[1])
		if !contains(validRoles, role) {
			return fmt.Errorf("role must be one of %s", strings.Join(validRoles, ", "))
		}
		if role == "admin" && !promoteYes {
			ok, err := prompter.PromptConfirm(fmt.Sprintf("Give %s full admin rights?", username))
			if err != nil {
				return err
			}
			if !ok {
				output.PrintInfo("Cancelled.")
				return nil
			}
		}

		user, err := api.SetRole(username, role)
		if err != nil {
			return err
		}
		output.PrintSuccess("%s is now %s", user.Username, user.Role)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts per entity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireLogin(); err != nil {
			return err
		}
		counts, err := api.Stats()
		if err != nil {
			return err
		}
		record := make(map[string]interface{}, len(counts))
		for k, v := range counts {
			record[k] = v
		}
		return output.PrintRecord(record)
	},
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate without writing")
	importCmd.Flags().StringVar(&importFormat, "format", "", "csv or json (default: from the file extension)")
	importRunsCmd.Flags().IntVar(&importRunLimit, "limit", 20, "Number of runs")
	importCmd.AddCommand(importRunsCmd)

	reindexCmd.Flags().BoolVar(&reindexRecreate, "recreate", false, "Drop and recreate the index first")
	promoteCmd.Flags().BoolVarP(&promoteYes, "yes", "y", false, "Skip the confirmation for admin")
}
