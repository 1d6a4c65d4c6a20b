package cmd

import (
	"fmt"
	"strconv"

	"finchat/api"

	"github.com/spf13/cobra"
)

var (
	reportType        string
	reportDocumentIDs []int64
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage research reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reports (workspace-scoped with --workspace)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		filters := map[string]string{"workspace_id": resolveWorkspace()}
		if reportType != "" {
			filters["report_type"] = reportType
		}
		reports, err := app.API.ListReports(cmd.Context(), filters)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Println("No reports.")
			return nil
		}
		for _, r := range reports {
			fmt.Printf("%d  %s", r.ID, r.Title)
			if r.Status != "" {
				fmt.Printf("  [%s]", r.Status)
			}
			fmt.Println()
		}
		return nil
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a report's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid report id %q", args[0])
		}
		report, err := app.API.GetReport(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n\n%s\n", report.Title, report.Content)
		return nil
	},
}

var reportsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a report from uploaded documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		if reportType == "" {
			return fmt.Errorf("--type is required")
		}
		if len(reportDocumentIDs) == 0 {
			return fmt.Errorf("--documents is required")
		}
		report, err := app.API.GenerateReport(cmd.Context(), api.GenerateReportRequest{
			ReportType:  reportType,
			DocumentIDs: reportDocumentIDs,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Generating report %d (%s)\n", report.ID, report.Status)
		return nil
	},
}

var reportsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid report id %q", args[0])
		}
		if err := app.API.DeleteReport(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Deleted report %d\n", id)
		return nil
	},
}

func init() {
	reportsListCmd.Flags().StringVarP(&reportType, "type", "t", "", "Filter by report type")
	reportsGenerateCmd.Flags().StringVarP(&reportType, "type", "t", "", "Report type to generate")
	reportsGenerateCmd.Flags().Int64SliceVarP(&reportDocumentIDs, "documents", "D", nil, "Document ids to include")
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd, reportsGenerateCmd, reportsDeleteCmd)
	rootCmd.AddCommand(reportsCmd)
}
