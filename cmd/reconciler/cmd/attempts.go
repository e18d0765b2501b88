package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"email-payment-reconciler/internal/audit"
)

var (
	attemptsPath  string
	attemptsLimit int
	attemptsJSON  bool
)

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Inspect the match attempt log",
	Long: `Attempts lists recent match attempt records, newest first. Use --json to
export the full records for a dispute trail.

Examples:
  reconciler attempts --attempts attempts.db --limit 20
  reconciler attempts --attempts attempts.db --json > trail.json`,
	RunE: runAttempts,
}

func init() {
	rootCmd.AddCommand(attemptsCmd)

	attemptsCmd.Flags().StringVarP(&attemptsPath, "attempts", "a", "", "path to the attempt database (required)")
	attemptsCmd.Flags().IntVarP(&attemptsLimit, "limit", "n", 50, "maximum records to show")
	attemptsCmd.Flags().BoolVar(&attemptsJSON, "json", false, "emit records as JSON")
	attemptsCmd.MarkFlagRequired("attempts")
}

func runAttempts(cmd *cobra.Command, args []string) error {
	if err := validateFileExists(attemptsPath, "attempt database"); err != nil {
		return err
	}

	sink, err := audit.NewSQLiteSink(attemptsPath)
	if err != nil {
		return err
	}
	defer sink.Close()

	ctx := context.Background()

	if attemptsJSON {
		out, err := sink.ExportJSON(ctx, attemptsLimit)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		fmt.Println()
		return nil
	}

	records, err := sink.Recent(ctx, attemptsLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No attempt records.")
		return nil
	}

	for _, record := range records {
		line := fmt.Sprintf("%s  %-9s", record.CreatedAt.Format("2006-01-02 15:04:05"), record.Result)
		if record.ExtractedAmount != nil {
			line += fmt.Sprintf("  %10s", record.ExtractedAmount)
		}
		if record.ExtractedName != "" {
			line += fmt.Sprintf("  %q", record.ExtractedName)
		}
		fmt.Println(line)
		fmt.Printf("    %s\n", record.Reason)
	}
	return nil
}
