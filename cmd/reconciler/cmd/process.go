package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"email-payment-reconciler/cmd/reconciler/config"
	"email-payment-reconciler/internal/audit"
	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/internal/reconciler"
	"email-payment-reconciler/internal/store"
	"email-payment-reconciler/pkg/logger"
)

// Flags for the process command
var (
	emailsFile   string
	requestsDB   string
	attemptsDB   string
	dryRun       bool
	strictMode   bool
	timeWindow   int
	amountTol    float64
	nameThresh   float64
	mismatchCeil float64
	dupWindow    int
	timezone     string
	logJSON      bool
	logFile      string
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process bank alert emails against pending payment requests",
	Long: `Process reads bank notification emails and matches each one against the
pending payment requests in the request database. Every email leaves a
match attempt record regardless of outcome.

The emails file is a JSON array of messages with subject, from, text_body,
html_body, and received_at fields.

Examples:
  # Process a batch of alerts
  reconciler process --emails alerts.json --requests requests.db

  # Keep a persistent audit trail
  reconciler process --emails alerts.json --requests requests.db --attempts attempts.db

  # Dry run against an empty in-memory store
  reconciler process --emails alerts.json --dry-run

  # Tighten matching
  reconciler process --emails alerts.json --requests requests.db \
    --time-window 30 --name-threshold 80`,

	PreRunE: validateProcessFlags,
	RunE:    runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&emailsFile, "emails", "e", "", "path to JSON file of alert emails (required)")
	processCmd.Flags().StringVarP(&requestsDB, "requests", "r", "", "path to the request database")
	processCmd.Flags().StringVarP(&attemptsDB, "attempts", "a", "", "path to the attempt database (default: in memory)")
	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "process without a request database, reporting extraction only")

	processCmd.Flags().BoolVar(&strictMode, "strict", false, "exact amounts and strong name evidence only")
	processCmd.Flags().IntVar(&timeWindow, "time-window", 0, "matching window in minutes after request creation")
	processCmd.Flags().Float64Var(&amountTol, "amount-tolerance", 0, "largest amount difference treated as equal")
	processCmd.Flags().Float64Var(&nameThresh, "name-threshold", 0, "minimum name similarity percentage")
	processCmd.Flags().Float64Var(&mismatchCeil, "mismatch-ceiling", 0, "shortfall that rejects even a name-matched payment")
	processCmd.Flags().IntVar(&dupWindow, "duplicate-window", 0, "duplicate lookback in minutes")
	processCmd.Flags().StringVar(&timezone, "timezone", "", "timezone for bank timestamps")

	processCmd.Flags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	processCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to a file instead of stderr")

	processCmd.MarkFlagRequired("emails")

	viper.BindPFlag("emails", processCmd.Flags().Lookup("emails"))
	viper.BindPFlag("requests", processCmd.Flags().Lookup("requests"))
	viper.BindPFlag("attempts", processCmd.Flags().Lookup("attempts"))
	viper.BindPFlag("time-window", processCmd.Flags().Lookup("time-window"))
	viper.BindPFlag("amount-tolerance", processCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("name-threshold", processCmd.Flags().Lookup("name-threshold"))
	viper.BindPFlag("timezone", processCmd.Flags().Lookup("timezone"))
}

func validateProcessFlags(cmd *cobra.Command, args []string) error {
	emailsFile = viper.GetString("emails")
	if requestsDB == "" {
		requestsDB = viper.GetString("requests")
	}
	if attemptsDB == "" {
		attemptsDB = viper.GetString("attempts")
	}

	if emailsFile == "" {
		return fmt.Errorf("emails file is required")
	}
	if err := validateFileExists(emailsFile, "emails file"); err != nil {
		return err
	}
	if requestsDB == "" && !dryRun {
		return fmt.Errorf("requests database is required unless --dry-run is set")
	}
	return nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	logConfig := config.CreateLoggerConfig(viper.GetBool("verbose"), logJSON, logFile)
	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetGlobalLogger(log)

	matchingConfig, err := config.CreateMatchingConfig(config.MatchingOverrides{
		TimeWindowMinutes:   timeWindow,
		AmountTolerance:     amountTol,
		NameThreshold:       nameThresh,
		MismatchCeiling:     mismatchCeil,
		DuplicateWindowMins: dupWindow,
		Timezone:            timezone,
		Strict:              strictMode,
	})
	if err != nil {
		return err
	}

	msgs, err := loadEmails(emailsFile)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(os.Stderr, "No emails to process.")
		return nil
	}

	var requests store.RequestStore
	if dryRun && requestsDB == "" {
		requests = store.NewMemoryStore()
	} else {
		sqlStore, err := store.NewSQLiteStore(requestsDB)
		if err != nil {
			return err
		}
		requests = sqlStore
	}
	defer requests.Close()

	var sink audit.Sink
	if attemptsDB != "" {
		sqlSink, err := audit.NewSQLiteSink(attemptsDB)
		if err != nil {
			return err
		}
		sink = sqlSink
	} else {
		sink = audit.NewMemorySink()
	}
	defer sink.Close()

	engine, err := reconciler.NewEngine(reconciler.Options{
		Config:   matchingConfig,
		Requests: requests,
		Sink:     sink,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	summary, err := engine.ProcessBatch(ctx, msgs)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	printSummary(summary)
	return nil
}

// loadEmails reads a JSON array of raw messages and sorts them by arrival
// so first-match-wins is deterministic
func loadEmails(path string) ([]*models.RawEmailMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read emails file: %w", err)
	}
	var msgs []*models.RawEmailMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to parse emails file %s: %w", path, err)
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].ReceivedAt.Before(msgs[j].ReceivedAt)
	})
	return msgs, nil
}

func printSummary(summary *reconciler.BatchSummary) {
	fmt.Printf("Processed %d emails: %d matched, %d unmatched, %d duplicates, %d failures\n",
		summary.Processed, summary.Matched, summary.Unmatched, summary.Duplicates, summary.Failures)

	for _, outcome := range summary.Outcomes {
		if !outcome.Matched() {
			continue
		}
		record := outcome.Record
		mismatch := ""
		if outcome.Decision != nil && outcome.Decision.IsMismatch {
			mismatch = " [amount mismatch]"
		}
		fmt.Printf("  matched request %s: %s%s\n", record.RequestID, record.Reason, mismatch)
	}
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}
	return nil
}
