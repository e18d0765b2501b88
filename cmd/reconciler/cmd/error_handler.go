package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"email-payment-reconciler/pkg/errors"
	"email-payment-reconciler/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError handles errors and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return h.handleReconcilerError(reconcilerErr)
	}
	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	if help := h.getCategoryHelp(err.Category); help != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", help)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	if os.IsNotExist(err) || strings.Contains(err.Error(), "no such file or directory") {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}
	if os.IsPermission(err) || strings.Contains(err.Error(), "permission denied") {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if !h.verbose {
		fmt.Fprintf(os.Stderr, "Run with --verbose for more detail\n")
	}
	return 1
}

func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryNormalize, errors.CategoryExtract:
		return `Extraction error help:
- Check the emails file structure: each message needs subject, from, and a body
- Inspect the attempt log for the body snippets around the failed field
- The bank may have changed its notification wording`

	case errors.CategoryTemplate:
		return `Template error help:
- A recognized bank's notification is missing a required field
- Compare a recent notification against the template's expected labels
- Do not route these emails through generic extraction; fix the template`

	case errors.CategoryMatch, errors.CategoryDuplicate:
		return `Matching error help:
- Review the attempt records for the rejection reason
- Try adjusting --time-window, --amount-tolerance, or --name-threshold
- Verify the pending requests carry accurate payer names`

	case errors.CategoryStorage, errors.CategoryAudit:
		return `Storage error help:
- Check the database file exists and is writable
- Ensure no other process holds the database exclusively
- The attempt log is append-only; corrupted files must be recreated`

	case errors.CategoryConfiguration:
		return `Configuration error help:
- Check your command-line flags and arguments
- Verify configuration file syntax if using --config
- Use 'reconciler process --help' to see all available options`

	default:
		return `For more help:
- Use 'reconciler --help' for general help
- Use 'reconciler process --help' for command-specific help`
	}
}
