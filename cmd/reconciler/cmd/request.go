package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"email-payment-reconciler/internal/models"
	"email-payment-reconciler/internal/store"
)

// Flags for the request commands
var (
	reqDB        string
	reqAmount    string
	reqPayer     string
	reqAccount   string
	reqTxID      string
	reqExpiresIn int
)

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Manage pending payment requests",
}

var requestAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a pending payment request",
	Long: `Add inserts a pending payment request into the request database. The
request waits there until a matching bank alert arrives or it expires.

Examples:
  reconciler request add --requests requests.db --amount 15000 --payer "ADEBAYO OGUNLESI"
  reconciler request add --requests requests.db --amount 2500.50 --expires-in 120`,
	RunE: runRequestAdd,
}

var requestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending payment requests",
	RunE:  runRequestList,
}

var requestExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Mark overdue pending requests as expired",
	RunE:  runRequestExpire,
}

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.AddCommand(requestAddCmd, requestListCmd, requestExpireCmd)

	requestCmd.PersistentFlags().StringVarP(&reqDB, "requests", "r", "", "path to the request database (required)")
	requestCmd.MarkPersistentFlagRequired("requests")

	requestAddCmd.Flags().StringVar(&reqAmount, "amount", "", "expected amount in naira (required)")
	requestAddCmd.Flags().StringVar(&reqPayer, "payer", "", "expected payer name")
	requestAddCmd.Flags().StringVar(&reqAccount, "account", "", "pool account number assigned to the request")
	requestAddCmd.Flags().StringVar(&reqTxID, "transaction-id", "", "external transaction ID (default: generated)")
	requestAddCmd.Flags().IntVar(&reqExpiresIn, "expires-in", 120, "minutes until the request expires")
	requestAddCmd.MarkFlagRequired("amount")
}

func runRequestAdd(cmd *cobra.Command, args []string) error {
	amount, err := models.ParseAmount(reqAmount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", reqAmount, err)
	}

	txID := reqTxID
	if txID == "" {
		txID = uuid.NewString()
	}

	now := time.Now().UTC()
	request := &models.PendingPaymentRequest{
		ID:            uuid.NewString(),
		TransactionID: txID,
		Amount:        amount,
		PayerName:     reqPayer,
		AccountNumber: reqAccount,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(reqExpiresIn) * time.Minute),
		Status:        models.StatusPending,
	}

	s, err := store.NewSQLiteStore(reqDB)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Insert(context.Background(), request); err != nil {
		return err
	}

	fmt.Printf("Added request %s: amount %s", request.ID, request.Amount)
	if request.PayerName != "" {
		fmt.Printf(", payer %q", request.PayerName)
	}
	fmt.Printf(", expires %s\n", request.ExpiresAt.Format(time.RFC3339))
	return nil
}

func runRequestList(cmd *cobra.Command, args []string) error {
	s, err := store.NewSQLiteStore(reqDB)
	if err != nil {
		return err
	}
	defer s.Close()

	pending, err := s.ListPending(context.Background(), "")
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No pending requests.")
		return nil
	}

	for _, req := range pending {
		line := fmt.Sprintf("%s  %10s", req.ID, req.Amount)
		if req.PayerName != "" {
			line += fmt.Sprintf("  payer=%q", req.PayerName)
		}
		if req.AccountNumber != "" {
			line += fmt.Sprintf("  account=%s", req.AccountNumber)
		}
		line += fmt.Sprintf("  created=%s", req.CreatedAt.Format(time.RFC3339))
		fmt.Println(line)
	}
	return nil
}

func runRequestExpire(cmd *cobra.Command, args []string) error {
	s, err := store.NewSQLiteStore(reqDB)
	if err != nil {
		return err
	}
	defer s.Close()

	expired, err := s.Expire(context.Background(), time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Printf("Expired %d requests.\n", expired)
	return nil
}
