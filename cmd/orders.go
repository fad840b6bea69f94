package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	orderx "github.com/tanpawarit/support-triage-agent/agent/order"
	"github.com/tanpawarit/support-triage-agent/agent/orderid"
)

var (
	ordersSearchEmail string
	ordersSearchText  string
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Inspect the order repository",
}

var ordersGetCmd = &cobra.Command{
	Use:   "get <order id>",
	Short: "Print one order; ids match after normalisation (ord 4521 == ORD-4521)",
	Args:  cobra.ExactArgs(1),
	RunE:  runOrdersGet,
}

var ordersSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search orders by customer email or free text",
	Long: `Search orders by exact customer email (case-insensitive) or by free text
containing an order id or a customer's full name.

Examples:
  triage-agent orders search --email ana@example.com
  triage-agent orders search --q "this is Ana Ruiz about ORD-1001"`,
	Args: cobra.NoArgs,
	RunE: runOrdersSearch,
}

func init() {
	rootCmd.AddCommand(ordersCmd)
	ordersCmd.AddCommand(ordersGetCmd, ordersSearchCmd)
	ordersSearchCmd.Flags().StringVar(&ordersSearchEmail, "email", "", "customer email")
	ordersSearchCmd.Flags().StringVar(&ordersSearchText, "q", "", "free text")
}

func runOrdersGet(cmd *cobra.Command, args []string) error {
	a, err := openOrdersFromEnv()
	if err != nil {
		return err
	}
	defer a.Close()

	id := orderid.Normalize(strings.TrimSpace(args[0]))
	rec, err := a.orders.GetByNormalizedID(cmd.Context(), id)
	if errors.Is(err, orderx.ErrOrderNotFound) {
		return fmt.Errorf("order %s not found", id)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, rec)
}

func runOrdersSearch(cmd *cobra.Command, args []string) error {
	q := orderx.SearchQuery{Email: ordersSearchEmail, Text: ordersSearchText}
	if q.Empty() {
		return errors.New("one of --email or --q is required")
	}

	a, err := openOrdersFromEnv()
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.orders.Search(cmd.Context(), q)
	if err != nil {
		return err
	}
	if results == nil {
		results = []orderx.Record{}
	}
	return printJSON(cmd, results)
}

func openOrdersFromEnv() (*app, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	return newOrdersApp(*cfg)
}
