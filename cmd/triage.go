package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/support-triage-agent/agent/contract"
)

var (
	triageConversation string
	triageOrderID      string
)

var triageCmd = &cobra.Command{
	Use:   "triage <ticket text>",
	Short: "Run one triage turn and print the result as JSON",
	Long: `Run one triage turn against the configured backends.

Reuse the printed thread_id with --conversation to continue a thread; with the
memory session backend that only works inside a single process, so pick redis
or sqlite for multi-turn use from the shell.

Examples:
  triage-agent triage "My order ORD-4521 arrived broken"
  triage-agent triage --conversation ORD4521 "How long will that take?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTriage,
}

func init() {
	rootCmd.AddCommand(triageCmd)
	triageCmd.Flags().StringVarP(&triageConversation, "conversation", "c", "", "conversation id to continue")
	triageCmd.Flags().StringVar(&triageOrderID, "order-id", "", "order id supplied by the caller")
}

func runTriage(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	a, err := newTriageApp(cmd.Context(), *cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.triage.HandleTurn(cmd.Context(), contractx.TurnRequest{
		TicketText:     strings.Join(args, " "),
		OrderID:        triageOrderID,
		ConversationID: triageConversation,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, resp)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
