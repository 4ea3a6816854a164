package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fundprep/examgen/internal/llm"
	"github.com/fundprep/examgen/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded provider calls (requires --history)",
}

// historyEnv opens the ledger whether or not recording is switched on.
func historyEnv(cmd *cobra.Command) (*env, error) {
	e, err := setup(cmd, logCommand)
	if err != nil {
		return nil, err
	}
	if e.store == nil {
		e.store, err = openStore(cmd.Context(), e.cfg.History.DB)
		if err != nil {
			e.close()
			return nil, err
		}
	}
	return e, nil
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent provider calls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetDuration("since")

		e, err := historyEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		opts := store.QueryOpts{Limit: limit}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}
		events, err := e.store.EventRepo().List(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		printEvents(cmd.OutOrStdout(), events)
		return nil
	},
}

var historyViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q: %w", args[0], err)
		}

		e, err := historyEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		ev, err := e.store.EventRepo().Get(cmd.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("event %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		printEvent(cmd.OutOrStdout(), ev)
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage and estimated cost per model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := historyEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		stats, err := e.store.EventRepo().Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "Maximum number of calls to show (0 = all)")
	historyListCmd.Flags().Duration("since", 0, "Only show calls newer than this, e.g. 24h")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyViewCmd)
	historyCmd.AddCommand(historyStatsCmd)
}

const timeLayout = "2006-01-02 15:04:05"

func printEvents(w io.Writer, events []store.LLMRequestEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No calls recorded.")
		return
	}

	fmt.Fprintf(w, "%-5s  %-19s  %-10s  %-28s  %-6s  %-6s  %-7s  %s\n",
		"ID", "Timestamp", "Provider", "Model", "In", "Out", "Ms", "OK")
	fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, e := range events {
		ok := "✓"
		if !e.Success {
			ok = "✗ " + e.ErrorKind
		}
		model := e.Model
		if len(model) > 28 {
			model = model[:28]
		}
		fmt.Fprintf(w, "%-5d  %-19s  %-10s  %-28s  %-6d  %-6d  %-7d  %s\n",
			e.ID,
			e.Timestamp.Local().Format(timeLayout),
			e.Provider,
			model,
			e.InputTokens,
			e.OutputTokens,
			e.LatencyMs,
			ok,
		)
	}
}

func printEvent(w io.Writer, e *store.LLMRequestEvent) {
	sep := strings.Repeat("─", 60)

	fmt.Fprintf(w, "ID:        %d\n", e.ID)
	fmt.Fprintf(w, "Request:   %s\n", e.RequestID)
	fmt.Fprintf(w, "Time:      %s\n", e.Timestamp.Local().Format(timeLayout))
	fmt.Fprintf(w, "Provider:  %s\n", e.Provider)
	fmt.Fprintf(w, "Model:     %s\n", e.Model)
	fmt.Fprintf(w, "Purpose:   %s\n", e.Purpose)
	fmt.Fprintf(w, "Streamed:  %v\n", e.Streamed)
	fmt.Fprintf(w, "Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
	fmt.Fprintf(w, "Latency:   %dms\n", e.LatencyMs)
	fmt.Fprintf(w, "Success:   %v\n", e.Success)
	if e.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:     [%s] %s\n", e.ErrorKind, e.ErrorMessage)
	}

	section := func(title, body string) {
		fmt.Fprintln(w, sep)
		fmt.Fprintln(w, title)
		fmt.Fprintln(w, sep)
		if body == "" {
			body = "(not captured)"
		}
		fmt.Fprintln(w, body)
	}
	fmt.Fprintln(w)
	section("REQUEST", e.RequestBody)
	section("RESPONSE", e.ResponseBody)
}

func printStats(w io.Writer, stats []store.ModelStats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No usage recorded yet.")
		return
	}

	line := strings.Repeat("─", 96)
	fmt.Fprintln(w, "Usage by Model")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "%-28s  %6s  %6s  %10s  %10s  %8s  %10s\n",
		"Model", "Calls", "Failed", "Input", "Output", "Avg Ms", "Est. Cost")
	fmt.Fprintln(w, line)

	var calls, failed, in, out int
	var total float64
	for _, st := range stats {
		cost := "n/a"
		if mc := llm.LookupCost(st.Model); mc != nil {
			c := mc.Cost(st.InputTokens, st.OutputTokens)
			total += c
			cost = fmt.Sprintf("$%.4f", c)
		}
		model := st.Model
		if len(model) > 28 {
			model = model[:28]
		}
		fmt.Fprintf(w, "%-28s  %6d  %6d  %10d  %10d  %8.0f  %10s\n",
			model, st.Requests, st.Failures, st.InputTokens, st.OutputTokens, st.AvgLatencyMs, cost)
		calls += st.Requests
		failed += st.Failures
		in += st.InputTokens
		out += st.OutputTokens
	}

	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "%-28s  %6d  %6d  %10d  %10d  %8s  %10s\n",
		"TOTAL", calls, failed, in, out, "", fmt.Sprintf("$%.4f", total))
}
