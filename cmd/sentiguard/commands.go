package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/sentiguard/internal/alert"
	"github.com/kalambet/sentiguard/internal/api"
	"github.com/kalambet/sentiguard/internal/capture"
	"github.com/kalambet/sentiguard/internal/config"
	"github.com/kalambet/sentiguard/internal/history"
	"github.com/kalambet/sentiguard/internal/storage"
)

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <text>",
	Short: "Score the mood of a piece of text",
	Long: `Score the mood of a piece of text on a scale from -1 to 1.

Examples:
  sentiguard analyze "long day but the walk helped"
  sentiguard analyze --json "nothing is going right"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runAnalyze(cmd.Context(), client, os.Stdout, strings.Join(args, " "), asJSON)
	},
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "print the full layer breakdown as JSON")
}

func runAnalyze(ctx context.Context, c *apiClient, w io.Writer, text string, asJSON bool) error {
	var resp api.AnalyzeResponse
	if err := c.postJSON(ctx, "/v1/analyze", api.AnalyzeRequest{Text: text}, &resp); err != nil {
		return err
	}
	if resp.Degraded {
		printWarning("scored in degraded mode: %s", resp.Error)
	}
	if asJSON {
		return printJSON(w, resp)
	}

	fmt.Fprintf(w, "%s  %s\n", formatScore(resp.Score), moodBar(resp.Score, 20))
	var notes []string
	if resp.Cached {
		notes = append(notes, "cached")
	}
	if resp.Crisis {
		notes = append(notes, colorize(colorRed, "crisis language"))
	}
	if resp.Override {
		notes = append(notes, "positive override")
	}
	if resp.Venting {
		notes = append(notes, "venting")
	}
	if resp.Sarcasm > 0 {
		notes = append(notes, fmt.Sprintf("%d sarcasm markers", resp.Sarcasm))
	}
	if len(notes) > 0 {
		fmt.Fprintf(w, "  %s\n", strings.Join(notes, ", "))
	}
	return nil
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show mood history",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetBool("session")
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runHistory(cmd.Context(), client, os.Stdout, session, limit)
	},
}

func init() {
	historyCmd.Flags().Bool("session", false, "refresh and show the current session analysis")
	historyCmd.Flags().Int("limit", 20, "number of most recent entries to show (0 for all)")
}

func runHistory(ctx context.Context, c *apiClient, w io.Writer, session bool, limit int) error {
	path := "/v1/history"
	if session {
		path = "/v1/history/session"
	}
	var entries []storage.MoodEntry
	if err := c.getJSON(ctx, fmt.Sprintf("%s?limit=%d", path, limit), &entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No mood history yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s  %s\n",
			colorize(colorCyan, e.Timestamp.Local().Format("2006-01-02 15:04")),
			formatScore(e.Score),
			moodBar(e.Score, 20),
		)
	}
	return nil
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show bucketed mood statistics and the session summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		period, _ := cmd.Flags().GetString("period")
		if _, err := history.ParsePeriod(period); err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runStats(cmd.Context(), client, os.Stdout, period)
	},
}

func init() {
	statsCmd.Flags().String("period", "daily", "daily, weekly or monthly")
}

func runStats(ctx context.Context, c *apiClient, w io.Writer, period string) error {
	var sum history.Summary
	if err := c.getJSON(ctx, "/v1/summary", &sum); err != nil {
		return err
	}
	var buckets []history.Bucket
	if err := c.getJSON(ctx, "/v1/stats?period="+url.QueryEscape(period), &buckets); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %d entries, mean %s (%d positive, %d negative, %d neutral)\n",
		colorize(colorBold, "Session:"), sum.Total, formatScore(sum.Mean), sum.Positive, sum.Negative, sum.Neutral)
	for _, b := range buckets {
		if b.Count == 0 {
			fmt.Fprintf(w, "  %-12s %7s  %s\n", b.Label, "-", moodBar(0, 20))
			continue
		}
		fmt.Fprintf(w, "  %-12s %s  %s  (%d)\n", b.Label, formatScore(b.Mean), moodBar(b.Mean, 20), b.Count)
	}
	return nil
}

// --- alerts ---

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and drive guardian alerting",
}

var alertsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether alerting is Waiting or Armed",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runAlertStatus(cmd.Context(), client)
	},
}

var alertsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Count negatives since the last alert and notify the guardian if over the limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runAlertCheck(cmd.Context(), client)
	},
}

var alertsLogCmd = &cobra.Command{
	Use:   "log",
	Short: "List past guardian alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runAlertLog(cmd.Context(), client, os.Stdout, limit)
	},
}

var alertsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the alert pointer to the start of the log",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var result map[string]string
		if err := client.postJSON(cmd.Context(), "/v1/alerts/reset", nil, &result); err != nil {
			return err
		}
		printSuccess("Alert pointer reset")
		return nil
	},
}

func init() {
	alertsLogCmd.Flags().Int("limit", 20, "maximum number of alerts to list")
	alertsCmd.AddCommand(alertsStatusCmd, alertsCheckCmd, alertsLogCmd, alertsResetCmd)
}

func runAlertStatus(ctx context.Context, c *apiClient) error {
	var st alert.Status
	if err := c.getJSON(ctx, "/v1/alerts/pending", &st); err != nil {
		return err
	}
	state := st.State
	if state == alert.StateArmed {
		state = colorize(colorRed, state)
	} else {
		state = colorize(colorGreen, state)
	}
	printStatus("State", "%s", state)
	printStatus("Negatives", "%d of %d allowed", st.Negatives, st.Limit)
	printStatus("Threshold", "%.2f", st.Threshold)
	return nil
}

func runAlertCheck(ctx context.Context, c *apiClient) error {
	var out alert.Outcome
	if err := c.postJSON(ctx, "/v1/alerts/check", nil, &out); err != nil {
		return err
	}
	if !out.Triggered {
		printSuccess("No alert: %d negative lines since the last alert", out.Count.Negatives)
		return nil
	}
	status := ""
	if out.Record != nil {
		status = out.Record.Status
	}
	switch status {
	case alert.StatusSent:
		printWarning("Guardian alerted: %d negative lines", out.Count.Negatives)
	case alert.StatusFailed:
		printError("Alert triggered (%d negative lines) but delivery failed", out.Count.Negatives)
	default:
		printWarning("Alert triggered (%d negative lines), status %s", out.Count.Negatives, status)
	}
	return nil
}

func runAlertLog(ctx context.Context, c *apiClient, w io.Writer, limit int) error {
	var recs []storage.AlertRecord
	if err := c.getJSON(ctx, fmt.Sprintf("/v1/alerts?limit=%d", limit), &recs); err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, "No alerts recorded.")
		return nil
	}
	for _, r := range recs {
		fmt.Fprintf(w, "%s  %s  %-9s  %d negatives\n",
			colorize(colorCyan, shortID(r.ID)),
			r.Date.Local().Format("2006-01-02 15:04"),
			r.Status,
			r.NegativeCount,
		)
		for _, line := range r.ReasonLines {
			fmt.Fprintf(w, "    %s\n", truncate(line, 80))
		}
	}
	return nil
}

// --- flush ---

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Write buffered mood history to the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var result map[string]string
		if err := client.postJSON(cmd.Context(), "/v1/history/flush", nil, &result); err != nil {
			return err
		}
		printSuccess("History flushed")
		return nil
	},
}

// --- concerns ---

var concernsCmd = &cobra.Command{
	Use:   "concerns",
	Short: "List concerning patterns logged for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runConcerns(cmd.Context(), client, os.Stdout, limit)
	},
}

func init() {
	concernsCmd.Flags().Int("limit", 20, "maximum number of entries to list")
}

func runConcerns(ctx context.Context, c *apiClient, w io.Writer, limit int) error {
	var entries []storage.ConcernEntry
	if err := c.getJSON(ctx, fmt.Sprintf("/v1/concerns?limit=%d", limit), &entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No concerning patterns logged.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "\n%s %s  %s -> %s\n",
			colorize(colorBold, e.Timestamp.Local().Format("2006-01-02 15:04")),
			colorize(colorYellow, strings.Join(e.Flags, ",")),
			formatScore(e.RawScore),
			formatScore(e.AdjustedScore),
		)
		fmt.Fprintf(w, "  %s\n", truncate(e.Sample, 200))
		if e.Explanation != "" {
			fmt.Fprintf(w, "  %s\n", e.Explanation)
		}
	}
	return nil
}

// --- cache ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage scoring caches",
}

var cacheResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop cached scores and restart incremental analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var result map[string]string
		if err := client.postJSON(cmd.Context(), "/v1/cache/reset", nil, &result); err != nil {
			return err
		}
		printSuccess("Caches reset")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheResetCmd)
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Append a journal file to the utterance log",
	Long: `Append the text of a journal file to the utterance log so it is scored
with the rest of the session. Supported formats: .txt, .log, .md, .pdf, .html.

Examples:
  sentiguard import --file ./journal-2025.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			return fmt.Errorf("--file is required")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		n, err := capture.Import(capture.NewLog(cfg.Capture.LogPath), file)
		if err != nil {
			return err
		}
		printSuccess("Imported %d lines into %s", n, cfg.Capture.LogPath)
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "", "journal file to import")
}

// --- data ---

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Export or purge stored data",
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export mood history and the alert log as JSONL",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		mon, closeFn, err := openLocalMonitor(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		w := io.Writer(os.Stdout)
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		n, err := mon.Export(w)
		if err != nil {
			return err
		}
		if output != "" {
			printSuccess("Exported %d records to %s", n, output)
		}
		return nil
	},
}

var dataPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete mood history, alerts, concerning log and circadian profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL stored data. Use --confirm to proceed.")
			return nil
		}

		mon, closeFn, err := openLocalMonitor(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		printStep("Purging stored data...")
		if err := mon.Purge(); err != nil {
			return err
		}
		printSuccess("All data purged")
		return nil
	},
}

func init() {
	dataExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	dataPurgeCmd.Flags().Bool("confirm", false, "confirm data purge")
	dataCmd.AddCommand(dataExportCmd, dataPurgeCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		printStatus("Stored in", "%s", config.Location())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored value so the default applies again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
