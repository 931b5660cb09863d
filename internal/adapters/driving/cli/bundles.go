package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

var (
	showJSON  bool
	listLimit int
	listJSON  bool
)

var showCmd = &cobra.Command{
	Use:   "show [analysis-id]",
	Short: "Show a stored analysis",
	Long: `Show a stored analysis by its id (TICKER_period, e.g. ACME_Q3-2025).
Run 'tldr list' to see stored analyses.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyses",
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [analysis-id]",
	Short: "Delete a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output the bundle as JSON")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum number of analyses")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if bundleService == nil {
		return errors.New("bundle service not configured")
	}

	bundle, err := bundleService.Get(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no analysis with id %q", args[0])
		}
		return fmt.Errorf("failed to get analysis: %w", err)
	}

	return writeBundle(cmd, bundle, showJSON)
}

func runList(cmd *cobra.Command, _ []string) error {
	if bundleService == nil {
		return errors.New("bundle service not configured")
	}

	bundles, err := bundleService.List(cmd.Context(), listLimit)
	if err != nil {
		return fmt.Errorf("failed to list analyses: %w", err)
	}

	if listJSON {
		summaries := make([]bundleSummary, len(bundles))
		for i := range bundles {
			summaries[i] = summarise(&bundles[i])
		}
		return printJSON(cmd, summaries)
	}

	if len(bundles) == 0 {
		cmd.Println("No analyses stored.")
		return nil
	}

	for i := range bundles {
		s := summarise(&bundles[i])
		line := fmt.Sprintf("  %-24s %-9s %s", s.ID, s.State, s.CreatedAt)
		if len(s.FailedTiers) > 0 {
			line += "  failed: " + strings.Join(s.FailedTiers, ",")
		}
		cmd.Println(line)
	}
	cmd.Printf("\nTotal: %d analyses\n", len(bundles))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if bundleService == nil {
		return errors.New("bundle service not configured")
	}

	if err := bundleService.Delete(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no analysis with id %q", args[0])
		}
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	cmd.Printf("Deleted analysis: %s\n", args[0])
	return nil
}

// bundleSummary is one row of the list output.
type bundleSummary struct {
	ID          string   `json:"id"`
	Ticker      string   `json:"ticker"`
	Period      string   `json:"period"`
	State       string   `json:"state"`
	FailedTiers []string `json:"failed_tiers,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

func summarise(b *domain.AnalysisBundle) bundleSummary {
	s := bundleSummary{
		ID:        b.ID,
		Ticker:    b.Ticker,
		Period:    b.Period,
		State:     string(b.State),
		CreatedAt: b.CreatedAt.Local().Format("2006-01-02 15:04"),
	}
	for _, t := range b.FailedTiers() {
		s.FailedTiers = append(s.FailedTiers, string(t))
	}
	return s
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
