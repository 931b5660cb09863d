package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/views/report"
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driving"
)

var (
	analyzeTicker     string
	analyzePeriod     string
	analyzeFormat     string
	analyzeAfterHours float64
	analyzeNextDay    float64
	analyzeJSON       bool
	analyzeNoTUI      bool
)

// isTerminal reports whether fd is a terminal. Replaced in tests.
var isTerminal = func(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// errAllTiersFailed is returned when no tier produced a result.
var errAllTiersFailed = errors.New("analysis failed: every tier failed")

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyse an earnings-call transcript",
	Long: `Analyse an earnings-call transcript read from a text file, or from stdin when
the file is "-".

The transcript is chunked, indexed and analysed in three tiers. Pass the
market reaction with --after-hours and --next-day; without it the
"why the stock moved" tier runs in reduced-confidence mode.

On a terminal a live progress view is shown; use --no-tui to disable it.

Examples:
  tldr analyze acme-q3.txt --ticker ACME --period Q3-2025
  tldr analyze acme-q3.txt -t ACME -p Q3-2025 --after-hours -3.2 --next-day -4.1
  pdftotext call.pdf - | tldr analyze - -t ACME -p Q3-2025 --format pdf --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeTicker, "ticker", "t", "", "company stock symbol")
	analyzeCmd.Flags().StringVarP(&analyzePeriod, "period", "p", "", "fiscal period, e.g. Q3-2025")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", string(domain.SourceFormatTXT),
		"format the text was extracted from (txt, pdf, docx)")
	analyzeCmd.Flags().Float64Var(&analyzeAfterHours, "after-hours", 0, "after-hours price move in percent")
	analyzeCmd.Flags().Float64Var(&analyzeNextDay, "next-day", 0, "next-day opening gap in percent")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output the result bundle as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeNoTUI, "no-tui", false, "do not show the interactive progress view")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	service, err := requireAnalysis()
	if err != nil {
		return err
	}

	req, err := buildAnalysisRequest(cmd, args[0])
	if err != nil {
		return err
	}

	var bundle *domain.AnalysisBundle
	if useTUI(cmd) {
		bundle, err = tui.Run(cmd.Context(), &tui.Ports{Analysis: service}, req, tea.WithAltScreen())
	} else {
		bundle, err = service.Analyze(cmd.Context(), req)
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := writeBundle(cmd, bundle, analyzeJSON); err != nil {
		return err
	}
	return analysisOutcome(cmd, bundle)
}

// buildAnalysisRequest reads the transcript and maps flags onto a request.
func buildAnalysisRequest(cmd *cobra.Command, path string) (driving.AnalysisRequest, error) {
	format := domain.SourceFormat(strings.ToLower(analyzeFormat))
	if !format.IsValid() {
		return driving.AnalysisRequest{}, fmt.Errorf("%w: unsupported format %q (use txt, pdf or docx)",
			domain.ErrInvalidInput, analyzeFormat)
	}

	text, err := readTranscript(cmd, path)
	if err != nil {
		return driving.AnalysisRequest{}, err
	}

	req := driving.AnalysisRequest{
		Transcript: domain.Transcript{
			Ticker:       analyzeTicker,
			Period:       analyzePeriod,
			Text:         text,
			SourceFormat: format,
			Metadata:     map[string]any{"source": path},
		},
	}

	flags := cmd.Flags()
	if flags.Changed("after-hours") || flags.Changed("next-day") {
		req.Market = &domain.MarketReaction{
			AfterHoursMove: analyzeAfterHours,
			NextDayGap:     analyzeNextDay,
		}
	}

	return req, nil
}

func readTranscript(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}

// useTUI reports whether the interactive progress view should run.
func useTUI(cmd *cobra.Command) bool {
	if analyzeNoTUI || analyzeJSON {
		return false
	}
	out, ok := cmd.OutOrStdout().(*os.File)
	return ok && isTerminal(out.Fd()) && isTerminal(os.Stdin.Fd())
}

// writeBundle prints a bundle as JSON or as a text report.
func writeBundle(cmd *cobra.Command, bundle *domain.AnalysisBundle, asJSON bool) error {
	w := cmd.OutOrStdout()
	if asJSON {
		return printJSON(cmd, bundle)
	}

	s := styles.Plain()
	width := report.DefaultWidth
	if f, ok := w.(*os.File); ok && isTerminal(f.Fd()) {
		s = styles.DefaultStyles()
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			width = cols
		}
	}
	_, err := fmt.Fprintln(w, report.Render(bundle, s, width))
	return err
}

// analysisOutcome warns about failed tiers and fails when none succeeded.
func analysisOutcome(cmd *cobra.Command, bundle *domain.AnalysisBundle) error {
	failed := bundle.FailedTiers()
	switch {
	case len(failed) == len(domain.AllTiers()):
		return errAllTiersFailed
	case len(failed) > 0:
		names := make([]string, len(failed))
		for i, t := range failed {
			names[i] = string(t)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: partial result, failed tiers: %s\n", strings.Join(names, ", "))
	}
	return nil
}
