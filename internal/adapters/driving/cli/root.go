// Package cli provides the tldr command-line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/mcp"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driving"
	"github.com/custodia-labs/earnings-tldr/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	analysisService driving.AnalysisService
	analysisErr     error
	bundleService   driving.BundleService
	settingsService driving.SettingsService
	promptWatcher   mcp.PromptWatcher
	contractsPath   string
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tldr",
	Short: "Earnings-call transcripts, explained",
	Long: `tldr analyses an earnings-call transcript in three tiers:

  A  why the stock moved, as cited findings
  B  a plain-language summary
  C  an expert digest of revenue, margins, guidance and risk

Every claim cites the transcript passages it was drawn from.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output to stderr")
}

// Services holds the driving ports the commands run against.
type Services struct {
	// Analysis runs analyses. Nil when it could not be built; AnalysisErr says why.
	Analysis    driving.AnalysisService
	AnalysisErr error

	Bundles  driving.BundleService
	Settings driving.SettingsService

	// Prompts is watched by the MCP server. Optional.
	Prompts mcp.PromptWatcher

	// ContractsPath is the tier contract overrides file.
	ContractsPath string
}

// SetServices sets the services used by all commands.
func SetServices(s Services) {
	analysisService = s.Analysis
	analysisErr = s.AnalysisErr
	bundleService = s.Bundles
	settingsService = s.Settings
	promptWatcher = s.Prompts
	contractsPath = s.ContractsPath
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// requireAnalysis returns the analysis service or the reason it is missing.
func requireAnalysis() (driving.AnalysisService, error) {
	if analysisService != nil {
		return analysisService, nil
	}
	if analysisErr != nil {
		return nil, analysisErr
	}
	return nil, errors.New("analysis service not configured")
}
