package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/earnings-tldr/internal/adapters/driven/config/file"
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"settings"},
	Short:   "Manage configuration",
	Long: `View and configure AI providers, the index cache, pipeline tuning and
tier contracts.

Settings are stored in ~/.tldr/config.toml (or $TLDR_HOME/config.toml).
API keys may also come from OPENAI_API_KEY, ANTHROPIC_API_KEY or
GEMINI_API_KEY, including from a .env file in the working directory.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the embedding and LLM providers.`,
	RunE:  runConfigWizard,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to index transcripts.`,
	RunE:  runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used to generate the analysis tiers.`,
	RunE:  runConfigLLM,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a single configuration value by dot key.

Values are stored as integers, floats or booleans when they parse as one,
as a list when they contain commas, and as strings otherwise.

Examples:
  tldr config set pipeline.max_chunk_size 1500
  tldr config set pipeline.confidence_threshold 0.6
  tldr config set pipeline.generate_timeout 90s
  tldr config set pipeline.processors chunker,speaker,section
  tldr config set cache.backend redis`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and provider connectivity",
	RunE:  runConfigCheck,
}

var configContractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Show the tier contracts in effect",
	Long: `Show the tier contracts in effect: retrieval queries, top-K, output
limits and citation rules per tier. Overrides live in contracts.yaml.`,
	RunE: runConfigContracts,
}

var configContractsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default tier contracts to contracts.yaml for editing",
	RunE:  runConfigContractsInit,
}

var contractsForce bool

func init() {
	configContractsInitCmd.Flags().BoolVarP(&contractsForce, "force", "f", false, "overwrite an existing file")
	configContractsCmd.AddCommand(configContractsInitCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configWizardCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configContractsCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider == domain.AIProviderOllama {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayAPIKey(settings.Embedding.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider == domain.AIProviderOllama {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayAPIKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Cache]")
	cmd.Printf("  Backend: %s\n", settings.Cache.Backend)
	if settings.Cache.Backend != domain.CacheNone {
		cmd.Printf("  TTL: %s\n", settings.Cache.TTL)
	}
	switch settings.Cache.Backend {
	case domain.CacheMemory:
		cmd.Printf("  Capacity: %d\n", settings.Cache.Capacity)
	case domain.CacheRedis:
		cmd.Printf("  Redis: %s (db %d)\n", settings.Cache.RedisAddr, settings.Cache.RedisDB)
	}
	cmd.Println()

	p := settings.Pipeline
	cmd.Println("[Pipeline]")
	cmd.Printf("  Chunk size: %d-%d (overlap %d)\n", p.MinChunkSize, p.MaxChunkSize, p.ChunkOverlap)
	cmd.Printf("  Processors: %s\n", strings.Join(p.Processors, ", "))
	cmd.Printf("  Embedding: %d concurrent, %s timeout, %d attempts\n",
		p.EmbedConcurrency, p.EmbedTimeout, p.EmbedRetry.MaxAttempts)
	cmd.Printf("  Generation: %s timeout, %d attempts\n", p.GenerateTimeout, p.GenerateRetry.MaxAttempts)
	cmd.Printf("  Confidence threshold: %.2f\n", p.ConfidenceThreshold)
	if p.RateLimitPerMinute > 0 {
		cmd.Printf("  Rate limit: %d calls/min\n", p.RateLimitPerMinute)
	} else {
		cmd.Printf("  Rate limit: off\n")
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'tldr config wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runConfigWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("tldr Setup Wizard")
	cmd.Println("=================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	cmd.Println("Embeddings rank transcript passages for each tier. TF-IDF runs offline.")
	cmd.Println()
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 2: Configure LLM Provider")
	cmd.Println("------------------------------")
	cmd.Println("The LLM writes the findings, summary and metrics.")
	cmd.Println()
	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := strings.TrimSpace(args[0])
	if key == "" || strings.HasPrefix(key, ".") || strings.HasSuffix(key, ".") {
		return fmt.Errorf("%w: invalid key %q", domain.ErrInvalidInput, args[0])
	}

	value := parseConfigValue(args[1])
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	cmd.Printf("Set %s = %v\n", key, value)
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	}
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	var failed bool
	check := func(name string, fn func() error) {
		cmd.Printf("%-12s ", name+":")
		if err := fn(); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			failed = true
			return
		}
		cmd.Println("OK")
	}

	check("Settings", settingsService.Validate)
	check("Embedding", settingsService.ValidateEmbeddingConfig)
	check("LLM", settingsService.ValidateLLMConfig)
	check("Contracts", func() error {
		_, err := loadContracts()
		return err
	})

	if failed {
		return errors.New("configuration check failed")
	}
	return nil
}

func runConfigContracts(cmd *cobra.Command, _ []string) error {
	contracts, err := loadContracts()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(contracts)
	if err != nil {
		return fmt.Errorf("failed to encode contracts: %w", err)
	}

	if contractsPath != "" {
		cmd.Printf("# %s\n", contractsPath)
	}
	cmd.Print(string(data))
	return nil
}

func runConfigContractsInit(cmd *cobra.Command, _ []string) error {
	if contractsPath == "" {
		return errors.New("contracts path not configured")
	}

	if _, err := os.Stat(contractsPath); err == nil && !contractsForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", contractsPath)
	}

	if err := file.SaveContracts(contractsPath, domain.DefaultContracts()); err != nil {
		return err
	}

	cmd.Printf("Wrote default contracts to %s\n", contractsPath)
	return nil
}

// loadContracts reads the contracts in effect and validates them.
func loadContracts() (domain.Contracts, error) {
	if contractsPath == "" {
		return domain.DefaultContracts(), nil
	}
	contracts, err := file.LoadContracts(contractsPath)
	if err != nil {
		return contracts, err
	}
	if err := services.ValidateContracts(contracts); err != nil {
		return contracts, err
	}
	return contracts, nil
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(reader *bufio.Reader) string {
	// Try to read password without echo
	if isTerminal(os.Stdin.Fd()) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

// parseConfigValue converts a command-line value to the type stored in the config file.
func parseConfigValue(raw string) any {
	raw = strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		return list
	}
	return raw
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func displayAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
