package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/lawparse/internal/model"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	cfgFile      string
	patternsFile string
	verbose      bool
	logger       = slog.Default()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lawparse",
	Short: "lawparse - structural parser for statute documents",
	Long: `lawparse reconstructs the structure of statutes from web pages, Word
files and plain text.

Each document is normalized (tables of contents and announcement pages are
removed), its enactment and amendment clauses are read, the preamble is
separated, and the body is folded into chapters, sections and articles.
Records are written as JSON and Markdown and can be kept in a SQLite store.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lawparse v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.lawparse/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&patternsFile, "patterns", "", "YAML file with a marker pattern set (overrides the config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".lawparse"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// LAWPARSE_HTTP_TIMEOUT overrides http.timeout
	viper.SetEnvPrefix("LAWPARSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	} else if err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
	}
}

// setDefaults registers every default so that environment variables can
// override keys absent from the config file.
func setDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return err
	}
	for key, value := range m {
		viper.SetDefault(key, value)
	}
	return nil
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose || viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadConfig returns the effective configuration: defaults, then the config
// file and environment, then the pattern file.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if patternsFile != "" {
		p, err := loadPatterns(patternsFile)
		if err != nil {
			return nil, err
		}
		cfg.Patterns = p
	}
	return cfg, nil
}

// loadPatterns reads a pattern set. Fields left out of the file keep their
// default values.
func loadPatterns(path string) (model.Patterns, error) {
	p := model.DefaultPatterns()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read patterns: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse patterns %s: %w", path, err)
	}
	return p, nil
}
