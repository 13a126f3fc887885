// Package main provides the vibe-oncokb command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-oncokb/internal/alteration"
	"github.com/inodb/vibe-oncokb/internal/cache"
	"github.com/inodb/vibe-oncokb/internal/genomenexus"
	"github.com/inodb/vibe-oncokb/internal/server"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "vibe-oncokb",
		Short: "Alteration knowledge base: notation parsing, relevance and oncogenicity",
		Long: `vibe-oncokb parses protein alteration notation, relates query alterations
to a curated catalog and derives their oncogenicity. The catalog lives in a
DuckDB file populated with "vibe-oncokb load" and is served by "vibe-oncokb serve".`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cfgFile)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ~/.vibe-oncokb.yaml)")
	flags.String("db", "", "Catalog DuckDB file (default: ~/.vibe-oncokb/catalog.duckdb)")
	flags.String("reference-genome", alteration.DefaultReferenceGenome.String(), "Reference genome: GRCh37 or GRCh38")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	viper.BindPFlag("db", flags.Lookup("db"))
	viper.BindPFlag("reference_genome", flags.Lookup("reference-genome"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))

	cmd.AddCommand(newAnnotateCmd())
	cmd.AddCommand(newLoadCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

// initConfig reads the config file and environment. A missing default
// config file is not an error.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".vibe-oncokb")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VIBE_ONCOKB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.siblings", []string{})
	viper.SetDefault("cache.notify_timeout", cache.DefaultNotifyTimeout)
	viper.SetDefault("genomenexus.enabled", true)
	viper.SetDefault("genomenexus.grch37_url", genomenexus.DefaultGRCh37URL)
	viper.SetDefault("genomenexus.grch38_url", genomenexus.DefaultGRCh38URL)
	viper.SetDefault("genomenexus.timeout", genomenexus.DefaultTimeout)
	viper.SetDefault("server.addr", server.DefaultAddr)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 60*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// newLogger builds the process logger. Both zap presets write to stderr,
// leaving stdout to command output.
func newLogger() (*zap.Logger, error) {
	if viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// referenceGenome returns the configured default build.
func referenceGenome() (alteration.ReferenceGenome, error) {
	s := viper.GetString("reference_genome")
	if s == "" {
		return alteration.DefaultReferenceGenome, nil
	}
	g, ok := alteration.ParseReferenceGenome(s)
	if !ok {
		return 0, fmt.Errorf("unknown reference genome %q", s)
	}
	return g, nil
}

// dataDir returns ~/.vibe-oncokb.
func dataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".vibe-oncokb"), nil
}

// dbPath returns the configured catalog path.
func dbPath() (string, error) {
	if p := viper.GetString("db"); p != "" {
		return p, nil
	}
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "catalog.duckdb"), nil
}
