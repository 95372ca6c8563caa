// Package main provides the txmap command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Config keys
const (
	keyRegistry     = "registry"
	keyWorkers      = "workers"
	keyOutputFormat = "output.format"
	keyVerbose      = "verbose"
	keyDataDir      = "data_dir"
)

// usageError marks errors caused by bad invocation rather than bad data.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "txmap",
		Short: "Map genomic positions onto their most prominent transcript",
		Long: `txmap assigns genomic positions (e.g. reverse-transcriptase stop sites) to the
most prominent overlapping GENCODE transcript and reports the position as an
offset into the spliced transcript.`,
		Example: `  # Download GENCODE annotations (one-time setup)
  txmap download --release 40

  # Build the transcript registry
  txmap build ~/.txmap/gencode.v40.primary_assembly.annotation.gff3.gz

  # Map positions
  txmap map test_data.csv -o test_tr_data.csv`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.txmap.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringP("registry", "r", "", "Registry artifact (.gob, .duckdb) or GFF3 annotation")
	viper.BindPFlag(keyVerbose, root.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag(keyRegistry, root.PersistentFlags().Lookup("registry"))

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	root.AddCommand(newBuildCmd())
	root.AddCommand(newMapCmd())
	root.AddCommand(newLookupCmd())
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// initConfig loads ~/.txmap.yaml and TXMAP_* environment variables.
func initConfig(cmd *cobra.Command, cfgFile string) error {
	viper.SetDefault(keyDataDir, defaultDataDir())
	viper.SetDefault(keyRegistry, filepath.Join(defaultDataDir(), "transcripts.gob"))
	viper.SetDefault(keyWorkers, 0)
	viper.SetDefault(keyOutputFormat, "csv")

	viper.SetEnvPrefix("TXMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".txmap")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".txmap"
	}
	return filepath.Join(home, ".txmap")
}

// newLogger builds the console logger used by all commands.
func newLogger() *zap.Logger {
	level := zapcore.InfoLevel
	if viper.GetBool(keyVerbose) {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}
