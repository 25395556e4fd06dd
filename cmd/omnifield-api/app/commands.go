// Package app provides the entry point for the OmniField ingestion API application.
package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/logging"
	"github.com/stacklok/omnifield-ingest/internal/versions"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// NewRootCmd creates a new root command for the ingestion API.
// Each call returns an independent command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:               "omnifield-api",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "OmniField data ingestion server",
		Long: `OmniField data ingestion server loads named CSV and Parquet sources into
in-memory tables and serves them, along with the dashboard modules, over HTTP.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return configureLogging(v, cmd.ErrOrStderr())
		},
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("log-format", logging.FormatJSON, "Log format (json or text)")
	mustBind(v, "debug", rootCmd.PersistentFlags().Lookup("debug"))
	mustBind(v, "log-format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(newServeCmd(v))
	rootCmd.AddCommand(newLoadCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", key, err))
	}
}

// configureLogging installs the default slog logger. --debug wins over
// OMNIFIELD_LOG_LEVEL, which wins over LOG_LEVEL.
func configureLogging(v *viper.Viper, out io.Writer) error {
	levelStr := v.GetString("log_level")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	level, levelErr := logging.ParseLevel(levelStr)
	if v.GetBool("debug") {
		level = slog.LevelDebug
	}

	logger, err := logging.New(logging.Options{
		Level:  level,
		Format: v.GetString("log-format"),
		Output: out,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if levelErr != nil {
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to get format flag: %w", err)
			}
			return printVersion(cmd.OutOrStdout(), versions.GetVersionInfo(), format)
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

func printVersion(w io.Writer, info versions.VersionInfo, format string) error {
	switch format {
	case formatJSON:
		output, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format version info as JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(output))
		return err
	case "":
		_, err := fmt.Fprintf(w, "omnifield-api %s (commit %s, built %s, %s, %s)\n",
			info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
