// Package cmd implements the CLI commands for gocodecs-demo.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/gocodecs/internal/config"
	"github.com/jmylchreest/gocodecs/internal/observability"
	"github.com/jmylchreest/gocodecs/internal/version"
)

var (
	cfgFile    string
	logLevel   string
	logFormat  string
	appLogger  = observability.NewLogger(config.LoggingConfig{Level: "info", Format: "text"})
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "gocodecs-demo",
	Short:   "Demonstrates the gocodecs WebCodecs-style encode/decode engines",
	Version: version.Short(),
	Long: `gocodecs-demo exercises the gocodecs CodecEngine API: it round-trips
synthetic audio through an AudioEncoder/AudioDecoder pair and reports
isConfigSupported results for a handful of codec strings, using either the
deterministic in-memory backend or a real ffmpeg/ffprobe install.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./gocodecs.yaml, /etc/gocodecs, $HOME/.gocodecs)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	mustBindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("gocodecs")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/gocodecs")
		viper.AddConfigPath("$HOME/.gocodecs")
	}

	viper.SetEnvPrefix("GOCODECS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// initLogging builds the shared logger from the resolved viper settings.
func initLogging() error {
	cfg := config.LoggingConfig{
		Level:  viper.GetString("logging.level"),
		Format: viper.GetString("logging.format"),
	}
	appLogger = observability.NewLogger(cfg)
	observability.SetDefault(appLogger)
	return nil
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding fails.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
