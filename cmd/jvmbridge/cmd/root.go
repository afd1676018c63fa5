package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/jvm-bridge/attach"
	"github.com/wippyai/jvm-bridge/jni"
	"github.com/wippyai/jvm-bridge/simjvm"
)

var (
	cfgFile      string
	outputFormat string
	backendName  string
	logLevel     string

	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "jvmbridge",
	Short: "Inspect and exercise the JVM bridge",
	Long: `jvmbridge drives the bridge against the simulated runtime or, when built
with -tags jni, against a real JVM. It runs the reference lifetime probe,
watches attachments under load and serves Prometheus metrics.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(viper.GetString("log-level"))
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.jvmbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "sim", "runtime backend: sim or jni")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	for _, name := range []string{"output", "backend", "log-level"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

// initConfig reads the config file and JVMBRIDGE_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(filepath.Join(home, ".jvmbridge"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("jvmbridge")
	viper.AutomaticEnv()
	_ = viper.BindEnv("backend", "JVMBRIDGE_BACKEND")
	_ = viper.BindEnv("log-level", "JVMBRIDGE_LOG_LEVEL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}

func setupLogging(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	log = logger
	jni.SetLogger(logger.Named("jni"))
	attach.SetLogger(logger.Named("attach"))
	simjvm.SetLogger(logger.Named("simjvm"))
	setBackendLogger(logger)
	return nil
}
