package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwoo-bridge/mwoo/internal/policy"
	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
)

// errChangesFound makes the process exit with 1 without printing an error,
// for --exit-code.
var errChangesFound = errors.New("changes found")

var (
	// persistent flags
	cfgFile          string
	envFile          string
	logLevel         string
	enableDebugMode  bool
	truncateDebugLog bool
)

var rootCmd = &cobra.Command{
	Use:   "mwoo",
	Short: "Structural diff engine and sync planner for catalog records",
	Long: `mwoo compares JSON-shaped records the way a catalog sync needs it: arrays of
records are matched by an identity field, unchanged elements and keys can be
left out, and the result is a change-set that only contains what has to be sent.

On top of the engine it plans which records have to be created or updated
remotely and keeps a ledger of every payload it planned.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var setupLog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
	Timestamp().
	Caller().
	Logger()

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	cobra.OnInitialize(initConfig)

	// global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.mwoo.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Load environment variables from this file, if it exists")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level of the console logger (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&enableDebugMode, "debug", false,
		"Enable debug mode, which will print additional information to the debug.log file")
	rootCmd.PersistentFlags().BoolVar(&truncateDebugLog, "truncate-debug", false,
		"Truncate the debug.log file on startup, if it exists")

	// allow some flags to be set via environment variables / config file
	mustBind("log-level",
		viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))
	mustBind("debug",
		viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))
	mustBind("truncate-debug",
		viper.BindPFlag("truncate-debug", rootCmd.PersistentFlags().Lookup("truncate-debug")))
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		if !errors.Is(err, errChangesFound) {
			setupLog.Error().Err(err).Msg("mwoo failed")
		}
		os.Exit(1)
	}
}

// initConfig reads in the .env file, the config file and ENV variables if set.
func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			setupLog.Warn().Err(err).Msgf("Cannot load env file %s", envFile)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mwoo")
	}

	// plan.snapshot-every is read from MWOO_PLAN_SNAPSHOT_EVERY
	viper.SetEnvPrefix("mwoo")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		setupLog.Debug().Msgf("Using config file: %s", viper.ConfigFileUsed())
	}
}

// setupLogger points log.Logger to debug.log in debug mode. Otherwise it logs
// to the console, or nowhere when a TUI owns the terminal.
// The returned function closes the debug log file.
func setupLogger(interactive bool) (func(), error) {
	if viper.GetBool("debug") {
		fileMode := os.O_CREATE | os.O_WRONLY
		if viper.GetBool("truncate-debug") {
			fileMode |= os.O_TRUNC
		} else {
			fileMode |= os.O_APPEND
		}
		logFile, err := os.OpenFile("debug.log", fileMode, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening debug log file: %w", err)
		}
		log.Logger = zerolog.New(logFile).With().
			Timestamp().
			Caller().
			Logger().
			Level(zerolog.DebugLevel)
		return func() {
			if closeErr := logFile.Close(); closeErr != nil {
				setupLog.Error().Err(closeErr).Msg("Error closing debug log file")
			}
		}, nil
	}

	if interactive {
		// by default, we shouldn't log anything as this would break our TUI.
		log.Logger = zerolog.Nop()
		return func() {}, nil
	}

	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().
		Logger().
		Level(level)
	return func() {}, nil
}

// loadPolicy returns the policy from [policyFile], else the built-in policy of
// [kind], else nil (engine defaults).
func loadPolicy(policyFile, kind string) (deepdiff.Config, error) {
	if policyFile != "" {
		return policy.Load(policyFile)
	}
	if kind == "" {
		return nil, nil
	}
	k, err := policy.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return k.Policy(), nil
}

func mustBind(flagName string, err error) {
	if err != nil {
		log.Fatal().Err(err).Msgf("Failed to bind flag %s", flagName)
	}
}
