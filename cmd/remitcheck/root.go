package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gyeh/remitcheck/internal/config"
	"github.com/gyeh/remitcheck/internal/exitcode"
	"github.com/gyeh/remitcheck/internal/logging"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:           "remitcheck",
	Short:         "X12 835 remittance parity checker",
	Long:          "Reconstructs claim lines from X12 835 remittances and flags payments below the payer's mandated allowed amount.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.SetDefaults(v)

	pf := rootCmd.PersistentFlags()
	pf.String("dsn", "", "Postgres connection string for rate tables (or set REMITCHECK_DSN / DATABASE_URL)")
	pf.String("config", "", "YAML file with date qualifiers, payer aliases and profiles")
	pf.String("env-file", "", "Read environment variables from this file (default: ./.env when present)")
	pf.String("log-format", "text", "Log format: text or json")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	_ = v.BindPFlags(pf)
}

// loadConfig binds the running command's flags and returns the merged
// configuration and a logger. Invalid configuration exits with UsageError.
func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger) {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		fail(zerolog.Nop(), exitcode.UsageError, err, "bind flags")
	}
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadEnvFile(envFile); err != nil {
		fail(zerolog.Nop(), exitcode.UsageError, err, "env file")
	}
	c, err := config.Load(v)
	log := logging.Setup(v.GetString("log-format"), v.GetString("log-level"))
	if err != nil {
		fail(log, exitcode.UsageError, err, "config load failed")
	}
	return c, log
}

// fail logs err and exits with code.
func fail(log zerolog.Logger, code int, err error, msg string) {
	if log.GetLevel() == zerolog.Disabled {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		log.Error().Err(err).Msg(msg)
	}
	os.Exit(code)
}
