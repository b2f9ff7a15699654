// Package main provides the swellmap command line: the sync server and
// one-shot region queries.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/swellmap/swellmap/internal/config"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "swellmap"

var (
	envFile     string
	logLevelInt int

	cfg config.Config
	log zerolog.Logger

	rootCmd = &cobra.Command{
		Use:           serviceName,
		Short:         "Surf spot sync engine.",
		Long:          `swellmap keeps a local store of surf spots in step with Surfline, fetching regions as the map moves and reports as spots are viewed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func init() {
	log = zerolog.New(os.Stderr).With().Timestamp().Logger()

	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "The env file to read.")
	rootCmd.PersistentFlags().IntVar(&logLevelInt, "log", int(zerolog.InfoLevel), "The logging level to use.")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(regionCmd)
}

func initConfig() error {
	log = zerolog.New(os.Stdout).
		Level(zerolog.Level(logLevelInt)).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	var err error
	cfg, err = config.Load(envFile)
	return err
}
