package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use: "scenrunner",
	Short: "Scenrunner coordinates the execution of autonomous-driving " +
		"test scenarios.",
	Long: `Scenrunner coordinates the execution of a single ` +
		`autonomous-driving test scenario inside an external simulator: it ` +
		`starts the scenario, ticks the simulated world and the driving ` +
		`agent in lockstep, detects stalls via watchdogs, and reports ` +
		`pass/fail results.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// A .env file may carry the same settings as the environment.
	_ = godotenv.Load()

	viper.SetDefault("timeout", 20.0)
	viper.SetDefault("debug", false)
	viper.SetDefault("record.enabled", true)
	viper.SetDefault("record.path", "")
	viper.SetDefault("monitor.enabled", false)
	viper.SetDefault("monitor.port", 0)
	viper.SetDefault("monitor.open", false)

	viper.SetEnvPrefix("scenrun")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
