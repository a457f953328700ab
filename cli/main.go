package main

import (
	"errors"
	"fmt"
	"os"

	gateway "github.com/awakeconnect/awake/apigateway"
	"github.com/awakeconnect/awake/apperr"
	"github.com/awakeconnect/awake/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var awakeConfig config.Config
var logrusLogger = logrus.New()
var logSampling gateway.LogSamplingConfig

var (
	configPath string
	envFile    string
	debugFlag  bool
)

// exitError carries an exit code for a command that already reported its failure.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

var rootCmd = &cobra.Command{
	Use:   "awake",
	Short: "Operator tooling and HTTP API for the awake sponsorship platform",
	Long: `awake reports on and serves the sponsorship database.

Available subcommands:
  counts     - Print the users and applications counts
  auth-check - Verify the JWT secret the auth middleware needs
  stats      - Print the count of every collection
  users      - List user accounts
  migrate    - Apply database migrations
  serve      - Run the HTTP API
  env-check  - Load a test env file and report what it set`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ./config.yaml or ../config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before reading the environment (default .env)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperr.Wrap(err, apperr.ErrUsage, err.Error())
	})

	rootCmd.AddCommand(countsCmd, authCheckCmd, statsCmd, usersCmd, migrateCmd, serveCmd, envCheckCmd)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.Options{ConfigPath: configPath, EnvFile: envFile})
	if err != nil {
		return err
	}
	if debugFlag {
		cfg.IsDebug = true
	}
	awakeConfig = cfg
	configureLogger(awakeConfig, cmd.ErrOrStderr())
	logrusLogger.WithField("command", cmd.Name()).Debug("config loaded")
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return apperr.ExitOK
	}
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", apperr.Message(err))
	return apperr.ExitCode(err)
}
