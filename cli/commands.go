package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/awakeconnect/awake/apperr"
	"github.com/awakeconnect/awake/report"
	"github.com/awakeconnect/awake/store"
	"github.com/awakeconnect/awake/testenv"
	"github.com/spf13/cobra"
)

const migrateTimeout = 30 * time.Second

var countsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Print the users and applications counts",
	Long: `Print the number of user accounts and sponsorship applications.

A database failure is reported on stderr as "Error: <message>" and the
command still exits 0.`,
	Args: cobra.NoArgs,
	RunE: runCounts,
}

var authCheckCmd = &cobra.Command{
	Use:   "auth-check",
	Short: "Verify JWT_SECRET is usable by the auth middleware",
	Args:  cobra.NoArgs,
	RunE:  runAuthCheck,
}

var statsCmd = &cobra.Command{
	Use:   "stats [collection...]",
	Short: "Print the count of every collection, or only the ones named",
	Args:  cobra.ArbitraryArgs,
	RunE:  runStats,
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List user accounts with their roles",
	Args:  cobra.NoArgs,
	RunE:  runUsers,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

var envCheckCmd = &cobra.Command{
	Use:   "env-check [path]",
	Short: "Load a test env file and list the keys it defines",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEnvCheck,
}

func openStore() (*store.Store, error) {
	db, err := store.OpenFromConfig(awakeConfig.DatabaseURL, awakeConfig.DatabasePath, awakeConfig.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	return store.New(db), nil
}

func runCounts(cmd *cobra.Command, _ []string) error {
	open := func(context.Context) (report.CountSource, error) {
		s, err := openStore()
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	report.Counts(cmd.Context(), open, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return nil
}

func runAuthCheck(cmd *cobra.Command, _ []string) error {
	// config.Load has already applied the env file to the process environment
	if code := report.AuthCheck(os.Getenv, cmd.OutOrStdout(), cmd.ErrOrStderr()); code != 0 {
		return exitError{code: code}
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	collections := make([]store.Collection, 0, len(args))
	for _, arg := range args {
		c, err := store.ParseCollection(arg)
		if err != nil {
			return apperr.Wrap(err, apperr.ErrUsage, apperr.Message(err))
		}
		collections = append(collections, c)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	if len(collections) == 0 {
		return report.Stats(cmd.Context(), s, cmd.OutOrStdout())
	}
	return report.Collections(cmd.Context(), s, collections, cmd.OutOrStdout())
}

func runUsers(cmd *cobra.Command, _ []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	return report.Users(cmd.Context(), s, cmd.OutOrStdout())
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
	defer cancel()
	if err := store.Migrate(ctx, s.DB); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migrations applied (%s)\n", s.DB.Driver)
	return nil
}

func runEnvCheck(cmd *cobra.Command, args []string) error {
	path := testenv.DefaultPath
	if len(args) == 1 {
		path = args[0]
	}
	testenv.SetLogger(logrusLogger)
	if err := testenv.Setup(path); err != nil {
		return err
	}
	keys, err := testenv.Keys(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Test environment %s (%d keys)\n", path, len(keys))
	for _, k := range keys {
		fmt.Fprintf(out, "   %s\n", k)
	}
	fmt.Fprintf(out, "Started at %s\n", testenv.StartTime().Format(time.RFC3339Nano))
	return nil
}
