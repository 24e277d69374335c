package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all subcommands.
type GlobalFlags struct {
	ConfigPath string
	Dir        string
	Index      string
	Verbose    bool
}

// ListFlags holds flags for the list command.
type ListFlags struct {
	Status string
	JSON   bool
}

// RecentFlags holds flags for the recent command.
type RecentFlags struct {
	Limit int
	JSON  bool
}

// CleanupFlags holds flags for the cleanup command.
type CleanupFlags struct {
	MaxAge time.Duration
	DryRun bool
}

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	Addr     string
	BasePath string
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	listFlags := &ListFlags{}
	recentFlags := &RecentFlags{}
	cleanupFlags := &CleanupFlags{}
	serveFlags := &ServeFlags{}

	c := command{flags: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createRunCommand(c),
		createStatusCommand(c),
		createListCommand(c, listFlags),
		createRecentCommand(c, recentFlags),
		createStatsCommand(c),
		createCleanupCommand(c, cleanupFlags),
		createDeleteCommand(c),
		createClearCommand(c),
		createVerifyCommand(c),
		createServeCommand(c, serveFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "cmdtrack",
		Short: "Track shell command executions",
		Long: `Cmdtrack runs shell commands while recording their lifecycle in a
flat-file database, and answers questions about past and running executions.

Examples:
  cmdtrack run -- "make test"
  cmdtrack status 2f2e8a6c-…
  cmdtrack recent -n 10
  cmdtrack cleanup --dry-run`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.Dir, "dir", "", "data directory (default $START_APP_FOLDER or ~/.start-command)")
	root.PersistentFlags().StringVar(&flags.Index, "index", "", "secondary index backend: auto, clink, sqlite, off")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	return root
}

func createRunCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "run -- <command>",
		Short: "Run a shell command and track its execution",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(args)
		},
	}
}

func createStatusCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "status <uuid>",
		Short: "Show one execution record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(args[0])
		},
	}
}

func createListCommand(c command, flags *ListFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List execution records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.List(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Status, "status", "", "filter by status: executing or executed")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print records as JSON")
	return cmd
}

func createRecentCommand(c command, flags *RecentFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recently started executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Recent(*flags)
		},
	}
	cmd.Flags().IntVarP(&flags.Limit, "limit", "n", 10, "number of records")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print records as JSON")
	return cmd
}

func createStatsCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate execution statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.StatsCmd()
		},
	}
}

func createCleanupCommand(c command, flags *CleanupFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Reclassify stale executing records as executed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Cleanup(*flags)
		},
	}
	cmd.Flags().DurationVar(&flags.MaxAge, "max-age", 24*time.Hour, "age past which an executing record is stale")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "report candidates without mutating records")
	return cmd
}

func createDeleteCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uuid>",
		Short: "Delete one execution record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Delete(args[0])
		},
	}
}

func createClearCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all execution records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Clear()
		},
	}
}

func createVerifyCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check primary database and secondary index agreement",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Verify()
		},
	}
}

func createServeCommand(c command, flags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only HTTP API over the execution store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Serve(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&flags.BasePath, "base-path", "", "path prefix for all endpoints")
	return cmd
}
