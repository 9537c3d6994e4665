// Package cmd provides the CLI commands for repograph.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	rgerrors "github.com/Aman-CERP/repograph/internal/errors"
	"github.com/Aman-CERP/repograph/internal/logging"
	"github.com/Aman-CERP/repograph/internal/profiling"
	"github.com/Aman-CERP/repograph/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()

	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     = profiling.NewProfiler()
	cpuCleanup   func()
	traceCleanup func()
)

// NewRootCmd creates the root command for the repograph CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repograph",
		Short: "Code-graph indexer and retrieval service",
		Long: `repograph chunks a repository with tree-sitter, embeds the chunks,
builds import, relationship, and call graphs, and serves hybrid
search and graph queries over Postgres + pgvector.

Configuration comes from environment variables (DATABASE_URL,
REPO_PATH, REPO_URL, ...) with an optional repograph.yaml overlay.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("repograph version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startLoggingAndProfiling
	cmd.PersistentPostRunE = stopLoggingAndProfiling

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newIncrementalCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLoggingAndProfiling(_ *cobra.Command, _ []string) error {
	cleanup, err := logging.SetupDefault(debugMode)
	if err != nil {
		// Fall back to the default stderr logger rather than refusing
		// to run when the log directory is unwritable.
		slog.Warn("file logging unavailable", "error", err)
	} else {
		loggingCleanup = cleanup
	}

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("start CPU profile: %w", err)
		}
	}
	if profileTrace != "" {
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
			}
			return fmt.Errorf("start trace: %w", err)
		}
	}
	return nil
}

func stopLoggingAndProfiling(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}
	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}
	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("write memory profile: %w", err)
		}
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command. Errors are printed once here because
// the commands silence cobra's own reporting.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprint(os.Stderr, rgerrors.FormatForCLI(err))
		attrs := rgerrors.FormatForLog(err)
		args := make([]any, 0, len(attrs)*2)
		for k, v := range attrs {
			args = append(args, k, v)
		}
		slog.Error("command failed", args...)
	}
	return err
}
