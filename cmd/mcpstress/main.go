// Command mcpstress is the thin, mechanical CLI wrapper around the
// internal/engine core: it parses flags into a WorkloadProfile/RunOptions,
// calls into the core, and formats the result. Grounded on
// cmd/worker/main.go's flag-parsing-then-dispatch shape, generalized to
// cobra's subcommand tree the way oisee-odata_mcp_go's cmd/odata-mcp/main.go
// wires cobra+viper together, since this program's subcommand surface
// (run/chart/compare/aggregate/diagnose/discover/history/profiles/shapes)
// is exactly the shape cobra is for.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mcpstress",
		Short:         "MCP protocol stress-testing driver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRunCmd(),
		newChartCmd(),
		newCompareCmd(),
		newAggregateCmd(),
		newDiagnoseCmd(),
		newDiscoverCmd(),
		newHistoryCmd(),
		newProfilesCmd(),
		newShapesCmd(),
	)
	return root
}

// exitCode is attached to errors that need a specific non-zero exit code per
// spec.md's CLI-surface contract table; a bare error defaults to 1.
type exitCode struct {
	err  error
	code int
}

func (e *exitCode) Error() string { return e.err.Error() }
func (e *exitCode) Unwrap() error { return e.err }

func withExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &exitCode{err: err, code: code}
}

func exitCodeFor(err error) int {
	var ec *exitCode
	for e := err; e != nil; {
		if c, ok := e.(*exitCode); ok {
			ec = c
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if ec != nil {
		return ec.code
	}
	return 1
}
