package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bc-dunia/mcpstress/internal/config"
)

// runNamePattern matches spec.md's "names restricted to [A-Za-z0-9_-]+" for
// the named-run library.
var runNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [list | rm NAME]",
		Short: "Inspect the named-run library at $HOME/.mcp-stress/runs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return historyList()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm NAME",
		Short: "Remove a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return historyRemove(args[0])
		},
	})
	return cmd
}

func runsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, config.RunsDirName), nil
}

func historyList() error {
	dir, err := runsDir()
	if err != nil {
		return withExitCode(err, 1)
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return withExitCode(fmt.Errorf("reading run library: %w", err), 1)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".ndjson") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".ndjson"))
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func historyRemove(name string) error {
	if !runNamePattern.MatchString(name) {
		return withExitCode(fmt.Errorf("invalid run name %q: must match [A-Za-z0-9_-]+", name), 1)
	}
	dir, err := runsDir()
	if err != nil {
		return withExitCode(err, 1)
	}
	path := filepath.Join(dir, name+".ndjson")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return withExitCode(fmt.Errorf("no saved run named %q", name), 1)
	}
	if err := os.Remove(path); err != nil {
		return withExitCode(fmt.Errorf("removing run: %w", err), 1)
	}
	fmt.Printf("removed %s\n", name)
	return nil
}
