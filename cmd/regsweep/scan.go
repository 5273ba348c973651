package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regsweep/regsweep/pkg/types"
)

var scanCategories []string

func init() {
	cmd := newScanCmd()
	cmd.Flags().StringSliceVar(&scanCategories, "category", nil,
		"Scan only the given categories (e.g. StartupEntry,SharedDll)")
	rootCmd.AddCommand(cmd)
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the registry and report findings without changing anything",
		Long: `The scan command runs every enabled scanner against the live
registry and prints the findings. Nothing is modified.

Example:
  regsweep scan
  regsweep scan --category StartupEntry,SharedDll
  regsweep scan --json > findings.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd)
		},
	}
}

func runScan(cmd *cobra.Command) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	if len(scanCategories) > 0 {
		cats, err := parseCategories(scanCategories)
		if err != nil {
			return err
		}
		e.runner.EnableOnly(cats...)
	}

	issues, err := e.runner.Scan(cmd.Context(), func(scanner, key string, found int) {
		e.log.Debug().Str("scanner", scanner).Str("key", key).Int("found", found).Msg("scanning")
	})
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(issues)
	}
	printIssues(issues)
	return nil
}

func printIssues(issues []types.Issue) {
	if len(issues) == 0 {
		printInfo("No issues found.\n")
		return
	}
	for i, issue := range issues {
		target := issue.KeyPath
		if issue.ValueIssue {
			target += " -> " + displayValueName(issue.ValueName)
		}
		printInfo("%4d. [%-8s] %-14s %s\n", i+1, issue.Severity, issue.Category, issue.Description)
		printInfo("      %s\n", target)
	}
	printInfo("\n%d issue(s) found, %d selected for cleaning by default.\n",
		len(issues), len(types.SelectDefault(issues)))
}

func displayValueName(name string) string {
	if name == "" {
		return "(Default)"
	}
	return name
}

func parseCategories(names []string) ([]types.Category, error) {
	out := make([]types.Category, 0, len(names))
	for _, n := range names {
		c, ok := types.ParseCategory(strings.TrimSpace(n))
		if !ok {
			return nil, fmt.Errorf("unknown category %q", n)
		}
		out = append(out, c)
	}
	return out, nil
}
