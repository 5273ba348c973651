package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/regsweep/regsweep/pkg/types"
)

var (
	cleanCategories []string
	cleanNoBackup   bool
	cleanDryRun     bool
	cleanYes        bool
)

func init() {
	cmd := newCleanCmd()
	cmd.Flags().StringSliceVar(&cleanCategories, "category", nil,
		"Clean only findings from the given categories")
	cmd.Flags().BoolVar(&cleanNoBackup, "no-backup", false, "Skip the pre-clean backup (not recommended)")
	cmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Show what would be cleaned without touching the registry")
	cmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(cmd)
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Scan the registry and remove the selected findings",
		Long: `The clean command scans the registry, selects the findings that
are safe to remove (critical-severity findings are never selected), writes a
.reg backup, and deletes the selected keys and values.

Example:
  regsweep clean
  regsweep clean --category SharedDll --yes
  regsweep clean --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd)
		},
	}
}

func runClean(cmd *cobra.Command) error {
	e, err := buildEnv()
	if err != nil {
		return err
	}
	if len(cleanCategories) > 0 {
		cats, err := parseCategories(cleanCategories)
		if err != nil {
			return err
		}
		e.runner.EnableOnly(cats...)
	}

	issues, err := e.runner.Scan(cmd.Context(), nil)
	if err != nil {
		return err
	}
	selected := types.SelectDefault(issues)
	if len(selected) == 0 {
		printInfo("Nothing to clean.\n")
		return nil
	}

	printIssues(selected)
	if cleanDryRun {
		printInfo("\nDry run: no changes were made.\n")
		return nil
	}
	if !cleanYes && !confirm(fmt.Sprintf("Clean %d item(s)?", len(selected))) {
		printInfo("Aborted.\n")
		return nil
	}

	backupEnabled := e.cfg.Backup.Enabled && !cleanNoBackup
	stats, err := e.cleaner.Clean(cmd.Context(), selected, backupEnabled, func(current, total int, issue types.Issue) {
		e.log.Debug().Int("current", current).Int("total", total).Str("key", issue.KeyPath).Msg("cleaning")
	})
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(stats)
	}
	printStats(stats)
	return nil
}

func printStats(stats types.CleanStats) {
	printInfo("\nCleaned %d of %d item(s) in %s.\n", stats.Cleaned, stats.Selected, stats.Elapsed.Round(time.Millisecond))
	if stats.BackupPath != "" {
		printInfo("Backup written to %s\n", stats.BackupPath)
	}
	if stats.Protected > 0 {
		printInfo("%d item(s) skipped because they are protected.\n", stats.Protected)
	}
	if stats.BackupFailures > 0 {
		printInfo("%d item(s) left untouched because they could not be backed up.\n", stats.BackupFailures)
	}
	if stats.Rebooters > 0 {
		printInfo("%d item(s) scheduled for removal at next reboot.\n", stats.Rebooters)
	}
	for _, res := range stats.Results {
		if res.Outcome == types.OutcomeFailed {
			printInfo("failed: %s: %s\n", res.Issue.KeyPath, res.Reason)
		}
	}
	if stats.FreedEstimate > 0 {
		printInfo("Estimated %d byte(s) reclaimed.\n", stats.FreedEstimate)
	}
}

func confirm(prompt string) bool {
	fmt.Fprintf(os.Stdout, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
