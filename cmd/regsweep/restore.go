package main

import (
	"github.com/spf13/cobra"
)

var restoreYes bool

func init() {
	cmd := newRestoreCmd()
	cmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(cmd)
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Write a stored backup back into the registry",
		Long: `The restore command replays a backup created by a previous clean.
The backup id may be abbreviated as long as it stays unambiguous.

Example:
  regsweep backups
  regsweep restore 3f2a`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			rec, err := e.backups.Find(args[0])
			if err != nil {
				return err
			}
			printInfo("Restoring backup %s (%s, %d key(s))\n",
				rec.ID, rec.CreatedAt.Local().Format("2006-01-02 15:04:05"), rec.KeyCount)
			if !restoreYes && !confirm("Proceed?") {
				printInfo("Aborted.\n")
				return nil
			}
			if err := e.backups.Restore(rec.ID); err != nil {
				return err
			}
			printInfo("Restore complete.\n")
			return nil
		},
	}
}
