package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newBackupsCmd())
}

func newBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List the stored pre-clean backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			records, err := e.backups.List()
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(records)
			}
			if len(records) == 0 {
				printInfo("No backups found in %s.\n", e.cfg.Backup.Dir)
				return nil
			}
			for _, rec := range records {
				printInfo("%s  %s  %d key(s), %d value(s)  %s\n",
					rec.ID, rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					rec.KeyCount, rec.ValueCount, rec.Description)
			}
			return nil
		},
	}
}
