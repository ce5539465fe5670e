package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/netseek/netseek/internal/backup"
	"github.com/netseek/netseek/internal/config"
)

var (
	backupOutput string
	restoreInput string
	restoreDir   string
	restoreForce bool
)

func init() {
	backupCmd.Flags().StringVar(&backupOutput, "output", "", "output file path (default: netseek-backup-{timestamp}.tar.gz)")
	restoreCmd.Flags().StringVar(&restoreInput, "input", "", "backup archive to restore (required)")
	restoreCmd.Flags().StringVar(&restoreDir, "data-dir", ".", "target directory for restored files")
	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "overwrite existing files")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive the NetSeek database and config",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		output := backupOutput
		if output == "" {
			output = fmt.Sprintf("netseek-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
		}

		if err := backup.Backup(cmd.Context(), cfg.GetString("store.path"), configPath, output); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		fmt.Printf("Backup created: %s\n", output)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a NetSeek backup archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		if restoreInput == "" {
			return errors.New("--input is required")
		}
		if err := backup.Restore(cmd.Context(), restoreInput, restoreDir, restoreForce); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Printf("Restore complete: files restored to %s\n", restoreDir)
		return nil
	},
}
