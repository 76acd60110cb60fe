package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/smartmark/internal/app"
)

var (
	importFile  string
	importEmail string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a Homepage bookmarks.yaml",
	Long: `Import adds every bookmark of a Homepage dashboard bookmarks.yaml to the
user's list. Bookmarks whose URL the user already has are left alone, so the
import can be run again after editing the file.

Example:
  smartmark import --file bookmarks.yaml --email you@example.com
  SMARTMARK_SESSION_ACCESS_TOKEN=... smartmark import --file bookmarks.yaml`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to bookmarks.yaml (required)")
	importCmd.Flags().StringVar(&importEmail, "email", "", "sign in as this email (default: restore the configured access token)")
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := app.Import(ctx, cfg, importFile, importEmail)
	for _, s := range res.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s/%s: %s\n", s.Group, s.Name, s.Reason)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d bookmarks (%d failed, %d already present, %d skipped), %d total\n",
		res.Added, res.Failed, res.Duplicate, len(res.Skipped), res.Total)
	return nil
}
