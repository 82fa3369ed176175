package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/billboard-charts/internal/report"
	"github.com/JakeFAU/billboard-charts/internal/updater"
)

// newUpdateCmd creates the 'update' subcommand.
func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Download the latest chart dataset from Kaggle",
		Long: `Checks the Kaggle chart dataset and downloads it into storage.data_dir when
it is newer than the local copy, then copies the Hot 100 file to the desktop.
Requires Kaggle API credentials in ~/.kaggle/kaggle.json.`,
		Args: cobra.NoArgs,
		RunE: runUpdate,
	}
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	up, err := appInstance.NewUpdater()
	if err != nil {
		return fmt.Errorf("init updater: %w", err)
	}

	out := cmd.OutOrStdout()
	res, err := up.Run(cmd.Context())
	switch {
	case errors.Is(err, updater.ErrNotConfigured):
		fmt.Fprintln(out, "Kaggle API not configured; see the log for setup steps.")
		return nil
	case err != nil:
		return fmt.Errorf("update dataset: %w", err)
	}

	if !res.Updated {
		fmt.Fprintf(out, "Data is up to date (last updated: %s)\n", res.LastUpdated.Format("2006-01-02"))
		return nil
	}
	fmt.Fprintf(out, "Dataset updated (last updated: %s)\n", res.LastUpdated.Format("2006-01-02"))
	report.WriteFiles(out, res.Files)
	if res.CopiedTo != "" {
		fmt.Fprintf(out, "Hot 100 data file %s copied to %s\n", res.Hot100File, res.CopiedTo)
	}
	return nil
}
