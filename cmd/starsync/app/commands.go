package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func (a *App) NewSyncCommand() *cobra.Command {
	var (
		full       bool
		dryRun     bool
		allowEmpty bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize starred repositories into the Notion database",
		Long: `Sync fetches the account's starred repositories and reconciles the
Notion database against them.

Without flags the run is incremental: it fetches only stars newer than the
last successful sync and never deletes rows. The first run, or --full,
reads the whole collection and also archives rows for repositories that
are no longer starred.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.config.Validate(); err != nil {
				return err
			}

			result, err := a.syncer(dryRun, allowEmpty).Run(cmd.Context(), full)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "force a full sync, including deletes")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute and report the plan without applying changes")
	cmd.Flags().BoolVar(&allowEmpty, "allow-empty", false, "permit a full sync with zero starred repositories to delete every row")

	return cmd
}

// NewCheckCommand creates the check command, which verifies both
// credentials without writing anything.
func (a *App) NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify GitHub and Notion credentials",
		Long: `Check confirms the GitHub token can read the starred collection and
the Notion token can reach the configured database. Nothing is written.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.config.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			login, err := a.githubClient().Verify(ctx)
			if err != nil {
				return fmt.Errorf("github: %w", err)
			}
			fmt.Fprintf(out, "GitHub: authenticated as %s\n", login)

			title, err := a.notionClient().Verify(ctx)
			if err != nil {
				return fmt.Errorf("notion: %w", err)
			}
			fmt.Fprintf(out, "Notion: database %q reachable\n", title)

			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "starsync %s\n", a.version)
			fmt.Fprintf(out, "  commit: %s\n", a.commit)
			fmt.Fprintf(out, "  built:  %s\n", a.date)
			return nil
		},
	}
}
