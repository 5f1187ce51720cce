package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/shiphero"
	"github.com/saturnines/shiphero-core/pkg/store"
)

func (a *App) snapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inventory snapshot jobs",
	}

	generate := &cobra.Command{
		Use:   "generate <warehouse-id>",
		Short: "Start a snapshot job and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.svc.GenerateSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, id)
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <snapshot-id>",
		Short: "Print the state of a snapshot job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.svc.GetSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(snap)
		},
	}

	abort := &cobra.Command{
		Use:   "abort <snapshot-id>",
		Short: "Cancel a snapshot job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.svc.AbortSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(snap)
		},
	}

	poll := &cobra.Command{
		Use:   "poll <snapshot-id>",
		Short: "Wait for a snapshot job and print it once ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.svc.PollSnapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(snap)
		},
	}

	var url string
	download := &cobra.Command{
		Use:   "download [snapshot-id]",
		Short: "Download a ready snapshot and export its detail rows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := url
			if src == "" {
				if len(args) == 0 {
					return errors.WrapError(fmt.Errorf("a snapshot id or --url is required"), errors.ErrValidation, "snapshot download")
				}
				snap, err := a.svc.PollSnapshot(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				src = *snap.SnapshotURL
			}
			doc, err := a.svc.DownloadSnapshot(cmd.Context(), src)
			if err != nil {
				return err
			}
			set, err := shiphero.FlattenSnapshot(doc)
			if err != nil {
				return err
			}
			return a.emit(cmd.Context(), set, "inventory_snapshot")
		},
	}
	download.Flags().StringVar(&url, "url", "", "pre-signed snapshot URL (skips polling)")

	load := &cobra.Command{
		Use:   "load <warehouse-id>",
		Short: "Generate, wait for and download a snapshot, then store the run in the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.database(ctx)
			if err != nil {
				return err
			}
			snap, details, err := a.svc.CaptureSnapshot(ctx, args[0])
			if err != nil {
				return err
			}
			versionID, err := store.NewSnapshotStore(db).SaveRun(ctx, a.runID, snap.Record(), details)
			if err != nil {
				return err
			}
			a.logger.Info("snapshot run stored", "version_id", versionID, "snapshot_id", snap.SnapshotID, "rows", details.Len())
			fmt.Fprintf(a.out, "Stored snapshot %s as version %d with %d rows\n", snap.SnapshotID, versionID, details.Len())
			return nil
		},
	}

	cmd.AddCommand(generate, get, abort, poll, download, load)
	return cmd
}
