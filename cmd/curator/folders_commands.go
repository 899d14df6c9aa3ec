package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"curator/internal/settings"
)

func newWatchedCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watched",
		Short: "Manage watched folders",
	}
	addFolderSubcommands(cmd, cmdCtx, folderListOps{
		kind:   "watched",
		list:   (*settings.Store).WatchedFolders,
		add:    (*settings.Store).AddWatched,
		remove: (*settings.Store).RemoveWatched,
	})
	return cmd
}

func newDestinationsCommand(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destinations",
		Short: "Manage destination folders suggestions may move files into",
	}
	addFolderSubcommands(cmd, cmdCtx, folderListOps{
		kind:   "destination",
		list:   (*settings.Store).DestinationFolders,
		add:    (*settings.Store).AddDestination,
		remove: (*settings.Store).RemoveDestination,
	})
	return cmd
}

type folderListOps struct {
	kind   string
	list   func(*settings.Store) []string
	add    func(*settings.Store, string) error
	remove func(*settings.Store, string) error
}

func addFolderSubcommands(parent *cobra.Command, cmdCtx *commandContext, ops folderListOps) {
	parent.AddCommand(&cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s folders", ops.kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openSettings(nil)
			if err != nil {
				return err
			}
			folders := ops.list(store)
			out := cmd.OutOrStdout()
			if len(folders) == 0 {
				fmt.Fprintf(out, "No %s folders configured.\n", ops.kind)
				return nil
			}
			for _, folder := range folders {
				fmt.Fprintln(out, folder)
			}
			return nil
		},
	})

	parent.AddCommand(&cobra.Command{
		Use:   "add <folder>",
		Short: fmt.Sprintf("Add a %s folder", ops.kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("stat folder: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", args[0])
			}
			store, err := cmdCtx.openSettings(nil)
			if err != nil {
				return err
			}
			if err := ops.add(store, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s folder %s\n", ops.kind, args[0])
			return nil
		},
	})

	parent.AddCommand(&cobra.Command{
		Use:   "remove <folder>",
		Short: fmt.Sprintf("Remove a %s folder", ops.kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openSettings(nil)
			if err != nil {
				return err
			}
			if err := ops.remove(store, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s folder %s\n", ops.kind, args[0])
			return nil
		},
	})
}
