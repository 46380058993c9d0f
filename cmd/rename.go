package cmd

import (
	"github.com/alist-org/arkit/pkg/archive"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "rename <archive> <old path> <new path>",
		Short: "Rename an item of an archive",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWriter(cmd.Context(), args[0], func(w *archive.Writer) error {
				return w.RenameItemByPath(args[1], args[2])
			}, archive.WithUpdateMode(archive.UpdateUpdate))
		},
	})
}
