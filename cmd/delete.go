package cmd

import (
	"github.com/alist-org/arkit/pkg/archive"
	"github.com/alist-org/arkit/pkg/utils"
	"github.com/spf13/cobra"
)

var deleteIndices string

func init() {
	cmd := &cobra.Command{
		Use:     "delete <archive> [path]...",
		Aliases: []string{"d"},
		Short:   "Remove items from an archive",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withWriter(cmd.Context(), args[0], func(w *archive.Writer) error {
				for _, p := range args[1:] {
					if err := w.DeleteItemByPath(p); err != nil {
						return err
					}
				}
				if deleteIndices == "" {
					return nil
				}
				indices, err := utils.ParseIndices(deleteIndices)
				if err != nil {
					return err
				}
				for _, i := range indices {
					if err := w.DeleteItem(i); err != nil {
						return err
					}
				}
				return nil
			}, archive.WithUpdateMode(archive.UpdateUpdate))
		},
	}
	cmd.Flags().StringVar(&deleteIndices, "items", "", "comma separated indices or ranges to delete")
	RootCmd.AddCommand(cmd)
}
