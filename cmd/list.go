package cmd

import (
	"github.com/alist-org/arkit/cmd/flags"
	"github.com/alist-org/arkit/internal/op"
	"github.com/alist-org/arkit/pkg/archive"
	"github.com/spf13/cobra"
)

var listSorted bool

func init() {
	cmd := &cobra.Command{
		Use:     "list <archive>",
		Aliases: []string{"ls"},
		Short:   "List the items of an archive",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReader(args[0], func(r *archive.Reader) error {
				objs := op.ArchiveList(r, listSorted)
				if flags.JSON {
					return printJSON(objs)
				}
				for _, o := range objs {
					kind := "F"
					if o.IsDir {
						kind = "D"
					}
					printInfo("%5d %s %12s %s\n", o.Index, kind, o.Size, o.Path)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&listSorted, "sort", false, "sort by path in natural order")
	RootCmd.AddCommand(cmd)
}
