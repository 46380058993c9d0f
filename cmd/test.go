package cmd

import (
	"github.com/alist-org/arkit/pkg/archive"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "test <archive>",
		Short: "Verify the checksums of every item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReader(args[0], func(r *archive.Reader) error {
				if err := r.Test(cmd.Context()); err != nil {
					return err
				}
				printInfo("\n%s: everything is ok\n", args[0])
				return nil
			})
		},
	})
}
