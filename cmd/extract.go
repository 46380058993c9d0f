package cmd

import (
	"github.com/alist-org/arkit/pkg/archive"
	"github.com/alist-org/arkit/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	extractItems  string
	extractMatch  string
	extractFlat   bool
	extractFail   bool
	extractPolicy string
)

func init() {
	cmd := &cobra.Command{
		Use:     "extract <archive> <dir>",
		Aliases: []string{"x"},
		Short:   "Extract an archive into a directory",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []archive.Option{
				archive.WithRetainDirectories(!extractFlat),
				archive.WithFailFast(extractFail),
			}
			if extractPolicy != "" {
				policy, err := archive.ParseOverwrite(extractPolicy)
				if err != nil {
					return err
				}
				opts = append(opts, archive.WithOverwrite(policy))
			}
			return withReader(args[0], func(r *archive.Reader) error {
				ctx := cmd.Context()
				switch {
				case extractItems != "":
					indices, err := utils.ParseIndices(extractItems)
					if err != nil {
						return err
					}
					return r.ExtractItems(ctx, indices, args[1])
				case extractMatch != "":
					return r.ExtractMatching(ctx, extractMatch, args[1])
				}
				return r.Extract(ctx, args[1])
			}, opts...)
		},
	}
	cmd.Flags().StringVar(&extractItems, "items", "", "comma separated indices or ranges, such as 0,3-5")
	cmd.Flags().StringVar(&extractMatch, "match", "", "glob matched against item paths and names")
	cmd.Flags().BoolVar(&extractFlat, "flat", false, "drop directory structure")
	cmd.Flags().BoolVar(&extractFail, "fail-fast", false, "stop at the first failing item")
	cmd.Flags().StringVar(&extractPolicy, "overwrite", "", "overwrite, skip or fail on existing files")
	RootCmd.AddCommand(cmd)
}
