package cmd

import (
	"github.com/alist-org/arkit/cmd/flags"
	"github.com/alist-org/arkit/internal/op"
	"github.com/alist-org/arkit/pkg/archive"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "info <archive>",
		Short: "Show archive level properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReader(args[0], func(r *archive.Reader) error {
				meta := op.ArchiveMeta(r)
				if flags.JSON {
					return printJSON(meta)
				}
				printInfo("Name:      %s\n", meta.Name)
				printInfo("Format:    %s\n", meta.Format)
				printInfo("Items:     %d (%d files, %d folders)\n", meta.Items, meta.Files, meta.Folders)
				printInfo("Size:      %s\n", meta.Size)
				printInfo("Packed:    %s\n", meta.PackSize)
				printInfo("Volumes:   %d\n", meta.Volumes)
				printInfo("Solid:     %t\n", meta.Solid)
				printInfo("Encrypted: %t\n", meta.Encrypted)
				if meta.Comment != "" {
					printInfo("Comment:   %s\n", meta.Comment)
				}
				for id, v := range r.ArchiveProperties() {
					log.Debugf("%s = %s", id, v)
				}
				return nil
			})
		},
	})
}
