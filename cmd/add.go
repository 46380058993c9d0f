package cmd

import (
	"github.com/alist-org/arkit/internal/conf"
	"github.com/alist-org/arkit/pkg/archive"
	"github.com/alist-org/arkit/pkg/format"
	"github.com/spf13/cobra"
)

var (
	addLevel    string
	addMethod   string
	addMode     string
	addSolid    bool
	addVolume   int64
	addEncrypt  bool
	addSymlinks bool
)

func init() {
	cmd := &cobra.Command{
		Use:     "add <archive> <path>...",
		Aliases: []string{"a"},
		Short:   "Create an archive or add files to one",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := writerOptions(args[0])
			if err != nil {
				return err
			}
			return withWriter(cmd.Context(), args[0], func(w *archive.Writer) error {
				return w.AddFiles(args[1:])
			}, opts...)
		},
	}
	cmd.Flags().StringVarP(&addLevel, "level", "l", "", "compression level: none, fastest, fast, normal, max or ultra")
	cmd.Flags().StringVarP(&addMethod, "method", "m", "", "compression method")
	cmd.Flags().StringVar(&addMode, "mode", "append", "update mode for an existing archive: none, append, update or overwrite")
	cmd.Flags().BoolVar(&addSolid, "solid", false, "create a solid archive")
	cmd.Flags().Int64Var(&addVolume, "volume", 0, "split the output into volumes of this many bytes")
	cmd.Flags().BoolVar(&addEncrypt, "encrypt-headers", false, "encrypt the headers as well")
	cmd.Flags().BoolVar(&addSymlinks, "symlinks", false, "store symbolic links as links")
	RootCmd.AddCommand(cmd)
}

// writerOptions builds the writer settings from flags. The configured
// default level only applies to formats that take one.
func writerOptions(target string) ([]archive.WriterOption, error) {
	mode, err := archive.ParseUpdateMode(addMode)
	if err != nil {
		return nil, err
	}
	opts := []archive.WriterOption{
		archive.WithUpdateMode(mode),
		archive.WithSolid(addSolid),
		archive.WithVolumeSize(addVolume),
		archive.WithEncryptHeaders(addEncrypt),
		archive.WithStoreSymlinks(addSymlinks),
	}
	level := addLevel
	if level == "" && takesLevel(target) {
		level = conf.Conf.Archive.Level
	}
	if level != "" {
		l, err := format.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		opts = append(opts, archive.WithLevel(l))
	}
	if addMethod != "" {
		m, err := format.ParseMethod(addMethod)
		if err != nil {
			return nil, err
		}
		opts = append(opts, archive.WithMethod(m))
	}
	return opts, nil
}

func takesLevel(target string) bool {
	f, err := resolveFormat()
	if err != nil {
		return false
	}
	if f.IsAuto() {
		if f, _ = format.DetectExtension(target); f == nil {
			return false
		}
	}
	w, ok := f.Writable()
	return ok && w.Has(format.CompressionLevel)
}
