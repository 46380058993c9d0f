package cmd

import (
	"os"

	"github.com/alist-org/arkit/cmd/flags"
	"github.com/alist-org/arkit/pkg/format"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "detect <file>...",
		Short: "Detect the archive format of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ret := make(map[string]string, len(args))
			for _, name := range args {
				f, err := detectFile(name)
				if err != nil {
					return err
				}
				ret[name] = f.Name
				printInfo("%s: %s\n", name, f.Name)
			}
			if flags.JSON {
				return printJSON(ret)
			}
			return nil
		},
	})
}

func detectFile(name string) (*format.InFormat, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer file.Close()
	return format.Detect(format.Auto, name, file)
}
