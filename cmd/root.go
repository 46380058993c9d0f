package cmd

import (
	"fmt"
	"os"

	"github.com/alist-org/arkit/cmd/flags"
	"github.com/alist-org/arkit/internal/conf"
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "arkit",
	Short: "Inspect, extract, build and edit archives",
	Long: `arkit reads zip, 7z, rar, tar, iso and single stream archives,
extracts them safely, and builds or edits zip, tar and single stream
archives in place.`,
	Version:      conf.Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return Init()
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "config file, created with defaults when missing")
	RootCmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "start with debug mode")
	RootCmd.PersistentFlags().BoolVar(&flags.LogStd, "log-std", false, "force to log to std")
	RootCmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "output in JSON format")
	RootCmd.PersistentFlags().StringVarP(&flags.Password, "password", "p", "", "archive password")
	RootCmd.PersistentFlags().StringVarP(&flags.Format, "format", "f", "", "archive format, detected when empty")
}
