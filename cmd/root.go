package cmd

import (
	"fmt"
	"github.com/ValentinKolb/kvload/cmd/run"
	"github.com/ValentinKolb/kvload/cmd/serve"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kvload",
		Short: "load generator for line-json key-value stores",
		Long: fmt.Sprintf(`kvload (v%s)

A load generator for key-value stores speaking newline-delimited json over tcp.
Virtual users write and read keys with a weighted mix of SET and GET requests
and the latency and success of every request is reported.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvload",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kvload v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(run.RunCmd)
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
