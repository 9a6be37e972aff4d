package cmd

import (
	"context"
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/jmail/domaincheck/internal/appid"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for build, Go and framework versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		binaryName, _, _ := appid.Names(context.Background())
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "%s %s\n", binaryName, versionInfo.Version)
		if !extended {
			return nil
		}
		fmt.Fprintf(out, "Commit: %s\n", versionInfo.Commit)
		fmt.Fprintf(out, "Built: %s\n", versionInfo.BuildDate)
		fmt.Fprintf(out, "Go: %s\n\n", runtime.Version())

		deps := crucible.GetVersion()
		fmt.Fprintf(out, "Gofulmen: %s\n", deps.Gofulmen)
		fmt.Fprintf(out, "Crucible: %s\n", deps.Crucible)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
