package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pvewatch/pvewatch/cmd/serve"
	"github.com/pvewatch/pvewatch/cmd/version"
	"github.com/pvewatch/pvewatch/pkg/logger"
)

func NewRootCmd() *cobra.Command {
	logger := logger.NewDefault()
	rootCmd := &cobra.Command{
		Use:   "pvewatch",
		Short: "A Proxmox VE monitoring and alerting service",
		Long:  `pvewatch samples resource usage from Proxmox VE nodes, keeps bounded metric history, and alerts on threshold breaches and workload state changes.`,
	}

	rootCmd.AddCommand(serve.Command(logger))
	rootCmd.AddCommand(version.NewVersionCmd())
	return rootCmd
}
