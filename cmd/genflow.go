package cmd

import (
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "genflow",
		Short: "Streaming generation engine",
	}
	root.AddCommand(serveCmd())
	return root
}
