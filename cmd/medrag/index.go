package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildIndex bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed every specialist corpus into its vector store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		defer a.Close()
		targets, err := a.targets(cmd.Context())
		if err != nil {
			return err
		}
		stats, err := a.index(cmd.Context(), targets, rebuildIndex)
		fmt.Printf("collections=%d entries=%d failed=%d\n",
			stats.Collections.Load(), stats.Entries.Load(), stats.Failed.Load())
		return err
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&rebuildIndex, "rebuild", false, "Re-embed even when stored vectors match the corpus")
}
