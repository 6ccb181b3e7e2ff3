package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"medrag/internal/pipeline"
)

var watchInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-chunk and re-annotate raw sources as they change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := newApp(cfg).pipeline()
		if err != nil {
			return err
		}
		if watchInitial {
			if _, err := p.ChunkAll(ctx); err != nil {
				return err
			}
			if _, err := p.AnnotateAll(ctx); err != nil {
				return err
			}
		}
		return p.Watch(ctx, pipeline.DefaultDebounce, func(src pipeline.Source, err error) {
			if err != nil {
				return
			}
			fmt.Printf("updated %s\n", p.DocumentDir(src))
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "Run a full chunk and annotate pass before watching")
}

