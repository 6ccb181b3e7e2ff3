package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Extract raw sources and write overlapping word-window chunks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newApp(cfg).pipeline()
		if err != nil {
			return err
		}
		stats, err := p.ChunkAll(cmd.Context())
		if stats != nil {
			fmt.Printf("files=%d processed=%d skipped=%d failed=%d chunks_written=%d\n",
				stats.Files.Load(), stats.Processed.Load(), stats.Skipped.Load(), stats.Failed.Load(), stats.ChunksWritten.Load())
		}
		return err
	},
}

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Derive keywords and summaries and rewrite chunk headers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newApp(cfg).pipeline()
		if err != nil {
			return err
		}
		stats, err := p.AnnotateAll(cmd.Context())
		if stats != nil {
			fmt.Printf("docs_total=%d processed=%d no_chunks=%d failed=%d summaries_written=%d chunks_rewritten=%d chunks_skipped=%d\n",
				stats.DocsTotal.Load(), stats.Processed.Load(), stats.NoChunks.Load(), stats.Failed.Load(),
				stats.SummariesWritten.Load(), stats.ChunksRewritten.Load(), stats.ChunksSkipped.Load())
		}
		return err
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report documents without a summary or keywords header",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newApp(cfg).pipeline()
		if err != nil {
			return err
		}
		rep, err := p.Check(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("documents=%d missing_summary=%d missing_keywords=%d\n",
			rep.Documents, len(rep.MissingSummary), len(rep.MissingKeywords))
		for _, d := range rep.MissingSummary {
			fmt.Println("no summary:  ", d)
		}
		for _, d := range rep.MissingKeywords {
			fmt.Println("no keywords: ", d)
		}
		if !rep.OK() {
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chunkCmd, annotateCmd, checkCmd)
}
