package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"medrag/internal/agents"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Route a question to a specialist and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a := newApp(cfg)
		defer a.Close()
		orch, err := a.orchestrator(ctx, false)
		if err != nil {
			return err
		}
		question := strings.Join(args, " ")
		ans, err := retry(ctx, func() (agents.Answer, error) {
			return orch.Ask(ctx, question)
		})
		if err != nil {
			return err
		}
		if isUndetermined(ans.Err()) {
			fmt.Println(ans.Text)
			return nil
		}
		fmt.Printf("[%s] %s\n", ans.Specialist, ans.Text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
