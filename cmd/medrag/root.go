package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"medrag/internal/config"
	"medrag/internal/logger"
)

var (
	cfgPath   string
	verbose   bool
	logFormat string

	cfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "medrag",
	Short: "Medical document chunking, annotation and specialist question answering",
	Long: `medrag turns raw medical sources into annotated chunk directories,
indexes them per specialist and answers patient questions by routing each
question to one specialist and answering from its retrieved context.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if _, err := logger.Setup(logger.Options{Format: logFormat, Verbose: verbose}); err != nil {
			return err
		}
		var (
			err  error
			path = cfgPath
		)
		if path == "" {
			cfg, path, err = config.LoadDefault()
		} else {
			cfg, err = config.Load(path)
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		slog.Debug("config loaded", "path", path)
		return nil
	},
}

// Execute runs the root command. An interrupt or SIGTERM cancels the command
// context, so batch commands stop between documents.
func Execute() {
	ctx, stop := signalContext(context.Background())
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func run(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config (default ./config.yaml, then ~/.config/medrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
}
