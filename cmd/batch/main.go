// Command batch runs feedback analyses offline.
//
// Usage:
//
//	batch summarize --input raw_data/feedback.csv --output output/feedback_analysis.csv
//	batch class --files week1.csv --files week2.csv
//	batch student --files week1.csv --group A --student 1 --reference "..."
package main

import (
	"context"
	"feedbacklens/internal/app"
	"feedbacklens/internal/config"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// env is built once by the root command's PersistentPreRunE
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	app    *app.App
}

var (
	modelKey string
	current  env
)

var rootCmd = &cobra.Command{
	Use:           "batch",
	Short:         "Offline feedback analysis",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := config.NewLogger(cfg.LogLevel, cfg.Environment)
		if err != nil {
			return err
		}
		current, err = newEnv(cmd.Context(), cfg, logger)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current.app != nil {
			current.app.Close(context.Background())
		}
		if current.logger != nil {
			current.logger.Sync()
		}
	},
}

// newEnv builds the app. Input files given on the command line may be absolute.
func newEnv(ctx context.Context, cfg *config.Config, logger *zap.Logger) (env, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return env{}, err
	}
	a.Loader.SetAllowAbsolutePaths(true)
	return env{cfg: cfg, logger: logger, app: a}, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelKey, "model", "", "model registry key (default: DEFAULT_MODEL)")
	rootCmd.AddCommand(summarizeCmd, classCmd, groupCmd, studentCmd, compareCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
