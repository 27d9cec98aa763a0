// Package cli implements the life-assistant commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/app"
	"github.com/rcliao/life-assistant/internal/chief"
	"github.com/rcliao/life-assistant/internal/config"
	"github.com/rcliao/life-assistant/internal/logging"
)

var (
	cfgFile     string
	dbPath      string
	formatFlag  string
	verbose     bool
	stepFlag    string
	interactive bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "life-assistant",
	Short:        "A personal assistant run by a team of agents",
	Long:         "Runs news, work, outfit, life and review agents as morning and evening pipelines, with layered memory. Select a pipeline with --step.",
	SilenceUsage: true,
	RunE:         runRoot,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default: $LIFE_ASSISTANT_HOME/config.toml or ~/.life-assistant/config.toml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (overrides store.path)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text or json")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	RootCmd.Flags().StringVarP(&stepFlag, "step", "s", "", "Step to run: news, work, outfit, life, review, morning, evening, full")
	RootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Chat with the step's agent after it runs")
}

func runRoot(cmd *cobra.Command, args []string) error {
	if stepFlag == "" {
		return cmd.Help()
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, _ := loadConfig()
	logger, _ := newLogger(cfg)
	defer logger.Sync()

	rt, err := app.Open(ctx, cfg, logger, app.Options{RequireLLM: true})
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer rt.Close()

	window := rt.NewWindow()
	rep, err := rt.NewChief(window).RunStep(ctx, stepFlag, nil)
	if err != nil {
		logger.Error("run failed", zap.String("step", stepFlag), zap.Error(err))
		return err
	}
	if err := printReport(cmd.OutOrStdout(), rep); err != nil {
		return err
	}
	if rep.Err != nil {
		logger.Warn("run stopped early", zap.String("step", stepFlag), zap.Error(rep.Err))
	}
	if rep.Failed() {
		err := fmt.Errorf("step %s produced no output", stepFlag)
		logger.Error("run failed", zap.String("step", stepFlag), zap.Error(err))
		return err
	}

	if interactive {
		return runREPL(ctx, rt, replAgent(stepFlag), window, cmd.InOrStdin(), cmd.OutOrStdout())
	}
	return nil
}

// replAgent picks the chat agent for a step; pipelines chat with work.
func replAgent(step string) string {
	switch step {
	case chief.StepMorning, chief.StepEvening, chief.StepFull:
		return chief.StepWork
	}
	return step
}

func loadConfig() (*config.Config, *viper.Viper) {
	cfg, v, err := config.Load(cfgFile)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	return cfg, v
}

func newLogger(cfg *config.Config) (*zap.Logger, zap.AtomicLevel) {
	logger, level, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: verbose,
	})
	if err != nil {
		exitErr("init logging", err)
	}
	return logger, level
}

// openRuntime opens the runtime for memory commands; LLM credentials are optional.
func openRuntime(ctx context.Context) (*app.Runtime, *config.Config) {
	cfg, _ := loadConfig()
	logger, _ := newLogger(cfg)
	rt, err := app.Open(ctx, cfg, logger, app.Options{})
	if err != nil {
		exitErr("open store", err)
	}
	return rt, cfg
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
