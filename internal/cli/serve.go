package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/life-assistant/internal/app"
	"github.com/rcliao/life-assistant/internal/config"
	"github.com/rcliao/life-assistant/internal/logging"
	"github.com/rcliao/life-assistant/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chat and news over HTTP",
		Long:  "Serve POST /chat (server-sent events), GET /news, GET /summaries and GET /healthz. The config file is watched and reloaded.",
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, v := loadConfig()
	logger, level := newLogger(cfg)
	defer logger.Sync()

	rt, err := app.Open(ctx, cfg, logger, app.Options{})
	if err != nil {
		exitErr("open runtime", err)
	}
	defer rt.Close()
	if err := rt.RequireLLM(); err != nil {
		logger.Warn("chat disabled", zap.Error(err))
	}

	config.Watch(v, func(next *config.Config) {
		next.Store.Path = cfg.Store.Path
		rt.Apply(next)
		if lvl, err := logging.ParseLevel(next.Logging.Level); err == nil && !verbose {
			level.SetLevel(lvl)
		}
		logger.Info("config reloaded",
			zap.String("file", next.File),
			zap.Int("articles_per_summary", next.News.ArticlesPerSummary),
			zap.String("level", next.Logging.Level))
	}, func(err error) {
		logger.Warn("config reload rejected", zap.Error(err))
	})

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if err := server.New(rt, logger).ListenAndServe(ctx, addr); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
