package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openvigil/vigil/internal/config"
	"github.com/openvigil/vigil/internal/mcp"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: "Exposes vigil_evaluate, vigil_memory_write, vigil_memory_read,\n" +
		"vigil_consent_resolve and vigil_pending to an MCP client.\n" +
		"The classifier ruleset hot-reloads when its file changes.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Logs go to stderr; stdout carries the MCP protocol.
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	srv, err := mcp.New(cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RulesetPath != "" {
		reloader, err := config.NewReloader(
			[]string{cfg.RulesetPath},
			func() error { return srv.ReloadRuleset(cfg.RulesetPath) },
			logger,
		)
		if err != nil {
			return err
		}
		go func() {
			if err := reloader.Run(ctx); err != nil {
				logger.Warn("reloader stopped", zap.Error(err))
			}
		}()
	}

	return srv.Run(ctx)
}
