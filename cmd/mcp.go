package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/haierkeys/memory-server/internal/routers/mcp_router"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	runEnv := new(runFlags)

	var mcpCommand = &cobra.Command{
		Use:   "mcp [-c config_file] [-d working_dir]",
		Short: "Serve the memory tools over MCP stdio",
		Long:  "Serve the memory tools over MCP stdio. stdout carries protocol frames only, logs go to stderr and the log file.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runEnv.prepare(); err != nil {
				bootstrapLogger.Error("prepare failed", zap.Error(err))
				os.Exit(1)
			}

			s, _, err := newAppServer(runEnv)
			if err != nil {
				bootstrapLogger.Error("mcp service start err", zap.Error(err))
				os.Exit(1)
			}
			s.attachAppShutdown()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stdio := server.NewStdioServer(mcp_router.NewServer(s.app))
			stdio.SetErrorLogger(zap.NewStdLog(s.logger))

			s.logger.Info("mcp stdio service started", zap.String("db", s.config.Database.Path))
			if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
				s.logger.Error("mcp stdio service err", zap.Error(err))
			}

			s.sc.SendCloseSignal(nil)
			if err := s.sc.WaitClosed(); err != nil {
				s.logger.Error("Shutdown completed with error", zap.Error(err))
			}
			_ = s.logger.Sync()
		},
	}

	rootCmd.AddCommand(mcpCommand)
	fs := mcpCommand.Flags()
	fs.StringVarP(&runEnv.dir, "dir", "d", "", "run dir")
	fs.StringVarP(&runEnv.config, "config", "c", "", "config file")
	fs.StringVar(&runEnv.envFile, "env-file", ".env", "dotenv file")
}
