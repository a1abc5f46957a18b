package cmd

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/radovskyb/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	runEnv := new(runFlags)

	var runCommand = &cobra.Command{
		Use:   "run [-c config_file] [-d working_dir] [-p port]",
		Short: "Run REST and MCP HTTP services",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runEnv.prepare(); err != nil {
				bootstrapLogger.Error("prepare failed", zap.Error(err))
				os.Exit(1)
			}

			s, err := NewServer(runEnv)
			if err != nil {
				bootstrapLogger.Error("api service start err", zap.Error(err))
				os.Exit(1)
			}

			// 配置热重载会替换 s，信号处理读取时加锁
			var mu sync.Mutex
			current := func() *Server {
				mu.Lock()
				defer mu.Unlock()
				return s
			}

			go func() {
				w := watcher.New()

				// 将 SetMaxEvents 设置为 1，以便在每个监听周期中至多接收 1 个事件
				w.SetMaxEvents(1)

				// 只通知写入事件。
				w.FilterOps(watcher.Write)

				go func() {
					for {
						select {
						case event := <-w.Event:
							old := current()
							old.logger.Info("config watcher change", zap.String("event", event.Op.String()), zap.String("file", event.Path))
							old.sc.SendCloseSignal(nil)
							// 等旧服务释放端口和数据库后再重建
							if err := old.sc.WaitClosed(); err != nil {
								old.logger.Warn("previous service closed with error", zap.Error(err))
							}

							// 重新初始化 server
							next, err := NewServer(runEnv)
							if err != nil {
								bootstrapLogger.Error("service restart err", zap.Error(err))
								continue
							}
							mu.Lock()
							s = next
							mu.Unlock()

						case err := <-w.Error:
							current().logger.Error("config watcher error", zap.Error(err))
						case <-w.Closed:
							bootstrapLogger.Info("config watcher closed")
							return
						}
					}
				}()

				// 监听 config.yaml 文件
				if err := w.Add(runEnv.config); err != nil {
					current().logger.Error("config watcher file error", zap.Error(err))
					return
				}

				if err := w.Start(time.Second * 5); err != nil {
					current().logger.Error("config watcher start error", zap.Error(err))
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			srv := current()
			srv.logger.Info("Received shutdown signal, initiating graceful shutdown...")
			srv.sc.SendCloseSignal(nil)

			// 等待所有关闭处理器完成（包括 App Container 的优雅关闭）
			if err := srv.sc.WaitClosed(); err != nil {
				srv.logger.Error("Shutdown completed with error", zap.Error(err))
			} else {
				srv.logger.Info("Service has been shut down gracefully.")
			}
			_ = srv.logger.Sync()
		},
	}

	rootCmd.AddCommand(runCommand)
	fs := runCommand.Flags()
	fs.StringVarP(&runEnv.dir, "dir", "d", "", "run dir")
	fs.StringVarP(&runEnv.port, "port", "p", "", "REST port")
	fs.StringVar(&runEnv.mcpPort, "mcp-port", "", "MCP HTTP port, 0 disables")
	fs.StringVarP(&runEnv.runMode, "mode", "m", "", "run mode")
	fs.StringVarP(&runEnv.config, "config", "c", "", "config file")
	fs.StringVar(&runEnv.envFile, "env-file", ".env", "dotenv file")
}
