package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	internalApp "github.com/haierkeys/memory-server/internal/app"
	"github.com/haierkeys/memory-server/internal/dao"
	"github.com/haierkeys/memory-server/internal/routers"
	"github.com/haierkeys/memory-server/internal/routers/mcp_router"
	"github.com/haierkeys/memory-server/internal/task"
	"github.com/haierkeys/memory-server/pkg/logger"
	"github.com/haierkeys/memory-server/pkg/safe_close"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultShutdownTimeout default shutdown timeout duration
// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

type Server struct {
	logger            *zap.Logger            // Logger // 日志对象
	config            *internalApp.AppConfig // App configuration (injected dependency) // 应用配置（注入的依赖）
	db                *gorm.DB               // Database connection // 数据库连接
	httpServer        *http.Server           // REST
	mcpHttpServer     *http.Server           // MCP streamable HTTP
	privateHttpServer *http.Server           // metrics / pprof
	sc                *safe_close.SafeClose
	app               *internalApp.App // App Container
}

// newApp 构建 App Container，测试中可替换
var newApp = internalApp.NewApp

// newAppServer 加载配置并构建日志、数据库和 App Container，不启动任何监听
func newAppServer(runEnv *runFlags) (*Server, string, error) {
	appConfig, configRealpath, err := runEnv.loadConfig()
	if err != nil {
		return nil, "", err
	}

	s := &Server{
		config: appConfig,
		sc:     safe_close.NewSafeClose(),
	}

	lg, err := logger.NewLogger(logger.Config{
		Level:      appConfig.Log.Level,
		File:       appConfig.Log.File,
		Production: appConfig.Log.Production,
	})
	if err != nil {
		return nil, "", fmt.Errorf("initLogger: %w", err)
	}
	s.logger = lg

	db, err := dao.NewDBEngineWithConfig(appConfig.GetDatabaseConfig(), s.logger)
	if err != nil {
		return nil, "", fmt.Errorf("initDatabase: %w", err)
	}
	s.db = db

	app, err := newApp(appConfig, s.logger, db)
	if err != nil {
		// 连接尚未交给 App Container，需要在这里关闭，否则热重载重试会泄漏句柄
		closeDB(db, s.logger)
		return nil, "", fmt.Errorf("failed to create app container: %w", err)
	}
	s.app = app

	return s, configRealpath, nil
}

// closeDB 关闭数据库连接
func closeDB(db *gorm.DB, lg *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		lg.Warn("get database handle failed", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		lg.Warn("close database failed", zap.Error(err))
	}
}

// NewServer 构建并启动 REST、MCP HTTP 和私有监听
// 所有监听和 App Container 挂在同一个 SafeClose 上，一起关闭
func NewServer(runEnv *runFlags) (*Server, error) {
	s, configRealpath, err := newAppServer(runEnv)
	if err != nil {
		return nil, err
	}
	appConfig := s.config

	if appConfig.Server.RunMode == gin.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	banner := `
    __  ___                                   _____
   /  |/  /__  ____ ___  ____  _______  __   / ___/___  ______   _____  _____
  / /|_/ / _ \/ __ '__ \/ __ \/ ___/ / / /   \__ \/ _ \/ ___/ | / / _ \/ ___/
 / /  / /  __/ / / / / / /_/ / /  / /_/ /   ___/ /  __/ /   | |/ /  __/ /
/_/  /_/\___/_/ /_/ /_/\____/_/   \__, /   /____/\___/_/    |___/\___/_/
                                 /____/                                   `
	s.logger.Warn(fmt.Sprintf("%s\n\n%s v%s\nGit: %s\nBuildTime: %s\n", banner, internalApp.Name, internalApp.Version, internalApp.GitTag, internalApp.BuildTime))
	s.logger.Warn("config loaded", zap.String("path", configRealpath))

	// REST
	s.logger.Warn("api_router", zap.String("addr", appConfig.HttpAddr()))
	s.httpServer = &http.Server{
		Addr:           appConfig.HttpAddr(),
		Handler:        routers.NewRouter(s.app),
		ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	s.serve("api service", s.httpServer)

	// MCP streamable HTTP，端口为 0 时不启动
	if appConfig.Server.McpPort != 0 {
		s.logger.Warn("mcp_router", zap.String("addr", appConfig.McpAddr()), zap.String("path", appConfig.Server.McpPath))
		s.mcpHttpServer = &http.Server{
			Addr:           appConfig.McpAddr(),
			Handler:        mcp_router.NewHTTPHandler(mcp_router.NewServer(s.app), appConfig.Server.McpPath),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.serve("mcp service", s.mcpHttpServer)
	}

	if httpAddr := appConfig.Server.PrivateHttpListen; len(httpAddr) > 0 {
		s.logger.Info("api_router", zap.String("config.server.PrivateHttpListen", httpAddr))
		s.privateHttpServer = &http.Server{
			Addr:           httpAddr,
			Handler:        routers.NewPrivateRouterWithLogger(appConfig.Server.RunMode, s.logger),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.serve("private api service", s.privateHttpServer)
	}

	initScheduler(s)
	s.attachAppShutdown()

	return s, nil
}

func initScheduler(s *Server) {
	// 创建任务管理器
	manager := task.NewManager(s.logger, s.sc, s.app)

	// 注册所有任务(业务层控制)
	if err := manager.RegisterTasks(); err != nil {
		s.logger.Error("failed to register tasks", zap.Error(err))
		return
	}

	// 启动任务调度器
	manager.Start()
}

// serve 启动监听，收到关闭信号后优雅停止
// 监听失败时广播关闭信号，其他服务一起退出
func (s *Server) serve(name string, srv *http.Server) {
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		errChan := make(chan error, 1)
		go func() {
			errChan <- srv.ListenAndServe()
		}()
		select {
		case err := <-errChan:
			s.logger.Error(name+" err", zap.Error(err))
			s.sc.SendCloseSignal(err)
		case <-closeSignal:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// 停止HTTP服务器
			if err := srv.Shutdown(ctx); err != nil {
				s.logger.Error(name+" shutdown error", zap.Error(err))
			}
		}
	})
}

// attachAppShutdown 注册 App Container 的优雅关闭
func (s *Server) attachAppShutdown() {
	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		<-closeSignal
		if s.app != nil {
			ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
			defer cancel()

			if err := s.app.Shutdown(ctx); err != nil {
				s.logger.Error("failed to shutdown app container", zap.Error(err))
			} else {
				s.logger.Info("App container shutdown gracefully")
			}
		}
	})
}

// GetApp 获取 App Container
func (s *Server) GetApp() *internalApp.App {
	return s.app
}

// GetConfig 获取应用配置
func (s *Server) GetConfig() *internalApp.AppConfig {
	return s.config
}
