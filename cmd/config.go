package cmd

import (
	"os"
	"path/filepath"
	"strconv"

	internalApp "github.com/haierkeys/memory-server/internal/app"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type runFlags struct {
	dir     string // Project root directory // 项目根目录
	port    string // REST port override // REST 端口
	mcpPort string // MCP HTTP port override // MCP 端口
	runMode string // Startup mode // 启动模式
	config  string // Specified configuration file path // 指定要使用的配置文件路径
	envFile string // dotenv file // .env 文件路径
}

// configCandidates 未指定 -c 时依次查找
var configCandidates = []string{
	"config/config-dev.yaml",
	"config.yaml",
	"config/config.yaml",
}

// prepare 切换工作目录、加载 .env 并确定配置文件路径
// 找不到配置文件时写出内置默认配置
func (f *runFlags) prepare() error {
	if len(f.dir) > 0 {
		if err := os.Chdir(f.dir); err != nil {
			return errors.Wrap(err, "change working directory")
		}
		bootstrapLogger.Info("working directory changed", zap.String("dir", f.dir))
	}

	if err := internalApp.LoadEnvFile(f.envFile); err != nil {
		return err
	}

	if len(f.config) > 0 {
		return nil
	}
	for _, p := range configCandidates {
		if fileExists(p) {
			f.config = p
			return nil
		}
	}

	bootstrapLogger.Warn("config file not found, creating default config")
	f.config = "config/config.yaml"
	if err := os.MkdirAll(filepath.Dir(f.config), 0754); err != nil {
		return errors.Wrap(err, "config file auto create error")
	}
	if err := os.WriteFile(f.config, []byte(configDefault), 0644); err != nil {
		return errors.Wrap(err, "config file auto create writing error")
	}
	bootstrapLogger.Info("config file auto create successfully", zap.String("path", f.config))
	return nil
}

// loadConfig 加载配置并应用命令行覆盖
// 优先级：命令行 > 环境变量 > 配置文件 > 默认值
func (f *runFlags) loadConfig() (*internalApp.AppConfig, string, error) {
	cfg, realpath, err := internalApp.LoadConfig(f.config)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to load config")
	}
	if f.port != "" {
		if cfg.Server.HttpPort, err = strconv.Atoi(f.port); err != nil {
			return nil, "", errors.Errorf("invalid --port %q", f.port)
		}
	}
	if f.mcpPort != "" {
		if cfg.Server.McpPort, err = strconv.Atoi(f.mcpPort); err != nil {
			return nil, "", errors.Errorf("invalid --mcp-port %q", f.mcpPort)
		}
	}
	if f.runMode != "" {
		cfg.Server.RunMode = f.runMode
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, realpath, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
