package cmd

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// bootstrapLogger 启动阶段日志器
// Used before the configured logger exists. Writes to stderr only, stdout belongs to the stdio transport.
// 在主日志器初始化之前使用，只写 stderr，stdout 留给 stdio 传输
var bootstrapLogger *zap.Logger

func init() {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
	consoleWriter := zapcore.Lock(os.Stderr)

	// MEMORY_LOG_LEVEL 同样作用于启动阶段
	level := zapcore.InfoLevel
	if lv, err := zapcore.ParseLevel(os.Getenv("MEMORY_LOG_LEVEL")); err == nil && os.Getenv("MEMORY_LOG_LEVEL") != "" {
		level = lv
	}

	core := zapcore.NewCore(consoleEncoder, consoleWriter, level)
	bootstrapLogger = zap.New(core, zap.AddCaller())
}

// BootstrapLogger 获取启动阶段日志器
func BootstrapLogger() *zap.Logger {
	return bootstrapLogger
}
