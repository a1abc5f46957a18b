// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/haierkeys/memory-server/internal/dao"
	"github.com/haierkeys/memory-server/internal/service"
	"github.com/haierkeys/memory-server/pkg/util"
	"github.com/haierkeys/memory-server/pkg/writequeue"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "MEMORY_"

// AppConfig 应用配置
// 启动时构建一次，以指针传给容器和两个入口，不做全局访问
type AppConfig struct {
	File     string         `yaml:"-"` // 配置文件路径，不序列化
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Memory   MemoryConfig   `yaml:"memory"`
	App      AppSettings    `yaml:"app"`
	Tracer   TracerConfig   `yaml:"tracer"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，参见 zapcore.ParseLevel
	Level string `yaml:"level" default:"info"`
	// File 日志文件路径，为空时只输出到 stderr
	File string `yaml:"file" default:"storage/logs/memory.log"`
	// Production 是否启用 JSON 输出
	Production bool `yaml:"production" default:"false"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// RunMode 运行模式 debug | release
	RunMode string `yaml:"run-mode" default:"release"`
	// Host 监听地址
	Host string `yaml:"host" default:"127.0.0.1"`
	// HttpPort REST 端口
	HttpPort int `yaml:"http-port" default:"8000"`
	// McpPort MCP streamable HTTP 端口，0 表示不启动
	McpPort int `yaml:"mcp-port" default:"8001"`
	// McpPath MCP 端点路径
	McpPath string `yaml:"mcp-path" default:"/mcp"`
	// ReadTimeout 读取超时（秒）
	ReadTimeout int `yaml:"read-timeout" default:"60"`
	// WriteTimeout 写入超时（秒）
	WriteTimeout int `yaml:"write-timeout" default:"60"`
	// PrivateHttpListen 私有 HTTP 监听地址（metrics/pprof），为空不启动
	PrivateHttpListen string `yaml:"private-http-listen" default:"127.0.0.1:9001"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Type 数据库类型 sqlite | mysql | postgres
	Type string `yaml:"type" default:"sqlite"`
	// Path SQLite 数据库文件路径
	Path string `yaml:"path" default:"storage/database/memory.db"`
	// UserName 用户名
	UserName string `yaml:"username"`
	// Password 密码
	Password string `yaml:"password"`
	// Host 主机
	Host string `yaml:"host"`
	// Name 数据库名
	Name string `yaml:"name"`
	// TablePrefix 表前缀
	TablePrefix string `yaml:"table-prefix"`
	// Charset 字符集
	Charset string `yaml:"charset" default:"utf8mb4"`
	// ParseTime 是否解析时间
	ParseTime bool `yaml:"parse-time" default:"true"`
	// BusyTimeout SQLite busy_timeout（毫秒）
	BusyTimeout int `yaml:"busy-timeout" default:"5000"`
	// MaxIdleConns 最大闲置连接数
	MaxIdleConns int `yaml:"max-idle-conns" default:"10"`
	// MaxOpenConns 最大打开连接数
	MaxOpenConns int `yaml:"max-open-conns" default:"10"`
	// ConnMaxLifetime 连接最大生命周期，支持格式：30m（分钟）、1h（小时）
	ConnMaxLifetime string `yaml:"conn-max-lifetime" default:"30m"`
	// ConnMaxIdleTime 空闲连接最大生命周期
	ConnMaxIdleTime string `yaml:"conn-max-idle-time" default:"10m"`
}

// MemoryConfig 条数限制
type MemoryConfig struct {
	// DefaultSearchLimit 检索默认条数
	DefaultSearchLimit int `yaml:"default-search-limit" default:"10"`
	// DefaultListLimit 列表默认条数
	DefaultListLimit int `yaml:"default-list-limit" default:"50"`
	// MaxSearchResults 任意 limit 的上限
	MaxSearchResults int `yaml:"max-search-results" default:"100"`
}

// AppSettings 应用设置
type AppSettings struct {
	// DefaultContextTimeout 单个请求的超时时间（秒），0 表示不限制
	DefaultContextTimeout int `yaml:"default-context-timeout" default:"30"`
	// WriteQueueCapacity 写队列容量
	WriteQueueCapacity int `yaml:"write-queue-capacity" default:"256"`
	// WriteQueueTimeout 单次写操作超时
	WriteQueueTimeout string `yaml:"write-queue-timeout" default:"30s"`
	// RateLimitCapacity 每个客户端令牌桶容量，0 表示不限流
	RateLimitCapacity int64 `yaml:"rate-limit-capacity" default:"100"`
	// RateLimitFillInterval 令牌补充间隔
	RateLimitFillInterval string `yaml:"rate-limit-fill-interval" default:"100ms"`
	// CorsAllowOrigins 允许的跨域来源，为空允许所有
	CorsAllowOrigins []string `yaml:"cors-allow-origins"`
	// StatsInterval 条目统计指标的刷新间隔，0 表示不刷新
	StatsInterval string `yaml:"stats-interval" default:"1m"`
}

// TracerConfig 请求追踪配置
type TracerConfig struct {
	// Header 追踪 ID 请求头名称，默认 X-Trace-ID
	Header string `yaml:"header" default:"X-Trace-ID"`
}

// NewDefaultConfig 只有默认值的配置
func NewDefaultConfig() (*AppConfig, error) {
	c := new(AppConfig)
	if err := defaults.Set(c); err != nil {
		return nil, errors.Wrap(err, "set default config failed")
	}
	return c, nil
}

// LoadConfig 从文件加载配置
// 返回配置实例和配置文件的绝对路径
// 顺序：默认值 -> YAML -> 默认值 -> 环境变量
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	c := new(AppConfig)
	c.File = realpath

	// 设置默认值
	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "set default config failed")
	}

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	err = yaml.Unmarshal(file, c)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "parse config file failed")
	}

	// 再次设置默认值，以填充 YAML 中存在但值为空的字段
	// defaults.Set 只有在字段为该类型的零值时才会填充
	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "re-set default config failed")
	}

	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, realpath, err
	}

	return c, realpath, nil
}

// LoadEnvFile 加载 .env 文件，文件不存在时忽略
// 已存在的环境变量不会被覆盖
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "stat env file failed")
	}
	return errors.Wrap(godotenv.Load(path), "load env file failed")
}

// ApplyEnv 使用 MEMORY_* 环境变量覆盖配置
func (c *AppConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Errorf("%s%s must be an integer, got %q", EnvPrefix, name, v)
		}
		*dst = n
		return nil
	}

	str("DB_PATH", &c.Database.Path)
	str("DB_TYPE", &c.Database.Type)
	str("SERVER_HOST", &c.Server.Host)
	str("PRIVATE_LISTEN", &c.Server.PrivateHttpListen)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("RUN_MODE", &c.Server.RunMode)

	for name, dst := range map[string]*int{
		"SERVER_PORT":        &c.Server.HttpPort,
		"MCP_PORT":           &c.Server.McpPort,
		"MAX_SEARCH_RESULTS": &c.Memory.MaxSearchResults,
		"READ_TIMEOUT":       &c.Server.ReadTimeout,
		"WRITE_TIMEOUT":      &c.Server.WriteTimeout,
		"REQUEST_TIMEOUT":    &c.App.DefaultContextTimeout,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate 检查配置取值
func (c *AppConfig) Validate() error {
	if err := checkPort("server.http-port", c.Server.HttpPort, false); err != nil {
		return err
	}
	if err := checkPort("server.mcp-port", c.Server.McpPort, true); err != nil {
		return err
	}
	if c.Server.McpPort != 0 && c.Server.McpPort == c.Server.HttpPort {
		return errors.New("server.mcp-port must differ from server.http-port")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.App.DefaultContextTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}

	m := c.Memory
	if m.MaxSearchResults < 1 || m.MaxSearchResults > 1000 {
		return errors.Errorf("memory.max-search-results must be in 1..1000, got %d", m.MaxSearchResults)
	}
	if m.DefaultSearchLimit < 1 || m.DefaultSearchLimit > m.MaxSearchResults {
		return errors.Errorf("memory.default-search-limit must be in 1..%d, got %d", m.MaxSearchResults, m.DefaultSearchLimit)
	}
	if m.DefaultListLimit < 1 || m.DefaultListLimit > m.MaxSearchResults {
		return errors.Errorf("memory.default-list-limit must be in 1..%d, got %d", m.MaxSearchResults, m.DefaultListLimit)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return errors.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}

	switch c.Database.Type {
	case "sqlite", "mysql", "postgres":
	default:
		return errors.Errorf("database.type %q is not supported", c.Database.Type)
	}
	if c.Database.Type == "sqlite" && strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path is required for sqlite")
	}

	for name, v := range map[string]string{
		"app.write-queue-timeout":      c.App.WriteQueueTimeout,
		"app.rate-limit-fill-interval": c.App.RateLimitFillInterval,
		"app.stats-interval":           c.App.StatsInterval,
		"database.conn-max-lifetime":   c.Database.ConnMaxLifetime,
		"database.conn-max-idle-time":  c.Database.ConnMaxIdleTime,
	} {
		if v == "" {
			continue
		}
		if _, err := util.ParseDuration(v); err != nil {
			return errors.Wrapf(err, "%s", name)
		}
	}
	return nil
}

func checkPort(name string, port int, allowZero bool) error {
	if allowZero && port == 0 {
		return nil
	}
	if port < 1 || port > 65535 {
		return errors.Errorf("%s must be in 1..65535, got %d", name, port)
	}
	return nil
}

// Save 保存配置到文件
func (c *AppConfig) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}

	if err := os.MkdirAll(filepath.Dir(c.File), 0o755); err != nil {
		return errors.Wrap(err, "create config dir failed")
	}
	err = os.WriteFile(c.File, data, 0644)
	if err != nil {
		return errors.Wrap(err, "write config file failed")
	}

	return nil
}

// HttpAddr REST 监听地址
func (c *AppConfig) HttpAddr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.HttpPort)
}

// McpAddr MCP HTTP 监听地址
func (c *AppConfig) McpAddr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.McpPort)
}

// GetDatabaseConfig 转换为 dao.DatabaseConfig
func (c *AppConfig) GetDatabaseConfig() dao.DatabaseConfig {
	return dao.DatabaseConfig{
		Type:            c.Database.Type,
		Path:            c.Database.Path,
		UserName:        c.Database.UserName,
		Password:        c.Database.Password,
		Host:            c.Database.Host,
		Name:            c.Database.Name,
		TablePrefix:     c.Database.TablePrefix,
		Charset:         c.Database.Charset,
		ParseTime:       c.Database.ParseTime,
		BusyTimeout:     c.Database.BusyTimeout,
		MaxIdleConns:    c.Database.MaxIdleConns,
		MaxOpenConns:    c.Database.MaxOpenConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		ConnMaxIdleTime: c.Database.ConnMaxIdleTime,
		RunMode:         c.Server.RunMode,
	}
}

// GetWriteQueueConfig 获取 Write Queue 配置
func (c *AppConfig) GetWriteQueueConfig() writequeue.Config {
	cfg := writequeue.DefaultConfig()

	if c.App.WriteQueueCapacity > 0 {
		cfg.QueueCapacity = c.App.WriteQueueCapacity
	}
	if c.App.WriteQueueTimeout != "" {
		if timeout, err := util.ParseDuration(c.App.WriteQueueTimeout); err == nil {
			cfg.WriteTimeout = timeout
		}
	}

	return cfg
}

// GetServiceConfig 提取 Service 层需要的配置
func (c *AppConfig) GetServiceConfig() *service.ServiceConfig {
	return &service.ServiceConfig{
		Memory: service.MemoryServiceConfig{
			DefaultSearchLimit: c.Memory.DefaultSearchLimit,
			DefaultListLimit:   c.Memory.DefaultListLimit,
			MaxResults:         c.Memory.MaxSearchResults,
		},
	}
}

// GetRateLimitFillInterval 令牌补充间隔
func (c *AppConfig) GetRateLimitFillInterval() time.Duration {
	if d, err := util.ParseDuration(c.App.RateLimitFillInterval); err == nil && d > 0 {
		return d
	}
	return 100 * time.Millisecond
}

// GetStatsInterval 统计任务间隔，<=0 表示不启用
func (c *AppConfig) GetStatsInterval() (time.Duration, error) {
	if strings.TrimSpace(c.App.StatsInterval) == "" {
		return 0, nil
	}
	d, err := util.ParseDuration(c.App.StatsInterval)
	if err != nil {
		return 0, errors.Wrap(err, "app.stats-interval")
	}
	return d, nil
}

// GetContextTimeout 请求超时
func (c *AppConfig) GetContextTimeout() time.Duration {
	return time.Duration(c.App.DefaultContextTimeout) * time.Second
}
