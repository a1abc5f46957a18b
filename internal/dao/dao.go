// Package dao 实现数据访问层
package dao

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/haierkeys/memory-server/internal/model"
	"github.com/haierkeys/memory-server/pkg/util"
	"github.com/haierkeys/memory-server/pkg/writequeue"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Type 数据库类型 sqlite/mysql/postgres
	Type string
	// Path SQLite 数据库文件路径
	Path string
	// UserName 用户名
	UserName string
	// Password 密码
	Password string
	// Host 主机，可带端口
	Host string
	// Name 数据库名
	Name string
	// TablePrefix 表前缀
	TablePrefix string
	// Charset 字符集
	Charset string
	// ParseTime 是否解析时间
	ParseTime bool
	// BusyTimeout SQLite 等锁时间（毫秒）
	BusyTimeout int
	// MaxIdleConns 最大闲置连接数
	MaxIdleConns int
	// MaxOpenConns 最大打开连接数
	MaxOpenConns int
	// ConnMaxLifetime 连接最大生命周期，如 30m
	ConnMaxLifetime string
	// ConnMaxIdleTime 空闲连接最大生命周期，如 10m
	ConnMaxIdleTime string
	// RunMode 运行模式，debug 时输出 SQL
	RunMode string
}

type Dao struct {
	Db         *gorm.DB
	logger     *zap.Logger
	writeQueue *writequeue.Queue
}

// Option Dao 配置选项
type Option func(*Dao)

// WithLogger 设置日志器
func WithLogger(lg *zap.Logger) Option {
	return func(d *Dao) {
		d.logger = lg
	}
}

// WithWriteQueue 设置写队列
func WithWriteQueue(q *writequeue.Queue) Option {
	return func(d *Dao) {
		d.writeQueue = q
	}
}

// New 创建 Dao，并在 ctx 下执行一次表结构检查
func New(db *gorm.DB, ctx context.Context, opts ...Option) (*Dao, error) {
	d := &Dao{Db: db}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.writeQueue == nil {
		d.writeQueue = writequeue.New(nil, d.logger)
	}

	if err := model.EnsureSchema(db.WithContext(ctx)); err != nil {
		return nil, err
	}
	return d, nil
}

// DB 返回数据库连接
func (d *Dao) DB() *gorm.DB {
	return d.Db
}

// WriteQueue 返回写队列
func (d *Dao) WriteQueue() *writequeue.Queue {
	return d.writeQueue
}

// ExecuteWrite 通过写队列在事务中执行写操作
// 同一存储的写操作串行执行，读操作直接走 Db
func (d *Dao) ExecuteWrite(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.writeQueue.Execute(ctx, func(ctx context.Context) error {
		return d.Db.WithContext(ctx).Transaction(fn)
	})
}

// NewDBEngineWithConfig 根据配置打开数据库连接
func NewDBEngineWithConfig(c DatabaseConfig, lg *zap.Logger) (*gorm.DB, error) {
	dialector, err := useDialector(c)
	if err != nil {
		return nil, err
	}

	gormLogger := logger.Discard
	if c.RunMode == "debug" && lg != nil {
		gormLogger = logger.New(zapWriter{lg: lg.Sugar()}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   c.TablePrefix, // 表名前缀
			SingularTable: true,          // 使用单数表名
		},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", c.Type)
	}

	// 获取通用数据库对象 sql.DB ，然后使用其提供的功能
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if c.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	if lifetime, err := util.ParseDuration(c.ConnMaxLifetime); err == nil && lifetime > 0 {
		sqlDB.SetConnMaxLifetime(lifetime)
	}
	if idle, err := util.ParseDuration(c.ConnMaxIdleTime); err == nil && idle > 0 {
		sqlDB.SetConnMaxIdleTime(idle)
	}

	return db, nil
}

func useDialector(c DatabaseConfig) (gorm.Dialector, error) {
	switch c.Type {
	case "mysql":
		charset := c.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=%s&parseTime=%t&loc=UTC",
			c.UserName,
			c.Password,
			c.Host,
			c.Name,
			charset,
			c.ParseTime,
		)), nil
	case "postgres":
		host, port := c.Host, "5432"
		if h, p, err := net.SplitHostPort(c.Host); err == nil {
			host, port = h, p
		}
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			host,
			c.UserName,
			c.Password,
			c.Name,
			port,
		)), nil
	case "sqlite", "":
		if dir := filepath.Dir(c.Path); dir != "" {
			if err := os.MkdirAll(dir, 0754); err != nil {
				return nil, errors.Wrap(err, "create database directory")
			}
		}
		busy := c.BusyTimeout
		if busy <= 0 {
			busy = 5000
		}
		return sqlite.Open(fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", c.Path, busy)), nil
	}
	return nil, errors.Errorf("unsupported database type %q", c.Type)
}

// zapWriter 将 gorm 日志输出到 zap
type zapWriter struct {
	lg *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...any) {
	w.lg.Debugf(format, args...)
}
