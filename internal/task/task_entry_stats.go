package task

import (
	"context"
	"time"

	"github.com/haierkeys/memory-server/internal/app"
	"github.com/haierkeys/memory-server/pkg/logger"

	"go.uber.org/zap"
)

// EntryStatsTask 定时刷新条目数和数据库状态指标
type EntryStatsTask struct {
	app      *app.App
	interval time.Duration
}

// Name 返回任务名称
func (t *EntryStatsTask) Name() string {
	return "EntryStats"
}

// LoopInterval 返回执行间隔
func (t *EntryStatsTask) LoopInterval() time.Duration {
	return t.interval
}

// IsStartupRun 是否立即执行一次
func (t *EntryStatsTask) IsStartupRun() bool {
	return true
}

// Run 读取统计并写入 gauge
// 数据库不可用时 database_up 置 0，错误返回给调度器记录
func (t *EntryStatsTask) Run(ctx context.Context) error {
	stats, err := t.app.MemoryService.Stats(ctx)
	if err != nil {
		t.app.Metrics().SetStoreStats(false, 0)
		return err
	}
	t.app.Metrics().SetStoreStats(stats.DatabaseOK, stats.Entries)
	t.app.Logger().Debug("task log",
		zap.String("task", t.Name()),
		zap.Int64(logger.FieldCount, stats.Entries))
	return nil
}

// NewEntryStatsTask 创建统计任务，间隔 <=0 时不启用
func NewEntryStatsTask(appContainer *app.App) (Task, error) {
	interval, err := appContainer.Config().GetStatsInterval()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, nil
	}
	return &EntryStatsTask{app: appContainer, interval: interval}, nil
}

// init 自动注册统计任务
func init() {
	RegisterWithApp(func(appContainer *app.App) (Task, error) {
		return NewEntryStatsTask(appContainer)
	})
}
