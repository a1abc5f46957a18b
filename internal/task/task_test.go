package task

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haierkeys/memory-server/internal/app"
	"github.com/haierkeys/memory-server/internal/dao"
	"github.com/haierkeys/memory-server/internal/dto"
	"github.com/haierkeys/memory-server/pkg/metrics"
	"github.com/haierkeys/memory-server/pkg/safe_close"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingTask struct {
	runs     atomic.Int32
	interval time.Duration
	fail     bool
	panics   bool
}

func (t *countingTask) Name() string                { return "counting" }
func (t *countingTask) LoopInterval() time.Duration { return t.interval }
func (t *countingTask) IsStartupRun() bool          { return true }
func (t *countingTask) Run(ctx context.Context) error {
	t.runs.Add(1)
	if t.panics {
		panic("boom")
	}
	if t.fail {
		return errors.New("failed")
	}
	return nil
}

func TestSchedulerRunsAndStops(t *testing.T) {
	sc := safe_close.NewSafeClose()
	s := NewScheduler(zap.NewNop(), sc)
	loop := &countingTask{interval: 10 * time.Millisecond}
	once := &countingTask{fail: true}
	s.AddTask(loop)
	s.AddTask(once)
	s.Start()

	assert.Eventually(t, func() bool { return loop.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)

	sc.SendCloseSignal(nil)
	require.NoError(t, sc.WaitClosed())
	assert.Equal(t, int32(1), once.runs.Load())

	after := loop.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, loop.runs.Load())
}

func TestSchedulerRecoversPanic(t *testing.T) {
	sc := safe_close.NewSafeClose()
	s := NewScheduler(zap.NewNop(), sc)
	p := &countingTask{interval: 10 * time.Millisecond, panics: true}
	s.AddTask(p)
	s.Start()

	assert.Eventually(t, func() bool { return p.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	sc.SendCloseSignal(nil)
	require.NoError(t, sc.WaitClosed())
}

func newTestApp(t *testing.T, interval string) *app.App {
	t.Helper()
	c, err := app.NewDefaultConfig()
	require.NoError(t, err)
	c.Database.Path = filepath.Join(t.TempDir(), "memory.db")
	c.App.StatsInterval = interval

	db, err := dao.NewDBEngineWithConfig(c.GetDatabaseConfig(), nil)
	require.NoError(t, err)

	a, err := app.NewApp(c, zap.NewNop(), db, app.WithMetrics(metrics.New(nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func TestEntryStatsTask(t *testing.T) {
	a := newTestApp(t, "1m")
	for _, c := range []string{"a", "b"} {
		_, err := a.MemoryService.Create(context.Background(), &dto.MemoryCreateRequest{Content: c})
		require.NoError(t, err)
	}

	task, err := NewEntryStatsTask(a)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, time.Minute, task.LoopInterval())

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.Metrics().Entries))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics().DatabaseUp))

	require.NoError(t, a.Close())
	assert.Error(t, task.Run(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(a.Metrics().DatabaseUp))
}

func TestEntryStatsTaskDisabled(t *testing.T) {
	task, err := NewEntryStatsTask(newTestApp(t, "0"))
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestManagerRegistersTasks(t *testing.T) {
	sc := safe_close.NewSafeClose()
	m := NewManager(zap.NewNop(), sc, newTestApp(t, "1h"))
	require.NoError(t, m.RegisterTasks())
	require.Len(t, m.scheduler.Tasks(), 1)
	assert.Equal(t, "EntryStats", m.scheduler.Tasks()[0].Name())
}
