// Package writequeue provides a single store-level write queue
// Package writequeue 提供存储级别的单一写队列
// All mutations of one store are executed one at a time in FIFO order by a single worker,
// which keeps SQLite away from "database is locked" while readers stay concurrent
// 同一个存储的所有写操作由一个 worker 按 FIFO 顺序逐个执行，读操作不经过队列
package writequeue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Error definitions
// 错误定义
var (
	// ErrWriteQueueClosed returned when the queue is shut down
	// ErrWriteQueueClosed 当写队列已关闭时返回
	ErrWriteQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout returned when the operation could not finish in time
	// ErrWriteTimeout 当写操作超时时返回
	ErrWriteTimeout = errors.New("write operation timeout")
)

// Config write queue configuration
// Config 写队列配置
type Config struct {
	// QueueCapacity pending operation buffer, default 256
	// QueueCapacity 等待中的操作缓冲区大小，默认 256
	QueueCapacity int
	// WriteTimeout applied when the caller context has no deadline, default 30 seconds
	// WriteTimeout 调用方 context 没有截止时间时使用，默认 30 秒
	WriteTimeout time.Duration
}

// DefaultConfig returns default configuration
// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 256,
		WriteTimeout:  30 * time.Second,
	}
}

// operation states
// 操作状态
const (
	opPending int32 = iota
	opRunning
	opCancelled
)

// writeOp write operation
// writeOp 写操作
type writeOp struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	state  atomic.Int32
	result chan error
}

// Queue serializes write operations of one store
// Queue 串行化单个存储的写操作
type Queue struct {
	config Config
	logger *zap.Logger

	ch      chan *writeOp
	stopCh  chan struct{}
	stopped chan struct{}

	mu     sync.RWMutex
	closed bool

	executed atomic.Int64
}

// New creates the write queue and starts its worker
// New 创建写队列并启动 worker
// cfg: configuration, if nil use default configuration
// cfg: 配置，如果为 nil 则使用默认配置
// logger: zap logger, if nil use nop logger
// logger: zap 日志器，如果为 nil 则使用 nop logger
func New(cfg *Config, logger *zap.Logger) *Queue {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &Queue{
		config:  *cfg,
		logger:  logger,
		ch:      make(chan *writeOp, cfg.QueueCapacity),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}

	go q.worker()

	q.logger.Debug("write queue started",
		zap.Int("queueCapacity", cfg.QueueCapacity),
		zap.Duration("writeTimeout", cfg.WriteTimeout))

	return q
}

// Execute runs fn on the queue worker and waits for its result
// Once fn has started it always runs to completion and its result is returned,
// so a caller never sees an error for a write that was actually applied
// Execute 在队列 worker 上执行 fn 并等待结果
// fn 一旦开始执行就会完整执行并返回其结果，调用方不会对已生效的写操作收到错误
func (q *Queue) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrWriteQueueClosed
	}
	q.mu.RUnlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.config.WriteTimeout)
		defer cancel()
	}

	op := &writeOp{
		ctx:    ctx,
		fn:     fn,
		result: make(chan error, 1),
	}

	// Submit, waiting for buffer space if needed
	// 提交操作，缓冲区满时等待
	select {
	case q.ch <- op:
	case <-ctx.Done():
		return contextErr(ctx)
	case <-q.stopped:
		return ErrWriteQueueClosed
	}

	select {
	case err := <-op.result:
		return err
	case <-ctx.Done():
		if op.state.CompareAndSwap(opPending, opCancelled) {
			return contextErr(ctx)
		}
		// Already running, wait for the real outcome
		// 已经开始执行，等待真实结果
		return <-op.result
	case <-q.stopped:
		if op.state.CompareAndSwap(opPending, opCancelled) {
			return ErrWriteQueueClosed
		}
		return <-op.result
	}
}

func contextErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrWriteTimeout
	}
	return ctx.Err()
}

// worker executes queued operations one by one
// worker 逐个执行队列中的操作
func (q *Queue) worker() {
	defer close(q.stopped)
	for {
		select {
		case <-q.stopCh:
			q.drain()
			return
		case op := <-q.ch:
			q.executeOp(op)
		}
	}
}

// executeOp executes single write operation
// executeOp 执行单个写操作
func (q *Queue) executeOp(op *writeOp) {
	if !op.state.CompareAndSwap(opPending, opRunning) {
		// Caller gave up before the operation started
		// 调用方在操作开始前已放弃
		return
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				q.logger.Error("write operation panic", zap.Any("panic", r))
				err = errors.New("write operation panic")
			}
		}()
		// The operation is not interrupted by caller cancellation once started
		// 操作开始后不受调用方取消影响
		err = op.fn(context.WithoutCancel(op.ctx))
	}()

	q.executed.Add(1)
	op.result <- err
}

// drain executes operations already accepted before shutdown
// drain 执行关闭前已接收的操作
func (q *Queue) drain() {
	for {
		select {
		case op := <-q.ch:
			q.executeOp(op)
		default:
			return
		}
	}
}

// Shutdown stops accepting new operations and waits for queued ones to finish
// Shutdown 停止接收新操作并等待已排队的操作完成
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	close(q.stopCh)

	select {
	case <-q.stopped:
		q.logger.Debug("write queue shutdown completed")
		return nil
	case <-ctx.Done():
		q.logger.Warn("write queue shutdown timeout")
		return ctx.Err()
	}
}

// Pending returns number of operations waiting in the queue
// Pending 返回队列中等待的操作数
func (q *Queue) Pending() int {
	return len(q.ch)
}

// Executed returns number of operations executed so far
// Executed 返回已执行的操作总数
func (q *Queue) Executed() int64 {
	return q.executed.Load()
}

// IsClosed returns if the queue is closed
// IsClosed 返回队列是否已关闭
func (q *Queue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
