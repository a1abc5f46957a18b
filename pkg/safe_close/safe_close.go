// Package safe_close coordinates shutdown of long running goroutines
// Package safe_close 协调长时间运行的 goroutine 的关闭
package safe_close

import (
	"sync"
)

// SafeClose 关闭协调器
// 每个通过 Attach 注册的函数会收到同一个关闭信号，全部 done 之后 WaitClosed 返回
type SafeClose struct {
	closeSignal chan struct{}
	once        sync.Once
	wg          sync.WaitGroup

	mu  sync.Mutex
	err error
}

func NewSafeClose() *SafeClose {
	return &SafeClose{
		closeSignal: make(chan struct{}),
	}
}

// Attach 注册一个随关闭信号退出的函数
func (s *SafeClose) Attach(fn func(done func(), closeSignal <-chan struct{})) {
	s.wg.Add(1)
	var once sync.Once
	done := func() {
		once.Do(s.wg.Done)
	}
	go fn(done, s.closeSignal)
}

// SendCloseSignal 发送关闭信号，只有第一次调用生效
// err 记录触发关闭的原因，可以为 nil
func (s *SafeClose) SendCloseSignal(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.closeSignal)
	})
}

// CloseSignal 返回关闭信号 channel
func (s *SafeClose) CloseSignal() <-chan struct{} {
	return s.closeSignal
}

// WaitClosed 等待所有注册的函数退出，返回触发关闭的错误
func (s *SafeClose) WaitClosed() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
