package safe_close

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeClose_WaitsForAllAttached(t *testing.T) {
	sc := NewSafeClose()
	var stopped atomic.Int32

	for i := 0; i < 3; i++ {
		sc.Attach(func(done func(), closeSignal <-chan struct{}) {
			defer done()
			<-closeSignal
			stopped.Add(1)
		})
	}

	cause := errors.New("listener failed")
	sc.SendCloseSignal(cause)
	// Second signal is ignored
	// 第二次信号被忽略
	sc.SendCloseSignal(nil)

	assert.Equal(t, cause, sc.WaitClosed())
	assert.Equal(t, int32(3), stopped.Load())
}

func TestSafeClose_DoneIsIdempotent(t *testing.T) {
	sc := NewSafeClose()
	sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		done()
		done()
	})
	sc.SendCloseSignal(nil)
	assert.NoError(t, sc.WaitClosed())
}
