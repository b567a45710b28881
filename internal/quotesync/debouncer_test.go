package quotesync

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerRunsOnlyLastArm(t *testing.T) {
	var d Debouncer
	var last atomic.Int32
	var runs atomic.Int32

	for i := int32(1); i <= 5; i++ {
		d.Arm(20*time.Millisecond, func() {
			last.Store(i)
			runs.Add(1)
		})
	}

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, int32(5), last.Load())
}

func TestDebouncerCancel(t *testing.T) {
	var d Debouncer
	var ran atomic.Bool

	d.Arm(10*time.Millisecond, func() { ran.Store(true) })
	d.Cancel()

	time.Sleep(40 * time.Millisecond)
	assert.False(t, ran.Load())
}
