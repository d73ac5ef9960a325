package gfxctx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/fosdem/glbacking/lib/rendering/softdevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSoft(t *testing.T) (*Context, *softdevice.Device) {
	t.Helper()
	dev := softdevice.New()
	c, err := New(Options{Open: func() (gpu.Device, error) { return dev, nil }})
	require.NoError(t, err)
	return c, dev
}

func TestTasksRunInOrder(t *testing.T) {
	c, _ := newSoft(t)
	defer c.Close()

	var mu sync.Mutex
	var order []int
	var last *Future
	for i := 0; i < 100; i++ {
		i := i
		last = c.Submit("append", func(gpu.Device) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, last.Wait(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 100)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestTaskErrorAndPanic(t *testing.T) {
	c, _ := newSoft(t)
	defer c.Close()

	boom := errors.New("boom")
	err := c.Do(context.Background(), "fail", func(gpu.Device) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = c.Do(context.Background(), "panic", func(gpu.Device) error { panic("oops") })
	assert.ErrorContains(t, err, "oops")

	// the context survives both
	assert.NoError(t, c.Do(context.Background(), "ok", func(gpu.Device) error { return nil }))
}

func TestTasksRunOnOwnerThread(t *testing.T) {
	c, _ := newSoft(t)
	defer c.Close()

	var owner bool
	require.NoError(t, c.Do(context.Background(), "check", func(gpu.Device) error {
		owner = c.OnOwnerThread()
		return nil
	}))
	assert.True(t, owner)
	assert.NotPanics(t, func() {
		_ = c.Do(context.Background(), "assert", func(gpu.Device) error {
			c.AssertOwner("assert")
			return nil
		})
	})
}

func TestCloseDrainsAndReleases(t *testing.T) {
	c, dev := newSoft(t)

	ran := 0
	futures := make([]*Future, 0, 10)
	for i := 0; i < 10; i++ {
		futures = append(futures, c.Submit("count", func(gpu.Device) error {
			ran++
			return nil
		}))
	}
	c.Close()

	for _, f := range futures {
		assert.NoError(t, f.Err())
	}
	assert.Equal(t, 10, ran)
	assert.True(t, dev.Released())
	assert.True(t, c.Closed())

	err := c.Submit("late", func(gpu.Device) error { return nil }).Wait(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	// closing twice is harmless
	c.Close()
}

func TestWaitHonoursContext(t *testing.T) {
	c, _ := newSoft(t)
	defer c.Close()

	release := make(chan struct{})
	f := c.Submit("block", func(gpu.Device) error {
		<-release
		return nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.Wait(ctx), context.DeadlineExceeded)
	assert.NoError(t, f.Err())

	close(release)
	assert.NoError(t, f.Wait(context.Background()))
}

func TestOpenFailure(t *testing.T) {
	boom := errors.New("no display")
	_, err := New(Options{Open: func() (gpu.Device, error) { return nil, boom }})
	assert.ErrorIs(t, err, boom)

	_, err = New(Options{})
	assert.Error(t, err)
}

func TestMakeCurrentFailure(t *testing.T) {
	opened := false
	_, err := New(Options{
		MakeCurrent: func() error { return errors.New("busy") },
		Open: func() (gpu.Device, error) {
			opened = true
			return softdevice.New(), nil
		},
	})
	assert.Error(t, err)
	assert.False(t, opened)
}

func TestCapsAndPrograms(t *testing.T) {
	c, _ := newSoft(t)
	defer c.Close()

	assert.Equal(t, softdevice.DefaultMaxTextureSize, c.Caps().MaxTextureSize)
	require.NotNil(t, c.Programs())
	for k := 0; k < gpu.NumProgramKinds; k++ {
		assert.NotZero(t, c.Programs().Get(gpu.ProgramKind(k)))
	}
}
