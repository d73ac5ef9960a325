// Package gfxctx runs every graphics operation on one OS thread. Work is
// submitted as tasks that execute in submission order.
package gfxctx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/fosdem/glbacking/lib/rendering/gpu"
	"github.com/fosdem/glbacking/lib/rendering/shaders"
	"github.com/fosdem/glbacking/lib/utils"
)

var ErrClosed = errors.New("graphics context closed")

const defaultQueueSize = 64

// Future is the result of a task.
type Future struct {
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Failed returns a future that is already complete with err.
func Failed(err error) *Future {
	f := newFuture()
	f.complete(err)
	return f
}

func (f *Future) complete(err error) {
	f.err = err
	close(f.done)
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the task error once Done is closed.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Task func(dev gpu.Device) error

type task struct {
	name string
	fn   Task
	fut  *Future
}

type Options struct {
	// Open creates the device. It runs on the owning thread after
	// MakeCurrent.
	Open        func() (gpu.Device, error)
	MakeCurrent func() error
	// Detach runs on the owning thread after the device is released.
	Detach    func()
	QueueSize int
	Logger    *slog.Logger
}

// Context owns a gpu.Device and the compiled programs shared by every
// backing drawing with it.
type Context struct {
	log      *slog.Logger
	tasks    chan *task
	programs *shaders.Programs
	shaders  *shaders.Manager
	caps     gpu.Caps

	// guards closing of the tasks channel against concurrent Submit
	mu     sync.RWMutex
	closed bool

	ownerTid atomic.Int64
	stopped  chan struct{}
}

// New starts the owning goroutine, opens the device and compiles every
// program. Compilation failures are fatal and returned here.
func New(opts Options) (*Context, error) {
	if opts.Open == nil {
		return nil, fmt.Errorf("no device constructor given")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	log := opts.Logger.With(slog.String("module", "gfxctx"))
	mgr, err := shaders.NewManager(log)
	if err != nil {
		return nil, err
	}

	c := &Context{
		log:     log,
		tasks:   make(chan *task, opts.QueueSize),
		shaders: mgr,
		stopped: make(chan struct{}),
	}

	ready := make(chan error, 1)
	go c.run(opts, ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) run(opts Options, ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(c.stopped)

	c.ownerTid.Store(int64(utils.ThreadID()))

	if opts.MakeCurrent != nil {
		if err := opts.MakeCurrent(); err != nil {
			ready <- fmt.Errorf("could not make graphics context current: %w", err)
			return
		}
	}
	detach := func() {
		if opts.Detach != nil {
			opts.Detach()
		}
	}

	dev, err := opts.Open()
	if err != nil {
		detach()
		ready <- fmt.Errorf("could not open graphics device: %w", err)
		return
	}
	programs, err := c.shaders.CompileAll(dev)
	if err != nil {
		dev.Release()
		detach()
		ready <- fmt.Errorf("could not compile shaders: %w", err)
		return
	}
	c.programs = programs
	c.caps = dev.Caps()
	ready <- nil

	for t := range c.tasks {
		err := c.execute(dev, t)
		t.fut.complete(err)
	}

	c.shaders.Release(dev, programs)
	dev.Release()
	detach()
	c.log.Debug("graphics context stopped")
}

func (c *Context) execute(dev gpu.Device, t *task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.name, r)
			c.log.Error("task panicked", slog.String("task", t.name), slog.Any("panic", r))
		}
	}()
	return t.fn(dev)
}

// Submit queues fn for execution on the owning thread. It blocks while
// the queue is full. After Close the returned future fails with ErrClosed.
func (c *Context) Submit(name string, fn Task) *Future {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return Failed(fmt.Errorf("%s: %w", name, ErrClosed))
	}
	t := &task{name: name, fn: fn, fut: newFuture()}
	c.tasks <- t
	return t.fut
}

// Do submits fn and waits for it.
func (c *Context) Do(ctx context.Context, name string, fn Task) error {
	return c.Submit(name, fn).Wait(ctx)
}

// Close drains the queued tasks, releases the device and waits for the
// owning goroutine to exit. It must not be called from a task.
func (c *Context) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.tasks)
	}
	c.mu.Unlock()
	<-c.stopped
}

func (c *Context) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Programs are only valid on the owning thread.
func (c *Context) Programs() *shaders.Programs {
	return c.programs
}

func (c *Context) Caps() gpu.Caps {
	return c.caps
}

// OnOwnerThread reports whether the caller runs on the owning thread.
// Platforms without thread ids always report true.
func (c *Context) OnOwnerThread() bool {
	tid := utils.ThreadID()
	return tid == 0 || int64(tid) == c.ownerTid.Load()
}

// AssertOwner panics when called off the owning thread.
func (c *Context) AssertOwner(op string) {
	if !c.OnOwnerThread() {
		panic(fmt.Sprintf("%s called outside the graphics thread", op))
	}
}
