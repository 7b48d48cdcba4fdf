package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	EventInitialized     = "Signal handlers initialized"
	EventShutdown        = "SIGINT received - initiating graceful shutdown"
	EventForcedExit      = "Second SIGINT received - forcing exit"
	EventBlocked         = "Signals blocked for critical section"
	EventUnblocked       = "Signals unblocked"
	noticeShutdown       = "\nShutdown requested. Completing current operation...\n"
	noticeForcedExit     = "\nForced exit. Terminating immediately.\n"
	DefaultTrailPath     = "signals.log"
	defaultNoticeFD  int = 1
)

// Options configure a Coordinator.
type Options struct {
	// TrailPath is the append-only event log; empty disables it.
	TrailPath string
	// NoticeFD receives raw operator notices; zero disables them.
	NoticeFD int
	// Exit terminates the process on a second interrupt.
	Exit func(code int)
}

func DefaultOptions() Options {
	return Options{
		TrailPath: DefaultTrailPath,
		NoticeFD:  defaultNoticeFD,
		Exit:      os.Exit,
	}
}

// Coordinator is the process-wide shutdown/timeout/child-exit state.
type Coordinator struct {
	shutdown   atomic.Bool
	timedOut   atomic.Bool
	childExits atomic.Int32

	masked  atomic.Int32
	pending atomic.Bool

	trail    *Trail
	noticeFD int
	exit     func(int)

	regMu    sync.Mutex
	registry atomic.Pointer[[]*process]

	alarmMu sync.Mutex
	alarm   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc

	sigs        chan os.Signal
	done        chan struct{}
	installOnce sync.Once
	stopOnce    sync.Once
}

func New(opts Options) *Coordinator {
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		trail:    NewTrail(opts.TrailPath),
		noticeFD: opts.NoticeFD,
		exit:     opts.Exit,
		ctx:      ctx,
		cancel:   cancel,
		sigs:     make(chan os.Signal, 8),
		done:     make(chan struct{}),
	}
}

// Install routes SIGINT, SIGTERM and SIGCHLD to the dispatcher.
func (c *Coordinator) Install() {
	c.installOnce.Do(func() {
		signal.Notify(c.sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGCHLD)
		go c.loop()
		c.trail.Record(EventInitialized)
	})
}

// Stop detaches from OS signals. Flags and the registry remain readable.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		signal.Stop(c.sigs)
		close(c.done)
	})
}

func (c *Coordinator) loop() {
	for {
		select {
		case sig := <-c.sigs:
			c.dispatch(sig)
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) dispatch(sig os.Signal) {
	switch sig {
	case syscall.SIGINT, syscall.SIGTERM:
		c.onInterrupt()
	case syscall.SIGCHLD:
		c.reapRegistered()
	}
}

func (c *Coordinator) onInterrupt() {
	c.pending.Store(true)
	if c.masked.Load() == 0 && c.pending.CompareAndSwap(true, false) {
		c.deliverInterrupt()
	}
}

func (c *Coordinator) deliverInterrupt() {
	if c.shutdown.CompareAndSwap(false, true) {
		c.trail.Record(EventShutdown)
		c.raw(noticeShutdown)
		c.cancel()
		return
	}
	c.trail.Record(EventForcedExit)
	c.raw(noticeForcedExit)
	c.exit(1)
}

// Interrupt delivers an interrupt as if the OS had sent one.
func (c *Coordinator) Interrupt() {
	c.onInterrupt()
}

// ShutdownRequested reports whether graceful shutdown has begun.
func (c *Coordinator) ShutdownRequested() bool {
	return c.shutdown.Load()
}

// Context is cancelled when shutdown is requested.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Block defers interrupt delivery until the matching Unblock. Sections nest.
func (c *Coordinator) Block() {
	c.masked.Add(1)
	c.trail.Record(EventBlocked)
}

// Unblock closes a critical section; a pending interrupt is delivered when the
// outermost section closes.
func (c *Coordinator) Unblock() {
	n := c.masked.Add(-1)
	if n < 0 {
		c.masked.Add(1)
		return
	}
	c.trail.Record(EventUnblocked)
	if n == 0 && c.pending.CompareAndSwap(true, false) {
		c.deliverInterrupt()
	}
}

// Critical runs fn with interrupt delivery deferred.
func (c *Coordinator) Critical(fn func()) {
	c.Block()
	defer c.Unblock()
	fn()
}

// Record appends msg to the event trail.
func (c *Coordinator) Record(msg string) {
	c.trail.Record(msg)
}

func (c *Coordinator) TrailPath() string {
	return c.trail.Path()
}

func (c *Coordinator) raw(msg string) {
	if c.noticeFD <= 0 {
		return
	}
	_, _ = unix.Write(c.noticeFD, []byte(msg))
}
