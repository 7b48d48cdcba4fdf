package signals

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// ProcessStatus is a snapshot of one registered child server process.
type ProcessStatus struct {
	PID    int    `json:"pid"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type process struct {
	pid  int
	name string
	// reaped on SIGCHLD with wait4; children started by Spawn are reaped by their Cmd.
	reapOnSignal bool
	active       atomic.Bool
}

// Register records an already-running child process. Its exit is detected on SIGCHLD.
func (c *Coordinator) Register(pid int, name string) {
	c.register(pid, name, true)
}

// Spawn starts cmd, registers it under name and watches for its exit.
func (c *Coordinator) Spawn(name string, cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("signals: spawn %s: %w", name, err)
	}
	pid := cmd.Process.Pid
	c.register(pid, name, false)
	go func() {
		_ = cmd.Wait()
		c.childExited(pid)
	}()
	return nil
}

func (c *Coordinator) register(pid int, name string, reapOnSignal bool) {
	p := &process{pid: pid, name: name, reapOnSignal: reapOnSignal}
	p.active.Store(true)

	c.regMu.Lock()
	var next []*process
	if cur := c.registry.Load(); cur != nil {
		next = make([]*process, len(*cur), len(*cur)+1)
		copy(next, *cur)
	}
	next = append(next, p)
	c.registry.Store(&next)
	c.regMu.Unlock()

	c.trail.Record("Registered server: " + name + " (PID: " + strconv.Itoa(pid) + ")")
}

// childExited runs in notification context: counter increment, one atomic flip, one trail append.
func (c *Coordinator) childExited(pid int) {
	c.childExits.Add(1)
	procs := c.registry.Load()
	if procs == nil {
		return
	}
	for _, p := range *procs {
		if p.pid == pid && p.active.CompareAndSwap(true, false) {
			c.trail.Record("Child process terminated: " + p.name + " (PID: " + strconv.Itoa(pid) + ")")
			return
		}
	}
}

// reapRegistered polls every signal-reaped child without blocking.
func (c *Coordinator) reapRegistered() {
	procs := c.registry.Load()
	if procs == nil {
		return
	}
	for _, p := range *procs {
		if !p.reapOnSignal || !p.active.Load() {
			continue
		}
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(p.pid, &ws, unix.WNOHANG, nil)
		if err == nil && wpid == p.pid {
			c.childExited(p.pid)
		}
	}
}

// ChildExits is the number of child exit notifications observed.
func (c *Coordinator) ChildExits() int {
	return int(c.childExits.Load())
}

// Active reports whether the first process registered under name is still running.
func (c *Coordinator) Active(name string) bool {
	procs := c.registry.Load()
	if procs == nil {
		return false
	}
	for _, p := range *procs {
		if p.name == name {
			return p.active.Load()
		}
	}
	return false
}

// Status returns the registry in registration order.
func (c *Coordinator) Status() []ProcessStatus {
	procs := c.registry.Load()
	if procs == nil {
		return nil
	}
	out := make([]ProcessStatus, 0, len(*procs))
	for _, p := range *procs {
		out = append(out, ProcessStatus{PID: p.pid, Name: p.name, Active: p.active.Load()})
	}
	return out
}

// WriteStatus renders the registry as an operator table.
func (c *Coordinator) WriteStatus(w io.Writer) {
	fmt.Fprintln(w, "\n=== Server Status ===")
	for _, p := range c.Status() {
		state := "ACTIVE"
		if !p.Active {
			state = "TERMINATED"
		}
		fmt.Fprintf(w, "%s (PID: %d): %s\n", p.Name, p.PID, state)
	}
	fmt.Fprintln(w, "====================")
}
