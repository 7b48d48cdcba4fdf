package signals

import "time"

// Arm starts the process-wide alarm, replacing any armed one, and clears the timeout flag.
func (c *Coordinator) Arm(d time.Duration) {
	c.alarmMu.Lock()
	defer c.alarmMu.Unlock()
	c.timedOut.Store(false)
	if c.alarm != nil {
		c.alarm.Stop()
		c.alarm = nil
	}
	if d <= 0 {
		return
	}
	c.alarm = time.AfterFunc(d, c.onAlarm)
}

// Disarm cancels the armed alarm, if any.
func (c *Coordinator) Disarm() {
	c.alarmMu.Lock()
	defer c.alarmMu.Unlock()
	if c.alarm != nil {
		c.alarm.Stop()
		c.alarm = nil
	}
}

// TimedOut reports whether the last armed alarm fired.
func (c *Coordinator) TimedOut() bool {
	return c.timedOut.Load()
}

func (c *Coordinator) onAlarm() {
	c.timedOut.Store(true)
	c.raw("SIGALRM fired!\n")
	c.trail.Record("SIGALRM received - operation timed out")
}

// WithTimeout arms the alarm for d, runs op, and disarms on every path. It reports
// success only when op succeeded and the alarm did not fire.
func (c *Coordinator) WithTimeout(d time.Duration, op func() bool) bool {
	c.Arm(d)
	defer c.Disarm()
	ok := op()
	return ok && !c.TimedOut()
}
