package signals

import (
	"time"

	"golang.org/x/sys/unix"
)

const trailTimeLayout = "2006-01-02 15:04:05"

// Trail is an append-only event log written with one raw write per event.
//
// The file is opened, written and closed for each event so no descriptor is shared
// between the dispatcher and ordinary code.
type Trail struct {
	path string
}

func NewTrail(path string) *Trail {
	return &Trail{path: path}
}

func (t *Trail) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Record appends `YYYY-MM-DD HH:MM:SS - msg`. Failures are dropped.
func (t *Trail) Record(msg string) {
	if t == nil || t.path == "" {
		return
	}
	var buf [512]byte
	line := time.Now().AppendFormat(buf[:0], trailTimeLayout)
	line = append(line, " - "...)
	line = append(line, msg...)
	line = append(line, '\n')

	fd, err := unix.Open(t.path, unix.O_WRONLY|unix.O_CREAT|unix.O_APPEND|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return
	}
	_, _ = unix.Write(fd, line)
	_ = unix.Close(fd)
}
