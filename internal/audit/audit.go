// Package audit appends one line per request to the log server's file.
package audit

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/danmuck/netbank/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPath = "system.log"

	MsgLogged     = "Logged successfully"
	MsgOpenFailed = "Failed to open log file"
)

// Log owns one append-only file. A single mutex serializes every append.
type Log struct {
	path string
	mu   sync.Mutex
	log  zerolog.Logger
}

func New(path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{
		path: path,
		log:  log.Logger.With().Str("component", "audit").Str("file", path).Logger(),
	}
}

func (l *Log) Path() string {
	return l.path
}

// Started writes the start banner.
func (l *Log) Started(port int) error {
	return l.append(fmt.Sprintf("=== Logging server started on port %d ===", port))
}

// Stopped writes the shutdown banner.
func (l *Log) Stopped() error {
	return l.append("=== Logging server shutdown ===")
}

// Line renders the entry recorded for req.
func Line(peer string, req protocol.Request) string {
	prefix := "[" + strconv.Itoa(req.SubjectID) + "]: "
	switch req.Kind {
	case protocol.KindLogin:
		return prefix + "logged in from " + peer
	case protocol.KindLogout:
		return prefix + "logged out from " + peer
	case protocol.KindDeposit:
		return prefix + "deposited " + formatAmount(req.Amount)
	case protocol.KindWithdraw:
		return prefix + "withdrew " + formatAmount(req.Amount)
	case protocol.KindBalance:
		return prefix + "viewed balance: " + formatAmount(req.Amount)
	case protocol.KindEarnInterest:
		return prefix + "accrued interest in all accounts"
	case protocol.KindUploadFile:
		return prefix + "uploaded file: " + req.Name
	case protocol.KindDownloadFile:
		return prefix + "downloaded file: " + req.Name
	default:
		return prefix + "unknown action (type=" + strconv.Itoa(int(req.Kind)) + ")"
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Serve records every non-Quit request, including kinds it does not recognize.
func (l *Log) Serve(peer string, req protocol.Request) protocol.Response {
	if err := l.append(Line(peer, req)); err != nil {
		l.log.Warn().Err(err).Str("peer", peer).Msg("audit append failed")
		return protocol.Failure(MsgOpenFailed)
	}
	return protocol.Response{OK: true, Message: MsgLogged}
}

func (l *Log) append(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
