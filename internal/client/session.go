package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/danmuck/netbank/internal/protocol"
	"github.com/danmuck/netbank/internal/protocol/channel"
	"github.com/danmuck/netbank/internal/protocol/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const NoUser = -1

var (
	ErrNotLoggedIn     = errors.New("client: not logged in")
	ErrAlreadyLoggedIn = errors.New("client: already logged in")
	ErrNotConnected    = errors.New("client: not connected")
	ErrTimedOut        = errors.New("client: operation timed out")
)

// ServerError is an ok=false response.
type ServerError struct {
	Op      string
	Message string
}

func (e *ServerError) Error() string {
	return e.Op + " failed: " + e.Message
}

// Coordinator is the slice of the shutdown coordinator a session needs.
type Coordinator interface {
	Context() context.Context
	Critical(fn func())
	Arm(d time.Duration)
	Disarm()
	TimedOut() bool
	Record(msg string)
}

// Endpoint is one server address.
type Endpoint struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Config configures a Session.
type Config struct {
	Finance     Endpoint
	File        Endpoint
	Audit       Endpoint
	MaxAttempts int
	DownloadDir string
	Channel     channel.Options
}

func DefaultConfig() Config {
	return Config{
		Finance:     Endpoint{Host: "localhost", Port: 8000},
		File:        Endpoint{Host: "localhost", Port: 8001},
		Audit:       Endpoint{Host: "localhost", Port: 8002},
		MaxAttempts: 3,
		DownloadDir: ".",
		Channel:     channel.DefaultOptions(),
	}
}

type server int

const (
	financeServer server = iota
	fileServer
	auditServer
)

var serverNames = [...]string{
	financeServer: "finance",
	fileServer:    "file",
	auditServer:   "logging",
}

// Session holds one channel per server and the logged-in user.
type Session struct {
	ID string

	cfg     Config
	coord   Coordinator
	retrier *session.Retrier
	out     io.Writer
	log     zerolog.Logger

	channels [3]*channel.Channel
	// dropped marks servers whose channel broke mid-session; they are redialed on next use.
	dropped [3]bool
	user    int
}

// Connect dials every server. A server that cannot be reached stays unavailable
// for the life of the session; operations on it fail with ErrNotConnected.
func Connect(ctx context.Context, cfg Config, coord Coordinator, confirm session.Confirmer, out io.Writer) *Session {
	if out == nil {
		out = io.Discard
	}
	sessCfg := cfg.Channel.Session
	if cfg.MaxAttempts > 0 {
		sessCfg.MaxAttempts = cfg.MaxAttempts
	}
	s := &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		coord:   coord,
		retrier: session.NewRetrier(sessCfg, confirm),
		out:     out,
		user:    NoUser,
	}
	s.log = log.Logger.With().Str("session", s.ID).Logger()
	s.retrier.Notify = s.onRetryState

	fmt.Fprintln(out, "Connecting to servers...")
	for srv := range s.channels {
		name := serverNames[srv]
		ep := s.endpoint(server(srv))
		ch, err := channel.Dial(ctx, ep.Addr(), cfg.Channel)
		if err != nil {
			fmt.Fprintf(out, "Failed to connect to %s server: %v\n", name, err)
			s.log.Warn().Err(err).Str("server", name).Str("addr", ep.Addr()).Msg("client connect failed")
			continue
		}
		s.channels[srv] = ch
		fmt.Fprintf(out, "Connected to %s server at %s\n", name, ep.Addr())
	}
	return s
}

// User is the logged-in id, or NoUser.
func (s *Session) User() int {
	return s.user
}

// Connected reports which servers are reachable, keyed by name.
func (s *Session) Connected() map[string]bool {
	out := make(map[string]bool, len(s.channels))
	for srv, ch := range s.channels {
		out[serverNames[srv]] = ch != nil
	}
	return out
}

func (s *Session) onRetryState(name string, state session.RetryState, attempt int) {
	max := s.retrier.MaxAttempts
	switch state {
	case session.StateAttempting:
		if attempt > 1 {
			fmt.Fprintf(s.out, "Retrying %s (attempt %d of %d)...\n", name, attempt, max)
		}
	case session.StateExhausted:
		fmt.Fprintln(s.out, "Maximum retry attempts reached.")
	case session.StateDeclined:
		fmt.Fprintln(s.out, "Operation canceled.")
	case session.StateAborted:
		fmt.Fprintf(s.out, "%s aborted: shutdown requested\n", name)
	}
}

// run drives one operation through the retry machine. Each attempt is a critical
// section armed with the operation timeout; the confirmation prompt is not.
func (s *Session) run(name string, attempt func() error) session.RetryResult {
	timeout := s.cfg.Channel.Session.OperationTimeout
	res := s.retrier.Run(s.coord.Context(), name, func(context.Context) error {
		var err error
		s.coord.Critical(func() {
			s.coord.Arm(timeout)
			defer s.coord.Disarm()
			err = attempt()
			if s.coord.TimedOut() {
				if err != nil {
					err = fmt.Errorf("%w: %w", ErrTimedOut, err)
				} else {
					s.log.Warn().Str("operation", name).Dur("timeout", timeout).Msg("operation completed after alarm")
				}
			}
		})
		return err
	})
	s.log.Debug().
		Str("operation", name).
		Str("state", res.State.String()).
		Int("attempts", res.Attempts).
		AnErr("err", res.Err).
		Msg("client operation finished")
	return res
}

func (s *Session) endpoint(srv server) Endpoint {
	switch srv {
	case financeServer:
		return s.cfg.Finance
	case fileServer:
		return s.cfg.File
	default:
		return s.cfg.Audit
	}
}

func (s *Session) send(srv server, req protocol.Request) (protocol.Response, error) {
	ch := s.channels[srv]
	if ch == nil {
		if !s.dropped[srv] {
			return protocol.Response{}, fmt.Errorf("%w to %s server", ErrNotConnected, serverNames[srv])
		}
		var err error
		if ch, err = s.redial(srv); err != nil {
			return protocol.Response{}, err
		}
	}
	resp, err := ch.SendRequest(req)
	var te *channel.TransportError
	if err != nil && errors.As(err, &te) && ch.Broken() {
		_ = ch.Close()
		s.channels[srv] = nil
		s.dropped[srv] = true
		fmt.Fprintf(s.out, "Lost connection to %s server\n", serverNames[srv])
		s.log.Warn().Err(err).Str("server", serverNames[srv]).Msg("client channel dropped")
	}
	return resp, err
}

// redial replaces a dropped channel so a retry never reads a reply meant for an
// earlier request.
func (s *Session) redial(srv server) (*channel.Channel, error) {
	name := serverNames[srv]
	ep := s.endpoint(srv)
	ch, err := channel.Dial(s.coord.Context(), ep.Addr(), s.cfg.Channel)
	if err != nil {
		s.log.Warn().Err(err).Str("server", name).Str("addr", ep.Addr()).Msg("client redial failed")
		return nil, err
	}
	s.channels[srv] = ch
	s.dropped[srv] = false
	fmt.Fprintf(s.out, "Reconnected to %s server at %s\n", name, ep.Addr())
	return ch, nil
}

// audit records a completed operation on the log server. Failures only warn.
func (s *Session) audit(req protocol.Request, what string) {
	if s.channels[auditServer] == nil && !s.dropped[auditServer] {
		fmt.Fprintln(s.out, "Warning: Not connected to logging server")
		return
	}
	resp, err := s.send(auditServer, req)
	if err != nil || !resp.OK {
		fmt.Fprintf(s.out, "Warning: Failed to log %s\n", what)
		s.log.Warn().Err(err).Str("message", resp.Message).Msg("audit follow-up failed")
	}
}

// Close sends Quit to every connected server and releases the channels.
func (s *Session) Close() {
	fmt.Fprintln(s.out, "Sending shutdown signals to connected servers...")
	for srv, ch := range s.channels {
		if ch == nil {
			continue
		}
		name := serverNames[srv]
		if _, err := ch.SendRequest(protocol.Quit()); err != nil {
			fmt.Fprintf(s.out, "Failed to send QUIT to %s server: %v\n", name, err)
		} else {
			fmt.Fprintf(s.out, "QUIT sent to %s server\n", name)
		}
		_ = ch.Close()
		s.channels[srv] = nil
	}
}
