package channel

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/danmuck/netbank/internal/protocol"
	"github.com/danmuck/netbank/internal/protocol/frame"
	"github.com/danmuck/netbank/internal/protocol/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// Side is the role of a Channel's endpoint.
type Side int

const (
	SideListening Side = iota
	SideConnected
)

func (s Side) String() string {
	if s == SideListening {
		return "listening"
	}
	return "connected"
}

const unknownPeer = "Unknown:-1"

// Options tune framing limits, timeouts and the malformed-body policy.
type Options struct {
	Session session.Config
	Limits  frame.Limits
	Policy  protocol.MalformedPolicy
}

// DefaultOptions returns client-side options.
func DefaultOptions() Options {
	return Options{
		Session: session.DefaultConfig(),
		Limits:  frame.DefaultLimits(),
		Policy:  protocol.DegradeToQuit,
	}
}

// ServerOptions returns serving-side options: no idle read deadline.
func ServerOptions() Options {
	opts := DefaultOptions()
	opts.Session = session.ServerConfig()
	return opts
}

// Channel owns one listening or connected endpoint.
type Channel struct {
	side Side
	opts Options
	ln   net.Listener
	conn net.Conn
	peer string

	// serializes client round trips
	rt sync.Mutex

	interrupted atomic.Bool
	broken      atomic.Bool
	closeOnce   sync.Once
	closeErr    error
}

// Listen opens a listening channel on addr ("" host binds all interfaces).
func Listen(addr string, opts Options) (*Channel, error) {
	lc := net.ListenConfig{Control: reuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, transportErr(OpListen, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("channel listening")
	return &Channel{
		side: SideListening,
		opts: opts,
		ln:   ln,
		peer: ln.Addr().String(),
	}, nil
}

// Dial connects to addr, resolving host names.
func Dial(ctx context.Context, addr string, opts Options) (*Channel, error) {
	d := net.Dialer{Timeout: opts.Session.ConnectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, transportErr(OpDial, err)
	}
	log.Info().Str("addr", addr).Msg("channel connected")
	return newConnected(conn, opts), nil
}

// FromConn wraps an already-connected stream.
func FromConn(conn net.Conn, opts Options) *Channel {
	return newConnected(conn, opts)
}

func newConnected(conn net.Conn, opts Options) *Channel {
	return &Channel{
		side: SideConnected,
		opts: opts,
		conn: conn,
		peer: peerAddress(conn),
	}
}

func peerAddress(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if addr == nil {
		return unknownPeer
	}
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return unknownPeer
	}
	if _, err := strconv.Atoi(port); err != nil {
		return unknownPeer
	}
	return net.JoinHostPort(host, port)
}

// Accept blocks for the next inbound connection and returns it as a new channel.
func (c *Channel) Accept() (*Channel, error) {
	if c.side != SideListening {
		return nil, transportErr(OpAccept, ErrWrongSide)
	}
	conn, err := c.ln.Accept()
	if err != nil {
		return nil, transportErr(OpAccept, err)
	}
	accepted := newConnected(conn, c.opts)
	log.Debug().Str("peer", accepted.peer).Msg("channel accepted")
	return accepted, nil
}

// SendRequest writes req and blocks for its response.
func (c *Channel) SendRequest(req protocol.Request) (protocol.Response, error) {
	if c.side != SideConnected {
		return protocol.Response{}, transportErr(OpSendRequestLength, ErrWrongSide)
	}
	body, err := protocol.EncodeRequest(req)
	if err != nil {
		return protocol.Response{}, transportErr(OpEncode, err)
	}

	c.rt.Lock()
	defer c.rt.Unlock()

	if err := c.writeMessage(body, OpSendRequestLength, OpSendRequestBody); err != nil {
		return protocol.Response{}, err
	}
	respBody, err := c.readMessage(OpRecvResponseLength, OpRecvResponseBody)
	if err != nil {
		return protocol.Response{}, err
	}
	resp, err := protocol.ParseResponse(respBody)
	if err != nil {
		return protocol.Response{}, transportErr(OpDecode, err)
	}
	return resp, nil
}

// ReceiveRequest blocks for the next request. Malformed bodies follow Options.Policy.
func (c *Channel) ReceiveRequest() (protocol.Request, error) {
	if c.side != SideConnected {
		return protocol.Request{}, transportErr(OpRecvRequestLength, ErrWrongSide)
	}
	body, err := c.readMessage(OpRecvRequestLength, OpRecvRequestBody)
	if err != nil {
		return protocol.Request{}, err
	}
	req, perr := protocol.ParseRequest(body)
	if perr != nil {
		log.Warn().
			Str("peer", c.peer).
			Str("policy", c.opts.Policy.String()).
			Err(perr).
			Msg("channel malformed request")
		if c.opts.Policy == protocol.RejectMalformed {
			return req, perr
		}
	}
	return req, nil
}

// SendResponse writes resp in full.
func (c *Channel) SendResponse(resp protocol.Response) error {
	if c.side != SideConnected {
		return transportErr(OpSendResponseLength, ErrWrongSide)
	}
	body, err := protocol.EncodeResponse(resp)
	if err != nil {
		return transportErr(OpEncode, err)
	}
	return c.writeMessage(body, OpSendResponseLength, OpSendResponseBody)
}

// InterruptRead fails any current or future read on this channel. Writes are unaffected,
// so a response already being produced can still be delivered.
func (c *Channel) InterruptRead() {
	if c.side != SideConnected {
		return
	}
	c.interrupted.Store(true)
	_ = c.conn.SetReadDeadline(time.Unix(1, 0))
}

func (c *Channel) readMessage(headerOp, bodyOp string) ([]byte, error) {
	if c.interrupted.Load() {
		return nil, transportErr(headerOp, ErrInterrupted)
	}
	if c.broken.Load() {
		return nil, transportErr(headerOp, ErrBroken)
	}
	if d := c.opts.Session.ReadTimeout; d > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(d))
	}
	if c.interrupted.Load() {
		return nil, transportErr(headerOp, ErrInterrupted)
	}
	n, err := frame.ReadHeader(c.conn, c.opts.Limits)
	if err != nil {
		return nil, c.fail(transportErr(headerOp, c.readErr(err)))
	}
	body, err := frame.ReadBody(c.conn, n)
	if err != nil {
		return nil, c.fail(transportErr(bodyOp, c.readErr(err)))
	}
	return body, nil
}

func (c *Channel) readErr(err error) error {
	if c.interrupted.Load() && isTimeout(err) {
		return ErrInterrupted
	}
	return err
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Channel) writeMessage(body []byte, headerOp, bodyOp string) error {
	if c.broken.Load() {
		return transportErr(headerOp, ErrBroken)
	}
	if d := c.opts.Session.WriteTimeout; d > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(d))
	}
	if err := frame.WriteHeader(c.conn, len(body), c.opts.Limits); err != nil {
		if errors.Is(err, frame.ErrPayloadTooLarge) {
			return transportErr(headerOp, err)
		}
		return c.fail(transportErr(headerOp, err))
	}
	if err := frame.WriteBody(c.conn, body); err != nil {
		return c.fail(transportErr(bodyOp, err))
	}
	return nil
}

// fail tears the connection down after a mid-stream failure. The stream position is
// unknown from here on, so every later send or receive reports ErrBroken.
func (c *Channel) fail(err error) error {
	if c.broken.CompareAndSwap(false, true) {
		log.Debug().Str("peer", c.peer).Err(err).Msg("channel broken")
		_ = c.Close()
	}
	return err
}

// Broken reports whether a transport failure has torn the connection down.
func (c *Channel) Broken() bool {
	return c.broken.Load()
}

// PeerAddr is the remote ip:port for connected channels and the bound address for listeners.
func (c *Channel) PeerAddr() string {
	return c.peer
}

// Addr is the local address.
func (c *Channel) Addr() string {
	if c.side == SideListening {
		return c.ln.Addr().String()
	}
	return c.conn.LocalAddr().String()
}

func (c *Channel) Side() Side {
	return c.side
}

// Close releases the endpoint. Only the first call has an effect.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		if c.side == SideListening {
			c.closeErr = c.ln.Close()
			return
		}
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func reuseAddr(_, _ string, rc syscall.RawConn) error {
	var serr error
	err := rc.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return serr
}
