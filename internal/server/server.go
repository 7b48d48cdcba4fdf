package server

import (
	"context"
	"errors"
	"net"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/netbank/internal/observability"
	"github.com/danmuck/netbank/internal/pool"
	"github.com/danmuck/netbank/internal/protocol"
	"github.com/danmuck/netbank/internal/protocol/channel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrNotListening = errors.New("server: not listening")

const (
	DefaultWorkers    = 4
	DefaultDrainGrace = 2 * time.Second

	acceptRetryDelay = 50 * time.Millisecond
	drainPoll        = 25 * time.Millisecond
)

// Handler produces exactly one response per request. Quit never reaches it.
type Handler interface {
	Serve(peer string, req protocol.Request) protocol.Response
}

type HandlerFunc func(peer string, req protocol.Request) protocol.Response

func (f HandlerFunc) Serve(peer string, req protocol.Request) protocol.Response {
	return f(peer, req)
}

// Config describes one listening server.
type Config struct {
	Name       string
	Addr       string
	Workers    int
	DrainGrace time.Duration
	Channel    channel.Options
}

func DefaultConfig(name, addr string) Config {
	return Config{
		Name:       name,
		Addr:       addr,
		Workers:    DefaultWorkers,
		DrainGrace: DefaultDrainGrace,
		Channel:    channel.ServerOptions(),
	}
}

// Status is the operator view served on the admin surface.
type Status struct {
	Name         string     `json:"name"`
	Addr         string     `json:"addr"`
	Connections  []string   `json:"connections"`
	Accepted     uint64     `json:"accepted"`
	Served       uint64     `json:"served"`
	ShuttingDown bool       `json:"shutting_down"`
	Pool         pool.Stats `json:"pool"`
}

type conn struct {
	ch   *channel.Channel
	busy atomic.Bool
}

type Server struct {
	cfg     Config
	handler Handler
	log     zerolog.Logger

	listener *channel.Channel
	workers  atomic.Pointer[pool.Pool]

	mu    sync.Mutex
	conns map[string]*conn

	accepted atomic.Uint64
	served   atomic.Uint64
	closing  atomic.Bool
}

func New(cfg Config, handler Handler) *Server {
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.DrainGrace < 0 {
		cfg.DrainGrace = 0
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		log:     observability.ServerLogger(cfg.Name),
		conns:   make(map[string]*conn),
	}
}

// Listen binds the configured address. Failure here is fatal to the process.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := channel.Listen(s.cfg.Addr, s.cfg.Channel)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info().Str("addr", ln.Addr()).Int("workers", s.cfg.Workers).Msg("server listening")
	return nil
}

// Addr is the bound address, valid after Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr()
}

// Port is the bound TCP port, or 0 before Listen.
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	_, port, err := net.SplitHostPort(s.listener.Addr())
	if err != nil {
		return 0
	}
	p, _ := strconv.Atoi(port)
	return p
}

func (s *Server) Name() string {
	return s.cfg.Name
}

// Serve accepts until ctx is done, then drains every connection and the pool.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	workers := pool.NewNamed(s.cfg.Name+".conn", s.cfg.Workers)
	s.workers.Store(workers)

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.closing.Store(true)
			_ = s.listener.Close()
		case <-stop:
		}
	}()

	for {
		ch, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				break
			}
			s.log.Warn().Err(err).Msg("accept failed")
			time.Sleep(acceptRetryDelay)
			continue
		}
		if s.closing.Load() {
			_ = ch.Close()
			break
		}
		s.accepted.Add(1)
		id := uuid.NewString()
		c := s.track(id, ch)
		if err := workers.Submit(func() { s.handle(id, c) }); err != nil {
			s.untrack(id)
			_ = ch.Close()
			s.log.Warn().Err(err).Str("peer", ch.PeerAddr()).Msg("connection rejected")
		}
	}
	close(stop)
	_ = s.listener.Close()

	s.log.Info().Int("connections", s.connectionCount()).Msg("server draining")
	s.drain(workers)
	s.log.Info().Uint64("served", s.served.Load()).Msg("server stopped")
	return nil
}

// Close releases the listener without serving. Use ctx cancellation to stop Serve.
func (s *Server) Close() error {
	if s.listener == nil {
		return ErrNotListening
	}
	s.closing.Store(true)
	return s.listener.Close()
}

func (s *Server) drain(workers *pool.Pool) {
	if s.cfg.DrainGrace > 0 {
		deadline := time.Now().Add(s.cfg.DrainGrace)
		for s.connectionCount() > 0 && time.Now().Before(deadline) {
			time.Sleep(drainPoll)
		}
	}
	s.mu.Lock()
	for _, c := range s.conns {
		c.ch.InterruptRead()
	}
	s.mu.Unlock()
	workers.Shutdown()
}

func (s *Server) handle(id string, c *conn) {
	peer := c.ch.PeerAddr()
	logger := s.log.With().Str("conn", id).Str("peer", peer).Logger()
	observability.ConnectionOpened(s.cfg.Name)
	logger.Info().Msg("client connected")
	defer func() {
		s.untrack(id)
		_ = c.ch.Close()
		observability.ConnectionClosed(s.cfg.Name)
		logger.Info().Msg("client disconnected")
	}()

	for {
		req, err := c.ch.ReceiveRequest()
		if err != nil {
			if errors.Is(err, protocol.ErrMalformedRequest) {
				if err := c.ch.SendResponse(protocol.Failure(protocol.MsgMalformedRequest)); err != nil {
					logger.Warn().Err(err).Msg("send response failed")
					return
				}
				continue
			}
			switch {
			case channel.IsPeerClosed(err):
			case errors.Is(err, channel.ErrInterrupted):
				logger.Info().Msg("read interrupted for shutdown")
			default:
				logger.Warn().Err(err).Msg("receive failed")
			}
			return
		}

		if req.Kind == protocol.KindQuit {
			ack := protocol.Response{OK: true, Message: protocol.MsgQuitAcknowledged}
			if err := c.ch.SendResponse(ack); err != nil {
				logger.Debug().Err(err).Msg("quit ack not delivered")
			}
			return
		}

		// Shutdown stops new work; the peer may still Quit during the drain grace.
		if s.closing.Load() {
			logger.Debug().Str("kind", req.Kind.String()).Msg("request refused during shutdown")
			observability.RecordRequest(s.cfg.Name, req.Kind.String(), false, 0)
			if err := c.ch.SendResponse(protocol.Failure(protocol.MsgShuttingDown)); err != nil {
				logger.Warn().Err(err).Msg("send response failed")
				return
			}
			continue
		}

		c.busy.Store(true)
		start := time.Now()
		resp := s.handler.Serve(peer, req)
		elapsed := time.Since(start)
		s.served.Add(1)
		observability.RecordRequest(s.cfg.Name, req.Kind.String(), resp.OK, elapsed)
		logger.Debug().
			Str("kind", req.Kind.String()).
			Int("subject", req.SubjectID).
			Bool("ok", resp.OK).
			Dur("elapsed", elapsed).
			Msg(resp.Message)
		err = c.ch.SendResponse(resp)
		c.busy.Store(false)
		if err != nil {
			logger.Warn().Err(err).Msg("send response failed")
			return
		}
	}
}

func (s *Server) track(id string, ch *channel.Channel) *conn {
	c := &conn{ch: ch}
	s.mu.Lock()
	s.conns[id] = c
	s.mu.Unlock()
	return c
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

func (s *Server) connectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Ready reports whether the server is accepting connections.
func (s *Server) Ready() bool {
	return s.listener != nil && !s.closing.Load()
}

func (s *Server) Status() Status {
	s.mu.Lock()
	peers := make([]string, 0, len(s.conns))
	for _, c := range s.conns {
		state := "idle"
		if c.busy.Load() {
			state = "busy"
		}
		peers = append(peers, c.ch.PeerAddr()+" "+state)
	}
	s.mu.Unlock()
	sort.Strings(peers)

	st := Status{
		Name:         s.cfg.Name,
		Addr:         s.Addr(),
		Connections:  peers,
		Accepted:     s.accepted.Load(),
		Served:       s.served.Load(),
		ShuttingDown: s.closing.Load(),
	}
	if workers := s.workers.Load(); workers != nil {
		st.Pool = workers.Stats()
	}
	return st
}
