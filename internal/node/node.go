// Package node runs one netbank server process: signal coordination, the server
// loop, the optional admin HTTP surface and the trail events around them.
package node

import (
	"fmt"

	"github.com/danmuck/netbank/internal/auth"
	"github.com/danmuck/netbank/internal/observability"
	"github.com/danmuck/netbank/internal/server"
	"github.com/danmuck/netbank/internal/signals"
	"github.com/rs/zerolog/log"
)

// Node is one server process.
type Node struct {
	// Label names the server in trail events, e.g. "Finance".
	Label     string
	Server    *server.Server
	Coord     *signals.Coordinator
	AdminAddr string
	// AdminToken, when set, is required as a bearer token by GET /status.
	AdminToken string
	// Detail adds server-specific state to GET /status.
	Detail func() any
	// OnStart runs after the listener is bound; an error aborts startup.
	OnStart func(port int) error
	// OnStop runs after the server drained.
	OnStop func()
}

// Status is the admin view of a node.
type Status struct {
	Server    server.Status `json:"server"`
	Detail    any           `json:"detail,omitempty"`
	Shutdown  bool          `json:"shutdown_requested"`
	TrailPath string        `json:"signal_log"`
}

func (n *Node) Status() Status {
	st := Status{
		Server:    n.Server.Status(),
		Shutdown:  n.Coord.ShutdownRequested(),
		TrailPath: n.Coord.TrailPath(),
	}
	if n.Detail != nil {
		st.Detail = n.Detail()
	}
	return st
}

// Run blocks until the coordinator requests shutdown and the server has drained.
func (n *Node) Run() error {
	n.Coord.Install()
	defer n.Coord.Stop()

	if err := n.Server.Listen(); err != nil {
		return fmt.Errorf("%s server: %w", n.Label, err)
	}
	port := n.Server.Port()
	if n.OnStart != nil {
		if err := n.OnStart(port); err != nil {
			_ = n.Server.Close()
			return err
		}
	}
	n.Coord.Record(fmt.Sprintf("%s server started on port %d", n.Label, port))
	log.Info().Str("server", n.Server.Name()).Int("port", port).Msg("node started")

	ctx := n.Coord.Context()
	if n.AdminAddr != "" {
		var opts []observability.AdminOption
		if n.AdminToken != "" {
			opts = append(opts, observability.WithValidator(auth.StaticToken{Token: n.AdminToken}))
		}
		admin := observability.NewAdmin(n.Server.Name(), n.AdminAddr, func() any { return n.Status() }, n.Server.Ready, opts...)
		go func() {
			if err := admin.Serve(ctx); err != nil {
				log.Error().Err(err).Str("addr", n.AdminAddr).Msg("admin.http failed")
			}
		}()
	}

	err := n.Server.Serve(ctx)
	if n.OnStop != nil {
		n.OnStop()
	}
	n.Coord.Record(fmt.Sprintf("%s server shutdown complete", n.Label))
	log.Info().Str("server", n.Server.Name()).Msg("node stopped")
	return err
}
