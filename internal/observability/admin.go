package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/netbank/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// StatusFunc renders the server-specific part of GET /status.
type StatusFunc func() any

// Admin is the optional operator HTTP surface of one process.
type Admin struct {
	Name    string
	Addr    string
	Started time.Time

	status StatusFunc
	ready  func() bool
	guard  auth.Validator
	router *gin.Engine
}

// AdminOption configures an Admin.
type AdminOption func(*Admin)

// WithValidator puts GET /status behind a bearer token. Probes and metrics stay open.
func WithValidator(v auth.Validator) AdminOption {
	return func(a *Admin) { a.guard = v }
}

// NewAdmin builds the router; Serve binds it.
func NewAdmin(name, addr string, status StatusFunc, ready func() bool, opts ...AdminOption) *Admin {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(ServerLogger(name)))
	r.Use(RequestMetricsMiddleware(name))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	a := &Admin{
		Name:    name,
		Addr:    addr,
		Started: time.Now(),
		status:  status,
		ready:   ready,
		router:  r,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.registerRoutes()
	return a
}

func (a *Admin) Router() *gin.Engine {
	return a.router
}

func (a *Admin) registerRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(a.Started).String(),
			"server": a.Name,
		})
	})

	a.router.GET("/ready", func(c *gin.Context) {
		ready := a.ready == nil || a.ready()
		code := http.StatusOK
		if !ready {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"ready":  ready,
			"server": a.Name,
		})
	})

	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	statusChain := []gin.HandlerFunc{}
	if a.guard != nil {
		statusChain = append(statusChain, RequireToken(a.guard))
	}
	statusChain = append(statusChain, func(c *gin.Context) {
		var body any
		if a.status != nil {
			body = a.status()
		}
		c.JSON(http.StatusOK, gin.H{
			"server": a.Name,
			"status": body,
		})
	})
	a.router.GET("/status", statusChain...)
}

// Serve blocks until ctx is done, then shuts the HTTP server down.
func (a *Admin) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info().Str("server", a.Name).Str("addr", ln.Addr().String()).Msg("admin.http listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
