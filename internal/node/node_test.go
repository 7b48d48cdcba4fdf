package node

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/netbank/internal/config"
	"github.com/danmuck/netbank/internal/ledger"
	"github.com/danmuck/netbank/internal/protocol"
	"github.com/danmuck/netbank/internal/server"
	"github.com/danmuck/netbank/internal/signals"
	"github.com/danmuck/netbank/internal/testutil/testlog"
	"github.com/spf13/pflag"
)

func TestNodeRunRecordsLifecycle(t *testing.T) {
	testlog.Start(t)
	trail := filepath.Join(t.TempDir(), "signals.log")
	coord := signals.New(signals.Options{TrailPath: trail})

	cfg := server.DefaultConfig("Finance", "127.0.0.1:0")
	cfg.DrainGrace = 0
	store := ledger.NewStore(10)
	started := make(chan int, 1)
	stopped := false
	n := &Node{
		Label:   "Finance",
		Server:  server.New(cfg, ledger.NewHandler(store, 2)),
		Coord:   coord,
		Detail:  func() any { return store.Snapshot() },
		OnStart: func(port int) error { started <- port; return nil },
		OnStop:  func() { stopped = true },
	}

	done := make(chan error, 1)
	go func() { done <- n.Run() }()

	var port int
	select {
	case port = <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("node did not start")
	}
	if port == 0 {
		t.Fatalf("expected bound port")
	}
	if st := n.Status(); st.Server.Name != "Finance" || st.Shutdown {
		t.Fatalf("unexpected status: %+v", st)
	}

	coord.Interrupt()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("node did not stop")
	}
	if !stopped {
		t.Fatalf("OnStop not called")
	}

	raw, err := os.ReadFile(trail)
	if err != nil {
		t.Fatalf("read trail: %v", err)
	}
	text := string(raw)
	for _, want := range []string{
		signals.EventInitialized,
		"Finance server started on port ",
		signals.EventShutdown,
		"Finance server shutdown complete",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("trail missing %q:\n%s", want, text)
		}
	}
}

func TestFlagsOverrideFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finance.toml")
	body := "port = 9100\nthreads = 8\nsignal_log = \"/tmp/x.log\"\nmalformed_policy = \"reject\"\nadmin_token = \"file-token\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	def := config.DefaultFinance()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	rt := BindRuntime(fs, def.Runtime)
	sv := BindServing(fs, def.Serving)
	if err := fs.Parse([]string{"-c", path, "-t", "2", "--admin-token", "flag-token"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rt.ConfigPath != path {
		t.Fatalf("unexpected config path: %q", rt.ConfigPath)
	}

	cfg := def
	var raw config.Finance
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	OverlayRuntime(meta, raw.Runtime, &cfg.Runtime)
	OverlayServing(meta, raw.Serving, &cfg.Serving)
	rt.Apply(fs, &cfg.Runtime)
	sv.Apply(fs, &cfg.Serving)

	if cfg.Port != 9100 {
		t.Fatalf("file port not applied: %d", cfg.Port)
	}
	if cfg.Threads != 2 {
		t.Fatalf("flag threads not applied: %d", cfg.Threads)
	}
	if cfg.SignalLog != "/tmp/x.log" {
		t.Fatalf("file signal log not applied: %q", cfg.SignalLog)
	}
	if cfg.AdminToken != "flag-token" {
		t.Fatalf("flag admin token not applied: %q", cfg.AdminToken)
	}
	if cfg.DrainGrace != "2s" {
		t.Fatalf("default drain grace lost: %q", cfg.DrainGrace)
	}

	scfg, err := ServerConfig("Finance", cfg.Serving)
	if err != nil {
		t.Fatalf("server config: %v", err)
	}
	if scfg.Addr != ":9100" || scfg.Workers != 2 || scfg.DrainGrace != 2*time.Second {
		t.Fatalf("unexpected server config: %+v", scfg)
	}
	if scfg.Channel.Policy != protocol.RejectMalformed {
		t.Fatalf("unexpected policy: %v", scfg.Channel.Policy)
	}
}
