package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"xdao.co/vault/config"
	"xdao.co/vault/internal/observability"
	"xdao.co/vault/journal"
	"xdao.co/vault/journal/localfs"
	"xdao.co/vault/ledger/grpcledger"
	"xdao.co/vault/ledger/memledger"
	"xdao.co/vault/runtime"
	"xdao.co/vault/vault"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

type daemon struct {
	file   config.File
	ledger *memledger.Ledger
	server *grpcledger.Server
	log    zerolog.Logger
}

// newDaemon wires the vault program into a runtime over a journaled ledger.
func newDaemon(f config.File, log zerolog.Logger) (*daemon, error) {
	cfg, err := f.Vault()
	if err != nil {
		return nil, err
	}
	rent, err := f.Rent()
	if err != nil {
		return nil, err
	}

	var store journal.Store = journal.NewMemStore()
	if f.JournalDir != "" {
		fsStore, err := localfs.New(f.JournalDir)
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		store = fsStore
	}
	l, err := memledger.Restore(memledger.Options{
		Rent:            rent,
		Scheme:          cfg.Scheme,
		SystemAuthority: cfg.SystemAuthority,
		Journal:         store,
	})
	if err != nil {
		return nil, err
	}

	p, err := vault.New(cfg, l, vault.Options{Logger: &log})
	if err != nil {
		return nil, err
	}
	rt := runtime.New(runtime.Options{Logger: &log})
	if err := rt.Register(cfg.Program, p); err != nil {
		return nil, err
	}
	return &daemon{
		file:   f,
		ledger: l,
		server: &grpcledger.Server{Runtime: rt, Ledger: l, Observe: observability.RecordInvocation},
		log:    log,
	}, nil
}

func run(ctx context.Context, args []string, errOut io.Writer) int {
	fs := flag.NewFlagSet("vault-ledgerd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", "", "TOML config file (VAULT_* env overrides)")
	listen := fs.String("listen", "", "gRPC listen address (overrides config)")
	metricsListen := fs.String("metrics-listen", "", "Prometheus /metrics listen address (overrides config; empty disables)")
	journalDir := fs.String("journal-dir", "", "Journal directory (overrides config; empty keeps the journal in memory)")
	logLevel := fs.String("log-level", "", "Log level (overrides config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	f, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if *listen != "" {
		f.Listen = *listen
	}
	if *metricsListen != "" {
		f.MetricsListen = *metricsListen
	}
	if *journalDir != "" {
		f.JournalDir = *journalDir
	}
	if *logLevel != "" {
		f.LogLevel = *logLevel
	}

	log, err := observability.InitLogger("vault-ledgerd", f.LogLevel)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	d, err := newDaemon(f, log)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return 1
	}
	if err := d.serve(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return 1
	}
	return 0
}

func (d *daemon) serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", d.file.Listen)
	if err != nil {
		return err
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpcledger.RegisterLedgerServer(s, d.server)

	var metrics *http.Server
	if d.file.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.MetricsHandler())
		metrics = &http.Server{Addr: d.file.MetricsListen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	go func() {
		<-ctx.Done()
		d.log.Info().Msg("shutting down")
		s.GracefulStop()
		if metrics != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metrics.Shutdown(shutdownCtx)
		}
	}()

	d.log.Info().
		Str("listen", lis.Addr().String()).
		Str("metrics", d.file.MetricsListen).
		Str("journal", journalLabel(d.file.JournalDir)).
		Str("head", headLabel(d.ledger.Head())).
		Msg("vault-ledgerd listening")
	return s.Serve(lis)
}

func headLabel(id cid.Cid) string {
	if !id.Defined() {
		return "empty"
	}
	return id.String()
}

func journalLabel(dir string) string {
	if dir == "" {
		return "memory"
	}
	return dir
}
