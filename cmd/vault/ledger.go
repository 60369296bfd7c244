package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"xdao.co/vault/client"
	"xdao.co/vault/client/registry"
	"xdao.co/vault/config"
	"xdao.co/vault/journal/localfs"
	"xdao.co/vault/ledger/memledger"
	"xdao.co/vault/runtime"
	"xdao.co/vault/vault"
)

// ledgerFlags selects and opens a submitter backend.
type ledgerFlags struct {
	common
	backend string
	timeout time.Duration
}

func (l *ledgerFlags) register(fs *flag.FlagSet) {
	l.common.register(fs)
	fs.StringVar(&l.backend, "backend", "local", fmt.Sprintf("Ledger backend (%s)", strings.Join(registry.Names(registry.UsageCLI), ", ")))
	fs.DurationVar(&l.timeout, "timeout", 30*time.Second, "Overall command timeout")
	registry.RegisterFlags(fs, registry.UsageCLI)
}

type session struct {
	cfg       vault.Config
	submitter client.Submitter
	ctx       context.Context
	close     func()
}

func (l *ledgerFlags) open() (*session, error) {
	f, cfg, logger, err := l.load()
	if err != nil {
		return nil, err
	}
	localEnv = localSettings{file: f, cfg: cfg, logger: logger}
	s, closeFn, err := registry.Open(l.backend, registry.UsageCLI)
	if err != nil {
		return nil, err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		prev := stop
		stop = func() { cancel(); prev() }
	}
	return &session{
		cfg:       cfg,
		submitter: s,
		ctx:       ctx,
		close: func() {
			stop()
			if closeFn != nil {
				_ = closeFn()
			}
		},
	}, nil
}

func cmdCreate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var lf ledgerFlags
	var signer signerFlags
	var space uint64
	lf.register(fs)
	signer.register(fs)
	fs.Uint64Var(&space, "space", 0, "Storage size in bytes for the vault account")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !signer.set() {
		fmt.Fprintln(errOut, "missing signer (--signer, --key-file or --seed-hex)")
		return 2
	}
	funder, err := signer.keypair()
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return 1
	}
	sess, err := lf.open()
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return 1
	}
	defer sess.close()

	res, err := client.Create(sess.ctx, sess.submitter, sess.cfg, funder, space)
	if err != nil {
		reportErr(errOut, "create", err)
		return 1
	}
	fmt.Fprintf(out, "address\t%s\n", res.Plan.Target)
	fmt.Fprintf(out, "bump\t%d\n", res.Plan.Bump)
	fmt.Fprintf(out, "space\t%d\n", res.Plan.Request.Space)
	fmt.Fprintf(out, "lamports\t%d\n", res.Lamports)
	if res.Receipt != "" {
		fmt.Fprintf(out, "receipt\t%s\n", res.Receipt)
	}
	return 0
}

func cmdAirdrop(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("airdrop", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var lf ledgerFlags
	var signer signerFlags
	var toText string
	var lamports uint64
	lf.register(fs)
	signer.register(fs)
	fs.StringVar(&toText, "to", "", "Recipient address (base58)")
	fs.Uint64Var(&lamports, "lamports", 0, "Amount to credit")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if lamports == 0 {
		fmt.Fprintln(errOut, "missing --lamports")
		return 2
	}
	to, code := resolveAddress(toText, &signer, "--to", errOut)
	if code != 0 {
		return code
	}
	sess, err := lf.open()
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return 1
	}
	defer sess.close()

	a, ok := sess.submitter.(client.Airdropper)
	if !ok {
		fmt.Fprintf(errOut, "backend %q does not support airdrops\n", lf.backend)
		return 1
	}
	receipt, err := a.Airdrop(sess.ctx, to, lamports)
	if err != nil {
		reportErr(errOut, "airdrop", err)
		return 1
	}
	fmt.Fprintf(out, "credited\t%s\t%d\n", to, lamports)
	if receipt != "" {
		fmt.Fprintf(out, "receipt\t%s\n", receipt)
	}
	return 0
}

func cmdAccount(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("account", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var lf ledgerFlags
	var signer signerFlags
	var addrText string
	lf.register(fs)
	signer.register(fs)
	fs.StringVar(&addrText, "address", "", "Account address (base58)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	addr, code := resolveAddress(addrText, &signer, "--address", errOut)
	if code != 0 {
		return code
	}
	sess, err := lf.open()
	if err != nil {
		fmt.Fprintf(errOut, "ledger: %v\n", err)
		return 1
	}
	defer sess.close()

	r, ok := sess.submitter.(client.AccountReader)
	if !ok {
		fmt.Fprintf(errOut, "backend %q does not support account lookups\n", lf.backend)
		return 1
	}
	acct, err := r.Account(sess.ctx, addr)
	if err != nil {
		reportErr(errOut, "account", err)
		return 1
	}
	fmt.Fprintf(out, "address\t%s\n", acct.Address)
	fmt.Fprintf(out, "lamports\t%d\n", acct.Lamports)
	fmt.Fprintf(out, "space\t%d\n", acct.Space)
	fmt.Fprintf(out, "owner\t%s\n", acct.Owner)
	return 0
}

// The local backend runs the vault program in process over a ledger rebuilt
// from a journal directory, so state persists between invocations.

type localSettings struct {
	file   config.File
	cfg    vault.Config
	logger zerolog.Logger
}

// localEnv is set by ledgerFlags.open before the backend is opened.
var localEnv localSettings

var flagLocalJournal string

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "local",
		Description: "in-process ledger persisted to a journal directory",
		Usage:       registry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagLocalJournal, "local-journal-dir", "", "Journal directory (for --backend=local; default journal_dir or ~/.xdao/vault/journal)")
		},
		Open: openLocal,
	})
}

func openLocal() (client.Submitter, func() error, error) {
	dir := flagLocalJournal
	if dir == "" {
		dir = localEnv.file.JournalDir
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, nil, err
		}
		dir = filepath.Join(home, ".xdao", "vault", "journal")
	}
	store, err := localfs.New(dir)
	if err != nil {
		return nil, nil, err
	}
	rent, err := localEnv.file.Rent()
	if err != nil {
		return nil, nil, err
	}
	cfg := localEnv.cfg
	l, err := memledger.Restore(memledger.Options{
		Rent:            rent,
		Scheme:          cfg.Scheme,
		SystemAuthority: cfg.SystemAuthority,
		Journal:         store,
	})
	if err != nil {
		return nil, nil, err
	}
	logger := localEnv.logger
	p, err := vault.New(cfg, l, vault.Options{Logger: &logger})
	if err != nil {
		return nil, nil, err
	}
	rt := runtime.New(runtime.Options{Logger: &logger})
	if err := rt.Register(cfg.Program, p); err != nil {
		return nil, nil, err
	}
	return &client.Local{Runtime: rt, Ledger: l}, nil, nil
}

