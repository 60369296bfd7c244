package grpcledger

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/vault/address"
	"xdao.co/vault/client"
	"xdao.co/vault/journal"
	"xdao.co/vault/keys"
	"xdao.co/vault/ledger"
	"xdao.co/vault/ledger/memledger"
	"xdao.co/vault/runtime"
	"xdao.co/vault/vault"
)

var program = address.Address{0xAA, 0x01}

type fixture struct {
	cfg      vault.Config
	ledger   *memledger.Ledger
	client   *Client
	observed atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{cfg: vault.DefaultConfig(program)}
	f.ledger = memledger.New(memledger.Options{Journal: journal.NewMemStore()})
	p, err := vault.New(f.cfg, f.ledger, vault.Options{})
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	rt := runtime.New(runtime.Options{})
	if err := rt.Register(program, p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterLedgerServer(srv, &Server{
		Runtime: rt,
		Ledger:  f.ledger,
		Observe: func(error, time.Duration) { f.observed.Add(1) },
	})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	f.client = NewClient(cc)
	f.client.Timeout = 2 * time.Second
	t.Cleanup(func() { _ = f.client.Close() })
	return f
}

func keypair(t *testing.T, b byte) keys.Keypair {
	t.Helper()
	seed := make([]byte, 32)
	seed[31] = b
	kp, err := keys.KeypairFromSeed(seed)
	if err != nil {
		t.Fatalf("KeypairFromSeed: %v", err)
	}
	return kp
}

func (f *fixture) fund(t *testing.T, kp keys.Keypair, lamports uint64) {
	t.Helper()
	head, err := f.client.Airdrop(context.Background(), kp.Address(), lamports)
	if err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	if head == "" {
		t.Fatalf("expected journal head after airdrop")
	}
}

func TestGRPCLedger_CreateRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	funder := keypair(t, 1)
	f.fund(t, funder, 10_000_000)

	res, err := client.Create(ctx, f.client, f.cfg, funder, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Lamports != 1_781_760 {
		t.Fatalf("lamports = %d", res.Lamports)
	}
	if res.Receipt != f.ledger.Head().String() {
		t.Fatalf("receipt %q want head %s", res.Receipt, f.ledger.Head())
	}
	acct, err := f.client.Account(ctx, res.Plan.Target)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	want := ledger.Account{Address: res.Plan.Target, Lamports: 1_781_760, Space: 128, Owner: address.SystemProgram}
	if acct != want {
		t.Fatalf("account = %+v want %+v", acct, want)
	}
	if f.observed.Load() != 1 {
		t.Fatalf("observed %d invocations", f.observed.Load())
	}

	_, err = client.Create(ctx, f.client, f.cfg, funder, 128)
	if !vault.IsKind(err, vault.KindCreationRejectedByLedger) {
		t.Fatalf("second Create: got %v want CreationRejectedByLedger", err)
	}
	if !errors.Is(err, ledger.ErrAccountInUse) {
		t.Fatalf("second Create: %v does not wrap ErrAccountInUse", err)
	}
}

func TestGRPCLedger_ErrorKindsSurvive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	funder := keypair(t, 2)
	f.fund(t, funder, 10_000_000)

	plan, err := client.Build(f.cfg, funder.Address(), 16)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	t.Run("wrong bump", func(t *testing.T) {
		wrong, err := client.BuildWithBump(f.cfg, funder.Address(), plan.Target, plan.Bump-1, 16)
		if err != nil {
			t.Fatalf("BuildWithBump: %v", err)
		}
		_, err = f.client.Submit(ctx, wrong.Invocation, funder)
		if !vault.IsKind(err, vault.KindCreationRejectedByLedger) || !errors.Is(err, ledger.ErrDerivationMismatch) {
			t.Fatalf("got %v want derivation mismatch", err)
		}
	})

	t.Run("malformed data", func(t *testing.T) {
		inv := plan.Invocation
		inv.Data = inv.Data[:5]
		_, err := f.client.Submit(ctx, inv, funder)
		if !vault.IsKind(err, vault.KindMalformedRequest) {
			t.Fatalf("got %v want MalformedRequest", err)
		}
	})

	t.Run("funder not signer", func(t *testing.T) {
		inv := plan.Invocation
		inv.Accounts = append([]runtime.AccountMeta(nil), inv.Accounts...)
		inv.Accounts[0].IsSigner = false
		_, err := f.client.Submit(ctx, inv, funder)
		if !vault.IsKind(err, vault.KindMissingFunderAuthorization) {
			t.Fatalf("got %v want MissingFunderAuthorization", err)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := f.client.Submit(ctx, plan.Invocation, keypair(t, 3))
		if !errors.Is(err, runtime.ErrMissingSignature) {
			t.Fatalf("got %v want ErrMissingSignature", err)
		}
	})

	t.Run("unknown program", func(t *testing.T) {
		inv := plan.Invocation
		inv.Program = address.Address{0x01}
		_, err := f.client.Submit(ctx, inv, funder)
		if !errors.Is(err, runtime.ErrUnknownProgram) {
			t.Fatalf("got %v want ErrUnknownProgram", err)
		}
	})

	if _, ok := f.ledger.Account(plan.Target); ok {
		t.Fatalf("rejected invocations must not create the target")
	}
}

func TestGRPCLedger_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.client.Account(context.Background(), address.Address{0x42})
	if !errors.Is(err, ledger.ErrUnknownAccount) {
		t.Fatalf("got %v want ErrUnknownAccount", err)
	}
}

func TestGRPCLedger_MinimumBalanceFollowsSchedule(t *testing.T) {
	f := newFixture(t)
	f.ledger.SetRent(ledger.Rent{LamportsPerByteYear: 1, ExemptionThreshold: 1})
	got, err := f.client.MinimumBalance(context.Background(), 72)
	if err != nil {
		t.Fatalf("MinimumBalance: %v", err)
	}
	if got != 200 {
		t.Fatalf("got %d want 200", got)
	}
}
