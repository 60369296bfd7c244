package solanarpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"xdao.co/vault/address"
	"xdao.co/vault/client"
	"xdao.co/vault/keys"
	"xdao.co/vault/ledger"
	"xdao.co/vault/vault"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeCluster answers the handful of JSON-RPC methods the submitter uses.
type fakeCluster struct {
	mu      sync.Mutex
	sent    []string
	methods []string
	// accountMissing makes getAccountInfo return a null value.
	accountMissing bool
	// statuses are served by getSignatureStatuses in order and the last one
	// repeats. A nil entry means the cluster has not seen the signature. With
	// none, every signature is confirmed.
	statuses    []any
	blockHeight uint64
}

func status(confirmation rpc.ConfirmationStatusType, txErr any) map[string]any {
	return map[string]any{"slot": 2, "confirmations": nil, "err": txErr, "confirmationStatus": confirmation}
}

func (f *fakeCluster) calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.methods {
		if m == method {
			n++
		}
	}
	return n
}

var blockhash = solana.Hash{1, 2, 3}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.methods = append(f.methods, req.Method)
	f.mu.Unlock()

	var result any
	switch req.Method {
	case "getMinimumBalanceForRentExemption":
		var space uint64
		_ = json.Unmarshal(req.Params[0], &space)
		result, _ = ledger.DefaultRent.MinimumBalance(space)
	case "getLatestBlockhash":
		result = map[string]any{
			"context": map[string]any{"slot": 1},
			"value":   map[string]any{"blockhash": blockhash.String(), "lastValidBlockHeight": 100},
		}
	case "sendTransaction":
		var raw string
		_ = json.Unmarshal(req.Params[0], &raw)
		f.mu.Lock()
		f.sent = append(f.sent, raw)
		f.mu.Unlock()
		result = solana.Signature{9}.String()
	case "getSignatureStatuses":
		var st any = status(rpc.ConfirmationStatusConfirmed, nil)
		f.mu.Lock()
		if len(f.statuses) > 0 {
			st = f.statuses[0]
			if len(f.statuses) > 1 {
				f.statuses = f.statuses[1:]
			}
		}
		f.mu.Unlock()
		result = map[string]any{"context": map[string]any{"slot": 2}, "value": []any{st}}
	case "getBlockHeight":
		result = f.blockHeight
	case "requestAirdrop":
		result = solana.Signature{8}.String()
	case "getAccountInfo":
		if f.accountMissing {
			result = map[string]any{"context": map[string]any{"slot": 1}, "value": nil}
			break
		}
		result = map[string]any{
			"context": map[string]any{"slot": 1},
			"value": map[string]any{
				"lamports":   1781760,
				"owner":      solana.SystemProgramID.String(),
				"data":       []string{base64.StdEncoding.EncodeToString(make([]byte, 128)), "base64"},
				"executable": false,
				"rentEpoch":  0,
			},
		}
	default:
		http.Error(w, "unexpected method "+req.Method, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
}

func newSubmitter(t *testing.T, f *fakeCluster) *Submitter {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	s, err := New(Options{Endpoint: srv.URL, PollInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func keypair(t *testing.T) keys.Keypair {
	t.Helper()
	seed := make([]byte, 32)
	seed[0] = 0x5A
	kp, err := keys.KeypairFromSeed(seed)
	if err != nil {
		t.Fatalf("KeypairFromSeed: %v", err)
	}
	return kp
}

func TestInstructionLayout(t *testing.T) {
	cfg := vault.DefaultConfig(address.Address{0x33})
	funder := keypair(t).Address()
	plan, err := client.Build(cfg, funder, 128)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ix := Instruction(plan.Invocation)
	if !ix.ProgramID().Equals(solana.PublicKey(cfg.Program)) {
		t.Fatalf("program id = %s", ix.ProgramID())
	}
	metas := ix.Accounts()
	if len(metas) != 3 {
		t.Fatalf("got %d metas", len(metas))
	}
	if !metas[0].IsSigner || !metas[0].IsWritable || metas[0].PublicKey != solana.PublicKey(funder) {
		t.Fatalf("funder meta = %+v", metas[0])
	}
	if metas[1].IsSigner || !metas[1].IsWritable || metas[1].PublicKey != solana.PublicKey(plan.Target) {
		t.Fatalf("target meta = %+v", metas[1])
	}
	if metas[2].IsSigner || metas[2].IsWritable || !metas[2].PublicKey.Equals(solana.SystemProgramID) {
		t.Fatalf("authority meta = %+v", metas[2])
	}
	data, err := ix.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if len(data) != vault.RequestSize || data[0] != plan.Bump {
		t.Fatalf("data = %x", data)
	}
}

func TestSubmitSendsSignedTransaction(t *testing.T) {
	f := &fakeCluster{}
	s := newSubmitter(t, f)
	kp := keypair(t)
	cfg := vault.DefaultConfig(address.Address{0x33})

	res, err := client.Create(context.Background(), s, cfg, kp, 128)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Lamports != 1781760 {
		t.Fatalf("lamports = %d", res.Lamports)
	}
	if res.Receipt != (solana.Signature{9}).String() {
		t.Fatalf("receipt = %s", res.Receipt)
	}

	if len(f.sent) != 1 {
		t.Fatalf("sent %d transactions", len(f.sent))
	}
	raw, err := base64.StdEncoding.DecodeString(f.sent[0])
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		t.Fatalf("TransactionFromDecoder: %v", err)
	}
	if tx.Message.RecentBlockhash != blockhash {
		t.Fatalf("blockhash = %s", tx.Message.RecentBlockhash)
	}
	if err := tx.VerifySignatures(); err != nil {
		t.Fatalf("VerifySignatures: %v", err)
	}
	if !tx.Message.AccountKeys[0].Equals(solana.PublicKey(kp.Address())) {
		t.Fatalf("fee payer = %s", tx.Message.AccountKeys[0])
	}
}

func TestSubmitWaitsForCommitment(t *testing.T) {
	f := &fakeCluster{statuses: []any{
		nil,
		status(rpc.ConfirmationStatusProcessed, nil),
		status(rpc.ConfirmationStatusConfirmed, nil),
	}}
	s := newSubmitter(t, f)
	cfg := vault.DefaultConfig(address.Address{0x33})

	if _, err := client.Create(context.Background(), s, cfg, keypair(t), 128); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n := f.calls("getSignatureStatuses"); n != 3 {
		t.Fatalf("getSignatureStatuses called %d times, want 3", n)
	}
	if n := f.calls("getBlockHeight"); n != 1 {
		t.Fatalf("getBlockHeight called %d times, want 1", n)
	}
}

func TestSubmitSurfacesTransactionError(t *testing.T) {
	txErr := map[string]any{"InstructionError": []any{0, map[string]any{"Custom": 0}}}
	f := &fakeCluster{statuses: []any{status(rpc.ConfirmationStatusProcessed, txErr)}}
	s := newSubmitter(t, f)
	s.opts.SkipPreflight = true
	cfg := vault.DefaultConfig(address.Address{0x33})

	res, err := client.Create(context.Background(), s, cfg, keypair(t), 128)
	if !errors.Is(err, ledger.ErrTransactionFailed) {
		t.Fatalf("got %v want ErrTransactionFailed", err)
	}
	if res.Receipt != "" {
		t.Fatalf("failed creation reported receipt %s", res.Receipt)
	}
}

func TestSubmitExpiredBlockhash(t *testing.T) {
	f := &fakeCluster{statuses: []any{nil}, blockHeight: 101}
	s := newSubmitter(t, f)
	cfg := vault.DefaultConfig(address.Address{0x33})

	_, err := client.Create(context.Background(), s, cfg, keypair(t), 128)
	if !errors.Is(err, ledger.ErrTransactionExpired) {
		t.Fatalf("got %v want ErrTransactionExpired", err)
	}
}

func TestSubmitHonorsCancellation(t *testing.T) {
	f := &fakeCluster{statuses: []any{status(rpc.ConfirmationStatusProcessed, nil)}}
	s := newSubmitter(t, f)
	s.opts.Commitment = rpc.CommitmentFinalized
	cfg := vault.DefaultConfig(address.Address{0x33})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.Create(ctx, s, cfg, keypair(t), 128); err == nil {
		t.Fatalf("expected an error while the transaction stays below finalized")
	}
}

func TestAccountLookup(t *testing.T) {
	s := newSubmitter(t, &fakeCluster{})
	acct, err := s.Account(context.Background(), address.Address{0x44})
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acct.Lamports != 1781760 || acct.Space != 128 || acct.Owner != address.SystemProgram {
		t.Fatalf("account = %+v", acct)
	}

	missing := newSubmitter(t, &fakeCluster{accountMissing: true})
	if _, err := missing.Account(context.Background(), address.Address{0x45}); !errors.Is(err, ledger.ErrUnknownAccount) {
		t.Fatalf("got %v want ErrUnknownAccount", err)
	}
}

func TestAirdrop(t *testing.T) {
	s := newSubmitter(t, &fakeCluster{})
	sig, err := s.Airdrop(context.Background(), keypair(t).Address(), 1_000_000_000)
	if err != nil {
		t.Fatalf("Airdrop: %v", err)
	}
	if sig != (solana.Signature{8}).String() {
		t.Fatalf("sig = %s", sig)
	}
}

func TestParseCommitment(t *testing.T) {
	if c, err := ParseCommitment(" Finalized "); err != nil || c != rpc.CommitmentFinalized {
		t.Fatalf("got %q, %v", c, err)
	}
	if _, err := ParseCommitment("eventually"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewRequiresEndpoint(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error")
	}
}
