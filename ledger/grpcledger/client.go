package grpcledger

import (
	"bytes"
	"context"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/vault/address"
	"xdao.co/vault/client"
	"xdao.co/vault/keys"
	"xdao.co/vault/ledger"
	"xdao.co/vault/runtime"
)

// Client implements client.Submitter against a vault-ledgerd daemon.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var (
	_ client.Submitter     = (*Client)(nil)
	_ client.Airdropper    = (*Client)(nil)
	_ client.AccountReader = (*Client)(nil)
)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection. Close closes it.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewLedgerClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Submit signs inv with funder and invokes it. The result is the daemon's
// journal head after the creation.
func (c *Client) Submit(ctx context.Context, inv runtime.Invocation, funder keys.Keypair) (string, error) {
	signed, err := runtime.Sign(inv, funder)
	if err != nil {
		return "", err
	}
	payload, err := signed.Encode()
	if err != nil {
		return "", err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	var trailer metadata.MD
	reply, err := c.client.Invoke(ctx, wrapperspb.Bytes(payload), grpc.Trailer(&trailer))
	if err != nil {
		return "", mapRPC(err, trailer)
	}
	return reply.GetValue(), nil
}

func (c *Client) MinimumBalance(ctx context.Context, space uint64) (uint64, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	var trailer metadata.MD
	reply, err := c.client.MinimumBalance(ctx, wrapperspb.UInt64(space), grpc.Trailer(&trailer))
	if err != nil {
		return 0, mapRPC(err, trailer)
	}
	return reply.GetValue(), nil
}

func (c *Client) Airdrop(ctx context.Context, to address.Address, lamports uint64) (string, error) {
	var buf bytes.Buffer
	if err := bin.NewBorshEncoder(&buf).Encode(&airdropRequest{To: to, Lamports: lamports}); err != nil {
		return "", fmt.Errorf("grpcledger: encode airdrop: %w", err)
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	var trailer metadata.MD
	reply, err := c.client.Airdrop(ctx, wrapperspb.Bytes(buf.Bytes()), grpc.Trailer(&trailer))
	if err != nil {
		return "", mapRPC(err, trailer)
	}
	return reply.GetValue(), nil
}

func (c *Client) Account(ctx context.Context, addr address.Address) (ledger.Account, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	var trailer metadata.MD
	reply, err := c.client.GetAccount(ctx, wrapperspb.Bytes(addr.Bytes()), grpc.Trailer(&trailer))
	if err != nil {
		return ledger.Account{}, mapRPC(err, trailer)
	}
	var acct ledger.Account
	if err := bin.NewBorshDecoder(reply.GetValue()).Decode(&acct); err != nil {
		return ledger.Account{}, fmt.Errorf("grpcledger: decode account: %w", err)
	}
	return acct, nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
