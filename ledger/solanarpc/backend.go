package solanarpc

import (
	"flag"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc"

	"xdao.co/vault/client"
	"xdao.co/vault/client/registry"
)

var (
	flagEndpoint      string
	flagCommitment    string
	flagSkipPreflight bool
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "solana",
		Description: "Solana cluster with the vault program deployed",
		Usage:       registry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagEndpoint, "solana-rpc", rpc.LocalNet_RPC, "JSON-RPC endpoint (for --backend=solana)")
			fs.StringVar(&flagCommitment, "solana-commitment", string(rpc.CommitmentConfirmed), "processed|confirmed|finalized (for --backend=solana)")
			fs.BoolVar(&flagSkipPreflight, "solana-skip-preflight", false, "Skip preflight simulation (for --backend=solana)")
		},
		Open: func() (client.Submitter, func() error, error) {
			commitment, err := ParseCommitment(flagCommitment)
			if err != nil {
				return nil, nil, err
			}
			s, err := New(Options{
				Endpoint:      strings.TrimSpace(flagEndpoint),
				Commitment:    commitment,
				SkipPreflight: flagSkipPreflight,
			})
			if err != nil {
				return nil, nil, err
			}
			return s, s.Close, nil
		},
	})
}

func ParseCommitment(s string) (rpc.CommitmentType, error) {
	switch c := rpc.CommitmentType(strings.ToLower(strings.TrimSpace(s))); c {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return c, nil
	default:
		return "", fmt.Errorf("solanarpc: unknown commitment %q", s)
	}
}
