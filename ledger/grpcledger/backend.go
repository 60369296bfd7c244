package grpcledger

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"xdao.co/vault/client"
	"xdao.co/vault/client/registry"
)

var (
	flagTarget      string
	flagDialTimeout time.Duration
	flagTimeout     time.Duration
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "grpc",
		Description: "vault-ledgerd over gRPC",
		Usage:       registry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagTarget, "grpc-target", "127.0.0.1:7878", "gRPC target host:port (for --backend=grpc)")
			fs.DurationVar(&flagDialTimeout, "grpc-dial-timeout", 5*time.Second, "Dial timeout (for --backend=grpc)")
			fs.DurationVar(&flagTimeout, "grpc-timeout", 0, "Per-RPC timeout (for --backend=grpc)")
		},
		Open: func() (client.Submitter, func() error, error) {
			target := strings.TrimSpace(flagTarget)
			if target == "" {
				return nil, nil, fmt.Errorf("missing --grpc-target")
			}
			c, err := Dial(target, DialOptions{Timeout: flagDialTimeout})
			if err != nil {
				return nil, nil, err
			}
			c.Timeout = flagTimeout
			return c, c.Close, nil
		},
	})
}
