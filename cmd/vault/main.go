package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"xdao.co/vault/config"
	"xdao.co/vault/internal/observability"
	"xdao.co/vault/keys"
	"xdao.co/vault/vault"

	_ "xdao.co/vault/ledger/grpcledger"
	_ "xdao.co/vault/ledger/solanarpc"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "account":
		return cmdAccount(args[1:], out, errOut)
	case "airdrop":
		return cmdAirdrop(args[1:], out, errOut)
	case "create":
		return cmdCreate(args[1:], out, errOut)
	case "decode":
		return cmdDecode(args[1:], out, errOut)
	case "derive":
		return cmdDerive(args[1:], out, errOut)
	case "encode":
		return cmdEncode(args[1:], out, errOut)
	case "journal":
		return cmdJournal(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "rent":
		return cmdRent(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "vault: program-derived vault account tool")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  vault key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  vault key list")
	fmt.Fprintln(w, "  vault key export --name <name>")
	fmt.Fprintln(w, "  vault derive (--funder <address> | <signer>) [--bump <n>]")
	fmt.Fprintln(w, "  vault encode --bump <n> --space <n>")
	fmt.Fprintln(w, "  vault decode <hex>")
	fmt.Fprintln(w, "  vault rent --space <n>")
	fmt.Fprintln(w, "  vault create <signer> --space <n> [--backend <name>]")
	fmt.Fprintln(w, "  vault airdrop (--to <address> | <signer>) --lamports <n> [--backend <name>]")
	fmt.Fprintln(w, "  vault account --address <address> [--backend <name>]")
	fmt.Fprintln(w, "  vault journal log|export|import --journal-dir <dir> ...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Signer: --signer <name> | --key-file <path> | --seed-hex <64hex>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - keys are stored under ~/.xdao/vault/keys/<name>.key (0600, hex seed); --keys-dir overrides")
	fmt.Fprintln(w, "  - --config <file.toml> and VAULT_* environment variables set program, tag and rent")
	fmt.Fprintln(w, "  - backends: local (journal directory), grpc (vault-ledgerd), solana (cluster RPC)")
	fmt.Fprintln(w, "  - failures of the vault program print their kind, e.g. CreationRejectedByLedger")
}

// common holds flags shared by commands that need configuration.
type common struct {
	configPath string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "TOML config file (VAULT_* env overrides)")
}

func (c *common) load() (config.File, vault.Config, zerolog.Logger, error) {
	f, err := config.Load(c.configPath)
	if err != nil {
		return config.File{}, vault.Config{}, zerolog.Nop(), err
	}
	cfg, err := f.Vault()
	if err != nil {
		return config.File{}, vault.Config{}, zerolog.Nop(), err
	}
	logger, err := observability.InitLogger("vault", f.LogLevel)
	if err != nil {
		return config.File{}, vault.Config{}, zerolog.Nop(), err
	}
	return f, cfg, logger, nil
}

type signerFlags struct {
	name    string
	keyFile string
	seedHex string
	keysDir string
}

func (s *signerFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.name, "signer", "", "Stored key name")
	fs.StringVar(&s.keyFile, "key-file", "", "Path to a hex seed file")
	fs.StringVar(&s.seedHex, "seed-hex", "", "ed25519 seed as 64 hex chars")
	fs.StringVar(&s.keysDir, "keys-dir", "", "Key directory (default ~/.xdao/vault/keys)")
}

func (s *signerFlags) set() bool {
	return s.name != "" || s.keyFile != "" || s.seedHex != ""
}

func (s *signerFlags) keypair() (keys.Keypair, error) {
	ks, err := keys.CreateKeyStore(s.keysDir)
	if err != nil {
		return keys.Keypair{}, err
	}
	return ks.Resolve(s.seedHex, s.name, s.keyFile)
}

// reportErr prints err, leading with the vault error kind when there is one.
func reportErr(errOut io.Writer, what string, err error) {
	if k := vault.KindOf(err); k != "" {
		fmt.Fprintf(errOut, "%s failed [%s]: %v\n", what, k, err)
		return
	}
	fmt.Fprintf(errOut, "%s failed: %v\n", what, err)
}
