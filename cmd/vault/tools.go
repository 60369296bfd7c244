package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"strings"

	"xdao.co/vault/address"
	"xdao.co/vault/vault"
)

func cmdDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var c common
	var signer signerFlags
	var funderText string
	var bump int
	c.register(fs)
	signer.register(fs)
	fs.StringVar(&funderText, "funder", "", "Funder address (base58)")
	fs.IntVar(&bump, "bump", -1, "Explicit bump (default: search 255 down)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if bump > 255 {
		fmt.Fprintln(errOut, "--bump must be 0..255")
		return 2
	}
	funder, code := resolveAddress(funderText, &signer, "--funder", errOut)
	if code != 0 {
		return code
	}
	_, cfg, _, err := c.load()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 1
	}

	var target address.Address
	var b uint8
	if bump >= 0 {
		b = uint8(bump)
		target, err = cfg.TargetFor(funder, b)
	} else {
		target, b, err = cfg.FindTarget(funder)
	}
	if err != nil {
		fmt.Fprintf(errOut, "derive: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "address\t%s\n", target)
	fmt.Fprintf(out, "bump\t%d\n", b)
	return 0
}

func cmdEncode(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var bump uint
	var space uint64
	fs.UintVar(&bump, "bump", 0, "Bump byte")
	fs.Uint64Var(&space, "space", 0, "Requested storage size in bytes")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if bump > 255 {
		fmt.Fprintln(errOut, "--bump must be 0..255")
		return 2
	}
	b, err := vault.Request{Bump: uint8(bump), Space: space}.MarshalBinary()
	if err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, hex.EncodeToString(b))
	return 0
}

func cmdDecode(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: vault decode <hex>")
		return 2
	}
	b, err := hex.DecodeString(strings.TrimSpace(fs.Arg(0)))
	if err != nil {
		fmt.Fprintf(errOut, "invalid hex: %v\n", err)
		return 2
	}
	req, err := vault.DecodeRequest(b)
	if err != nil {
		reportErr(errOut, "decode", err)
		return 1
	}
	fmt.Fprintf(out, "bump\t%d\n", req.Bump)
	fmt.Fprintf(out, "space\t%d\n", req.Space)
	return 0
}

func cmdRent(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("rent", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c common
	var space uint64
	c.register(fs)
	fs.Uint64Var(&space, "space", 0, "Storage size in bytes")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	f, _, _, err := c.load()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 1
	}
	rent, err := f.Rent()
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 1
	}
	lamports, err := rent.MinimumBalance(space)
	if err != nil {
		fmt.Fprintf(errOut, "rent: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, lamports)
	return 0
}

// resolveAddress reads an address from text, falling back to the signer's
// public key.
func resolveAddress(text string, signer *signerFlags, flagName string, errOut io.Writer) (address.Address, int) {
	if text != "" {
		addr, err := address.Parse(strings.TrimSpace(text))
		if err != nil {
			fmt.Fprintf(errOut, "invalid %s: %v\n", flagName, err)
			return address.Address{}, 2
		}
		return addr, 0
	}
	if !signer.set() {
		fmt.Fprintf(errOut, "missing %s or signer\n", flagName)
		return address.Address{}, 2
	}
	kp, err := signer.keypair()
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return address.Address{}, 1
	}
	return kp.Address(), 0
}
