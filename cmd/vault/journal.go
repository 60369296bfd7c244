package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"

	"xdao.co/vault/journal"
	"xdao.co/vault/journal/bundle"
	"xdao.co/vault/journal/localfs"
)

func cmdJournal(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printJournalUsage(errOut)
		return 2
	}
	switch args[0] {
	case "log":
		return cmdJournalLog(args[1:], out, errOut)
	case "export":
		return cmdJournalExport(args[1:], out, errOut)
	case "import":
		return cmdJournalImport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printJournalUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown journal subcommand: %s\n\n", args[0])
		printJournalUsage(errOut)
		return 2
	}
}

func printJournalUsage(w io.Writer) {
	fmt.Fprintln(w, "vault journal: inspect and move ledger journals")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  vault journal log --journal-dir <dir>")
	fmt.Fprintln(w, "  vault journal export --journal-dir <dir> [--out <file.tar>]")
	fmt.Fprintln(w, "  vault journal import --journal-dir <dir> <file.tar>")
}

func openJournal(fs *flag.FlagSet, dir string, errOut io.Writer) (*localfs.Store, int) {
	if dir == "" {
		fmt.Fprintf(errOut, "%s: missing --journal-dir\n", fs.Name())
		return nil, 2
	}
	s, err := localfs.New(dir)
	if err != nil {
		fmt.Fprintf(errOut, "journal: %v\n", err)
		return nil, 1
	}
	return s, 0
}

func cmdJournalLog(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("journal log", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var dir string
	fs.StringVar(&dir, "journal-dir", "", "Journal directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	s, code := openJournal(fs, dir, errOut)
	if code != 0 {
		return code
	}
	err := journal.Replay(s, func(id cid.Cid, r journal.Receipt) error {
		switch r.Kind {
		case journal.KindCreate:
			_, err := fmt.Fprintf(out, "%d\t%s\t%s\tfrom=%s to=%s lamports=%d space=%d\n",
				r.Seq, id, r.Kind, r.From, r.To, r.Lamports, r.Space)
			return err
		default:
			_, err := fmt.Fprintf(out, "%d\t%s\t%s\tto=%s lamports=%d\n", r.Seq, id, r.Kind, r.To, r.Lamports)
			return err
		}
	})
	if err != nil {
		fmt.Fprintf(errOut, "journal: %v\n", err)
		return 1
	}
	return 0
}

func cmdJournalExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("journal export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var dir, outPath string
	fs.StringVar(&dir, "journal-dir", "", "Journal directory")
	fs.StringVar(&outPath, "out", "", "Bundle file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	s, code := openJournal(fs, dir, errOut)
	if code != 0 {
		return code
	}

	w := out
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			fmt.Fprintf(errOut, "create %s: %v\n", outPath, err)
			return 1
		}
		defer f.Close()
		w = f
	}
	n, err := bundle.Export(w, s)
	if err != nil {
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "exported %d receipts\n", n)
	return 0
}

func cmdJournalImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("journal import", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var dir string
	fs.StringVar(&dir, "journal-dir", "", "Journal directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: vault journal import --journal-dir <dir> <file.tar>")
		return 2
	}
	s, code := openJournal(fs, dir, errOut)
	if code != 0 {
		return code
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open bundle: %v\n", err)
		return 1
	}
	defer f.Close()
	head, err := bundle.Import(f, s)
	if err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, head)
	return 0
}
