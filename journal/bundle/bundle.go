// Package bundle moves a journal between stores as a deterministic TAR file.
//
// Layout:
//
//	receipts/<cid>   one entry per receipt, oldest first
//	HEAD             the CID of the newest receipt
package bundle

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/vault/journal"
)

const (
	receiptPrefix = "receipts/"
	headEntry     = "HEAD"
)

// ErrDiverged is returned when a bundle does not extend the target's chain.
var ErrDiverged = errors.New("bundle: journal does not extend the existing head")

var epoch0 = time.Unix(0, 0).UTC()

// Export writes the store's chain to w and returns the number of receipts.
// Every receipt is verified against its CID on the way out.
func Export(w io.Writer, s journal.Store) (int, error) {
	if s == nil {
		return 0, errors.New("bundle: nil store")
	}
	var blocks [][]byte
	var ids []cid.Cid
	err := journal.Replay(s, func(id cid.Cid, r journal.Receipt) error {
		b, err := s.Get(id)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		blocks = append(blocks, b)
		return nil
	})
	if err != nil {
		return 0, err
	}

	tw := tar.NewWriter(w)
	for i, id := range ids {
		if err := writeFile(tw, receiptPrefix+id.String(), blocks[i]); err != nil {
			_ = tw.Close()
			return 0, err
		}
	}
	head := ""
	if len(ids) > 0 {
		head = ids[len(ids)-1].String()
	}
	if err := writeFile(tw, headEntry, []byte(head+"\n")); err != nil {
		_ = tw.Close()
		return 0, err
	}
	return len(ids), tw.Close()
}

// Import verifies the bundle read from r and copies it into s, advancing the
// head. When s already has a head it must be part of the bundled chain.
func Import(r io.Reader, s journal.Store) (cid.Cid, error) {
	if s == nil {
		return cid.Undef, errors.New("bundle: nil store")
	}
	staged := journal.NewMemStore()
	head, err := read(r, staged)
	if err != nil {
		return cid.Undef, err
	}
	if err := staged.SetHead(head); err != nil {
		return cid.Undef, err
	}

	current, err := s.Head()
	if err != nil {
		return cid.Undef, err
	}
	extends := !current.Defined()
	var ordered []cid.Cid
	err = journal.Replay(staged, func(id cid.Cid, _ journal.Receipt) error {
		ordered = append(ordered, id)
		if current.Defined() && id.Equals(current) {
			extends = true
		}
		return nil
	})
	if err != nil {
		return cid.Undef, fmt.Errorf("bundle: %w", err)
	}
	if !extends {
		return cid.Undef, ErrDiverged
	}

	for _, id := range ordered {
		b, err := staged.Get(id)
		if err != nil {
			return cid.Undef, err
		}
		got, err := s.Put(b)
		if err != nil {
			return cid.Undef, err
		}
		if !got.Equals(id) {
			return cid.Undef, journal.ErrCIDMismatch
		}
	}
	if err := s.SetHead(head); err != nil {
		return cid.Undef, err
	}
	return head, nil
}

// read loads receipts into staged and returns the bundled head.
func read(r io.Reader, staged journal.Store) (cid.Cid, error) {
	tr := tar.NewReader(r)
	head := cid.Undef
	sawHead := false
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return cid.Undef, err
		}
		if h.Typeflag != tar.TypeReg {
			return cid.Undef, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, h.Name)
		}
		payload, err := io.ReadAll(tr)
		if err != nil {
			return cid.Undef, err
		}

		switch name := h.Name; {
		case name == headEntry:
			if sawHead {
				return cid.Undef, errors.New("bundle: duplicate HEAD")
			}
			sawHead = true
			if text := strings.TrimSpace(string(payload)); text != "" {
				if head, err = cid.Decode(text); err != nil {
					return cid.Undef, journal.ErrInvalidCID
				}
			}
		case strings.HasPrefix(name, receiptPrefix):
			id, err := cid.Decode(strings.TrimPrefix(name, receiptPrefix))
			if err != nil || !id.Defined() {
				return cid.Undef, journal.ErrInvalidCID
			}
			if staged.Has(id) {
				return cid.Undef, fmt.Errorf("bundle: duplicate receipt: %s", id)
			}
			got, err := staged.Put(payload)
			if err != nil {
				return cid.Undef, err
			}
			if !got.Equals(id) {
				return cid.Undef, journal.ErrCIDMismatch
			}
		default:
			return cid.Undef, fmt.Errorf("bundle: unknown entry: %s", name)
		}
	}
	if !sawHead {
		return cid.Undef, errors.New("bundle: missing HEAD")
	}
	return head, nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}
