// Package localfs is a directory-backed journal.Store.
package localfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/vault/journal"
)

const headFile = "HEAD"

// Store keeps receipts as read-only files named by CID and the head CID in
// a HEAD file that is replaced atomically by rename.
type Store struct {
	root string
}

var _ journal.Store = (*Store)(nil)

// New opens a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(b []byte) (cid.Cid, error) {
	id, err := journal.CID(b)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, journal.ErrInvalidCID
	}

	path := s.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := s.Get(id)
			if rerr != nil {
				// Present but unreadable or corrupted.
				return cid.Undef, journal.ErrImmutable
			}
			if string(existing) != string(b) {
				return cid.Undef, journal.ErrImmutable
			}
			return id, nil
		}
		return cid.Undef, err
	}
	defer f.Close()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}
	return id, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, journal.ErrInvalidCID
	}
	b, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, journal.ErrNotFound
		}
		return nil, err
	}
	got, err := journal.CID(b)
	if err != nil {
		return nil, err
	}
	if got != id {
		return nil, journal.ErrCIDMismatch
	}
	return b, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(s.pathFor(id))
	return err == nil
}

func (s *Store) Head() (cid.Cid, error) {
	b, err := os.ReadFile(filepath.Join(s.root, headFile))
	if err != nil {
		if os.IsNotExist(err) {
			return cid.Undef, nil
		}
		return cid.Undef, err
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return cid.Undef, nil
	}
	id, err := cid.Decode(text)
	if err != nil {
		return cid.Undef, fmt.Errorf("localfs: corrupt HEAD: %w", err)
	}
	return id, nil
}

func (s *Store) SetHead(id cid.Cid) error {
	text := ""
	if id.Defined() {
		if !s.Has(id) {
			return journal.ErrNotFound
		}
		text = id.String()
	}
	tmp, err := os.CreateTemp(s.root, headFile+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(text + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filepath.Join(s.root, headFile))
}

func (s *Store) pathFor(id cid.Cid) string {
	str := id.String()
	if len(str) < 2 {
		return filepath.Join(s.root, str)
	}
	return filepath.Join(s.root, str[:2], str)
}
