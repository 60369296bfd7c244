package journal

import (
	"errors"
	"sync"

	"github.com/ipfs/go-cid"
)

var (
	ErrNotFound    = errors.New("journal: not found")
	ErrInvalidCID  = errors.New("journal: invalid cid")
	ErrCIDMismatch = errors.New("journal: cid mismatch")
	ErrImmutable   = errors.New("journal: immutable object mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Store persists receipts by CID plus a mutable head pointer.
//
// Contract:
// - Put MUST be idempotent and stored objects MUST be immutable.
// - CIDs MUST be derived from the bytes written (see CID).
// - Get MUST return ErrNotFound when the CID is absent.
// - Head returns cid.Undef for an empty journal.
type Store interface {
	Put(b []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
	Head() (cid.Cid, error)
	SetHead(id cid.Cid) error
}

// MemStore is an in-memory Store.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	head    cid.Cid
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{objects: map[string][]byte{}}
}

func (m *MemStore) Put(b []byte) (cid.Cid, error) {
	id, err := CID(b)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.objects[id.KeyString()]; ok {
		if string(existing) != string(b) {
			return cid.Undef, ErrImmutable
		}
		return id, nil
	}
	m.objects[id.KeyString()] = append([]byte(nil), b...)
	return id, nil
}

func (m *MemStore) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[id.KeyString()]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemStore) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[id.KeyString()]
	return ok
}

func (m *MemStore) Head() (cid.Cid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.head, nil
}

func (m *MemStore) SetHead(id cid.Cid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id.Defined() {
		if _, ok := m.objects[id.KeyString()]; !ok {
			return ErrNotFound
		}
	}
	m.head = id
	return nil
}
