// Package registry maps ledger backend names ("local", "grpc", "solana") to
// the code that opens a client.Submitter for them.
//
// A backend package registers itself from init, so a binary offers exactly
// the ledgers it imports:
//
//	import _ "xdao.co/vault/ledger/grpcledger"
package registry

import (
	"errors"
	"flag"
	"fmt"
	"slices"
	"strings"
	"sync"

	"xdao.co/vault/client"
)

var (
	ErrUnknownBackend     = errors.New("registry: unknown backend")
	ErrUnsupportedBackend = errors.New("registry: backend not offered by this binary")
)

// Usage says which binaries offer a backend.
type Usage uint8

const (
	// UsageCLI backends are selectable with cmd/vault --backend.
	UsageCLI Usage = 1 << iota
	// UsageDaemon backends can serve as the ledger behind a daemon.
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }

// Backend describes one ledger a submitter can talk to.
type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// RegisterFlags adds the backend's connection flags to fs. Flag names
	// carry the backend name as a prefix (--grpc-target, --solana-rpc).
	RegisterFlags func(fs *flag.FlagSet)

	// Open connects using the parsed flags. The close function may be nil.
	Open func() (client.Submitter, func() error, error)
}

func (b Backend) validate() error {
	switch {
	case b.Name == "":
		return errors.New("registry: backend name is required")
	case b.RegisterFlags == nil:
		return fmt.Errorf("registry: backend %q missing RegisterFlags", b.Name)
	case b.Open == nil:
		return fmt.Errorf("registry: backend %q missing Open", b.Name)
	case b.Usage == 0:
		return fmt.Errorf("registry: backend %q missing Usage", b.Name)
	}
	return nil
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register adds b. Names are unique.
func Register(b Backend) error {
	if err := b.validate(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := backends[b.Name]; dup {
		return fmt.Errorf("registry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is Register for init functions.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns the backends offered for usage, ordered by name.
func List(usage Usage) []Backend {
	mu.RLock()
	var out []Backend
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	mu.RUnlock()
	slices.SortFunc(out, func(a, b Backend) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func Names(usage Usage) []string {
	var names []string
	for _, b := range List(usage) {
		names = append(names, b.Name)
	}
	return names
}

// RegisterFlags adds every offered backend's flags to fs, so one parse
// accepts the options of whichever backend --backend selects.
func RegisterFlags(fs *flag.FlagSet, usage Usage) {
	for _, b := range List(usage) {
		b.RegisterFlags(fs)
	}
}

// Open connects to the named backend. A backend that reports success without
// a submitter is treated as a failure.
func Open(name string, usage Usage) (client.Submitter, func() error, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	switch {
	case !ok:
		return nil, nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownBackend, name, strings.Join(Names(usage), ", "))
	case !b.Usage.allows(usage):
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, name)
	}

	s, closeFn, err := b.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("registry: open %s: %w", name, err)
	}
	if s == nil {
		if closeFn != nil {
			_ = closeFn()
		}
		return nil, nil, fmt.Errorf("registry: open %s: no submitter", name)
	}
	return s, closeFn, nil
}
