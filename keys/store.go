package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"

	"xdao.co/vault/address"
)

// KeyStore is a simple local-first store of funder keys.
//
// EXPERIMENTAL: this filesystem-backed storage surface may change in MINOR
// releases.
//
// Each key is a hex-encoded ed25519 seed in <Directory>/<name>.key (0600).
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Name    string
	Address address.Address
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".xdao", "vault", "keys"), nil
}

func CreateKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) keyFilePath(name string) string {
	return filepath.Join(ks.Directory, name+".key")
}

func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("key name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in key name", char)
	}
	return nil
}

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func saveSeedToFile(filePath string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := file.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		return err
	}
	return file.Close()
}

// LoadFile reads a keypair from a seed file.
func LoadFile(filePath string) (Keypair, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Keypair{}, err
	}
	seed, err := ParseSeedHex(string(data))
	if err != nil {
		return Keypair{}, err
	}
	return KeypairFromSeed(seed)
}

// Init stores seed under name and returns the funder address.
func (ks *KeyStore) Init(name string, seed []byte, overwrite bool) (addr address.Address, filePath string, err error) {
	if err := CheckKeyName(name); err != nil {
		return address.Address{}, "", err
	}
	kp, err := KeypairFromSeed(seed)
	if err != nil {
		return address.Address{}, "", err
	}
	filePath = ks.keyFilePath(name)
	if err := saveSeedToFile(filePath, seed, overwrite); err != nil {
		return address.Address{}, "", err
	}
	return kp.Address(), filePath, nil
}

func (ks *KeyStore) Load(name string) (Keypair, error) {
	if err := CheckKeyName(name); err != nil {
		return Keypair{}, err
	}
	return LoadFile(ks.keyFilePath(name))
}

// Resolve picks a keypair from the first non-empty source: a hex seed, a key
// file, or a stored key name.
func (ks *KeyStore) Resolve(seedHex, name, keyFile string) (Keypair, error) {
	if seedHex != "" {
		seed, err := ParseSeedHex(seedHex)
		if err != nil {
			return Keypair{}, err
		}
		return KeypairFromSeed(seed)
	}
	if keyFile != "" {
		return LoadFile(keyFile)
	}
	if name != "" {
		return ks.Load(name)
	}
	return Keypair{}, errors.New("no funder key provided")
}

func (ks *KeyStore) List() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".key") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".key"))
	}
	sort.Strings(names)

	result := make([]KeyEntry, 0, len(names))
	for _, name := range names {
		kp, err := ks.Load(name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		result = append(result, KeyEntry{Name: name, Address: kp.Address()})
	}
	return result, nil
}
