// Package config loads vault settings from a TOML file overlaid by VAULT_*
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"xdao.co/vault/address"
	"xdao.co/vault/derive"
	"xdao.co/vault/ledger"
	"xdao.co/vault/vault"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VAULT_"

// DefaultProgram is the program id of the reference deployment.
const DefaultProgram = "AxhGGBeAQc1SumsczWjgUxbbhhZR7FsTAtfoc5Ay6oaw"

type File struct {
	Tag             string `toml:"tag" env:"TAG"`
	Program         string `toml:"program" env:"PROGRAM"`
	SystemAuthority string `toml:"system_authority" env:"SYSTEM_AUTHORITY"`
	Hash            string `toml:"hash" env:"HASH"`

	RentLamportsPerByteYear uint64  `toml:"rent_lamports_per_byte_year" env:"RENT_LAMPORTS_PER_BYTE_YEAR"`
	RentExemptionThreshold  float64 `toml:"rent_exemption_threshold" env:"RENT_EXEMPTION_THRESHOLD"`

	JournalDir    string `toml:"journal_dir" env:"JOURNAL_DIR"`
	Listen        string `toml:"listen" env:"LISTEN"`
	MetricsListen string `toml:"metrics_listen" env:"METRICS_LISTEN"`
	LogLevel      string `toml:"log_level" env:"LOG_LEVEL"`
}

func Default() File {
	return File{
		Tag:                     vault.DefaultTag,
		Program:                 DefaultProgram,
		SystemAuthority:         address.SystemProgram.String(),
		Hash:                    string(derive.SHA256),
		RentLamportsPerByteYear: ledger.DefaultRent.LamportsPerByteYear,
		RentExemptionThreshold:  ledger.DefaultRent.ExemptionThreshold,
		Listen:                  "127.0.0.1:7878",
		LogLevel:                "info",
	}
}

// Load returns the defaults overlaid by the TOML file at path (skipped when
// path is empty) and then by the process environment.
func Load(path string) (File, error) {
	return load(path, env.Options{Prefix: EnvPrefix})
}

// LoadEnviron is Load with an explicit environment instead of the process's.
func LoadEnviron(path string, environ map[string]string) (File, error) {
	return load(path, env.Options{Prefix: EnvPrefix, Environment: environ})
}

func load(path string, opts env.Options) (File, error) {
	f := Default()
	if strings.TrimSpace(path) != "" {
		meta, err := toml.DecodeFile(path, &f)
		if err != nil {
			return File{}, fmt.Errorf("load config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return File{}, fmt.Errorf("load config %s: unknown keys %v", path, undecoded)
		}
	}
	if err := env.ParseWithOptions(&f, opts); err != nil {
		return File{}, fmt.Errorf("parse env: %w", err)
	}
	return f, nil
}

// Vault returns the program configuration.
func (f File) Vault() (vault.Config, error) {
	program, err := address.Parse(strings.TrimSpace(f.Program))
	if err != nil {
		return vault.Config{}, fmt.Errorf("config: program: %w", err)
	}
	authority, err := address.Parse(strings.TrimSpace(f.SystemAuthority))
	if err != nil {
		return vault.Config{}, fmt.Errorf("config: system_authority: %w", err)
	}
	cfg := vault.Config{
		Tag:             []byte(f.Tag),
		Program:         program,
		SystemAuthority: authority,
		Scheme:          derive.Scheme{Hash: derive.Hash(strings.ToLower(strings.TrimSpace(f.Hash)))},
	}
	if err := cfg.Validate(); err != nil {
		return vault.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Rent returns the storage-cost schedule.
func (f File) Rent() (ledger.Rent, error) {
	if f.RentLamportsPerByteYear == 0 || f.RentExemptionThreshold <= 0 {
		return ledger.Rent{}, fmt.Errorf("config: rent schedule must be positive (got %d lamports/byte-year, threshold %g)",
			f.RentLamportsPerByteYear, f.RentExemptionThreshold)
	}
	return ledger.Rent{
		LamportsPerByteYear: f.RentLamportsPerByteYear,
		ExemptionThreshold:  f.RentExemptionThreshold,
	}, nil
}
