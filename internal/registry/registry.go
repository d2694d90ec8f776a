package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnsupportedChain     = errors.New("unsupported chain")
	ErrContractsNotDeployed = errors.New("contracts not deployed")
)

// Entry describes one supported chain: the bridge contracts, the stable
// token, and the domain id the attestation oracle knows the chain by.
type Entry struct {
	Chain        string
	BurnContract common.Address
	MintContract common.Address
	StableToken  common.Address
	DomainID     uint32
}

// Registry is a read-only chain lookup table. Safe for concurrent use.
type Registry struct {
	entries map[string]Entry
}

// EntryConfig is the on-disk form of an Entry.
type EntryConfig struct {
	BurnContract string `yaml:"burn-contract"`
	MintContract string `yaml:"mint-contract"`
	StableToken  string `yaml:"stable-token"`
	DomainID     uint32 `yaml:"domain-id"`
}

type fileConfig struct {
	Chains map[string]EntryConfig `yaml:"chains"`
}

// Load reads a chains.yaml file and validates it.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chains config: %w", err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse chains config: %w", err)
	}
	return New(cfg.Chains)
}

// New builds a Registry from per-chain config. Domain ids must be unique
// across all entries; that is enforced here, once, not per lookup.
func New(chains map[string]EntryConfig) (*Registry, error) {
	if len(chains) == 0 {
		return nil, errors.New("no chains configured")
	}

	entries := make(map[string]Entry, len(chains))
	seenDomains := make(map[uint32]string, len(chains))

	// Deterministic iteration so validation errors are stable.
	names := make([]string, 0, len(chains))
	for name := range chains {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := chains[name]
		entry, err := parseEntry(name, cfg)
		if err != nil {
			return nil, err
		}
		if prev, dup := seenDomains[entry.DomainID]; dup {
			return nil, fmt.Errorf("chain %s: domain id %d already used by %s", name, entry.DomainID, prev)
		}
		seenDomains[entry.DomainID] = name
		entries[name] = entry
	}

	return &Registry{entries: entries}, nil
}

func parseEntry(chain string, cfg EntryConfig) (Entry, error) {
	burn, err := parseAddress(chain, "burn-contract", cfg.BurnContract)
	if err != nil {
		return Entry{}, err
	}
	mint, err := parseAddress(chain, "mint-contract", cfg.MintContract)
	if err != nil {
		return Entry{}, err
	}
	token, err := parseAddress(chain, "stable-token", cfg.StableToken)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Chain:        chain,
		BurnContract: burn,
		MintContract: mint,
		StableToken:  token,
		DomainID:     cfg.DomainID,
	}, nil
}

func parseAddress(chain, field, value string) (common.Address, error) {
	// The zero-address sentinel marks a registered-but-undeployed chain and
	// is allowed through here; Lookup rejects it.
	if value == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("chain %s: invalid %s address %q", chain, field, value)
	}
	return common.HexToAddress(value), nil
}

// Lookup resolves a chain identifier. Unknown chains fail with
// ErrUnsupportedChain; entries whose burn or mint contract is still the
// zero-address sentinel fail with ErrContractsNotDeployed rather than
// leaking a half-usable entry.
func (r *Registry) Lookup(chain string) (Entry, error) {
	entry, ok := r.entries[chain]
	if !ok {
		return Entry{}, fmt.Errorf("chain %q: %w", chain, ErrUnsupportedChain)
	}
	zero := common.Address{}
	if entry.BurnContract == zero || entry.MintContract == zero {
		return Entry{}, fmt.Errorf("chain %q: %w", chain, ErrContractsNotDeployed)
	}
	return entry, nil
}

// Chains returns the registered chain identifiers, sorted.
func (r *Registry) Chains() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
