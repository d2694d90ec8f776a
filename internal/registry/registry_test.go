package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testChains() map[string]EntryConfig {
	return map[string]EntryConfig{
		"base": {
			BurnContract: "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962",
			MintContract: "0xAD09780d193884d503182aD4588450C416D6F9D4",
			StableToken:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
			DomainID:     6,
		},
		"avalanche": {
			BurnContract: "0x6B25532e1060CE10cc3B0A99e5683b91BFDe6982",
			MintContract: "0x8186359aF5F57FbB40c6b14A588d2A59C0C29880",
			StableToken:  "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
			DomainID:     1,
		},
		"testchain": {
			// Registered but not deployed yet.
			BurnContract: "",
			MintContract: "",
			StableToken:  "0x0000000000000000000000000000000000000001",
			DomainID:     26,
		},
	}
}

func TestLookupKnownChain(t *testing.T) {
	reg, err := New(testChains())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	entry, err := reg.Lookup("base")
	if err != nil {
		t.Fatalf("lookup base: %v", err)
	}
	if entry.DomainID != 6 {
		t.Fatalf("expected domain 6 got %d", entry.DomainID)
	}
	if entry.BurnContract.Hex() != "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962" {
		t.Fatalf("unexpected burn contract %s", entry.BurnContract.Hex())
	}
}

func TestLookupUnknownChain(t *testing.T) {
	reg, err := New(testChains())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	_, err = reg.Lookup("dogecoin")
	if !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected ErrUnsupportedChain got %v", err)
	}
}

func TestLookupUndeployedChain(t *testing.T) {
	reg, err := New(testChains())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	_, err = reg.Lookup("testchain")
	if !errors.Is(err, ErrContractsNotDeployed) {
		t.Fatalf("expected ErrContractsNotDeployed got %v", err)
	}
}

func TestDuplicateDomainRejected(t *testing.T) {
	chains := testChains()
	dup := chains["base"]
	dup.DomainID = 1 // collides with avalanche
	chains["base"] = dup

	if _, err := New(chains); err == nil {
		t.Fatal("expected duplicate domain id to be rejected")
	}
}

func TestDomainIDsPairwiseDistinct(t *testing.T) {
	reg, err := New(testChains())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	seen := map[uint32]string{}
	for _, name := range reg.Chains() {
		entry := reg.entries[name]
		if prev, ok := seen[entry.DomainID]; ok {
			t.Fatalf("domain %d shared by %s and %s", entry.DomainID, prev, name)
		}
		seen[entry.DomainID] = name
	}
}

func TestInvalidAddressRejected(t *testing.T) {
	chains := testChains()
	bad := chains["base"]
	bad.BurnContract = "not-an-address"
	chains["base"] = bad

	if _, err := New(chains); err == nil {
		t.Fatal("expected invalid address to be rejected")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chains.yaml")
	blob := `chains:
  base:
    burn-contract: "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962"
    mint-contract: "0xAD09780d193884d503182aD4588450C416D6F9D4"
    stable-token: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
    domain-id: 6
`
	if err := os.WriteFile(path, []byte(blob), 0o600); err != nil {
		t.Fatalf("write chains file: %v", err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := reg.Lookup("base"); err != nil {
		t.Fatalf("lookup after load: %v", err)
	}
}
