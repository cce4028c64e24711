package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `
releases:
  - id: de4b98ad-3f9a-4aa9-ba7a-9f8cd80eab6e
    name: web 1.0
    key: d5c456a91eb5f69cf265510f6d6430b2ac9d7fc32d1000119bb18a7fbeed348b
experiments:
  - id: 00000000-0000-0000-0000-000000000000
    conditions: [0, 1, 2]
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	key, ok := c.ReleaseKey("DE4B98AD-3F9A-4AA9-BA7A-9F8CD80EAB6E")
	if !ok {
		t.Fatal("release lookup should normalise uuid case")
	}
	if len(key) != 32 {
		t.Errorf("key length: want 32, got %d", len(key))
	}
	if _, ok := c.ReleaseKey("not-a-uuid"); ok {
		t.Error("non-uuid lookup should miss")
	}
	conds, ok := c.Conditions("00000000-0000-0000-0000-000000000000")
	if !ok || len(conds) != 3 {
		t.Fatalf("Conditions: got %v, %v", conds, ok)
	}
	conds[0] = 99
	again, _ := c.Conditions("00000000-0000-0000-0000-000000000000")
	if again[0] != 0 {
		t.Error("Conditions must return a copy")
	}
	rels := c.Releases()
	if len(rels) != 1 || rels[0].Name != "web 1.0" {
		t.Errorf("Releases: got %+v", rels)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "releases: []\nbogus: 1\n"},
		{"bad release id", "releases:\n  - id: nope\n    key: d5c456a91eb5f69cf265510f6d6430b2\n"},
		{"short key", "releases:\n  - id: de4b98ad-3f9a-4aa9-ba7a-9f8cd80eab6e\n    key: abcd\n"},
		{"duplicate release", "releases:\n  - id: de4b98ad-3f9a-4aa9-ba7a-9f8cd80eab6e\n    key: d5c456a91eb5f69cf265510f6d6430b2\n  - id: de4b98ad-3f9a-4aa9-ba7a-9f8cd80eab6e\n    key: d5c456a91eb5f69cf265510f6d6430b2\n"},
		{"no conditions", "experiments:\n  - id: 00000000-0000-0000-0000-000000000000\n    conditions: []\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tc.doc)); err == nil {
				t.Errorf("Parse(%s) should fail", tc.name)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse empty: %v", err)
	}
	if len(c.Releases()) != 0 {
		t.Error("empty catalog should have no releases")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load missing file should fail")
	}
}
