// Package catalog loads the operator-provisioned release keys and experiment definitions.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"playlog/backend/internal/security"
)

// MinReleaseKeySize is the shortest release key the catalog accepts.
const MinReleaseKeySize = 16

// Release is one client build allowed to talk to the server.
type Release struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Key is the hex-encoded release key.
	Key string `yaml:"key"`
}

// Experiment lists the conditions a user can be assigned to.
type Experiment struct {
	ID         string `yaml:"id"`
	Conditions []int  `yaml:"conditions"`
}

type file struct {
	Releases    []Release    `yaml:"releases"`
	Experiments []Experiment `yaml:"experiments"`
}

// Catalog is the immutable, validated set of releases and experiments.
type Catalog struct {
	releaseKeys map[string][]byte
	releases    []Release
	experiments map[string][]int
}

// Load reads and validates the YAML catalog at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes and validates a YAML catalog. Unknown keys are rejected.
func Parse(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	var doc file
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return build(doc)
}

func build(doc file) (*Catalog, error) {
	c := &Catalog{
		releaseKeys: make(map[string][]byte, len(doc.Releases)),
		experiments: make(map[string][]int, len(doc.Experiments)),
	}
	for i, r := range doc.Releases {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("catalog: releases[%d]: id %q is not a uuid", i, r.ID)
		}
		key, err := security.ParseHexKey(r.Key, MinReleaseKeySize)
		if err != nil {
			return nil, fmt.Errorf("catalog: releases[%d]: key must be hex, at least %d bytes", i, MinReleaseKeySize)
		}
		norm := id.String()
		if _, dup := c.releaseKeys[norm]; dup {
			return nil, fmt.Errorf("catalog: releases[%d]: duplicate id %s", i, norm)
		}
		c.releaseKeys[norm] = key
		c.releases = append(c.releases, Release{ID: norm, Name: r.Name})
	}
	for i, e := range doc.Experiments {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			return nil, fmt.Errorf("catalog: experiments[%d]: id %q is not a uuid", i, e.ID)
		}
		if len(e.Conditions) == 0 {
			return nil, fmt.Errorf("catalog: experiments[%d]: at least one condition is required", i)
		}
		norm := id.String()
		if _, dup := c.experiments[norm]; dup {
			return nil, fmt.Errorf("catalog: experiments[%d]: duplicate id %s", i, norm)
		}
		c.experiments[norm] = slices.Clone(e.Conditions)
	}
	return c, nil
}

// ReleaseKey returns the key of release id.
func (c *Catalog) ReleaseKey(id string) ([]byte, bool) {
	norm, ok := normalize(id)
	if !ok {
		return nil, false
	}
	k, ok := c.releaseKeys[norm]
	return k, ok
}

// Releases returns the configured releases without their keys.
func (c *Catalog) Releases() []Release {
	return slices.Clone(c.releases)
}

// Conditions returns the condition list of experiment id.
func (c *Catalog) Conditions(experimentID string) ([]int, bool) {
	norm, ok := normalize(experimentID)
	if !ok {
		return nil, false
	}
	conds, ok := c.experiments[norm]
	if !ok {
		return nil, false
	}
	return slices.Clone(conds), true
}

func normalize(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
