// =============================================================================
// pain.001 Converter - BLZ Registry
// =============================================================================
//
// The registry maps an 8-digit German bank sort code (BLZ) to the BICs that
// are allowed for it. It is loaded once per run and never modified.
//
// FILE FORMAT (blzToBics.json):
//
//   {
//     "37040044": { "bics": ["COBADEFFXXX"] },
//     "12030000": { "bics": ["BYLADEM1001"] }
//   }
//
// =============================================================================

package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// entry is the JSON value stored per BLZ.
type entry struct {
	BICs []string `json:"bics"`
}

// Registry is a read-only BLZ -> allowed BIC set.
type Registry struct {
	allowed map[string]map[string]struct{}
}

// New builds a registry from an in-memory mapping. BICs are trimmed.
func New(mapping map[string][]string) *Registry {
	r := &Registry{allowed: make(map[string]map[string]struct{}, len(mapping))}
	for blz, bics := range mapping {
		set := make(map[string]struct{}, len(bics))
		for _, b := range bics {
			set[strings.TrimSpace(b)] = struct{}{}
		}
		r.allowed[strings.TrimSpace(blz)] = set
	}
	return r
}

// Load decodes a registry from JSON.
func Load(reader io.Reader) (*Registry, error) {
	var raw map[string]entry
	if err := json.NewDecoder(reader).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse BLZ registry: %w", err)
	}

	mapping := make(map[string][]string, len(raw))
	for blz, e := range raw {
		mapping[blz] = e.BICs
	}
	return New(mapping), nil
}

// LoadFile reads a registry from a JSON file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open BLZ registry: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Loaded reports whether the registry holds at least one BLZ.
// A nil registry is not loaded.
func (r *Registry) Loaded() bool {
	return r != nil && len(r.allowed) > 0
}

// Len returns the number of BLZ entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.allowed)
}

// Allows reports whether bic is permitted for blz. Unknown BLZs permit
// nothing.
func (r *Registry) Allows(blz, bic string) bool {
	if r == nil {
		return false
	}
	set, ok := r.allowed[blz]
	if !ok {
		return false
	}
	_, ok = set[strings.TrimSpace(bic)]
	return ok
}

// BICs returns the sorted BICs registered for blz.
func (r *Registry) BICs(blz string) []string {
	if r == nil {
		return nil
	}
	set := r.allowed[blz]
	out := make([]string, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}
