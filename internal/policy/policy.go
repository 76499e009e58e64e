// Package policy loads the per-extension retention policy that decides which
// syntax node kinds become indexed entities.
package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// All is the sentinel kind meaning every node kind is retained
const All = "ALL"

// DefaultExtension is used for files without an extension
const DefaultExtension = "txt"

var ErrInvalidPolicy = errors.New("invalid retention policy")

var aliases = map[string]string{
	"cc":  "cpp",
	"cxx": "cpp",
	"hpp": "cpp",
	"hh":  "cpp",
	"hxx": "cpp",
	"h":   "c",
	"jsx": "js",
	"mjs": "js",
	"cjs": "js",
	"tsx": "ts",
}

// flattenKinds maps a normalized extension to the block kind whose children
// are spliced into the block's parent instead of materializing the block.
var flattenKinds = map[string]string{
	"py": "block",
}

// Policy maps normalized extensions to retained node kinds. It is immutable after Load.
type Policy struct {
	kinds map[string]map[string]struct{}
	all   map[string]bool
}

// Normalize lower-cases ext, strips a leading dot and resolves aliases
func Normalize(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return DefaultExtension
	}
	if canon, ok := aliases[ext]; ok {
		return canon
	}
	return ext
}

// Load reads a JSON policy file of the form {"py": ["function_definition"], "txt": ["ALL"]}
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return Parse(data)
}

// Parse builds a Policy from JSON bytes
func Parse(data []byte) (*Policy, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return New(raw)
}

// New builds a Policy from an extension to kinds map
func New(raw map[string][]string) (*Policy, error) {
	p := &Policy{
		kinds: make(map[string]map[string]struct{}, len(raw)),
		all:   make(map[string]bool),
	}
	for ext, kinds := range raw {
		if len(kinds) == 0 {
			return nil, fmt.Errorf("%w: extension %q has no kinds", ErrInvalidPolicy, ext)
		}
		key := Normalize(ext)
		set, ok := p.kinds[key]
		if !ok {
			set = make(map[string]struct{}, len(kinds))
			p.kinds[key] = set
		}
		for _, k := range kinds {
			if k == "" {
				return nil, fmt.Errorf("%w: extension %q has an empty kind", ErrInvalidPolicy, ext)
			}
			if k == All {
				p.all[key] = true
			}
			set[k] = struct{}{}
		}
	}
	return p, nil
}

// Has reports whether ext has a policy entry
func (p *Policy) Has(ext string) bool {
	_, ok := p.kinds[Normalize(ext)]
	return ok
}

// Retains reports whether nodes of kind are materialized for ext
func (p *Policy) Retains(ext, kind string) bool {
	key := Normalize(ext)
	if p.all[key] {
		return true
	}
	_, ok := p.kinds[key][kind]
	return ok
}

// FlattenKind returns the block kind flattened for ext, if any
func FlattenKind(ext string) (string, bool) {
	k, ok := flattenKinds[Normalize(ext)]
	return k, ok
}

// Extensions returns the normalized extensions with a policy entry, sorted
func (p *Policy) Extensions() []string {
	exts := make([]string, 0, len(p.kinds))
	for ext := range p.kinds {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
