package payer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gyeh/remitcheck/internal/normalize"
)

// ErrUnsupportedPayer is returned for payer names with no registered adapter.
var ErrUnsupportedPayer = errors.New("unsupported payer")

// Registry maps payer keys and aliases to adapters. Names are matched
// case-insensitively with whitespace collapsed.
type Registry struct {
	deps     Deps
	mu       sync.RWMutex
	adapters map[string]Adapter
	aliases  map[string]string
}

// NewRegistry creates an empty registry whose factories receive deps.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		deps:     deps,
		adapters: make(map[string]Adapter),
		aliases:  make(map[string]string),
	}
}

var builtinFactories = map[string]Factory{
	KeyMedicare:   NewMedicare,
	KeyNYMedicaid: NewNYMedicaid,
	KeyAetna:      NewAetna,
}

var builtinAliases = map[string][]string{
	KeyMedicare:   {"medicare", "cms", "medicare part b"},
	KeyNYMedicaid: {"medicaid", "ny medicaid", "new york medicaid"},
	KeyAetna:      {"aetna commercial", "aetna ppo", "aetna hmo"},
}

// DefaultRegistry registers the built-in adapters and their aliases.
func DefaultRegistry(deps Deps) *Registry {
	r := NewRegistry(deps)
	for _, key := range []string{KeyMedicare, KeyNYMedicaid, KeyAetna} {
		r.Register(key, builtinFactories[key], builtinAliases[key]...)
	}
	return r
}

// CanonicalKey resolves a payer name to a built-in adapter key through the
// built-in aliases and extra. An extra alias must point at an adapter key or
// a built-in alias.
func CanonicalKey(name string, extra map[string]string) (string, error) {
	n := normalize.NormalizeName(name)
	if _, ok := builtinFactories[n]; ok {
		return n, nil
	}
	for key, aliases := range builtinAliases {
		for _, al := range aliases {
			if al == n {
				return key, nil
			}
		}
	}
	for al, target := range extra {
		if normalize.NormalizeName(al) == n && normalize.NormalizeName(target) != n {
			return CanonicalKey(target, nil)
		}
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedPayer, name, strings.Join(builtinKeys(), ", "))
}

// CanonicalProfiles re-keys profiles by adapter key. Entries naming the
// same adapter are merged in sorted name order; an unknown name is an error.
func CanonicalProfiles(profiles map[string]Profile, extra map[string]string) (map[string]Profile, error) {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make(map[string]Profile, len(profiles))
	for _, n := range names {
		key, err := CanonicalKey(n, extra)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", n, err)
		}
		if prev, ok := out[key]; ok {
			out[key] = prev.Merge(profiles[n])
			continue
		}
		out[key] = profiles[n]
	}
	return out, nil
}

func builtinKeys() []string {
	keys := make([]string, 0, len(builtinFactories))
	for k := range builtinFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Register builds an adapter with factory and binds it to key and aliases.
func (r *Registry) Register(key string, factory Factory, aliases ...string) {
	a := factory(r.deps)
	k := normalize.NormalizeName(key)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[k] = a
	for _, al := range aliases {
		r.aliases[normalize.NormalizeName(al)] = k
	}
}

// Alias binds an additional name to a registered key.
func (r *Registry) Alias(alias, key string) error {
	k := normalize.NormalizeName(key)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.adapters[k]; !ok {
		if target, ok := r.aliases[k]; ok {
			k = target
		} else {
			return fmt.Errorf("alias %q: %w: %q", alias, ErrUnsupportedPayer, key)
		}
	}
	r.aliases[normalize.NormalizeName(alias)] = k
	return nil
}

// Get returns the adapter for a key or alias.
func (r *Registry) Get(name string) (Adapter, error) {
	n := normalize.NormalizeName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[n]; ok {
		return a, nil
	}
	if k, ok := r.aliases[n]; ok {
		return r.adapters[k], nil
	}
	return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedPayer, name, strings.Join(r.keysLocked(), ", "))
}

// IsSupported reports whether name resolves to an adapter.
func (r *Registry) IsSupported(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

// Supported returns the registered keys in sorted order.
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keysLocked()
}

// Aliases returns the aliases bound to key, sorted.
func (r *Registry) Aliases(key string) []string {
	k := normalize.NormalizeName(key)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for al, target := range r.aliases {
		if target == k {
			out = append(out, al)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) keysLocked() []string {
	keys := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
