// SPDX-License-Identifier: MIT

// Package capability resolves logical vendor capability names against the
// API profile of a deployed LERS server. The vendor's surface differs across
// shipped versions (types and operations are renamed or moved between
// releases), so nothing above this package may hard-code concrete endpoints:
// callers name what they need ("ReportManager", "GenerateExported") and the
// resolver locates the matching descriptor in whichever profile the server
// actually speaks.
package capability

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
)

// Member describes one resolvable vendor operation.
type Member struct {
	Name   string
	Method string // HTTP method on the vendor API
	Path   string // endpoint path, version specific
}

// Type describes one logical vendor type and its members.
type Type struct {
	Name    string
	Members map[string]Member
}

// EnumValue is one named constant of a vendor enum.
type EnumValue struct {
	Name  string
	Value int
}

// Enum is an ordered vendor enumeration. The first value doubles as the
// fallback when no candidate name matches.
type Enum struct {
	Name   string
	Values []EnumValue
}

// Profile is the capability surface of one vendor suite version.
type Profile struct {
	Name  string // vendor namespace, e.g. "Lers.Core.V3"
	Types []Type
	Enums []Enum
}

// vendorPrefix marks profiles that belong to the vendor suite; profiles
// outside it are never scanned during fallback resolution.
const vendorPrefix = "Lers."

// Resolver caches capability lookups for the process lifetime. The vendor
// surface does not change shape at runtime, so entries are never invalidated.
type Resolver struct {
	prefixes []string
	profiles []Profile
	logger   zerolog.Logger

	mu    sync.Mutex
	types map[string]*Type // logical name -> descriptor, nil caches a miss
	enums map[string]*Enum
}

// NewResolver builds a resolver over the given profiles. Preferred namespace
// prefixes are searched before falling back to a scan of every vendor profile.
func NewResolver(profiles []Profile, preferredPrefixes ...string) *Resolver {
	return &Resolver{
		prefixes: preferredPrefixes,
		profiles: profiles,
		logger:   log.WithComponent("capability"),
		types:    make(map[string]*Type),
		enums:    make(map[string]*Enum),
	}
}

// ResolveType locates a vendor type by logical name. Returns nil, false when
// no profile exposes it; the miss is cached like a hit.
func (r *Resolver) ResolveType(logicalName string) (*Type, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, cached := r.types[logicalName]; cached {
		return t, t != nil
	}

	t := r.searchType(logicalName)
	r.types[logicalName] = t
	if t == nil {
		r.logger.Debug().
			Str("event", "capability.type_miss").
			Str("name", logicalName).
			Msg("vendor type not found in any profile")
		return nil, false
	}
	return t, true
}

func (r *Resolver) searchType(logicalName string) *Type {
	// Preferred prefixes first.
	for _, prefix := range r.prefixes {
		for i := range r.profiles {
			p := &r.profiles[i]
			if !strings.HasPrefix(p.Name, prefix) {
				continue
			}
			if t := findType(p, logicalName); t != nil {
				return t
			}
		}
	}
	// Full scan of everything that looks like the vendor suite.
	for i := range r.profiles {
		p := &r.profiles[i]
		if !strings.HasPrefix(p.Name, vendorPrefix) {
			continue
		}
		if t := findType(p, logicalName); t != nil {
			return t
		}
	}
	return nil
}

func findType(p *Profile, name string) *Type {
	for i := range p.Types {
		if p.Types[i].Name == name {
			return &p.Types[i]
		}
	}
	return nil
}

// ResolveMember locates a member of a resolved type, trying an exact match
// before a case-insensitive one.
func (r *Resolver) ResolveMember(t *Type, logicalName string) (Member, bool) {
	if t == nil {
		return Member{}, false
	}
	if m, ok := t.Members[logicalName]; ok {
		return m, true
	}
	for name, m := range t.Members {
		if strings.EqualFold(name, logicalName) {
			return m, true
		}
	}
	r.logger.Debug().
		Str("event", "capability.member_miss").
		Str("type", t.Name).
		Str("name", logicalName).
		Msg("vendor member not found")
	return Member{}, false
}

// ResolveOperation is the common two-step lookup: type, then member.
func (r *Resolver) ResolveOperation(typeName, memberName string) (Member, bool) {
	t, ok := r.ResolveType(typeName)
	if !ok {
		return Member{}, false
	}
	return r.ResolveMember(t, memberName)
}

// ParseEnumValue tries each candidate name against the named enum in order
// and returns the first match. If no candidate matches but the enum exists,
// the first enumerated value is returned as a best-effort fallback; callers
// must tolerate the vendor renaming enum members between versions.
func (r *Resolver) ParseEnumValue(enumName string, candidates ...string) (EnumValue, bool) {
	e := r.resolveEnum(enumName)
	if e == nil || len(e.Values) == 0 {
		return EnumValue{}, false
	}
	for _, cand := range candidates {
		for _, v := range e.Values {
			if strings.EqualFold(v.Name, cand) {
				return v, true
			}
		}
	}
	r.logger.Debug().
		Str("event", "capability.enum_fallback").
		Str("enum", enumName).
		Strs("candidates", candidates).
		Str("fallback", e.Values[0].Name).
		Msg("no enum candidate matched, using first enumerated value")
	return e.Values[0], true
}

func (r *Resolver) resolveEnum(name string) *Enum {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, cached := r.enums[name]; cached {
		return e
	}

	var found *Enum
	for i := range r.profiles {
		p := &r.profiles[i]
		if !strings.HasPrefix(p.Name, vendorPrefix) {
			continue
		}
		for j := range p.Enums {
			if p.Enums[j].Name == name {
				found = &p.Enums[j]
				break
			}
		}
		if found != nil {
			break
		}
	}
	r.enums[name] = found
	return found
}
