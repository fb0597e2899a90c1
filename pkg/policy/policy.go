// SPDX-License-Identifier: MPL-2.0

package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// NamespaceSeparator terminates every namespace prefix.
const NamespaceSeparator = "."

// ErrInvalidPolicy is the sentinel wrapped by InvalidPolicyError.
var ErrInvalidPolicy = errors.New("invalid policy")

type (
	// Policy is an immutable denylist. Build one with New or Default; derive
	// variants with With.
	Policy struct {
		types      map[string]struct{}
		namespaces []string
		methods    map[string]struct{}
		banAll     bool
	}

	// Option configures a policy under construction.
	Option func(*builder)

	// InvalidPolicyError reports a rejected policy entry.
	InvalidPolicyError struct {
		Field string
		Value string
		Hint  string
	}

	builder struct {
		types      map[string]struct{}
		namespaces map[string]struct{}
		methods    map[string]struct{}
		banAll     bool
		errs       []error
	}
)

// Error implements the error interface.
func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid policy %s entry %q: %s", e.Field, e.Value, e.Hint)
}

// Unwrap returns ErrInvalidPolicy for errors.Is() compatibility.
func (e *InvalidPolicyError) Unwrap() error { return ErrInvalidPolicy }

// New builds a policy from an empty denylist with ban-all disabled.
func New(opts ...Option) (*Policy, error) {
	b := &builder{
		types:      map[string]struct{}{},
		namespaces: map[string]struct{}{},
		methods:    map[string]struct{}{},
	}
	return b.apply(opts)
}

// With returns a new policy that starts from p and applies opts. p is not modified.
func (p *Policy) With(opts ...Option) (*Policy, error) {
	b := &builder{
		types:      maps.Clone(p.types),
		namespaces: map[string]struct{}{},
		methods:    maps.Clone(p.methods),
		banAll:     p.banAll,
	}
	for _, ns := range p.namespaces {
		b.namespaces[ns] = struct{}{}
	}
	return b.apply(opts)
}

func (b *builder) apply(opts []Option) (*Policy, error) {
	for _, opt := range opts {
		opt(b)
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return &Policy{
		types:      b.types,
		namespaces: slices.Sorted(maps.Keys(b.namespaces)),
		methods:    b.methods,
		banAll:     b.banAll,
	}, nil
}

// WithTypes replaces the exact dangerous type names.
func WithTypes(names ...string) Option {
	return func(b *builder) {
		b.types = map[string]struct{}{}
		b.addTypes(names)
	}
}

// AddTypes appends exact dangerous type names.
func AddTypes(names ...string) Option {
	return func(b *builder) { b.addTypes(names) }
}

// WithNamespaces replaces the dangerous namespace prefixes.
func WithNamespaces(prefixes ...string) Option {
	return func(b *builder) {
		b.namespaces = map[string]struct{}{}
		b.addNamespaces(prefixes)
	}
}

// AddNamespaces appends dangerous namespace prefixes. Each prefix must end in
// NamespaceSeparator so that "System.IO." never matches "System.IOHelper".
func AddNamespaces(prefixes ...string) Option {
	return func(b *builder) { b.addNamespaces(prefixes) }
}

// WithMethods replaces the dangerous method names.
func WithMethods(names ...string) Option {
	return func(b *builder) {
		b.methods = map[string]struct{}{}
		b.addMethods(names)
	}
}

// AddMethods appends dangerous method names.
func AddMethods(names ...string) Option {
	return func(b *builder) { b.addMethods(names) }
}

// WithBanAllInNamespace selects the enforcement mode. When true, any member
// reference on a dangerous type is a violation; when false only members whose
// simple name is a dangerous method name are.
func WithBanAllInNamespace(ban bool) Option {
	return func(b *builder) { b.banAll = ban }
}

func (b *builder) addTypes(names []string) {
	for _, n := range names {
		if strings.TrimSpace(n) == "" || n != strings.TrimSpace(n) {
			b.errs = append(b.errs, &InvalidPolicyError{Field: "type", Value: n, Hint: "must be a non-blank full type name without surrounding whitespace"})
			continue
		}
		b.types[n] = struct{}{}
	}
}

func (b *builder) addNamespaces(prefixes []string) {
	for _, ns := range prefixes {
		switch {
		case strings.TrimSpace(ns) == "" || ns == NamespaceSeparator:
			b.errs = append(b.errs, &InvalidPolicyError{Field: "namespace", Value: ns, Hint: "must not be blank"})
		case !strings.HasSuffix(ns, NamespaceSeparator):
			b.errs = append(b.errs, &InvalidPolicyError{Field: "namespace", Value: ns, Hint: fmt.Sprintf("must end in %q (did you mean %q?)", NamespaceSeparator, ns+NamespaceSeparator)})
		default:
			b.namespaces[ns] = struct{}{}
		}
	}
}

func (b *builder) addMethods(names []string) {
	for _, n := range names {
		if strings.TrimSpace(n) == "" || n != strings.TrimSpace(n) {
			b.errs = append(b.errs, &InvalidPolicyError{Field: "method", Value: n, Hint: "must be a non-blank simple method name"})
			continue
		}
		b.methods[n] = struct{}{}
	}
}

// MatchesTypeName reports whether an already normalized full type name is
// dangerous: it equals an exact entry or starts with a namespace prefix.
// Comparison is ordinal and case-sensitive.
func (p *Policy) MatchesTypeName(name string) bool {
	if _, ok := p.types[name]; ok {
		return true
	}
	for _, ns := range p.namespaces {
		if strings.HasPrefix(name, ns) {
			return true
		}
	}
	return false
}

// IsDangerousMethodName reports whether a method simple name is denylisted.
func (p *Policy) IsDangerousMethodName(name string) bool {
	_, ok := p.methods[name]
	return ok
}

// BanAllInNamespace reports the enforcement mode.
func (p *Policy) BanAllInNamespace() bool { return p.banAll }

// Types returns the exact dangerous type names, sorted.
func (p *Policy) Types() []string { return slices.Sorted(maps.Keys(p.types)) }

// Namespaces returns the dangerous namespace prefixes, sorted.
func (p *Policy) Namespaces() []string { return slices.Clone(p.namespaces) }

// Methods returns the dangerous method names, sorted.
func (p *Policy) Methods() []string { return slices.Sorted(maps.Keys(p.methods)) }

// Fingerprint identifies the policy contents independent of insertion order.
func (p *Policy) Fingerprint() string {
	h := sha256.New()
	write := func(section string, entries []string) {
		fmt.Fprintf(h, "%s:%d\n", section, len(entries))
		for _, e := range entries {
			h.Write([]byte(e))
			h.Write([]byte{0})
		}
	}
	write("types", p.Types())
	write("namespaces", p.namespaces)
	write("methods", p.Methods())
	fmt.Fprintf(h, "ban_all:%t\n", p.banAll)
	return hex.EncodeToString(h.Sum(nil))
}
