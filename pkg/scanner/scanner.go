// SPDX-License-Identifier: MPL-2.0

package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/modgate/modgate/pkg/metadata"
	"github.com/modgate/modgate/pkg/policy"
)

const (
	// NodeType is visited once per declared type.
	NodeType NodeKind = iota
	// NodeMethod is visited once per declared method.
	NodeMethod
	// NodeInstruction is visited once per instruction of a method body.
	NodeInstruction
)

var errNoModule = errors.New("no module metadata")

type (
	// NodeKind identifies what a Node describes.
	NodeKind uint8

	// Node is a position in the scan walk reported to a visitor.
	Node struct {
		Kind NodeKind
		// Type is the full name of the declared type being scanned.
		Type string
		// Method is the method's simple name for method and instruction nodes.
		Method string
		// Index is the instruction index for instruction nodes.
		Index int
	}

	// Scanner checks modules against one policy. It holds no mutable state
	// and is safe for concurrent use.
	Scanner struct {
		policy *policy.Policy
		visit  func(Node)
	}

	// Option configures a Scanner.
	Option func(*Scanner)
)

// WithVisitor registers fn to observe every node the walk visits, in order.
// fn is called from the scanning goroutine.
func WithVisitor(fn func(Node)) Option {
	return func(s *Scanner) { s.visit = fn }
}

// New returns a scanner enforcing p. A nil p selects policy.Default().
func New(p *policy.Policy, opts ...Option) *Scanner {
	if p == nil {
		p = policy.Default()
	}
	s := &Scanner{policy: p}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the policy the scanner enforces.
func (s *Scanner) Policy() *policy.Policy { return s.policy }

// ScanReader produces the module graph with r and scans it. Any read error,
// including a panic inside r, rejects the module.
func (s *Scanner) ScanReader(ctx context.Context, r metadata.Reader, name string, src io.Reader) (m *metadata.Module, v Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			m = nil
			v = Unreadable(metadata.Unreadable(name, fmt.Errorf("reader panic: %v", rec)))
		}
	}()

	m, err := r.Read(ctx, name, src)
	if err != nil {
		return nil, Unreadable(metadata.Unreadable(name, err))
	}
	if m == nil {
		return nil, Unreadable(metadata.Unreadable(name, errNoModule))
	}
	return m, s.Scan(m)
}

// Scan checks every type m declares and stops at the first violation.
// A nil module is rejected.
func (s *Scanner) Scan(m *metadata.Module) (v Verdict) {
	if m == nil {
		return Unreadable(errNoModule)
	}
	defer func() {
		if rec := recover(); rec != nil {
			v = Unreadable(fmt.Errorf("malformed module graph: %v", rec))
		}
	}()

	for _, t := range m.Types {
		if t == nil {
			continue
		}
		if reason := s.scanType(t); reason != "" {
			return reject(reason)
		}
	}
	return accept()
}

func (s *Scanner) scanType(t *metadata.TypeDef) string {
	s.emit(Node{Kind: NodeType, Type: t.FullName})

	if s.dangerous(t.BaseType) {
		return fmt.Sprintf("type '%s' inherits from dangerous base type: %s", t.FullName, t.BaseType.FullName())
	}
	for _, iface := range t.Interfaces {
		if s.dangerous(iface) {
			return fmt.Sprintf("type '%s' implements dangerous interface: %s", t.FullName, iface.FullName())
		}
	}
	for _, f := range t.Fields {
		if s.dangerous(f.Type) {
			return fmt.Sprintf("field '%s::%s' uses dangerous type: %s", t.FullName, f.Name, f.Type.FullName())
		}
	}
	for _, p := range t.Properties {
		if s.dangerous(p.Type) {
			return fmt.Sprintf("property '%s::%s' uses dangerous type: %s", t.FullName, p.Name, p.Type.FullName())
		}
	}
	for i := range t.Methods {
		if reason := s.scanMethod(t, &t.Methods[i]); reason != "" {
			return reason
		}
	}
	return ""
}

func (s *Scanner) scanMethod(t *metadata.TypeDef, md *metadata.MethodDef) string {
	s.emit(Node{Kind: NodeMethod, Type: t.FullName, Method: md.Name})

	if s.dangerous(md.ReturnType) {
		return fmt.Sprintf("method '%s' returns dangerous type: %s", md.FullName(t.FullName), md.ReturnType.FullName())
	}
	for _, p := range md.Params {
		if s.dangerous(p.Type) {
			return fmt.Sprintf("method '%s' has parameter '%s' of dangerous type: %s", md.FullName(t.FullName), p.Name, p.Type.FullName())
		}
	}
	if md.Body == nil {
		return ""
	}
	for i, ins := range md.Body.Instructions {
		s.emit(Node{Kind: NodeInstruction, Type: t.FullName, Method: md.Name, Index: i})
		if reason := s.scanOperand(t, md, ins.Operand); reason != "" {
			return reason
		}
	}
	return ""
}

func (s *Scanner) scanOperand(t *metadata.TypeDef, md *metadata.MethodDef, op metadata.Operand) string {
	switch ref := op.(type) {
	case *metadata.MethodRef:
		if ref == nil || !s.dangerous(ref.DeclaringType) {
			return ""
		}
		if s.policy.BanAllInNamespace() {
			return fmt.Sprintf("dangerous type '%s' used (namespace ban active), banned call in '%s': %s",
				ref.DeclaringType.FullName(), md.FullName(t.FullName), ref.FullName())
		}
		if s.policy.IsDangerousMethodName(ref.Name) {
			return fmt.Sprintf("dangerous method call in '%s': %s (type and method match)", md.FullName(t.FullName), ref.FullName())
		}
	case *metadata.TypeRef:
		if s.dangerous(ref) {
			return fmt.Sprintf("instruction in '%s' references dangerous type: %s", md.FullName(t.FullName), ref.FullName())
		}
	case *metadata.FieldRef:
		if ref == nil {
			return ""
		}
		if s.dangerous(ref.DeclaringType) {
			return fmt.Sprintf("instruction in '%s' references field '%s' from dangerous type: %s",
				md.FullName(t.FullName), ref.Name, ref.DeclaringType.FullName())
		}
		if s.dangerous(ref.FieldType) {
			return fmt.Sprintf("instruction in '%s' references field '%s' of dangerous type: %s",
				md.FullName(t.FullName), ref.Name, ref.FieldType.FullName())
		}
	}
	return ""
}

func (s *Scanner) dangerous(ref *metadata.TypeRef) bool {
	return isDangerous(ref, s.policy, 0)
}

func (s *Scanner) emit(n Node) {
	if s.visit != nil {
		s.visit(n)
	}
}
