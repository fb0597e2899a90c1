// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTypeName is returned when a textual type name cannot be parsed.
var ErrInvalidTypeName = errors.New("invalid type name")

type typeNameParser struct {
	src string
	pos int
}

// ParseTypeName parses the canonical textual form of a type reference:
//
//	Name              named type
//	Def`N<A,B>        generic instance
//	T[]  T[,]         array (vector, rank 2)
//	T*                pointer
//	T&                by-reference
//
// Suffixes compose left to right, so "System.Byte[]&" is a by-reference to a
// byte vector. Names nested deeper than MaxTypeNesting are rejected. The
// returned error wraps ErrInvalidTypeName.
func ParseTypeName(s string) (*TypeRef, error) {
	p := &typeNameParser{src: s}
	ref, _, err := p.parseType(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos])
	}
	return ref, nil
}

// MustParseTypeName is like ParseTypeName but panics on error.
func MustParseTypeName(s string) *TypeRef {
	ref, err := ParseTypeName(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// parseType parses one type that sits depth levels below the root and
// returns it with its height, the number of generic, array, pointer and
// by-reference levels above its innermost name. Both are bounded by
// MaxTypeNesting.
func (p *typeNameParser) parseType(depth int) (*TypeRef, int, error) {
	if depth > MaxTypeNesting {
		return nil, 0, p.nestingError()
	}
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && !isDelimiter(p.src[p.pos]) {
		p.pos++
	}
	name := strings.TrimSpace(p.src[start:p.pos])
	if name == "" {
		return nil, 0, p.errorf("missing type name")
	}

	ref, height := Named(name), 0
	if p.peek() == '<' {
		p.pos++
		var args []*TypeRef
		for {
			arg, h, err := p.parseType(depth + 1)
			if err != nil {
				return nil, 0, err
			}
			args = append(args, arg)
			height = max(height, h+1)
			p.skipSpace()
			c := p.peek()
			p.pos++
			if c == '>' {
				break
			}
			if c != ',' {
				p.pos--
				return nil, 0, p.errorf("expected ',' or '>' in generic argument list")
			}
		}
		ref = Generic(ref, args...)
	}

	for {
		if depth+height > MaxTypeNesting {
			return nil, 0, p.nestingError()
		}
		p.skipSpace()
		switch p.peek() {
		case '[':
			p.pos++
			rank := 1
			for p.peek() == ',' {
				rank++
				p.pos++
			}
			if p.peek() != ']' {
				return nil, 0, p.errorf("unterminated array suffix")
			}
			p.pos++
			ref = ArrayOfRank(ref, rank)
		case '*':
			p.pos++
			ref = PointerTo(ref)
		case '&':
			p.pos++
			ref = ByRef(ref)
		default:
			return ref, height, nil
		}
		height++
	}
}

func (p *typeNameParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *typeNameParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeNameParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w %q at offset %d: %s", ErrInvalidTypeName, p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *typeNameParser) nestingError() error {
	return fmt.Errorf("%w at offset %d: nested deeper than %d levels", ErrInvalidTypeName, p.pos, MaxTypeNesting)
}

func isDelimiter(c byte) bool {
	switch c {
	case '<', '>', ',', '[', ']', '*', '&':
		return true
	}
	return false
}
