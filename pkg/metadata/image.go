// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/modgate/modgate/pkg/cueutil"
)

// ImageExtension is the conventional file extension of module images.
const ImageExtension = ".modimg"

//go:embed image_schema.cue
var imageSchema []byte

var errOperandCount = errors.New("instruction carries more than one operand")

type (
	// ImageReader decodes module images. The zero value is ready to use and
	// applies cueutil.DefaultMaxFileSize.
	ImageReader struct {
		// MaxSize bounds the bytes read from a single image.
		MaxSize int64
	}

	imageDoc struct {
		Module  string    `json:"module"`
		Version string    `json:"version,omitempty"`
		Exports []string  `json:"exports,omitempty"`
		Types   []typeDoc `json:"types,omitempty"`
	}

	typeDoc struct {
		Name       string      `json:"name"`
		Exported   bool        `json:"exported,omitempty"`
		Abstract   bool        `json:"abstract,omitempty"`
		Interface  bool        `json:"interface,omitempty"`
		Base       string      `json:"base,omitempty"`
		Interfaces []string    `json:"interfaces,omitempty"`
		Fields     []memberDoc `json:"fields,omitempty"`
		Properties []memberDoc `json:"properties,omitempty"`
		Methods    []methodDoc `json:"methods,omitempty"`
	}

	memberDoc struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}

	paramDoc struct {
		Name string `json:"name,omitempty"`
		Type string `json:"type"`
	}

	methodDoc struct {
		Name    string           `json:"name"`
		Returns string           `json:"returns,omitempty"`
		Params  []paramDoc       `json:"params,omitempty"`
		Body    []instructionDoc `json:"body,omitempty"`
	}

	instructionDoc struct {
		Op     string        `json:"op"`
		Method *methodRefDoc `json:"method,omitempty"`
		Type   string        `json:"type,omitempty"`
		Field  *fieldRefDoc  `json:"field,omitempty"`
		Value  any           `json:"value,omitempty"`
	}

	methodRefDoc struct {
		Declaring string   `json:"declaring"`
		Name      string   `json:"name"`
		Returns   string   `json:"returns,omitempty"`
		Params    []string `json:"params,omitempty"`
	}

	fieldRefDoc struct {
		Declaring string `json:"declaring"`
		Name      string `json:"name"`
		Type      string `json:"type,omitempty"`
	}

	// typeNames memoizes parsed names so identical references share one
	// TypeRef. It stops parsing once ctx is done.
	typeNames struct {
		ctx   context.Context
		cache map[string]*TypeRef
	}
)

// Read decodes one module image. Every failure is returned as an
// *UnreadableError. Decoding runs on its own goroutine so that an expired ctx
// returns promptly. The abandoned goroutine stops at its next ctx check: CUE
// evaluation is not interruptible, graph building is checked per type name.
func (r ImageReader) Read(ctx context.Context, name string, src io.Reader) (*Module, error) {
	data, err := cueutil.ReadLimited(src, r.MaxSize, name)
	if err != nil {
		return nil, Unreadable(name, err)
	}

	type result struct {
		m   *Module
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("decoder panic: %v", rec)}
			}
		}()
		m, err := decodeImage(ctx, name, data, r.MaxSize)
		done <- result{m: m, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, Unreadable(name, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, Unreadable(name, res.err)
		}
		return res.m, nil
	}
}

// DecodeImage decodes module image bytes without a reader.
func DecodeImage(name string, data []byte) (*Module, error) {
	m, err := decodeImage(context.Background(), name, data, 0)
	if err != nil {
		return nil, Unreadable(name, err)
	}
	return m, nil
}

func decodeImage(ctx context.Context, name string, data []byte, maxSize int64) (*Module, error) {
	res, err := cueutil.ParseAndDecodeContext[imageDoc](ctx, imageSchema, data, "#Module",
		cueutil.WithFilename(name),
		cueutil.WithMaxFileSize(maxSize),
	)
	if err != nil {
		return nil, err
	}
	return res.Value.build(ctx)
}

func (d *imageDoc) build(ctx context.Context) (*Module, error) {
	names := &typeNames{ctx: ctx, cache: map[string]*TypeRef{}}
	m := &Module{
		Name:    d.Module,
		Version: d.Version,
		Exports: d.Exports,
		Types:   make([]*TypeDef, 0, len(d.Types)),
	}
	for i := range d.Types {
		td, err := d.Types[i].build(names)
		if err != nil {
			return nil, fmt.Errorf("types[%d] %s: %w", i, d.Types[i].Name, err)
		}
		m.Types = append(m.Types, td)
	}
	return m, nil
}

func (d *typeDoc) build(names *typeNames) (*TypeDef, error) {
	var err error
	td := &TypeDef{
		FullName:  d.Name,
		Exported:  d.Exported,
		Abstract:  d.Abstract,
		Interface: d.Interface,
	}
	if td.BaseType, err = names.parse(d.Base); err != nil {
		return nil, err
	}
	for _, iface := range d.Interfaces {
		ref, err := names.parse(iface)
		if err != nil {
			return nil, err
		}
		td.Interfaces = append(td.Interfaces, ref)
	}
	for _, f := range d.Fields {
		ref, err := names.parse(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		td.Fields = append(td.Fields, FieldDef{Name: f.Name, Type: ref})
	}
	for _, p := range d.Properties {
		ref, err := names.parse(p.Type)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", p.Name, err)
		}
		td.Properties = append(td.Properties, PropertyDef{Name: p.Name, Type: ref})
	}
	for i := range d.Methods {
		md, err := d.Methods[i].build(names)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", d.Methods[i].Name, err)
		}
		td.Methods = append(td.Methods, md)
	}
	return td, nil
}

func (d *methodDoc) build(names *typeNames) (MethodDef, error) {
	var err error
	md := MethodDef{Name: d.Name}
	if md.ReturnType, err = names.parse(d.Returns); err != nil {
		return MethodDef{}, err
	}
	for _, p := range d.Params {
		ref, err := names.parse(p.Type)
		if err != nil {
			return MethodDef{}, fmt.Errorf("param %s: %w", p.Name, err)
		}
		md.Params = append(md.Params, ParamDef{Name: p.Name, Type: ref})
	}
	if len(d.Body) == 0 {
		return md, nil
	}
	md.Body = &MethodBody{Instructions: make([]Instruction, 0, len(d.Body))}
	for i := range d.Body {
		if err := names.ctx.Err(); err != nil {
			return MethodDef{}, err
		}
		ins, err := d.Body[i].build(names)
		if err != nil {
			return MethodDef{}, fmt.Errorf("body[%d]: %w", i, err)
		}
		md.Body.Instructions = append(md.Body.Instructions, ins)
	}
	return md, nil
}

func (d *instructionDoc) build(names *typeNames) (Instruction, error) {
	ins := Instruction{OpCode: d.Op}
	count := 0
	if d.Method != nil {
		count++
		ref, err := d.Method.build(names)
		if err != nil {
			return Instruction{}, err
		}
		ins.Operand = ref
	}
	if d.Type != "" {
		count++
		ref, err := names.parse(d.Type)
		if err != nil {
			return Instruction{}, err
		}
		ins.Operand = ref
	}
	if d.Field != nil {
		count++
		ref, err := d.Field.build(names)
		if err != nil {
			return Instruction{}, err
		}
		ins.Operand = ref
	}
	if d.Value != nil {
		count++
		ins.Operand = Literal{Value: fmt.Sprint(d.Value)}
	}
	if count > 1 {
		return Instruction{}, fmt.Errorf("%s: %w", d.Op, errOperandCount)
	}
	return ins, nil
}

func (d *methodRefDoc) build(names *typeNames) (*MethodRef, error) {
	decl, err := names.parse(d.Declaring)
	if err != nil {
		return nil, err
	}
	ret, err := names.parse(d.Returns)
	if err != nil {
		return nil, err
	}
	ref := &MethodRef{DeclaringType: decl, Name: d.Name, ReturnType: ret}
	for _, p := range d.Params {
		pt, err := names.parse(p)
		if err != nil {
			return nil, err
		}
		ref.Params = append(ref.Params, pt)
	}
	return ref, nil
}

func (d *fieldRefDoc) build(names *typeNames) (*FieldRef, error) {
	decl, err := names.parse(d.Declaring)
	if err != nil {
		return nil, err
	}
	ft, err := names.parse(d.Type)
	if err != nil {
		return nil, err
	}
	return &FieldRef{DeclaringType: decl, FieldType: ft, Name: d.Name}, nil
}

// parse returns nil for an empty name.
func (n *typeNames) parse(s string) (*TypeRef, error) {
	if s == "" {
		return nil, nil
	}
	if ref, ok := n.cache[s]; ok {
		return ref, nil
	}
	if err := n.ctx.Err(); err != nil {
		return nil, err
	}
	ref, err := ParseTypeName(s)
	if err != nil {
		return nil, err
	}
	n.cache[s] = ref
	return ref, nil
}
