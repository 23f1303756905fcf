// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"scimcore/schema"
)

// Filter operator names. Logical operators are n-ary, "complex" is the
// attr[filter] group, the rest compare one attribute path.
const (
	OpAnd     = "and"
	OpOr      = "or"
	OpNot     = "not"
	OpPr      = "pr"
	OpEq      = "eq"
	OpNe      = "ne"
	OpCo      = "co"
	OpSw      = "sw"
	OpEw      = "ew"
	OpGt      = "gt"
	OpGe      = "ge"
	OpLt      = "lt"
	OpLe      = "le"
	OpComplex = "complex"
)

var binaryOps = map[string]bool{
	OpEq: true, OpNe: true, OpCo: true, OpSw: true, OpEw: true,
	OpGt: true, OpGe: true, OpLt: true, OpLe: true,
}

func isLogical(op string) bool {
	return op == OpAnd || op == OpOr
}

func isOrderingOp(op string) bool {
	return op == OpGt || op == OpGe || op == OpLt || op == OpLe
}

func isStringOnlyOp(op string) bool {
	return op == OpCo || op == OpSw || op == OpEw
}

// An AttrPath is a possibly URI qualified attribute path appearing in a
// filter or patch path. Display casing is preserved.
type AttrPath struct {
	URI  string
	Attr string
	Sub  string
}

func (ap AttrPath) HasSub() bool {
	return len(ap.Sub) != 0
}

func (ap AttrPath) String() string {
	s := ap.Attr
	if ap.HasSub() {
		s += schema.ATTR_DELIM + ap.Sub
	}

	if len(ap.URI) != 0 {
		s = ap.URI + schema.URI_DELIM + s
	}

	return s
}

// Rep converts the path into a bounded attribute representation.
func (ap AttrPath) Rep() schema.BoundedAttrRep {
	return schema.BoundedAttrRep{Schema: ap.URI, Attr: ap.Attr, SubAttr: ap.Sub}
}

func parseAttrPath(s string) AttrPath {
	uri, attr, sub := schema.SplitPath(s)
	return AttrPath{URI: uri, Attr: attr, Sub: sub}
}

// Literal kinds of the filter value grammar.
const (
	LitString = iota
	LitNumber
	LitBool
	LitNull
)

// A Literal is a right-hand operand of a comparison. Numbers are kept
// as decimals so that the wire precision survives round trips.
type Literal struct {
	Kind  int
	Str   string
	Bool  bool
	Num   decimal.Decimal
	IsInt bool
}

// Native returns the literal as a JSON compatible value.
func (l *Literal) Native() interface{} {
	switch l.Kind {
	case LitString:
		return l.Str
	case LitNumber:
		return json.Number(l.Num.String())
	case LitBool:
		return l.Bool
	}

	return nil
}

// String renders the literal in wire form, strings single-quoted with
// backslash escapes.
func (l *Literal) String() string {
	switch l.Kind {
	case LitString:
		s := strings.Replace(l.Str, `\`, `\\`, -1)
		s = strings.Replace(s, `'`, `\'`, -1)
		return "'" + s + "'"
	case LitNumber:
		return l.Num.String()
	case LitBool:
		if l.Bool {
			return "true"
		}
		return "false"
	}

	return "null"
}

// A FilterNode is one node of a parsed filter expression tree.
type FilterNode struct {
	Op       string
	Path     AttrPath
	Value    *Literal
	Children []*FilterNode
}

func (fn *FilterNode) addChild(child *FilterNode) {
	if fn.Children == nil {
		fn.Children = make([]*FilterNode, 0, 2)
	}

	fn.Children = append(fn.Children, child)
}

func opPrecedence(op string) int {
	switch op {
	case OpOr:
		return 1
	case OpAnd:
		return 2
	}

	return 3
}

// Serialize renders the filter in wire form. Parentheses are emitted
// only where precedence demands them, so a reparse yields an equivalent
// expression.
func (fn *FilterNode) Serialize() string {
	switch fn.Op {
	case OpAnd, OpOr:
		parts := make([]string, len(fn.Children))
		for i, ch := range fn.Children {
			s := ch.Serialize()
			if opPrecedence(ch.Op) < opPrecedence(fn.Op) {
				s = "(" + s + ")"
			}
			parts[i] = s
		}
		return strings.Join(parts, " "+fn.Op+" ")

	case OpNot:
		return "not (" + fn.Children[0].Serialize() + ")"

	case OpComplex:
		return fn.Path.String() + "[" + fn.Children[0].Serialize() + "]"

	case OpPr:
		return fn.Path.String() + " pr"
	}

	return fn.Path.String() + " " + fn.Op + " " + fn.Value.String()
}

func (fn *FilterNode) String() string {
	return fn.Serialize()
}

// ToMap converts the filter tree into its dictionary form.
func (fn *FilterNode) ToMap() map[string]interface{} {
	switch fn.Op {
	case OpAnd, OpOr:
		subOps := make([]interface{}, len(fn.Children))
		for i, ch := range fn.Children {
			subOps[i] = ch.ToMap()
		}
		return map[string]interface{}{"op": fn.Op, "sub_ops": subOps}

	case OpNot:
		return map[string]interface{}{"op": fn.Op, "sub_op": fn.Children[0].ToMap()}

	case OpComplex:
		return map[string]interface{}{"op": fn.Op, "attr": fn.Path.String(), "sub_op": fn.Children[0].ToMap()}

	case OpPr:
		return map[string]interface{}{"op": fn.Op, "attr": fn.Path.String()}
	}

	return map[string]interface{}{"op": fn.Op, "attr": fn.Path.String(), "value": fn.Value.Native()}
}

// FilterFromMap rebuilds a filter tree from its dictionary form.
func FilterFromMap(m map[string]interface{}) (*FilterNode, error) {
	opVal, ok := m["op"].(string)
	if !ok {
		return nil, errors.New("filter map is missing the 'op' key")
	}

	op := strings.ToLower(opVal)

	switch op {
	case OpAnd, OpOr:
		rawSubs, ok := m["sub_ops"].([]interface{})
		if !ok || len(rawSubs) == 0 {
			return nil, errors.Errorf("'%s' filter map is missing 'sub_ops'", op)
		}

		node := &FilterNode{Op: op}
		for _, raw := range rawSubs {
			subMap, ok := raw.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("bad sub operator in '%s' filter map", op)
			}

			child, err := FilterFromMap(subMap)
			if err != nil {
				return nil, err
			}

			node.addChild(child)
		}
		return node, nil

	case OpNot, OpComplex:
		subMap, ok := m["sub_op"].(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("'%s' filter map is missing 'sub_op'", op)
		}

		child, err := FilterFromMap(subMap)
		if err != nil {
			return nil, err
		}

		node := &FilterNode{Op: op}
		node.addChild(child)

		if op == OpComplex {
			attr, ok := m["attr"].(string)
			if !ok {
				return nil, errors.New("'complex' filter map is missing 'attr'")
			}
			node.Path = parseAttrPath(attr)
		}

		return node, nil

	case OpPr:
		attr, ok := m["attr"].(string)
		if !ok {
			return nil, errors.New("'pr' filter map is missing 'attr'")
		}
		return &FilterNode{Op: op, Path: parseAttrPath(attr)}, nil
	}

	if !binaryOps[op] {
		return nil, errors.Errorf("unknown operator '%s' in filter map", opVal)
	}

	attr, ok := m["attr"].(string)
	if !ok {
		return nil, errors.Errorf("'%s' filter map is missing 'attr'", op)
	}

	lit, err := literalFromNative(m["value"])
	if err != nil {
		return nil, err
	}

	return &FilterNode{Op: op, Path: parseAttrPath(attr), Value: lit}, nil
}

func literalFromNative(v interface{}) (*Literal, error) {
	switch t := v.(type) {
	case nil:
		return &Literal{Kind: LitNull}, nil
	case string:
		return &Literal{Kind: LitString, Str: t}, nil
	case bool:
		return &Literal{Kind: LitBool, Bool: t}, nil
	case float64:
		d := decimal.NewFromFloat(t)
		return &Literal{Kind: LitNumber, Num: d, IsInt: d.IsInteger()}, nil
	case int:
		return &Literal{Kind: LitNumber, Num: decimal.New(int64(t), 0), IsInt: true}, nil
	case int64:
		return &Literal{Kind: LitNumber, Num: decimal.New(t, 0), IsInt: true}, nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return nil, errors.Wrapf(err, "bad number '%s' in filter map", t.String())
		}
		return &Literal{Kind: LitNumber, Num: d, IsInt: !strings.ContainsAny(t.String(), ".eE")}, nil
	}

	return nil, errors.Errorf("unsupported literal %#v in filter map", v)
}
