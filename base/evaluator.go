// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"strings"
	"time"

	"scimcore/schema"
)

// An Evaluator matches one parsed filter node against resource data.
// Evaluators are immutable and safe for concurrent use.
type Evaluator interface {
	Evaluate(sd *ScimData) bool
}

type emptyEvaluator struct{}

func (empty *emptyEvaluator) Evaluate(sd *ScimData) bool {
	return false
}

var EMPTY_EV = &emptyEvaluator{}

type andEvaluator struct {
	children []Evaluator
}

func (and *andEvaluator) Evaluate(sd *ScimData) bool {
	for _, ev := range and.children {
		if !ev.Evaluate(sd) {
			return false
		}
	}

	return true
}

type orEvaluator struct {
	children []Evaluator
}

func (or *orEvaluator) Evaluate(sd *ScimData) bool {
	for _, ev := range or.children {
		if ev.Evaluate(sd) {
			return true
		}
	}

	return false
}

type notEvaluator struct {
	childEv Evaluator
}

func (not *notEvaluator) Evaluate(sd *ScimData) bool {
	return !not.childEv.Evaluate(sd)
}

type presenceEvaluator struct {
	node   *FilterNode
	atType *schema.AttrType
}

func (pr *presenceEvaluator) Evaluate(sd *ScimData) bool {
	return present(sd.Get(pr.node.Path.String()))
}

type arithmeticEvaluator struct {
	node   *FilterNode
	atType *schema.AttrType
}

func (ar *arithmeticEvaluator) Evaluate(sd *ScimData) bool {
	v := sd.Get(ar.node.Path.String())
	if IsMissing(v) || v == nil {
		return false
	}

	// a multi-valued attribute, or a sub-attribute projected across the
	// elements of one, matches when any element matches
	if arr, ok := v.([]interface{}); ok {
		for _, e := range arr {
			if compareValue(ar.atType, e, ar.node) {
				return true
			}
		}

		return false
	}

	return compareValue(ar.atType, v, ar.node)
}

type complexGroupEvaluator struct {
	node    *FilterNode
	inner   Evaluator
	isValid bool
}

func (cg *complexGroupEvaluator) Evaluate(sd *ScimData) bool {
	if !cg.isValid {
		return false
	}

	v := sd.Get(cg.node.Path.String())
	arr, ok := v.([]interface{})
	if !ok {
		return false
	}

	// existential match, the whole inner filter must hold on one element
	for _, e := range arr {
		obj, ok := e.(*ScimData)
		if !ok {
			continue
		}

		if cg.inner.Evaluate(obj) {
			return true
		}
	}

	return false
}

// BuildEvaluator compiles the given filter node against a resource
// type. Attribute paths that resolve to nothing evaluate to "not
// present": comparisons never match, pr is false.
func BuildEvaluator(node *FilterNode, rt *schema.ResourceType) Evaluator {
	if node == nil {
		return EMPTY_EV
	}

	return buildEv(node, func(path AttrPath) *schema.AttrType {
		return rt.GetAtType(path.String())
	})
}

type atResolver func(path AttrPath) *schema.AttrType

func buildEv(node *FilterNode, resolve atResolver) Evaluator {
	switch node.Op {
	case OpAnd:
		return &andEvaluator{children: buildEvList(node.Children, resolve)}

	case OpOr:
		return &orEvaluator{children: buildEvList(node.Children, resolve)}

	case OpNot:
		return &notEvaluator{childEv: buildEv(node.Children[0], resolve)}

	case OpPr:
		return &presenceEvaluator{node: node, atType: resolve(node.Path)}

	case OpComplex:
		parent := resolve(node.Path)
		valid := parent != nil && parent.IsComplex() && parent.MultiValued
		var inner Evaluator = EMPTY_EV
		if valid {
			inner = buildEv(node.Children[0], func(path AttrPath) *schema.AttrType {
				return parent.GetSubAt(path.Attr)
			})
		}

		return &complexGroupEvaluator{node: node, inner: inner, isValid: valid}
	}

	return &arithmeticEvaluator{node: node, atType: resolve(node.Path)}
}

func buildEvList(children []*FilterNode, resolve atResolver) []Evaluator {
	evList := make([]Evaluator, 0, len(children))
	for _, node := range children {
		evList = append(evList, buildEv(node, resolve))
	}

	return evList
}

// EvaluateFilter compiles and runs the filter in one go.
func EvaluateFilter(node *FilterNode, sd *ScimData, rt *schema.ResourceType) bool {
	return BuildEvaluator(node, rt).Evaluate(sd)
}

// ValidateFilter reports the schema level problems of a parsed filter,
// i.e. complex groups applied to attributes that are not multi-valued
// complex ones. Unknown attributes are not an error, they simply never
// match.
func ValidateFilter(node *FilterNode, rt *schema.ResourceType) *ValidationIssues {
	vi := NewIssues()
	validateFilterNode(node, rt, vi)
	return vi
}

func validateFilterNode(node *FilterNode, rt *schema.ResourceType, vi *ValidationIssues) {
	if node == nil {
		return
	}

	if node.Op == OpComplex {
		at := rt.GetAtType(node.Path.String())
		if at != nil && (!at.IsComplex() || !at.MultiValued) {
			vi.AddError(ComplexSubAttribute(node.Path.Attr, ""), true)
		}
	}

	for _, ch := range node.Children {
		validateFilterNode(ch, rt, vi)
	}
}

// compareValue matches one stored value against the node's literal
// under the attribute's type semantics. An unresolved attribute type
// falls back to the literal's own type.
func compareValue(atType *schema.AttrType, v interface{}, node *FilterNode) bool {
	lit := node.Value
	op := node.Op

	typeTag := ""
	if atType != nil {
		typeTag = strings.ToLower(atType.Type)
	} else {
		switch lit.Kind {
		case LitString:
			typeTag = "string"
		case LitNumber:
			typeTag = "decimal"
		case LitBool:
			typeTag = "boolean"
		}
	}

	switch typeTag {
	case "string", "reference", "binary":
		val, ok := toStr(v)
		if !ok || lit.Kind != LitString {
			return litEqualsOnly(op, false)
		}

		nval := lit.Str
		caseExact := atType != nil && atType.CaseExact
		if typeTag == "string" && !caseExact {
			val = strings.ToLower(val)
			nval = strings.ToLower(nval)
		}

		switch op {
		case OpEq:
			return val == nval
		case OpNe:
			return val != nval
		case OpCo:
			return strings.Contains(val, nval)
		case OpSw:
			return strings.HasPrefix(val, nval)
		case OpEw:
			return strings.HasSuffix(val, nval)
		case OpGt:
			return val > nval
		case OpLt:
			return val < nval
		case OpGe:
			return val >= nval
		case OpLe:
			return val <= nval
		}

	case "datetime":
		val, ok := toStr(v)
		if !ok || lit.Kind != LitString {
			return litEqualsOnly(op, false)
		}

		t1, err1 := time.Parse(time.RFC3339, val)
		t2, err2 := time.Parse(time.RFC3339, lit.Str)
		if err1 != nil || err2 != nil {
			return false
		}

		return compareOrdered(op, t1.Compare(t2))

	case "integer", "decimal":
		d1, ok := toDecimal(v)
		if !ok || lit.Kind != LitNumber {
			return litEqualsOnly(op, false)
		}

		return compareOrdered(op, d1.Cmp(lit.Num))

	case "boolean":
		val, ok := toBool(v)
		if !ok || lit.Kind != LitBool {
			return litEqualsOnly(op, false)
		}

		switch op {
		case OpEq:
			return val == lit.Bool
		case OpNe:
			return val != lit.Bool
		}
	}

	return false
}

// litEqualsOnly handles the type-mismatch cases: nothing equals a value
// of another type, so eq is false and ne is true.
func litEqualsOnly(op string, eq bool) bool {
	switch op {
	case OpEq:
		return eq
	case OpNe:
		return !eq
	}

	return false
}

func compareOrdered(op string, cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	}

	return false
}
