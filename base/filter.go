// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"scimcore/schema"
)

const (
	tkWord = iota
	tkString
	tkLParen
	tkRParen
	tkLBracket
	tkRBracket
)

type token struct {
	kind int
	text string
	pos  int
}

var numberRegex = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?([eE][-+]?[0-9]+)?$`)

// ParseFilter parses the given filter expression. Every discovered
// issue is collected, not only the first, so a caller can report the
// complete picture at once. The returned node is nil whenever the
// issues carry errors.
func ParseFilter(filter string) (*FilterNode, *ValidationIssues) {
	log.Debugf("parsing filter %s", filter)

	vi := NewIssues()
	filter = strings.TrimSpace(filter)

	if len(filter) == 0 {
		vi.AddError(BadFilterExpression(filter), false)
		return nil, vi
	}

	toks := lexFilter(filter, vi)

	p := &filterParser{toks: toks, raw: filter, vi: vi}
	node := p.parseOr()

	if !p.atEnd() {
		// leftover tokens mean the expression lost its shape somewhere
		p.errOnce(BadFilterExpression(p.rest()))
	}

	if vi.HasErrors() {
		return nil, vi
	}

	return node, vi
}

// lexFilter splits the expression into tokens, checking quote and
// bracket balance on the way.
func lexFilter(filter string, vi *ValidationIssues) []token {
	rb := []rune(filter)
	length := len(rb)
	toks := make([]token, 0, 8)

	parenDepth := 0
	parenBroken := false
	bracketDepth := 0
	bracketBroken := false

	i := 0
	for i < length {
		c := rb[i]

		switch {
		case c == ' ' || c == '\t':
			i++

		case c == '(':
			parenDepth++
			toks = append(toks, token{kind: tkLParen, text: "(", pos: i})
			i++

		case c == ')':
			parenDepth--
			if parenDepth < 0 && !parenBroken {
				vi.AddError(UnbalancedParentheses(), false)
				parenBroken = true
			}
			toks = append(toks, token{kind: tkRParen, text: ")", pos: i})
			i++

		case c == '[':
			bracketDepth++
			toks = append(toks, token{kind: tkLBracket, text: "[", pos: i})
			i++

		case c == ']':
			bracketDepth--
			if bracketDepth < 0 && !bracketBroken {
				vi.AddError(UnbalancedBrackets(), false)
				bracketBroken = true
			}
			toks = append(toks, token{kind: tkRBracket, text: "]", pos: i})
			i++

		case c == '\'' || c == '"':
			quote := c
			start := i
			i++
			var sb strings.Builder
			closed := false
			for i < length {
				if rb[i] == '\\' && i+1 < length {
					switch rb[i+1] {
					case '\\', '\'', '"':
						sb.WriteRune(rb[i+1])
						i += 2
						continue
					}
				}

				if rb[i] == quote {
					closed = true
					i++
					break
				}

				sb.WriteRune(rb[i])
				i++
			}

			if !closed {
				vi.AddError(BadFilterExpression(string(rb[start:])), false)
			}

			toks = append(toks, token{kind: tkString, text: sb.String(), pos: start})

		default:
			start := i
			for i < length {
				c = rb[i]
				if c == ' ' || c == '\t' || c == '(' || c == ')' || c == '[' || c == ']' {
					break
				}
				i++
			}
			toks = append(toks, token{kind: tkWord, text: string(rb[start:i]), pos: start})
		}
	}

	if parenDepth > 0 && !parenBroken {
		vi.AddError(UnbalancedParentheses(), false)
	}

	if bracketDepth > 0 && !bracketBroken {
		vi.AddError(UnbalancedBrackets(), false)
	}

	return toks
}

type filterParser struct {
	toks       []token
	pos        int
	raw        string
	vi         *ValidationIssues
	groupDepth int
	flaggedBad bool
}

func (p *filterParser) atEnd() bool {
	return p.pos >= len(p.toks)
}

func (p *filterParser) peek() *token {
	if p.atEnd() {
		return nil
	}

	return &p.toks[p.pos]
}

func (p *filterParser) next() *token {
	t := p.peek()
	if t != nil {
		p.pos++
	}

	return t
}

func (p *filterParser) rest() string {
	if p.atEnd() {
		return ""
	}

	return strings.TrimSpace(p.raw[p.toks[p.pos].pos:])
}

// errOnce guards against drowning the caller in follow-up noise from
// one structural break.
func (p *filterParser) errOnce(e *ValidationError) {
	if p.flaggedBad {
		return
	}

	p.flaggedBad = true
	p.vi.AddError(e, false)
}

func (p *filterParser) errCount() int {
	return p.vi.ErrorCount()
}

func (p *filterParser) peekIsWord(word string) bool {
	t := p.peek()
	return t != nil && t.kind == tkWord && strings.EqualFold(t.text, word)
}

func (p *filterParser) parseOr() *FilterNode {
	first := p.parseAnd()
	if !p.peekIsWord(OpOr) {
		return first
	}

	node := &FilterNode{Op: OpOr}
	if first != nil {
		node.addChild(first)
	}

	for p.peekIsWord(OpOr) {
		p.next()
		before := p.errCount()
		child := p.parseAnd()
		if child == nil {
			if p.errCount() == before {
				p.vi.AddError(MissingOperand(OpOr, p.raw), false)
			}
			continue
		}

		node.addChild(child)
	}

	if len(node.Children) == 0 {
		return nil
	}

	if len(node.Children) == 1 {
		return node.Children[0]
	}

	return node
}

func (p *filterParser) parseAnd() *FilterNode {
	first := p.parseNot()
	if !p.peekIsWord(OpAnd) {
		return first
	}

	node := &FilterNode{Op: OpAnd}
	if first != nil {
		node.addChild(first)
	}

	for p.peekIsWord(OpAnd) {
		p.next()
		before := p.errCount()
		child := p.parseNot()
		if child == nil {
			if p.errCount() == before {
				p.vi.AddError(MissingOperand(OpAnd, p.raw), false)
			}
			continue
		}

		node.addChild(child)
	}

	if len(node.Children) == 0 {
		return nil
	}

	if len(node.Children) == 1 {
		return node.Children[0]
	}

	return node
}

func (p *filterParser) parseNot() *FilterNode {
	if !p.peekIsWord(OpNot) {
		return p.parseTerm()
	}

	p.next()
	before := p.errCount()
	child := p.parseTerm()
	if child == nil {
		if p.errCount() == before {
			p.vi.AddError(MissingOperand(OpNot, p.raw), false)
		}
		return nil
	}

	node := &FilterNode{Op: OpNot}
	node.addChild(child)
	return node
}

func (p *filterParser) parseTerm() *FilterNode {
	t := p.peek()
	if t == nil {
		return nil
	}

	switch t.kind {
	case tkLParen:
		p.next()
		if tt := p.peek(); tt != nil && tt.kind == tkRParen {
			p.next()
			p.vi.AddError(EmptyExpression(), false)
			return nil
		}

		before := p.errCount()
		inner := p.parseOr()

		if tt := p.peek(); tt != nil && tt.kind == tkRParen {
			p.next()
		}

		if inner == nil && p.errCount() == before {
			p.vi.AddError(EmptyExpression(), false)
		}

		return inner

	case tkWord:
		return p.parseAttrExpr()

	case tkRParen, tkRBracket:
		// left for the caller, a term can never start with a closing
		// token
		p.errOnce(BadFilterExpression(p.rest()))
		return nil
	}

	// a string literal in attribute position
	p.vi.AddError(BadFilterExpression(t.text), false)
	p.next()
	return nil
}

func (p *filterParser) parseAttrExpr() *FilterNode {
	t := p.next()
	path := parseAttrPath(t.text)

	if !schema.ValidAttrName(path.Attr) {
		p.vi.AddError(BadAttrName(path.Attr), false)
	} else if path.HasSub() && !schema.ValidAttrName(path.Sub) {
		p.vi.AddError(BadAttrName(path.Sub), false)
	}

	if tt := p.peek(); tt != nil && tt.kind == tkLBracket {
		return p.parseComplexGroup(path)
	}

	opTok := p.peek()
	if opTok == nil || opTok.kind != tkWord {
		p.vi.AddError(BadFilterExpression(path.String()), false)
		return nil
	}

	op := strings.ToLower(opTok.text)

	// a logical word right after the path means the operator is missing
	if op == OpAnd || op == OpOr || op == OpNot {
		p.vi.AddError(BadFilterExpression(path.String()), false)
		return nil
	}

	p.next()

	if op == OpPr {
		return &FilterNode{Op: OpPr, Path: path}
	}

	known := binaryOps[op]
	if !known {
		p.vi.AddError(UnknownOperator(opTok.text, p.raw), false)
	}

	lit := p.parseOperand(op, path)

	if !known {
		return nil
	}

	if lit == nil {
		return nil
	}

	if isStringOnlyOp(op) && lit.Kind != LitString {
		p.vi.AddError(IncompatibleOperand(lit.rawText(), op), false)
		return nil
	}

	if isOrderingOp(op) && (lit.Kind == LitBool || lit.Kind == LitNull) {
		p.vi.AddError(IncompatibleOperand(lit.rawText(), op), false)
		return nil
	}

	return &FilterNode{Op: op, Path: path, Value: lit}
}

func (l *Literal) rawText() string {
	if l.Kind == LitString {
		return l.Str
	}

	return l.String()
}

func (p *filterParser) parseOperand(op string, path AttrPath) *Literal {
	t := p.peek()
	if t == nil || t.kind == tkRParen || t.kind == tkRBracket || (t.kind == tkWord && isBoundaryWord(t.text)) {
		p.vi.AddError(MissingOperand(op, p.raw), false)
		return nil
	}

	p.next()

	if t.kind == tkString {
		return &Literal{Kind: LitString, Str: t.text}
	}

	if t.kind != tkWord {
		p.vi.AddError(BadOperand(t.text), false)
		return nil
	}

	word := t.text
	switch strings.ToLower(word) {
	case "true":
		return &Literal{Kind: LitBool, Bool: true}
	case "false":
		return &Literal{Kind: LitBool, Bool: false}
	case "null":
		return &Literal{Kind: LitNull}
	}

	if numberRegex.MatchString(word) {
		num, err := decimal.NewFromString(word)
		if err == nil {
			return &Literal{Kind: LitNumber, Num: num, IsInt: !strings.ContainsAny(word, ".eE")}
		}
	}

	p.vi.AddError(BadOperand(word), false)
	return nil
}

func isBoundaryWord(word string) bool {
	switch strings.ToLower(word) {
	case OpAnd, OpOr, OpNot:
		return true
	}

	return false
}

func (p *filterParser) parseComplexGroup(path AttrPath) *FilterNode {
	p.next() // consume the [

	nested := p.groupDepth > 0
	if nested {
		p.vi.AddError(InnerComplexGroup(), false)
	}

	if path.HasSub() {
		p.vi.AddError(ComplexSubAttribute(path.Attr, path.Sub), false)
	}

	if tt := p.peek(); tt != nil && tt.kind == tkRBracket {
		p.next()
		p.vi.AddError(EmptyComplexGroup(path.Attr), false)
		return nil
	}

	p.groupDepth++
	before := p.errCount()
	inner := p.parseOr()
	p.groupDepth--

	if tt := p.peek(); tt != nil && tt.kind == tkRBracket {
		p.next()
	}

	if inner == nil {
		if p.errCount() == before {
			p.vi.AddError(EmptyComplexGroup(path.Attr), false)
		}
		return nil
	}

	if nested || path.HasSub() {
		return nil
	}

	node := &FilterNode{Op: OpComplex, Path: path}
	node.addChild(inner)
	return node
}
