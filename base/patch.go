// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"strings"

	"scimcore/schema"
)

// A PatchPath is a parsed patch operation path of the form
// attrpath, attrpath[selector] or attrpath[selector].subAttr. The path
// may also name an extension schema URI as a whole.
type PatchPath struct {
	Path     AttrPath
	Selector *FilterNode
	Text     string

	// rawPath is the path with the selector cut out, kept for the
	// extension-container resolution which needs the undivided string
	rawPath string
}

// A PatchOp is one operation of a patch request.
type PatchOp struct {
	Index      int
	Op         string
	Path       string
	ParsedPath *PatchPath
	Value      interface{}
}

type PatchRequest struct {
	Schemas    []string
	Operations []*PatchOp
}

// ParsePatchPath parses a patch operation path. Any syntax problem,
// including one inside the selector filter, is reported as a single bad
// value syntax issue, the way the protocol wants malformed paths
// flagged.
func ParsePatchPath(path string) (*PatchPath, *ValidationIssues) {
	vi := NewIssues()

	path = strings.TrimSpace(path)
	if len(path) == 0 {
		vi.AddError(BadValueSyntax(), false)
		return nil, vi
	}

	pp := &PatchPath{Text: path}
	runningPath := path
	selector := ""

	slctrStrtPos := strings.IndexRune(path, '[')
	if slctrStrtPos == 0 {
		vi.AddError(BadValueSyntax(), false)
		return nil, vi
	}

	if slctrStrtPos > 0 {
		slctrEndPos := strings.LastIndex(path, "]")
		if slctrEndPos < slctrStrtPos {
			vi.AddError(BadValueSyntax(), false)
			return nil, vi
		}

		selector = path[slctrStrtPos+1 : slctrEndPos]
		if len(strings.TrimSpace(selector)) == 0 {
			vi.AddError(BadValueSyntax(), false)
			return nil, vi
		}

		runningPath = path[:slctrStrtPos]

		rest := path[slctrEndPos+1:]
		if len(rest) != 0 {
			if rest[0] != '.' || len(rest) == 1 {
				vi.AddError(BadValueSyntax(), false)
				return nil, vi
			}

			runningPath += rest // keeps the '.', SplitPath handles it
		}
	}

	pp.rawPath = runningPath
	pp.Path = parseAttrPath(runningPath)

	if !schema.ValidAttrName(pp.Path.Attr) || (pp.Path.HasSub() && !schema.ValidAttrName(pp.Path.Sub)) {
		vi.AddError(BadValueSyntax(), false)
		return nil, vi
	}

	if len(selector) > 0 {
		node, slctrIssues := ParseFilter(selector)
		if slctrIssues.HasErrors() || node == nil {
			log.Debugf("bad selector in patch path %s", path)
			vi.AddError(BadValueSyntax(), false)
			return nil, vi
		}

		if node.Op == OpComplex {
			// a selector is already scoped to one attribute's elements
			vi.AddError(BadValueSyntax(), false)
			return nil, vi
		}

		pp.Selector = node
	}

	return pp, vi
}

// IsExtContainer reports whether the path names a registered schema URI
// as a whole rather than an attribute.
func (pp *PatchPath) IsExtContainer(rt *schema.ResourceType) bool {
	if pp.Selector != nil || pp.Path.HasSub() {
		return false
	}

	if strings.EqualFold(pp.rawPath, rt.Schema) {
		return true
	}

	return rt.IsExtensionUri(pp.rawPath)
}

// Resolve returns the attribute definition the path targets, nil when
// the path names an extension container or nothing at all.
func (pp *PatchPath) Resolve(rt *schema.ResourceType) *schema.AttrType {
	if pp.IsExtContainer(rt) {
		return nil
	}

	return rt.GetAtType(pp.Path.String())
}

// ParsePatchRequest builds a patch request out of an already decoded
// patch body. Parse issues of the operation paths are collected under
// the operation's location.
func ParsePatchRequest(sd *ScimData) (*PatchRequest, *ValidationIssues) {
	vi := NewIssues()
	pr := &PatchRequest{Operations: make([]*PatchOp, 0)}

	if arr, ok := sd.Get("schemas").([]interface{}); ok {
		for _, e := range arr {
			if uri, isStr := toStr(e); isStr {
				pr.Schemas = append(pr.Schemas, uri)
			}
		}
	}

	// a missing or empty Operations array is flagged by the envelope
	// schema validation
	rawOps, ok := sd.Get("Operations").([]interface{})
	if !ok {
		return pr, vi
	}

	for i, rawOp := range rawOps {
		po := &PatchOp{Index: i}
		pr.Operations = append(pr.Operations, po)

		obj, isObj := rawOp.(*ScimData)
		if !isObj {
			vi.AddError(BadType("complex"), false, "Operations", i)
			continue
		}

		if opName, isStr := toStr(obj.Get("op")); isStr {
			po.Op = strings.ToLower(strings.TrimSpace(opName))
		}

		if p, isStr := toStr(obj.Get("path")); isStr {
			po.Path = strings.TrimSpace(p)
		}

		po.Value = obj.Get("value")
		if IsMissing(po.Value) {
			po.Value = nil
		}

		if len(po.Path) > 0 {
			pp, pathIssues := ParsePatchPath(po.Path)
			vi.Merge(pathIssues, "Operations", i, "path")
			po.ParsedPath = pp
		}
	}

	return pr, vi
}

var patchOpNames = []string{"add", "remove", "replace"}

// ValidatePatchOps checks every operation of the request against the
// resource type: operation names, path targets, value requirements and
// mutability. All per-operation problems are enumerated before
// reporting.
func ValidatePatchOps(pr *PatchRequest, rt *schema.ResourceType) *ValidationIssues {
	vi := NewIssues()

	for _, po := range pr.Operations {
		validatePatchOp(po, rt, vi)
	}

	return vi
}

func validatePatchOp(po *PatchOp, rt *schema.ResourceType, vi *ValidationIssues) {
	i := po.Index

	known := exists(po.Op, patchOpNames)
	if !known {
		vi.AddError(MustBeOneOf(patchOpNames), true, "Operations", i, "op")
	}

	if po.Op == "remove" && len(po.Path) == 0 {
		vi.AddError(MissingRequired(), false, "Operations", i, "path")
	}

	if (po.Op == "add" || po.Op == "replace") && po.Value == nil {
		vi.AddError(MissingRequired(), false, "Operations", i, "value")
	}

	if len(po.Path) == 0 {
		// the operation applies at the resource root, the value must be
		// an object then
		if po.Value != nil {
			if _, isObj := po.Value.(*ScimData); !isObj {
				vi.AddError(BadType("complex"), true, "Operations", i, "value")
			}
		}
		return
	}

	pp := po.ParsedPath
	if pp == nil {
		return // the path did not parse, reported already
	}

	if pp.IsExtContainer(rt) {
		if po.Value != nil {
			if _, isObj := po.Value.(*ScimData); !isObj {
				vi.AddError(BadType("complex"), true, "Operations", i, "value")
			}
		}
		return
	}

	atType := rt.GetAtType(pp.Path.String())
	if atType == nil {
		vi.AddError(UnknownModificationTarget(), false, "Operations", i, "path")
		return
	}

	if pp.Selector != nil {
		parent := rt.GetAtType(pp.Path.URIPrefixed(pp.Path.Attr))
		if parent == nil || !parent.IsComplex() || !parent.MultiValued {
			vi.AddError(UnknownModificationTarget(), false, "Operations", i, "path")
			return
		}
	}

	switch po.Op {
	case "add", "replace":
		if isNotModifiable(atType) {
			vi.AddError(AttrNotModifiable(), true, "Operations", i, "path")
			return
		}

		if po.Value != nil {
			valIssues := NewIssues()
			validatePatchValue(atType, pp, po.Value, valIssues)
			vi.Merge(valIssues, "Operations", i, "value")
		}

	case "remove":
		if atType.Required || isNotModifiable(atType) {
			vi.AddError(AttrNotRemovable(), true, "Operations", i, "path")
		}
	}
}

// URIPrefixed builds a path for the given attribute name carrying this
// path's URI qualifier.
func (ap AttrPath) URIPrefixed(attr string) string {
	if len(ap.URI) != 0 {
		return ap.URI + schema.URI_DELIM + attr
	}

	return attr
}

func isNotModifiable(at *schema.AttrType) bool {
	if at.IsReadOnly() || at.IsImmutable() {
		return true
	}

	if at.Parent() != nil && (at.Parent().IsReadOnly() || at.Parent().IsImmutable()) {
		return true
	}

	return false
}

// validatePatchValue checks the operation value against the targeted
// attribute. A multi-valued target accepts both an array and a single
// element.
func validatePatchValue(atType *schema.AttrType, pp *PatchPath, value interface{}, vi *ValidationIssues) {
	// a filtered path targets one element (or one element's sub-attr)
	if pp.Selector != nil || !atType.MultiValued {
		validateTargetValue(atType, value, vi)
		return
	}

	if _, isArr := value.([]interface{}); isArr {
		validateAttrValue(atType, value, vi, nil)
		return
	}

	// single element appended to a multi-valued attribute
	validateTargetValue(atType, value, vi)
}

func validateTargetValue(atType *schema.AttrType, value interface{}, vi *ValidationIssues) {
	if atType.IsComplex() {
		obj, isObj := value.(*ScimData)
		if !isObj {
			vi.AddError(BadType("complex"), false)
			return
		}

		validateSubAttrs(atType, obj, vi, nil)
		return
	}

	vi.Merge(checkSimpleValue(atType, value))
}

func exists(val string, list []string) bool {
	for _, token := range list {
		if token == val {
			return true
		}
	}

	return false
}
