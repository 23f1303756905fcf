// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"scimcore/schema"
)

// ApplyPatch mutates the given data according to the request's
// operations. Operations whose validation fails are skipped, all
// per-operation errors are enumerated before any reporting. The data is
// only touched by operations that validated cleanly.
func ApplyPatch(sd *ScimData, rt *schema.ResourceType, pr *PatchRequest) *ValidationIssues {
	vi := ValidatePatchOps(pr, rt)

	for _, po := range pr.Operations {
		if vi.HasErrors("Operations", po.Index) {
			continue
		}

		applyPatchOp(sd, rt, po, vi)
	}

	return vi
}

func applyPatchOp(sd *ScimData, rt *schema.ResourceType, po *PatchOp, vi *ValidationIssues) {
	i := po.Index

	if len(po.Path) == 0 {
		obj, ok := po.Value.(*ScimData)
		if !ok {
			return
		}

		for _, key := range obj.Keys() {
			applyRootKey(sd, rt, po.Op, key, obj.Get(key), vi, i)
		}
		return
	}

	pp := po.ParsedPath
	if pp == nil {
		return
	}

	if pp.IsExtContainer(rt) {
		applyExtContainer(sd, po, pp)
		return
	}

	atType := rt.GetAtType(pp.Path.String())
	if atType == nil {
		return
	}

	if pp.Selector != nil {
		applySelected(sd, rt, po, pp, atType, vi)
		return
	}

	target := pp.Path.String()

	switch po.Op {
	case "remove":
		if IsMissing(sd.Delete(target)) {
			vi.AddError(UnknownModificationTarget(), true, "Operations", i, "path")
		}

	case "replace":
		sd.Set(target, po.Value)

	case "add":
		applyAdd(sd, atType, target, po.Value)
	}
}

// applyRootKey applies one attribute of a path-less operation's value
// object.
func applyRootKey(sd *ScimData, rt *schema.ResourceType, op string, key string, value interface{}, vi *ValidationIssues, i int) {
	atType := rt.GetAtType(key)
	if atType == nil {
		if rt.GetSchema(key) != nil {
			// a nested extension object
			if obj, ok := value.(*ScimData); ok {
				for _, subKey := range obj.Keys() {
					sd.Set(key+schema.URI_DELIM+subKey, obj.Get(subKey))
				}
			}
			return
		}

		vi.AddError(UnknownModificationTarget(), true, "Operations", i, "value", key)
		return
	}

	if isNotModifiable(atType) {
		vi.AddError(AttrNotModifiable(), true, "Operations", i, "value", key)
		return
	}

	if op == "add" {
		applyAdd(sd, atType, atType.Name, value)
		return
	}

	sd.Set(atType.Name, value)
}

// applyAdd appends on a multi-valued target and replaces a singular
// one, the rfc7644 section 3.5.2.1 semantics.
func applyAdd(sd *ScimData, atType *schema.AttrType, target string, value interface{}) {
	if !atType.MultiValued {
		sd.Set(target, value)
		return
	}

	existing, _ := sd.Get(target).([]interface{})

	switch t := value.(type) {
	case []interface{}:
		existing = append(existing, t...)
	default:
		existing = append(existing, convertVal(value))
	}

	sd.Set(target, existing)
}

func applyExtContainer(sd *ScimData, po *PatchOp, pp *PatchPath) {
	if po.Op == "remove" {
		sd.Delete(pp.rawPath)
		return
	}

	obj, ok := po.Value.(*ScimData)
	if !ok {
		return
	}

	if po.Op == "replace" {
		sd.Delete(pp.rawPath)
	}

	for _, key := range obj.Keys() {
		sd.Set(pp.rawPath+schema.URI_DELIM+key, obj.Get(key))
	}
}

// applySelected applies the operation to the elements of a multi-valued
// complex attribute matched by the path's selector.
func applySelected(sd *ScimData, rt *schema.ResourceType, po *PatchOp, pp *PatchPath, atType *schema.AttrType, vi *ValidationIssues) {
	i := po.Index

	parentPath := pp.Path.URIPrefixed(pp.Path.Attr)
	parent := rt.GetAtType(parentPath)

	elements, ok := sd.Get(parentPath).([]interface{})
	if !ok {
		vi.AddError(UnknownModificationTarget(), true, "Operations", i, "path")
		return
	}

	ev := buildEv(pp.Selector, func(path AttrPath) *schema.AttrType {
		return parent.GetSubAt(path.Attr)
	})

	matchedAny := false
	kept := make([]interface{}, 0, len(elements))

	for _, e := range elements {
		obj, isObj := e.(*ScimData)
		if !isObj || !ev.Evaluate(obj) {
			kept = append(kept, e)
			continue
		}

		matchedAny = true

		switch po.Op {
		case "remove":
			if pp.Path.HasSub() {
				obj.Delete(pp.Path.Sub)
				kept = append(kept, e)
			}
			// a matched element without a sub path is dropped

		case "replace":
			if pp.Path.HasSub() {
				obj.Set(pp.Path.Sub, po.Value)
				kept = append(kept, e)
				continue
			}

			if repl, isObj := po.Value.(*ScimData); isObj {
				kept = append(kept, repl.Copy())
			} else {
				kept = append(kept, e)
			}

		case "add":
			if pp.Path.HasSub() {
				obj.Set(pp.Path.Sub, po.Value)
				kept = append(kept, e)
				continue
			}

			if merge, isObj := po.Value.(*ScimData); isObj {
				for _, key := range merge.Keys() {
					obj.Set(key, merge.Get(key))
				}
			}
			kept = append(kept, e)
		}
	}

	if !matchedAny {
		vi.AddError(UnknownModificationTarget(), true, "Operations", i, "path")
		return
	}

	if len(kept) == 0 {
		sd.Delete(parentPath)
		return
	}

	sd.Set(parentPath, kept)
}
