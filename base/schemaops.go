// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"strings"

	"scimcore/schema"
)

// ValidateResource validates the given data against the resource type:
// the main schema, every registered extension and the schemas array
// integrity, in registration order. Every independent problem is
// reported, nothing short-circuits.
func ValidateResource(rt *schema.ResourceType, sd *ScimData, pc *PresenceConfig) *ValidationIssues {
	vi := NewIssues()
	if sd == nil {
		vi.AddError(BadType("object"), false)
		return vi
	}

	declared := validateSchemasArray(rt, sd, vi)

	validateAttrs(rt.GetMainSchema(), sd, pc, vi, nil)

	for _, ext := range rt.SchemaExtensions {
		uri := ext.Schema.Id
		v, _ := sd.rawGet(strings.ToLower(uri))
		if IsMissing(v) || v == nil {
			if ext.Required {
				vi.AddError(MissingRequired(), false, uri)
			}
			continue
		}

		container, ok := v.(*ScimData)
		if !ok {
			vi.AddError(BadType("complex"), false, uri)
			continue
		}

		// a required extension missing from schemas was flagged already
		if container.Len() != 0 && !ext.Required && !uriListed(declared, uri) {
			vi.AddError(MissingSchemaExtension(uri), true, "schemas")
		}

		validateAttrs(ext.Schema, container, pc, vi, []interface{}{uri})
	}

	checkUnknownKeys(rt, sd, vi)

	return vi
}

// validateSchemasArray checks the schemas attribute against the URIs
// the resource type registers. Returns the declared URIs.
func validateSchemasArray(rt *schema.ResourceType, sd *ScimData, vi *ValidationIssues) []string {
	v := sd.Get("schemas")
	if IsMissing(v) || v == nil {
		vi.AddError(MissingRequired(), false, "schemas")
		return nil
	}

	arr, ok := v.([]interface{})
	if !ok {
		vi.AddError(BadType("list"), false, "schemas")
		return nil
	}

	// an empty array falls through, it misses the base schema

	declared := make([]string, 0, len(arr))
	mainFound := false

	for i, e := range arr {
		uri, ok := toStr(e)
		if !ok {
			vi.AddError(BadType("string"), true, "schemas", i)
			continue
		}

		declared = append(declared, uri)

		if strings.EqualFold(uri, rt.Schema) {
			mainFound = true
			continue
		}

		if rt.GetSchema(uri) == nil {
			vi.AddError(UnknownSchema(uri), true, "schemas", i)
		}
	}

	if !mainFound {
		vi.AddError(MissingMainSchema(), true, "schemas")
	}

	for _, ext := range rt.SchemaExtensions {
		if ext.Required && !uriListed(declared, ext.Schema.Id) {
			vi.AddError(MissingSchemaExtension(ext.Schema.Id), true, "schemas")
		}
	}

	return declared
}

func uriListed(declared []string, uri string) bool {
	for _, d := range declared {
		if strings.EqualFold(d, uri) {
			return true
		}
	}

	return false
}

// ValidateMessage validates an API message body against its envelope
// schema. The schemas attribute, when present, must carry the message
// URN.
func ValidateMessage(sc *schema.Schema, sd *ScimData, pc *PresenceConfig) *ValidationIssues {
	vi := NewIssues()
	if sd == nil {
		vi.AddError(BadType("object"), false)
		return vi
	}

	v := sd.Get("schemas")
	if arr, ok := v.([]interface{}); ok {
		found := false
		for _, e := range arr {
			if uri, ok := toStr(e); ok && strings.EqualFold(uri, sc.Id) {
				found = true
				break
			}
		}

		if !found {
			vi.AddError(MustBeEqualTo(sc.Id), true, "schemas")
		}
	}

	validateAttrs(sc, sd, pc, vi, nil)

	// unlike resource schemas, an envelope's required attributes are
	// unconditional
	for _, name := range sc.RequiredAts {
		at := sc.GetAtType(name)
		if at == nil {
			continue
		}

		if !present(sd.Get(at.Name)) {
			vi.AddError(MissingRequired(), false, at.Name)
		}
	}

	for _, pair := range sc.ExclusiveAts {
		validateExclusive(sc, sd, pair, vi)
	}

	checkUnknownMessageKeys(sc, sd, vi)

	return vi
}

func validateExclusive(sc *schema.Schema, sd *ScimData, pair []string, vi *ValidationIssues) {
	presentAts := make([]string, 0, len(pair))
	for _, name := range pair {
		if present(sd.Get(name)) {
			presentAts = append(presentAts, name)
		}
	}

	if len(presentAts) < 2 {
		return
	}

	for i, name := range presentAts {
		other := presentAts[(i+1)%len(presentAts)]
		at := sc.GetAtType(name)
		display := name
		if at != nil {
			display = at.Name
		}

		vi.AddError(MutuallyExclusive(other), true, display)
	}
}

func joinLoc(prefix []interface{}, parts ...interface{}) []interface{} {
	loc := make([]interface{}, 0, len(prefix)+len(parts))
	loc = append(loc, prefix...)
	loc = append(loc, parts...)
	return loc
}

// validateAttrs walks one schema's attributes in registration order
// against the given container.
func validateAttrs(sc *schema.Schema, container *ScimData, pc *PresenceConfig, vi *ValidationIssues, locPrefix []interface{}) {
	for _, at := range sc.Attributes {
		v := container.Get(at.Name)
		loc := joinLoc(locPrefix, at.Name)

		vi.Merge(validatePresence(at, v, pc), loc...)

		if !present(v) {
			continue
		}

		validateAttrValue(at, v, vi, loc)
	}
}

func validateAttrValue(at *schema.AttrType, v interface{}, vi *ValidationIssues, loc []interface{}) {
	if at.MultiValued {
		arr, ok := v.([]interface{})
		if !ok {
			vi.AddError(BadType("list"), false, loc...)
			return
		}

		if at.IsComplex() {
			validateComplexElements(at, arr, vi, loc)
			return
		}

		for i, e := range arr {
			elemLoc := joinLoc(loc, i)
			vi.Merge(checkSimpleValue(at, e), elemLoc...)

			for j := 0; j < i; j++ {
				if valueEquals(at, arr[j], e) {
					vi.AddError(DuplicateValue(), true, elemLoc...)
					break
				}
			}
		}

		return
	}

	if at.IsComplex() {
		obj, ok := v.(*ScimData)
		if !ok {
			vi.AddError(BadType("complex"), false, loc...)
			return
		}

		validateSubAttrs(at, obj, vi, loc)
		return
	}

	vi.Merge(checkSimpleValue(at, v), loc...)
}

func validateComplexElements(at *schema.AttrType, arr []interface{}, vi *ValidationIssues, loc []interface{}) {
	primarySeen := false
	type typeValuePair struct{ typ, val string }
	seenPairs := make([]typeValuePair, 0, len(arr))

	for i, e := range arr {
		elemLoc := joinLoc(loc, i)

		obj, ok := e.(*ScimData)
		if !ok {
			vi.AddError(BadType("complex"), false, elemLoc...)
			continue
		}

		validateSubAttrs(at, obj, vi, elemLoc)

		if primary, ok := toBool(obj.Get("primary")); ok && primary {
			if primarySeen {
				// one error per surplus occurrence
				vi.AddError(MultiplePrimaryValues(), true, elemLoc...)
			}
			primarySeen = true
		}

		typ, _ := toStr(obj.Get("type"))
		val, _ := toStr(obj.Get("value"))
		if len(typ) != 0 && len(val) != 0 {
			for _, p := range seenPairs {
				if strings.EqualFold(p.typ, typ) && p.val == val {
					vi.AddWarning(WarnDuplicateTypeValuePair(), loc...)
					break
				}
			}
			seenPairs = append(seenPairs, typeValuePair{typ: typ, val: val})
		}
	}
}

func validateSubAttrs(parent *schema.AttrType, obj *ScimData, vi *ValidationIssues, loc []interface{}) {
	for _, key := range obj.Keys() {
		sub := parent.GetSubAt(key)
		if sub == nil {
			if !schema.ValidAttrName(key) {
				vi.AddError(BadAttrName(key), true, joinLoc(loc, key)...)
			}
			continue
		}
	}

	for _, sub := range parent.SubAttributes {
		v := obj.Get(sub.Name)
		if !present(v) {
			if sub.Required {
				vi.AddError(MissingRequired(), false, joinLoc(loc, sub.Name)...)
			}
			continue
		}

		subLoc := joinLoc(loc, sub.Name)
		if sub.MultiValued {
			arr, ok := v.([]interface{})
			if !ok {
				vi.AddError(BadType("list"), false, subLoc...)
				continue
			}

			for i, e := range arr {
				vi.Merge(checkSimpleValue(sub, e), joinLoc(subLoc, i)...)
			}
			continue
		}

		vi.Merge(checkSimpleValue(sub, v), subLoc...)
	}
}

// checkUnknownKeys flags top level keys with illegal attribute names.
// Unknown keys with legal names are tolerated, lenient consumers skip
// what they do not understand.
func checkUnknownKeys(rt *schema.ResourceType, sd *ScimData, vi *ValidationIssues) {
	main := rt.GetMainSchema()
	for _, key := range sd.Keys() {
		if strings.ContainsRune(key, ':') {
			// an extension container, the URI was checked against the
			// registrations already
			if rt.GetSchema(key) == nil && !strings.EqualFold(key, rt.Schema) {
				vi.AddError(UnknownSchema(key), true, key)
			}
			continue
		}

		if main.GetAtType(key) != nil {
			continue
		}

		if !schema.ValidAttrName(key) {
			vi.AddError(BadAttrName(key), true, key)
		}
	}
}

func checkUnknownMessageKeys(sc *schema.Schema, sd *ScimData, vi *ValidationIssues) {
	for _, key := range sd.Keys() {
		if sc.GetAtType(key) != nil || strings.ContainsRune(key, ':') {
			continue
		}

		if !schema.ValidAttrName(key) {
			vi.AddError(BadAttrName(key), true, key)
		}
	}
}

// ----------------- serialization -----------------

// DeserializeResource applies the per-type and per-attribute
// deserializers to the data, descending into complex and multi-valued
// attributes. No validation happens here, callers validate first.
func DeserializeResource(rt *schema.ResourceType, sd *ScimData) *ScimData {
	return convertResource(rt, sd, deserializeSimple)
}

// SerializeResource is the inverse of DeserializeResource. The result
// is a ScimData whose ToMap output nests every extension under its URI.
func SerializeResource(rt *schema.ResourceType, sd *ScimData) *ScimData {
	return convertResource(rt, sd, serializeSimple)
}

// DeserializeMessage applies the deserializers of a message schema.
func DeserializeMessage(sc *schema.Schema, sd *ScimData) *ScimData {
	return convertAttrs(sc, sd, deserializeSimple)
}

func SerializeMessage(sc *schema.Schema, sd *ScimData) *ScimData {
	return convertAttrs(sc, sd, serializeSimple)
}

type convertFn func(at *schema.AttrType, v interface{}) interface{}

func convertResource(rt *schema.ResourceType, sd *ScimData, fn convertFn) *ScimData {
	out := convertAttrs(rt.GetMainSchema(), sd, fn)

	for _, ext := range rt.SchemaExtensions {
		v, _ := sd.rawGet(strings.ToLower(ext.Schema.Id))
		container, ok := v.(*ScimData)
		if !ok {
			continue
		}

		out.put(ext.Schema.Id, convertAttrs(ext.Schema, container, fn))
	}

	return out
}

func convertAttrs(sc *schema.Schema, container *ScimData, fn convertFn) *ScimData {
	out := NewScimData()

	for _, key := range container.Keys() {
		at := sc.GetAtType(key)
		v := container.Get(key)

		if at == nil {
			if !strings.ContainsRune(key, ':') {
				// unknown keys ride along untouched
				out.Set(key, v)
			}
			continue
		}

		out.Set(at.Name, convertAttrValue(at, v, fn))
	}

	return out
}

func convertAttrValue(at *schema.AttrType, v interface{}, fn convertFn) interface{} {
	if v == nil || IsMissing(v) {
		return v
	}

	if at.MultiValued {
		arr, ok := v.([]interface{})
		if !ok {
			return v
		}

		out := make([]interface{}, len(arr))
		for i, e := range arr {
			if at.IsComplex() {
				out[i] = convertSubAttrs(at, e, fn)
			} else {
				out[i] = fn(at, e)
			}
		}

		return out
	}

	if at.IsComplex() {
		return convertSubAttrs(at, v, fn)
	}

	return fn(at, v)
}

func convertSubAttrs(parent *schema.AttrType, v interface{}, fn convertFn) interface{} {
	obj, ok := v.(*ScimData)
	if !ok {
		return v
	}

	out := NewScimData()
	for _, key := range obj.Keys() {
		sub := parent.GetSubAt(key)
		sv := obj.Get(key)
		if sub == nil {
			out.Set(key, sv)
			continue
		}

		if sub.MultiValued {
			if arr, isArr := sv.([]interface{}); isArr {
				conv := make([]interface{}, len(arr))
				for i, e := range arr {
					conv[i] = fn(sub, e)
				}
				out.Set(sub.Name, conv)
				continue
			}
		}

		out.Set(sub.Name, fn(sub, sv))
	}

	return out
}

// ----------------- attribute filtering -----------------

// FilterData drops the attributes the filter rejects and returns the
// remaining data. Attributes the protocol pins, required attributes and
// attributes returned always survive.
func FilterData(rt *schema.ResourceType, sd *ScimData, af *schema.AttrFilter) *ScimData {
	out := NewScimData()

	filterContainer(rt.GetMainSchema(), sd, af, out, "")

	for _, ext := range rt.SchemaExtensions {
		v, _ := sd.rawGet(strings.ToLower(ext.Schema.Id))
		container, ok := v.(*ScimData)
		if !ok {
			continue
		}

		extOut := NewScimData()
		filterContainer(ext.Schema, container, af, extOut, ext.Schema.Id)
		if extOut.Len() != 0 {
			out.put(ext.Schema.Id, extOut)
		}
	}

	return out
}

func filterContainer(sc *schema.Schema, container *ScimData, af *schema.AttrFilter, out *ScimData, uri string) {
	for _, key := range container.Keys() {
		at := sc.GetAtType(key)
		v := container.Get(key)

		if at == nil {
			if uri == "" && strings.ContainsRune(key, ':') {
				continue // extensions are handled by the caller
			}
			out.Set(key, v)
			continue
		}

		if !af.Keep(at) {
			continue
		}

		if at.IsComplex() {
			out.Set(at.Name, filterSubValues(at, v, af))
			continue
		}

		out.Set(at.Name, v)
	}
}

func filterSubValues(parent *schema.AttrType, v interface{}, af *schema.AttrFilter) interface{} {
	filterObj := func(e interface{}) interface{} {
		obj, ok := e.(*ScimData)
		if !ok {
			return e
		}

		out := NewScimData()
		for _, key := range obj.Keys() {
			sub := parent.GetSubAt(key)
			if sub == nil || af.Keep(sub) {
				out.Set(key, obj.Get(key))
			}
		}

		return out
	}

	if arr, ok := v.([]interface{}); ok {
		out := make([]interface{}, len(arr))
		for i, e := range arr {
			out[i] = filterObj(e)
		}
		return out
	}

	return filterObj(v)
}
