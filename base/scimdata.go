// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"encoding/json"
	"strings"

	"scimcore/schema"
)

// MissingVal is the type of the Missing sentinel.
type MissingVal struct{}

// Missing is what lookups resolve to when a key is absent. It is
// distinct from an explicit JSON null, which SCIM uses to request
// attribute clearing and which is kept as a nil value.
var Missing = MissingVal{}

func (m MissingVal) String() string {
	return "Missing"
}

// IsMissing reports whether the given value is the Missing sentinel.
func IsMissing(v interface{}) bool {
	_, ok := v.(MissingVal)
	return ok
}

// present reports whether a value counts as present for SCIM purposes:
// non-missing, non-null and non-empty.
func present(v interface{}) bool {
	if v == nil || IsMissing(v) {
		return false
	}

	switch t := v.(type) {
	case string:
		return len(t) != 0
	case []interface{}:
		return len(t) != 0
	case *ScimData:
		return t.Len() != 0
	}

	return true
}

// ScimData is a case insensitive, path addressable mapping from
// attribute names to JSON compatible values. The casing of a key is the
// one first seen, lookup and storage ignore case. Nested objects are
// held as *ScimData, arrays as []interface{}.
type ScimData struct {
	keys []string // normalized keys in first-insert order
	disp map[string]string
	vals map[string]interface{}
}

func NewScimData() *ScimData {
	return &ScimData{
		keys: make([]string, 0),
		disp: make(map[string]string),
		vals: make(map[string]interface{}),
	}
}

// FromMap deep-converts an already decoded JSON object. Maps become
// nested ScimData, arrays stay ordered.
func FromMap(obj map[string]interface{}) *ScimData {
	sd := NewScimData()
	for k, v := range obj {
		sd.put(k, convertVal(v))
	}

	return sd
}

// FromJSON decodes the given JSON document keeping numbers as
// json.Number so that decimal values stay precise.
func FromJSON(data []byte) (*ScimData, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}

	return FromMap(obj), nil
}

func convertVal(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return FromMap(t)
	case []interface{}:
		arr := make([]interface{}, len(t))
		for i, e := range t {
			arr[i] = convertVal(e)
		}
		return arr
	}

	return v
}

func (sd *ScimData) Len() int {
	return len(sd.keys)
}

// Keys returns the keys in first-insert order using their original
// casing.
func (sd *ScimData) Keys() []string {
	keys := make([]string, len(sd.keys))
	for i, k := range sd.keys {
		keys[i] = sd.disp[k]
	}

	return keys
}

func (sd *ScimData) rawGet(normKey string) (interface{}, bool) {
	v, ok := sd.vals[normKey]
	return v, ok
}

func (sd *ScimData) put(key string, v interface{}) {
	norm := strings.ToLower(key)
	if _, present := sd.vals[norm]; !present {
		sd.keys = append(sd.keys, norm)
		sd.disp[norm] = key
	}

	sd.vals[norm] = v
}

// Get resolves the given path. A path may be a plain attribute name, a
// dotted sub-attribute path, a schema-URI-prefixed path or a
// sub-attribute of a multi-valued complex attribute, in which case the
// sub-values of all elements are projected into one array. Absent paths
// resolve to the Missing sentinel.
func (sd *ScimData) Get(path string) interface{} {
	uri, attr, subAttr := schema.SplitPath(path)

	container := sd
	if len(uri) != 0 {
		v, ok := sd.rawGet(strings.ToLower(uri))
		if ext, isData := v.(*ScimData); ok && isData {
			container = ext
		}
		// otherwise fall through to the top level: attributes of the
		// main schema live unnested, yet may be addressed with their
		// fully qualified path
	}

	v, ok := container.rawGet(strings.ToLower(attr))
	if !ok {
		return Missing
	}

	if len(subAttr) == 0 {
		return v
	}

	switch t := v.(type) {
	case *ScimData:
		return t.Get(subAttr)

	case []interface{}:
		projected := make([]interface{}, 0, len(t))
		for _, e := range t {
			if obj, ok := e.(*ScimData); ok {
				sv := obj.Get(subAttr)
				if !IsMissing(sv) {
					projected = append(projected, sv)
				}
			}
		}

		if len(projected) == 0 {
			return Missing
		}

		return projected
	}

	return Missing
}

// GetRep resolves a bounded attribute representation.
func (sd *ScimData) GetRep(br schema.BoundedAttrRep) interface{} {
	return sd.Get(br.String())
}

// Set stores the value at the given path. A schema-URI-prefixed path is
// auto-nested into the URI's extension object, creating it when needed.
func (sd *ScimData) Set(path string, v interface{}) {
	uri, attr, subAttr := schema.SplitPath(path)

	container := sd
	if len(uri) != 0 {
		existing, ok := sd.rawGet(strings.ToLower(uri))
		ext, isData := existing.(*ScimData)
		if !ok || !isData {
			ext = NewScimData()
			sd.put(uri, ext)
		}

		container = ext
	}

	if len(subAttr) == 0 {
		container.put(attr, convertVal(v))
		return
	}

	existing, ok := container.rawGet(strings.ToLower(attr))
	if ok {
		switch t := existing.(type) {
		case *ScimData:
			t.Set(subAttr, v)
			return

		case []interface{}:
			// assigning a projected sub-attribute writes it on every element
			for _, e := range t {
				if obj, isData := e.(*ScimData); isData {
					obj.Set(subAttr, v)
				}
			}
			return
		}
	}

	nested := NewScimData()
	nested.Set(subAttr, v)
	container.put(attr, nested)
}

func (sd *ScimData) SetRep(br schema.BoundedAttrRep, v interface{}) {
	sd.Set(br.String(), v)
}

// Delete removes the value at the given path and returns it, Missing
// when nothing was stored there.
func (sd *ScimData) Delete(path string) interface{} {
	uri, attr, subAttr := schema.SplitPath(path)

	container := sd
	if len(uri) != 0 {
		v, ok := sd.rawGet(strings.ToLower(uri))
		if ext, isData := v.(*ScimData); ok && isData {
			container = ext
		}
	}

	normAttr := strings.ToLower(attr)

	if len(subAttr) != 0 {
		v, ok := container.rawGet(normAttr)
		if !ok {
			return Missing
		}

		switch t := v.(type) {
		case *ScimData:
			return t.Delete(subAttr)

		case []interface{}:
			deleted := interface{}(Missing)
			for _, e := range t {
				if obj, isData := e.(*ScimData); isData {
					if d := obj.Delete(subAttr); !IsMissing(d) {
						deleted = d
					}
				}
			}
			return deleted
		}

		return Missing
	}

	v, ok := container.rawGet(normAttr)
	if !ok {
		return Missing
	}

	delete(container.vals, normAttr)
	delete(container.disp, normAttr)
	for i, k := range container.keys {
		if k == normAttr {
			container.keys = append(container.keys[:i], container.keys[i+1:]...)
			break
		}
	}

	return v
}

// ToMap renders the data as a nested plain map, extension objects stay
// nested under their URI keys.
func (sd *ScimData) ToMap() map[string]interface{} {
	obj := make(map[string]interface{}, len(sd.keys))
	for _, k := range sd.keys {
		obj[sd.disp[k]] = plainVal(sd.vals[k])
	}

	return obj
}

func plainVal(v interface{}) interface{} {
	switch t := v.(type) {
	case *ScimData:
		return t.ToMap()
	case []interface{}:
		arr := make([]interface{}, len(t))
		for i, e := range t {
			arr[i] = plainVal(e)
		}
		return arr
	}

	return v
}

// Copy returns a deep copy of the data.
func (sd *ScimData) Copy() *ScimData {
	return FromMap(sd.ToMap())
}

// Equal compares two data containers semantically: keys compare case
// insensitively, numbers compare by value regardless of their decoded
// representation.
func (sd *ScimData) Equal(other *ScimData) bool {
	if other == nil || len(sd.keys) != len(other.keys) {
		return false
	}

	for norm, v := range sd.vals {
		ov, ok := other.rawGet(norm)
		if !ok || !eqVal(v, ov) {
			return false
		}
	}

	return true
}

func eqVal(a interface{}, b interface{}) bool {
	if ad, ok := a.(*ScimData); ok {
		bd, ok := b.(*ScimData)
		return ok && ad.Equal(bd)
	}

	if aArr, ok := a.([]interface{}); ok {
		bArr, ok := b.([]interface{})
		if !ok || len(aArr) != len(bArr) {
			return false
		}

		for i := range aArr {
			if !eqVal(aArr[i], bArr[i]) {
				return false
			}
		}

		return true
	}

	if af, aOk := toFloat(a); aOk {
		bf, bOk := toFloat(b)
		return bOk && af == bf
	}

	return a == b
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}

	return 0, false
}
