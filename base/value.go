// Copyright 2017 Keydap. All rights reserved.
// Licensed under the Apache License, Version 2.0, see LICENSE.

package base

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/shopspring/decimal"

	"scimcore/schema"
	"scimcore/utils"
)

func toStr(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func toBool(v interface{}) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func toInt64(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		i := int64(t)
		if float64(i) == t {
			return i, true
		}
		return 0, false
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	}

	return 0, false
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case int:
		return decimal.New(int64(t), 0), true
	case int64:
		return decimal.New(t, 0), true
	case float64:
		return decimal.NewFromFloat(t), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case decimal.Decimal:
		return t, true
	}

	return decimal.Decimal{}, false
}

func isNumber(v interface{}) bool {
	_, ok := toDecimal(v)
	return ok
}

// wellFormedReference reports whether the value is URI shaped: an
// absolute URL, a relative resource path or a URN.
func wellFormedReference(val string) bool {
	if strings.HasPrefix(strings.ToLower(val), "urn:") {
		return true
	}

	return govalidator.IsURL(val) || govalidator.IsRequestURI(val)
}

// checkSimpleValue validates a single, non-array value against the
// attribute's type and metadata. The returned issues carry no location,
// the caller merges them at the right place.
func checkSimpleValue(at *schema.AttrType, v interface{}) *ValidationIssues {
	vi := NewIssues()

	if v == nil {
		// an explicit null is only meaningful as a clearing request in
		// a patch payload
		vi.AddError(BadType(strings.ToLower(at.Type)), true)
		return vi
	}

	switch strings.ToLower(at.Type) {
	case "any":
		return vi

	case "string":
		val, ok := toStr(v)
		if !ok {
			vi.AddError(BadType("string"), false)
			return vi
		}
		checkCanonical(at, val, vi)

	case "boolean":
		if _, ok := toBool(v); !ok {
			vi.AddError(BadType("boolean"), false)
			return vi
		}

	case "integer":
		if _, ok := toInt64(v); !ok {
			vi.AddError(BadType("integer"), false)
			return vi
		}

	case "decimal":
		if !isNumber(v) {
			vi.AddError(BadType("decimal"), false)
			return vi
		}

	case "datetime":
		val, ok := toStr(v)
		if !ok {
			vi.AddError(BadType("dateTime"), false)
			return vi
		}

		if _, err := time.Parse(time.RFC3339, val); err != nil {
			vi.AddError(BadValueSyntax(), false)
			return vi
		}

	case "binary":
		val, ok := toStr(v)
		if !ok {
			vi.AddError(BadType("binary"), false)
			return vi
		}

		if !govalidator.IsBase64(val) {
			vi.AddError(BadEncoding("base64"), false)
			return vi
		}

	case "reference":
		val, ok := toStr(v)
		if !ok {
			vi.AddError(BadType("reference"), false)
			return vi
		}

		if !wellFormedReference(val) {
			vi.AddError(BadReference(), true)
			return vi
		}
		checkCanonical(at, val, vi)

	case "complex":
		// complex values are walked by the schema traversal, reaching
		// here means the data carried a primitive where an object is due
		vi.AddError(BadType("complex"), false)
		return vi
	}

	for _, validate := range at.Validators {
		if err := validate(v); err != nil {
			vi.AddError(BadValueContent(err.Error()), true)
		}
	}

	return vi
}

func checkCanonical(at *schema.AttrType, val string, vi *ValidationIssues) {
	if len(at.CanonicalValues) == 0 || at.HasCanonicalValue(val) {
		return
	}

	if at.CanonicalExact {
		vi.AddError(MustBeOneOf(at.CanonicalValues), true)
	} else {
		vi.AddWarning(WarnShouldBeOneOf(at.CanonicalValues))
	}
}

// valueEquals compares two values under the attribute's type semantics,
// honoring case exactness for strings.
func valueEquals(at *schema.AttrType, a interface{}, b interface{}) bool {
	switch strings.ToLower(at.Type) {
	case "string":
		as, aOk := toStr(a)
		bs, bOk := toStr(b)
		if !aOk || !bOk {
			return eqVal(a, b)
		}

		if at.CaseExact {
			return as == bs
		}

		return strings.EqualFold(as, bs)

	case "integer", "decimal":
		ad, aOk := toDecimal(a)
		bd, bOk := toDecimal(b)
		if !aOk || !bOk {
			return eqVal(a, b)
		}

		return ad.Equal(bd)

	case "datetime":
		as, aOk := toStr(a)
		bs, bOk := toStr(b)
		if !aOk || !bOk {
			return eqVal(a, b)
		}

		at1, err1 := time.Parse(time.RFC3339, as)
		at2, err2 := time.Parse(time.RFC3339, bs)
		if err1 != nil || err2 != nil {
			return as == bs
		}

		return at1.Equal(at2)
	}

	return eqVal(a, b)
}

// serializeSimple applies the attribute level serializer, falling back
// to the process-wide default for the attribute's type.
func serializeSimple(at *schema.AttrType, v interface{}) interface{} {
	if at.Serializer != nil {
		return at.Serializer(v)
	}

	if fn := schema.DefaultSerializer(at.Type); fn != nil {
		return fn(v)
	}

	if strings.ToLower(at.Type) == "decimal" {
		if d, ok := v.(decimal.Decimal); ok {
			return json.Number(d.String())
		}
	}

	return v
}

// deserializeSimple applies the attribute level deserializer, falling
// back to the process-wide default for the attribute's type.
func deserializeSimple(at *schema.AttrType, v interface{}) interface{} {
	if at.Deserializer != nil {
		return at.Deserializer(v)
	}

	if fn := schema.DefaultDeserializer(at.Type); fn != nil {
		return fn(v)
	}

	return v
}

// MillisDateTimeDeserializer converts an RFC 3339 datetime value into
// epoch milliseconds. Suitable as a process-wide deserializer for the
// datetime type when a caller prefers numeric timestamps in memory.
func MillisDateTimeDeserializer(v interface{}) interface{} {
	s, ok := toStr(v)
	if !ok {
		return v
	}

	if _, err := time.Parse(time.RFC3339, s); err != nil {
		return v
	}

	return utils.GetTimeMillis(s)
}

// MillisDateTimeSerializer is the inverse of MillisDateTimeDeserializer.
func MillisDateTimeSerializer(v interface{}) interface{} {
	if millis, ok := toInt64(v); ok {
		return utils.MillisToDateTime(millis)
	}

	return v
}
